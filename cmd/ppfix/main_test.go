package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0770))
		require.NoError(t, os.WriteFile(p, []byte(content), 0660))
	}
}

func Test_run_stdout(t *testing.T) {
	testCases := []struct {
		name       string
		args       []string
		files      map[string]string
		expectCode int
		expectOut  string
	}{
		{
			name:       "single file",
			args:       []string{"a.py"},
			files:      map[string]string{"a.py": "print 'hi'\n"},
			expectCode: ExitSuccess,
			expectOut:  "print('hi')\n",
		},
		{
			name:       "unchanged file",
			args:       []string{"a.py"},
			files:      map[string]string{"a.py": "print('hi')\n"},
			expectCode: ExitSuccess,
			expectOut:  "print('hi')\n",
		},
		{
			name:       "opt-in skips unmarked file",
			args:       []string{"--policy", "opt-in", "a.py"},
			files:      map[string]string{"a.py": "print 'hi'\n"},
			expectCode: ExitSuccess,
			expectOut:  "print 'hi'\n",
		},
		{
			name:       "opt-in rewrites marked file",
			args:       []string{"--policy", "opt-in", "a.py"},
			files:      map[string]string{"a.py": "from __past__ import print_statement\nprint 'hi'\n"},
			expectCode: ExitSuccess,
			expectOut:  "# from __past__ import print_statement\nprint('hi')\n",
		},
		{
			name:       "bad policy",
			args:       []string{"--policy", "never", "a.py"},
			files:      map[string]string{"a.py": "print 'hi'\n"},
			expectCode: ExitError,
		},
		{
			name:       "no paths",
			args:       []string{},
			expectCode: ExitError,
		},
		{
			name:       "conflicting modes",
			args:       []string{"-w", "--check", "a.py"},
			files:      map[string]string{"a.py": "print 'hi'\n"},
			expectCode: ExitError,
		},
		{
			name:       "with in-memory cache",
			args:       []string{"--cache", "inmem", "a.py", "a.py"},
			files:      map[string]string{"a.py": "print 1,\n"},
			expectCode: ExitSuccess,
			expectOut:  "print(1, end=' ')\nprint(1, end=' ')\n",
		},
		{
			name:       "bad cache",
			args:       []string{"--cache", "mongo", "a.py"},
			files:      map[string]string{"a.py": "print 1\n"},
			expectCode: ExitError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			dir := t.TempDir()
			writeFiles(t, dir, tc.files)
			chdir(t, dir)

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, &stdout, &stderr)

			assert.Equal(tc.expectCode, code, "stderr: %s", stderr.String())
			if tc.expectCode == ExitSuccess {
				assert.Equal(tc.expectOut, stdout.String())
			}
		})
	}
}

func Test_run_write(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.py":      "print 'a'\n",
		"pkg/b.py":  "print('b')\n",
		"pkg/c.txt": "print 'c'\n",
	})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-w", dir}, &stdout, &stderr)
	assert.Equal(ExitSuccess, code)
	assert.Empty(stdout.String())

	a, _ := os.ReadFile(filepath.Join(dir, "a.py"))
	b, _ := os.ReadFile(filepath.Join(dir, "pkg", "b.py"))
	c, _ := os.ReadFile(filepath.Join(dir, "pkg", "c.txt"))
	assert.Equal("print('a')\n", string(a))
	assert.Equal("print('b')\n", string(b))
	assert.Equal("print 'c'\n", string(c))
}

func Test_run_check(t *testing.T) {
	testCases := []struct {
		name       string
		files      map[string]string
		expectCode int
		expectOut  string
	}{
		{
			name:       "nothing to change",
			files:      map[string]string{"a.py": "print()\n"},
			expectCode: ExitSuccess,
			expectOut:  "",
		},
		{
			name:       "one file would change",
			files:      map[string]string{"a.py": "print()\n", "b.py": "print\n"},
			expectCode: ExitChanged,
			expectOut:  "would rewrite b.py\n",
		},
		{
			name:       "syntax error wins",
			files:      map[string]string{"a.py": "print 1\n", "b.py": "x = 1\nprint print\n"},
			expectCode: ExitError,
			expectOut:  "would rewrite a.py\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			dir := t.TempDir()
			writeFiles(t, dir, tc.files)
			chdir(t, dir)

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), []string{"--check", "."}, &stdout, &stderr)

			assert.Equal(tc.expectCode, code)
			assert.Equal(tc.expectOut, stdout.String())

			for name, content := range tc.files {
				got, _ := os.ReadFile(filepath.Join(dir, name))
				assert.Equal(content, string(got))
			}
		})
	}
}

func Test_run_syntaxError(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"bad.py": "x = 1\nprint print\n"})
	chdir(t, dir)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"bad.py"}, &stdout, &stderr)

	assert.Equal(ExitError, code)
	assert.Empty(stdout.String())
	assert.Contains(stderr.String(), "File \"bad.py\", line 2\n")
	assert.Contains(stderr.String(), "SyntaxError: invalid syntax\n")
}

func Test_run_out(t *testing.T) {
	assert := assert.New(t)

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{
		"main.py":         "print 'main'\n",
		"pkg/__init__.py": "",
		"pkg/bad.py":      "print print\n",
	})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-o", dst, src}, &stdout, &stderr)

	assert.Equal(ExitError, code)
	assert.Contains(stderr.String(), "bad.py")

	got, err := os.ReadFile(filepath.Join(dst, "main.py"))
	assert.NoError(err)
	assert.Equal("print('main')\n", string(got))
	assert.FileExists(filepath.Join(dst, "pkg", "__init__.py"))
	assert.NoFileExists(filepath.Join(dst, "pkg", "bad.py"))

	code = run(context.Background(), []string{"-o", dst, filepath.Join(src, "main.py")}, &stdout, &stderr)
	assert.Equal(ExitSuccess, code)
}

func Test_run_version(t *testing.T) {
	assert := assert.New(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--version"}, &stdout, &stderr)

	assert.Equal(ExitSuccess, code)
	assert.NotEmpty(stdout.String())
}

func Test_run_badFlags(t *testing.T) {
	testCases := []struct {
		name         string
		args         []string
		expectStderr string
	}{
		{name: "unknown flag", args: []string{"--nope"}, expectStderr: "unknown flag: --nope"},
		{name: "missing value", args: []string{"--policy"}, expectStderr: "flag needs an argument"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, &stdout, &stderr)

			assert.Equal(ExitError, code)
			assert.Contains(stderr.String(), tc.expectStderr)
			assert.Contains(stderr.String(), "Do -h for help.")
		})
	}
}

// chdir changes the working directory to dir for the rest of the test and
// restores the previous one when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}
