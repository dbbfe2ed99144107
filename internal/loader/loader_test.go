package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dekarrin/pastprint/internal/cache"
	"github.com/dekarrin/pastprint/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Decode(t *testing.T) {
	testCases := []struct {
		name      string
		input     []byte
		expect    string
		expectErr bool
	}{
		{name: "plain utf-8", input: []byte("s = 'é'\n"), expect: "s = 'é'\n"},
		{name: "bom", input: []byte("\xef\xbb\xbfprint 1\n"), expect: "print 1\n"},
		{name: "crlf", input: []byte("a\r\nb\rc\n"), expect: "a\nb\nc\n"},
		{name: "latin-1 declared", input: []byte("# -*- coding: latin-1 -*-\ns = '\xe9'\n"), expect: "# -*- coding: latin-1 -*-\ns = 'é'\n"},
		{name: "declared on second line", input: []byte("#!/usr/bin/env python\n# vim: set fileencoding=iso-8859-15 :\ns = '\xa4'\n"), expect: "#!/usr/bin/env python\n# vim: set fileencoding=iso-8859-15 :\ns = '€'\n"},
		{name: "declaration after code is ignored", input: []byte("x = 1\n# coding: latin-1\n"), expect: "x = 1\n# coding: latin-1\n"},
		{name: "utf-8 variant name", input: []byte("# coding: UTF_8\nx = 'é'\n"), expect: "# coding: UTF_8\nx = 'é'\n"},
		{name: "invalid utf-8", input: []byte("s = '\xe9'\n"), expectErr: true},
		{name: "unknown encoding", input: []byte("# coding: klingon\n"), expectErr: true},
		{name: "bom with other encoding", input: []byte("\xef\xbb\xbf# coding: latin-1\n"), expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := Decode(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_ParsePolicy(t *testing.T) {
	testCases := []struct {
		input     string
		expect    Policy
		expectErr bool
	}{
		{input: "always", expect: PolicyAlways},
		{input: "Opt-In", expect: PolicyOptIn},
		{input: "optin", expect: PolicyOptIn},
		{input: "sometimes", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParsePolicy(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Loader_Transform(t *testing.T) {
	testCases := []struct {
		name   string
		policy Policy
		input  string
		expect string
	}{
		{name: "always", policy: PolicyAlways, input: "print 1\n", expect: "print(1)\n"},
		{name: "opt-in without marker", policy: PolicyOptIn, input: "print 1\n", expect: "print 1\n"},
		{
			name:   "opt-in with marker",
			policy: PolicyOptIn,
			input:  "from __past__ import print_statement\nprint 1\n",
			expect: "# from __past__ import print_statement\nprint(1)\n",
		},
		{
			name:   "opt-in marker with comment",
			policy: PolicyOptIn,
			input:  "'''doc'''\nfrom __past__ import print_statement  # yes\nprint >>f, 1\n",
			expect: "'''doc'''\n# from __past__ import print_statement  # yes\nprint(1, file=f)\n",
		},
		{
			name:   "always leaves marker alone",
			policy: PolicyAlways,
			input:  "x = 1\n",
			expect: "x = 1\n",
		},
		{name: "latin-1", policy: PolicyAlways, input: "# coding: latin-1\nprint '\xe9'\n", expect: "# coding: latin-1\nprint('é')\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ld := &Loader{Policy: tc.policy}
			actual, err := ld.Transform(context.Background(), "m.py", []byte(tc.input))
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Loader_Transform_syntaxError(t *testing.T) {
	assert := assert.New(t)

	ld := &Loader{}
	_, err := ld.Source("pkg/bad.py", []byte("x = 1\nprint print\n"))

	var se *rewrite.SyntaxError
	if assert.True(errors.As(err, &se)) {
		assert.Equal("pkg/bad.py", se.Filename())
		assert.Equal(2, se.Line())
		assert.Equal(7, se.Position())
	}
}

func Test_Loader_Transform_cache(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := cache.NewInMemory()
	ld := &Loader{Cache: store}
	data := []byte("print 1\n")

	out, err := ld.Transform(ctx, "m.py", data)
	assert.NoError(err)
	assert.Equal("print(1)\n", out)

	e, err := store.Get(ctx, "m.py", cache.Digest(PolicyAlways.String(), data))
	if assert.NoError(err) {
		assert.Equal("print(1)\n", e.Result)
	}

	// a stored result is used as-is
	_, err = store.Put(ctx, cache.Entry{Path: "m.py", Digest: cache.Digest(PolicyAlways.String(), data), Result: "cached\n"})
	require.NoError(t, err)
	out, err = ld.Transform(ctx, "m.py", data)
	assert.NoError(err)
	assert.Equal("cached\n", out)

	// different content misses
	out, err = ld.Transform(ctx, "m.py", []byte("print 2\n"))
	assert.NoError(err)
	assert.Equal("print(2)\n", out)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0770))
		require.NoError(t, os.WriteFile(p, []byte(content), 0660))
	}
}

func Test_Loader_Find(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	writeFiles(t, dir1, map[string]string{
		"a.py":             "",
		"pkg/__init__.py":  "",
		"pkg/sub.py":       "",
		"both/__init__.py": "",
	})
	writeFiles(t, dir2, map[string]string{
		"b.py":    "",
		"a.py":    "",
		"both.py": "",
	})

	testCases := []struct {
		name      string
		module    string
		expect    string
		expectErr error
	}{
		{name: "module", module: "a", expect: filepath.Join(dir1, "a.py")},
		{name: "second dir", module: "b", expect: filepath.Join(dir2, "b.py")},
		{name: "package", module: "pkg", expect: filepath.Join(dir1, "pkg", "__init__.py")},
		{name: "submodule", module: "pkg.sub", expect: filepath.Join(dir1, "pkg", "sub.py")},
		{name: "package first", module: "both", expect: filepath.Join(dir1, "both", "__init__.py")},
		{name: "missing", module: "nope", expectErr: ErrModuleNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ld := &Loader{}
			actual, err := ld.Find(tc.module, []string{dir1, dir2})
			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Loader_Find_badName(t *testing.T) {
	assert := assert.New(t)

	ld := &Loader{}
	_, err := ld.Find("a..b", []string{t.TempDir()})
	assert.Error(err)
	_, err = ld.Find("", nil)
	assert.Error(err)
}

func Test_Loader_Load(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"m.py": "print 'hi'\n"})

	ld := &Loader{}
	out, err := ld.Load(context.Background(), filepath.Join(dir, "m.py"))
	assert.NoError(err)
	assert.Equal("print('hi')\n", out)

	_, err = ld.Load(context.Background(), filepath.Join(dir, "missing.py"))
	assert.ErrorIs(err, os.ErrNotExist)
}

func Test_Loader_Tree(t *testing.T) {
	assert := assert.New(t)

	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, map[string]string{
		"main.py":         "print 1\n",
		"pkg/__init__.py": "",
		"pkg/util.py":     "def f():\n    print >>sys.stderr, 'x'\n",
		"pkg/bad.py":      "print print\n",
		"README.txt":      "print 1\n",
	})

	report, err := (&Loader{}).Tree(context.Background(), src, dst)
	if !assert.NoError(err) {
		return
	}

	assert.Len(report.Files, 4)
	assert.Equal(2, report.Changed())

	failed := report.Failed()
	if assert.Len(failed, 1) {
		assert.Equal(filepath.Join("pkg", "bad.py"), failed[0].Path)
	}

	out, err := os.ReadFile(filepath.Join(dst, "pkg", "util.py"))
	assert.NoError(err)
	assert.Equal("def f():\n    print('x', file=sys.stderr)\n", string(out))

	_, err = os.Stat(filepath.Join(dst, "pkg", "bad.py"))
	assert.ErrorIs(err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(dst, "README.txt"))
	assert.ErrorIs(err, os.ErrNotExist)
}

func Test_Loader_Tree_cancelled(t *testing.T) {
	assert := assert.New(t)

	src := t.TempDir()
	writeFiles(t, src, map[string]string{"a.py": "print 1\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Loader{}).Tree(ctx, src, t.TempDir())
	assert.ErrorIs(err, context.Canceled)
}
