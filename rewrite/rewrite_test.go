package rewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Rewrite(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "simple", input: "print 1", expect: "print(1)"},
		{name: "multiple", input: "print 1, 2, 3", expect: "print(1, 2, 3)"},
		{name: "file", input: "print >>f, 1", expect: "print(1, file=f)"},
		{name: "file and end", input: "print >>f, 1,", expect: "print(1, file=f, end=' ')"},
		{name: "end", input: "print 1,", expect: "print(1, end=' ')"},
		{name: "newline", input: "print 1\n", expect: "print(1)\n"},
		{name: "continued", input: "print 1,\\\n2", expect: "print(1,\\\n2)"},
		{name: "multiline", input: "print (\n1)", expect: "print((\n1))"},
		{name: "multiline string", input: "print \"\"\"\n1\"\"\"", expect: "print(\"\"\"\n1\"\"\")"},
		{name: "condition", input: "if True:\n print 1", expect: "if True:\n print(1)"},
		{name: "function", input: "def f():\n print 1", expect: "def f():\n print(1)"},
		{name: "class", input: "class F:\n print 1", expect: "class F:\n print(1)"},
		{name: "bare", input: "print", expect: "print()"},
		{name: "parenthesized name untouched", input: "print (x)", expect: "print (x)"},
		{name: "no print at all", input: "x = [1, 2]\n# done\n", expect: "x = [1, 2]\n# done\n"},
		{name: "empty", input: "", expect: ""},
		{
			name:   "future import keeps print calls",
			input:  "from __future__ import print_function\nprint(1, file=f)\n",
			expect: "from __future__ import print_function\nprint(1, file=f)\n",
		},
		{
			name:   "future import after docstring",
			input:  "\"\"\"doc\"\"\"\n# c\nfrom __future__ import (division,\n    print_function)\nprint(end='')\n",
			expect: "\"\"\"doc\"\"\"\n# c\nfrom __future__ import (division,\n    print_function)\nprint(end='')\n",
		},
		{
			name:   "other future imports still rewrite",
			input:  "from __future__ import division\nprint 1/2\n",
			expect: "from __future__ import division\nprint(1/2)\n",
		},
		{
			name:   "comments and spacing kept",
			input:  "def f(x):  # hi\n\n    print x ,  # out\n    return x\n",
			expect: "def f(x):  # hi\n\n    print(x, end=' ')  # out\n    return x\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := Rewrite(tc.input)
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_RewriteFile_errors(t *testing.T) {
	testCases := []struct {
		name             string
		input            string
		expectKind       ErrorKind
		expectMsg        string
		expectLine       int
		expectPos        int
		expectSourceLine string
		expectIncomplete bool
		expectStructural bool
	}{
		{
			name:       "keyword twice",
			input:      "x = 1\nreturn return",
			expectKind: KindParse,
			expectMsg:  "invalid syntax",
			expectLine: 2, expectPos: 8,
			expectSourceLine: "return return",
		},
		{
			name:       "print call with keyword",
			input:      "print(1, file=f)",
			expectKind: KindParse,
			expectMsg:  "invalid syntax",
			expectLine: 1, expectPos: 14,
			expectSourceLine: "print(1, file=f)",
		},
		{
			name:       "open bracket",
			input:      "x = (1,",
			expectKind: KindToken,
			expectMsg:  "EOF in multi-line statement",
			expectLine: 2, expectPos: 1,
			expectSourceLine: "",
			expectIncomplete: true,
		},
		{
			name:       "open string",
			input:      "x = 1\ns = '''abc",
			expectKind: KindToken,
			expectMsg:  "EOF in multi-line string",
			expectLine: 2, expectPos: 5,
			expectSourceLine: "s = '''abc",
			expectIncomplete: true,
		},
		{
			name:       "missing block",
			input:      "if x:",
			expectKind: KindParse,
			expectMsg:  "invalid syntax",
			expectLine: 2, expectPos: 1,
			expectSourceLine: "",
			expectStructural: true,
		},
		{
			name:       "bad dedent",
			input:      "if x:\n    a\n  b",
			expectKind: KindIndent,
			expectMsg:  "unindent does not match any outer indentation level",
			expectLine: 3, expectPos: 3,
			expectSourceLine: "  b",
		},
		{
			name:       "unexpected indent",
			input:      "x = 1\n  y = 2",
			expectKind: KindParse,
			expectMsg:  "invalid syntax",
			expectLine: 2, expectPos: 1,
			expectSourceLine: "  y = 2",
		},
		{
			name:       "column counts characters",
			input:      "s = 'é' return",
			expectKind: KindParse,
			expectMsg:  "invalid syntax",
			expectLine: 1, expectPos: 9,
			expectSourceLine: "s = 'é' return",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := RewriteFile(tc.input, "mod.py")

			var se *SyntaxError
			if !assert.True(errors.As(err, &se), "expected *SyntaxError, got %v", err) {
				return
			}

			assert.Equal("mod.py", se.Filename())
			assert.Equal(tc.expectKind, se.Kind())
			assert.Equal(tc.expectMsg, se.Message())
			assert.Equal(tc.expectLine, se.Line())
			assert.Equal(tc.expectPos, se.Position())
			assert.Equal(tc.expectSourceLine, se.SourceLine())
			assert.Equal(tc.expectIncomplete, se.Incomplete())
			assert.Equal(tc.expectStructural, se.Structural())
		})
	}
}

func Test_Fragment_noNewlineAdded(t *testing.T) {
	assert := assert.New(t)

	_, err := Fragment("print 1", "<stdin>")

	var se *SyntaxError
	if assert.True(errors.As(err, &se)) {
		assert.True(se.Structural())
		assert.Equal("<stdin>", se.Filename())
	}

	out, err := Fragment("print 1\n", "<stdin>")
	assert.NoError(err)
	assert.Equal("print(1)\n", out)
}

func Test_Check(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Check("print 1", DefaultFilename))
	assert.Error(Check("print print", DefaultFilename))
}

func Test_SyntaxError_Traceback(t *testing.T) {
	assert := assert.New(t)

	_, err := RewriteFile("if x:\n    x = = 1", "mod.py")

	var se *SyntaxError
	if !assert.True(errors.As(err, &se)) {
		return
	}

	expect := "  File \"mod.py\", line 2\n" +
		"    x = = 1\n" +
		"        ^\n" +
		"SyntaxError: invalid syntax"
	assert.Equal(expect, se.Traceback())
	assert.Equal("    x = = 1\n        ^", se.SourceLineWithCursor())
	assert.Equal("mod.py:2:9: invalid syntax", se.Error())
}
