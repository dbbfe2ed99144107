package pyparse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/pastprint/internal/pygrammar"
	"github.com/dekarrin/pastprint/internal/pytoken"
)

func Test_Parse_roundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "print statement", input: "print 1, 2,\n"},
		{name: "print to stream", input: "print >>sys.stderr, 'x'\n"},
		{name: "comments and blank lines", input: "# head\n\nx = 1  # tail\n\n"},
		{name: "nested blocks", input: "def f(a, *b, c=1, **d):\n    if a:\n        return b\n    # done\n    return c\n"},
		{name: "class with decorator", input: "@dec(1)\nclass A(B, metaclass=M):\n    x: int = 3\n"},
		{name: "try statement", input: "try:\n    pass\nexcept ValueError as e:\n    raise X from e\nfinally:\n    del x\n"},
		{name: "comprehensions", input: "y = [a for a in b if a]\nz = {k: v for k, v in d}\n"},
		{name: "continuation", input: "x = 1 + \\\n    2\n"},
		{name: "multiline string", input: "s = '''a\nb'''\n"},
		{name: "async and await", input: "async def f():\n    await g()\n"},
		{name: "walrus and lambda", input: "if (n := len(a)) > 10:\n    f = lambda x, *, y=2: x\n"},
		{name: "slices", input: "a[1:2, ::3]\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			tree, err := Parse(tc.input, pygrammar.Python())
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.input, tree.String())
		})
	}
}

func Test_Parse_printStatementShape(t *testing.T) {
	assert := assert.New(t)

	tree, err := Parse("print 1, x\n", pygrammar.Python())
	if !assert.NoError(err) {
		return
	}

	var stmts []*Node
	Walk(tree, func(t Tree) bool {
		if n, ok := t.(*Node); ok && n.Symbol == "print_stmt" {
			stmts = append(stmts, n)
		}
		return true
	})

	if !assert.Len(stmts, 1) {
		return
	}
	ps := stmts[0]
	assert.Equal("simple_stmt", ps.Parent().Symbol)
	if !assert.Len(ps.Children, 4) {
		return
	}
	assert.True(ps.Children[0].(*Leaf).Is(pytoken.Name, "print"))
	assert.True(ps.Children[2].(*Leaf).Is(pytoken.Op, ","))
	assert.Equal(" ", ps.Children[3].FirstLeaf().Prefix)

	start, end := Span(ps)
	assert.Equal(0, start)
	assert.Equal(10, end)
}

func Test_Parse_barePrintCollapses(t *testing.T) {
	assert := assert.New(t)

	tree, err := Parse("print\n", pygrammar.Python())
	if !assert.NoError(err) {
		return
	}

	leaf := tree.FirstLeaf()
	assert.True(leaf.Is(pytoken.Name, "print"))
	assert.Equal("simple_stmt", leaf.Parent().Symbol)
}

func Test_Parse_errors(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		grammar     func() *pygrammar.Grammar
		expectMsg   string
		expectValue string
		expectPos   pytoken.Pos
	}{
		{
			name:        "keyword twice",
			input:       "return return\n",
			grammar:     pygrammar.Python,
			expectMsg:   MsgBadInput,
			expectValue: "return",
			expectPos:   pytoken.Pos{Row: 1, Col: 7},
		},
		{
			name:        "print as a value",
			input:       "x = print\n",
			grammar:     pygrammar.Python,
			expectMsg:   MsgBadInput,
			expectValue: "print",
			expectPos:   pytoken.Pos{Row: 1, Col: 4},
		},
		{
			name:        "print call with keyword arg",
			input:       "print(1, file=f)\n",
			grammar:     pygrammar.Python,
			expectMsg:   MsgBadInput,
			expectValue: "=",
			expectPos:   pytoken.Pos{Row: 1, Col: 13},
		},
		{
			name:      "missing block",
			input:     "if True:\n",
			grammar:   pygrammar.Python,
			expectMsg: MsgBadInput,
			expectPos: pytoken.Pos{Row: 2, Col: 0},
		},
		{
			name:        "unexpected indent",
			input:       "x = 1\n  y = 2\n",
			grammar:     pygrammar.Python,
			expectMsg:   MsgBadInput,
			expectValue: "  ",
			expectPos:   pytoken.Pos{Row: 2, Col: 0},
		},
		{
			name:        "stray character",
			input:       "a $ b\n",
			grammar:     pygrammar.Python,
			expectMsg:   MsgBadToken,
			expectValue: " ",
			expectPos:   pytoken.Pos{Row: 1, Col: 1},
		},
		{
			name:      "statement without newline",
			input:     "x = 1",
			grammar:   pygrammar.Python,
			expectMsg: MsgBadInput,
			expectPos: pytoken.Pos{Row: 2, Col: 0},
		},
		{
			name:        "print is a name without the statement",
			input:       "print 1\n",
			grammar:     pygrammar.PythonNoPrint,
			expectMsg:   MsgBadInput,
			expectValue: "1",
			expectPos:   pytoken.Pos{Row: 1, Col: 6},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := Parse(tc.input, tc.grammar())
			pe, ok := err.(*ParseError)
			if !assert.Truef(ok, "expected *ParseError, got %T (%v)", err, err) {
				return
			}

			assert.Equal(tc.expectMsg, pe.Msg)
			assert.Equal(tc.expectValue, pe.Value)
			assert.Equal(tc.expectPos, pe.Pos)
		})
	}
}

func Test_Parse_parserFailsBeforeTokenizer(t *testing.T) {
	assert := assert.New(t)

	// the open bracket would be a token error, but the parser gives up first
	_, err := Parse("print print (\n", pygrammar.Python())

	pe, ok := err.(*ParseError)
	if assert.True(ok) {
		assert.Equal("print", pe.Value)
		assert.Equal(pytoken.Pos{Row: 1, Col: 6}, pe.Pos)
	}
}

func Test_Parse_tokenErrorsPassThrough(t *testing.T) {
	assert := assert.New(t)

	_, err := Parse("x = (1,\n", pygrammar.Python())
	assert.IsType(&pytoken.TokenError{}, err)
}

func Test_Dump(t *testing.T) {
	assert := assert.New(t)

	tree, err := Parse("pass\n", pygrammar.Python())
	if !assert.NoError(err) {
		return
	}

	expect := "( file_input )\n" +
		"  |---: ( simple_stmt )\n" +
		"  |       |---: (TERM NAME \"pass\")\n" +
		"  |       \\---: (TERM NEWLINE \"\\n\")\n" +
		"  \\---: (TERM ENDMARKER \"\")"
	assert.Equal(expect, Dump(tree))
}
