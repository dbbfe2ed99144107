package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Session_FeedKind(t *testing.T) {
	type step struct {
		input  string
		expect string
	}

	testCases := []struct {
		name  string
		steps []step
	}{
		{name: "simple", steps: []step{{"print 1\n", "print(1)\n"}}},
		{name: "multiple", steps: []step{{"print 1, 2, 3\n", "print(1, 2, 3)\n"}}},
		{name: "file", steps: []step{{"print >>f, 1\n", "print(1, file=f)\n"}}},
		{name: "end", steps: []step{{"print 1,\n", "print(1, end=' ')\n"}}},
		{name: "continued", steps: []step{
			{"print 1,\\\n", "#\n"},
			{"2\n", "print(1,\\\n2)\n"},
		}},
		{name: "multiline", steps: []step{
			{"print (\n", "#\n"},
			{"1)\n", "print((\n1))\n"},
		}},
		{name: "multiline string", steps: []step{
			{"print \"\"\"\n", "#\n"},
			{"1\"\"\"\n", "print(\"\"\"\n1\"\"\")\n"},
		}},
		{name: "condition", steps: []step{
			{"if True:\n", "#\n"},
			{" print 1\n", "if True:\n print(1)\n"},
		}},
		{name: "function", steps: []step{
			{"def f():\n", "#\n"},
			{" print 1\n", "def f():\n print(1)\n"},
		}},
		{name: "class", steps: []step{
			{"class F:\n", "#\n"},
			{" print 1\n", "class F:\n print(1)\n"},
		}},
		{name: "with", steps: []step{
			{"with x:\n", "#\n"},
			{" print 1\n", "with x:\n print(1)\n"},
		}},
		{name: "try", steps: []step{
			{"try:\n", "#\n"},
			{" print 1\n", "#\n"},
			{"except:\n", "#\n"},
			{" pass\n", "try:\n print(1)\nexcept:\n pass\n"},
		}},
		{name: "eof", steps: []step{{"", ""}}},
		{name: "eof while pending keeps waiting", steps: []step{
			{"print (\n", "#\n"},
			{"", "#\n"},
		}},
		{name: "print function is not allowed", steps: []step{{"print print\n", "print ?print\n"}}},
		{name: "print kwargs are not allowed", steps: []step{{"print(1, file=f)\n", "print(1, file?=f)\n"}}},
		{name: "print is not assignable", steps: []step{{"print = 1\n", "print ?= 1\n"}}},
		{name: "other errors", steps: []step{{"return return\n", "return ?return\n"}}},
		{name: "empty block may end", steps: []step{
			{"if True:\n", "#\n"},
			{"\n", "if True:\n\n"},
		}},
		{name: "try without except may end", steps: []step{
			{"try:\n", "#\n"},
			{" pass\n", "#\n"},
			{"\n", "try:\n pass\n\n"},
		}},
		{name: "unterminated string", steps: []step{
			{"print 'abc\n", "print? 'abc\n"},
		}},
		{name: "bad dedent is left to the interpreter", steps: []step{
			{"if x:\n", "#\n"},
			{"    a\n", "if x:\n    a\n"},
			{"  b\n", "  b\n"},
		}},
		{name: "unexpected indent", steps: []step{
			{"  b\n", "?  b\n"},
		}},
		{name: "indented after a statement", steps: []step{
			{"x = 1\n", "x = 1\n"},
			{"  y = 2\n", "?  y = 2\n"},
		}},
		{name: "context is kept between statements", steps: []step{
			{"x = 1\n", "x = 1\n"},
			{"print x\n", "print(x)\n"},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			s := New()
			for i, st := range tc.steps {
				actual := s.FeedKind(st.input, NoPrompt)
				assert.Equal(st.expect, actual, "step %d (%q)", i, st.input)
			}
		})
	}
}

func Test_Session_Feed_prompts(t *testing.T) {
	assert := assert.New(t)

	s := New(WithPrompts(Prompts{Primary: "py> ", Continuation: "  | "}))

	assert.Equal("#\n", s.Feed("if True:\n", "py> "))
	assert.True(s.Pending())
	assert.Equal("if True:\n print(1)\n", s.Feed(" print 1\n", "  | "))
	assert.False(s.Pending())
	assert.Equal([]string{"if True:\n", " print 1\n"}, s.Context())

	// primary prompt starts over
	assert.Equal("print(2)\n", s.Feed("print 2\n", "py> "))
	assert.Equal([]string{"print 2\n"}, s.Context())

	// input() and friends read with their own prompts
	assert.Equal("print 3\n", s.Feed("print 3\n", "name? "))
	assert.Equal([]string{"print 2\n"}, s.Context())
}

func Test_Session_FeedKind_eofWhilePending(t *testing.T) {
	assert := assert.New(t)

	s := New()
	assert.Equal("#\n", s.FeedKind("print (\n", ContinuationPrompt))
	assert.Equal("#\n", s.FeedKind("", ContinuationPrompt))
	assert.True(s.Pending())
	assert.Equal([]string{"print (\n", ""}, s.Buffer())
	assert.Empty(s.Context())

	s.Discard()
	assert.False(s.Pending())
}

func Test_Session_Feed_emptyPrompt(t *testing.T) {
	testCases := []struct {
		name          string
		context       []string
		line          string
		expect        string
		expectCtx     []string
		expectPending bool
	}{
		{
			name:      "statement",
			line:      "print 1\n",
			expect:    "print(1)\n",
			expectCtx: []string{"print 1\n"},
		},
		{
			name:      "context is kept",
			context:   []string{"x = 1\n"},
			line:      "print x\n",
			expect:    "print(x)\n",
			expectCtx: []string{"x = 1\n", "print x\n"},
		},
		{
			name:          "unfinished statement",
			line:          "if x:\n",
			expect:        "#\n",
			expectPending: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			s := New()
			for _, c := range tc.context {
				s.FeedKind(c, NoPrompt)
			}

			actual := s.Feed(tc.line, "")

			assert.Equal(tc.expect, actual)
			assert.Equal(tc.expectPending, s.Pending())
			assert.Equal(tc.expectCtx, s.Context())
		})
	}
}

func Test_Session_FeedKind_noNewline(t *testing.T) {
	assert := assert.New(t)

	s := New()
	assert.Panics(func() {
		s.FeedKind("print 1", NoPrompt)
	})
}

func Test_Session_Reset(t *testing.T) {
	assert := assert.New(t)

	s := New()
	s.FeedKind("x = 1\n", NoPrompt)
	s.Reset()
	assert.Empty(s.Context())

	s.FeedKind("if x:\n", NoPrompt)
	assert.Panics(func() {
		s.Reset()
	})

	s.Discard()
	assert.NotPanics(func() {
		s.Reset()
	})
}

func Test_Classify(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		expectKind OutcomeKind
		expectText string
	}{
		{name: "complete", input: "print 1\n", expectKind: Complete, expectText: "print(1)\n"},
		{name: "open bracket", input: "print (\n", expectKind: NeedsMoreInput},
		{name: "open block", input: "if x:\n", expectKind: NeedsMoreInput},
		{name: "open block after blank line", input: "if x:\n\n", expectKind: Invalid, expectText: "if x:\n\n"},
		{name: "bad token", input: "x = = 1\n", expectKind: Invalid, expectText: "x = ?= 1\n"},
		{name: "bad token on later line", input: "x = 1\ny = = 2\n", expectKind: Invalid, expectText: "x = 1\ny = ?= 2\n"},
		{name: "stray quote", input: "'abc\n", expectKind: Invalid, expectText: "?'abc\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := Classify(tc.input)
			assert.Equal(tc.expectKind, actual.Kind)
			assert.Equal(tc.expectText, actual.Text)
			if tc.expectKind == Complete {
				assert.Nil(actual.Err)
			} else {
				assert.NotNil(actual.Err)
			}
		})
	}
}

func Test_invalidate(t *testing.T) {
	testCases := []struct {
		name   string
		text   string
		row    int
		col    int
		expect string
	}{
		{name: "start", text: "ab\n", row: 1, col: 0, expect: "?ab\n"},
		{name: "middle of second line", text: "ab\ncd\n", row: 2, col: 1, expect: "ab\nc?d\n"},
		{name: "past end of line", text: "ab\n", row: 1, col: 9, expect: "ab?\n"},
		{name: "no such row", text: "ab\n", row: 5, col: 0, expect: "ab\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(tc.expect, invalidate(tc.text, tc.row, tc.col))
		})
	}
}

func Test_Session_MarshalBinary(t *testing.T) {
	assert := assert.New(t)

	s := New(WithPrompts(Prompts{Primary: "> ", Continuation: ". "}))
	s.FeedKind("x = 1\n", NoPrompt)
	s.FeedKind("if x:\n", NoPrompt)

	data, err := s.MarshalBinary()
	if !assert.NoError(err) {
		return
	}

	restored := New()
	err = restored.UnmarshalBinary(data)
	if !assert.NoError(err) {
		return
	}

	assert.Equal(s.Prompts(), restored.Prompts())
	assert.Equal([]string{"x = 1\n"}, restored.Context())
	assert.Equal([]string{"if x:\n"}, restored.Buffer())

	assert.Equal("if x:\n print(x)\n", restored.FeedKind(" print x\n", ContinuationPrompt))
}

func Test_Session_UnmarshalBinary_truncated(t *testing.T) {
	assert := assert.New(t)

	s := New()
	s.FeedKind("x = 1\n", NoPrompt)
	data, _ := s.MarshalBinary()

	err := New().UnmarshalBinary(data[:len(data)-3])
	assert.Error(err)
}
