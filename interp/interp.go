// Package interp rewrites interactive input one line at a time.
//
// A Session keeps two lists of lines: the context, which holds the complete
// statements already accepted since the interpreter last showed its primary
// prompt, and the buffer, which holds the lines of the statement being typed.
// Every new line is appended to the buffer and the whole of context and
// buffer is run through the rewriter, separated by a marker comment. The
// result decides what the interpreter receives:
//
//   - if the statement is complete, the rewritten buffer part, after which
//     the buffer joins the context;
//   - if the statement could still be completed, a lone comment line, and
//     the buffer is kept for the next line;
//   - if the statement is wrong, the buffer part either unchanged or with a
//     '?' inserted before the offending token so the interpreter rejects it
//     too.
package interp

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
)

const (
	// Marker separates context from buffer in the text given to the
	// rewriter.
	Marker = "### ^^^ context | vvv buffer ###\n"

	// Placeholder is returned while more input is needed. It is a comment,
	// so the interpreter just asks for the next line.
	Placeholder = "#\n"

	// Filename is the name syntax errors report for interactive input.
	Filename = "<stdin>"
)

var log = commonlog.GetLogger("pastprint.interp")

// Prompts are the strings the interpreter shows when it wants input.
type Prompts struct {
	Primary      string
	Continuation string
}

// DefaultPrompts are the interpreter's standard prompts.
var DefaultPrompts = Prompts{Primary: ">>> ", Continuation: "... "}

// PromptKind is what a prompt says about the state of the interpreter.
type PromptKind int

const (
	// NoPrompt means the kind of prompt is not known. The session state is
	// trusted as it is.
	NoPrompt PromptKind = iota

	// PrimaryPrompt means the interpreter is waiting for a new statement.
	PrimaryPrompt

	// ContinuationPrompt means the interpreter is waiting for more of the
	// current statement.
	ContinuationPrompt
)

func (pk PromptKind) String() string {
	switch pk {
	case NoPrompt:
		return "none"
	case PrimaryPrompt:
		return "primary"
	case ContinuationPrompt:
		return "continuation"
	default:
		return fmt.Sprintf("PromptKind(%d)", int(pk))
	}
}

// Option configures a Session.
type Option func(*Session)

// WithPrompts sets the prompts that Feed recognizes.
func WithPrompts(p Prompts) Option {
	return func(s *Session) {
		s.prompts = p
	}
}

// Session is the state of one interactive rewriting session. It is not safe
// for concurrent use.
type Session struct {
	prompts Prompts
	context []string
	buffer  []string
}

// New returns a Session with no context and an empty buffer.
func New(opts ...Option) *Session {
	s := &Session{prompts: DefaultPrompts}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Prompts returns the prompts the session recognizes.
func (s *Session) Prompts() Prompts {
	return s.prompts
}

// Feed processes a line read by the interpreter with the given prompt and
// returns the line the interpreter should receive instead. An empty prompt
// means the prompt is not known, as with NoPrompt. Lines read with any other
// prompt than the two the session knows are returned unchanged.
func (s *Session) Feed(line, prompt string) string {
	switch prompt {
	case "":
		return s.FeedKind(line, NoPrompt)
	case s.prompts.Primary:
		return s.FeedKind(line, PrimaryPrompt)
	case s.prompts.Continuation:
		return s.FeedKind(line, ContinuationPrompt)
	default:
		return line
	}
}

// FeedKind processes a line read with a prompt of the given kind and returns
// the line the interpreter should receive instead.
//
// line must be empty, which means end of input, or end with a newline. Any
// other value panics. End of input in the middle of a statement gets
// Placeholder like any other unfinished line and the statement stays in the
// buffer; callers that stop reading should Discard it.
func (s *Session) FeedKind(line string, kind PromptKind) string {
	if kind == PrimaryPrompt {
		s.Reset()
	}
	if line != "" && !strings.HasSuffix(line, "\n") {
		panic(fmt.Sprintf("interp: line does not end with a newline: %q", line))
	}

	s.buffer = append(s.buffer, line)

	text := strings.Join(s.context, "") + Marker + strings.Join(s.buffer, "")
	outcome := Classify(text)
	if outcome.Kind == NeedsMoreInput {
		if line == "" {
			log.Debug("end of input with an unfinished statement")
		}
		return Placeholder
	}

	_, part, found := strings.Cut(outcome.Text, Marker)
	if !found {
		// the marker is a comment and no rewrite touches comments
		panic("interp: marker missing from rewritten text")
	}

	s.context = append(s.context, s.buffer...)
	s.buffer = nil
	return part
}

// Reset clears the context. It must not be called while a statement is in
// the buffer; doing so panics.
func (s *Session) Reset() {
	if len(s.buffer) != 0 {
		panic("interp: reset with a statement still pending")
	}
	s.context = nil
}

// Discard drops the statement in the buffer, as when the user interrupts
// typing it.
func (s *Session) Discard() {
	s.buffer = nil
}

// Pending returns whether a statement is waiting for more lines.
func (s *Session) Pending() bool {
	return len(s.buffer) != 0
}

// Context returns a copy of the accepted lines.
func (s *Session) Context() []string {
	return append([]string(nil), s.context...)
}

// Buffer returns a copy of the lines of the statement being typed.
func (s *Session) Buffer() []string {
	return append([]string(nil), s.buffer...)
}
