package rewrite

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dekarrin/pastprint/internal/pyparse"
	"github.com/dekarrin/pastprint/internal/pytoken"
)

// ErrorKind tells which stage rejected the source.
type ErrorKind int

const (
	// KindParse is a token the grammar does not allow where it appears.
	KindParse ErrorKind = iota

	// KindToken is input that ends inside a string, bracket, or backslash
	// continuation.
	KindToken

	// KindIndent is a dedent that matches no enclosing block.
	KindIndent
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindToken:
		return "token"
	case KindIndent:
		return "indent"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// MsgInvalidSyntax is the message of every parse failure.
const MsgInvalidSyntax = "invalid syntax"

// SyntaxError is returned when source cannot be rewritten because it is not
// valid for the grammar.
type SyntaxError struct {
	filename   string
	sourceLine string
	source     string

	// line that error occured on, 1-indexed.
	line int

	// position in line of error in characters, 1-indexed.
	pos int

	// byte offset of the offending token in its line, 0-indexed.
	offset int

	message    string
	kind       ErrorKind
	incomplete bool
	structural bool
}

func (se SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", se.filename, se.line, se.pos, se.message)
}

// Filename returns the name of the file the source came from.
func (se SyntaxError) Filename() string {
	return se.filename
}

// Line returns the line the error occured on. Lines are 1-indexed.
func (se SyntaxError) Line() int {
	return se.line
}

// Position returns the character position in the line that the error occured
// on. Character positions are 1-indexed.
func (se SyntaxError) Position() int {
	return se.pos
}

// Offset returns the byte offset within its line of the token that caused the
// error. Offsets are 0-indexed.
func (se SyntaxError) Offset() int {
	return se.offset
}

// Message returns the description of the problem without any position.
func (se SyntaxError) Message() string {
	return se.message
}

// Source returns the exact text of the token that caused the issue. For
// failures at a dedent or the end of input, this is an empty
// string.
func (se SyntaxError) Source() string {
	return se.source
}

// SourceLine returns the full text of the line the error occured on, without
// its line terminator.
func (se SyntaxError) SourceLine() string {
	return se.sourceLine
}

// Kind returns which stage rejected the source.
func (se SyntaxError) Kind() ErrorKind {
	return se.kind
}

// Incomplete returns whether the source ended inside a multi-line string or
// statement, meaning more text could still make it valid.
func (se SyntaxError) Incomplete() bool {
	return se.incomplete
}

// Structural returns whether the parser failed on a token that has no text
// of its own: a dedent or the end of input.
func (se SyntaxError) Structural() bool {
	return se.structural
}

// FullMessage shows the complete message of the error string along with the
// offending line and a cursor to the problem position in a formatted way.
func (se SyntaxError) FullMessage() string {
	errMsg := se.Error()

	if cursor := se.SourceLineWithCursor(); cursor != "" {
		errMsg = cursor + "\n" + errMsg
	}

	return errMsg
}

// SourceLineWithCursor returns the source offending code on one line and
// directly under it a cursor showing where the error occured.
//
// Returns a blank string if the error has no source line.
func (se SyntaxError) SourceLineWithCursor() string {
	if se.sourceLine == "" {
		return ""
	}

	return se.sourceLine + "\n" + strings.Repeat(" ", max(se.pos-1, 0)) + "^"
}

// Traceback renders the error the way the Python interpreter reports a
// syntax error in a file.
func (se SyntaxError) Traceback() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  File \"%s\", line %d\n", se.filename, se.line))
	if strings.TrimSpace(se.sourceLine) != "" {
		trimmed := strings.TrimLeft(se.sourceLine, " \t\f")
		cut := len(se.sourceLine) - len(trimmed)
		caret := max(se.pos-1-utf8.RuneCountInString(se.sourceLine[:cut]), 0)
		sb.WriteString("    " + strings.TrimRight(trimmed, "\r") + "\n")
		sb.WriteString("    " + strings.Repeat(" ", caret) + "^\n")
	}
	sb.WriteString("SyntaxError: " + se.message)
	return sb.String()
}

// newSyntaxError converts a failure from the tokenizer or parser into a
// *SyntaxError located in text. Other errors are returned unchanged.
func newSyntaxError(err error, filename, text string) error {
	var (
		tokErr    *pytoken.TokenError
		indentErr *pytoken.IndentError
		parseErr  *pyparse.ParseError
		at        pytoken.Pos
	)

	se := &SyntaxError{filename: filename}

	switch {
	case errors.As(err, &tokErr):
		se.kind = KindToken
		se.message = tokErr.Msg
		se.incomplete = strings.HasPrefix(tokErr.Msg, "EOF in multi-line ")
		at = tokErr.Pos
	case errors.As(err, &indentErr):
		se.kind = KindIndent
		se.message = pytoken.MsgDedent
		at = indentErr.Pos
	case errors.As(err, &parseErr):
		se.kind = KindParse
		se.message = MsgInvalidSyntax
		se.source = parseErr.Value
		se.structural = parseErr.Value == ""
		at = parseErr.Pos
	default:
		return err
	}

	se.line = at.Row
	se.offset = at.Col
	se.sourceLine = lineOf(text, at.Row)

	col := min(at.Col, len(se.sourceLine))
	se.pos = utf8.RuneCountInString(se.sourceLine[:col]) + 1

	return se
}

// lineOf returns the row'th line of text (1-indexed), or "" if there is no
// such line.
func lineOf(text string, row int) string {
	lines := strings.Split(text, "\n")
	if row < 1 || row > len(lines) {
		return ""
	}
	return lines[row-1]
}
