// Package pytoken splits Python source text into tokens. The token stream,
// positions and failure modes are those of the classic pgen-era tokenizer, which
// is what the rewriting parser and the interactive engine depend on: comments
// and blank lines are reported as NL and COMMENT, INDENT and DEDENT track the
// indentation stack, and input that ends inside an open bracket or string is
// reported with a *TokenError instead of being silently closed.
package pytoken

import "fmt"

// Kind is the class of a token.
type Kind int

const (
	EndMarker Kind = iota
	Name
	Number
	String
	Newline
	Indent
	Dedent
	Op
	Comment
	NL
	ErrorToken
)

func (k Kind) String() string {
	switch k {
	case EndMarker:
		return "ENDMARKER"
	case Name:
		return "NAME"
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Newline:
		return "NEWLINE"
	case Indent:
		return "INDENT"
	case Dedent:
		return "DEDENT"
	case Op:
		return "OP"
	case Comment:
		return "COMMENT"
	case NL:
		return "NL"
	case ErrorToken:
		return "ERRORTOKEN"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind returns the Kind whose String() is s.
func ParseKind(s string) (Kind, bool) {
	for k := EndMarker; k <= ErrorToken; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Pos is a position in source text. Row is 1-based; Col is a 0-based byte
// offset into the row.
type Pos struct {
	Row int
	Col int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

// Token is a single lexeme along with where it was found.
type Token struct {
	Kind  Kind
	Value string
	Start Pos
	End   Pos

	// Line is the physical line (or lines, for strings that span several) the
	// token was found on.
	Line string
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q %s-%s", t.Kind, t.Value, t.Start, t.End)
}

// TokenError is returned when the input ends while a string or a bracketed
// or backslash-continued statement is still open.
type TokenError struct {
	Msg string
	Pos Pos
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

// IndentError is returned when a line dedents to a column that matches no
// enclosing indentation level.
type IndentError struct {
	Pos  Pos
	Line string
}

func (e *IndentError) Error() string {
	return fmt.Sprintf("%s at %s", MsgDedent, e.Pos)
}

// Messages carried by a *TokenError or an *IndentError.
const (
	MsgEOFString    = "EOF in multi-line string"
	MsgEOFStatement = "EOF in multi-line statement"
	MsgDedent       = "unindent does not match any outer indentation level"
)
