package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dekarrin/pastprint/rewrite"
)

// OutcomeKind is the verdict on a piece of interactive input.
type OutcomeKind int

const (
	// Complete means the input is one or more whole statements.
	Complete OutcomeKind = iota

	// NeedsMoreInput means the input is the unfinished start of a statement.
	NeedsMoreInput

	// Invalid means no further input can make the text valid.
	Invalid
)

func (k OutcomeKind) String() string {
	switch k {
	case Complete:
		return "complete"
	case NeedsMoreInput:
		return "needs more input"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of classifying input.
type Outcome struct {
	Kind OutcomeKind

	// Text is what the interpreter should be given. For Complete it is the
	// rewritten input; for Invalid it is the input, possibly with a '?'
	// inserted before the token that made it invalid. It is empty for
	// NeedsMoreInput.
	Text string

	// Err is the reason for NeedsMoreInput and Invalid.
	Err *rewrite.SyntaxError
}

// Classify rewrites text and decides whether it is complete, unfinished, or
// wrong.
func Classify(text string) Outcome {
	out, err := rewrite.Fragment(text, Filename)
	if err == nil {
		return Outcome{Kind: Complete, Text: out}
	}

	var se *rewrite.SyntaxError
	if !errors.As(err, &se) {
		panic(fmt.Sprintf("interp: unexpected rewrite failure: %v", err))
	}

	switch se.Kind() {
	case rewrite.KindToken:
		if se.Incomplete() {
			log.Debug("token error involving eof - need more input")
			return Outcome{Kind: NeedsMoreInput, Err: se}
		}
		log.Infof("unknown token error - interpreter should handle: %s", se)
		return Outcome{Kind: Invalid, Text: text, Err: se}
	case rewrite.KindIndent:
		log.Infof("indentation error - interpreter should handle: %s", se)
		return Outcome{Kind: Invalid, Text: text, Err: se}
	}

	if se.Structural() {
		if strings.HasSuffix(text, "\n\n") {
			log.Infof("unknown parse error - interpreter should handle: %s", se)
			return Outcome{Kind: Invalid, Text: text, Err: se}
		}
		log.Debug("incomplete block - may need more input")
		return Outcome{Kind: NeedsMoreInput, Err: se}
	}

	// print can't be both a statement and a function, so the interpreter has
	// to be made to fail on the token the rewriter failed on:
	// 'var = print' => 'var = ?print'
	log.Infof("parse error - invalidating token %q", se.Source())
	return Outcome{Kind: Invalid, Text: invalidate(text, se.Line(), se.Offset()), Err: se}
}

// invalidate inserts a '?' at byte offset col of the row'th line of text.
func invalidate(text string, row, col int) string {
	lines := strings.Split(text, "\n")
	if row < 1 || row > len(lines) {
		return text
	}
	line := lines[row-1]
	col = min(col, len(line))
	lines[row-1] = line[:col] + "?" + line[col:]
	return strings.Join(lines, "\n")
}
