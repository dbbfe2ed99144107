package pyparse

import (
	"io"
	"strings"

	"github.com/dekarrin/pastprint/internal/pygrammar"
	"github.com/dekarrin/pastprint/internal/pytoken"
)

// Parse tokenizes src and parses it with g. Tokens are produced on demand,
// so a syntax error is reported as a *ParseError if the parser rejects a
// token before the tokenizer runs into trouble further on, and as a
// *pytoken.TokenError or *pytoken.IndentError otherwise.
func Parse(src string, g *pygrammar.Grammar) (Tree, error) {
	starts := lineStarts(src)
	offsetOf := func(pos pytoken.Pos) int {
		if pos.Row-1 >= len(starts) {
			return len(src)
		}
		return starts[pos.Row-1] + pos.Col
	}

	p := NewParser(g)
	tz := pytoken.New(src)
	prevEnd := 0

	for {
		tok, err := tz.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if tok.Kind == pytoken.Comment || tok.Kind == pytoken.NL {
			continue
		}

		start := offsetOf(tok.Start)
		leaf := &Leaf{
			Kind:   tok.Kind,
			Value:  tok.Value,
			Start:  tok.Start,
			Offset: start,
		}

		switch tok.Kind {
		case pytoken.Dedent:
			// zero width; whatever precedes it stays in the next leaf's prefix
			leaf.Value = ""
		default:
			if start >= prevEnd {
				leaf.Prefix = src[prevEnd:start]
			}
			prevEnd = offsetOf(tok.End)
		}

		done, err := p.AddToken(leaf)
		if err != nil {
			return nil, err
		}
		if done {
			return p.Root(), nil
		}
	}

	return nil, &ParseError{Msg: MsgIncomplete, Kind: pytoken.EndMarker, Pos: pytoken.Pos{Row: len(starts) + 1}}
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := strings.IndexByte(src, '\n'); i >= 0; {
		next := starts[len(starts)-1] + i + 1
		if next >= len(src) {
			break
		}
		starts = append(starts, next)
		i = strings.IndexByte(src[next:], '\n')
	}
	return starts
}
