// Package printfix finds legacy print statements in a parsed tree and turns
// them into calls to the print function. Changes are expressed as edits to
// the original text, so anything outside a rewritten statement is kept
// exactly as it was.
package printfix

import (
	"strings"

	"github.com/dekarrin/pastprint/internal/pyparse"
	"github.com/dekarrin/pastprint/internal/pytoken"
)

// Edit replaces src[Start:End] with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Edits returns the edits that convert every print statement in tree, in
// source order. src must be the text tree was parsed from.
func Edits(tree pyparse.Tree, src string) []Edit {
	var edits []Edit

	pyparse.Walk(tree, func(t pyparse.Tree) bool {
		switch n := t.(type) {
		case *pyparse.Node:
			if n.Symbol == "print_stmt" {
				if e, ok := fixStatement(n, src); ok {
					edits = append(edits, e)
				}
				return false
			}
		case *pyparse.Leaf:
			if isBarePrint(n) {
				edits = append(edits, Edit{Start: n.Offset, End: n.End(), Text: "print()"})
			}
		}
		return true
	})

	return edits
}

// Apply performs edits on src. The edits must be in source order and must
// not overlap.
func Apply(src string, edits []Edit) string {
	if len(edits) == 0 {
		return src
	}

	var sb strings.Builder
	last := 0
	for _, e := range edits {
		sb.WriteString(src[last:e.Start])
		sb.WriteString(e.Text)
		last = e.End
	}
	sb.WriteString(src[last:])
	return sb.String()
}

// a print statement with no arguments is collapsed into its keyword
func isBarePrint(l *pyparse.Leaf) bool {
	return l.Is(pytoken.Name, "print") && l.Parent() != nil && l.Parent().Symbol == "simple_stmt"
}

func fixStatement(n *pyparse.Node, src string) (Edit, bool) {
	args := n.Children[1:]

	if len(args) == 1 && isParenthesized(args[0]) {
		return Edit{}, false
	}

	trailingComma := false
	if len(args) > 0 && isLeaf(args[len(args)-1], pytoken.Op, ",") {
		args = args[:len(args)-1]
		trailingComma = true
	}

	var file string
	if len(args) > 1 && isLeaf(args[0], pytoken.Op, ">>") {
		file = text(src, args[1])
		if len(args) > 3 {
			args = args[3:]
		} else {
			args = nil
		}
	}

	var parts []string
	if len(args) > 0 {
		start, _ := pyparse.Span(args[0])
		_, end := pyparse.Span(args[len(args)-1])
		parts = append(parts, src[start:end])
	}
	if file != "" {
		parts = append(parts, "file="+file)
	}
	if trailingComma {
		parts = append(parts, "end=' '")
	}

	start, end := pyparse.Span(n)
	return Edit{
		Start: start,
		End:   end,
		Text:  "print(" + strings.Join(parts, ", ") + ")",
	}, true
}

// isParenthesized matches a lone parenthesized name, string, or atom, which
// already reads as a call to print.
func isParenthesized(t pyparse.Tree) bool {
	n, ok := t.(*pyparse.Node)
	if !ok || n.Symbol != "atom" {
		return false
	}
	if !isLeaf(n.Children[0], pytoken.Op, "(") || !isLeaf(n.Children[len(n.Children)-1], pytoken.Op, ")") {
		return false
	}

	switch len(n.Children) {
	case 2:
		return true
	case 3:
		switch mid := n.Children[1].(type) {
		case *pyparse.Node:
			return mid.Symbol == "atom"
		case *pyparse.Leaf:
			return mid.Kind == pytoken.String || mid.Kind == pytoken.Name
		}
	}
	return false
}

func isLeaf(t pyparse.Tree, kind pytoken.Kind, value string) bool {
	l, ok := t.(*pyparse.Leaf)
	return ok && l.Is(kind, value)
}

func text(src string, t pyparse.Tree) string {
	start, end := pyparse.Span(t)
	return src[start:end]
}
