// Package pyparse builds a concrete syntax tree for Python source using the
// automata in pygrammar. The tree keeps every byte of the input: each leaf
// carries the whitespace and comments that came before it as its prefix, so
// the concatenation of all prefixes and values is exactly the parsed text.
package pyparse

import (
	"fmt"
	"strings"

	"github.com/dekarrin/pastprint/internal/pytoken"
)

// Tree is either a *Node or a *Leaf.
type Tree interface {
	// Parent returns the node that contains this one, or nil for the root.
	Parent() *Node

	// String gives the source text of the tree, prefixes included.
	String() string

	// FirstLeaf returns the leftmost leaf.
	FirstLeaf() *Leaf

	// LastLeaf returns the rightmost leaf.
	LastLeaf() *Leaf

	setParent(n *Node)
	leveledStr(sb *strings.Builder, firstPrefix, contPrefix string)
}

// Node is an interior node for a production that matched more than one
// child. Productions that matched exactly one child are collapsed into that
// child.
type Node struct {
	Symbol   string
	Children []Tree

	parent *Node
}

// Leaf is a single token.
type Leaf struct {
	Kind  pytoken.Kind
	Value string

	// Prefix is the text between the previous leaf and this one.
	Prefix string

	// Start is where Value begins.
	Start pytoken.Pos

	// Offset is the byte offset of Value in the parsed text.
	Offset int

	parent *Node
}

func (n *Node) Parent() *Node { return n.parent }
func (l *Leaf) Parent() *Node { return l.parent }

func (n *Node) setParent(p *Node) { n.parent = p }
func (l *Leaf) setParent(p *Node) { l.parent = p }

func (n *Node) appendChild(c Tree) {
	c.setParent(n)
	n.Children = append(n.Children, c)
}

func (n *Node) String() string {
	var sb strings.Builder
	for _, c := range n.Children {
		sb.WriteString(c.String())
	}
	return sb.String()
}

func (l *Leaf) String() string {
	return l.Prefix + l.Value
}

func (n *Node) FirstLeaf() *Leaf {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0].FirstLeaf()
}

func (n *Node) LastLeaf() *Leaf {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1].LastLeaf()
}

func (l *Leaf) FirstLeaf() *Leaf { return l }
func (l *Leaf) LastLeaf() *Leaf  { return l }

// End is the byte offset just past Value.
func (l *Leaf) End() int {
	return l.Offset + len(l.Value)
}

// Is returns whether the leaf is a token of the given kind with the given
// text.
func (l *Leaf) Is(kind pytoken.Kind, value string) bool {
	return l.Kind == kind && l.Value == value
}

// Span returns the byte offsets of the text covered by t, excluding the
// prefix of its first leaf.
func Span(t Tree) (start, end int) {
	return t.FirstLeaf().Offset, t.LastLeaf().End()
}

// Walk calls fn for t and every tree below it in pre-order. If fn returns
// false the children of that tree are skipped.
func Walk(t Tree, fn func(Tree) bool) {
	if !fn(t) {
		return
	}
	if n, ok := t.(*Node); ok {
		for _, c := range n.Children {
			Walk(c, fn)
		}
	}
}

// Dump gives a readable multi-line rendering of the tree structure.
func Dump(t Tree) string {
	var sb strings.Builder
	t.leveledStr(&sb, "", "")
	return sb.String()
}

func (n *Node) leveledStr(sb *strings.Builder, firstPrefix, contPrefix string) {
	sb.WriteString(firstPrefix)
	sb.WriteString("( ")
	sb.WriteString(n.Symbol)
	sb.WriteString(" )")

	for i, c := range n.Children {
		sb.WriteRune('\n')
		var leveledFirst, leveledCont string
		if i+1 < len(n.Children) {
			leveledFirst = contPrefix + "  |---: "
			leveledCont = contPrefix + "  |     "
		} else {
			leveledFirst = contPrefix + `  \---: `
			leveledCont = contPrefix + "        "
		}
		c.leveledStr(sb, leveledFirst, leveledCont)
	}
}

func (l *Leaf) leveledStr(sb *strings.Builder, firstPrefix, contPrefix string) {
	sb.WriteString(firstPrefix)
	sb.WriteString(fmt.Sprintf("(TERM %s %q)", l.Kind, l.Value))
}
