package pyparse

import (
	"fmt"

	"github.com/dekarrin/pastprint/internal/pygrammar"
	"github.com/dekarrin/pastprint/internal/pytoken"
)

// ParseError is returned when a token cannot be accepted at the point it
// appears. Pos is the start of the offending token.
type ParseError struct {
	Msg   string
	Kind  pytoken.Kind
	Value string
	Pos   pytoken.Pos
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: type=%s, value=%q, pos=%s", e.Msg, e.Kind, e.Value, e.Pos)
}

// Parser messages.
const (
	MsgBadToken   = "bad token"
	MsgBadInput   = "bad input"
	MsgTooMuch    = "too much input"
	MsgIncomplete = "incomplete input"
)

type stackEntry struct {
	dfa   *pygrammar.DFA
	state int
	node  *Node
}

// Parser is a table-driven LL(1) parser. Tokens are fed to it one at a time
// with AddToken; once AddToken reports completion, Root holds the tree.
type Parser struct {
	g     *pygrammar.Grammar
	stack []stackEntry
	root  Tree
}

// NewParser returns a Parser ready to accept the first token of the start
// symbol of g.
func NewParser(g *pygrammar.Grammar) *Parser {
	return &Parser{
		g: g,
		stack: []stackEntry{{
			dfa:  g.DFAs[g.Start],
			node: &Node{Symbol: g.Start},
		}},
	}
}

// Root returns the finished tree, or nil if parsing is not complete.
func (p *Parser) Root() Tree {
	return p.root
}

// AddToken feeds the next token to the parser. It returns true when the
// token completed the start symbol.
func (p *Parser) AddToken(leaf *Leaf) (bool, error) {
	ilabel, ok := p.g.Classify(leaf.Kind, leaf.Value)
	if !ok {
		return false, p.errorAt(MsgBadToken, leaf)
	}

	for {
		top := &p.stack[len(p.stack)-1]
		state := top.dfa.States[top.state]

		pushed := false
		for _, arc := range state.Arcs {
			lb := p.g.Labels[arc.Label]
			if lb.Terminal() {
				if arc.Label != ilabel {
					continue
				}
				p.shift(leaf, arc.Next)
				for {
					top := p.stack[len(p.stack)-1]
					st := top.dfa.States[top.state]
					if !st.Final || len(st.Arcs) != 0 {
						return false, nil
					}
					p.pop()
					if len(p.stack) == 0 {
						return true, nil
					}
				}
			}

			sub := p.g.DFAs[lb.Symbol]
			if sub.First[ilabel] {
				p.push(sub, arc.Next)
				pushed = true
				break
			}
		}
		if pushed {
			continue
		}

		if !state.Final {
			return false, p.errorAt(MsgBadInput, leaf)
		}
		p.pop()
		if len(p.stack) == 0 {
			return false, p.errorAt(MsgTooMuch, leaf)
		}
	}
}

func (p *Parser) errorAt(msg string, leaf *Leaf) *ParseError {
	return &ParseError{Msg: msg, Kind: leaf.Kind, Value: leaf.Value, Pos: leaf.Start}
}

func (p *Parser) shift(leaf *Leaf, next int) {
	top := &p.stack[len(p.stack)-1]
	top.node.appendChild(leaf)
	top.state = next
}

func (p *Parser) push(dfa *pygrammar.DFA, next int) {
	p.stack[len(p.stack)-1].state = next
	p.stack = append(p.stack, stackEntry{dfa: dfa, node: &Node{Symbol: dfa.Symbol}})
}

func (p *Parser) pop() {
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	var done Tree = top.node
	if len(top.node.Children) == 1 {
		done = top.node.Children[0]
	}

	if len(p.stack) > 0 {
		p.stack[len(p.stack)-1].node.appendChild(done)
	} else {
		done.setParent(nil)
		p.root = done
	}
}
