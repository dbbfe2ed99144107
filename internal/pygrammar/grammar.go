// Package pygrammar holds the Python grammar used by the rewriter and the
// table-driven automata compiled from it.
//
// The grammar is written in EBNF (grammar.ebnf) and compiled once, on first
// use, in the same way the classic pgen parser generator does it: each
// production becomes an NFA, the NFA is turned into a DFA by subset
// construction, equivalent DFA states are merged, and the FIRST set of every
// production is computed and checked for LL(1) conflicts.
package pygrammar

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/dekarrin/pastprint/internal/pytoken"
)

//go:embed grammar.ebnf
var Text string

// StartSymbol is the production whole files and interactive fragments are
// parsed as.
const StartSymbol = "file_input"

// Label is a grammar symbol that can appear on a DFA arc. Exactly one of
// Symbol (a production name) or Kind is meaningful; for keywords and
// operators Value holds the exact text.
type Label struct {
	Symbol string
	Kind   pytoken.Kind
	Value  string
}

// Terminal returns whether the label matches a token rather than a
// production.
func (lb Label) Terminal() bool {
	return lb.Symbol == ""
}

func (lb Label) String() string {
	if lb.Symbol != "" {
		return lb.Symbol
	}
	if lb.Value != "" {
		return fmt.Sprintf("%q", lb.Value)
	}
	return lb.Kind.String()
}

// Arc is a transition on the label at index Label to the state at index
// Next of the same DFA.
type Arc struct {
	Label int
	Next  int
}

// State is a single DFA state.
type State struct {
	Arcs  []Arc
	Final bool
}

// DFA is the automaton for one production. States[0] is the start state.
type DFA struct {
	Symbol string
	States []State

	// First holds the indexes of the terminal labels that can begin the
	// production.
	First map[int]bool
}

// Grammar is a compiled set of productions.
type Grammar struct {
	Start  string
	DFAs   map[string]*DFA
	Labels []Label

	keywords  map[string]int
	operators map[string]int
	tokens    map[pytoken.Kind]int
	symbols   map[string]int
}

// Classify returns the label index for a token, or false if the grammar has
// no use for it. NAME tokens whose text is a keyword of the grammar are
// classified as that keyword.
func (g *Grammar) Classify(kind pytoken.Kind, value string) (int, bool) {
	if kind == pytoken.Name {
		if idx, ok := g.keywords[value]; ok {
			return idx, true
		}
	}
	if kind == pytoken.Op {
		idx, ok := g.operators[value]
		return idx, ok
	}
	idx, ok := g.tokens[kind]
	return idx, ok
}

// SymbolLabel returns the label index of the named production.
func (g *Grammar) SymbolLabel(name string) (int, bool) {
	idx, ok := g.symbols[name]
	return idx, ok
}

// IsKeyword returns whether word is reserved by the grammar.
func (g *Grammar) IsKeyword(word string) bool {
	_, ok := g.keywords[word]
	return ok
}

// WithoutKeyword returns a copy of g in which kw is an ordinary name. The
// automata are shared with g.
func (g *Grammar) WithoutKeyword(kw string) *Grammar {
	cp := *g
	cp.keywords = make(map[string]int, len(g.keywords))
	for k, v := range g.keywords {
		if k != kw {
			cp.keywords[k] = v
		}
	}
	return &cp
}

var (
	loadOnce     sync.Once
	withPrint    *Grammar
	withoutPrint *Grammar
	loadErr      error
)

func load() {
	loadOnce.Do(func() {
		withPrint, loadErr = Load("grammar.ebnf", strings.NewReader(Text), StartSymbol)
		if loadErr != nil {
			return
		}
		withoutPrint = withPrint.WithoutKeyword("print")
	})
}

// Python returns the grammar in which print is a statement keyword.
func Python() *Grammar {
	load()
	if loadErr != nil {
		panic(fmt.Sprintf("built-in grammar does not compile: %v", loadErr))
	}
	return withPrint
}

// PythonNoPrint returns the grammar used for source that imports
// print_function from __future__, in which print is an ordinary name.
func PythonNoPrint() *Grammar {
	load()
	if loadErr != nil {
		panic(fmt.Sprintf("built-in grammar does not compile: %v", loadErr))
	}
	return withoutPrint
}
