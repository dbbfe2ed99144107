package pygrammar

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/ebnf"

	"github.com/dekarrin/pastprint/internal/pytoken"
)

// nfaState is a node of the automaton built for one production. An arc with
// an empty label is an epsilon transition.
type nfaState struct {
	arcs []nfaArc
}

type nfaArc struct {
	label string
	next  *nfaState
}

func (s *nfaState) addArc(next *nfaState, label string) {
	s.arcs = append(s.arcs, nfaArc{label: label, next: next})
}

type dfaState struct {
	nfaSet map[*nfaState]bool
	final  bool
	arcs   map[string]*dfaState
}

func newDFAState(set map[*nfaState]bool, finish *nfaState) *dfaState {
	return &dfaState{nfaSet: set, final: set[finish], arcs: map[string]*dfaState{}}
}

func (s *dfaState) sameAs(o *dfaState) bool {
	if s.final != o.final || len(s.arcs) != len(o.arcs) {
		return false
	}
	for label, next := range s.arcs {
		if o.arcs[label] != next {
			return false
		}
	}
	return true
}

func (s *dfaState) unify(old, repl *dfaState) {
	for label, next := range s.arcs {
		if next == old {
			s.arcs[label] = repl
		}
	}
}

// generator turns an EBNF grammar into parse tables.
type generator struct {
	prods ebnf.Grammar
	dfas  map[string][]*dfaState
	first map[string]map[string]bool

	g     *Grammar
	memo  map[string]int
	order []string
}

// Load reads an EBNF grammar from r and compiles it into parse tables whose
// start symbol is start.
func Load(filename string, r io.Reader, start string) (*Grammar, error) {
	prods, err := ebnf.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}
	if _, ok := prods[start]; !ok {
		return nil, fmt.Errorf("no production for start symbol %q", start)
	}

	gen := &generator{
		prods: prods,
		dfas:  map[string][]*dfaState{},
		first: map[string]map[string]bool{},
		memo:  map[string]int{},
	}

	for name := range prods {
		gen.order = append(gen.order, name)
	}
	sort.Strings(gen.order)

	for _, name := range gen.order {
		a, z, err := gen.makeNFA(prods[name].Expr)
		if err != nil {
			return nil, fmt.Errorf("production %s: %w", name, err)
		}
		dfa := makeDFA(a, z)
		gen.dfas[name] = simplifyDFA(dfa)
	}

	for _, name := range gen.order {
		if _, done := gen.first[name]; !done {
			if err := gen.calcFirst(name); err != nil {
				return nil, err
			}
		}
	}

	return gen.makeGrammar(start), nil
}

func (gen *generator) makeNFA(expr ebnf.Expression) (*nfaState, *nfaState, error) {
	switch x := expr.(type) {
	case nil:
		a, z := &nfaState{}, &nfaState{}
		a.addArc(z, "")
		return a, z, nil
	case ebnf.Alternative:
		aa, zz := &nfaState{}, &nfaState{}
		for _, alt := range x {
			a, z, err := gen.makeNFA(alt)
			if err != nil {
				return nil, nil, err
			}
			aa.addArc(a, "")
			z.addArc(zz, "")
		}
		return aa, zz, nil
	case ebnf.Sequence:
		var first, last *nfaState
		for _, item := range x {
			a, z, err := gen.makeNFA(item)
			if err != nil {
				return nil, nil, err
			}
			if first == nil {
				first = a
			} else {
				last.addArc(a, "")
			}
			last = z
		}
		if first == nil {
			return gen.makeNFA(nil)
		}
		return first, last, nil
	case *ebnf.Group:
		return gen.makeNFA(x.Body)
	case *ebnf.Option:
		a, z, err := gen.makeNFA(x.Body)
		if err != nil {
			return nil, nil, err
		}
		a.addArc(z, "")
		return a, z, nil
	case *ebnf.Repetition:
		a, z, err := gen.makeNFA(x.Body)
		if err != nil {
			return nil, nil, err
		}
		z.addArc(a, "")
		return a, a, nil
	case *ebnf.Name:
		if _, ok := gen.prods[x.String]; !ok {
			if _, ok := tokenClass(x.String); !ok {
				return nil, nil, fmt.Errorf("%s: undefined name %q", x.Pos(), x.String)
			}
		}
		a, z := &nfaState{}, &nfaState{}
		a.addArc(z, x.String)
		return a, z, nil
	case *ebnf.Token:
		if x.String == "" {
			return nil, nil, fmt.Errorf("%s: empty token", x.Pos())
		}
		a, z := &nfaState{}, &nfaState{}
		a.addArc(z, strconv.Quote(x.String))
		return a, z, nil
	default:
		return nil, nil, fmt.Errorf("%s: unsupported expression %T", expr.Pos(), expr)
	}
}

// tokenClass gives the token kind for an uppercase terminal name. Only
// kinds that reach the parser are allowed.
func tokenClass(name string) (pytoken.Kind, bool) {
	k, ok := pytoken.ParseKind(name)
	if !ok {
		return 0, false
	}
	switch k {
	case pytoken.Op, pytoken.Comment, pytoken.NL, pytoken.ErrorToken:
		return 0, false
	}
	return k, true
}

func addClosure(s *nfaState, base map[*nfaState]bool) {
	if base[s] {
		return
	}
	base[s] = true
	for _, arc := range s.arcs {
		if arc.label == "" {
			addClosure(arc.next, base)
		}
	}
}

func sameSet(a, b map[*nfaState]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for s := range a {
		if !b[s] {
			return false
		}
	}
	return true
}

// makeDFA runs subset construction over the NFA from start to finish. The
// first state returned is the start state.
func makeDFA(start, finish *nfaState) []*dfaState {
	startSet := map[*nfaState]bool{}
	addClosure(start, startSet)
	states := []*dfaState{newDFAState(startSet, finish)}

	for i := 0; i < len(states); i++ {
		state := states[i]
		arcs := map[string]map[*nfaState]bool{}
		for nfa := range state.nfaSet {
			for _, arc := range nfa.arcs {
				if arc.label == "" {
					continue
				}
				set, ok := arcs[arc.label]
				if !ok {
					set = map[*nfaState]bool{}
					arcs[arc.label] = set
				}
				addClosure(arc.next, set)
			}
		}

		labels := make([]string, 0, len(arcs))
		for label := range arcs {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		for _, label := range labels {
			set := arcs[label]
			var target *dfaState
			for _, st := range states {
				if sameSet(st.nfaSet, set) {
					target = st
					break
				}
			}
			if target == nil {
				target = newDFAState(set, finish)
				states = append(states, target)
			}
			state.arcs[label] = target
		}
	}
	return states
}

// simplifyDFA merges states that are final in the same way and have
// identical outgoing arcs.
func simplifyDFA(dfa []*dfaState) []*dfaState {
	changes := true
	for changes {
		changes = false
	outer:
		for i := range dfa {
			for j := i + 1; j < len(dfa); j++ {
				if dfa[i].sameAs(dfa[j]) {
					old := dfa[j]
					dfa = append(dfa[:j], dfa[j+1:]...)
					for _, st := range dfa {
						st.unify(old, dfa[i])
					}
					changes = true
					break outer
				}
			}
		}
	}
	return dfa
}

func (gen *generator) calcFirst(name string) error {
	dfa := gen.dfas[name]
	gen.first[name] = nil

	total := map[string]bool{}
	overlap := map[string]map[string]bool{}
	for label := range dfa[0].arcs {
		if _, isRule := gen.dfas[label]; isRule {
			fset, done := gen.first[label]
			if done && fset == nil {
				return fmt.Errorf("left recursion for rule %q", name)
			}
			if !done {
				if err := gen.calcFirst(label); err != nil {
					return err
				}
				fset = gen.first[label]
			}
			for k := range fset {
				total[k] = true
			}
			overlap[label] = fset
		} else {
			total[label] = true
			overlap[label] = map[string]bool{label: true}
		}
	}

	inverse := map[string]string{}
	labels := make([]string, 0, len(overlap))
	for label := range overlap {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		for sym := range overlap[label] {
			if other, ok := inverse[sym]; ok {
				return fmt.Errorf("rule %s is ambiguous; %s is in the first sets of %s as well as %s", name, sym, label, other)
			}
			inverse[sym] = label
		}
	}

	gen.first[name] = total
	return nil
}

func (gen *generator) label(key string) int {
	if idx, ok := gen.memo[key]; ok {
		return idx
	}
	g := gen.g
	idx := len(g.Labels)
	var lb Label

	switch {
	case strings.HasPrefix(key, `"`):
		v, _ := strconv.Unquote(key)
		if isAlpha(v[0]) {
			lb = Label{Kind: pytoken.Name, Value: v}
			g.keywords[v] = idx
		} else {
			lb = Label{Kind: pytoken.Op, Value: v}
			g.operators[v] = idx
		}
	case gen.dfas[key] != nil:
		lb = Label{Symbol: key}
		g.symbols[key] = idx
	default:
		kind, _ := tokenClass(key)
		lb = Label{Kind: kind}
		g.tokens[kind] = idx
	}

	g.Labels = append(g.Labels, lb)
	gen.memo[key] = idx
	return idx
}

func (gen *generator) makeGrammar(start string) *Grammar {
	gen.g = &Grammar{
		Start:     start,
		DFAs:      map[string]*DFA{},
		keywords:  map[string]int{},
		operators: map[string]int{},
		tokens:    map[pytoken.Kind]int{},
		symbols:   map[string]int{},
	}

	for _, name := range gen.order {
		gen.label(name)
	}

	for _, name := range gen.order {
		states := gen.dfas[name]
		index := map[*dfaState]int{}
		for i, st := range states {
			index[st] = i
		}

		dfa := &DFA{Symbol: name, First: map[int]bool{}}
		for _, st := range states {
			labels := make([]string, 0, len(st.arcs))
			for label := range st.arcs {
				labels = append(labels, label)
			}
			sort.Strings(labels)

			conv := State{Final: st.final}
			for _, label := range labels {
				conv.Arcs = append(conv.Arcs, Arc{Label: gen.label(label), Next: index[st.arcs[label]]})
			}
			dfa.States = append(dfa.States, conv)
		}
		for label := range gen.first[name] {
			dfa.First[gen.label(label)] = true
		}
		gen.g.DFAs[name] = dfa
	}

	return gen.g
}

func isAlpha(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}
