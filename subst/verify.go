// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package subst

import (
	"fmt"
	"strconv"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/constraint"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/prover"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/uexpr"
)

// maxInterpretations bounds the number of symbolic
// interpretations tried for one substitution.
const maxInterpretations = 64

// Verify reports whether s is an equivalence: both
// sides are instantiated with symbolic tables, columns
// and predicates chosen to satisfy the constraints of s,
// translated to U-expressions and handed to p. When a
// PickFrom constraint names more than one source,
// every choice of source must be proven.
//
// A nil p is a Prover with default limits. The
// foreign keys of Reference constraints are added to
// the axioms of p. An error is returned when s cannot
// be instantiated or translated.
func Verify(s *Substitution, p *prover.Prover) (bool, error) {
	if !s.Eligible() {
		return false, ErrIneligible
	}
	if p == nil {
		p = &prover.Prover{}
	}
	iv := newInterpreter(s)
	choices := iv.choices()
	total := 1
	for _, c := range choices {
		total *= len(c.sources)
		if total > maxInterpretations {
			return false, fmt.Errorf("%w: too many interpretations", ErrIneligible)
		}
	}
	pick := make(map[*fragment.Symbol]*fragment.Symbol)
	var verify func(i int) (bool, error)
	verify = func(i int) (bool, error) {
		if i == len(choices) {
			return iv.verify(pick, p)
		}
		for _, src := range choices[i].sources {
			pick[choices[i].rep] = src
			if ok, err := verify(i + 1); !ok || err != nil {
				return ok, err
			}
		}
		return true, nil
	}
	return verify(0)
}

// interpreter assigns symbolic values to
// the symbols of a substitution.
type interpreter struct {
	s    *Substitution
	g0   []*fragment.Symbol
	reps map[*fragment.Symbol]*fragment.Symbol
	ids  map[*fragment.Symbol]int // class index of each representative
}

func newInterpreter(s *Substitution) *interpreter {
	iv := &interpreter{
		s:    s,
		g0:   s.G0.Symbols(),
		reps: make(map[*fragment.Symbol]*fragment.Symbol),
		ids:  make(map[*fragment.Symbol]int),
	}
	next := make(map[fragment.SymbolKind]int)
	for _, sym := range iv.g0 {
		rep, _ := s.C.Source(sym, iv.g0)
		iv.reps[sym] = rep
		if _, ok := iv.ids[rep]; !ok {
			// attribute-like symbols share column names
			k := sym.Kind
			if k.AttrLike() {
				k = fragment.Attrs
			}
			iv.ids[rep] = next[k]
			next[k]++
		}
	}
	return iv
}

type choice struct {
	rep     *fragment.Symbol
	sources []*fragment.Symbol
}

// choices returns, for every class of attribute
// symbols, the sources its columns may be drawn from:
// the sources of the first PickFrom constraint on
// any member of the class.
func (iv *interpreter) choices() []choice {
	var out []choice
	seen := make(map[*fragment.Symbol]bool)
	for _, sym := range iv.g0 {
		rep := iv.reps[sym]
		if !sym.Kind.AttrLike() || seen[rep] {
			continue
		}
		seen[rep] = true
		for _, member := range iv.s.C.Class(rep) {
			srcs := iv.s.C.Sources(member)
			if len(srcs) == 0 {
				continue
			}
			var resolved []*fragment.Symbol
			for _, src := range srcs[0] {
				if g, ok := iv.s.source(src); ok {
					resolved = append(resolved, g)
				}
			}
			if len(resolved) > 0 {
				out = append(out, choice{rep: rep, sources: resolved})
			}
			break
		}
	}
	return out
}

// model builds the symbolic model for one choice
// of PickFrom sources.
func (iv *interpreter) model(pick map[*fragment.Symbol]*fragment.Symbol) (*Model, error) {
	m := NewModel(&plan.Schema{})
	alias := 0
	for _, sym := range iv.g0 {
		if sym.Kind != fragment.Table {
			continue
		}
		m.BindTable(sym, &plan.Node{
			Kind:  fragment.Input,
			Table: "r" + strconv.Itoa(iv.ids[iv.reps[sym]]),
			Alias: "q" + strconv.Itoa(alias),
		})
		alias++
	}
	cols := make(map[*fragment.Symbol]plan.Column)
	var column func(sym *fragment.Symbol, depth int) (plan.Column, error)
	column = func(sym *fragment.Symbol, depth int) (plan.Column, error) {
		rep := iv.reps[sym]
		if c, ok := cols[rep]; ok {
			return c, nil
		}
		if depth > len(iv.g0) {
			return plan.Column{}, fmt.Errorf("%w: circular PickFrom constraints", ErrInvalid)
		}
		c := plan.Column{Table: "?", Name: "c" + strconv.Itoa(iv.ids[rep])}
		if src, ok := pick[rep]; ok {
			if src.Kind == fragment.Table {
				n, _ := m.Table(src)
				c.Table = n.Alias
			} else {
				q, err := column(src, depth+1)
				if err != nil {
					return plan.Column{}, err
				}
				c.Table = q.String()
			}
		}
		cols[rep] = c
		return c, nil
	}
	limit := 0
	var err error
	fragment.Walk(iv.s.G0.Root, func(op, _ *fragment.Op, _ int) bool {
		if op.Kind == fragment.Limit {
			m.limits = append(m.limits, int64(1000+limit))
			limit++
		}
		return true
	})
	for _, sym := range iv.g0 {
		id := strconv.Itoa(iv.ids[iv.reps[sym]])
		switch sym.Kind {
		case fragment.Pred:
			m.BindPred(sym, "p"+id)
		case fragment.Attrs, fragment.GroupKeys:
			var c plan.Column
			c, err = column(sym, 0)
			m.BindAttrs(sym, []plan.Column{c})
		case fragment.AggFuncs:
			var c plan.Column
			c, err = column(sym, 0)
			m.BindAggs(sym, "g"+id, []plan.AggFunc{{As: "k" + id, Func: "f" + id, Args: []plan.Column{c}}})
		}
		if err != nil {
			return nil, err
		}
	}
	// foreign keys hold between the symbolic
	// tables of Reference constraints
	env := binding{m: m, s: iv.s}
	for _, c := range iv.s.C.Of(constraint.Reference) {
		t0, ok0 := env.Table(c.Syms[0])
		a0, ok1 := env.Attrs(c.Syms[1])
		t1, ok2 := env.Table(c.Syms[2])
		a1, ok3 := env.Attrs(c.Syms[3])
		if !ok0 || !ok1 || !ok2 || !ok3 {
			continue
		}
		m.schema.AddForeignKey(t0.Table, []string{a0[0].Name}, t1.Table, []string{a1[0].Name})
	}
	return m, nil
}

func (iv *interpreter) verify(pick map[*fragment.Symbol]*fragment.Symbol, p *prover.Prover) (bool, error) {
	m, err := iv.model(pick)
	if err != nil {
		return false, err
	}
	env := binding{m: m, s: iv.s}
	if !iv.s.C.Eval(env) {
		// the constraints contradict this interpretation
		return false, nil
	}
	bd := &builder{binding: env}
	n0 := bd.build(iv.s.G0.Root)
	bd.limits = 0
	n1 := bd.build(iv.s.G1.Root)
	if bd.err != nil {
		return false, bd.err
	}
	out := uexpr.Var("t")
	e0, err := plan.Translate(n0, out)
	if err != nil {
		return false, err
	}
	e1, err := plan.Translate(n1, out)
	if err != nil {
		return false, err
	}
	pr := *p
	pr.References = append(append([]prover.Reference(nil), p.References...), m.schema.Axioms()...)
	return pr.Equivalent(e0, e1, []*uexpr.Tuple{out}), nil
}
