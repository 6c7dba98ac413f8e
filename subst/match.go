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

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"

	"golang.org/x/exp/slices"
)

// Model binds the symbols of a fragment to parts of
// a concrete plan. Models are layered: a model made
// with Derive sees the bindings of its parent, and
// the bindings added to it do not affect the parent.
type Model struct {
	up     *Model
	schema *plan.Schema
	tables map[*fragment.Symbol]*plan.Node
	attrs  map[*fragment.Symbol][]plan.Column
	aggs   map[*fragment.Symbol]aggBinding
	preds  map[*fragment.Symbol]string
	// limits holds the counts of the Limit
	// operators matched so far, in pre-order
	limits []int64
}

type aggBinding struct {
	alias string
	funcs []plan.AggFunc
}

// NewModel returns an empty model whose
// constraints are checked against schema.
func NewModel(schema *plan.Schema) *Model {
	if schema == nil {
		schema = &plan.Schema{}
	}
	return &Model{schema: schema}
}

// Derive returns a new layer on top of m.
func (m *Model) Derive() *Model {
	return &Model{up: m, schema: m.schema, limits: slices.Clone(m.limits)}
}

// Table returns the subtree bound to s.
func (m *Model) Table(s *fragment.Symbol) (*plan.Node, bool) {
	for ; m != nil; m = m.up {
		if n, ok := m.tables[s]; ok {
			return n, true
		}
	}
	return nil, false
}

// Attrs returns the columns bound to s.
func (m *Model) Attrs(s *fragment.Symbol) ([]plan.Column, bool) {
	for ; m != nil; m = m.up {
		if c, ok := m.attrs[s]; ok {
			return c, true
		}
	}
	return nil, false
}

func (m *Model) agg(s *fragment.Symbol) (aggBinding, bool) {
	for ; m != nil; m = m.up {
		if a, ok := m.aggs[s]; ok {
			return a, true
		}
	}
	return aggBinding{}, false
}

// Aggs returns the aggregates bound to s.
func (m *Model) Aggs(s *fragment.Symbol) ([]plan.AggFunc, bool) {
	a, ok := m.agg(s)
	return a.funcs, ok
}

// Pred returns the predicate bound to s.
func (m *Model) Pred(s *fragment.Symbol) (string, bool) {
	for ; m != nil; m = m.up {
		if p, ok := m.preds[s]; ok {
			return p, true
		}
	}
	return "", false
}

// Schema returns the schema of the model.
func (m *Model) Schema() *plan.Schema { return m.schema }

// Limits returns the counts of the Limit
// operators bound so far, in pre-order.
func (m *Model) Limits() []int64 { return m.limits }

// BindTable binds s to n. It reports false if s is
// already bound to a different subtree.
func (m *Model) BindTable(s *fragment.Symbol, n *plan.Node) bool {
	if old, ok := m.Table(s); ok {
		return plan.Equal(old, n)
	}
	if m.tables == nil {
		m.tables = make(map[*fragment.Symbol]*plan.Node)
	}
	m.tables[s] = n
	return true
}

// BindAttrs binds s to cols. It reports false if s
// is already bound to different columns.
func (m *Model) BindAttrs(s *fragment.Symbol, cols []plan.Column) bool {
	if old, ok := m.Attrs(s); ok {
		return slices.Equal(old, cols)
	}
	if m.attrs == nil {
		m.attrs = make(map[*fragment.Symbol][]plan.Column)
	}
	m.attrs[s] = cols
	return true
}

// BindAggs binds s to the aggregates of an
// aggregation with the given alias.
func (m *Model) BindAggs(s *fragment.Symbol, alias string, funcs []plan.AggFunc) bool {
	if old, ok := m.agg(s); ok {
		return old.alias == alias && slices.EqualFunc(old.funcs, funcs, func(x, y plan.AggFunc) bool {
			return x.As == y.As && x.Func == y.Func && slices.Equal(x.Args, y.Args)
		})
	}
	if m.aggs == nil {
		m.aggs = make(map[*fragment.Symbol]aggBinding)
	}
	m.aggs[s] = aggBinding{alias: alias, funcs: funcs}
	return true
}

// BindPred binds s to the predicate p. It reports
// false if s is already bound to another predicate.
func (m *Model) BindPred(s *fragment.Symbol, p string) bool {
	if old, ok := m.Pred(s); ok {
		return old == p
	}
	if m.preds == nil {
		m.preds = make(map[*fragment.Symbol]string)
	}
	m.preds[s] = p
	return true
}

// match binds the symbols of op against n,
// reporting false on the first mismatch.
func (m *Model) match(op *fragment.Op, n *plan.Node) bool {
	if op.Kind == fragment.Input {
		// an input of a fragment stands for any subtree
		return m.BindTable(op.Table(), n)
	}
	if op.Kind != n.Kind || len(op.Inputs) != len(n.Inputs) {
		return false
	}
	ok := true
	switch op.Kind {
	case fragment.InnerJoin, fragment.LeftJoin:
		l, r := op.Keys()
		ok = m.BindAttrs(l, n.LeftKeys) && m.BindAttrs(r, n.RightKeys)
	case fragment.Filter:
		ok = m.BindPred(op.Pred(), n.Pred) && m.BindAttrs(op.Attrs(), n.Attrs)
	case fragment.Proj:
		ok = op.Dedup == n.Dedup && m.BindAttrs(op.Attrs(), n.Attrs)
	case fragment.InSubFilter, fragment.Sort:
		ok = m.BindAttrs(op.Attrs(), n.Attrs)
	case fragment.Agg:
		ok = m.BindAttrs(op.Syms[0], n.GroupBy) && m.BindAggs(op.Syms[1], n.Alias, n.Aggs)
	case fragment.Limit:
		m.limits = append(m.limits, n.Count)
	}
	if !ok {
		return false
	}
	for i := range op.Inputs {
		if !m.match(op.Inputs[i], n.Inputs[i]) {
			return false
		}
	}
	return true
}

// binding resolves the symbols of both sides of
// a substitution through a model of its G0.
type binding struct {
	m *Model
	s *Substitution
}

func (b binding) Table(sym *fragment.Symbol) (*plan.Node, bool) {
	if src, ok := b.s.source(sym); ok {
		return b.m.Table(src)
	}
	return nil, false
}

func (b binding) Attrs(sym *fragment.Symbol) ([]plan.Column, bool) {
	if src, ok := b.s.source(sym); ok {
		return b.m.Attrs(src)
	}
	return nil, false
}

func (b binding) Aggs(sym *fragment.Symbol) ([]plan.AggFunc, bool) {
	if src, ok := b.s.source(sym); ok {
		return b.m.Aggs(src)
	}
	return nil, false
}

func (b binding) Pred(sym *fragment.Symbol) (string, bool) {
	if src, ok := b.s.source(sym); ok {
		return b.m.Pred(src)
	}
	return "", false
}

func (b binding) Schema() *plan.Schema { return b.m.Schema() }

// builder instantiates fragments through a binding,
// keeping the first error it runs into.
type builder struct {
	binding
	limits int
	err    error
}

func (bd *builder) fail(sym *fragment.Symbol) {
	if bd.err == nil {
		bd.err = fmt.Errorf("%w: unbound symbol %s", ErrIneligible, bd.s.Name(sym))
	}
}

func (bd *builder) attrs(sym *fragment.Symbol) []plan.Column {
	cols, ok := bd.Attrs(sym)
	if !ok {
		bd.fail(sym)
	}
	return cols
}

func (bd *builder) build(op *fragment.Op) *plan.Node {
	if bd.err != nil {
		return nil
	}
	if op.Kind == fragment.Input {
		n, ok := bd.Table(op.Table())
		if !ok {
			bd.fail(op.Table())
		}
		return n
	}
	n := &plan.Node{Kind: op.Kind, Dedup: op.Dedup}
	switch op.Kind {
	case fragment.InnerJoin, fragment.LeftJoin:
		l, r := op.Keys()
		n.LeftKeys, n.RightKeys = bd.attrs(l), bd.attrs(r)
	case fragment.Filter:
		p, ok := bd.Pred(op.Pred())
		if !ok {
			bd.fail(op.Pred())
		}
		n.Pred = p
		n.Attrs = bd.attrs(op.Attrs())
	case fragment.InSubFilter, fragment.Proj, fragment.Sort:
		n.Attrs = bd.attrs(op.Attrs())
	case fragment.Agg:
		n.GroupBy = bd.attrs(op.Syms[0])
		var a aggBinding
		src, ok := bd.s.source(op.Syms[1])
		if ok {
			a, ok = bd.m.agg(src)
		}
		if !ok {
			bd.fail(op.Syms[1])
		}
		n.Alias, n.Aggs = a.alias, a.funcs
	case fragment.Limit:
		if bd.limits >= len(bd.m.limits) {
			if bd.err == nil {
				bd.err = fmt.Errorf("%w: no count for limit %d", ErrIneligible, bd.limits)
			}
			return nil
		}
		n.Count = bd.m.limits[bd.limits]
		bd.limits++
	}
	for _, in := range op.Inputs {
		n.Inputs = append(n.Inputs, bd.build(in))
	}
	return n
}

// Match is a position in a plan at which
// the G0 of a substitution matches.
type Match struct {
	// Path leads from the root of the plan
	// to the matched node (see plan.At).
	Path  []int
	Model *Model
}

// MatchAt matches the G0 of s against n and
// checks the constraints of s. It returns the
// bindings of the symbols of G0 on success.
func MatchAt(s *Substitution, n *plan.Node, schema *plan.Schema) (*Model, bool) {
	m := NewModel(schema)
	if !m.match(s.G0.Root, n) {
		return nil, false
	}
	if !s.C.Eval(binding{m: m, s: s}) {
		return nil, false
	}
	return m, true
}

// Find returns every position in the plan rooted
// at root where s applies, in pre-order.
func Find(s *Substitution, root *plan.Node, schema *plan.Schema) []Match {
	var out []Match
	plan.Walk(root, func(n *plan.Node, path []int) bool {
		if s.G0.Root.Kind != fragment.Input && n.Kind != s.G0.Root.Kind {
			return true
		}
		if m, ok := MatchAt(s, n, schema); ok {
			out = append(out, Match{Path: slices.Clone(path), Model: m})
		}
		return true
	})
	return out
}

// Instantiate builds the G1 of s from the
// bindings of a match of its G0.
func Instantiate(s *Substitution, m *Model) (*plan.Node, error) {
	bd := &builder{binding: binding{m: m, s: s}}
	n := bd.build(s.G1.Root)
	if bd.err != nil {
		return nil, bd.err
	}
	return n, nil
}

// Apply returns a copy of root in which the
// matched subtree is replaced by the
// instantiation of G1.
func Apply(s *Substitution, root *plan.Node, m Match) (*plan.Node, error) {
	n, err := Instantiate(s, m.Model)
	if err != nil {
		return nil, err
	}
	return plan.Replace(root, m.Path, n), nil
}
