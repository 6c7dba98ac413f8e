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

// Package plan implements concrete query plans:
// trees of relational operators over named tables
// and columns, along with their translation into
// U-expressions.
package plan

import (
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"

	"golang.org/x/exp/slices"
)

// Kind is the operator kind of a Node.
// Plans and fragments share the same set of kinds.
type Kind = fragment.Kind

// Column is a reference to a column through
// the alias (or derived column) that qualifies it.
type Column struct {
	Table string
	Name  string
}

// String returns "table.name".
func (c Column) String() string { return c.Table + "." + c.Name }

// ParseColumn splits "table.name" at its last dot.
func ParseColumn(s string) (Column, bool) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Column{}, false
	}
	return Column{Table: s[:i], Name: s[i+1:]}, true
}

// AggFunc is one aggregate computed by an Agg node.
// Its result is visible as the column As of the
// aggregation's alias.
type AggFunc struct {
	As   string
	Func string
	Args []Column
}

func (a *AggFunc) equal(b *AggFunc) bool {
	return a.As == b.As && a.Func == b.Func && slices.Equal(a.Args, b.Args)
}

// Node is one operator of a plan. Which fields are
// meaningful depends on Kind:
//
//	Input        Table, Alias
//	InnerJoin    LeftKeys, RightKeys (equi-join)
//	LeftJoin     LeftKeys, RightKeys
//	Filter       Pred applied to Attrs
//	InSubFilter  Attrs of Inputs[0] IN the output of Inputs[1]
//	Proj         Attrs, Dedup
//	Agg          Alias, GroupBy, Aggs
//	Sort         Attrs
//	Limit        Count
//	Union        (bag union of both inputs)
//
// Nodes are never modified once they are part
// of a plan; rewrites build new nodes.
type Node struct {
	Kind Kind

	Table string
	Alias string

	LeftKeys  []Column
	RightKeys []Column

	Pred  string
	Attrs []Column
	Dedup bool

	GroupBy []Column
	Aggs    []AggFunc

	Count int64

	Inputs []*Node
}

// Equal reports whether two plans are structurally equal.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Kind == b.Kind &&
		a.Table == b.Table &&
		a.Alias == b.Alias &&
		slices.Equal(a.LeftKeys, b.LeftKeys) &&
		slices.Equal(a.RightKeys, b.RightKeys) &&
		a.Pred == b.Pred &&
		slices.Equal(a.Attrs, b.Attrs) &&
		a.Dedup == b.Dedup &&
		slices.Equal(a.GroupBy, b.GroupBy) &&
		slices.EqualFunc(a.Aggs, b.Aggs, func(x, y AggFunc) bool { return x.equal(&y) }) &&
		a.Count == b.Count &&
		slices.EqualFunc(a.Inputs, b.Inputs, Equal)
}

// Size returns the number of nodes in the plan.
func (n *Node) Size() int {
	s := 1
	for _, in := range n.Inputs {
		s += in.Size()
	}
	return s
}

// Walk visits the plan rooted at n in pre-order,
// passing each node along with its path (the input
// indices leading to it from n). The path must not
// be retained. Returning false skips the node's inputs.
func Walk(n *Node, fn func(n *Node, path []int) bool) {
	walk(n, nil, fn)
}

func walk(n *Node, path []int, fn func(*Node, []int) bool) {
	if !fn(n, path) {
		return
	}
	for i, in := range n.Inputs {
		walk(in, append(path, i), fn)
	}
}

// At returns the node at path below n.
func At(n *Node, path []int) *Node {
	for _, i := range path {
		n = n.Inputs[i]
	}
	return n
}

// Replace returns a copy of root in which the node at
// path is replaced with repl. Only the nodes along path
// are copied; every other subtree is shared with root.
func Replace(root *Node, path []int, repl *Node) *Node {
	if len(path) == 0 {
		return repl
	}
	c := *root
	c.Inputs = slices.Clone(root.Inputs)
	c.Inputs[path[0]] = Replace(root.Inputs[path[0]], path[1:], repl)
	return &c
}

// Output is one value produced by a plan: either a
// whole row of an input (Column is empty) or a column.
type Output struct {
	Alias  string
	Column string
}

// Name returns the name under which o is referenced.
func (o Output) Name() string {
	if o.Column == "" {
		return o.Alias
	}
	return o.Alias + "." + o.Column
}

// Outputs returns the values visible
// to operators above n, in order.
func Outputs(n *Node) []Output {
	switch n.Kind {
	case fragment.Input:
		return []Output{{Alias: n.Alias}}
	case fragment.InnerJoin, fragment.LeftJoin:
		return append(Outputs(n.Inputs[0]), Outputs(n.Inputs[1])...)
	case fragment.Filter, fragment.InSubFilter, fragment.Sort, fragment.Limit:
		return Outputs(n.Inputs[0])
	case fragment.Union:
		return Outputs(n.Inputs[0])
	case fragment.Proj:
		out := make([]Output, len(n.Attrs))
		for i, c := range n.Attrs {
			out[i] = Output{Alias: c.Table, Column: c.Name}
		}
		return out
	case fragment.Agg:
		out := make([]Output, 0, len(n.GroupBy)+len(n.Aggs))
		for _, c := range n.GroupBy {
			out = append(out, Output{Alias: c.Table, Column: c.Name})
		}
		for i := range n.Aggs {
			out = append(out, Output{Alias: n.Alias, Column: n.Aggs[i].As})
		}
		return out
	}
	return nil
}

// Provides reports whether column c can be
// referenced by an operator directly above n.
func Provides(n *Node, c Column) bool {
	for _, o := range Outputs(n) {
		if provides(o, c) {
			return true
		}
	}
	return false
}

func provides(o Output, c Column) bool {
	if o.Column == "" {
		return o.Alias == c.Table || strings.HasPrefix(c.Table, o.Alias+".")
	}
	name := o.Name()
	return name == c.String() || name == c.Table || strings.HasPrefix(c.Table, name+".")
}

// Sources returns the Input nodes below n
// in left-to-right order.
func Sources(n *Node) []*Node {
	var out []*Node
	Walk(n, func(n *Node, _ []int) bool {
		if n.Kind == fragment.Input {
			out = append(out, n)
		}
		return true
	})
	return out
}

// SameRelation reports whether a and b compute the
// same relation up to a consistent renaming of the
// aliases they introduce.
func SameRelation(a, b *Node) bool {
	r := &renaming{fwd: make(map[string]string), back: make(map[string]string)}
	return r.same(a, b)
}

type renaming struct {
	fwd, back map[string]string
}

func (r *renaming) bind(a, b string) bool {
	x, ok1 := r.fwd[a]
	y, ok2 := r.back[b]
	if !ok1 && !ok2 {
		r.fwd[a], r.back[b] = b, a
		return true
	}
	return x == b && y == a
}

// column maps the alias that qualifies c.
func (r *renaming) column(c Column) Column {
	q := c.Table
	rest := ""
	if i := strings.IndexByte(q, '.'); i >= 0 {
		q, rest = q[:i], q[i:]
	}
	if to, ok := r.fwd[q]; ok {
		q = to
	}
	return Column{Table: q + rest, Name: c.Name}
}

func (r *renaming) columns(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if r.column(a[i]) != b[i] {
			return false
		}
	}
	return true
}

func (r *renaming) same(a, b *Node) bool {
	if a.Kind != b.Kind || len(a.Inputs) != len(b.Inputs) {
		return false
	}
	for i := range a.Inputs {
		if !r.same(a.Inputs[i], b.Inputs[i]) {
			return false
		}
	}
	switch a.Kind {
	case fragment.Input:
		return a.Table == b.Table && r.bind(a.Alias, b.Alias)
	case fragment.Agg:
		if len(a.Aggs) != len(b.Aggs) || !r.columns(a.GroupBy, b.GroupBy) {
			return false
		}
		for i := range a.Aggs {
			x, y := &a.Aggs[i], &b.Aggs[i]
			if x.As != y.As || x.Func != y.Func || !r.columns(x.Args, y.Args) {
				return false
			}
		}
		return r.bind(a.Alias, b.Alias)
	}
	return r.columns(a.LeftKeys, b.LeftKeys) &&
		r.columns(a.RightKeys, b.RightKeys) &&
		a.Pred == b.Pred &&
		r.columns(a.Attrs, b.Attrs) &&
		a.Dedup == b.Dedup &&
		a.Count == b.Count
}
