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

package constraint

import (
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"

	"golang.org/x/exp/slices"
)

// Env binds symbols to concrete plan parts.
// Each lookup reports false for unbound symbols.
type Env interface {
	// Table returns the subtree bound to a table symbol.
	Table(s *fragment.Symbol) (*plan.Node, bool)
	// Attrs returns the columns bound to an
	// attribute list or group key symbol.
	Attrs(s *fragment.Symbol) ([]plan.Column, bool)
	// Aggs returns the aggregates bound to an
	// aggregate function symbol.
	Aggs(s *fragment.Symbol) ([]plan.AggFunc, bool)
	// Pred returns the predicate bound to a predicate symbol.
	Pred(s *fragment.Symbol) (string, bool)
	// Schema returns the schema of the plan.
	Schema() *plan.Schema
}

// Eval reports whether every constraint of s holds in env.
func (s *Set) Eval(env Env) bool {
	for _, c := range s.list {
		if !c.Eval(env) {
			return false
		}
	}
	return true
}

// Eval reports whether c holds in env.
// A constraint over an unbound symbol does not hold.
func (c Constraint) Eval(env Env) bool {
	switch c.Kind {
	case TableEq:
		a, ok1 := env.Table(c.Syms[0])
		b, ok2 := env.Table(c.Syms[1])
		return ok1 && ok2 && plan.SameRelation(a, b)
	case PredicateEq:
		a, ok1 := env.Pred(c.Syms[0])
		b, ok2 := env.Pred(c.Syms[1])
		return ok1 && ok2 && a == b
	case AttrsEq:
		if c.Syms[0].Kind == fragment.AggFuncs {
			a, ok1 := env.Aggs(c.Syms[0])
			b, ok2 := env.Aggs(c.Syms[1])
			return ok1 && ok2 && slices.EqualFunc(a, b, func(x, y plan.AggFunc) bool {
				return x.As == y.As && x.Func == y.Func && slices.Equal(x.Args, y.Args)
			})
		}
		a, ok1 := env.Attrs(c.Syms[0])
		b, ok2 := env.Attrs(c.Syms[1])
		return ok1 && ok2 && slices.Equal(a, b)
	case PickFrom:
		cols, ok := columns(env, c.Syms[0])
		if !ok {
			return false
		}
		for _, src := range c.Syms[1:] {
			if pickFrom(env, cols, src) {
				return true
			}
		}
		return false
	case Reference:
		return reference(env, c.Syms)
	}
	return false
}

// columns returns the columns referenced by an
// attribute-like symbol.
func columns(env Env, s *fragment.Symbol) ([]plan.Column, bool) {
	if s.Kind != fragment.AggFuncs {
		return env.Attrs(s)
	}
	aggs, ok := env.Aggs(s)
	if !ok {
		return nil, false
	}
	var out []plan.Column
	for i := range aggs {
		out = append(out, aggs[i].Args...)
	}
	return out, true
}

func pickFrom(env Env, cols []plan.Column, src *fragment.Symbol) bool {
	if src.Kind == fragment.Table {
		n, ok := env.Table(src)
		if !ok {
			return false
		}
		for _, c := range cols {
			if !plan.Provides(n, c) {
				return false
			}
		}
		return true
	}
	from, ok := columns(env, src)
	if !ok {
		return false
	}
	for _, c := range cols {
		if !within(c, from) {
			return false
		}
	}
	return true
}

// within reports whether c is one of from
// or an attribute of one of them.
func within(c plan.Column, from []plan.Column) bool {
	for _, f := range from {
		name := f.String()
		if f == c || c.Table == name || strings.HasPrefix(c.Table, name+".") {
			return true
		}
	}
	return false
}

// reference checks a foreign key from the columns a0 of
// t0 to the columns a1 of t1. Any subtree may carry the
// referencing columns, but the referenced side must keep
// every row of its stored table. The foreign key columns
// are assumed to be non-null: there is no constraint kind
// to state that, and a NULL key has no referenced row.
func reference(env Env, syms []*fragment.Symbol) bool {
	t0, c0, ok0 := baseColumns(env, syms[0], syms[1], false)
	t1, c1, ok1 := baseColumns(env, syms[2], syms[3], true)
	return ok0 && ok1 && env.Schema().References(t0, c0, t1, c1)
}

// baseColumns resolves the columns bound to attrs
// to the stored table they are read from, which
// must be an input of the subtree bound to table.
// With whole set, that input must also keep all of
// its rows in the subtree.
func baseColumns(env Env, table, attrs *fragment.Symbol, whole bool) (string, []string, bool) {
	n, ok1 := env.Table(table)
	cols, ok2 := env.Attrs(attrs)
	if !ok1 || !ok2 || len(cols) == 0 {
		return "", nil, false
	}
	alias := cols[0].Table
	names := make([]string, len(cols))
	for i, c := range cols {
		if c.Table != alias {
			return "", nil, false
		}
		names[i] = c.Name
	}
	sources := plan.Sources(n)
	if whole {
		in, ok := allRows(n)
		if !ok {
			return "", nil, false
		}
		sources = []*plan.Node{in}
	}
	for _, in := range sources {
		if in.Alias == alias {
			return in.Table, names, true
		}
	}
	return "", nil, false
}

// allRows returns the input under n when n keeps
// at least one row for each of its rows: a bare
// input, possibly sorted or projected.
func allRows(n *plan.Node) (*plan.Node, bool) {
	for {
		switch n.Kind {
		case fragment.Input:
			return n, true
		case fragment.Sort, fragment.Proj:
			n = n.Inputs[0]
		default:
			return nil, false
		}
	}
}
