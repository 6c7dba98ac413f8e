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

package enumerate

import (
	"github.com/GitOfCharlie/WeTune-mirror-sub001/constraint"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
)

// slot is a symbol together with the
// values it may be constrained to.
type slot struct {
	sym     *fragment.Symbol
	options []*fragment.Symbol
}

// keyPair is a pair of attribute symbols that
// a Reference constraint may relate.
type keyPair struct {
	from, to *fragment.Symbol
}

// space is the set of candidate constraint sets
// for a pair of fragments. A candidate equates
// every symbol of g1 with a symbol of g0 of the
// same kind, and picks a source for every attribute
// symbol of g0 among the outputs of its inputs.
type space struct {
	g0, g1 *fragment.Fragment
	slots  []slot // the g1 mappings, then the g0 picks
	keys   []keyPair
}

func newSpace(g0, g1 *fragment.Fragment) (*space, bool) {
	sp := &space{g0: g0, g1: g1}
	for _, sym := range g1.Symbols() {
		var opts []*fragment.Symbol
		for _, c := range g0.Symbols() {
			if c.Kind == sym.Kind {
				opts = append(opts, c)
			}
		}
		if len(opts) == 0 {
			return nil, false
		}
		sp.slots = append(sp.slots, slot{sym: sym, options: opts})
	}
	seen := make(map[*fragment.Symbol]bool)
	add := func(sym *fragment.Symbol, from *fragment.Op) {
		if seen[sym] {
			return
		}
		seen[sym] = true
		sp.slots = append(sp.slots, slot{sym: sym, options: visible(from)})
	}
	fragment.Walk(g0.Root, func(op, _ *fragment.Op, _ int) bool {
		switch op.Kind {
		case fragment.InnerJoin, fragment.LeftJoin:
			add(op.Syms[0], op.Inputs[0])
			add(op.Syms[1], op.Inputs[1])
			sp.keys = append(sp.keys, keyPair{from: op.Syms[0], to: op.Syms[1]})
		case fragment.Filter:
			add(op.Syms[1], op.Inputs[0])
		case fragment.InSubFilter:
			add(op.Syms[0], op.Inputs[0])
			if sub := op.Inputs[1]; sub.Kind == fragment.Proj {
				sp.keys = append(sp.keys, keyPair{from: op.Syms[0], to: sub.Syms[0]})
			}
		case fragment.Proj, fragment.Sort:
			add(op.Syms[0], op.Inputs[0])
		case fragment.Agg:
			add(op.Syms[0], op.Inputs[0])
			add(op.Syms[1], op.Inputs[0])
		}
		return true
	})
	return sp, true
}

// visible returns the symbols that describe
// the output columns of op.
func visible(op *fragment.Op) []*fragment.Symbol {
	switch op.Kind {
	case fragment.Input:
		return []*fragment.Symbol{op.Syms[0]}
	case fragment.Proj, fragment.Agg:
		return []*fragment.Symbol{op.Syms[0]}
	case fragment.InnerJoin, fragment.LeftJoin:
		return append(visible(op.Inputs[0]), visible(op.Inputs[1])...)
	default:
		return visible(op.Inputs[0])
	}
}

// each calls fn with every assignment of sp: the
// equalities and picks it implies, and the Reference
// constraints applicable to its picks. Iteration
// stops early when fn returns false.
func (sp *space) each(fn func(cs, refs []constraint.Constraint) bool) {
	choice := make([]int, len(sp.slots))
	for {
		if sp.injective(choice) && !fn(sp.constraints(choice), sp.references(choice)) {
			return
		}
		// advance the odometer
		i := len(choice) - 1
		for ; i >= 0; i-- {
			choice[i]++
			if choice[i] < len(sp.slots[i].options) {
				break
			}
			choice[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

// injective reports whether distinct predicate
// symbols of g1 are mapped to distinct predicates.
func (sp *space) injective(choice []int) bool {
	used := make(map[*fragment.Symbol]bool)
	for i, s := range sp.slots {
		if !sp.g1.Owns(s.sym) || s.sym.Kind != fragment.Pred {
			continue
		}
		p := s.options[choice[i]]
		if used[p] {
			return false
		}
		used[p] = true
	}
	return true
}

func (sp *space) constraints(choice []int) []constraint.Constraint {
	cs := make([]constraint.Constraint, 0, len(sp.slots))
	for i, s := range sp.slots {
		opt := s.options[choice[i]]
		if sp.g1.Owns(s.sym) {
			cs = append(cs, constraint.Eq(opt, s.sym))
		} else {
			cs = append(cs, constraint.Make(constraint.PickFrom, s.sym, opt))
		}
	}
	return cs
}

func (sp *space) references(choice []int) []constraint.Constraint {
	picked := make(map[*fragment.Symbol]*fragment.Symbol)
	for i, s := range sp.slots {
		if sp.g0.Owns(s.sym) {
			picked[s.sym] = s.options[choice[i]]
		}
	}
	var out []constraint.Constraint
	for _, k := range sp.keys {
		from, to := picked[k.from], picked[k.to]
		if from == nil || to == nil || from.Kind != fragment.Table || to.Kind != fragment.Table {
			continue
		}
		out = append(out, constraint.Make(constraint.Reference, from, k.from, to, k.to))
	}
	return out
}

// size returns the number of assignments of sp,
// saturating at max.
func (sp *space) size(max int) int {
	n := 1
	for _, s := range sp.slots {
		n *= len(s.options)
		if n >= max {
			return max
		}
	}
	return n
}
