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
	"sort"
	"strconv"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/congruence"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
)

// Set is a duplicate-free list of constraints
// along with the equivalence classes of symbols
// induced by its equality constraints.
//
// A Set is not modified after NewSet returns.
type Set struct {
	list []Constraint
	eq   congruence.Congruence[*fragment.Symbol]
}

// NewSet checks each constraint and returns the set
// of distinct constraints among cs, in order.
func NewSet(cs ...Constraint) (*Set, error) {
	s := &Set{}
	for _, c := range cs {
		if err := c.Check(); err != nil {
			return nil, err
		}
		if s.Has(c) {
			continue
		}
		s.list = append(s.list, c)
		if c.Kind.IsEq() {
			s.eq.Union(c.Syms[0], c.Syms[1])
		}
	}
	return s, nil
}

// MustSet is like NewSet but panics on error.
func MustSet(cs ...Constraint) *Set {
	s, err := NewSet(cs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of constraints in s.
func (s *Set) Len() int { return len(s.list) }

// List returns the constraints of s.
// The result must not be modified.
func (s *Set) List() []Constraint { return s.list }

// Has reports whether s contains c.
func (s *Set) Has(c Constraint) bool {
	for _, x := range s.list {
		if Equal(x, c) {
			return true
		}
	}
	return false
}

// Same reports whether a and b are equal
// through the equality constraints of s.
func (s *Set) Same(a, b *fragment.Symbol) bool { return s.eq.Same(a, b) }

// Class returns the symbols known to equal sym,
// including sym itself.
func (s *Set) Class(sym *fragment.Symbol) []*fragment.Symbol { return s.eq.Class(sym) }

// Source returns the first of candidates that is
// equal to sym, which is how a symbol that is not
// matched directly gets its value.
func (s *Set) Source(sym *fragment.Symbol, candidates []*fragment.Symbol) (*fragment.Symbol, bool) {
	for _, c := range candidates {
		if s.Same(sym, c) {
			return c, true
		}
	}
	return nil, false
}

// Of returns the constraints of kind k.
func (s *Set) Of(k Kind) []Constraint {
	var out []Constraint
	for _, c := range s.list {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Sources returns the source lists of the
// PickFrom constraints whose target is sym.
func (s *Set) Sources(sym *fragment.Symbol) [][]*fragment.Symbol {
	var out [][]*fragment.Symbol
	for _, c := range s.list {
		if c.Kind == PickFrom && c.Syms[0] == sym {
			out = append(out, c.Syms[1:])
		}
	}
	return out
}

// Sorted returns the constraints of s in canonical
// order: by kind, then by the names n gives their
// symbols. The symbols of equality constraints are
// put in name order first.
func (s *Set) Sorted(n *fragment.Naming) []Constraint {
	out := make([]Constraint, len(s.list))
	for i, c := range s.list {
		if c.Kind.IsEq() && symLess(n, c.Syms[1], c.Syms[0]) {
			c = Make(c.Kind, c.Syms[1], c.Syms[0])
		}
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		for k := 0; k < len(a.Syms) && k < len(b.Syms); k++ {
			if a.Syms[k] != b.Syms[k] {
				return symLess(n, a.Syms[k], b.Syms[k])
			}
		}
		return len(a.Syms) < len(b.Syms)
	})
	return out
}

// symLess orders symbols by kind, then by index.
func symLess(n *fragment.Naming, a, b *fragment.Symbol) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	ia, _ := strconv.Atoi(n.Name(a)[1:])
	ib, _ := strconv.Atoi(n.Name(b)[1:])
	return ia < ib
}
