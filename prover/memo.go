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

package prover

import (
	"github.com/GitOfCharlie/WeTune-mirror-sub001/uexpr"
)

// Prop is a handle for an atomic proposition.
type Prop int

// Memo assigns propositions to classes of equal
// ground terms. A Memo is immutable: Table and Pred
// return a new Memo that shares every earlier assignment,
// so abandoning a branch of a search only requires
// dropping the extended value. The nil *Memo is empty.
type Memo struct {
	prev  *Memo
	entry entry
	prop  Prop
}

// entry is exactly one of a table atom, a predicate
// atom or the core of an existential conjunction.
type entry struct {
	table *uexpr.TableAtom
	pred  *uexpr.PredAtom
	core  *uexpr.Conjunction
}

func (e *entry) String() string {
	switch {
	case e.table != nil:
		return e.table.String()
	case e.pred != nil:
		return e.pred.String()
	default:
		return e.core.String()
	}
}

// Len returns the number of propositions in m.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return int(m.prop) + 1
}

// extend returns a memo holding every assignment
// in m plus a new proposition for e.
func (m *Memo) extend(e entry) (*Memo, Prop) {
	p := Prop(m.Len())
	return &Memo{prev: m, entry: e, prop: p}, p
}

// find returns the most recent proposition
// whose entry satisfies match.
func (m *Memo) find(match func(e *entry) bool) (Prop, bool) {
	for ; m != nil; m = m.prev {
		if match(&m.entry) {
			return m.prop, true
		}
	}
	return 0, false
}

// Table returns the proposition for a, extending m if needed.
func (m *Memo) Table(a uexpr.TableAtom) (*Memo, Prop) {
	if p, ok := m.find(func(e *entry) bool {
		return e.table != nil && e.table.Equal(a)
	}); ok {
		return m, p
	}
	return m.extend(entry{table: &a})
}

// Pred returns the proposition for a, extending m if needed.
// Equality atoms are looked up symmetrically.
func (m *Memo) Pred(a uexpr.PredAtom) (*Memo, Prop) {
	if p, ok := m.find(func(e *entry) bool {
		return e.pred != nil && e.pred.Equal(a)
	}); ok {
		return m, p
	}
	return m.extend(entry{pred: &a})
}

// Describe returns the textual form of the term
// assigned to p, or "" if p is unknown.
func (m *Memo) Describe(p Prop) string {
	for ; m != nil; m = m.prev {
		if m.prop == p {
			return m.entry.String()
		}
	}
	return ""
}
