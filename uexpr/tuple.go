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

// Package uexpr implements U-expressions: bag-valued
// terms over tuple variables built from table atoms,
// predicate atoms, sums and products.
//
// Every term is kept in sum-of-products normal form:
// a Disjunction is a sum of Conjunctions, and each
// Conjunction is a bounded product that may carry one
// negated and one squashed sub-disjunction.
// Terms are immutable once built.
package uexpr

import "strings"

// TupleKind distinguishes the forms a Tuple can take.
type TupleKind uint8

const (
	// VarTuple is a tuple variable.
	VarTuple TupleKind = iota
	// ProjTuple is an attribute projection of another tuple.
	ProjTuple
	// ConstTuple is a literal value.
	ConstTuple
)

// Tuple is a row variable, an attribute projection
// base.attr of another tuple, or a constant.
// Tuples are immutable and compared structurally.
type Tuple struct {
	kind TupleKind
	name string
	base *Tuple
}

// Null is the NULL constant, used for the padded
// side of an outer join.
var Null = Const("NULL")

// Var returns the tuple variable called name.
func Var(name string) *Tuple { return &Tuple{kind: VarTuple, name: name} }

// Const returns a constant tuple.
func Const(lit string) *Tuple { return &Tuple{kind: ConstTuple, name: lit} }

// Proj returns the projection t.attr.
func (t *Tuple) Proj(attr string) *Tuple {
	return &Tuple{kind: ProjTuple, name: attr, base: t}
}

// Kind returns the form of t.
func (t *Tuple) Kind() TupleKind { return t.kind }

// Name returns the variable name, attribute name
// or constant literal of t.
func (t *Tuple) Name() string { return t.name }

// Base returns the tuple projected by t,
// or nil if t is not a projection.
func (t *Tuple) Base() *Tuple { return t.base }

// IsVar reports whether t is a bare variable.
func (t *Tuple) IsVar() bool { return t.kind == VarTuple }

// Root returns the variable or constant at the
// bottom of a projection chain.
func (t *Tuple) Root() *Tuple {
	for t.kind == ProjTuple {
		t = t.base
	}
	return t
}

// Equal returns whether t and o are structurally equal.
func (t *Tuple) Equal(o *Tuple) bool {
	for {
		if t == o {
			return true
		}
		if t == nil || o == nil || t.kind != o.kind || t.name != o.name {
			return false
		}
		if t.kind != ProjTuple {
			return true
		}
		t, o = t.base, o.base
	}
}

// Uses reports whether t mentions the variable v.
func (t *Tuple) Uses(v *Tuple) bool {
	r := t.Root()
	return r.kind == VarTuple && r.name == v.name
}

// usesAny reports whether t mentions one of vars.
func (t *Tuple) usesAny(vars []*Tuple) bool {
	for _, v := range vars {
		if t.Uses(v) {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer
func (t *Tuple) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *Tuple) write(b *strings.Builder) {
	if t.kind == ProjTuple {
		t.base.write(b)
		b.WriteByte('.')
	}
	b.WriteString(t.name)
}

// Subst returns t with every occurrence of target
// replaced by rep. When target does not occur in t,
// Subst returns t itself.
func Subst(t, target, rep *Tuple) *Tuple {
	if t.Equal(target) {
		return rep
	}
	if t.kind != ProjTuple {
		return t
	}
	b := Subst(t.base, target, rep)
	if b == t.base {
		return t
	}
	return b.Proj(t.name)
}

func substAll(lst []*Tuple, target, rep *Tuple) ([]*Tuple, bool) {
	var out []*Tuple
	for i, t := range lst {
		n := Subst(t, target, rep)
		if n != t && out == nil {
			out = make([]*Tuple, len(lst))
			copy(out, lst[:i])
		}
		if out != nil {
			out[i] = n
		}
	}
	if out == nil {
		return lst, false
	}
	return out, true
}
