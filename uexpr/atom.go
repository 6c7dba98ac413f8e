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

package uexpr

import "strings"

// TableAtom is the multiplicity of Tuple in the table Name.
type TableAtom struct {
	Name  string
	Tuple *Tuple
}

// Equal returns whether a and o are structurally equal.
func (a TableAtom) Equal(o TableAtom) bool {
	return a.Name == o.Name && a.Tuple.Equal(o.Tuple)
}

// Subst substitutes rep for target in the argument of a.
func (a TableAtom) Subst(target, rep *Tuple) (TableAtom, bool) {
	t := Subst(a.Tuple, target, rep)
	if t == a.Tuple {
		return a, false
	}
	return TableAtom{Name: a.Name, Tuple: t}, true
}

func (a TableAtom) String() string {
	return a.Name + "(" + a.Tuple.String() + ")"
}

// PredKind distinguishes equality from
// uninterpreted predicates.
type PredKind uint8

const (
	// EqPred is [a = b].
	EqPred PredKind = iota
	// FuncPred is an uninterpreted predicate
	// applied to its arguments.
	FuncPred
)

// PredAtom is a 0/1-valued predicate over tuples.
type PredAtom struct {
	Kind PredKind
	Name string // FuncPred only
	Args []*Tuple
}

// Eq returns the predicate [a = b].
func Eq(a, b *Tuple) PredAtom {
	return PredAtom{Kind: EqPred, Args: []*Tuple{a, b}}
}

// Func returns the uninterpreted predicate name(args...).
func Func(name string, args ...*Tuple) PredAtom {
	return PredAtom{Kind: FuncPred, Name: name, Args: args}
}

// Equal returns whether p and o are structurally
// equal. Equality predicates compare symmetrically.
func (p PredAtom) Equal(o PredAtom) bool {
	if p.Kind != o.Kind || p.Name != o.Name || len(p.Args) != len(o.Args) {
		return false
	}
	if p.Kind == EqPred {
		return (p.Args[0].Equal(o.Args[0]) && p.Args[1].Equal(o.Args[1])) ||
			(p.Args[0].Equal(o.Args[1]) && p.Args[1].Equal(o.Args[0]))
	}
	for i := range p.Args {
		if !p.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Uses reports whether p mentions v.
func (p PredAtom) Uses(v *Tuple) bool {
	for _, a := range p.Args {
		if a.Uses(v) {
			return true
		}
	}
	return false
}

// Subst substitutes rep for target in the arguments of p.
func (p PredAtom) Subst(target, rep *Tuple) (PredAtom, bool) {
	args, ok := substAll(p.Args, target, rep)
	if !ok {
		return p, false
	}
	return PredAtom{Kind: p.Kind, Name: p.Name, Args: args}, true
}

// Trivial reports whether p is an equality
// between structurally equal tuples.
func (p PredAtom) Trivial() bool {
	return p.Kind == EqPred && p.Args[0].Equal(p.Args[1])
}

func (p PredAtom) String() string {
	var b strings.Builder
	if p.Kind == EqPred {
		b.WriteByte('[')
		p.Args[0].write(&b)
		b.WriteString(" = ")
		p.Args[1].write(&b)
		b.WriteByte(']')
		return b.String()
	}
	b.WriteString(p.Name)
	b.WriteByte('(')
	for i, a := range p.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		a.write(&b)
	}
	b.WriteByte(')')
	return b.String()
}
