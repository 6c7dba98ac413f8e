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
	"strconv"
	"strings"
)

type fop uint8

const (
	fFalse fop = iota
	fTrue
	fAtom
	fNot
	fAnd
	fOr
)

// Formula is a propositional formula over Props.
type Formula struct {
	op   fop
	prop Prop
	args []*Formula
}

var (
	trueF  = &Formula{op: fTrue}
	falseF = &Formula{op: fFalse}
)

// True returns the constant true formula.
func True() *Formula { return trueF }

// False returns the constant false formula.
func False() *Formula { return falseF }

// Atom returns the formula consisting of p alone.
func Atom(p Prop) *Formula { return &Formula{op: fAtom, prop: p} }

// Not returns the negation of f.
func Not(f *Formula) *Formula {
	switch f.op {
	case fTrue:
		return falseF
	case fFalse:
		return trueF
	case fNot:
		return f.args[0]
	}
	return &Formula{op: fNot, args: []*Formula{f}}
}

// And returns the conjunction of fs.
func And(fs ...*Formula) *Formula { return join(fAnd, fs) }

// Or returns the disjunction of fs.
func Or(fs ...*Formula) *Formula { return join(fOr, fs) }

func join(op fop, fs []*Formula) *Formula {
	unit, zero := trueF, falseF
	if op == fOr {
		unit, zero = falseF, trueF
	}
	var args []*Formula
	for _, f := range fs {
		switch {
		case f == nil || f.op == unit.op:
			continue
		case f.op == zero.op:
			return zero
		case f.op == op:
			args = append(args, f.args...)
		default:
			args = append(args, f)
		}
	}
	switch len(args) {
	case 0:
		return unit
	case 1:
		return args[0]
	}
	return &Formula{op: op, args: args}
}

// Iff returns a formula that holds when a and b agree.
func Iff(a, b *Formula) *Formula {
	return Or(And(a, b), And(Not(a), Not(b)))
}

// assign returns f with p replaced by v, simplified.
func (f *Formula) assign(p Prop, v bool) *Formula {
	switch f.op {
	case fTrue, fFalse:
		return f
	case fAtom:
		if f.prop != p {
			return f
		}
		if v {
			return trueF
		}
		return falseF
	case fNot:
		a := f.args[0].assign(p, v)
		if a == f.args[0] {
			return f
		}
		return Not(a)
	}
	args := make([]*Formula, len(f.args))
	changed := false
	for i, a := range f.args {
		args[i] = a.assign(p, v)
		changed = changed || args[i] != a
	}
	if !changed {
		return f
	}
	return join(f.op, args)
}

// firstAtom returns some proposition occurring in f.
func (f *Formula) firstAtom() (Prop, bool) {
	switch f.op {
	case fAtom:
		return f.prop, true
	case fNot, fAnd, fOr:
		for _, a := range f.args {
			if p, ok := a.firstAtom(); ok {
				return p, true
			}
		}
	}
	return 0, false
}

func (f *Formula) atoms(dst map[Prop]struct{}) {
	if f.op == fAtom {
		dst[f.prop] = struct{}{}
		return
	}
	for _, a := range f.args {
		a.atoms(dst)
	}
}

// maxAtoms bounds the size of a tautology check;
// larger formulas are reported as not valid.
const maxAtoms = 24

// Tautology reports whether f holds under every
// assignment of its propositions.
func Tautology(f *Formula) bool {
	set := make(map[Prop]struct{})
	f.atoms(set)
	if len(set) > maxAtoms {
		return false
	}
	return valid(f)
}

// Satisfiable reports whether some assignment satisfies f.
func Satisfiable(f *Formula) bool { return !Tautology(Not(f)) }

// valid decides validity by Shannon expansion
// on one proposition at a time.
func valid(f *Formula) bool {
	switch f.op {
	case fTrue:
		return true
	case fFalse:
		return false
	}
	p, ok := f.firstAtom()
	if !ok {
		return false
	}
	return valid(f.assign(p, true)) && valid(f.assign(p, false))
}

// String implements fmt.Stringer
func (f *Formula) String() string {
	var b strings.Builder
	f.write(&b)
	return b.String()
}

func (f *Formula) write(b *strings.Builder) {
	switch f.op {
	case fTrue:
		b.WriteString("true")
	case fFalse:
		b.WriteString("false")
	case fAtom:
		b.WriteString("p")
		b.WriteString(strconv.Itoa(int(f.prop)))
	case fNot:
		b.WriteByte('!')
		f.args[0].write(b)
	default:
		sep := " & "
		if f.op == fOr {
			sep = " | "
		}
		b.WriteByte('(')
		for i, a := range f.args {
			if i > 0 {
				b.WriteString(sep)
			}
			a.write(b)
		}
		b.WriteByte(')')
	}
}
