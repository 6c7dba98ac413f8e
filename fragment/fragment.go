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

package fragment

import (
	"errors"
	"fmt"
)

// Symbol is a placeholder inside a Fragment.
// Symbols are compared by identity.
type Symbol struct {
	Kind  SymbolKind
	owner *Fragment
}

// Owner returns the fragment the symbol belongs to,
// or nil if it has not been sealed into one yet.
func (s *Symbol) Owner() *Fragment { return s.owner }

// Op is an operator node of a fragment.
type Op struct {
	Kind Kind
	// Dedup is set on projections
	// that remove duplicates.
	Dedup bool
	// Syms holds the symbols of the operator,
	// typed according to Kind.Slots.
	Syms []*Symbol
	// Inputs holds Kind.Arity children.
	Inputs []*Op
}

// NewOp returns an operator of the given kind
// with fresh symbols in each slot.
func NewOp(k Kind, inputs ...*Op) *Op {
	op := &Op{Kind: k, Inputs: inputs}
	for _, sk := range k.Slots() {
		op.Syms = append(op.Syms, &Symbol{Kind: sk})
	}
	return op
}

// NewInput returns an Input with a fresh table symbol.
func NewInput() *Op { return NewOp(Input) }

// NewProj returns a projection of in.
func NewProj(dedup bool, in *Op) *Op {
	op := NewOp(Proj, in)
	op.Dedup = dedup
	return op
}

// Table returns the table symbol of an Input.
func (o *Op) Table() *Symbol { return o.slot(Input, 0) }

// Pred returns the predicate symbol of a Filter.
func (o *Op) Pred() *Symbol { return o.slot(Filter, 0) }

// Attrs returns the attribute list symbol of a
// Filter, InSubFilter, Proj or Sort.
func (o *Op) Attrs() *Symbol {
	if o.Kind == Filter {
		return o.Syms[1]
	}
	return o.Syms[0]
}

// Keys returns the left and right key symbols of a join.
func (o *Op) Keys() (*Symbol, *Symbol) { return o.Syms[0], o.Syms[1] }

func (o *Op) slot(k Kind, i int) *Symbol {
	if o.Kind != k {
		panic(fmt.Sprintf("fragment: %s has no %s slot", o.Kind, k))
	}
	return o.Syms[i]
}

// Fragment is a sealed operator tree.
// Its symbols belong to it exclusively.
type Fragment struct {
	Root *Op
	syms []*Symbol
}

var (
	// ErrShape is returned for operators with the
	// wrong number of inputs or symbols.
	ErrShape = errors.New("fragment: malformed operator")
	// ErrOwned is returned when a symbol already
	// belongs to another fragment.
	ErrOwned = errors.New("fragment: symbol belongs to another fragment")
)

// New seals root into a Fragment, taking ownership
// of every symbol it references. A symbol may occur
// in more than one slot of the tree.
func New(root *Op) (*Fragment, error) {
	f := &Fragment{Root: root}
	var err error
	Walk(root, func(op, _ *Op, _ int) bool {
		if err != nil {
			return false
		}
		slots := op.Kind.Slots()
		if op.Kind >= numKinds || len(op.Inputs) != op.Kind.Arity() || len(op.Syms) != len(slots) {
			err = fmt.Errorf("%w: %s", ErrShape, op.Kind)
			return false
		}
		for i, s := range op.Syms {
			if s == nil || s.Kind != slots[i] {
				err = fmt.Errorf("%w: %s slot %d needs a %s symbol", ErrShape, op.Kind, i, slots[i])
				return false
			}
			if s.owner != nil && s.owner != f {
				err = ErrOwned
				return false
			}
			if s.owner == nil {
				s.owner = f
				f.syms = append(f.syms, s)
			}
		}
		for _, in := range op.Inputs {
			if in == nil {
				err = fmt.Errorf("%w: %s has a missing input", ErrShape, op.Kind)
				return false
			}
		}
		return true
	})
	if err != nil {
		for _, s := range f.syms {
			s.owner = nil
		}
		return nil, err
	}
	return f, nil
}

// MustNew is like New but panics on error.
func MustNew(root *Op) *Fragment {
	f, err := New(root)
	if err != nil {
		panic(err)
	}
	return f
}

// Symbols returns the symbols of f in
// pre-order of their first occurrence.
func (f *Fragment) Symbols() []*Symbol { return f.syms }

// Owns reports whether s belongs to f.
func (f *Fragment) Owns(s *Symbol) bool { return s.owner == f }

// Size returns the number of operators
// of f other than inputs.
func (f *Fragment) Size() int {
	n := 0
	Walk(f.Root, func(op, _ *Op, _ int) bool {
		if op.Kind != Input {
			n++
		}
		return true
	})
	return n
}

// Copy returns an unsealed copy of the tree rooted
// at op in which every symbol is replaced by a fresh
// one of the same kind. The returned map takes the
// original symbols to their copies.
func Copy(op *Op) (*Op, map[*Symbol]*Symbol) {
	m := make(map[*Symbol]*Symbol)
	return copyOp(op, m), m
}

func copyOp(op *Op, m map[*Symbol]*Symbol) *Op {
	n := &Op{Kind: op.Kind, Dedup: op.Dedup}
	for _, s := range op.Syms {
		c, ok := m[s]
		if !ok {
			c = &Symbol{Kind: s.Kind}
			m[s] = c
		}
		n.Syms = append(n.Syms, c)
	}
	for _, in := range op.Inputs {
		n.Inputs = append(n.Inputs, copyOp(in, m))
	}
	return n
}

// Walk visits the tree rooted at op in pre-order.
// fn receives each operator along with its parent and
// its position among the parent's inputs (nil and -1
// for op itself); returning false skips the inputs
// of that operator.
func Walk(op *Op, fn func(op, parent *Op, slot int) bool) {
	walk(op, nil, -1, fn)
}

func walk(op, parent *Op, slot int, fn func(op, parent *Op, slot int) bool) {
	if !fn(op, parent, slot) {
		return
	}
	for i, in := range op.Inputs {
		walk(in, op, i, fn)
	}
}
