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

// Package subst implements substitutions (verified
// rewrite rules made of two fragments and their
// constraints) and banks of substitutions.
package subst

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/constraint"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
)

var (
	// ErrInvalid is returned for substitutions
	// whose parts do not fit together.
	ErrInvalid = errors.New("invalid substitution")
	// ErrIneligible is returned for substitutions
	// whose right-hand side cannot be instantiated
	// from a match of the left-hand side.
	ErrIneligible = errors.New("ineligible substitution")
)

// Substitution is a rewrite rule: wherever G0 matches
// and the constraints C hold, G0 may be replaced by G1.
// G0 and G1 own disjoint symbols; constraints relate
// them. A Substitution is never modified after New.
type Substitution struct {
	G0, G1 *fragment.Fragment
	C      *constraint.Set

	naming *fragment.Naming
	key    string
}

// New seals g0 and g1 into fragments and returns
// the substitution from g0 to g1 under cs.
func New(g0, g1 *fragment.Op, cs ...constraint.Constraint) (*Substitution, error) {
	f0, err := fragment.New(g0)
	if err != nil {
		return nil, fmt.Errorf("%w: g0: %v", ErrInvalid, err)
	}
	f1, err := fragment.New(g1)
	if err != nil {
		return nil, fmt.Errorf("%w: g1: %v", ErrInvalid, err)
	}
	set, err := constraint.NewSet(cs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return seal(f0, f1, set)
}

// MustNew is like New but panics on error.
func MustNew(g0, g1 *fragment.Op, cs ...constraint.Constraint) *Substitution {
	s, err := New(g0, g1, cs...)
	if err != nil {
		panic(err)
	}
	return s
}

func seal(f0, f1 *fragment.Fragment, set *constraint.Set) (*Substitution, error) {
	for _, c := range set.List() {
		for _, sym := range c.Syms {
			if !f0.Owns(sym) && !f1.Owns(sym) {
				return nil, fmt.Errorf("%w: %s refers to a foreign symbol", ErrInvalid, c.Kind)
			}
		}
	}
	s := &Substitution{G0: f0, G1: f1, C: set}
	s.naming = fragment.NewNaming(f0, f1)
	s.key = s.format()
	return s, nil
}

// Flip returns the substitution from G1 to G0.
func (s *Substitution) Flip() *Substitution {
	f, err := seal(s.G1, s.G0, s.C)
	if err != nil {
		panic(err) // same symbols as s
	}
	return f
}

// Key returns the canonical text of s. Substitutions
// that differ only in symbol identity or in the order
// of their constraints have the same key.
func (s *Substitution) Key() string { return s.key }

// String implements fmt.Stringer
func (s *Substitution) String() string { return s.key }

// Name returns the name of sym in the canonical
// text of s.
func (s *Substitution) Name(sym *fragment.Symbol) string { return s.naming.Name(sym) }

func (s *Substitution) format() string {
	var b strings.Builder
	b.WriteString(fragment.Format(s.G0.Root, s.naming))
	b.WriteString(", ")
	b.WriteString(fragment.Format(s.G1.Root, s.naming))
	b.WriteString(" -> (")
	for i, c := range s.C.Sorted(s.naming) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Format(s.naming))
	}
	b.WriteByte(')')
	return b.String()
}

// source returns the symbol of G0 that provides
// the value of sym: sym itself for symbols of G0,
// otherwise the first G0 symbol it is equal to.
func (s *Substitution) source(sym *fragment.Symbol) (*fragment.Symbol, bool) {
	if s.G0.Owns(sym) {
		return sym, true
	}
	return s.C.Source(sym, s.G0.Symbols())
}

// Eligible reports whether every symbol of G1
// obtains its value from a symbol of G0 and every
// Limit of G1 has a counterpart in G0.
func (s *Substitution) Eligible() bool {
	for _, sym := range s.G1.Symbols() {
		if _, ok := s.source(sym); !ok {
			return false
		}
	}
	return countKind(s.G1.Root, fragment.Limit) <= countKind(s.G0.Root, fragment.Limit)
}

func countKind(op *fragment.Op, k fragment.Kind) int {
	n := 0
	fragment.Walk(op, func(o, _ *fragment.Op, _ int) bool {
		if o.Kind == k {
			n++
		}
		return true
	})
	return n
}

// Identity reports whether s rewrites G0 into
// itself: both sides have the same shape and
// every symbol of G1 takes its value from the
// symbol of G0 in the same position.
func (s *Substitution) Identity() bool {
	return s.sameOp(s.G0.Root, s.G1.Root)
}

func (s *Substitution) sameOp(a, b *fragment.Op) bool {
	if a.Kind != b.Kind || a.Dedup != b.Dedup || len(a.Syms) != len(b.Syms) {
		return false
	}
	for i := range a.Syms {
		if src, ok := s.source(b.Syms[i]); !ok || src != a.Syms[i] {
			return false
		}
	}
	for i := range a.Inputs {
		if !s.sameOp(a.Inputs[i], b.Inputs[i]) {
			return false
		}
	}
	return true
}

// AliasedPreds reports whether two distinct
// predicate symbols of G1 take their value from
// the same predicate of G0.
func (s *Substitution) AliasedPreds() bool {
	seen := make(map[*fragment.Symbol]bool)
	for _, sym := range s.G1.Symbols() {
		if sym.Kind != fragment.Pred {
			continue
		}
		src, ok := s.source(sym)
		if !ok {
			continue
		}
		if seen[src] {
			return true
		}
		seen[src] = true
	}
	return false
}
