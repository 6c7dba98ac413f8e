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

// Package constraint implements the side conditions
// of a substitution: relations over fragment symbols
// that must hold for a rewrite to be applied.
package constraint

import (
	"fmt"
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/rules"
)

// Kind is the kind of a constraint.
type Kind uint8

const (
	// TableEq(t0, t1): both tables bind the same relation.
	TableEq Kind = iota
	// AttrsEq(a0, a1): both attribute lists are equal sequences.
	AttrsEq
	// PredicateEq(p0, p1): both predicates are the same.
	PredicateEq
	// PickFrom(a, s1, ..., sn): every attribute of a is
	// produced by one of the sources s1..sn.
	PickFrom
	// Reference(t0, a0, t1, a1): the attributes a0 of
	// t0 are a foreign key onto the attributes a1 of t1.
	Reference

	numKinds
)

var kindNames = [numKinds]string{
	TableEq:     "TableEq",
	AttrsEq:     "AttrsEq",
	PredicateEq: "PredicateEq",
	PickFrom:    "PickFrom",
	Reference:   "Reference",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "Kind(?)"
}

// IsEq reports whether k is one of the equality kinds.
func (k Kind) IsEq() bool { return k <= PredicateEq }

func kindNamed(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Constraint is a relation of kind Kind over Syms.
// Constraints are values and are never modified.
type Constraint struct {
	Kind Kind
	Syms []*fragment.Symbol
}

// Make returns a constraint of kind k over syms.
func Make(k Kind, syms ...*fragment.Symbol) Constraint {
	return Constraint{Kind: k, Syms: syms}
}

// Eq returns the equality constraint appropriate for
// the kind of a and b (TableEq, AttrsEq or PredicateEq).
func Eq(a, b *fragment.Symbol) Constraint {
	switch a.Kind {
	case fragment.Table:
		return Make(TableEq, a, b)
	case fragment.Pred:
		return Make(PredicateEq, a, b)
	}
	return Make(AttrsEq, a, b)
}

// Check reports whether the symbols of c have
// the number and kinds its Kind requires.
func (c Constraint) Check() error {
	bad := func(f string, args ...interface{}) error {
		return fmt.Errorf("%s: %s", c.Kind, fmt.Sprintf(f, args...))
	}
	for _, s := range c.Syms {
		if s == nil {
			return bad("nil symbol")
		}
	}
	switch c.Kind {
	case TableEq, PredicateEq, AttrsEq:
		if len(c.Syms) != 2 {
			return bad("takes 2 symbols, found %d", len(c.Syms))
		}
		a, b := c.Syms[0].Kind, c.Syms[1].Kind
		if a != b {
			return bad("symbols of different kinds %s and %s", a, b)
		}
		switch c.Kind {
		case TableEq:
			if a != fragment.Table {
				return bad("%s symbol", a)
			}
		case PredicateEq:
			if a != fragment.Pred {
				return bad("%s symbol", a)
			}
		default:
			if !a.AttrLike() {
				return bad("%s symbol", a)
			}
		}
	case PickFrom:
		if len(c.Syms) < 2 {
			return bad("needs a target and at least one source")
		}
		if !c.Syms[0].Kind.AttrLike() {
			return bad("target is a %s symbol", c.Syms[0].Kind)
		}
		for _, s := range c.Syms[1:] {
			if s.Kind != fragment.Table && !s.Kind.AttrLike() {
				return bad("source is a %s symbol", s.Kind)
			}
		}
	case Reference:
		if len(c.Syms) != 4 {
			return bad("takes 4 symbols, found %d", len(c.Syms))
		}
		want := []fragment.SymbolKind{fragment.Table, fragment.Attrs, fragment.Table, fragment.Attrs}
		for i, s := range c.Syms {
			if s.Kind != want[i] {
				return bad("symbol %d is a %s, want %s", i, s.Kind, want[i])
			}
		}
	default:
		return fmt.Errorf("unknown constraint kind %d", c.Kind)
	}
	return nil
}

// Equal reports whether a and b relate the same
// symbols. Equalities are symmetric.
func Equal(a, b Constraint) bool {
	if a.Kind != b.Kind || len(a.Syms) != len(b.Syms) {
		return false
	}
	if a.Kind.IsEq() && a.Syms[0] == b.Syms[1] && a.Syms[1] == b.Syms[0] {
		return true
	}
	for i := range a.Syms {
		if a.Syms[i] != b.Syms[i] {
			return false
		}
	}
	return true
}

// Format returns the textual form of c, e.g. "(TableEq t0 t1)".
func (c Constraint) Format(n *fragment.Naming) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(c.Kind.String())
	for _, s := range c.Syms {
		b.WriteByte(' ')
		b.WriteString(n.Name(s))
	}
	b.WriteByte(')')
	return b.String()
}

// Decode parses the textual form of a constraint,
// resolving symbol names through sc.
func Decode(v rules.Value, sc fragment.Scope) (Constraint, error) {
	head, args, err := rules.Split(v, "a constraint")
	if err != nil {
		return Constraint{}, err
	}
	k, ok := kindNamed(head.Name)
	if !ok {
		return Constraint{}, fmt.Errorf("%s: unknown constraint %q", head.Location, head.Name)
	}
	c := Constraint{Kind: k}
	for i := range args {
		t := &args[i]
		name, ok := t.Ident()
		if !ok {
			return Constraint{}, fmt.Errorf("%s: expected a symbol, found %s", t.Location, t.String())
		}
		s, err := sc.Lookup(name)
		if err != nil {
			return Constraint{}, fmt.Errorf("%s: %w", t.Location, err)
		}
		c.Syms = append(c.Syms, s)
	}
	if err := c.Check(); err != nil {
		return Constraint{}, fmt.Errorf("%s: %w", head.Location, err)
	}
	return c, nil
}
