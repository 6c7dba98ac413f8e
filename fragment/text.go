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
	"fmt"
	"strconv"
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/rules"
)

// Naming assigns textual names to symbols: the
// kind prefix followed by a per-kind index, in
// order of first request.
type Naming struct {
	names map[*Symbol]string
	next  [numSymbolKinds]int
}

// NewNaming returns a Naming that has already
// named the symbols of each of frags in order.
func NewNaming(frags ...*Fragment) *Naming {
	n := &Naming{names: make(map[*Symbol]string)}
	for _, f := range frags {
		for _, s := range f.Symbols() {
			n.Name(s)
		}
	}
	return n
}

// Name returns the name of s, assigning one if needed.
func (n *Naming) Name(s *Symbol) string {
	if name, ok := n.names[s]; ok {
		return name
	}
	name := string(s.Kind.Prefix()) + strconv.Itoa(n.next[s.Kind])
	n.next[s.Kind]++
	n.names[s] = name
	return name
}

// Format returns the textual form of the tree
// rooted at op, e.g. "(p a0 (j a1 a2 (i t0) (i t1)))".
func Format(op *Op, n *Naming) string {
	var b strings.Builder
	format(&b, op, n)
	return b.String()
}

func format(b *strings.Builder, op *Op, n *Naming) {
	b.WriteByte('(')
	b.WriteByte(op.Token())
	for _, s := range op.Syms {
		b.WriteByte(' ')
		b.WriteString(n.Name(s))
	}
	for _, in := range op.Inputs {
		b.WriteByte(' ')
		format(b, in, n)
	}
	b.WriteByte(')')
}

// String implements fmt.Stringer
func (f *Fragment) String() string { return Format(f.Root, NewNaming(f)) }

// Scope maps symbol names to symbols while decoding.
// Symbols named in one scope are shared by every
// fragment and constraint decoded through it.
type Scope map[string]*Symbol

// Lookup returns the symbol called name, creating it
// if needed. The kind is taken from the name's prefix
// and must match want when want is valid.
func (sc Scope) Lookup(name string) (*Symbol, error) {
	if len(name) < 2 {
		return nil, fmt.Errorf("bad symbol name %q", name)
	}
	k, ok := symbolKindOf(name[0])
	if !ok {
		return nil, fmt.Errorf("bad symbol name %q", name)
	}
	if _, err := strconv.Atoi(name[1:]); err != nil {
		return nil, fmt.Errorf("bad symbol name %q", name)
	}
	if s, ok := sc[name]; ok {
		return s, nil
	}
	s := &Symbol{Kind: k}
	sc[name] = s
	return s, nil
}

// Decode builds an unsealed operator tree from
// its textual form (see Format).
func Decode(v rules.Value, sc Scope) (*Op, error) {
	head, rest, err := rules.Split(v, "an operator")
	if err != nil {
		return nil, err
	}
	kind, dedup, ok := kindOf(head.Name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown operator %q", head.Location, head.Name)
	}
	op := &Op{Kind: kind, Dedup: dedup}
	slots := kind.Slots()
	if len(rest) != len(slots)+kind.Arity() {
		return nil, fmt.Errorf("%s: %s takes %d symbols and %d inputs", head.Location, kind, len(slots), kind.Arity())
	}
	for i, sk := range slots {
		t := &rest[i]
		name, ok := t.Ident()
		if !ok {
			return nil, fmt.Errorf("%s: expected a symbol, found %s", t.Location, t.String())
		}
		s, err := sc.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Location, err)
		}
		if s.Kind != sk {
			return nil, fmt.Errorf("%s: %s needs a %s symbol, found %s", t.Location, kind, sk, t.Name)
		}
		op.Syms = append(op.Syms, s)
	}
	for i := range rest[len(slots):] {
		t := &rest[len(slots)+i]
		if t.Name != "" {
			return nil, fmt.Errorf("%s: expected an input operator, found %s", t.Location, t.String())
		}
		in, err := Decode(t.Value, sc)
		if err != nil {
			return nil, err
		}
		op.Inputs = append(op.Inputs, in)
	}
	return op, nil
}

// Parse decodes and seals a single fragment
// in a scope of its own.
func Parse(text string) (*Fragment, error) {
	v, err := rules.ParseValue("fragment", strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	op, err := Decode(v, make(Scope))
	if err != nil {
		return nil, err
	}
	return New(op)
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Fragment {
	f, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return f
}
