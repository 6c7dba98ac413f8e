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

// Conjunction is the product
//
//	sum{Vars}(Tables * Preds * not(Neg) * ||Squash||)
//
// where Neg and Squash are optional.
// A Conjunction must not be modified once built;
// use MakeConjunction to construct one.
type Conjunction struct {
	Vars   []*Tuple
	Tables []TableAtom
	Preds  []PredAtom
	Neg    *Disjunction
	Squash *Disjunction
}

// Disjunction is a sum of conjunctions.
// The empty Disjunction is zero.
type Disjunction struct {
	Terms []*Conjunction
}

// MakeConjunction builds a conjunction, dropping
// every variable in vars that is not used by one
// of the atoms or sub-disjunctions.
func MakeConjunction(vars []*Tuple, tables []TableAtom, preds []PredAtom, neg, squash *Disjunction) *Conjunction {
	c := &Conjunction{Tables: tables, Preds: preds, Neg: neg, Squash: squash}
	for _, v := range vars {
		if !c.Uses(v) || containsVar(c.Vars, v) {
			continue
		}
		c.Vars = append(c.Vars, v)
	}
	return c
}

func containsVar(lst []*Tuple, v *Tuple) bool {
	for _, x := range lst {
		if x.Equal(v) {
			return true
		}
	}
	return false
}

// Zero returns the empty sum.
func Zero() *Disjunction { return &Disjunction{} }

// One returns the sum holding only the empty product.
func One() *Disjunction { return &Disjunction{Terms: []*Conjunction{{}}} }

// IsZero reports whether d has no terms.
func (d *Disjunction) IsZero() bool { return d == nil || len(d.Terms) == 0 }

// IsUnit reports whether c is the empty product.
func (c *Conjunction) IsUnit() bool {
	return len(c.Vars) == 0 && len(c.Tables) == 0 && len(c.Preds) == 0 &&
		c.Neg == nil && c.Squash == nil
}

// Boolean reports whether c can only evaluate to 0 or 1,
// i.e. it has no bound variables and no table atoms
// outside of its squashed or negated parts.
func (c *Conjunction) Boolean() bool {
	return len(c.Vars) == 0 && len(c.Tables) == 0
}

// Bound reports whether v is one of the variables bound by c.
func (c *Conjunction) Bound(v *Tuple) bool { return containsVar(c.Vars, v) }

// Uses reports whether v occurs anywhere in c.
func (c *Conjunction) Uses(v *Tuple) bool {
	for i := range c.Tables {
		if c.Tables[i].Tuple.Uses(v) {
			return true
		}
	}
	for i := range c.Preds {
		if c.Preds[i].Uses(v) {
			return true
		}
	}
	return c.Neg.Uses(v) || c.Squash.Uses(v)
}

// UsesAny reports whether any of vars occurs in c.
func (c *Conjunction) UsesAny(vars []*Tuple) bool {
	for _, v := range vars {
		if c.Uses(v) {
			return true
		}
	}
	return false
}

// Uses reports whether v occurs in any term of d.
func (d *Disjunction) Uses(v *Tuple) bool {
	if d == nil {
		return false
	}
	for _, c := range d.Terms {
		if c.Uses(v) {
			return true
		}
	}
	return false
}

// Subst replaces target with rep everywhere in c.
// A bound variable equal to target is renamed when rep
// is a variable and unbound otherwise. Subst returns c
// itself when target does not occur.
func (c *Conjunction) Subst(target, rep *Tuple) *Conjunction {
	changed := false
	vars := c.Vars
	for i, v := range c.Vars {
		if !v.Equal(target) {
			continue
		}
		changed = true
		vars = append([]*Tuple(nil), c.Vars[:i]...)
		if rep.IsVar() {
			vars = append(vars, rep)
		}
		vars = append(vars, c.Vars[i+1:]...)
		break
	}
	tables := c.Tables
	tablesCopied := false
	for i := range c.Tables {
		a, ok := c.Tables[i].Subst(target, rep)
		if !ok {
			continue
		}
		if !tablesCopied {
			tables = append([]TableAtom(nil), c.Tables...)
			tablesCopied = true
		}
		changed = true
		tables[i] = a
	}
	preds := c.Preds
	predsCopied := false
	for i := range c.Preds {
		p, ok := c.Preds[i].Subst(target, rep)
		if !ok {
			continue
		}
		if !predsCopied {
			preds = append([]PredAtom(nil), c.Preds...)
			predsCopied = true
		}
		changed = true
		preds[i] = p
	}
	neg := c.Neg.Subst(target, rep)
	squash := c.Squash.Subst(target, rep)
	if !changed && neg == c.Neg && squash == c.Squash {
		return c
	}
	return MakeConjunction(vars, tables, preds, neg, squash)
}

// Bind removes the bound variable v from c and replaces
// it with rep everywhere. Unlike Subst, rep never becomes
// bound by c: a variable that is free in c stays free.
func (c *Conjunction) Bind(v, rep *Tuple) *Conjunction {
	vars := make([]*Tuple, 0, len(c.Vars))
	for _, x := range c.Vars {
		if !x.Equal(v) {
			vars = append(vars, x)
		}
	}
	out := MakeConjunction(vars, c.Tables, c.Preds, c.Neg, c.Squash)
	return out.Map(func(t *Tuple) *Tuple { return Subst(t, v, rep) })
}

// Subst applies Conjunction.Subst to every term of d.
func (d *Disjunction) Subst(target, rep *Tuple) *Disjunction {
	if d == nil {
		return nil
	}
	var terms []*Conjunction
	for i, c := range d.Terms {
		n := c.Subst(target, rep)
		if n != c && terms == nil {
			terms = make([]*Conjunction, len(d.Terms))
			copy(terms, d.Terms[:i])
		}
		if terms != nil {
			terms[i] = n
		}
	}
	if terms == nil {
		return d
	}
	return &Disjunction{Terms: terms}
}

// String implements fmt.Stringer
func (c *Conjunction) String() string {
	var b strings.Builder
	c.write(&b)
	return b.String()
}

func (c *Conjunction) write(b *strings.Builder) {
	if c.IsUnit() {
		b.WriteString("1")
		return
	}
	if len(c.Vars) > 0 {
		b.WriteString("sum{")
		for i, v := range c.Vars {
			if i > 0 {
				b.WriteByte(',')
			}
			v.write(b)
		}
		b.WriteString("}(")
	}
	n := 0
	sep := func() {
		if n > 0 {
			b.WriteString(" * ")
		}
		n++
	}
	for i := range c.Tables {
		sep()
		b.WriteString(c.Tables[i].String())
	}
	for i := range c.Preds {
		sep()
		b.WriteString(c.Preds[i].String())
	}
	if c.Neg != nil {
		sep()
		b.WriteString("not(")
		c.Neg.write(b)
		b.WriteByte(')')
	}
	if c.Squash != nil {
		sep()
		b.WriteString("||")
		c.Squash.write(b)
		b.WriteString("||")
	}
	if len(c.Vars) > 0 {
		b.WriteByte(')')
	}
}

// String implements fmt.Stringer
func (d *Disjunction) String() string {
	var b strings.Builder
	d.write(&b)
	return b.String()
}

func (d *Disjunction) write(b *strings.Builder) {
	if d.IsZero() {
		b.WriteString("0")
		return
	}
	for i, c := range d.Terms {
		if i > 0 {
			b.WriteString(" + ")
		}
		c.write(b)
	}
}
