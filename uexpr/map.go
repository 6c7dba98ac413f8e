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

// Map returns c with f applied to every tuple argument
// of its atoms, including those of its negated and
// squashed parts. Bound variables no longer used
// afterwards are dropped. Map returns c itself when
// f changes nothing.
func (c *Conjunction) Map(f func(*Tuple) *Tuple) *Conjunction {
	changed := false
	tables := make([]TableAtom, len(c.Tables))
	for i, a := range c.Tables {
		t := f(a.Tuple)
		if t != a.Tuple {
			changed = true
			a.Tuple = t
		}
		tables[i] = a
	}
	preds := make([]PredAtom, len(c.Preds))
	for i, p := range c.Preds {
		var args []*Tuple
		for j, a := range p.Args {
			t := f(a)
			if t != a && args == nil {
				args = append([]*Tuple(nil), p.Args...)
			}
			if args != nil {
				args[j] = t
			}
		}
		if args != nil {
			changed = true
			p.Args = args
		}
		preds[i] = p
	}
	neg := c.Neg.Map(f)
	squash := c.Squash.Map(f)
	if !changed && neg == c.Neg && squash == c.Squash {
		return c
	}
	return MakeConjunction(c.Vars, tables, preds, neg, squash)
}

// Map applies Conjunction.Map to every term of d.
func (d *Disjunction) Map(f func(*Tuple) *Tuple) *Disjunction {
	if d == nil {
		return nil
	}
	var terms []*Conjunction
	for i, c := range d.Terms {
		n := c.Map(f)
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

// Tuples calls fn for every tuple argument in c,
// including those of its negated and squashed parts.
func (c *Conjunction) Tuples(fn func(*Tuple)) {
	for i := range c.Tables {
		fn(c.Tables[i].Tuple)
	}
	for i := range c.Preds {
		for _, a := range c.Preds[i].Args {
			fn(a)
		}
	}
	for _, d := range []*Disjunction{c.Neg, c.Squash} {
		if d == nil {
			continue
		}
		for _, t := range d.Terms {
			t.Tuples(fn)
		}
	}
}
