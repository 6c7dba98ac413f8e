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

// Table returns the single-atom sum T(t).
func Table(name string, t *Tuple) *Disjunction {
	return single(&Conjunction{Tables: []TableAtom{{Name: name, Tuple: t}}})
}

// Pred returns the single-atom sum [p].
func Pred(p PredAtom) *Disjunction {
	if p.Trivial() {
		return One()
	}
	return single(&Conjunction{Preds: []PredAtom{p}})
}

func single(c *Conjunction) *Disjunction {
	return &Disjunction{Terms: []*Conjunction{c}}
}

// Add returns a + b.
func Add(a, b *Disjunction) *Disjunction {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	terms := make([]*Conjunction, 0, len(a.Terms)+len(b.Terms))
	terms = append(terms, a.Terms...)
	terms = append(terms, b.Terms...)
	return &Disjunction{Terms: terms}
}

// Mul returns a * b, distributing the product
// over both sums. Bound variables of one side that
// clash with names on the other side are renamed.
func Mul(a, b *Disjunction) *Disjunction {
	if a.IsZero() || b.IsZero() {
		return Zero()
	}
	out := &Disjunction{}
	for _, x := range a.Terms {
		for _, y := range b.Terms {
			out.Terms = append(out.Terms, mulConj(x, y))
		}
	}
	return out
}

func mulConj(a, b *Conjunction) *Conjunction {
	if a.IsUnit() {
		return b
	}
	if b.IsUnit() {
		return a
	}
	names := make(map[string]bool)
	a.names(names)
	b.names(names)
	an := make(map[string]bool)
	a.names(an)
	for _, v := range b.Vars {
		if an[v.name] {
			b = b.Subst(v, fresh(v, names))
		}
	}
	bn := make(map[string]bool)
	b.names(bn)
	for _, v := range a.Vars {
		if bn[v.name] {
			a = a.Subst(v, fresh(v, names))
		}
	}
	vars := append(append([]*Tuple(nil), a.Vars...), b.Vars...)
	tables := append(append([]TableAtom(nil), a.Tables...), b.Tables...)
	preds := append(append([]PredAtom(nil), a.Preds...), b.Preds...)
	neg := a.Neg
	if b.Neg != nil {
		if neg == nil {
			neg = b.Neg
		} else {
			// not(x) * not(y) = not(x + y)
			neg = Add(neg, b.Neg)
		}
	}
	squash := a.Squash
	if b.Squash != nil {
		if squash == nil {
			squash = b.Squash
		} else {
			// ||x|| * ||y|| = ||x * y||
			squash = Mul(squash, b.Squash)
		}
	}
	return MakeConjunction(vars, tables, preds, neg, squash)
}

// fresh returns a variable named after v that does
// not occur in names, and records the new name.
func fresh(v *Tuple, names map[string]bool) *Tuple {
	n := v.name
	for names[n] {
		n += "'"
	}
	names[n] = true
	return Var(n)
}

// names adds the name of every variable
// mentioned or bound in c to dst.
func (c *Conjunction) names(dst map[string]bool) {
	for _, v := range c.Vars {
		dst[v.name] = true
	}
	root := func(t *Tuple) {
		if r := t.Root(); r.kind == VarTuple {
			dst[r.name] = true
		}
	}
	for i := range c.Tables {
		root(c.Tables[i].Tuple)
	}
	for i := range c.Preds {
		for _, a := range c.Preds[i].Args {
			root(a)
		}
	}
	for _, d := range []*Disjunction{c.Neg, c.Squash} {
		if d == nil {
			continue
		}
		for _, t := range d.Terms {
			t.names(dst)
		}
	}
}

// Sum returns sum{vars}(d), distributing
// the summation over the terms of d.
func Sum(vars []*Tuple, d *Disjunction) *Disjunction {
	out := &Disjunction{}
	for _, c := range d.Terms {
		all := append(append([]*Tuple(nil), c.Vars...), vars...)
		out.Terms = append(out.Terms, MakeConjunction(all, c.Tables, c.Preds, c.Neg, c.Squash))
	}
	return out
}

// Not returns not(d), which is 1 when d is zero
// and 0 otherwise.
func Not(d *Disjunction) *Disjunction {
	if d.IsZero() {
		return One()
	}
	for _, c := range d.Terms {
		if c.IsUnit() {
			return Zero()
		}
	}
	if len(d.Terms) == 1 {
		c := d.Terms[0]
		if c.Neg != nil && len(c.Vars) == 0 && len(c.Tables) == 0 &&
			len(c.Preds) == 0 && c.Squash == nil {
			// not(not(x)) = ||x||
			return Squash(c.Neg)
		}
	}
	return single(&Conjunction{Neg: d})
}

// Squash returns ||d||, which is 1 when d is
// non-zero and 0 otherwise.
func Squash(d *Disjunction) *Disjunction {
	if d.IsZero() {
		return Zero()
	}
	if len(d.Terms) == 1 && d.Terms[0].Boolean() {
		return d
	}
	return single(&Conjunction{Squash: d})
}

// Alternative is one case produced by distributing
// a conjunction over the terms of its squashed sum.
// Const holds the parts that do not mention the local
// variables; Core holds the parts that do, bound by
// those variables. Core is nil when nothing mentions
// a local variable.
type Alternative struct {
	Const *Conjunction
	Core  *Conjunction
}

// Distribute splits c with respect to the variables
// in local. In a boolean context c holds exactly when
// one of the returned alternatives holds, where an
// alternative holds when Const holds and Core is
// satisfiable for some assignment of the local variables.
func Distribute(c *Conjunction, local []*Tuple) []Alternative {
	var constT, coreT []TableAtom
	for _, t := range c.Tables {
		if t.Tuple.usesAny(local) {
			coreT = append(coreT, t)
		} else {
			constT = append(constT, t)
		}
	}
	var constP, coreP []PredAtom
	for _, p := range c.Preds {
		bound := false
		for _, a := range p.Args {
			if a.usesAny(local) {
				bound = true
				break
			}
		}
		if bound {
			coreP = append(coreP, p)
		} else {
			constP = append(constP, p)
		}
	}
	var constN, coreN *Disjunction
	if c.Neg != nil {
		// not(x + y) = not(x) * not(y)
		for _, t := range c.Neg.Terms {
			if t.UsesAny(local) {
				coreN = Add(coreN, single(t))
			} else {
				constN = Add(constN, single(t))
			}
		}
	}
	core := func(squash *Disjunction) *Conjunction {
		k := MakeConjunction(local, coreT, coreP, coreN, squash)
		if k.IsUnit() {
			return nil
		}
		return k
	}
	if c.Squash == nil {
		return []Alternative{{
			Const: MakeConjunction(nil, constT, constP, constN, nil),
			Core:  core(nil),
		}}
	}
	out := make([]Alternative, 0, len(c.Squash.Terms))
	for _, t := range c.Squash.Terms {
		if t.UsesAny(local) {
			out = append(out, Alternative{
				Const: MakeConjunction(nil, constT, constP, constN, nil),
				Core:  core(single(t)),
			})
			continue
		}
		out = append(out, Alternative{
			Const: MakeConjunction(nil, constT, constP, constN, single(t)),
			Core:  core(nil),
		})
	}
	return out
}
