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
	"github.com/GitOfCharlie/WeTune-mirror-sub001/uexpr"
)

// top returns the formula for the predicates, negation
// and squash of c. The bound variables and table atoms
// of c are the caller's concern.
func (r *run) top(c *uexpr.Conjunction, sc scope, memo *Memo) (*Formula, *Memo) {
	return r.parts(c.Preds, c.Neg, c.Squash, sc, memo)
}

func (r *run) parts(preds []uexpr.PredAtom, neg, squash *uexpr.Disjunction, sc scope, memo *Memo) (*Formula, *Memo) {
	var fs []*Formula
	for _, p := range preds {
		var f *Formula
		f, memo = r.pred(p, memo)
		fs = append(fs, f)
	}
	if neg != nil {
		// not(x + y) = not(x) * not(y)
		for _, t := range neg.Terms {
			var f *Formula
			f, memo = r.holds(t, sc, memo)
			fs = append(fs, Not(f))
		}
	}
	if squash != nil {
		var alts []*Formula
		for _, t := range squash.Terms {
			var f *Formula
			f, memo = r.holds(t, sc, memo)
			alts = append(alts, f)
		}
		fs = append(fs, Or(alts...))
	}
	return And(fs...), memo
}

func (r *run) pred(p uexpr.PredAtom, memo *Memo) (*Formula, *Memo) {
	if p.Trivial() {
		return True(), memo
	}
	if p.Kind == uexpr.EqPred && p.Args[0].Kind() == uexpr.ConstTuple &&
		p.Args[1].Kind() == uexpr.ConstTuple {
		return False(), memo
	}
	memo, prop := memo.Pred(p)
	return Atom(prop), memo
}

// holds returns the formula under which c is non-zero.
// The bound variables of c are existentially quantified;
// conjunctions that still bind variables are split with
// uexpr.Distribute and their cores become propositions.
func (r *run) holds(c *uexpr.Conjunction, sc scope, memo *Memo) (*Formula, *Memo) {
	if len(c.Vars) == 0 {
		var fs []*Formula
		for _, t := range c.Tables {
			var prop Prop
			memo, prop = memo.Table(t)
			fs = append(fs, Atom(prop))
		}
		f, m := r.parts(c.Preds, c.Neg, c.Squash, sc.with(nil, c.Tables), memo)
		return And(append(fs, f)...), m
	}
	var alts []*Formula
	for _, a := range uexpr.Distribute(c, c.Vars) {
		var fc *Formula
		fc, memo = r.holds(a.Const, sc, memo)
		fe := True()
		if a.Core != nil {
			fe, memo = r.exists(a.Core, sc.with(nil, a.Const.Tables), memo)
		}
		alts = append(alts, And(fc, fe))
	}
	return Or(alts...), memo
}

// exists returns the proposition for the existential
// core c. Cores that are equal up to renaming of their
// bound variables share a proposition.
func (r *run) exists(c *uexpr.Conjunction, sc scope, memo *Memo) (*Formula, *Memo) {
	c = canonical(c, sc.fixed)
	if r.referenced(c, sc) {
		return True(), memo
	}
	for e := memo; e != nil; e = e.prev {
		if e.entry.core == nil {
			continue
		}
		if ok, m := r.sameCore(c, e.entry.core, sc, memo); ok {
			return Atom(e.prop), m
		}
	}
	memo, prop := memo.extend(entry{core: c})
	return Atom(prop), memo
}

// sameCore reports whether the existential
// cores a and b hold for the same values
// of the variables in sc.
func (r *run) sameCore(a, b *uexpr.Conjunction, sc scope, memo *Memo) (bool, *Memo) {
	if len(a.Vars) != len(b.Vars) || !sameNames(a.Tables, b.Tables, true) {
		return false, memo
	}
	found, out := false, memo
	r.renamings(a, b, func(rb *uexpr.Conjunction) bool {
		inner := sc.with(a.Vars, nil)
		ka, kb := canonical(a, sc.fixed), canonical(rb, sc.fixed)
		fa, m := r.holds(body(ka), inner, memo)
		fb, m := r.holds(body(kb), inner, m)
		if Tautology(Iff(fa, fb)) {
			found, out = true, m
			return true
		}
		return false
	})
	return found, out
}

// body returns c without its bound variables.
func body(c *uexpr.Conjunction) *uexpr.Conjunction {
	return &uexpr.Conjunction{Tables: c.Tables, Preds: c.Preds, Neg: c.Neg, Squash: c.Squash}
}

// referenced reports whether c has the form
//
//	sum{y}(T2(y) * [y.b1 = x.a1] * ... * [y.bn = x.an])
//
// where T1(x) holds in sc and a declared reference
// from T1(a1..an) to T2(b1..bn) guarantees such a y.
func (r *run) referenced(c *uexpr.Conjunction, sc scope) bool {
	if len(r.References) == 0 || len(c.Vars) != 1 || len(c.Tables) != 1 ||
		c.Neg != nil || c.Squash != nil || len(c.Preds) == 0 {
		return false
	}
	y := c.Vars[0]
	target := c.Tables[0]
	if !target.Tuple.Equal(y) {
		return false
	}
	var src *uexpr.Tuple
	pairs := make(map[string]string) // source column -> target column
	for _, p := range c.Preds {
		if p.Kind != uexpr.EqPred {
			return false
		}
		a, b := p.Args[0], p.Args[1]
		if b.Kind() == uexpr.ProjTuple && b.Base().Equal(y) {
			a, b = b, a
		}
		if a.Kind() != uexpr.ProjTuple || !a.Base().Equal(y) ||
			b.Kind() != uexpr.ProjTuple || b.Uses(y) {
			return false
		}
		if src == nil {
			src = b.Base()
		} else if !src.Equal(b.Base()) {
			return false
		}
		pairs[b.Name()] = a.Name()
	}
	for _, k := range sc.known {
		if !k.Tuple.Equal(src) {
			continue
		}
		for i := range r.References {
			ref := &r.References[i]
			if ref.From != k.Name || ref.To != target.Name || len(ref.FromCols) != len(pairs) {
				continue
			}
			ok := true
			for j := range ref.FromCols {
				if pairs[ref.FromCols[j]] != ref.ToCols[j] {
					ok = false
					break
				}
			}
			if ok {
				return true
			}
		}
	}
	return false
}
