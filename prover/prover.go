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

// Package prover decides whether two U-expressions
// are equal under every interpretation of their tables
// and uninterpreted predicates.
//
// The procedure is sound but incomplete: Equivalent
// only returns true when it has found a proof.
// Terms on both sides are paired up one to one; paired
// terms must agree on their table atoms after renaming
// their bound variables, and their remaining boolean
// parts are reduced to propositional formulas whose
// equivalence is checked as a tautology. Propositions
// are handed out by a Memo shared by both sides.
package prover

import (
	"fmt"
	"sort"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/uexpr"
)

// Reference declares a foreign key: every row of
// table From has a row in table To whose ToCols
// equal its FromCols.
type Reference struct {
	From     string
	FromCols []string
	To       string
	ToCols   []string
}

// DefaultMaxVars is the default bound on the number
// of bound variables whose renamings are enumerated
// when two terms are compared.
const DefaultMaxVars = 7

// Prover holds the axioms and limits of a proof.
// The zero value proves without axioms.
type Prover struct {
	// References are foreign keys assumed to hold.
	References []Reference
	// MaxVars bounds the renamings tried per
	// term; zero means DefaultMaxVars.
	MaxVars int
}

// Equivalent is shorthand for a Prover without axioms.
func Equivalent(a, b *uexpr.Disjunction, fixed []*uexpr.Tuple) bool {
	return (&Prover{}).Equivalent(a, b, fixed)
}

// run is the state of one proof.
type run struct {
	*Prover
	fixed []*uexpr.Tuple
	next  int // fresh variable counter
}

// scope is the context a boolean term is evaluated in.
type scope struct {
	fixed []*uexpr.Tuple    // variables treated as constants
	known []uexpr.TableAtom // table atoms that hold here
}

func (s scope) with(vars []*uexpr.Tuple, known []uexpr.TableAtom) scope {
	return scope{
		fixed: append(append([]*uexpr.Tuple(nil), s.fixed...), vars...),
		known: append(append([]uexpr.TableAtom(nil), s.known...), known...),
	}
}

// Equivalent reports whether a and b are provably equal
// for every value of the variables in fixed.
func (p *Prover) Equivalent(a, b *uexpr.Disjunction, fixed []*uexpr.Tuple) bool {
	r := &run{Prover: p, fixed: fixed}
	sc := scope{fixed: fixed}
	var memo *Memo
	ta, memo := r.prepare(a, sc, memo)
	tb, memo := r.prepare(b, sc, memo)
	if len(ta) != len(tb) {
		return false
	}
	ok, _ := r.pair(ta, tb, make([]bool, len(tb)), sc, memo)
	return ok
}

// prepare brings every term of d into the form used
// for comparison and drops terms that cannot hold.
func (r *run) prepare(d *uexpr.Disjunction, sc scope, memo *Memo) ([]*uexpr.Conjunction, *Memo) {
	var out []*uexpr.Conjunction
	if d == nil {
		return nil, memo
	}
	for _, c := range d.Terms {
		c = r.uniq(c)
		c = eliminate(c)
		if c == nil {
			continue
		}
		f, m := r.top(c, sc.with(c.Vars, c.Tables), memo)
		if !Satisfiable(f) {
			continue
		}
		memo = m
		out = append(out, c)
	}
	return out, memo
}

// pair looks for a one-to-one pairing of the terms
// in a with the terms in b such that paired terms are equal.
func (r *run) pair(a, b []*uexpr.Conjunction, used []bool, sc scope, memo *Memo) (bool, *Memo) {
	if len(a) == 0 {
		return true, memo
	}
	for j := range b {
		if used[j] {
			continue
		}
		ok, m := r.sameTerm(a[0], b[j], sc, memo)
		if !ok {
			continue
		}
		used[j] = true
		if ok, m = r.pair(a[1:], b, used, sc, m); ok {
			return true, m
		}
		used[j] = false
	}
	return false, memo
}

// uniq gives every variable bound anywhere in c
// a name that is unique within the run.
func (r *run) uniq(c *uexpr.Conjunction) *uexpr.Conjunction {
	neg, squash := r.uniqDisj(c.Neg), r.uniqDisj(c.Squash)
	if neg != c.Neg || squash != c.Squash {
		c = uexpr.MakeConjunction(c.Vars, c.Tables, c.Preds, neg, squash)
	}
	for _, v := range c.Vars {
		c = c.Subst(v, uexpr.Var(fmt.Sprintf("%%%d", r.next)))
		r.next++
	}
	return c
}

func (r *run) uniqDisj(d *uexpr.Disjunction) *uexpr.Disjunction {
	if d == nil {
		return nil
	}
	out := &uexpr.Disjunction{Terms: make([]*uexpr.Conjunction, len(d.Terms))}
	for i, c := range d.Terms {
		out.Terms[i] = r.uniq(c)
	}
	return out
}

// eliminate removes bound variables that are equated
// with another tuple by substituting that tuple for them,
// drops trivially true equalities, and returns nil when
// c contains an equality between distinct constants.
// Nested terms are processed first.
func eliminate(c *uexpr.Conjunction) *uexpr.Conjunction {
	neg, squash := eliminateDisj(c.Neg), eliminateDisj(c.Squash)
	if squash != nil && squash.IsZero() {
		return nil
	}
	if neg != nil && neg.IsZero() {
		neg = nil
	}
	if neg != c.Neg || squash != c.Squash {
		c = uexpr.MakeConjunction(c.Vars, c.Tables, c.Preds, neg, squash)
	}
	for {
		var (
			v, rep *uexpr.Tuple
			idx    int
		)
		for i, p := range c.Preds {
			if p.Kind != uexpr.EqPred {
				continue
			}
			a, b := p.Args[0], p.Args[1]
			switch {
			case a.IsVar() && c.Bound(a) && !b.Uses(a):
				v, rep = a, b
			case b.IsVar() && c.Bound(b) && !a.Uses(b):
				v, rep = b, a
			default:
				continue
			}
			idx = i
			break
		}
		if v == nil {
			if n := eliminateRows(c); n != c {
				c = n
				continue
			}
			break
		}
		preds := append(append([]uexpr.PredAtom(nil), c.Preds[:idx]...), c.Preds[idx+1:]...)
		c = uexpr.MakeConjunction(c.Vars, c.Tables, preds, c.Neg, c.Squash).Bind(v, rep)
	}
	var preds []uexpr.PredAtom
	for _, p := range c.Preds {
		if p.Trivial() {
			continue
		}
		if p.Kind == uexpr.EqPred && p.Args[0].Kind() == uexpr.ConstTuple &&
			p.Args[1].Kind() == uexpr.ConstTuple {
			return nil
		}
		preds = append(preds, p)
	}
	if len(preds) != len(c.Preds) {
		c = uexpr.MakeConjunction(c.Vars, c.Tables, preds, c.Neg, c.Squash)
	}
	return c
}

// eliminateRows replaces a bound variable that never
// fills a table atom, and is therefore a derived row
// determined by its attributes, with the tuples its
// attributes are equated with. This only happens when
// every use of the variable is a defined attribute.
func eliminateRows(c *uexpr.Conjunction) *uexpr.Conjunction {
	for _, v := range c.Vars {
		defs := make(map[string]*uexpr.Tuple)
		var keep []uexpr.PredAtom
		for _, p := range c.Preds {
			if p.Kind == uexpr.EqPred {
				a, b := p.Args[0], p.Args[1]
				if attrOf(b, v) {
					a, b = b, a
				}
				if attrOf(a, v) && !b.Uses(v) && defs[a.Name()] == nil {
					defs[a.Name()] = b
					continue
				}
			}
			keep = append(keep, p)
		}
		if len(defs) == 0 {
			continue
		}
		ok := true
		c.Tuples(func(t *uexpr.Tuple) {
			if !t.Uses(v) {
				return
			}
			if a, proj := rowAttr(t, v); !proj || defs[a] == nil {
				ok = false
			}
		})
		if !ok {
			continue
		}
		return uexpr.MakeConjunction(c.Vars, c.Tables, keep, c.Neg, c.Squash).Map(func(t *uexpr.Tuple) *uexpr.Tuple {
			return replaceRow(t, v, defs)
		})
	}
	return c
}

func attrOf(t, v *uexpr.Tuple) bool {
	return t.Kind() == uexpr.ProjTuple && t.Base().Equal(v)
}

// rowAttr returns the attribute of v that t
// is a projection of.
func rowAttr(t, v *uexpr.Tuple) (string, bool) {
	if t.Kind() != uexpr.ProjTuple {
		return "", false
	}
	if t.Base().Equal(v) {
		return t.Name(), true
	}
	return rowAttr(t.Base(), v)
}

func replaceRow(t, v *uexpr.Tuple, defs map[string]*uexpr.Tuple) *uexpr.Tuple {
	if t.Kind() != uexpr.ProjTuple {
		return t
	}
	if t.Base().Equal(v) {
		if d, ok := defs[t.Name()]; ok {
			return d
		}
		return t
	}
	b := replaceRow(t.Base(), v, defs)
	if b == t.Base() {
		return t
	}
	return b.Proj(t.Name())
}

func eliminateDisj(d *uexpr.Disjunction) *uexpr.Disjunction {
	if d == nil {
		return nil
	}
	out := &uexpr.Disjunction{}
	changed := false
	for _, c := range d.Terms {
		n := eliminate(c)
		if n != c {
			changed = true
		}
		if n != nil {
			out.Terms = append(out.Terms, n)
		}
	}
	if !changed {
		return d
	}
	return out
}

// sameTerm reports whether a and b are equal for every
// value of the variables in sc: the bound variables of b
// must be renamable to those of a such that both have the
// same table atoms and equivalent boolean parts.
func (r *run) sameTerm(a, b *uexpr.Conjunction, sc scope, memo *Memo) (bool, *Memo) {
	if len(a.Vars) != len(b.Vars) || len(a.Tables) != len(b.Tables) {
		return false, memo
	}
	if !sameNames(a.Tables, b.Tables, false) {
		return false, memo
	}
	found, out := false, memo
	r.renamings(a, b, func(rb *uexpr.Conjunction) bool {
		inner := sc.with(a.Vars, nil)
		ka, kb := canonical(a, sc.fixed), canonical(rb, sc.fixed)
		if !sameTables(ka.Tables, kb.Tables) {
			return false
		}
		fa, m := r.top(ka, inner.with(nil, ka.Tables), memo)
		fb, m := r.top(kb, inner.with(nil, kb.Tables), m)
		if Tautology(Iff(fa, fb)) {
			found, out = true, m
			return true
		}
		return false
	})
	return found, out
}

// renamings calls fn with b renamed so that its bound
// variables are those of a, once per plausible bijection,
// until fn returns true.
func (r *run) renamings(a, b *uexpr.Conjunction, fn func(*uexpr.Conjunction) bool) {
	max := r.MaxVars
	if max == 0 {
		max = DefaultMaxVars
	}
	n := len(a.Vars)
	if n == 0 {
		fn(b)
		return
	}
	if n > max {
		return
	}
	sigA := make([]string, n)
	sigB := make([]string, n)
	for i := range a.Vars {
		sigA[i] = signature(a, a.Vars[i])
		sigB[i] = signature(b, b.Vars[i])
	}
	perm := make([]int, n) // perm[i] is the var of a that b.Vars[i] becomes
	taken := make([]bool, n)
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == n {
			return fn(rename(b, a.Vars, perm))
		}
		for j := 0; j < n; j++ {
			if taken[j] || sigA[j] != sigB[i] {
				continue
			}
			taken[j] = true
			perm[i] = j
			if rec(i + 1) {
				return true
			}
			taken[j] = false
		}
		return false
	}
	rec(0)
}

// rename returns b with b.Vars[i] renamed to to[perm[i]].
func rename(b *uexpr.Conjunction, to []*uexpr.Tuple, perm []int) *uexpr.Conjunction {
	tmp := make([]*uexpr.Tuple, len(perm))
	vars := append([]*uexpr.Tuple(nil), b.Vars...)
	for i, v := range vars {
		tmp[i] = uexpr.Var(fmt.Sprintf("%%tmp%d", i))
		b = b.Subst(v, tmp[i])
	}
	for i := range vars {
		b = b.Subst(tmp[i], to[perm[i]])
	}
	return b
}

// signature summarizes how v is used by the table
// atoms of c, which any renaming must preserve.
func signature(c *uexpr.Conjunction, v *uexpr.Tuple) string {
	var names []string
	for _, t := range c.Tables {
		if t.Tuple.Uses(v) {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}

// sameNames reports whether a and b name the same
// tables, as multisets or, when set is true, as sets.
func sameNames(a, b []uexpr.TableAtom, set bool) bool {
	na := make(map[string]int)
	for _, t := range a {
		na[t.Name]++
	}
	nb := make(map[string]int)
	for _, t := range b {
		nb[t.Name]++
	}
	if len(na) != len(nb) {
		return false
	}
	for k, n := range na {
		m, ok := nb[k]
		if !ok || (!set && m != n) {
			return false
		}
	}
	return true
}

// sameTables reports whether a and b hold the
// same table atoms as multisets.
func sameTables(a, b []uexpr.TableAtom) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for i := range a {
		for j := range b {
			if !used[j] && a[i].Equal(b[j]) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}
