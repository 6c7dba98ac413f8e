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
	"sort"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/congruence"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/uexpr"
)

// canonical rewrites the top-level equalities of c into
// a canonical form: tuples known to be equal are replaced
// by one representative everywhere, and the equalities
// themselves are restated as [rep = member] for every
// other member of each class.
func canonical(c *uexpr.Conjunction, fixed []*uexpr.Tuple) *uexpr.Conjunction {
	var cg congruence.Congruence[string]
	byKey := make(map[string]*uexpr.Tuple)
	add := func(t *uexpr.Tuple) string {
		k := t.String()
		if _, ok := byKey[k]; !ok {
			byKey[k] = t
		}
		return k
	}
	for _, p := range c.Preds {
		if p.Kind == uexpr.EqPred {
			cg.Union(add(p.Args[0]), add(p.Args[1]))
		}
	}
	if cg.Len() == 0 {
		return c
	}
	// every projection mentioned in c takes part
	// in the congruence closure below
	var projs []*uexpr.Tuple
	c.Tuples(func(t *uexpr.Tuple) {
		for ; t.Kind() == uexpr.ProjTuple; t = t.Base() {
			if _, ok := byKey[t.String()]; !ok {
				add(t)
				projs = append(projs, t)
			}
		}
	})
	for _, t := range byKey {
		if t.Kind() == uexpr.ProjTuple && !contains(projs, t) {
			projs = append(projs, t)
		}
	}
	sort.Slice(projs, func(i, j int) bool { return projs[i].String() < projs[j].String() })
	for changed := true; changed; {
		changed = false
		for i := range projs {
			for j := i + 1; j < len(projs); j++ {
				p, q := projs[i], projs[j]
				if p.Name() != q.Name() {
					continue
				}
				if cg.Same(p.Base().String(), q.Base().String()) && cg.Union(p.String(), q.String()) {
					changed = true
				}
			}
		}
	}
	classes := congruence.Sorted(&cg)
	if len(classes) == 0 {
		return c
	}
	rep := make(map[string]*uexpr.Tuple)
	var eqs []uexpr.PredAtom
	for _, cl := range classes {
		best := byKey[cl[0]]
		for _, k := range cl[1:] {
			if before(byKey[k], best, fixed) {
				best = byKey[k]
			}
		}
		for _, k := range cl {
			rep[k] = best
			if t := byKey[k]; t != best {
				eqs = append(eqs, uexpr.Eq(best, t))
			}
		}
	}
	var canon func(t *uexpr.Tuple) *uexpr.Tuple
	canon = func(t *uexpr.Tuple) *uexpr.Tuple {
		if r, ok := rep[t.String()]; ok {
			return r
		}
		if t.Kind() != uexpr.ProjTuple {
			return t
		}
		b := canon(t.Base())
		if b == t.Base() {
			return t
		}
		n := b.Proj(t.Name())
		if r, ok := rep[n.String()]; ok {
			return r
		}
		return n
	}
	var preds []uexpr.PredAtom
	for _, p := range c.Preds {
		if p.Kind == uexpr.EqPred {
			continue
		}
		args := make([]*uexpr.Tuple, len(p.Args))
		for i, a := range p.Args {
			args[i] = canon(a)
		}
		preds = append(preds, uexpr.PredAtom{Kind: p.Kind, Name: p.Name, Args: args})
	}
	preds = append(preds, eqs...)
	tables := make([]uexpr.TableAtom, len(c.Tables))
	for i, t := range c.Tables {
		tables[i] = uexpr.TableAtom{Name: t.Name, Tuple: canon(t.Tuple)}
	}
	return uexpr.MakeConjunction(c.Vars, tables, preds, c.Neg.Map(canon), c.Squash.Map(canon))
}

func contains(lst []*uexpr.Tuple, t *uexpr.Tuple) bool {
	for _, x := range lst {
		if x.Equal(t) {
			return true
		}
	}
	return false
}

// rank orders candidate representatives:
// constants first, then tuples over fixed
// variables, then everything else.
func rank(t *uexpr.Tuple, fixed []*uexpr.Tuple) int {
	r := t.Root()
	if r.Kind() == uexpr.ConstTuple {
		return 0
	}
	for _, f := range fixed {
		if r.Equal(f) {
			return 1
		}
	}
	return 2
}

func before(a, b *uexpr.Tuple, fixed []*uexpr.Tuple) bool {
	ra, rb := rank(a, fixed), rank(b, fixed)
	if ra != rb {
		return ra < rb
	}
	sa, sb := a.String(), b.String()
	if len(sa) != len(sb) {
		return len(sa) < len(sb)
	}
	return sa < sb
}
