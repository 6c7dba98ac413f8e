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

import "sort"

// DefaultMaxOps is the default bound on the number
// of non-input operators of an enumerated fragment.
const DefaultMaxOps = 4

// DefaultKinds are the operator kinds enumerated by
// default. Proj stands for both of its variants.
var DefaultKinds = []Kind{InnerJoin, LeftJoin, Filter, InSubFilter, Proj, Union}

// Options configures Enumerate.
type Options struct {
	// Kinds are the operator kinds to combine;
	// nil means DefaultKinds.
	Kinds []Kind
	// MaxOps bounds the fragment size;
	// zero means DefaultMaxOps.
	MaxOps int
	// Rules are the pruning rules; nil means
	// DefaultRules. Use an empty non-nil slice
	// to disable pruning.
	Rules []Rule
}

// Enumerate returns every fragment with between one
// and MaxOps operators built from the given kinds, with
// inputs at the leaves and fresh symbols everywhere,
// minus the fragments matched by a pruning rule.
// Unions whose inputs are out of canonical order are
// skipped. Fragments are returned in Compare order.
func Enumerate(opts Options) []*Fragment {
	kinds := opts.Kinds
	if kinds == nil {
		kinds = DefaultKinds
	}
	max := opts.MaxOps
	if max <= 0 {
		max = DefaultMaxOps
	}
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	var protos []*Op
	for _, k := range kinds {
		if k == Input {
			continue
		}
		protos = append(protos, &Op{Kind: k})
		if k == Proj {
			protos = append(protos, &Op{Kind: k, Dedup: true})
		}
	}
	e := &enumerator{protos: protos, memo: map[int][]*Op{0: {{Kind: Input}}}}
	var shapes []*Op
	for n := 1; n <= max; n++ {
		for _, s := range e.shapes(n) {
			if _, pruned := Prune(s, rules); !pruned {
				shapes = append(shapes, s)
			}
		}
	}
	sort.SliceStable(shapes, func(i, j int) bool { return Compare(shapes[i], shapes[j]) < 0 })
	out := make([]*Fragment, len(shapes))
	for i, s := range shapes {
		out[i] = MustNew(withSymbols(s))
	}
	return out
}

type enumerator struct {
	protos []*Op
	memo   map[int][]*Op
}

// shapes returns the symbol-less trees
// with exactly n non-input operators.
func (e *enumerator) shapes(n int) []*Op {
	if s, ok := e.memo[n]; ok {
		return s
	}
	var out []*Op
	for _, p := range e.protos {
		arity := p.Kind.Arity()
		for _, parts := range compositions(n-1, arity) {
			for _, ins := range e.product(parts) {
				if p.Kind == Union && Compare(ins[0], ins[1]) > 0 {
					continue
				}
				out = append(out, &Op{Kind: p.Kind, Dedup: p.Dedup, Inputs: ins})
			}
		}
	}
	e.memo[n] = out
	return out
}

// product returns every choice of one shape
// of size parts[i] for each position i.
func (e *enumerator) product(parts []int) [][]*Op {
	out := [][]*Op{nil}
	for _, n := range parts {
		var next [][]*Op
		for _, prefix := range out {
			for _, s := range e.shapes(n) {
				row := append(append([]*Op(nil), prefix...), s)
				next = append(next, row)
			}
		}
		out = next
	}
	return out
}

// compositions returns every way of writing
// n as an ordered sum of k non-negative parts.
func compositions(n, k int) [][]int {
	if k == 0 {
		if n == 0 {
			return [][]int{nil}
		}
		return nil
	}
	var out [][]int
	for first := 0; first <= n; first++ {
		for _, rest := range compositions(n-first, k-1) {
			out = append(out, append([]int{first}, rest...))
		}
	}
	return out
}

// withSymbols copies a shape, giving every
// slot of every operator a fresh symbol.
func withSymbols(s *Op) *Op {
	op := NewOp(s.Kind)
	op.Dedup = s.Dedup
	for _, in := range s.Inputs {
		op.Inputs = append(op.Inputs, withSymbols(in))
	}
	return op
}
