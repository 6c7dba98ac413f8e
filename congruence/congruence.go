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

// Package congruence implements a union-find structure
// over arbitrary comparable keys.
package congruence

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Congruence tracks a partition of keys into classes.
// The zero value is an empty partition.
type Congruence[K comparable] struct {
	parent map[K]K
	rank   map[K]int
	order  []K // insertion order, for deterministic iteration
}

// Add makes sure k is part of the partition,
// initially as its own class.
func (c *Congruence[K]) Add(k K) {
	if c.parent == nil {
		c.parent = make(map[K]K)
		c.rank = make(map[K]int)
	}
	if _, ok := c.parent[k]; ok {
		return
	}
	c.parent[k] = k
	c.order = append(c.order, k)
}

// Contains reports whether k has been added.
func (c *Congruence[K]) Contains(k K) bool {
	_, ok := c.parent[k]
	return ok
}

// Len returns the number of keys in the partition.
func (c *Congruence[K]) Len() int { return len(c.order) }

// Find returns the representative of the class of k.
// Keys that were never added are their own representative.
func (c *Congruence[K]) Find(k K) K {
	p, ok := c.parent[k]
	if !ok {
		return k
	}
	if p == k {
		return k
	}
	r := c.Find(p)
	c.parent[k] = r
	return r
}

// Union merges the classes of a and b and reports
// whether they were previously distinct.
func (c *Congruence[K]) Union(a, b K) bool {
	c.Add(a)
	c.Add(b)
	ra, rb := c.Find(a), c.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case c.rank[ra] < c.rank[rb]:
		c.parent[ra] = rb
	case c.rank[ra] > c.rank[rb]:
		c.parent[rb] = ra
	default:
		c.parent[rb] = ra
		c.rank[ra]++
	}
	return true
}

// Same reports whether a and b are in the same class.
func (c *Congruence[K]) Same(a, b K) bool {
	return a == b || c.Find(a) == c.Find(b)
}

// Class returns the members of the class of k
// in insertion order.
func (c *Congruence[K]) Class(k K) []K {
	r := c.Find(k)
	var out []K
	for _, x := range c.order {
		if c.Find(x) == r {
			out = append(out, x)
		}
	}
	if out == nil {
		out = []K{k}
	}
	return out
}

// Classes returns every class with at least min members.
// Classes are ordered by their first inserted member and
// members are listed in insertion order.
func (c *Congruence[K]) Classes(min int) [][]K {
	idx := make(map[K]int)
	var out [][]K
	for _, x := range c.order {
		r := c.Find(x)
		i, ok := idx[r]
		if !ok {
			i = len(out)
			idx[r] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], x)
	}
	keep := out[:0]
	for _, cl := range out {
		if len(cl) >= min {
			keep = append(keep, cl)
		}
	}
	return keep
}

// Clone returns an independent copy of c.
func (c *Congruence[K]) Clone() *Congruence[K] {
	n := &Congruence[K]{}
	for _, k := range c.order {
		n.Add(k)
	}
	for k, p := range c.parent {
		n.parent[k] = p
	}
	for k, r := range c.rank {
		n.rank[k] = r
	}
	return n
}

// Sorted returns the members of every class with at least
// two members, each class sorted, classes ordered by their
// smallest member.
func Sorted[K constraints.Ordered](c *Congruence[K]) [][]K {
	cls := c.Classes(2)
	for _, cl := range cls {
		sort.Slice(cl, func(i, j int) bool { return cl[i] < cl[j] })
	}
	sort.Slice(cls, func(i, j int) bool { return cls[i][0] < cls[j][0] })
	return cls
}
