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

package plan

import "github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"

// NormalizeFilters moves every Filter below the
// InSubFilters it sits on, so that a chain of filters
// over one input lists its InSubFilters first.
// Both kinds only select rows of their first input,
// so the order of a chain does not change its result.
// NormalizeFilters returns n itself when the plan is
// already normalized.
func NormalizeFilters(n *Node) *Node {
	var inputs []*Node
	for i, in := range n.Inputs {
		m := NormalizeFilters(in)
		if m != in && inputs == nil {
			inputs = append([]*Node(nil), n.Inputs...)
		}
		if inputs != nil {
			inputs[i] = m
		}
	}
	if inputs != nil {
		c := *n
		c.Inputs = inputs
		n = &c
	}
	return sinkFilter(n)
}

// sinkFilter pushes the Filter n below a chain
// of InSubFilters.
func sinkFilter(n *Node) *Node {
	if n.Kind != fragment.Filter || n.Inputs[0].Kind != fragment.InSubFilter {
		return n
	}
	sub := n.Inputs[0]
	f := *n
	f.Inputs = []*Node{sub.Inputs[0]}
	s := *sub
	s.Inputs = []*Node{sinkFilter(&f), sub.Inputs[1]}
	return &s
}
