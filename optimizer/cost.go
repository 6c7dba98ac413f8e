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

package optimizer

import "github.com/GitOfCharlie/WeTune-mirror-sub001/plan"

// Coster estimates the cost of executing a plan.
type Coster interface {
	Cost(n *plan.Node) float64
}

// CostFunc is a func that implements Coster.
type CostFunc func(n *plan.Node) float64

// Cost implements Coster.Cost
func (f CostFunc) Cost(n *plan.Node) float64 { return f(n) }

// NodeCount costs a plan by its number of nodes.
var NodeCount Coster = CostFunc(func(n *plan.Node) float64 {
	return float64(n.Size())
})

// Cheapest returns the plan of plans with the
// lowest cost, preferring earlier plans on ties.
// It returns nil if plans is empty.
func Cheapest(plans []*Plan, c Coster) *Plan {
	var best *Plan
	var cost float64
	for _, p := range plans {
		if x := c.Cost(p.Node); best == nil || x < cost {
			best, cost = p, x
		}
	}
	return best
}
