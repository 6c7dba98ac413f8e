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

// Rule is a pruning rule. Match is called for every
// operator of a candidate fragment, together with its
// parent and input position; a fragment is discarded
// as soon as one rule matches one of its operators.
type Rule struct {
	Name  string
	Match func(op, parent *Op, slot int) bool
}

// AllJoin matches a fragment consisting of exactly one
// join of two inputs. That shape is only useful for
// swapping the join type, which is covered by builtin
// substitutions instead of enumeration.
var AllJoin = Rule{
	Name: "AllJoin",
	Match: func(op, parent *Op, _ int) bool {
		return parent == nil && op.Kind.IsJoin() &&
			op.Inputs[0].Kind == Input && op.Inputs[1].Kind == Input
	},
}

// MeaninglessDedup matches a deduplicating projection
// of a bare input used as the subquery of an InSubFilter.
// Membership tests ignore duplicates, so the plain
// projection is equivalent.
var MeaninglessDedup = Rule{
	Name: "MeaninglessDedup",
	Match: func(op, parent *Op, slot int) bool {
		return op.Kind == Proj && op.Dedup && parent != nil &&
			parent.Kind == InSubFilter && slot == 1 &&
			op.Inputs[0].Kind == Input
	},
}

// ReorderedFilter matches an InSubFilter directly below
// a Filter. Filters commute, and the canonical chain
// keeps the InSubFilter on top.
var ReorderedFilter = Rule{
	Name: "ReorderedFilter",
	Match: func(op, parent *Op, slot int) bool {
		return op.Kind == InSubFilter && parent != nil &&
			parent.Kind == Filter && slot == 0
	},
}

// NonLeftDeepJoin matches a join whose right input
// is itself a join.
var NonLeftDeepJoin = Rule{
	Name: "NonLeftDeepJoin",
	Match: func(op, _ *Op, _ int) bool {
		return op.Kind.IsJoin() && op.Inputs[1].Kind.IsJoin()
	},
}

// DefaultRules returns the pruning rules
// used by enumeration by default.
func DefaultRules() []Rule {
	return []Rule{AllJoin, MeaninglessDedup, ReorderedFilter, NonLeftDeepJoin}
}

// Prune evaluates rules over the tree rooted at root
// in a single traversal and returns the name of the
// first rule that matched.
func Prune(root *Op, rules []Rule) (string, bool) {
	matched := ""
	Walk(root, func(op, parent *Op, slot int) bool {
		if matched != "" {
			return false
		}
		for i := range rules {
			if rules[i].Match(op, parent, slot) {
				matched = rules[i].Name
				return false
			}
		}
		return true
	})
	return matched, matched != ""
}
