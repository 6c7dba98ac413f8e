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

// Package fragment implements symbolic plan templates:
// small operator trees whose tables, predicates and
// attribute lists are placeholders (symbols).
package fragment

// Kind is an operator kind.
type Kind uint8

const (
	Input Kind = iota
	InnerJoin
	LeftJoin
	Filter
	InSubFilter
	Proj
	Agg
	Sort
	Limit
	Union

	numKinds
)

var kindNames = [numKinds]string{
	Input:       "Input",
	InnerJoin:   "InnerJoin",
	LeftJoin:    "LeftJoin",
	Filter:      "Filter",
	InSubFilter: "InSubFilter",
	Proj:        "Proj",
	Agg:         "Agg",
	Sort:        "Sort",
	Limit:       "Limit",
	Union:       "Union",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "Kind(?)"
}

// KindNamed returns the kind whose String is name.
func KindNamed(name string) (Kind, bool) {
	for k := Kind(0); k < numKinds; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

// IsJoin reports whether k is InnerJoin or LeftJoin.
func (k Kind) IsJoin() bool { return k == InnerJoin || k == LeftJoin }

// Arity returns the number of inputs of k.
func (k Kind) Arity() int {
	switch k {
	case Input:
		return 0
	case InnerJoin, LeftJoin, InSubFilter, Union:
		return 2
	default:
		return 1
	}
}

// Slots returns the kinds of the symbols
// carried by an operator of kind k, in order.
func (k Kind) Slots() []SymbolKind {
	switch k {
	case Input:
		return []SymbolKind{Table}
	case InnerJoin, LeftJoin:
		return []SymbolKind{Attrs, Attrs}
	case Filter:
		return []SymbolKind{Pred, Attrs}
	case InSubFilter, Proj, Sort:
		return []SymbolKind{Attrs}
	case Agg:
		return []SymbolKind{GroupKeys, AggFuncs}
	default:
		return nil
	}
}

// SymbolKind is the type of a symbol.
type SymbolKind uint8

const (
	Table SymbolKind = iota
	Pred
	Attrs
	GroupKeys
	AggFuncs

	numSymbolKinds
)

var symbolPrefix = [numSymbolKinds]byte{
	Table:     't',
	Pred:      'p',
	Attrs:     'a',
	GroupKeys: 'g',
	AggFuncs:  'k',
}

// Prefix returns the letter that starts
// the textual names of symbols of kind k.
func (k SymbolKind) Prefix() byte { return symbolPrefix[k] }

func (k SymbolKind) String() string {
	switch k {
	case Table:
		return "Table"
	case Pred:
		return "Predicate"
	case Attrs:
		return "AttributeList"
	case GroupKeys:
		return "GroupKeys"
	case AggFuncs:
		return "AggFuncs"
	}
	return "SymbolKind(?)"
}

// AttrLike reports whether k describes a list of
// attributes (attribute lists, group keys, aggregates).
func (k SymbolKind) AttrLike() bool {
	return k == Attrs || k == GroupKeys || k == AggFuncs
}

func symbolKindOf(prefix byte) (SymbolKind, bool) {
	for k, p := range symbolPrefix {
		if p == prefix {
			return SymbolKind(k), true
		}
	}
	return 0, false
}
