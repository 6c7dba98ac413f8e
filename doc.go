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

// Package wetune discovers and applies query rewrite rules
// that are proven correct under bag semantics.
//
// Candidate rules are pairs of plan templates (see package fragment)
// whose symbols are related by constraints (package constraint).
// Each candidate is translated into U-expressions (package uexpr)
// and checked by the prover (package prover); survivors are kept
// in a substitution bank (package subst) that the optimizer
// (package optimizer) applies to concrete plans (package plan).
// Package enumerate drives the search.
package wetune
