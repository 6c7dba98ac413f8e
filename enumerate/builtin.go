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

package enumerate

import "github.com/GitOfCharlie/WeTune-mirror-sub001/subst"

// builtins are the rewrites of a single join of two
// inputs, a shape that enumeration skips.
var builtins = []string{
	// join commutativity
	`(j a0 a1 (i t0) (i t1)), (j a2 a3 (i t2) (i t3)) ->
	((TableEq t0 t3) (TableEq t1 t2) (AttrsEq a0 a3) (AttrsEq a1 a2) (PickFrom a0 t0) (PickFrom a1 t1))`,
	// an inner join along a foreign key keeps every left row
	`(j a0 a1 (i t0) (i t1)), (l a2 a3 (i t2) (i t3)) ->
	((TableEq t0 t2) (TableEq t1 t3) (AttrsEq a0 a2) (AttrsEq a1 a3) (PickFrom a0 t0) (PickFrom a1 t1) (Reference t0 a0 t1 a1))`,
}

// Builtins returns the substitutions that every
// bank built by Run contains.
func Builtins() []*subst.Substitution {
	out := make([]*subst.Substitution, len(builtins))
	for i, text := range builtins {
		out[i] = subst.MustParse(text)
	}
	return out
}
