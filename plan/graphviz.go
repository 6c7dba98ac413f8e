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

import (
	"fmt"
	"io"
	"strings"
)

// Graphviz dumps the plan 'n'
// to 'dst' as dot(1)-compatible text.
// Edges run from each input to its consumer.
func Graphviz(n *Node, dst io.Writer) error {
	_, err := io.WriteString(dst, "digraph plan {\n")
	if err != nil {
		return err
	}
	_, err = gv(n, dst, 0)
	if err != nil {
		return err
	}
	_, err = io.WriteString(dst, "}\n")
	return err
}

// label is the canonical text of n without its inputs
func label(n *Node) string {
	shallow := *n
	shallow.Inputs = nil
	return strings.TrimSuffix(strings.TrimPrefix(shallow.String(), "("), ")")
}

// gv writes n and its inputs starting at id
// and returns the next unused id
func gv(n *Node, dst io.Writer, id int) (int, error) {
	self := id
	_, err := fmt.Fprintf(dst, "n%d [label=%q];\n", self, label(n))
	if err != nil {
		return id, err
	}
	id++
	for i, in := range n.Inputs {
		child := id
		id, err = gv(in, dst, id)
		if err != nil {
			return id, err
		}
		if len(n.Inputs) > 1 {
			_, err = fmt.Fprintf(dst, "n%d -> n%d [label=\"%d\"];\n", child, self, i)
		} else {
			_, err = fmt.Fprintf(dst, "n%d -> n%d;\n", child, self)
		}
		if err != nil {
			return id, err
		}
	}
	return id, nil
}
