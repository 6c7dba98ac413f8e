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

import (
	"strings"

	"github.com/dchest/siphash"
)

var tokens = [numKinds]byte{
	Input:       'i',
	InnerJoin:   'j',
	LeftJoin:    'l',
	Filter:      'f',
	InSubFilter: 's',
	Proj:        'q',
	Agg:         'a',
	Sort:        'o',
	Limit:       't',
	Union:       'u',
}

// Token returns the one-letter textual
// encoding of the kind of o.
func (o *Op) Token() byte {
	if o.Kind == Proj && o.Dedup {
		return 'p'
	}
	return tokens[o.Kind]
}

// kindOf decodes a token produced by Op.Token.
func kindOf(tok string) (Kind, bool, bool) {
	if tok == "p" {
		return Proj, true, true
	}
	if len(tok) != 1 {
		return 0, false, false
	}
	for k, t := range tokens {
		if t == tok[0] {
			return Kind(k), false, true
		}
	}
	return 0, false, false
}

// Compare orders operator trees by kind first
// and then lexicographically by their inputs.
// Symbols are ignored.
func Compare(a, b *Op) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if a.Dedup != b.Dedup {
		if !a.Dedup {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Inputs) && i < len(b.Inputs); i++ {
		if c := Compare(a.Inputs[i], b.Inputs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a.Inputs) < len(b.Inputs):
		return -1
	case len(a.Inputs) > len(b.Inputs):
		return 1
	}
	return 0
}

// Shape returns the operator structure of the tree
// rooted at o without its symbols, e.g. "p(j(i,i))".
func Shape(o *Op) string {
	var b strings.Builder
	writeShape(&b, o)
	return b.String()
}

func writeShape(b *strings.Builder, o *Op) {
	b.WriteByte(o.Token())
	if len(o.Inputs) == 0 {
		return
	}
	b.WriteByte('(')
	for i, in := range o.Inputs {
		if i > 0 {
			b.WriteByte(',')
		}
		writeShape(b, in)
	}
	b.WriteByte(')')
}

const (
	hashKey0 = 0x5745_5455_4e45_0001
	hashKey1 = 0x6672_6167_6d65_6e74
)

// Hash returns a structural hash of the tree rooted
// at o. Trees with equal shapes hash equally.
func Hash(o *Op) uint64 {
	return siphash.Hash(hashKey0, hashKey1, []byte(Shape(o)))
}

// Shape returns the shape of the fragment's tree.
func (f *Fragment) Shape() string { return Shape(f.Root) }

// Hash returns the structural hash of the fragment.
func (f *Fragment) Hash() uint64 { return Hash(f.Root) }
