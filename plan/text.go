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
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/rules"

	"github.com/dchest/siphash"
)

// The textual form of a plan is an s-expression
// with one list per operator:
//
//	(input "users" "u")
//	(inner ("u.id") ("o.uid") <left> <right>)
//	(left ("u.id") ("o.uid") <left> <right>)
//	(filter "gt" ("u.age") <input>)
//	(insub ("u.id") <input> <subquery>)
//	(proj ("u.id" "u.name") <input>)
//	(proj distinct ("u.id") <input>)
//	(agg "g" ("u.city") (("n" "count" "u.id")) <input>)
//	(sort ("u.name") <input>)
//	(limit 10 <input>)
//	(union <left> <right>)
//
// Names may be written as identifiers or strings;
// String always quotes them.
var opNames = map[Kind]string{
	fragment.Input:       "input",
	fragment.InnerJoin:   "inner",
	fragment.LeftJoin:    "left",
	fragment.Filter:      "filter",
	fragment.InSubFilter: "insub",
	fragment.Proj:        "proj",
	fragment.Agg:         "agg",
	fragment.Sort:        "sort",
	fragment.Limit:       "limit",
	fragment.Union:       "union",
}

func kindNamed(s string) (Kind, bool) {
	for k, name := range opNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// String implements fmt.Stringer
//
// String returns the canonical text of the plan.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func writeCols(b *strings.Builder, cols []Column) {
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Quote(c.String()))
	}
	b.WriteByte(')')
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(opNames[n.Kind])
	switch n.Kind {
	case fragment.Input:
		fmt.Fprintf(b, " %q %q", n.Table, n.Alias)
	case fragment.InnerJoin, fragment.LeftJoin:
		writeCols(b, n.LeftKeys)
		writeCols(b, n.RightKeys)
	case fragment.Filter:
		fmt.Fprintf(b, " %q", n.Pred)
		writeCols(b, n.Attrs)
	case fragment.Proj:
		if n.Dedup {
			b.WriteString(" distinct")
		}
		writeCols(b, n.Attrs)
	case fragment.InSubFilter, fragment.Sort:
		writeCols(b, n.Attrs)
	case fragment.Agg:
		fmt.Fprintf(b, " %q", n.Alias)
		writeCols(b, n.GroupBy)
		b.WriteString(" (")
		for i := range n.Aggs {
			a := &n.Aggs[i]
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(b, "(%q %q", a.As, a.Func)
			for _, c := range a.Args {
				fmt.Fprintf(b, " %q", c.String())
			}
			b.WriteByte(')')
		}
		b.WriteByte(')')
	case fragment.Limit:
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(n.Count, 10))
	}
	for _, in := range n.Inputs {
		b.WriteByte(' ')
		in.write(b)
	}
	b.WriteByte(')')
}

// fingerprint keys; fixed so that fingerprints
// are stable across processes
const (
	fpk0 = 0x77657475_6e65706c
	fpk1 = 0x616e6670_72696e74
)

// Fingerprint returns a hash of the canonical
// text of the plan. Structurally equal plans
// have equal fingerprints.
func Fingerprint(n *Node) uint64 {
	return siphash.Hash(fpk0, fpk1, []byte(n.String()))
}

// Fingerprint128 is like Fingerprint but
// returns a 128-bit hash as 16 bytes.
func Fingerprint128(n *Node) [16]byte {
	var out [16]byte
	lo, hi := siphash.Hash128(fpk0, fpk1, []byte(n.String()))
	binary.LittleEndian.PutUint64(out[:], lo)
	binary.LittleEndian.PutUint64(out[8:], hi)
	return out
}

// Parse parses the textual form of a plan.
func Parse(text string) (*Node, error) {
	v, err := rules.ParseValue("plan", strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

// Decode builds a plan from an already-parsed value.
func Decode(v rules.Value) (*Node, error) {
	head, args, err := rules.Split(v, "an operator")
	if err != nil {
		return nil, err
	}
	kind, ok := kindNamed(head.Name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown operator %q", head.Location, head.Name)
	}
	d := &decoder{op: head.Name, args: args, at: head}
	n := &Node{Kind: kind}
	switch kind {
	case fragment.Input:
		n.Table = d.name()
		n.Alias = d.name()
	case fragment.InnerJoin, fragment.LeftJoin:
		n.LeftKeys = d.columns()
		n.RightKeys = d.columns()
		if d.err == nil && len(n.LeftKeys) != len(n.RightKeys) {
			d.fail("join key lists differ in length")
		}
	case fragment.Filter:
		n.Pred = d.name()
		n.Attrs = d.columns()
	case fragment.Proj:
		if id, ok := d.peek(); ok && id == "distinct" {
			n.Dedup = true
			d.args = d.args[1:]
		}
		n.Attrs = d.columns()
	case fragment.InSubFilter, fragment.Sort:
		n.Attrs = d.columns()
	case fragment.Agg:
		n.Alias = d.name()
		n.GroupBy = d.columns()
		n.Aggs = d.aggs()
	case fragment.Limit:
		n.Count = d.integer()
	}
	if d.err != nil {
		return nil, d.err
	}
	if len(d.args) != kind.Arity() {
		return nil, fmt.Errorf("%s: %s takes %d inputs, found %d", head.Location, head.Name, kind.Arity(), len(d.args))
	}
	for i := range d.args {
		t := &d.args[i]
		if t.Name != "" {
			return nil, fmt.Errorf("%s: expected an input operator, found %s", t.Location, t.String())
		}
		in, err := Decode(t.Value)
		if err != nil {
			return nil, err
		}
		n.Inputs = append(n.Inputs, in)
	}
	return n, nil
}

type decoder struct {
	op   string
	args []rules.Term
	at   *rules.Term
	err  error
}

func (d *decoder) fail(f string, args ...interface{}) {
	if d.err == nil {
		d.err = fmt.Errorf("%s: %s", d.at.Location, fmt.Sprintf(f, args...))
	}
}

func (d *decoder) take() *rules.Term {
	if d.err != nil {
		return nil
	}
	if len(d.args) == 0 {
		d.fail("%s: missing arguments", d.op)
		return nil
	}
	t := &d.args[0]
	d.args = d.args[1:]
	d.at = t
	return t
}

// peek returns the next argument if it is a bare identifier
func (d *decoder) peek() (string, bool) {
	if len(d.args) == 0 {
		return "", false
	}
	return d.args[0].Ident()
}

func (d *decoder) name() string {
	t := d.take()
	if t == nil {
		return ""
	}
	s, ok := t.Text()
	if !ok {
		d.fail("expected a name, found %s", t.String())
	}
	return s
}

func (d *decoder) integer() int64 {
	t := d.take()
	if t == nil {
		return 0
	}
	i, ok := t.Value.(rules.Int)
	if !ok || t.Name != "" {
		d.fail("expected an integer, found %s", t.String())
	}
	return int64(i)
}

func (d *decoder) columnsOf(terms []rules.Term) []Column {
	out := make([]Column, 0, len(terms))
	for i := range terms {
		s, ok := terms[i].Text()
		var c Column
		if ok {
			c, ok = ParseColumn(s)
		}
		if !ok {
			d.at = &terms[i]
			d.fail("expected a column, found %s", terms[i].String())
			return nil
		}
		out = append(out, c)
	}
	return out
}

func (d *decoder) columns() []Column {
	t := d.take()
	if t == nil {
		return nil
	}
	lst, ok := t.Value.(rules.List)
	if !ok || t.Name != "" {
		d.fail("expected a column list, found %s", t.String())
		return nil
	}
	return d.columnsOf(lst)
}

func (d *decoder) aggs() []AggFunc {
	t := d.take()
	if t == nil {
		return nil
	}
	lst, ok := t.Value.(rules.List)
	if !ok || t.Name != "" {
		d.fail("expected an aggregate list, found %s", t.String())
		return nil
	}
	var out []AggFunc
	for i := range lst {
		item, ok := lst[i].Value.(rules.List)
		if !ok || lst[i].Name != "" || len(item) < 2 {
			d.at = &lst[i]
			d.fail("expected (alias func args...), found %s", lst[i].String())
			return nil
		}
		as, ok1 := item[0].Text()
		fn, ok2 := item[1].Text()
		if !ok1 || !ok2 {
			d.at = &lst[i]
			d.fail("expected (alias func args...), found %s", lst[i].String())
			return nil
		}
		args := d.columnsOf(item[2:])
		if d.err != nil {
			return nil
		}
		out = append(out, AggFunc{As: as, Func: fn, Args: args})
	}
	return out
}
