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
	"errors"
	"fmt"
	"strconv"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/uexpr"
)

// ErrUnsupported is wrapped by translation errors
// caused by operators that cannot be translated.
var ErrUnsupported = errors.New("unsupported operator")

// TranslateError is an error associated
// with translating a particular plan node.
type TranslateError struct {
	In  *Node
	Err error
}

// Error implements error
func (t *TranslateError) Error() string {
	if t.In == nil {
		return "translate: " + t.Err.Error()
	}
	return fmt.Sprintf("translate %s: %s", t.In.Kind, t.Err)
}

// Unwrap returns the underlying error.
func (t *TranslateError) Unwrap() error { return t.Err }

func errorf(n *Node, f string, args ...interface{}) error {
	return &TranslateError{In: n, Err: fmt.Errorf(f, args...)}
}

// value is an output of a translated subtree
// together with the tuple that carries it.
type value struct {
	name  string
	tuple *uexpr.Tuple
}

// result is a translated subtree: expr counts the
// rows described by the (free) vars, and outs
// describes the visible values of each row.
type result struct {
	expr *uexpr.Disjunction
	vars []*uexpr.Tuple
	outs []value
}

// translator carries the fresh variable counter
// of one translation.
type translator struct {
	next int
}

func (t *translator) fresh() *uexpr.Tuple {
	v := uexpr.Var("x" + strconv.Itoa(t.next))
	t.next++
	return v
}

// Translate returns the U-expression for the
// multiplicity of the row out in the result of n.
// Every output value of n named "name" is a
// projection out.name of out, so plans with the same
// output names can be compared with the prover
// by holding out fixed.
func Translate(n *Node, out *uexpr.Tuple) (*uexpr.Disjunction, error) {
	t := &translator{}
	r, err := t.node(n)
	if err != nil {
		return nil, err
	}
	e := r.expr
	for _, v := range r.outs {
		e = uexpr.Mul(e, uexpr.Pred(uexpr.Eq(out.Proj(v.name), v.tuple)))
	}
	return uexpr.Sum(r.vars, e), nil
}

// OutputNames returns the names of the values
// produced by n, as used by Translate.
func OutputNames(n *Node) []string {
	outs := Outputs(n)
	names := make([]string, len(outs))
	for i := range outs {
		names[i] = outs[i].Name()
	}
	return names
}

// resolve finds the tuple carrying column c
// among the outputs of a subtree.
func resolve(outs []value, c Column) (*uexpr.Tuple, bool) {
	full := c.String()
	for _, v := range outs {
		if v.name == full {
			return v.tuple, true
		}
	}
	for _, v := range outs {
		if v.name == c.Table {
			return v.tuple.Proj(c.Name), true
		}
	}
	// the qualifier may itself be a column
	if q, ok := ParseColumn(c.Table); ok {
		if base, ok := resolve(outs, q); ok {
			return base.Proj(c.Name), true
		}
	}
	return nil, false
}

func (t *translator) resolveAll(n *Node, outs []value, cols []Column) ([]*uexpr.Tuple, error) {
	lst := make([]*uexpr.Tuple, len(cols))
	for i, c := range cols {
		tup, ok := resolve(outs, c)
		if !ok {
			return nil, errorf(n, "unknown column %s", c)
		}
		lst[i] = tup
	}
	return lst, nil
}

// equate returns the product of [a[i] = b[i]].
func equate(a, b []*uexpr.Tuple) *uexpr.Disjunction {
	e := uexpr.One()
	for i := range a {
		e = uexpr.Mul(e, uexpr.Pred(uexpr.Eq(a[i], b[i])))
	}
	return e
}

func (t *translator) inputs(n *Node) ([]*result, error) {
	if len(n.Inputs) != n.Kind.Arity() {
		return nil, errorf(n, "%d inputs, want %d", len(n.Inputs), n.Kind.Arity())
	}
	out := make([]*result, len(n.Inputs))
	for i, in := range n.Inputs {
		r, err := t.node(in)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (t *translator) node(n *Node) (*result, error) {
	if _, ok := opNames[n.Kind]; !ok {
		return nil, &TranslateError{In: n, Err: ErrUnsupported}
	}
	in, err := t.inputs(n)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case fragment.Input:
		if n.Table == "" {
			return nil, errorf(n, "missing table name")
		}
		v := t.fresh()
		return &result{
			expr: uexpr.Table(n.Table, v),
			vars: []*uexpr.Tuple{v},
			outs: []value{{name: n.Alias, tuple: v}},
		}, nil
	case fragment.InnerJoin:
		l, r := in[0], in[1]
		cond, err := t.joinCond(n, l, r)
		if err != nil {
			return nil, err
		}
		return &result{
			expr: uexpr.Mul(uexpr.Mul(l.expr, r.expr), cond),
			vars: append(append([]*uexpr.Tuple(nil), l.vars...), r.vars...),
			outs: append(append([]value(nil), l.outs...), r.outs...),
		}, nil
	case fragment.LeftJoin:
		return t.leftJoin(n, in[0], in[1])
	case fragment.Filter:
		c := in[0]
		args, err := t.resolveAll(n, c.outs, n.Attrs)
		if err != nil {
			return nil, err
		}
		if n.Pred == "" {
			return nil, errorf(n, "missing predicate")
		}
		return &result{
			expr: uexpr.Mul(c.expr, uexpr.Pred(uexpr.Func(n.Pred, args...))),
			vars: c.vars,
			outs: c.outs,
		}, nil
	case fragment.InSubFilter:
		l, r := in[0], in[1]
		if len(r.outs) != len(n.Attrs) {
			return nil, errorf(n, "%d columns compared with a subquery of %d", len(n.Attrs), len(r.outs))
		}
		lhs, err := t.resolveAll(n, l.outs, n.Attrs)
		if err != nil {
			return nil, err
		}
		rhs := make([]*uexpr.Tuple, len(r.outs))
		for i := range r.outs {
			rhs[i] = r.outs[i].tuple
		}
		sub := uexpr.Sum(r.vars, uexpr.Mul(r.expr, equate(lhs, rhs)))
		return &result{
			expr: uexpr.Mul(l.expr, uexpr.Squash(sub)),
			vars: l.vars,
			outs: l.outs,
		}, nil
	case fragment.Proj:
		c := in[0]
		vals, err := t.resolveAll(n, c.outs, n.Attrs)
		if err != nil {
			return nil, err
		}
		p := t.fresh()
		outs := make([]value, len(n.Attrs))
		tuples := make([]*uexpr.Tuple, len(n.Attrs))
		for i, col := range n.Attrs {
			outs[i] = value{name: col.String(), tuple: p.Proj(col.String())}
			tuples[i] = outs[i].tuple
		}
		e := uexpr.Sum(c.vars, uexpr.Mul(c.expr, equate(tuples, vals)))
		if n.Dedup {
			e = uexpr.Squash(e)
		}
		return &result{expr: e, vars: []*uexpr.Tuple{p}, outs: outs}, nil
	case fragment.Union:
		l, r := in[0], in[1]
		if len(l.outs) != len(r.outs) {
			return nil, errorf(n, "union of %d and %d columns", len(l.outs), len(r.outs))
		}
		u := t.fresh()
		outs := make([]value, len(l.outs))
		lt := make([]*uexpr.Tuple, len(l.outs))
		rt := make([]*uexpr.Tuple, len(r.outs))
		ut := make([]*uexpr.Tuple, len(l.outs))
		for i := range l.outs {
			outs[i] = value{name: l.outs[i].name, tuple: u.Proj(l.outs[i].name)}
			ut[i] = outs[i].tuple
			lt[i] = l.outs[i].tuple
			rt[i] = r.outs[i].tuple
		}
		e := uexpr.Add(
			uexpr.Sum(l.vars, uexpr.Mul(l.expr, equate(ut, lt))),
			uexpr.Sum(r.vars, uexpr.Mul(r.expr, equate(ut, rt))))
		return &result{expr: e, vars: []*uexpr.Tuple{u}, outs: outs}, nil
	case fragment.Sort:
		// ordering is invisible to bag semantics
		if _, err := t.resolveAll(n, in[0].outs, n.Attrs); err != nil {
			return nil, err
		}
		return in[0], nil
	case fragment.Agg, fragment.Limit:
		return t.opaque(n), nil
	}
	panic("unreachable")
}

func (t *translator) joinCond(n *Node, l, r *result) (*uexpr.Disjunction, error) {
	if len(n.LeftKeys) != len(n.RightKeys) {
		return nil, errorf(n, "join key lists differ in length")
	}
	lk, err := t.resolveAll(n, l.outs, n.LeftKeys)
	if err != nil {
		return nil, err
	}
	rk, err := t.resolveAll(n, r.outs, n.RightKeys)
	if err != nil {
		return nil, err
	}
	return equate(lk, rk), nil
}

// leftJoin translates
//
//	L*R*[cond] + L*[y = NULL]*not(sum{y'}(R(y')*[cond']))
//
// where y are the row variables of the right
// side and y' a fresh copy of them.
func (t *translator) leftJoin(n *Node, l, r *result) (*result, error) {
	cond, err := t.joinCond(n, l, r)
	if err != nil {
		return nil, err
	}
	r2, err := t.node(n.Inputs[1])
	if err != nil {
		return nil, err
	}
	cond2, err := t.joinCond(n, l, r2)
	if err != nil {
		return nil, err
	}
	matched := uexpr.Mul(uexpr.Mul(l.expr, r.expr), cond)
	nulls := uexpr.One()
	for _, v := range r.vars {
		nulls = uexpr.Mul(nulls, uexpr.Pred(uexpr.Eq(v, uexpr.Null)))
	}
	unmatched := uexpr.Mul(uexpr.Mul(l.expr, nulls),
		uexpr.Not(uexpr.Sum(r2.vars, uexpr.Mul(r2.expr, cond2))))
	return &result{
		expr: uexpr.Add(matched, unmatched),
		vars: append(append([]*uexpr.Tuple(nil), l.vars...), r.vars...),
		outs: append(append([]value(nil), l.outs...), r.outs...),
	}, nil
}

// opaque translates n as a derived table whose
// name is the text of the whole subtree, so that
// equal subtrees denote the same relation.
func (t *translator) opaque(n *Node) *result {
	v := t.fresh()
	names := OutputNames(n)
	outs := make([]value, len(names))
	for i, name := range names {
		outs[i] = value{name: name, tuple: v.Proj(name)}
	}
	return &result{
		expr: uexpr.Table(n.String(), v),
		vars: []*uexpr.Tuple{v},
		outs: outs,
	}
}
