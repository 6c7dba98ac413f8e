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

package subst

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/constraint"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/rules"
)

// Delimiter is the line that separates
// the records of a bank file.
const Delimiter = "===="

// A bank file is a sequence of records separated by
// Delimiter lines. Each record is a rule
//
//	g0, g1 -> (constraint ...)
//
// where g0 and g1 are fragments in their textual
// form and symbol names are shared by the fragments
// and the constraints of the record, for example:
//
//	(j a0 a1 (i t0) (i t1)), (j a2 a3 (i t2) (i t3)) ->
//	  ((TableEq t0 t3) (TableEq t1 t2) (AttrsEq a0 a3) (AttrsEq a1 a2)
//	   (PickFrom a0 t0) (PickFrom a1 t1))

// RecordError is an error in one record of a bank file.
type RecordError struct {
	// Record is the index of the record in the file.
	Record int
	// Line is the line on which the record starts.
	Line int
	Err  error
}

// Error implements error
func (r *RecordError) Error() string {
	return fmt.Sprintf("record %d (line %d): %s", r.Record, r.Line, r.Err)
}

// Unwrap returns the underlying error.
func (r *RecordError) Unwrap() error { return r.Err }

// Parse parses the text of a single record.
func Parse(text string) (*Substitution, error) {
	return parse("record", text)
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Substitution {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

func parse(name, text string) (*Substitution, error) {
	rs, err := rules.ParseFile(name, strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	if len(rs) != 1 {
		return nil, fmt.Errorf("%w: expected one rule, found %d", ErrInvalid, len(rs))
	}
	r := &rs[0]
	if len(r.From) != 2 {
		return nil, fmt.Errorf("%s: %w: expected two fragments, found %d", r.Location, ErrInvalid, len(r.From))
	}
	sc := make(fragment.Scope)
	g0, err := fragment.Decode(r.From[0], sc)
	if err != nil {
		return nil, err
	}
	g1, err := fragment.Decode(r.From[1], sc)
	if err != nil {
		return nil, err
	}
	lst, ok := r.To.Value.(rules.List)
	if !ok || r.To.Name != "" {
		return nil, fmt.Errorf("%s: %w: expected a constraint list, found %s", r.To.Location, ErrInvalid, r.To.String())
	}
	cs := make([]constraint.Constraint, 0, len(lst))
	for i := range lst {
		if lst[i].Name != "" {
			return nil, fmt.Errorf("%s: expected a constraint, found %s", lst[i].Location, lst[i].String())
		}
		c, err := constraint.Decode(lst[i].Value, sc)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return New(g0, g1, cs...)
}

// Write writes subs to w as a bank file,
// one record per substitution, in order.
func Write(w io.Writer, subs []*Substitution) error {
	bw := bufio.NewWriter(w)
	for i, s := range subs {
		if i > 0 {
			bw.WriteString(Delimiter)
			bw.WriteByte('\n')
		}
		bw.WriteString(s.Key())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Read reads a bank file. It returns every valid
// record along with an error joining a *RecordError
// for each record that could not be decoded;
// invalid records are skipped.
func Read(r io.Reader) ([]*Substitution, error) {
	var (
		out   []*Substitution
		errs  []error
		buf   strings.Builder
		line  = 0
		start = 1
		index = 0
	)
	flush := func() {
		text := buf.String()
		buf.Reset()
		if strings.TrimSpace(text) == "" {
			return
		}
		s, err := parse(fmt.Sprintf("record%d", index), text)
		if err != nil {
			errs = append(errs, &RecordError{Record: index, Line: start, Err: err})
		} else {
			out = append(out, s)
		}
		index++
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line++
		if strings.TrimSpace(sc.Text()) == Delimiter {
			flush()
			start = line + 1
			continue
		}
		if buf.Len() == 0 && strings.TrimSpace(sc.Text()) == "" {
			start = line + 1
			continue
		}
		buf.WriteString(sc.Text())
		buf.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return out, errors.Join(append(errs, err)...)
	}
	flush()
	return out, errors.Join(errs...)
}
