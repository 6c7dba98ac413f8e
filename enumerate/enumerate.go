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

// Package enumerate builds banks of substitutions
// by pairing enumerated fragments, guessing the
// constraints under which they could be equivalent
// and keeping the guesses the prover confirms.
package enumerate

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/constraint"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/prover"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/subst"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxCandidates is the default bound on the
// number of constraint sets tried for one pair.
const DefaultMaxCandidates = 512

// Config configures Run.
type Config struct {
	// Fragments selects the fragments to pair.
	Fragments fragment.Options
	// Parallel is the number of pairs verified
	// at once; zero means GOMAXPROCS.
	Parallel int
	// MaxCandidates bounds the constraint sets
	// tried per pair; zero means DefaultMaxCandidates.
	MaxCandidates int
	// Prover is the prover used for verification;
	// nil means a Prover with default limits.
	Prover *prover.Prover
	// NoBuiltins omits the builtin substitutions
	// from the resulting bank.
	NoBuiltins bool

	// Logf, if non-nil, is used to report progress.
	Logf func(f string, args ...interface{})
}

func (c *Config) logf(f string, args ...interface{}) {
	if false {
		_ = fmt.Sprintf(f, args...)
	}
	if c.Logf != nil {
		c.Logf(f, args...)
	}
}

func (c *Config) parallel() int {
	if c.Parallel > 0 {
		return c.Parallel
	}
	return runtime.GOMAXPROCS(0)
}

func (c *Config) maxCandidates() int {
	if c.MaxCandidates > 0 {
		return c.MaxCandidates
	}
	return DefaultMaxCandidates
}

// Stats counts the work done by Run.
type Stats struct {
	// updated atomically; kept first for alignment
	Pairs      int64
	Candidates int64
	Rejected   int64 // candidates the prover did not confirm
	Errors     int64 // candidates that could not be instantiated

	Fragments int
	Accepted  int
	Elapsed   time.Duration
}

func (s *Stats) String() string {
	return fmt.Sprintf("%d fragments, %d pairs, %d candidates (%d rejected, %d errors), %d accepted in %s",
		s.Fragments, s.Pairs, s.Candidates, s.Rejected, s.Errors, s.Accepted, s.Elapsed)
}

// Pair is an ordered pair of fragments
// considered as a rewrite from G0 to G1.
type Pair struct {
	G0, G1 *fragment.Fragment
}

// Pairs returns the ordered pairs of fragments of
// frags in which G1 reads no more inputs than G0 and
// has no more operators. A fragment is also paired
// with a copy of itself.
func Pairs(frags []*fragment.Fragment) []Pair {
	var out []Pair
	pr := newPairer(frags)
	for i := range frags {
		out = append(out, pr.row(i)...)
	}
	return out
}

type pairer struct {
	frags  []*fragment.Fragment
	inputs []int
	sizes  []int
}

func newPairer(frags []*fragment.Fragment) *pairer {
	pr := &pairer{
		frags:  frags,
		inputs: make([]int, len(frags)),
		sizes:  make([]int, len(frags)),
	}
	for i, f := range frags {
		pr.inputs[i] = countInputs(f.Root)
		pr.sizes[i] = f.Size()
	}
	return pr
}

// row returns the pairs whose G0 is frags[i].
func (pr *pairer) row(i int) []Pair {
	var out []Pair
	for j := range pr.frags {
		if pr.inputs[j] > pr.inputs[i] || pr.sizes[j] > pr.sizes[i] {
			continue
		}
		g1 := pr.frags[j]
		if i == j {
			r, _ := fragment.Copy(g1.Root)
			g1 = fragment.MustNew(r)
		}
		out = append(out, Pair{G0: pr.frags[i], G1: g1})
	}
	return out
}

func countInputs(op *fragment.Op) int {
	n := 0
	fragment.Walk(op, func(o, _ *fragment.Op, _ int) bool {
		if o.Kind == fragment.Input {
			n++
		}
		return true
	})
	return n
}

// Run enumerates fragments, verifies the candidate
// substitutions between every pair and returns the
// reduced bank of confirmed substitutions.
//
// The pairs sharing a G0 are verified by one task;
// tasks run in parallel. When ctx is done no further
// candidates are verified; Run then returns the
// substitutions confirmed so far along with the
// context error.
func Run(ctx context.Context, cfg *Config) (*subst.Bank, *Stats, error) {
	start := time.Now()
	frags := fragment.Enumerate(cfg.Fragments)
	st := &Stats{Fragments: len(frags)}
	cfg.logf("enumerate: %d fragments", len(frags))

	pr := newPairer(frags)
	results := make([][]*subst.Substitution, len(frags))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallel())
	for i := range frags {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			for _, p := range pr.row(i) {
				if gctx.Err() != nil {
					break
				}
				atomic.AddInt64(&st.Pairs, 1)
				results[i] = append(results[i], cfg.verifyPair(gctx, p, st)...)
			}
			return nil
		})
	}
	g.Wait()

	bank := subst.NewBank()
	if !cfg.NoBuiltins {
		for _, s := range Builtins() {
			bank.Add(s)
		}
	}
	for _, subs := range results {
		for _, s := range subs {
			bank.Add(s)
		}
	}
	bank = bank.Reduce()
	st.Accepted = bank.Len()
	st.Elapsed = time.Since(start)
	cfg.logf("enumerate: %s", st)
	return bank, st, ctx.Err()
}

// verifyPair returns the confirmed substitutions from
// p.G0 to p.G1, along with their flips when those are
// eligible. Counters in st are updated atomically.
func (c *Config) verifyPair(ctx context.Context, p Pair, st *Stats) []*subst.Substitution {
	sp, ok := newSpace(p.G0, p.G1)
	if !ok {
		return nil
	}
	var out []*subst.Substitution
	tried := 0
	max := c.maxCandidates()
	if sp.size(max+1) > max {
		c.logf("enumerate: %s -> %s: trying the first %d assignments", p.G0, p.G1, max)
	}
	try := func(cs []constraint.Constraint) bool {
		tried++
		atomic.AddInt64(&st.Candidates, 1)
		s, err := Candidate(p, cs)
		if err != nil {
			atomic.AddInt64(&st.Errors, 1)
			return false
		}
		if s.Identity() {
			return false
		}
		ok, err := subst.Verify(s, c.Prover)
		switch {
		case err != nil:
			atomic.AddInt64(&st.Errors, 1)
		case !ok:
			atomic.AddInt64(&st.Rejected, 1)
		default:
			out = append(out, s)
			if f := s.Flip(); f.Eligible() {
				out = append(out, f)
			}
		}
		return ok
	}
	sp.each(func(cs, refs []constraint.Constraint) bool {
		if tried >= max || ctx.Err() != nil {
			return false
		}
		// foreign keys are only assumed
		// when the rewrite needs them
		if !try(cs) && len(refs) > 0 && tried < max {
			try(append(cs, refs...))
		}
		return true
	})
	return out
}

// Candidate builds the substitution from p.G0 to p.G1
// under cs, whose symbols belong to p.G0 and p.G1.
// Both fragments are copied, so p may be reused.
func Candidate(p Pair, cs []constraint.Constraint) (*subst.Substitution, error) {
	r0, m0 := fragment.Copy(p.G0.Root)
	r1, m1 := fragment.Copy(p.G1.Root)
	mapped := make([]constraint.Constraint, len(cs))
	for i, c := range cs {
		syms := make([]*fragment.Symbol, len(c.Syms))
		for j, sym := range c.Syms {
			if n, ok := m0[sym]; ok {
				syms[j] = n
			} else if n, ok := m1[sym]; ok {
				syms[j] = n
			} else {
				return nil, fmt.Errorf("%w: %s refers to a foreign symbol", subst.ErrInvalid, c.Kind)
			}
		}
		mapped[i] = constraint.Make(c.Kind, syms...)
	}
	return subst.New(r0, r1, mapped...)
}
