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

// Package optimizer searches for plans equivalent
// to an input plan by applying the substitutions of
// a bank, one rewrite at a time.
package optimizer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/subst"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxRounds is the default bound
	// on the number of search rounds.
	DefaultMaxRounds = 8
	// DefaultMaxPlans is the default bound on
	// the number of plans found per seed.
	DefaultMaxPlans = 512
)

// Config configures an Optimizer.
type Config struct {
	// MaxRounds bounds the number of rounds;
	// zero means DefaultMaxRounds.
	MaxRounds int
	// MaxPlans bounds the number of distinct
	// plans found from one seed; zero means
	// DefaultMaxPlans.
	MaxPlans int
	// Timeout, if non-zero, stops the search at
	// the end of the first round that ends after
	// Timeout has elapsed.
	Timeout time.Duration
	// Parallel is the number of frontier plans
	// expanded at once; zero means one.
	Parallel int
	// Schema supplies the foreign keys that
	// Reference constraints are checked against.
	Schema *plan.Schema

	// Logf, if non-nil, is used to log the
	// progress of each search.
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

func (c *Config) maxRounds() int {
	if c.MaxRounds > 0 {
		return c.MaxRounds
	}
	return DefaultMaxRounds
}

func (c *Config) maxPlans() int {
	if c.MaxPlans > 0 {
		return c.MaxPlans
	}
	return DefaultMaxPlans
}

// Optimizer applies the substitutions of a bank.
// The bank is only read, so an Optimizer may be
// used by any number of concurrent sessions.
type Optimizer struct {
	Config

	bank   *subst.Bank
	byKind map[fragment.Kind][]*subst.Substitution
	rules  int
}

// New returns an optimizer using the substitutions
// of bank in both directions: the flip of every
// eligible substitution is applied as well.
// Substitutions whose G0 is a bare input are
// ignored since they match every subtree.
func New(bank *subst.Bank, cfg Config) *Optimizer {
	o := &Optimizer{
		Config: cfg,
		bank:   bank,
		byKind: make(map[fragment.Kind][]*subst.Substitution),
	}
	seen := make(map[string]bool)
	add := func(s *subst.Substitution) {
		k := s.G0.Root.Kind
		if k == fragment.Input || seen[s.Key()] {
			return
		}
		seen[s.Key()] = true
		o.byKind[k] = append(o.byKind[k], s)
		o.rules++
	}
	for _, s := range bank.Sorted() {
		add(s)
		if f := s.Flip(); f.Eligible() {
			add(f)
		}
	}
	return o
}

// Rules returns the number of rewrites
// the optimizer applies.
func (o *Optimizer) Rules() int { return o.rules }

// Optimize searches for plans equivalent to
// root in a new session.
func (o *Optimizer) Optimize(ctx context.Context, root *plan.Node) (*Result, error) {
	return o.NewSession().Optimize(ctx, root)
}

// OptimizeAll optimizes each of roots in its own
// session, running up to parallel searches at once
// (zero means GOMAXPROCS). The result for roots[i] is
// at index i. A search that fails does not stop the
// others; its error is recorded in its Result.
func (o *Optimizer) OptimizeAll(ctx context.Context, roots []*plan.Node, parallel int) []*Result {
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}
	out := make([]*Result, len(roots))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i := range roots {
		i := i
		g.Go(func() error {
			r, err := o.Optimize(ctx, roots[i])
			if r == nil {
				r = &Result{}
			}
			r.Err = err
			out[i] = r
			return nil
		})
	}
	g.Wait()
	return out
}

// rewrites returns every plan obtained from root by
// applying one substitution at one position, in
// pre-order of the positions. Nothing beneath a Limit
// is rewritten: the rows a Limit keeps depend on the
// order of its input, which bag equivalence ignores.
//
// Rules never match a Filter over an InSubFilter, so a
// plan with its filter chains normalized comes first.
func (o *Optimizer) rewrites(root *plan.Node) []rewrite {
	var out []rewrite
	if n := plan.NormalizeFilters(root); n != root {
		out = append(out, rewrite{node: n})
	}
	plan.Walk(root, func(n *plan.Node, path []int) bool {
		for _, s := range o.byKind[n.Kind] {
			m, ok := subst.MatchAt(s, n, o.Schema)
			if !ok {
				continue
			}
			at := subst.Match{Path: append([]int(nil), path...), Model: m}
			next, err := subst.Apply(s, root, at)
			if err != nil {
				// a G1 limit without a count
				continue
			}
			out = append(out, rewrite{node: next, step: Step{Rule: s, Path: at.Path}})
		}
		return n.Kind != fragment.Limit
	})
	return out
}

type rewrite struct {
	node *plan.Node
	step Step
}
