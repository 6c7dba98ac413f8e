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

package optimizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/congruence"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/heap"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/subst"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Step is one rewrite: Rule was applied
// at the node reached by Path. A Step without
// a Rule reordered filter chains of the whole plan
// (see plan.NormalizeFilters).
type Step struct {
	Rule *subst.Substitution
	Path []int
}

func (s Step) String() string {
	if s.Rule == nil {
		return "normalize filters"
	}
	return fmt.Sprintf("%v: %s", s.Path, s.Rule.Key())
}

// Plan is a plan found by a search.
type Plan struct {
	Node        *plan.Node
	Fingerprint uint64
	// Parent is the plan this one was
	// rewritten from; nil for a seed.
	Parent *Plan
	// Step is the rewrite of Parent
	// that produced this plan.
	Step  Step
	Round int
}

// Steps returns the rewrites leading from
// the seed of p to p, in order.
func (p *Plan) Steps() []Step {
	var out []Step
	for q := p; q.Parent != nil; q = q.Parent {
		out = append(out, q.Step)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Provenance describes the rewrites
// leading to p, one per line.
func (p *Plan) Provenance() string {
	var b strings.Builder
	for _, s := range p.Steps() {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Result is the outcome of a search.
type Result struct {
	Session uuid.UUID
	Seed    *Plan
	// Plans is the group of plans known to
	// be equivalent to the seed, seed first.
	Plans []*Plan
	// Rounds is the number of rounds run.
	Rounds int
	// Fixpoint is set when the last round
	// found no new plan.
	Fixpoint bool
	Elapsed  time.Duration
	// Err is set by OptimizeAll
	// for searches that failed.
	Err error
}

// Session is a search state: the plans found
// so far, grouped into classes of plans proven
// equivalent. A Session may run several searches;
// their groups merge when a plan is reached from
// more than one seed. A Session is not safe for
// concurrent use.
type Session struct {
	ID uuid.UUID

	opt    *Optimizer
	plans  map[uint64]*Plan
	order  []*Plan
	groups congruence.Congruence[uint64]
}

// NewSession returns an empty session.
func (o *Optimizer) NewSession() *Session {
	return &Session{
		ID:    uuid.New(),
		opt:   o,
		plans: make(map[uint64]*Plan),
	}
}

func (s *Session) logf(f string, args ...interface{}) {
	s.opt.logf("optimizer %s: "+f, append([]interface{}{s.ID}, args...)...)
}

// Len returns the number of plans
// known to the session.
func (s *Session) Len() int { return len(s.order) }

// Group returns the plans in the same group as
// the plan with fingerprint fp, in the order they
// were found.
func (s *Session) Group(fp uint64) []*Plan {
	if _, ok := s.plans[fp]; !ok {
		return nil
	}
	return s.resolve(s.groups.Class(fp))
}

// Groups returns every group of the session,
// ordered by their first plan.
func (s *Session) Groups() [][]*Plan {
	var out [][]*Plan
	for _, cl := range s.groups.Classes(1) {
		out = append(out, s.resolve(cl))
	}
	return out
}

func (s *Session) resolve(fps []uint64) []*Plan {
	out := make([]*Plan, 0, len(fps))
	for _, fp := range fps {
		out = append(out, s.plans[fp])
	}
	return out
}

// admit adds p to the session unless its plan is
// known already, and records that p is equivalent
// to its parent. It reports whether p is new.
func (s *Session) admit(p *Plan) bool {
	old, ok := s.plans[p.Fingerprint]
	if ok && !plan.Equal(old.Node, p.Node) {
		s.logf("fingerprint collision between %s and %s", old.Node, p.Node)
		return false
	}
	if p.Parent != nil {
		s.groups.Union(p.Parent.Fingerprint, p.Fingerprint)
	}
	if ok {
		return false
	}
	s.groups.Add(p.Fingerprint)
	s.plans[p.Fingerprint] = p
	s.order = append(s.order, p)
	return true
}

// smaller orders the frontier:
// smaller plans are expanded first.
func smaller(a, b *Plan) bool {
	sa, sb := a.Node.Size(), b.Node.Size()
	if sa != sb {
		return sa < sb
	}
	return a.Fingerprint < b.Fingerprint
}

// Optimize searches for plans equivalent to root.
// Each round rewrites every plan found by the
// previous round once in every possible way. The
// search stops at a fixpoint, after MaxRounds
// rounds, after MaxPlans plans, or when Timeout has
// elapsed. When ctx is done between rounds the
// search stops and its partial result is returned
// along with the context error.
//
// root is never modified.
func (s *Session) Optimize(ctx context.Context, root *plan.Node) (*Result, error) {
	start := time.Now()
	cfg := &s.opt.Config
	seed := &Plan{Node: root, Fingerprint: plan.Fingerprint(root)}
	if !s.admit(seed) {
		seed = s.plans[seed.Fingerprint]
	}
	res := &Result{Session: s.ID, Seed: seed}
	frontier := heap.NewQueue(smaller, seed)
	found := 1
	var err error
	for res.Rounds < cfg.maxRounds() {
		if err = ctx.Err(); err != nil {
			break
		}
		if cfg.Timeout > 0 && time.Since(start) > cfg.Timeout {
			s.logf("timeout after %d rounds", res.Rounds)
			break
		}
		if frontier.Len() == 0 {
			break
		}
		res.Rounds++
		batch := frontier.Drain()
		expanded := s.expand(batch)
		added := 0
	merge:
		for i, rws := range expanded {
			for _, rw := range rws {
				if found >= cfg.maxPlans() {
					s.logf("stopping at %d plans", found)
					break merge
				}
				p := &Plan{
					Node:        rw.node,
					Fingerprint: plan.Fingerprint(rw.node),
					Parent:      batch[i],
					Step:        rw.step,
					Round:       res.Rounds,
				}
				if s.admit(p) {
					frontier.Push(p)
					found++
					added++
				}
			}
		}
		s.logf("round %d: %d plans expanded, %d new", res.Rounds, len(batch), added)
		if found >= cfg.maxPlans() {
			break
		}
	}
	if frontier.Len() == 0 && err == nil {
		res.Fixpoint = true
	}
	res.Plans = s.Group(seed.Fingerprint)
	res.Elapsed = time.Since(start)
	return res, err
}

// expand computes the rewrites of every plan of
// batch. Each task fills its own slot of the result;
// the caller merges them in order.
func (s *Session) expand(batch []*Plan) [][]rewrite {
	out := make([][]rewrite, len(batch))
	if s.opt.Parallel <= 1 {
		for i, p := range batch {
			out[i] = s.opt.rewrites(p.Node)
		}
		return out
	}
	var g errgroup.Group
	g.SetLimit(s.opt.Parallel)
	for i := range batch {
		i := i
		g.Go(func() error {
			out[i] = s.opt.rewrites(batch[i].Node)
			return nil
		})
	}
	g.Wait()
	return out
}
