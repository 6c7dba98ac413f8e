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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/enumerate"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/optimizer"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/subst"
)

// entry point for 'wetune enum ...'
func enum(ctx context.Context, conf *Config, out string) {
	cfg, timeout, err := conf.enumConfig()
	if err != nil {
		exitf("%s", err)
	}
	if dashj > 0 {
		cfg.Parallel = dashj
	}
	if dashv {
		cfg.Logf = logf
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	bank, st, err := enumerate.Run(ctx, cfg)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			exitf("enumerate: %s", err)
		}
		logf("enumeration interrupted; writing the %d rules found so far", bank.Len())
	}
	if err := writeBank(out, bank); err != nil {
		exitf("writing %s: %s", out, err)
	}
	fmt.Printf("%s: %d rules (%s)\n", out, bank.Len(), st)
}

// entry point for 'wetune optimize ...'
func optimize(ctx context.Context, conf *Config, bankfile, plansfile string) {
	cfg, err := conf.optimizerConfig()
	if err != nil {
		exitf("%s", err)
	}
	cfg.Schema, err = conf.schema(dashs)
	if err != nil {
		exitf("%s", err)
	}
	if dashv {
		cfg.Logf = logf
	}
	f, err := os.Open(plansfile)
	if err != nil {
		exitf("%s", err)
	}
	roots, err := readPlans(f)
	f.Close()
	if err != nil {
		exitf("%s: %s", plansfile, err)
	}
	o := optimizer.New(readBank(bankfile), cfg)
	results := o.OptimizeAll(ctx, roots, dashj)
	failed := false
	for i, res := range results {
		if res.Err != nil {
			logf("statement %d: %s", i, res.Err)
			failed = true
			if res.Seed == nil {
				continue
			}
		}
		best := optimizer.Cheapest(res.Plans, optimizer.NodeCount)
		fmt.Printf("# statement %d: %d plans in %d rounds (session %s)\n", i, len(res.Plans), res.Rounds, res.Session)
		fmt.Println(best.Node)
		if dashdot != "" {
			writeDot(filepath.Join(dashdot, fmt.Sprintf("statement-%d.dot", i)), best.Node)
		}
		if dashv {
			fmt.Print(best.Provenance())
			for _, p := range res.Plans {
				if p != best {
					fmt.Printf("#   %s\n", p.Node)
				}
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

// entry point for 'wetune show ...'
func show(bankfile string) {
	b := readBank(bankfile)
	fmt.Printf("%d rules, digest %s\n", b.Len(), b.Digest())
	counts := make(map[fragment.Kind]int)
	for _, s := range b.All() {
		counts[s.G0.Root.Kind]++
	}
	kinds := make([]fragment.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Printf("\t%s: %d\n", k, counts[k])
	}
	if dashv {
		subst.Write(os.Stdout, b.Sorted())
	}
}

// entry point for 'wetune verify ...'
func verify(ctx context.Context, conf *Config, bankfile string) {
	b := readBank(bankfile)
	if dashdigest != "" && b.Digest() != dashdigest {
		exitf("%s: digest %s does not match %s", bankfile, b.Digest(), dashdigest)
	}
	cfg, _, err := conf.enumConfig()
	if err != nil {
		exitf("%s", err)
	}
	bad := 0
	for _, s := range b.Sorted() {
		if ctx.Err() != nil {
			exitf("interrupted")
		}
		ok, err := subst.Verify(s, cfg.Prover)
		switch {
		case err != nil:
			logf("%s: %s", s, err)
			bad++
		case !ok:
			logf("not proven: %s", s)
			bad++
		case dashv:
			logf("ok: %s", s)
		}
	}
	fmt.Printf("%d of %d rules verified\n", b.Len()-bad, b.Len())
	if bad > 0 {
		os.Exit(1)
	}
}
