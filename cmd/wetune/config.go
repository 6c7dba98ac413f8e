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
	"fmt"
	"os"
	"time"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/enumerate"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/optimizer"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/prover"

	"sigs.k8s.io/yaml"
)

// Config is the contents of a configuration file.
// Zero values select the package defaults.
type Config struct {
	Enumerate EnumConfig     `json:"enumerate"`
	Optimize  OptimizeConfig `json:"optimize"`
	// Schema is the path of a schema file,
	// relative to the working directory.
	Schema string `json:"schema,omitempty"`
}

// EnumConfig configures the enum command.
type EnumConfig struct {
	// Kinds are operator kind names, e.g. "InnerJoin".
	Kinds         []string `json:"kinds,omitempty"`
	MaxOps        int      `json:"max_ops,omitempty"`
	MaxCandidates int      `json:"max_candidates,omitempty"`
	MaxVars       int      `json:"max_vars,omitempty"`
	Parallel      int      `json:"parallel,omitempty"`
	NoBuiltins    bool     `json:"no_builtins,omitempty"`
	// Timeout is a duration like "10m".
	Timeout string `json:"timeout,omitempty"`
	// NoPrune disables the pruning rules.
	NoPrune bool `json:"no_prune,omitempty"`
}

// OptimizeConfig configures the optimize command.
type OptimizeConfig struct {
	MaxRounds int `json:"max_rounds,omitempty"`
	MaxPlans  int `json:"max_plans,omitempty"`
	// Timeout bounds the search for one plan.
	Timeout  string `json:"timeout,omitempty"`
	Parallel int    `json:"parallel,omitempty"`
}

func loadConfig(file string) (*Config, error) {
	c := new(Config)
	if file == "" {
		return c, nil
	}
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(buf, c); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return c, nil
}

func duration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// enumConfig returns the enumerate.Config
// described by c and its timeout.
func (c *Config) enumConfig() (*enumerate.Config, time.Duration, error) {
	e := &c.Enumerate
	out := &enumerate.Config{
		Fragments: fragment.Options{
			MaxOps: e.MaxOps,
		},
		Parallel:      e.Parallel,
		MaxCandidates: e.MaxCandidates,
		NoBuiltins:    e.NoBuiltins,
	}
	if e.MaxVars > 0 {
		out.Prover = &prover.Prover{MaxVars: e.MaxVars}
	}
	for _, name := range e.Kinds {
		k, ok := fragment.KindNamed(name)
		if !ok || k == fragment.Input {
			return nil, 0, fmt.Errorf("enumerate.kinds: unknown operator kind %q", name)
		}
		out.Fragments.Kinds = append(out.Fragments.Kinds, k)
	}
	if e.NoPrune {
		out.Fragments.Rules = []fragment.Rule{}
	}
	timeout, err := duration("enumerate.timeout", e.Timeout)
	if err != nil {
		return nil, 0, err
	}
	return out, timeout, nil
}

// optimizerConfig returns the optimizer.Config
// described by c.
func (c *Config) optimizerConfig() (optimizer.Config, error) {
	o := &c.Optimize
	timeout, err := duration("optimize.timeout", o.Timeout)
	if err != nil {
		return optimizer.Config{}, err
	}
	return optimizer.Config{
		MaxRounds: o.MaxRounds,
		MaxPlans:  o.MaxPlans,
		Timeout:   timeout,
		Parallel:  o.Parallel,
	}, nil
}

// schema loads the schema file named by
// override, or else by the configuration.
func (c *Config) schema(override string) (*plan.Schema, error) {
	file := c.Schema
	if override != "" {
		file = override
	}
	if file == "" {
		return &plan.Schema{}, nil
	}
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	s, err := plan.ParseSchema(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return s, nil
}
