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

// Command wetune builds banks of verified rewrite
// rules and uses them to find equivalent plans.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
)

var (
	dashv      bool
	dashh      bool
	dashc      string
	dashs      string
	dashj      int
	dashdigest string
	dashdot    string
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.StringVar(&dashc, "c", "", "YAML configuration file")
	flag.StringVar(&dashs, "s", "", "YAML schema file (overrides the configuration)")
	flag.IntVar(&dashj, "j", 0, "parallelism (default: from the configuration, or GOMAXPROCS)")
	flag.StringVar(&dashdigest, "digest", "", "expected bank digest for verify")
	flag.StringVar(&dashdot, "dot", "", "directory for graphviz output of optimized plans")
}

func exitf(f string, args ...interface{}) {
	if f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <command> <args...>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "commands:\n")
	fmt.Fprintf(os.Stderr, "\tenum <bank>               enumerate and verify a new bank\n")
	fmt.Fprintf(os.Stderr, "\toptimize <bank> <plans>   find plans equivalent to each input plan\n")
	fmt.Fprintf(os.Stderr, "\tshow <bank>               summarize a bank\n")
	fmt.Fprintf(os.Stderr, "\tverify <bank>             re-verify every rule of a bank\n")
	fmt.Fprintf(os.Stderr, "bank files ending in .zst or .s2 are compressed\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if dashh || len(args) == 0 {
		usage()
		os.Exit(1)
	}
	conf, err := loadConfig(dashc)
	if err != nil {
		exitf("%s", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args[0] {
	case "enum":
		if len(args) != 2 {
			exitf("usage: enum <bank>")
		}
		enum(ctx, conf, args[1])
	case "optimize":
		if len(args) != 3 {
			exitf("usage: optimize <bank> <plans>")
		}
		optimize(ctx, conf, args[1], args[2])
	case "show":
		if len(args) != 2 {
			exitf("usage: show <bank>")
		}
		show(args[1])
	case "verify":
		if len(args) != 2 {
			exitf("usage: verify <bank>")
		}
		verify(ctx, conf, args[1])
	default:
		exitf("commands: enum, optimize, show, verify")
	}
}
