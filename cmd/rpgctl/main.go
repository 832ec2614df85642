// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements rpgctl, the CLI boundary over the RPG
// encoder/evolver core (spec §6.5). It is intentionally thin: every
// subcommand resolves a project.yaml, builds the corresponding
// Orchestrator/Evolver via internal/bootstrap, runs it, and persists the
// resulting graph as JSON (spec §6.4) — no business logic lives here.
// Grounded directly on the teacher's cmd/cie/main.go dispatch shape (one
// runXxx per subcommand, a hand-rolled usage string, standard-library
// flag except where pflag's repeatable StringArray is needed).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/rpg/internal/metrics"
)

var (
	version = "dev"
	commit  = "unknown" // nolint:unused // set via -ldflags at build time
	date    = "unknown" // nolint:unused // set via -ldflags at build time
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		jsonOutput  = flag.Bool("json", false, "Output machine-readable JSON")
		metricsAddr = flag.String("metrics-addr", "", "If set, serve Prometheus /metrics on this address (e.g. :9090) for the duration of the command")
		projectDir  = flag.String("project", ".", "Project directory containing .rpg/project.yaml")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `rpgctl - Repository Planning Graph CLI

Usage:
  rpgctl <command> [options]

Commands:
  init                Create .rpg/project.yaml in --project
  encode              Build a fresh RPG for the current commit
  evolve --commits R  Incrementally update an existing RPG over commit range R
  stamp               Print config.github.commit for the project's graph
  last-commit         Print the HEAD SHA of --project's repository

Global Options:
  --project       Project directory (default: ".")
  --json          Emit machine-readable JSON instead of text
  --metrics-addr  Serve Prometheus metrics at this address while the command runs
  --version       Show version and exit

Exit codes: 0 success, 1 operational error, 2 fatal storage/configuration error.
`)
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("rpgctl version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if *metricsAddr != "" {
		metrics.Init()
		stopMetricsServer := serveMetrics(*metricsAddr)
		defer stopMetricsServer()
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, *projectDir)
	case "encode":
		runEncode(cmdArgs, *projectDir, *jsonOutput)
	case "evolve":
		runEvolve(cmdArgs, *projectDir, *jsonOutput)
	case "stamp":
		runStamp(cmdArgs, *projectDir, *jsonOutput)
	case "last-commit":
		runLastCommit(cmdArgs, *projectDir, *jsonOutput)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
