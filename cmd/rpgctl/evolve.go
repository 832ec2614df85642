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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/rpg/internal/bootstrap"
	"github.com/kraklabs/rpg/internal/rpgerrors"
)

// evolveResultJSON is the --json shape for the evolve subcommand.
type evolveResultJSON struct {
	Inserted        int      `json:"inserted"`
	Deleted         int      `json:"deleted"`
	Modified        int      `json:"modified"`
	Rerouted        int      `json:"rerouted"`
	PrunedNodes     int      `json:"pruned_nodes"`
	LLMCalls        int      `json:"llm_calls"`
	DurationSeconds float64  `json:"duration_seconds"`
	Commit          string   `json:"commit,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// runEvolve executes the 'evolve' subcommand: apply --commits's range
// against --project's persisted graph via the three-phase Evolver (spec
// §4.13) and re-persist the result.
func runEvolve(args []string, projectDir string, jsonOutput bool) {
	fs := flag.NewFlagSet("evolve", flag.ExitOnError)
	commits := fs.String("commits", "", "commit range to diff, e.g. HEAD~5..HEAD (required)")
	noLLM := fs.Bool("no-llm", false, "disable LLM-backed re-routing")
	model := fs.String("m", "", "provider/model for LLM-backed routing, overriding project.yaml")
	driftThreshold := fs.Float64("drift-threshold", 0, "override the semantic drift threshold (default: project.yaml or 0.3)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rpgctl evolve --commits <range> [options]

Incrementally updates --project's persisted RPG over a commit range.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *commits == "" {
		rpgerrors.FatalError(rpgerrors.New(rpgerrors.KindValidation,
			"--commits is required", "", "pass a commit range, e.g. --commits HEAD~5..HEAD", nil), jsonOutput)
	}

	cfg, err := bootstrap.LoadConfig(ConfigPath(projectDir))
	if err != nil {
		rpgerrors.FatalError(rpgerrors.NewStorageError("load project config", err), jsonOutput)
	}
	if *noLLM {
		cfg.LLM = ""
	} else if *model != "" {
		cfg.LLM = *model
	}
	if *driftThreshold > 0 {
		cfg.DriftThreshold = *driftThreshold
	}

	g, err := loadGraph(projectDir)
	if err != nil {
		rpgerrors.FatalError(err, jsonOutput)
	}

	ev, _, err := bootstrap.OpenProject(cfg, slog.Default())
	if err != nil {
		rpgerrors.FatalError(rpgerrors.NewStorageError("open project", err), jsonOutput)
	}

	result, err := ev.Evolve(context.Background(), g, *commits)
	if err != nil {
		rpgerrors.FatalError(rpgerrors.NewStorageError("evolve", err), jsonOutput)
	}

	if err := saveGraph(projectDir, g); err != nil {
		rpgerrors.FatalError(err, jsonOutput)
	}

	commit := ""
	if g.Config.GitHub != nil {
		commit = g.Config.GitHub.Commit
	}

	if jsonOutput {
		out := evolveResultJSON{
			Inserted: result.Inserted, Deleted: result.Deleted, Modified: result.Modified,
			Rerouted: result.Rerouted, PrunedNodes: result.PrunedNodes, LLMCalls: result.LLMCalls,
			DurationSeconds: result.Duration.Seconds(), Commit: commit,
		}
		for _, e := range result.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Printf("inserted=%d deleted=%d modified=%d rerouted=%d pruned=%d (%s)\n",
		result.Inserted, result.Deleted, result.Modified, result.Rerouted, result.PrunedNodes, result.Duration)
	if commit != "" {
		fmt.Printf("Commit: %s\n", commit)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("Warnings: %d (non-fatal, see logs)\n", len(result.Errors))
	}
}
