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
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/kraklabs/rpg/internal/bootstrap"
	"github.com/kraklabs/rpg/internal/rpgerrors"
	"github.com/kraklabs/rpg/pkg/ingestion"
)

// encodeResultJSON is the --json shape for the encode subcommand.
type encodeResultJSON struct {
	FilesProcessed    int      `json:"files_processed"`
	EntitiesExtracted int      `json:"entities_extracted"`
	DurationSeconds   float64  `json:"duration_seconds"`
	Commit            string   `json:"commit,omitempty"`
	Errors            []string `json:"errors,omitempty"`
}

// runEncode executes the 'encode' subcommand: build a fresh RPG from
// --project's current commit and persist it to .rpg/graph.json. Flags use
// pflag rather than the standard library's flag package for the one place
// it matters — repeatable --include/--exclude globs (spec §6.5, SPEC_FULL.md
// DOMAIN STACK pflag entry) — everything else mirrors the teacher's
// runXxx(args, configPath) shape.
func runEncode(args []string, projectDir string, jsonOutput bool) {
	fs := pflag.NewFlagSet("encode", pflag.ExitOnError)
	include := fs.StringArray("include", nil, "glob pattern to include (repeatable)")
	exclude := fs.StringArray("exclude", nil, "glob pattern to exclude (repeatable, adds to the defaults)")
	maxDepth := fs.Int("max-depth", 0, "maximum directory depth (0 = unbounded)")
	respectGitignore := fs.Bool("respect-gitignore", true, "honor .gitignore via 'git ls-files'")
	noLLM := fs.Bool("no-llm", false, "disable LLM-backed extraction, reorganization, and routing")
	model := fs.StringP("model", "m", "", "provider/model for LLM-backed phases, overriding project.yaml")
	embeddingModel := fs.String("embedding", "", "provider/model for embedding-backed routing, overriding project.yaml")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rpgctl encode [options]

Builds a fresh RPG for --project's current commit.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := bootstrap.LoadConfig(ConfigPath(projectDir))
	if err != nil {
		rpgerrors.FatalError(rpgerrors.NewStorageError("load project config", err), jsonOutput)
	}

	if *noLLM {
		cfg.LLM = ""
		cfg.Embedding = ""
	} else {
		if *model != "" {
			cfg.LLM = *model
		}
		if *embeddingModel != "" {
			cfg.Embedding = *embeddingModel
		}
	}

	if len(*include) > 0 {
		cfg.Include = *include
	}
	if len(*exclude) > 0 {
		if len(cfg.Exclude) == 0 {
			cfg.Exclude = append([]string{}, ingestion.DefaultDiscoveryConfig().Exclude...)
		}
		cfg.Exclude = append(cfg.Exclude, *exclude...)
	}
	if *maxDepth > 0 {
		cfg.MaxDepth = *maxDepth
	}
	cfg.RespectGitignore = *respectGitignore

	logger := slog.Default()
	orch, _, err := bootstrap.InitProject(cfg, logger)
	if err != nil {
		rpgerrors.FatalError(rpgerrors.NewStorageError("init project", err), jsonOutput)
	}

	result, err := orch.Encode(context.Background())
	if err != nil {
		rpgerrors.FatalError(rpgerrors.NewStorageError("encode", err), jsonOutput)
	}

	if err := saveGraph(projectDir, result.RPG); err != nil {
		rpgerrors.FatalError(err, jsonOutput)
	}

	commit := ""
	if result.RPG.Config.GitHub != nil {
		commit = result.RPG.Config.GitHub.Commit
	}

	if jsonOutput {
		out := encodeResultJSON{
			FilesProcessed:    result.FilesProcessed,
			EntitiesExtracted: result.EntitiesExtracted,
			DurationSeconds:   result.Duration.Seconds(),
			Commit:            commit,
		}
		for _, e := range result.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Printf("Encoded %d files, %d entities in %s\n", result.FilesProcessed, result.EntitiesExtracted, result.Duration)
	if commit != "" {
		fmt.Printf("Commit: %s\n", commit)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("Warnings: %d (non-fatal, see logs)\n", len(result.Errors))
	}
}
