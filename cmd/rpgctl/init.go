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
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/rpg/internal/bootstrap"
	"github.com/kraklabs/rpg/internal/rpgerrors"
)

// runInit executes the 'init' subcommand, writing .rpg/project.yaml under
// projectDir. Grounded on the teacher's runInit (cmd/cie/init.go): refuse
// to overwrite an existing config without --force, otherwise write
// DefaultConfig and print next steps.
func runInit(args []string, projectDir string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing .rpg/project.yaml")
	projectID := fs.String("project-id", "", "Project identifier (default: directory name)")
	llmFlag := fs.String("llm", "", "provider/model for LLM-backed extraction, reorganization, and routing (default: heuristic-only)")
	embeddingFlag := fs.String("embedding", "", "provider/model for embedding-backed routing and drift detection")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rpgctl init [options]

Creates .rpg/project.yaml under --project.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	configPath := ConfigPath(projectDir)
	if _, err := os.Stat(configPath); err == nil && !*force {
		rpgerrors.FatalError(rpgerrors.New(rpgerrors.KindValidation,
			fmt.Sprintf("%s already exists", configPath), "", "pass --force to overwrite", nil), false)
	}

	absRoot, err := filepath.Abs(projectDir)
	if err != nil {
		rpgerrors.FatalError(rpgerrors.NewValidationError("cannot resolve project directory", err.Error()), false)
	}

	pid := *projectID
	if pid == "" {
		pid = filepath.Base(absRoot)
	}

	cfg := bootstrap.DefaultConfig(pid, absRoot)
	cfg.LLM = *llmFlag
	cfg.Embedding = *embeddingFlag

	if err := bootstrap.SaveConfig(configPath, cfg); err != nil {
		rpgerrors.FatalError(err, false)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Next: run 'rpgctl encode' to build the RPG.")
}
