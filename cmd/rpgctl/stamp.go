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
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/rpg/internal/bootstrap"
	"github.com/kraklabs/rpg/internal/rpgerrors"
	"github.com/kraklabs/rpg/pkg/ingestion"
)

// runStamp executes the 'stamp' subcommand: print the persisted graph's
// config.github.commit (spec §3 "the commit stamp is the source of truth
// for which commit this RPG represents").
func runStamp(args []string, projectDir string, jsonOutput bool) {
	fs := flag.NewFlagSet("stamp", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rpgctl stamp\n\nPrints the persisted graph's commit stamp.\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	g, err := loadGraph(projectDir)
	if err != nil {
		rpgerrors.FatalError(err, jsonOutput)
	}

	if g.Config.GitHub == nil || g.Config.GitHub.Commit == "" {
		rpgerrors.FatalError(rpgerrors.New(rpgerrors.KindValidation,
			"graph has no commit stamp", "the project was never successfully encoded against a git work-tree",
			"run 'rpgctl encode' inside a git repository", nil), jsonOutput)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(map[string]string{"commit": g.Config.GitHub.Commit})
		return
	}
	fmt.Println(g.Config.GitHub.Commit)
}

// runLastCommit executes the 'last-commit' subcommand: print --project's
// repository HEAD SHA, independent of any persisted graph.
func runLastCommit(args []string, projectDir string, jsonOutput bool) {
	fs := flag.NewFlagSet("last-commit", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rpgctl last-commit\n\nPrints --project's repository HEAD SHA.\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := bootstrap.LoadConfig(ConfigPath(projectDir))
	root := projectDir
	if err == nil && cfg.RootPath != "" {
		root = cfg.RootPath
	}

	sha, err := ingestion.HeadSHA(root, "HEAD")
	if err != nil {
		gitErr := rpgerrors.NewGitError("cannot resolve HEAD", err)
		gitErr.ExitCode = rpgerrors.ExitValidation // no commit is an operational error (exit 1)
		rpgerrors.FatalError(gitErr, jsonOutput)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(map[string]string{"commit": sha})
		return
	}
	fmt.Println(sha)
}
