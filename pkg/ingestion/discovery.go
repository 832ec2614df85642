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

package ingestion

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// DiscoveryConfig bounds the file-discovery phase (spec §4.10 phase 1):
// include/exclude glob patterns, a depth cap, and git-aware filtering.
type DiscoveryConfig struct {
	Include          []string
	Exclude          []string
	MaxDepth         int
	RespectGitignore bool
}

// DefaultDiscoveryConfig mirrors the teacher's RepoLoader defaults:
// no include restriction, a conservative exclude list, unbounded depth,
// git-aware by default (spec §6.5 "--respect-gitignore defaults true").
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Exclude: []string{
			".git/**", "node_modules/**", "vendor/**", "dist/**", "build/**",
			"*.min.js", "*.lock",
		},
		MaxDepth:         0,
		RespectGitignore: true,
	}
}

// Discoverer walks a repository root and yields candidate file paths,
// grounded directly on the teacher's pkg/ingestion/repo_loader.go
// walkRepository/shouldExclude/matchesGlob trio.
type Discoverer struct {
	logger *slog.Logger
}

// NewDiscoverer builds a Discoverer; a nil logger falls back to slog.Default().
func NewDiscoverer(logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{logger: logger}
}

// Discover enumerates files under root honoring cfg. When RespectGitignore
// is set and root is a git work-tree, `git ls-files` supplies the
// candidate set (tracked + untracked-but-not-ignored); any git failure or
// non-work-tree root degrades to a raw filesystem walk (spec §4.10,
// §7 GitError: "the encoder may degrade to raw walk").
func (d *Discoverer) Discover(root string, cfg DiscoveryConfig) ([]string, error) {
	var candidates []string
	if cfg.RespectGitignore {
		if files, err := d.gitLsFiles(root); err == nil {
			candidates = files
		} else {
			d.logger.Warn("discovery.git_ls_files.fallback", "root", root, "err", err)
		}
	}
	if candidates == nil {
		var err error
		candidates, err = d.walk(root, cfg.MaxDepth)
		if err != nil {
			return nil, fmt.Errorf("ingestion: walk repository: %w", err)
		}
	}

	out := make([]string, 0, len(candidates))
	for _, rel := range candidates {
		rel = filepath.ToSlash(rel)
		if cfg.MaxDepth > 0 && strings.Count(rel, "/") >= cfg.MaxDepth {
			continue
		}
		if len(cfg.Include) > 0 && !matchesAny(rel, cfg.Include) {
			continue
		}
		if matchesAny(rel, cfg.Exclude) {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

func (d *Discoverer) gitLsFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var out []string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out, scanner.Err()
}

func (d *Discoverer) walk(root string, maxDepth int) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger.Warn("discovery.walk.error", "path", path, "err", err)
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if maxDepth > 0 && strings.Count(filepath.ToSlash(rel), "/") >= maxDepth {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	return out, err
}

func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if matchesGlob(path, p) {
			return true
		}
	}
	return false
}

// matchesGlob implements the single glob-only pattern language settled on
// in DESIGN.md's Open Question decision: `*` matches within a path
// segment, `**` matches across segments, patterns without a `/` match
// anywhere in the path (implicit `**/` prefix), adapted from the teacher's
// repo_loader.go matchesGlob/matchGlobPattern.
func matchesGlob(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)

	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	if !strings.Contains(pattern, "/") {
		return globMatchSegment(filepath.Base(path), pattern) || globMatch(path, "**/"+pattern)
	}
	return globMatch(path, pattern)
}

func globMatch(path, pattern string) bool {
	return globMatchRecursive(path, pattern, 0, 0)
}

func globMatchSegment(segment, pattern string) bool {
	return globMatchRecursive(segment, pattern, 0, 0)
}

func globMatchRecursive(path, pattern string, pi, pti int) bool {
	for pi < len(path) || pti < len(pattern) {
		if pti >= len(pattern) {
			return false
		}
		if pti+1 < len(pattern) && pattern[pti] == '*' && pattern[pti+1] == '*' {
			next := pti + 2
			if next < len(pattern) && pattern[next] == '/' {
				next++
			}
			if next >= len(pattern) {
				return true
			}
			for i := pi; i <= len(path); i++ {
				if globMatchRecursive(path, pattern, i, next) {
					return true
				}
			}
			return false
		}
		if pattern[pti] == '*' {
			next := pti + 1
			for i := pi; i <= len(path); i++ {
				if i > pi && path[i-1] == '/' {
					break
				}
				if globMatchRecursive(path, pattern, i, next) {
					return true
				}
			}
			return false
		}
		if pattern[pti] == '?' {
			if pi >= len(path) || path[pi] == '/' {
				return false
			}
			pi++
			pti++
			continue
		}
		if pi >= len(path) || path[pi] != pattern[pti] {
			return false
		}
		pi++
		pti++
	}
	return pi == len(path) && pti == len(pattern)
}
