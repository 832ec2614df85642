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

// Package bootstrap wires a project's on-disk Config into a constructed
// Encoder Orchestrator and Evolver, the way the teacher's
// internal/bootstrap/bootstrap.go wires a ProjectConfig into an opened
// CozoDB backend. There is no database to open here — the RPG core's
// storage is the ContextStore interface (pkg/store), concrete engines out
// of scope — so InitProject/OpenProject instead resolve an LLM/embedding
// provider pair and the semantic cache location, and hand back ready-to-run
// Encoder/Evolver instances.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/rpg/pkg/embedding"
	"github.com/kraklabs/rpg/pkg/encoder"
	"github.com/kraklabs/rpg/pkg/evolver"
	"github.com/kraklabs/rpg/pkg/ingestion"
	"github.com/kraklabs/rpg/pkg/llm"
)

// ProjectConfig holds the on-disk configuration for a repository's RPG
// project (spec §2 AMBIENT STACK "Configuration": plain struct, no viper,
// decoded from YAML the way the teacher decodes its own project file).
type ProjectConfig struct {
	// ProjectID identifies the repository the RPG is built for.
	ProjectID string `yaml:"projectId"`

	// RootPath is the repository root to encode/evolve.
	RootPath string `yaml:"rootPath"`

	// CacheDir is the directory the semantic cache persists to. Defaults
	// to ~/.rpg/cache/<project_id>.
	CacheDir string `yaml:"cacheDir"`

	// CacheTTLHours is the semantic cache entry lifetime; 0 disables the
	// cache entirely.
	CacheTTLHours int `yaml:"cacheTtlHours"`

	// LLM names the provider/model pair, e.g. "openai/gpt-4o-mini". Empty
	// disables LLM-backed extraction, reorganization, and routing,
	// falling back to the heuristic extractor and first-candidate router.
	LLM string `yaml:"llm,omitempty"`

	// Embedding names the embedding provider/model pair. Empty disables
	// embedding-backed routing and drift detection.
	Embedding string `yaml:"embedding,omitempty"`

	// DriftThreshold overrides evolver.DefaultDriftThreshold when nonzero.
	DriftThreshold float64 `yaml:"driftThreshold,omitempty"`

	// Include/Exclude/MaxDepth/RespectGitignore configure the Encoder's
	// file discovery phase (spec §4.10 phase 1, §6.5). Zero values fall
	// back to ingestion.DefaultDiscoveryConfig().
	Include          []string `yaml:"include,omitempty"`
	Exclude          []string `yaml:"exclude,omitempty"`
	MaxDepth         int      `yaml:"maxDepth,omitempty"`
	RespectGitignore bool     `yaml:"respectGitignore"`
}

// ProjectInfo describes an initialized project.
type ProjectInfo struct {
	ProjectID string
	RootPath  string
	CacheDir  string
}

// DefaultConfig returns a ProjectConfig for projectID/rootPath with the
// ambient stack's conventional defaults: no LLM (heuristic-only), no
// embedding, a 7-day cache.
func DefaultConfig(projectID, rootPath string) ProjectConfig {
	return ProjectConfig{
		ProjectID:        projectID,
		RootPath:         rootPath,
		CacheTTLHours:    7 * 24,
		RespectGitignore: true,
	}
}

// discoveryConfig builds an ingestion.DiscoveryConfig from cfg's discovery
// fields, falling back to ingestion.DefaultDiscoveryConfig()'s exclude list
// when cfg.Exclude is empty.
func discoveryConfig(cfg ProjectConfig) ingestion.DiscoveryConfig {
	d := ingestion.DefaultDiscoveryConfig()
	d.Include = cfg.Include
	if len(cfg.Exclude) > 0 {
		d.Exclude = cfg.Exclude
	}
	if cfg.MaxDepth > 0 {
		d.MaxDepth = cfg.MaxDepth
	}
	d.RespectGitignore = cfg.RespectGitignore
	return d
}

// LoadConfig reads and decodes a ProjectConfig from a YAML file.
func LoadConfig(path string) (ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProjectConfig{}, fmt.Errorf("bootstrap: read config %s: %w", path, err)
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("bootstrap: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories as
// needed.
func SaveConfig(path string, cfg ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("bootstrap: create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bootstrap: write config %s: %w", path, err)
	}
	return nil
}

// resolvedProviders builds the LLM/embedding providers named by cfg. Empty
// names disable the respective provider (nil), which every downstream
// package treats as "fall back to the non-LLM/non-embedding path".
func resolvedProviders(cfg ProjectConfig) (llm.Provider, embedding.Provider, error) {
	var llmProvider llm.Provider
	if cfg.LLM != "" {
		provider, model := splitProviderModel(cfg.LLM)
		p, err := llm.NewProvider(llm.ProviderConfig{Provider: provider, Model: model})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: build llm provider %q: %w", cfg.LLM, err)
		}
		llmProvider = p
	}

	var embedder embedding.Provider
	if cfg.Embedding != "" {
		provider, model := splitProviderModel(cfg.Embedding)
		switch provider {
		case "", "mock":
			embedder = embedding.NewMockProvider(768)
		case "openai":
			embedder = embedding.NewOpenAIProvider("", os.Getenv("OPENAI_API_KEY"), model, 1536)
		default:
			return nil, nil, fmt.Errorf("bootstrap: unknown embedding provider %q", provider)
		}
	}

	return llmProvider, embedder, nil
}

func splitProviderModel(s string) (provider, model string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func defaultCacheDir(projectID, cacheDir string) (string, error) {
	if cacheDir != "" {
		return cacheDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".rpg", "cache", projectID), nil
}

// InitProject validates cfg, resolves its provider pair, and builds a
// ready-to-run Encoder Orchestrator for a fresh encode. This function is
// idempotent: calling it multiple times against the same cfg is safe,
// since it performs no on-disk mutation beyond the semantic cache's own
// lazy file creation.
func InitProject(cfg ProjectConfig, logger *slog.Logger) (*encoder.Orchestrator, *ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" {
		return nil, nil, fmt.Errorf("bootstrap: project_id is required")
	}
	if cfg.RootPath == "" {
		return nil, nil, fmt.Errorf("bootstrap: root_path is required")
	}

	cacheDir, err := defaultCacheDir(cfg.ProjectID, cfg.CacheDir)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("bootstrap.project.init.start",
		"project_id", cfg.ProjectID, "root_path", cfg.RootPath, "cache_dir", cacheDir)

	llmProvider, embedder, err := resolvedProviders(cfg)
	if err != nil {
		return nil, nil, err
	}

	orch, err := encoder.New(encoder.Config{
		RootPath:     cfg.RootPath,
		Name:         cfg.ProjectID,
		Discovery:    discoveryConfig(cfg),
		LLM:          llmProvider,
		Embedder:     embedder,
		CachePath:    filepath.Join(cacheDir, "semantic-cache.json"),
		CacheTTL:     time.Duration(cfg.CacheTTLHours) * time.Hour,
		CacheEnabled: cfg.CacheTTLHours > 0,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: build orchestrator: %w", err)
	}

	logger.Info("bootstrap.project.init.success", "project_id", cfg.ProjectID)

	return orch, &ProjectInfo{ProjectID: cfg.ProjectID, RootPath: cfg.RootPath, CacheDir: cacheDir}, nil
}

// OpenProject resolves cfg's providers and builds a ready-to-run Evolver
// for an existing RPG (the persisted graph itself is loaded by the caller
// via pkg/rpgmodel.FromJSON against whatever pkg/store.GraphStore backs
// it; bootstrap only owns provider/cache wiring, matching the teacher's
// split between opening a backend and loading its rows).
func OpenProject(cfg ProjectConfig, logger *slog.Logger) (*evolver.Evolver, *ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" {
		return nil, nil, fmt.Errorf("bootstrap: project_id is required")
	}
	if cfg.RootPath == "" {
		return nil, nil, fmt.Errorf("bootstrap: root_path is required")
	}

	cacheDir, err := defaultCacheDir(cfg.ProjectID, cfg.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(cfg.RootPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("bootstrap: project root not found: %s", cfg.RootPath)
	}

	logger.Debug("bootstrap.project.open", "project_id", cfg.ProjectID, "root_path", cfg.RootPath)

	llmProvider, embedder, err := resolvedProviders(cfg)
	if err != nil {
		return nil, nil, err
	}

	threshold := cfg.DriftThreshold
	if threshold == 0 {
		threshold = evolver.DefaultDriftThreshold
	}

	ev, err := evolver.New(evolver.Config{
		RootPath:       cfg.RootPath,
		DriftThreshold: threshold,
		LLM:            llmProvider,
		Embedder:       embedder,
		CachePath:      filepath.Join(cacheDir, "semantic-cache.json"),
		CacheTTL:       time.Duration(cfg.CacheTTLHours) * time.Hour,
		CacheEnabled:   cfg.CacheTTLHours > 0,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: build evolver: %w", err)
	}

	return ev, &ProjectInfo{ProjectID: cfg.ProjectID, RootPath: cfg.RootPath, CacheDir: cacheDir}, nil
}

// ListProjects returns the project ids with a cache directory under the
// default ~/.rpg/cache root.
func ListProjects() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	root := filepath.Join(home, ".rpg", "cache")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}
