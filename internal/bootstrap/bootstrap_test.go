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

package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/kraklabs/rpg/pkg/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigSetsConventionalDefaults(t *testing.T) {
	cfg := DefaultConfig("acme-widgets", "/repos/acme-widgets")
	assert.Equal(t, "acme-widgets", cfg.ProjectID)
	assert.Equal(t, "/repos/acme-widgets", cfg.RootPath)
	assert.Equal(t, 7*24, cfg.CacheTTLHours)
	assert.True(t, cfg.RespectGitignore)
	assert.Empty(t, cfg.LLM)
	assert.Empty(t, cfg.Embedding)
}

func TestDiscoveryConfigFallsBackToDefaultExcludeList(t *testing.T) {
	cfg := ProjectConfig{RespectGitignore: true}
	d := discoveryConfig(cfg)
	assert.Equal(t, ingestion.DefaultDiscoveryConfig().Exclude, d.Exclude)
	assert.Equal(t, 0, d.MaxDepth)
	assert.True(t, d.RespectGitignore)
}

func TestDiscoveryConfigHonorsOverrides(t *testing.T) {
	cfg := ProjectConfig{
		Include:          []string{"pkg/**"},
		Exclude:          []string{"testdata/**"},
		MaxDepth:         5,
		RespectGitignore: false,
	}
	d := discoveryConfig(cfg)
	assert.Equal(t, []string{"pkg/**"}, d.Include)
	assert.Equal(t, []string{"testdata/**"}, d.Exclude)
	assert.Equal(t, 5, d.MaxDepth)
	assert.False(t, d.RespectGitignore)
}

func TestSplitProviderModel(t *testing.T) {
	cases := []struct {
		in           string
		wantProvider string
		wantModel    string
	}{
		{"openai/gpt-4o-mini", "openai", "gpt-4o-mini"},
		{"anthropic/claude-3-5-sonnet", "anthropic", "claude-3-5-sonnet"},
		{"mock", "mock", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		provider, model := splitProviderModel(c.in)
		assert.Equal(t, c.wantProvider, provider)
		assert.Equal(t, c.wantModel, model)
	}
}

func TestSaveConfigLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".rpg", "project.yaml")

	cfg := DefaultConfig("acme-widgets", "/repos/acme-widgets")
	cfg.LLM = "openai/gpt-4o-mini"
	cfg.Include = []string{"pkg/**", "cmd/**"}

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigMissingFileReturnsError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefaultCacheDirUsesExplicitValue(t *testing.T) {
	dir, err := defaultCacheDir("acme", "/custom/cache")
	require.NoError(t, err)
	assert.Equal(t, "/custom/cache", dir)
}

func TestDefaultCacheDirFallsBackToHomeDir(t *testing.T) {
	dir, err := defaultCacheDir("acme", "")
	require.NoError(t, err)
	assert.Contains(t, dir, filepath.Join(".rpg", "cache", "acme"))
}

func TestInitProjectRejectsMissingProjectID(t *testing.T) {
	_, _, err := InitProject(ProjectConfig{RootPath: "/tmp"}, nil)
	require.Error(t, err)
}

func TestInitProjectRejectsMissingRootPath(t *testing.T) {
	_, _, err := InitProject(ProjectConfig{ProjectID: "acme"}, nil)
	require.Error(t, err)
}

func TestOpenProjectRejectsNonexistentRoot(t *testing.T) {
	_, _, err := OpenProject(ProjectConfig{ProjectID: "acme", RootPath: filepath.Join(t.TempDir(), "missing")}, nil)
	require.Error(t, err)
}
