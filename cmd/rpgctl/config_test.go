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
	"path/filepath"
	"testing"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPathsAreUnderDotRPG(t *testing.T) {
	projectDir := "/repos/acme-widgets"
	assert.Equal(t, filepath.Join(projectDir, ".rpg"), ConfigDir(projectDir))
	assert.Equal(t, filepath.Join(projectDir, ".rpg", "project.yaml"), ConfigPath(projectDir))
	assert.Equal(t, filepath.Join(projectDir, ".rpg", "graph.json"), GraphPath(projectDir))
}

func TestSaveGraphLoadGraphRoundTrip(t *testing.T) {
	projectDir := t.TempDir()

	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "acme-widgets"})
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: "root", Kind: rpgmodel.NodeHighLevel}))

	require.NoError(t, saveGraph(projectDir, g))

	loaded, err := loadGraph(projectDir)
	require.NoError(t, err)
	assert.Equal(t, g.Nodes(), loaded.Nodes())
}

func TestLoadGraphMissingReturnsStorageError(t *testing.T) {
	projectDir := t.TempDir()
	_, err := loadGraph(projectDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no graph found")
}
