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

package ground

import (
	"testing"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLCASinglePathReturnsItself(t *testing.T) {
	assert.Equal(t, []string{"pkg/user/repo.go"}, ComputeLCA([]string{"pkg/user/repo.go"}))
}

func TestComputeLCACommonPrefixCollapses(t *testing.T) {
	lcas := ComputeLCA([]string{"pkg/user/repo.go", "pkg/user/service.go", "pkg/user/handler.go"})
	assert.Equal(t, []string{"pkg/user"}, lcas)
}

func TestComputeLCADivergentTopLevelAreasStaySeparate(t *testing.T) {
	lcas := ComputeLCA([]string{
		"pkg/user/repo.go", "pkg/user/service.go",
		"cmd/server/main.go", "cmd/server/handler.go",
	})
	assert.Equal(t, []string{"cmd/server", "pkg/user"}, lcas)
}

func TestComputeLCATerminalNodeStopsDescent(t *testing.T) {
	// "pkg/user" is itself a leaf (a file named "user" under pkg/), and
	// "pkg/user/repo.go" descends further — the trie node at "pkg/user" is
	// terminal, so descent must stop there rather than continuing to
	// "pkg/user/repo.go".
	lcas := ComputeLCA([]string{"pkg/user", "pkg/user/repo.go"})
	assert.Equal(t, []string{"pkg/user"}, lcas)
}

func TestComputeLCAEmptyInput(t *testing.T) {
	assert.Empty(t, ComputeLCA(nil))
}

func TestComputeLCAIgnoresEmptyPaths(t *testing.T) {
	lcas := ComputeLCA([]string{"", "pkg/user/repo.go", ""})
	assert.Equal(t, []string{"pkg/user/repo.go"}, lcas)
}

func TestComputeLCANeverContainsOneResultThatPrefixesAnother(t *testing.T) {
	lcas := ComputeLCA([]string{"a/b/c.go", "a/b/d.go", "a/x/y.go", "z/q.go"})
	for i := range lcas {
		for j := range lcas {
			if i == j {
				continue
			}
			assert.NotContains(t, lcas[i], lcas[j]+"/", "lca %q should not be a strict descendant of %q", lcas[i], lcas[j])
		}
	}
}

func newModuleWithFiles(t *testing.T, moduleID string, paths ...string) *rpgmodel.Graph {
	t.Helper()
	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "test"})
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: moduleID, Kind: rpgmodel.NodeHighLevel}))
	for i, p := range paths {
		id := p
		require.NoError(t, g.AddNode(rpgmodel.Node{ID: id, Kind: rpgmodel.NodeLowLevel, Metadata: rpgmodel.Metadata{Path: p}}))
		require.NoError(t, g.AddEdge(rpgmodel.Edge{Source: moduleID, Target: id, Kind: rpgmodel.EdgeFunctional, SiblingOrder: i}))
	}
	return g
}

func TestGroundAssignsSingleLCAAsPrimaryPath(t *testing.T) {
	g := newModuleWithFiles(t, "module", "pkg/user/repo.go", "pkg/user/service.go")
	require.NoError(t, Ground(g))

	n, ok := g.GetNode("module")
	require.True(t, ok)
	assert.Equal(t, "pkg/user", n.Metadata.Path)
	assert.Equal(t, rpgmodel.EntityModule, n.Metadata.EntityType)
	assert.Empty(t, n.Metadata.ExtraPaths())
}

func TestGroundRecordsSecondaryPathsForMultiLCANode(t *testing.T) {
	g := newModuleWithFiles(t, "module",
		"pkg/user/repo.go", "pkg/user/service.go",
		"cmd/server/main.go", "cmd/server/handler.go",
	)
	require.NoError(t, Ground(g))

	n, ok := g.GetNode("module")
	require.True(t, ok)
	assert.Equal(t, "cmd/server", n.Metadata.Path)
	assert.Equal(t, []string{"cmd/server", "pkg/user"}, n.Metadata.ExtraPaths())
}

func TestGroundSkipsNodeWithNoLeafDescendants(t *testing.T) {
	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "test"})
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: "empty-module", Kind: rpgmodel.NodeHighLevel}))
	require.NoError(t, Ground(g))

	n, ok := g.GetNode("empty-module")
	require.True(t, ok)
	assert.Empty(t, n.Metadata.Path)
}

func TestGroundPreservesUnrelatedExtraKeys(t *testing.T) {
	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "test"})
	require.NoError(t, g.AddNode(rpgmodel.Node{
		ID: "module", Kind: rpgmodel.NodeHighLevel,
		Metadata: rpgmodel.Metadata{Extra: map[string]any{"note": "keep me"}},
	}))
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: "file", Kind: rpgmodel.NodeLowLevel, Metadata: rpgmodel.Metadata{Path: "pkg/a.go"}}))
	require.NoError(t, g.AddEdge(rpgmodel.Edge{Source: "module", Target: "file", Kind: rpgmodel.EdgeFunctional}))

	require.NoError(t, Ground(g))

	n, ok := g.GetNode("module")
	require.True(t, ok)
	assert.Equal(t, "keep me", n.Metadata.Extra["note"])
}
