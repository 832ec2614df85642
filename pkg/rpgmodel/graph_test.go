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

package rpgmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph() *Graph {
	return NewGraph(Config{Name: "test"})
}

func mustAddNode(t *testing.T, g *Graph, id string, kind NodeKind) {
	t.Helper()
	require.NoError(t, g.AddNode(Node{ID: id, Kind: kind}))
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "a", NodeHighLevel)
	err := g.AddNode(Node{ID: "a", Kind: NodeHighLevel})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestAddNodeRejectsEmptyID(t *testing.T) {
	g := newTestGraph()
	err := g.AddNode(Node{Kind: NodeHighLevel})
	require.Error(t, err)
}

func TestAddEdgeRejectsUnknownEndpoints(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "a", NodeHighLevel)

	err := g.AddEdge(Edge{Source: "a", Target: "missing", Kind: EdgeFunctional})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edge target")

	err = g.AddEdge(Edge{Source: "missing", Target: "a", Kind: EdgeFunctional})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edge source")
}

func TestAddEdgeEnforcesForestInvariant(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "root1", NodeHighLevel)
	mustAddNode(t, g, "root2", NodeHighLevel)
	mustAddNode(t, g, "child", NodeHighLevel)

	require.NoError(t, g.AddEdge(Edge{Source: "root1", Target: "child", Kind: EdgeFunctional, SiblingOrder: 0}))

	err := g.AddEdge(Edge{Source: "root2", Target: "child", Kind: EdgeFunctional, SiblingOrder: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has functional parent")
}

func TestAddEdgeRejectsFunctionalCycle(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "a", NodeHighLevel)
	mustAddNode(t, g, "b", NodeHighLevel)
	mustAddNode(t, g, "c", NodeHighLevel)

	require.NoError(t, g.AddEdge(Edge{Source: "a", Target: "b", Kind: EdgeFunctional}))
	require.NoError(t, g.AddEdge(Edge{Source: "b", Target: "c", Kind: EdgeFunctional}))

	err := g.AddEdge(Edge{Source: "c", Target: "a", Kind: EdgeFunctional})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestAddEdgeRejectsNegativeSiblingOrder(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "a", NodeHighLevel)
	mustAddNode(t, g, "b", NodeHighLevel)

	err := g.AddEdge(Edge{Source: "a", Target: "b", Kind: EdgeFunctional, SiblingOrder: -1})
	require.Error(t, err)
}

func TestChildrenAreKeptInSiblingOrder(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "parent", NodeHighLevel)
	mustAddNode(t, g, "third", NodeHighLevel)
	mustAddNode(t, g, "first", NodeHighLevel)
	mustAddNode(t, g, "second", NodeHighLevel)

	require.NoError(t, g.AddEdge(Edge{Source: "parent", Target: "third", Kind: EdgeFunctional, SiblingOrder: 2}))
	require.NoError(t, g.AddEdge(Edge{Source: "parent", Target: "first", Kind: EdgeFunctional, SiblingOrder: 0}))
	require.NoError(t, g.AddEdge(Edge{Source: "parent", Target: "second", Kind: EdgeFunctional, SiblingOrder: 1}))

	assert.Equal(t, []string{"first", "second", "third"}, g.Children("parent"))
}

func TestRemoveNodeCascadesEdgesAndHierarchy(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "parent", NodeHighLevel)
	mustAddNode(t, g, "child", NodeHighLevel)
	mustAddNode(t, g, "grandchild", NodeLowLevel)

	require.NoError(t, g.AddEdge(Edge{Source: "parent", Target: "child", Kind: EdgeFunctional}))
	require.NoError(t, g.AddEdge(Edge{Source: "child", Target: "grandchild", Kind: EdgeFunctional}))
	require.NoError(t, g.AddEdge(Edge{Source: "parent", Target: "grandchild", Kind: EdgeDependency, DependencyType: DepUse}))

	g.RemoveNode("child")

	_, ok := g.GetNode("child")
	assert.False(t, ok)
	assert.Empty(t, g.Children("parent"))
	_, hasParent := g.Parent("grandchild")
	assert.False(t, hasParent)

	for _, e := range g.Edges() {
		assert.NotEqual(t, "child", e.Source)
		assert.NotEqual(t, "child", e.Target)
	}
}

func TestRootsReturnsOnlyParentlessHighLevelNodes(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "root", NodeHighLevel)
	mustAddNode(t, g, "child", NodeHighLevel)
	mustAddNode(t, g, "file", NodeLowLevel)

	require.NoError(t, g.AddEdge(Edge{Source: "root", Target: "child", Kind: EdgeFunctional}))
	require.NoError(t, g.AddEdge(Edge{Source: "child", Target: "file", Kind: EdgeFunctional}))

	assert.Equal(t, []string{"root"}, g.Roots())
}

func TestLeafPathsCollectsLowLevelDescendantPaths(t *testing.T) {
	g := newTestGraph()
	mustAddNode(t, g, "module", NodeHighLevel)
	require.NoError(t, g.AddNode(Node{ID: "file1", Kind: NodeLowLevel, Metadata: Metadata{Path: "pkg/a.go"}}))
	require.NoError(t, g.AddNode(Node{ID: "file2", Kind: NodeLowLevel, Metadata: Metadata{Path: "pkg/b.go"}}))
	require.NoError(t, g.AddNode(Node{ID: "file3", Kind: NodeLowLevel}))

	require.NoError(t, g.AddEdge(Edge{Source: "module", Target: "file1", Kind: EdgeFunctional}))
	require.NoError(t, g.AddEdge(Edge{Source: "module", Target: "file2", Kind: EdgeFunctional, SiblingOrder: 1}))
	require.NoError(t, g.AddEdge(Edge{Source: "module", Target: "file3", Kind: EdgeFunctional, SiblingOrder: 2}))

	assert.ElementsMatch(t, []string{"pkg/a.go", "pkg/b.go"}, g.LeafPaths("module"))
}

func TestValidateCommitRejectsNonSHA(t *testing.T) {
	require.NoError(t, ValidateCommit("a100644c4de1a1ccb70c3a38e5e3f8c0b5f0abcd"))
	assert.Error(t, ValidateCommit("not-a-sha"))
	assert.Error(t, ValidateCommit("ABCDEF0000000000000000000000000000000000"))
}

func TestHasCodeAnchor(t *testing.T) {
	assert.True(t, Node{SourceCode: "func f() {}"}.HasCodeAnchor())
	assert.True(t, Node{Kind: NodeLowLevel, Metadata: Metadata{Path: "a.go"}}.HasCodeAnchor())
	assert.False(t, Node{Kind: NodeHighLevel}.HasCodeAnchor())
}
