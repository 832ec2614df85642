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

package store

import (
	"context"
	"testing"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemStore {
	t.Helper()
	return NewMemStore(rpgmodel.Config{Name: "test"})
}

func TestGraphStoreAddNodeGetNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()

	n := rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeHighLevel, Feature: rpgmodel.Feature{Description: "alpha"}}
	require.NoError(t, s.AddNode(ctx, n))

	got, ok, err := s.GetNode(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Feature.Description)

	_, ok, err = s.GetNode(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGraphStoreGetNodesFiltersByTypeKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()

	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "high", Kind: rpgmodel.NodeHighLevel}))
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "low", Kind: rpgmodel.NodeLowLevel}))

	nodes, err := s.GetNodes(ctx, Filter{"type": "high_level"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "high", nodes[0].ID)
}

func TestGraphStoreGetNodesFiltersByEntityType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()

	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{
		ID: "f1", Kind: rpgmodel.NodeLowLevel, Metadata: rpgmodel.Metadata{EntityType: rpgmodel.EntityFile},
	}))
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{
		ID: "c1", Kind: rpgmodel.NodeLowLevel, Metadata: rpgmodel.Metadata{EntityType: rpgmodel.EntityClass},
	}))

	nodes, err := s.GetNodes(ctx, Filter{"entityType": "class"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "c1", nodes[0].ID)
}

func TestGraphStoreUpdateNodeAppliesPatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeHighLevel}))

	err := s.UpdateNode(ctx, "a", func(n *rpgmodel.Node) { n.Feature.Description = "updated" })
	require.NoError(t, err)

	got, _, err := s.GetNode(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Feature.Description)
}

func TestGraphStoreUpdateNodeMissingReturnsError(t *testing.T) {
	s := newTestStore(t).Graph()
	err := s.UpdateNode(context.Background(), "missing", func(*rpgmodel.Node) {})
	assert.Error(t, err)
}

func TestGraphStoreRemoveNodeCascadesHasNode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeHighLevel}))

	has, err := s.HasNode(ctx, "a")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.RemoveNode(ctx, "a"))
	has, err = s.HasNode(ctx, "a")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGraphStoreGetEdgesFiltersByDependencyType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeLowLevel}))
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "b", Kind: rpgmodel.NodeLowLevel}))
	require.NoError(t, s.AddEdge(ctx, rpgmodel.Edge{
		Source: "a", Target: "b", Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall,
	}))

	edges, err := s.GetEdges(ctx, Filter{"dependencyType": string(rpgmodel.DepCall)})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Source)
	assert.Equal(t, "b", edges[0].Target)
}

func TestGraphStoreGetNeighborsRespectsDirection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeLowLevel}))
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "b", Kind: rpgmodel.NodeLowLevel}))
	require.NoError(t, s.AddEdge(ctx, rpgmodel.Edge{
		Source: "a", Target: "b", Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall,
	}))

	out, err := s.GetNeighbors(ctx, "a", DirOut, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, out)

	in, err := s.GetNeighbors(ctx, "b", DirIn, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, in)

	assert.Empty(t, mustNeighbors(t, s, "b", DirOut))
}

func mustNeighbors(t *testing.T, s GraphStore, id string, dir Direction) []string {
	t.Helper()
	out, err := s.GetNeighbors(context.Background(), id, dir, "")
	require.NoError(t, err)
	return out
}

func TestGraphStoreTraverseBoundsByMaxDepth(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: id, Kind: rpgmodel.NodeLowLevel}))
	}
	require.NoError(t, s.AddEdge(ctx, rpgmodel.Edge{Source: "a", Target: "b", Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall}))
	require.NoError(t, s.AddEdge(ctx, rpgmodel.Edge{Source: "b", Target: "c", Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall}))
	require.NoError(t, s.AddEdge(ctx, rpgmodel.Edge{Source: "c", Target: "d", Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall}))

	order, err := s.Traverse(ctx, "a", TraverseOptions{Direction: DirOut, MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, order)
}

func TestGraphStoreSubgraphIncludesOnlyRequestedIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t).Graph()
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeLowLevel}))
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "b", Kind: rpgmodel.NodeLowLevel}))
	require.NoError(t, s.AddNode(ctx, rpgmodel.Node{ID: "c", Kind: rpgmodel.NodeLowLevel}))
	require.NoError(t, s.AddEdge(ctx, rpgmodel.Edge{Source: "a", Target: "b", Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall}))
	require.NoError(t, s.AddEdge(ctx, rpgmodel.Edge{Source: "b", Target: "c", Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall}))

	sub, err := s.Subgraph(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, sub.Nodes(), 2)
	assert.Len(t, sub.Edges(), 1)
}

func TestGraphStoreExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store1 := newTestStore(t)
	require.NoError(t, store1.Graph().AddNode(ctx, rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeHighLevel, Feature: rpgmodel.Feature{Description: "alpha"}}))

	data, err := store1.Graph().Export(ctx)
	require.NoError(t, err)

	store2 := newTestStore(t)
	require.NoError(t, store2.Graph().Import(ctx, data))

	got, ok, err := store2.Graph().GetNode(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Feature.Description)
}

func TestTextSearchStoreSearchScoresByTermFrequency(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t).Text()

	require.NoError(t, ts.Index(ctx, "a", map[string]string{"description": "retrieve user profile"}, nil))
	require.NoError(t, ts.Index(ctx, "b", map[string]string{"description": "create session token"}, nil))

	hits, err := ts.Search(ctx, "user", TextSearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestTextSearchStoreSearchEmptyQueryReturnsNoHits(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t).Text()
	require.NoError(t, ts.Index(ctx, "a", map[string]string{"description": "retrieve user"}, nil))

	hits, err := ts.Search(ctx, "   ", TextSearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTextSearchStoreRemoveDropsDocument(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t).Text()
	require.NoError(t, ts.Index(ctx, "a", map[string]string{"description": "retrieve user"}, nil))
	require.NoError(t, ts.Remove(ctx, "a"))

	hits, err := ts.Search(ctx, "user", TextSearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTextSearchStoreSearchRespectsTopK(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t).Text()
	require.NoError(t, ts.IndexBatch(ctx,
		[]string{"a", "b", "c"},
		[]map[string]string{
			{"description": "user user user"},
			{"description": "user user"},
			{"description": "user"},
		},
		nil,
	))

	hits, err := ts.Search(ctx, "user", TextSearchOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
}

func TestVectorStoreSearchRanksByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	vs := newTestStore(t).Vector()

	require.NoError(t, vs.Upsert(ctx, "a", []float64{1, 0}, nil))
	require.NoError(t, vs.Upsert(ctx, "b", []float64{0, 1}, nil))

	hits, err := vs.Search(ctx, []float64{1, 0}, VectorSearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestVectorStoreCountAndClear(t *testing.T) {
	ctx := context.Background()
	vs := newTestStore(t).Vector()
	require.NoError(t, vs.UpsertBatch(ctx, []string{"a", "b"}, [][]float64{{1, 0}, {0, 1}}, nil))

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, vs.Clear(ctx))
	n, err = vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCosineSimilarityHandlesDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float64{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 2}, []float64{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}
