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

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	g := NewGraph(Config{Name: "example", GitHub: &GitHubRef{Owner: "acme", Repo: "widgets", Commit: "deadbeef00000000000000000000000000000000"}})
	require.NoError(t, g.AddNode(Node{ID: "root", Kind: NodeHighLevel, Feature: Feature{Description: "manage widgets"}}))
	require.NoError(t, g.AddNode(Node{ID: "file", Kind: NodeLowLevel, Metadata: Metadata{EntityType: EntityFile, Path: "pkg/widget.go"}}))
	require.NoError(t, g.AddEdge(Edge{Source: "root", Target: "file", Kind: EdgeFunctional, SiblingOrder: 0}))
	require.NoError(t, g.AddDataFlowEdge(DataFlowEdge{From: "root", To: "file", DataID: "d1", DataType: "Widget"}))

	data, err := g.ToJSON()
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, g.Config, restored.Config)
	assert.ElementsMatch(t, g.Nodes(), restored.Nodes())
	assert.ElementsMatch(t, g.Edges(), restored.Edges())
	assert.ElementsMatch(t, g.DataFlowEdges(), restored.DataFlowEdges())
	assert.Equal(t, []string{"file"}, restored.Children("root"))
}

func TestToJSONIsDeterministicallySorted(t *testing.T) {
	g := NewGraph(Config{Name: "example"})
	require.NoError(t, g.AddNode(Node{ID: "b", Kind: NodeHighLevel}))
	require.NoError(t, g.AddNode(Node{ID: "a", Kind: NodeHighLevel}))
	require.NoError(t, g.AddEdge(Edge{Source: "b", Target: "a", Kind: EdgeDependency, DependencyType: DepUse}))

	first, err := g.ToJSON()
	require.NoError(t, err)
	second, err := g.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFromJSONRejectsUnsupportedVersion(t *testing.T) {
	_, err := FromJSON([]byte(`{"version":"9.9.9","config":{"name":"x"},"nodes":[],"edges":[]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported graph schema version")
}

func TestFromJSONRejectsMalformedJSON(t *testing.T) {
	_, err := FromJSON([]byte(`not json`))
	require.Error(t, err)
}

func TestFromJSONRevalidatesGraphInvariants(t *testing.T) {
	_, err := FromJSON([]byte(`{"version":"1.0.0","config":{"name":"x"},"nodes":[{"id":"a","kind":"high_level"}],"edges":[{"source":"a","target":"missing","kind":"functional"}]}`))
	require.Error(t, err)
}

func TestAddDataFlowEdgeRejectsUnknownEndpoints(t *testing.T) {
	g := NewGraph(Config{Name: "x"})
	require.NoError(t, g.AddNode(Node{ID: "a", Kind: NodeLowLevel}))

	err := g.AddDataFlowEdge(DataFlowEdge{From: "a", To: "missing", DataID: "d"})
	require.Error(t, err)

	err = g.AddDataFlowEdge(DataFlowEdge{From: "missing", To: "a", DataID: "d"})
	require.Error(t, err)
}
