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

package router

import (
	"context"
	"errors"
	"testing"

	"github.com/kraklabs/rpg/pkg/embedding"
	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTwoRootGraph(t *testing.T) *rpgmodel.Graph {
	t.Helper()
	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "test"})
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: "a", Kind: rpgmodel.NodeHighLevel, Feature: rpgmodel.Feature{Description: "alpha"}}))
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: "b", Kind: rpgmodel.NodeHighLevel, Feature: rpgmodel.Feature{Description: "beta"}}))
	return g
}

func TestFindBestParentReturnsFalseWhenGraphHasNoRoots(t *testing.T) {
	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "empty"})
	r := New(nil, nil, nil)

	id, ok, err := r.FindBestParent(context.Background(), g, "anything")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestFindBestParentShortCircuitsSingleRoot(t *testing.T) {
	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "test"})
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: "only", Kind: rpgmodel.NodeHighLevel}))
	r := New(nil, nil, nil)

	id, ok, err := r.FindBestParent(context.Background(), g, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "only", id)
}

func TestFindBestParentFallsBackToFirstCandidateWithNoProviders(t *testing.T) {
	g := newTwoRootGraph(t)
	r := New(nil, nil, nil)

	id, ok, err := r.FindBestParent(context.Background(), g, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", id) // roots sorted alphabetically: "a" before "b"
}

func TestFindBestParentUsesLLMSelection(t *testing.T) {
	g := newTwoRootGraph(t)
	mock := llm.NewMockProvider("mock/router")
	mock.JSONOut = func(schema map[string]any) any {
		return map[string]any{"selectedId": "b"}
	}
	r := New(mock, nil, nil)

	id, ok, err := r.FindBestParent(context.Background(), g, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", id)
	assert.Equal(t, 1, r.LLMCalls())
}

func TestFindBestParentFallsBackToEmbeddingWhenLLMSelectsUnknownID(t *testing.T) {
	g := newTwoRootGraph(t)
	mock := llm.NewMockProvider("mock/router")
	mock.JSONOut = func(schema map[string]any) any {
		return map[string]any{"selectedId": "does-not-exist"}
	}
	r := New(mock, embedding.NewMockProvider(16), nil)

	// "beta" is node "b"'s exact feature description, so its embedding is
	// identical to the target's and wins cosine similarity deterministically.
	id, ok, err := r.FindBestParent(context.Background(), g, "beta")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", id)
}

func TestFindBestParentFallsBackToEmbeddingWhenLLMErrors(t *testing.T) {
	g := newTwoRootGraph(t)
	mock := llm.NewMockProvider("mock/router")
	mock.Err = errors.New("provider unavailable")
	r := New(mock, embedding.NewMockProvider(16), nil)

	id, ok, err := r.FindBestParent(context.Background(), g, "alpha")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestFindBestParentDescendsIntoChildren(t *testing.T) {
	g := newTwoRootGraph(t)
	require.NoError(t, g.AddNode(rpgmodel.Node{ID: "a1", Kind: rpgmodel.NodeHighLevel, Feature: rpgmodel.Feature{Description: "deep"}}))
	require.NoError(t, g.AddEdge(rpgmodel.Edge{Source: "a", Target: "a1", Kind: rpgmodel.EdgeFunctional}))
	r := New(nil, nil, nil)

	id, ok, err := r.FindBestParent(context.Background(), g, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1", id)
}

func TestResetZeroesLLMCallCounter(t *testing.T) {
	g := newTwoRootGraph(t)
	mock := llm.NewMockProvider("mock/router")
	mock.JSONOut = func(schema map[string]any) any {
		return map[string]any{"selectedId": "a"}
	}
	r := New(mock, nil, nil)

	_, _, err := r.FindBestParent(context.Background(), g, "anything")
	require.NoError(t, err)
	require.Equal(t, 1, r.LLMCalls())

	r.Reset()
	assert.Equal(t, 0, r.LLMCalls())
}
