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

// Package store defines the ContextStore contract (spec §6.1): the
// GraphStore, TextSearchStore, and VectorStore interfaces the encoder and
// evolver depend on. Concrete engines (embedded KV + FTS + vector index,
// or anything else) are consumed through these interfaces and live outside
// this module; the Backend abstraction here mirrors the teacher's
// pkg/storage/backend.go split between contract and engine.
package store

import (
	"context"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// Direction constrains a neighbor/traverse query to inbound, outbound, or
// both edge directions.
type Direction string

const (
	DirIn   Direction = "in"
	DirOut  Direction = "out"
	DirBoth Direction = "both"
)

// Filter is an attribute-equality predicate map, e.g. {"type": "high_level"}.
type Filter map[string]any

// TraverseOptions bounds a graph traversal from a starting node.
type TraverseOptions struct {
	Direction Direction
	MaxDepth  int
	EdgeType  rpgmodel.DependencyType
	Filter    Filter
}

// GraphStore is the node/edge CRUD and query surface the encoder/evolver
// read and write through (spec §6.1).
type GraphStore interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error

	AddNode(ctx context.Context, n rpgmodel.Node) error
	GetNode(ctx context.Context, id string) (rpgmodel.Node, bool, error)
	UpdateNode(ctx context.Context, id string, patch func(*rpgmodel.Node)) error
	RemoveNode(ctx context.Context, id string) error
	HasNode(ctx context.Context, id string) (bool, error)
	GetNodes(ctx context.Context, filter Filter) ([]rpgmodel.Node, error)

	AddEdge(ctx context.Context, e rpgmodel.Edge) error
	RemoveEdge(ctx context.Context, source, target string, depType rpgmodel.DependencyType) error
	GetEdges(ctx context.Context, filter Filter) ([]rpgmodel.Edge, error)
	GetNeighbors(ctx context.Context, id string, dir Direction, edgeType rpgmodel.DependencyType) ([]string, error)
	Traverse(ctx context.Context, startID string, opts TraverseOptions) ([]string, error)

	Subgraph(ctx context.Context, ids []string) (*rpgmodel.Graph, error)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) error
}

// TextHit is a single TextSearchStore.Search result.
type TextHit struct {
	ID     string
	Score  float64
	Fields map[string]string
}

// TextSearchOptions tunes a text search query.
type TextSearchOptions struct {
	TopK   int
	Fields []string
}

// TextSearchStore indexes free-text fields per node for keyword search.
type TextSearchStore interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Index(ctx context.Context, id string, fields map[string]string, metadata map[string]any) error
	IndexBatch(ctx context.Context, ids []string, fields []map[string]string, metadata []map[string]any) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, opts TextSearchOptions) ([]TextHit, error)
}

// VectorHit is a single VectorStore.Search result; Score is cosine
// similarity, higher is better (spec §6.1).
type VectorHit struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorSearchOptions tunes a vector search query.
type VectorSearchOptions struct {
	TopK int
}

// VectorStore indexes embeddings per node for nearest-neighbor search. The
// Semantic Router does not go through it; its embedding-scoring fallback
// embeds candidates directly and scores them with embedding.CosineSimilarity.
type VectorStore interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Upsert(ctx context.Context, id string, embedding []float64, metadata map[string]any) error
	UpsertBatch(ctx context.Context, ids []string, embeddings [][]float64, metadata []map[string]any) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query []float64, opts VectorSearchOptions) ([]VectorHit, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// ContextStore composes the three sub-stores the pipeline consumes as one
// unit (spec §6.1, §9 "Graph storage abstraction"). The core never
// depends on a concrete engine, only on this interface.
type ContextStore interface {
	Graph() GraphStore
	Text() TextSearchStore
	Vector() VectorStore
}
