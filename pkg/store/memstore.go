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
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// MemStore is an in-memory ContextStore used by rpgctl's graph persistence
// (cmd/rpgctl/config.go) and by this package's own tests. It
// is not meant to scale beyond a single repository's worth of nodes;
// concrete, persistent engines live outside this module (spec §9).
type MemStore struct {
	graph  *memGraphStore
	text   *memTextStore
	vector *memVectorStore
}

// NewMemStore builds an empty in-memory store rooted at the given config.
func NewMemStore(cfg rpgmodel.Config) *MemStore {
	return &MemStore{
		graph:  &memGraphStore{g: rpgmodel.NewGraph(cfg)},
		text:   &memTextStore{docs: make(map[string]memDoc)},
		vector: &memVectorStore{vecs: make(map[string]memVec)},
	}
}

func (m *MemStore) Graph() GraphStore   { return m.graph }
func (m *MemStore) Text() TextSearchStore { return m.text }
func (m *MemStore) Vector() VectorStore { return m.vector }

// memGraphStore wraps rpgmodel.Graph with a mutex for safe concurrent
// reads per spec §5 ("Graph Store is exclusively owned ... for the
// duration of the operation").
type memGraphStore struct {
	mu sync.RWMutex
	g  *rpgmodel.Graph
}

func (s *memGraphStore) Open(ctx context.Context) error  { return nil }
func (s *memGraphStore) Close(ctx context.Context) error { return nil }

func (s *memGraphStore) AddNode(ctx context.Context, n rpgmodel.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddNode(n)
}

func (s *memGraphStore) GetNode(ctx context.Context, id string) (rpgmodel.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.g.GetNode(id)
	return n, ok, nil
}

func (s *memGraphStore) UpdateNode(ctx context.Context, id string, patch func(*rpgmodel.Node)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.g.GetNode(id)
	if !ok {
		return fmt.Errorf("store: node %q does not exist", id)
	}
	patch(&n)
	return s.g.UpdateNode(n)
}

func (s *memGraphStore) RemoveNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g.RemoveNode(id)
	return nil
}

func (s *memGraphStore) HasNode(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.g.GetNode(id)
	return ok, nil
}

func matchesFilter(attrs map[string]any, filter Filter) bool {
	for k, v := range filter {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

// nodeAttrs builds the attribute map GetNodes filters against. The node's
// Kind (high_level/low_level) is exposed under "type", matching spec §6.1's
// getNodes({type:'high_level'}) example; Metadata.EntityType (file/class/
// function/method/module) is a distinct property under "entityType".
func nodeAttrs(n rpgmodel.Node) map[string]any {
	return map[string]any{
		"id":         n.ID,
		"type":       string(n.Kind),
		"entityType": string(n.Metadata.EntityType),
		"path":       n.Metadata.Path,
		"language":   n.Metadata.Language,
	}
}

func (s *memGraphStore) GetNodes(ctx context.Context, filter Filter) ([]rpgmodel.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rpgmodel.Node
	for _, n := range s.g.Nodes() {
		if matchesFilter(nodeAttrs(n), filter) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memGraphStore) AddEdge(ctx context.Context, e rpgmodel.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddEdge(e)
}

func (s *memGraphStore) RemoveEdge(ctx context.Context, source, target string, depType rpgmodel.DependencyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g.RemoveEdge(source, target, depType)
	return nil
}

func (s *memGraphStore) GetEdges(ctx context.Context, filter Filter) ([]rpgmodel.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rpgmodel.Edge
	for _, e := range s.g.Edges() {
		attrs := map[string]any{
			"kind":           string(e.Kind),
			"dependencyType": string(e.DependencyType),
			"source":         e.Source,
			"target":         e.Target,
		}
		if matchesFilter(attrs, filter) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memGraphStore) GetNeighbors(ctx context.Context, id string, dir Direction, edgeType rpgmodel.DependencyType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.g.Edges() {
		if edgeType != "" && e.DependencyType != edgeType {
			continue
		}
		if (dir == DirOut || dir == DirBoth) && e.Source == id && !seen[e.Target] {
			seen[e.Target] = true
			out = append(out, e.Target)
		}
		if (dir == DirIn || dir == DirBoth) && e.Target == id && !seen[e.Source] {
			seen[e.Source] = true
			out = append(out, e.Source)
		}
	}
	return out, nil
}

func (s *memGraphStore) Traverse(ctx context.Context, startID string, opts TraverseOptions) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := opts.Direction
	if dir == "" {
		dir = DirOut
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = math.MaxInt32
	}

	visited := map[string]bool{startID: true}
	queue := []struct {
		id    string
		depth int
	}{{startID, 0}}
	var order []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.id != startID {
			order = append(order, cur.id)
		}
		if cur.depth >= maxDepth {
			continue
		}
		neighbors, _ := s.GetNeighbors(ctx, cur.id, dir, opts.EdgeType)
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			queue = append(queue, struct {
				id    string
				depth int
			}{nb, cur.depth + 1})
		}
	}
	return order, nil
}

func (s *memGraphStore) Subgraph(ctx context.Context, ids []string) (*rpgmodel.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	sub := rpgmodel.NewGraph(s.g.Config)
	for _, n := range s.g.Nodes() {
		if want[n.ID] {
			if err := sub.AddNode(n); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range s.g.Edges() {
		if want[e.Source] && want[e.Target] {
			if err := sub.AddEdge(e); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

func (s *memGraphStore) Export(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.ToJSON()
}

func (s *memGraphStore) Import(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := rpgmodel.FromJSON(data)
	if err != nil {
		return err
	}
	s.g = g
	return nil
}

// memTextStore is a naive substring-scoring text index, sufficient for
// tests and small repositories; real deployments plug in an FTS engine.
type memTextStore struct {
	mu   sync.RWMutex
	docs map[string]memDoc
}

type memDoc struct {
	fields   map[string]string
	metadata map[string]any
}

func (t *memTextStore) Open(ctx context.Context) error  { return nil }
func (t *memTextStore) Close(ctx context.Context) error { return nil }

func (t *memTextStore) Index(ctx context.Context, id string, fields map[string]string, metadata map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.docs[id] = memDoc{fields: fields, metadata: metadata}
	return nil
}

func (t *memTextStore) IndexBatch(ctx context.Context, ids []string, fields []map[string]string, metadata []map[string]any) error {
	for i, id := range ids {
		var md map[string]any
		if i < len(metadata) {
			md = metadata[i]
		}
		if err := t.Index(ctx, id, fields[i], md); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTextStore) Remove(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.docs, id)
	return nil
}

func (t *memTextStore) Search(ctx context.Context, query string, opts TextSearchOptions) ([]TextHit, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	terms := strings.Fields(q)

	var hits []TextHit
	for id, doc := range t.docs {
		fields := doc.fields
		if len(opts.Fields) > 0 {
			fields = make(map[string]string, len(opts.Fields))
			for _, f := range opts.Fields {
				fields[f] = doc.fields[f]
			}
		}
		score := scoreFields(fields, terms)
		if score > 0 {
			hits = append(hits, TextHit{ID: id, Score: score, Fields: fields})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if opts.TopK > 0 && len(hits) > opts.TopK {
		hits = hits[:opts.TopK]
	}
	return hits, nil
}

func scoreFields(fields map[string]string, terms []string) float64 {
	var score float64
	for _, v := range fields {
		lower := strings.ToLower(v)
		for _, term := range terms {
			score += float64(strings.Count(lower, term))
		}
	}
	return score
}

// memVectorStore holds embeddings keyed by node id and scores by cosine
// similarity, matching the contract in spec §6.1.
type memVectorStore struct {
	mu   sync.RWMutex
	vecs map[string]memVec
}

type memVec struct {
	embedding []float64
	metadata  map[string]any
}

func (v *memVectorStore) Open(ctx context.Context) error  { return nil }
func (v *memVectorStore) Close(ctx context.Context) error { return nil }

func (v *memVectorStore) Upsert(ctx context.Context, id string, embedding []float64, metadata map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vecs[id] = memVec{embedding: embedding, metadata: metadata}
	return nil
}

func (v *memVectorStore) UpsertBatch(ctx context.Context, ids []string, embeddings [][]float64, metadata []map[string]any) error {
	for i, id := range ids {
		var md map[string]any
		if i < len(metadata) {
			md = metadata[i]
		}
		if err := v.Upsert(ctx, id, embeddings[i], md); err != nil {
			return err
		}
	}
	return nil
}

func (v *memVectorStore) Remove(ctx context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.vecs, id)
	return nil
}

func (v *memVectorStore) Search(ctx context.Context, query []float64, opts VectorSearchOptions) ([]VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var hits []VectorHit
	for id, vec := range v.vecs {
		score := CosineSimilarity(query, vec.embedding)
		hits = append(hits, VectorHit{ID: id, Score: score, Metadata: vec.metadata})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if opts.TopK > 0 && len(hits) > opts.TopK {
		hits = hits[:opts.TopK]
	}
	return hits, nil
}

func (v *memVectorStore) Count(ctx context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vecs), nil
}

func (v *memVectorStore) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vecs = make(map[string]memVec)
	return nil
}

// CosineSimilarity returns dot(a,b)/(||a||*||b||), or 0 for empty,
// mismatched-length, or zero vectors (spec §4.12). Used by the in-memory
// vector store; the Semantic Router scores with embedding.CosineSimilarity.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
