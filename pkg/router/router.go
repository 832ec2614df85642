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

// Package router implements the Semantic Router (spec §4.12): given a new
// entity's feature description, it picks the best parent among the current
// HighLevelNode forest by descending level by level, preferring an LLM's
// choice, falling back to embedding cosine similarity, and falling back
// again to the first candidate as a last resort. Grounded on the teacher's
// pkg/llm/provider.go call-and-fallback shape (no teacher file routes
// entities into a hierarchy — kraklabs-cie's CozoDB schema has no
// functional-hierarchy concept — so this package follows spec §4.12's
// algorithm directly, reusing the teacher's LLM client contract and the
// reorganizer's CompleteJSON-with-schema idiom).
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kraklabs/rpg/pkg/embedding"
	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// Candidate is a single high-level node the router may choose among at one
// level of the hierarchy.
type Candidate struct {
	ID          string
	Description string
}

// selection is the structured shape requested from the LLM.
type selection struct {
	SelectedID string `json:"selectedId"`
}

var selectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"selectedId": map[string]any{"type": "string"},
	},
	"required": []string{"selectedId"},
}

// Router selects the best functional parent for a new or changed entity
// (spec §4.12). Both llmClient and embedder may be nil; when both are nil,
// selection always falls through to the first-candidate last resort.
type Router struct {
	llmClient llm.Provider
	embedder  embedding.Provider
	logger    *slog.Logger

	mu       sync.Mutex
	llmCalls int
}

// New builds a Router. A nil logger falls back to slog.Default().
func New(llmClient llm.Provider, embedder embedding.Provider, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{llmClient: llmClient, embedder: embedder, logger: logger}
}

// LLMCalls returns the number of LLM invocations made across calls to
// FindBestParent since the last Reset (spec §4.12 counters).
func (r *Router) LLMCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.llmCalls
}

// Reset zeroes the LLM call counter.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmCalls = 0
}

func (r *Router) countLLMCall() {
	r.mu.Lock()
	r.llmCalls++
	r.mu.Unlock()
}

// FindBestParent descends the HighLevelNode forest in g and returns the id
// of the best parent for featureDescription (spec §4.12). It returns
// ("", false, nil) when g has no high-level nodes at all.
func (r *Router) FindBestParent(ctx context.Context, g *rpgmodel.Graph, featureDescription string) (string, bool, error) {
	roots := g.Roots()
	if len(roots) == 0 {
		return "", false, nil
	}
	if len(roots) == 1 {
		return roots[0], true, nil
	}

	var targetEmbedding []float64
	if r.embedder != nil {
		e, err := r.embedder.Embed(ctx, featureDescription)
		if err == nil {
			targetEmbedding = e.Vector
		}
	}

	current := roots
	for {
		candidates := buildCandidates(g, current)
		if len(candidates) == 0 {
			return "", false, nil
		}
		chosen := r.selectCandidate(ctx, candidates, featureDescription, targetEmbedding)
		children := g.Children(chosen)
		if len(children) == 0 {
			return chosen, true, nil
		}
		current = children
	}
}

func buildCandidates(g *rpgmodel.Graph, ids []string) []Candidate {
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		n, ok := g.GetNode(id)
		if !ok {
			continue
		}
		out = append(out, Candidate{ID: id, Description: n.Feature.Description})
	}
	return out
}

// selectCandidate implements one level of spec §4.12's descent: LLM first,
// then embedding cosine similarity, then the first candidate as a
// last-resort fallback (which always succeeds given a non-empty candidate
// list, so this never returns an error).
func (r *Router) selectCandidate(ctx context.Context, candidates []Candidate, target string, targetEmbedding []float64) string {
	if r.llmClient != nil {
		if id, ok := r.tryLLM(ctx, candidates, target); ok {
			return id
		}
	}

	if targetEmbedding != nil && r.embedder != nil {
		if id, ok := r.tryEmbedding(ctx, candidates, targetEmbedding); ok {
			return id
		}
	}

	r.logger.Warn("router.select.last_resort", "target", target, "candidate", candidates[0].ID)
	return candidates[0].ID
}

func (r *Router) tryLLM(ctx context.Context, candidates []Candidate, target string) (string, bool) {
	var sb strings.Builder
	sb.WriteString("Choose the candidate whose description best matches the target feature.\n")
	fmt.Fprintf(&sb, "target: %s\n", target)
	sb.WriteString("candidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- id=%s description=%s\n", c.ID, c.Description)
	}

	var sel selection
	r.countLLMCall()
	_, err := r.llmClient.CompleteJSON(ctx, sb.String(),
		"Select the best-matching candidate id for the target feature description.",
		selectionSchema, &sel)
	if err != nil {
		r.logger.Debug("router.llm.failed", "err", err)
		return "", false
	}
	for _, c := range candidates {
		if c.ID == sel.SelectedID {
			return c.ID, true
		}
	}
	return "", false
}

func (r *Router) tryEmbedding(ctx context.Context, candidates []Candidate, targetEmbedding []float64) (string, bool) {
	descs := make([]string, len(candidates))
	for i, c := range candidates {
		descs[i] = c.Description
	}
	embeddings, err := r.embedder.EmbedBatch(ctx, descs)
	if err != nil || len(embeddings) != len(candidates) {
		return "", false
	}

	bestIdx := -1
	bestScore := -2.0 // cosine similarity is in [-1, 1]; anything beats this sentinel.
	for i, e := range embeddings {
		score := embedding.CosineSimilarity(targetEmbedding, e.Vector)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return "", false
	}
	return candidates[bestIdx].ID, true
}
