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

package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// Config bounds a single Extractor's behavior.
type Config struct {
	Batch             BatchConfig
	MaxParseIterations int // defaults per Open Question decision: 1 without LLM, 3 with.
}

// DefaultConfig returns Config wired for the given LLM presence, per the
// DESIGN.md Open Question decision on maxParseIterations (1 without an
// LLM, 3 with one, applied per entity).
func DefaultConfig(hasLLM bool) Config {
	iterations := 1
	if hasLLM {
		iterations = 3
	}
	return Config{Batch: DefaultBatchConfig(), MaxParseIterations: iterations}
}

// llmFeature is the structured shape requested from the LLM (spec §4.6).
type llmFeature struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	SubFeatures []string `json:"subFeatures,omitempty"`
}

var llmFeatureSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"description": map[string]any{"type": "string"},
		"keywords":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"subFeatures": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"description"},
}

// Extractor lifts SemanticFeatures from EntityInputs, preferring an LLM
// when configured and falling back to the heuristic on repeated failure
// (spec §4.6).
type Extractor struct {
	provider llm.Provider // nil disables the LLM path entirely
	cache    *SemanticCache
	cfg      Config
	logger   *slog.Logger
}

// NewExtractor builds an Extractor. provider and cache may both be nil.
func NewExtractor(provider llm.Provider, cache *SemanticCache, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{provider: provider, cache: cache, cfg: cfg, logger: logger}
}

// Describe extracts one entity's SemanticFeature: cache, then LLM (with up
// to MaxParseIterations attempts), then heuristic fallback.
func (x *Extractor) Describe(ctx context.Context, in EntityInput) (rpgmodel.Feature, error) {
	extract := x.extractUncached
	if x.cache != nil {
		extract = CachedExtract(x.cache, x.extractUncached)
	}
	return extract(ctx, in)
}

func (x *Extractor) extractUncached(ctx context.Context, in EntityInput) (rpgmodel.Feature, error) {
	if x.provider == nil {
		return HeuristicDescribe(in), nil
	}

	iterations := x.cfg.MaxParseIterations
	if iterations <= 0 {
		iterations = 1
	}

	var lastErr error
	for attempt := 1; attempt <= iterations; attempt++ {
		var out llmFeature
		_, err := x.provider.CompleteJSON(ctx, buildPrompt(in), systemPrompt, llmFeatureSchema, &out)
		if err == nil {
			return validateFeature(rpgmodel.Feature{
				Description: out.Description,
				Keywords:    out.Keywords,
				SubFeatures: out.SubFeatures,
			}), nil
		}
		lastErr = err
	}

	x.logger.Warn("semantic.llm_extract.fallback",
		"entity", in.Name, "attempts", iterations, "err", lastErr)
	return HeuristicDescribe(in), nil
}

const systemPrompt = "Describe the purpose of a single code entity as a short natural-language feature."

func buildPrompt(in EntityInput) string {
	return fmt.Sprintf(
		"entity type: %s\nname: %s\nfile: %s\nparent: %s\ndocumentation: %s\nsource:\n%s",
		in.Type, in.Name, in.FilePath, in.Parent, in.Documentation, in.SourceCode,
	)
}

// DescribeBatch splits entities into token-aware batches (spec §4.6) and
// extracts a SemanticFeature per entity, preserving input order across and
// within batches. Each packed batch is tagged with a fresh request id
// (uuid) for log correlation, the same role batch/checkpoint identifiers
// play in the teacher's LLM call-site logging.
func (x *Extractor) DescribeBatch(ctx context.Context, entities []EntityInput) ([]rpgmodel.Feature, error) {
	batches := createTokenAwareBatches(entities, x.cfg.Batch)
	out := make([]rpgmodel.Feature, 0, len(entities))
	for _, batch := range batches {
		batchID := uuid.NewString()
		x.logger.Debug("semantic.describe_batch.start", "batch_id", batchID, "size", len(batch))
		for _, e := range batch {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			f, err := x.Describe(ctx, e)
			if err != nil {
				return out, fmt.Errorf("semantic: describe %s (batch %s): %w", e.Name, batchID, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}
