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

// BatchConfig bounds token-aware batching (spec §4.6), mirroring the
// teacher's Batcher's target/max pair in pkg/ingestion/batcher.go but
// keyed on an estimated LLM token count instead of byte size.
type BatchConfig struct {
	MinBatchTokens int
	MaxBatchTokens int
}

// DefaultBatchConfig matches spec §4.6's stated defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{MinBatchTokens: 10000, MaxBatchTokens: 50000}
}

// estimateTokens is the per-entity token estimate spec §4.6 defines:
// ceil(sourceCode.length/4) + ceil(doc.length/4) + 200 overhead.
func estimateTokens(in EntityInput) int {
	return ceilDiv4(len(in.SourceCode)) + ceilDiv4(len(in.Documentation)) + 200
}

func ceilDiv4(n int) int {
	return (n + 3) / 4
}

// createTokenAwareBatches greedily packs entities into batches bounded by
// cfg.MaxBatchTokens, preserving entity order across batches (spec §4.6,
// §5 "entity order is preserved across the packed batches"). A single
// entity at or above MaxBatchTokens is isolated in its own batch. After
// initial packing, a final batch under MinBatchTokens is merged into the
// previous batch, when one exists.
func createTokenAwareBatches(entities []EntityInput, cfg BatchConfig) [][]EntityInput {
	if len(entities) == 0 {
		return nil
	}

	var batches [][]EntityInput
	var current []EntityInput
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
	}

	for _, e := range entities {
		tokens := estimateTokens(e)

		if tokens >= cfg.MaxBatchTokens {
			flush()
			batches = append(batches, []EntityInput{e})
			continue
		}

		if len(current) > 0 && currentTokens+tokens > cfg.MaxBatchTokens {
			flush()
		}

		current = append(current, e)
		currentTokens += tokens
	}
	flush()

	if len(batches) >= 2 {
		last := batches[len(batches)-1]
		lastTokens := 0
		for _, e := range last {
			lastTokens += estimateTokens(e)
		}
		if lastTokens < cfg.MinBatchTokens {
			prevIdx := len(batches) - 2
			batches[prevIdx] = append(batches[prevIdx], last...)
			batches = batches[:len(batches)-1]
		}
	}

	return batches
}
