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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityOfSize(name string, tokens int) EntityInput {
	// estimateTokens = ceil(len(source)/4) + ceil(len(doc)/4) + 200, so
	// len(source) == tokens*4 gives a roughly tokens+200-token entity.
	return EntityInput{Name: name, SourceCode: strings.Repeat("x", tokens*4)}
}

func TestCreateTokenAwareBatchesPreservesOrder(t *testing.T) {
	entities := []EntityInput{
		entityOfSize("a", 100), entityOfSize("b", 100), entityOfSize("c", 100),
	}
	batches := createTokenAwareBatches(entities, BatchConfig{MinBatchTokens: 0, MaxBatchTokens: 1000})
	var names []string
	for _, b := range batches {
		for _, e := range b {
			names = append(names, e.Name)
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestCreateTokenAwareBatchesSplitsOnMax(t *testing.T) {
	// Each entity ~700 tokens (500 + 200 overhead); max 1000 means only one
	// fits per batch.
	entities := []EntityInput{entityOfSize("a", 500), entityOfSize("b", 500)}
	batches := createTokenAwareBatches(entities, BatchConfig{MinBatchTokens: 0, MaxBatchTokens: 1000})
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 1)
	assert.Len(t, batches[1], 1)
}

func TestCreateTokenAwareBatchesIsolatesOversizeEntity(t *testing.T) {
	entities := []EntityInput{entityOfSize("small", 10), entityOfSize("huge", 5000)}
	batches := createTokenAwareBatches(entities, BatchConfig{MinBatchTokens: 0, MaxBatchTokens: 1000})
	require.Len(t, batches, 2)
	assert.Equal(t, "small", batches[0][0].Name)
	assert.Len(t, batches[1], 1)
	assert.Equal(t, "huge", batches[1][0].Name)
}

func TestCreateTokenAwareBatchesMergesUndersizeTail(t *testing.T) {
	// a and b each fill their own batch (900+900 > 1000 max), and c (210
	// tokens) does not fit beside b either (900+210 > 1000), so packing
	// yields [[a], [b], [c]]. The final batch (210 tokens) is under the
	// 950 min, so it merges into b's batch: [[a], [b, c]].
	entities := []EntityInput{entityOfSize("a", 700), entityOfSize("b", 700), entityOfSize("c", 10)}
	batches := createTokenAwareBatches(entities, BatchConfig{MinBatchTokens: 950, MaxBatchTokens: 1000})
	require.Len(t, batches, 2)
	last := batches[len(batches)-1]
	assert.Equal(t, "c", last[len(last)-1].Name)
}

func TestCreateTokenAwareBatchesEmpty(t *testing.T) {
	assert.Nil(t, createTokenAwareBatches(nil, DefaultBatchConfig()))
}
