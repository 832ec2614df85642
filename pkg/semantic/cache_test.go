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
	"path/filepath"
	"testing"
	"time"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticCacheDisabledAlwaysMisses(t *testing.T) {
	c, err := NewSemanticCache(filepath.Join(t.TempDir(), "cache.json"), 0, false)
	require.NoError(t, err)
	in := EntityInput{Name: "Foo"}
	require.NoError(t, c.set(in, rpgmodel.Feature{Description: "create foo"}))
	assert.False(t, c.has(in))
	_, ok := c.get(in)
	assert.False(t, ok)
}

func TestSemanticCacheSetGetRoundTrip(t *testing.T) {
	c, err := NewSemanticCache(filepath.Join(t.TempDir(), "cache.json"), time.Hour, true)
	require.NoError(t, err)
	in := EntityInput{Name: "Foo", FilePath: "pkg/foo.go"}
	feat := rpgmodel.Feature{Description: "create foo", Keywords: []string{"foo"}}
	require.NoError(t, c.set(in, feat))

	assert.True(t, c.has(in))
	got, ok := c.get(in)
	require.True(t, ok)
	assert.Equal(t, feat, got)
}

func TestSemanticCachePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c1, err := NewSemanticCache(path, time.Hour, true)
	require.NoError(t, err)
	in := EntityInput{Name: "Bar"}
	require.NoError(t, c1.set(in, rpgmodel.Feature{Description: "create bar"}))

	c2, err := NewSemanticCache(path, time.Hour, true)
	require.NoError(t, err)
	got, ok := c2.get(in)
	require.True(t, ok)
	assert.Equal(t, "create bar", got.Description)
}

func TestSemanticCacheExpiredEntryMisses(t *testing.T) {
	c, err := NewSemanticCache(filepath.Join(t.TempDir(), "cache.json"), -time.Second, true)
	require.NoError(t, err)
	in := EntityInput{Name: "Baz"}
	require.NoError(t, c.set(in, rpgmodel.Feature{Description: "create baz"}))
	assert.False(t, c.has(in))
}

func TestSemanticCachePurgeRemovesExpired(t *testing.T) {
	c, err := NewSemanticCache(filepath.Join(t.TempDir(), "cache.json"), -time.Second, true)
	require.NoError(t, err)
	in := EntityInput{Name: "Qux"}
	require.NoError(t, c.set(in, rpgmodel.Feature{Description: "create qux"}))
	require.NoError(t, c.purge())
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	assert.Zero(t, n)
}

func TestCachedExtractStoresOnMiss(t *testing.T) {
	c, err := NewSemanticCache(filepath.Join(t.TempDir(), "cache.json"), time.Hour, true)
	require.NoError(t, err)

	calls := 0
	extract := CachedExtract(c, func(ctx context.Context, in EntityInput) (rpgmodel.Feature, error) {
		calls++
		return rpgmodel.Feature{Description: "create " + in.Name}, nil
	})

	in := EntityInput{Name: "Widget"}
	f1, err := extract(context.Background(), in)
	require.NoError(t, err)
	f2, err := extract(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, f1, f2)
	assert.Equal(t, 1, calls)
}
