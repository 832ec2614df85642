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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// cacheEntry is one persisted SemanticCache record.
type cacheEntry struct {
	Feature   rpgmodel.Feature `json:"feature"`
	StoredAt  time.Time        `json:"storedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// SemanticCache is a persistent, content-hash-keyed store of extracted
// SemanticFeatures with a TTL (spec §4.6), grounded on the teacher's
// CheckpointManager atomic temp-file-then-rename JSON persistence
// (pkg/ingestion/checkpoint.go), adapted from a single-struct checkpoint
// file to a key/entry map.
type SemanticCache struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	enabled bool
	entries map[string]cacheEntry
}

// DefaultCacheTTL is spec §4.6's default TTL.
const DefaultCacheTTL = 7 * 24 * time.Hour

// NewSemanticCache opens (or initializes) a cache persisted at path. When
// enabled is false, get/has always report a miss and set is a no-op (spec
// §4.6 "disabled cache returns null for both get and has"). A zero ttl
// selects DefaultCacheTTL.
func NewSemanticCache(path string, ttl time.Duration, enabled bool) (*SemanticCache, error) {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	c := &SemanticCache{path: path, ttl: ttl, enabled: enabled, entries: make(map[string]cacheEntry)}
	if !enabled || path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("semantic: read cache: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("semantic: parse cache: %w", err)
	}
	return c, nil
}

// contentHash is the cache key: a sha256 of (type, name, filePath, parent,
// sourceCode) (spec §4.6).
func contentHash(in EntityInput) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", in.Type, in.Name, in.FilePath, in.Parent, in.SourceCode)
	return hex.EncodeToString(h.Sum(nil))
}

// has reports whether a non-expired entry exists for in, without returning it.
func (c *SemanticCache) has(in EntityInput) bool {
	if !c.enabled {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[contentHash(in)]
	return ok && time.Now().Before(e.ExpiresAt)
}

// get returns the cached feature for in, or (zero, false) on a miss or
// disabled cache.
func (c *SemanticCache) get(in EntityInput) (rpgmodel.Feature, bool) {
	if !c.enabled {
		return rpgmodel.Feature{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[contentHash(in)]
	if !ok || !time.Now().Before(e.ExpiresAt) {
		return rpgmodel.Feature{}, false
	}
	return e.Feature, true
}

// set stores feature for in, serializing writes per key by holding the
// cache-wide lock (spec §5 "writes serialize per key").
func (c *SemanticCache) set(in EntityInput, feature rpgmodel.Feature) error {
	if !c.enabled {
		return nil
	}
	now := time.Now()
	c.mu.Lock()
	c.entries[contentHash(in)] = cacheEntry{Feature: feature, StoredAt: now, ExpiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return c.flush()
}

// purge removes expired entries and persists the result.
func (c *SemanticCache) purge() error {
	if !c.enabled {
		return nil
	}
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
	return c.flush()
}

// flush persists the cache to disk atomically (temp file + rename),
// matching the teacher's CheckpointManager.SaveCheckpoint.
func (c *SemanticCache) flush() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("semantic: marshal cache: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("semantic: create cache dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("semantic: write cache temp: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("semantic: rename cache: %w", err)
	}
	return nil
}

// ExtractFunc computes a SemanticFeature for a single entity, the shape
// both the heuristic and LLM extractors satisfy.
type ExtractFunc func(ctx context.Context, in EntityInput) (rpgmodel.Feature, error)

// CachedExtract wraps extract with cache-consult-then-store semantics
// (spec §4.6 "A cached extractor wraps an extractor function").
func CachedExtract(cache *SemanticCache, extract ExtractFunc) ExtractFunc {
	return func(ctx context.Context, in EntityInput) (rpgmodel.Feature, error) {
		if f, ok := cache.get(in); ok {
			return f, nil
		}
		f, err := extract(ctx, in)
		if err != nil {
			return rpgmodel.Feature{}, err
		}
		if err := cache.set(in, f); err != nil {
			return f, err
		}
		return f, nil
	}
}
