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

// Package llm defines the LLM Client contract (spec §6.2) and a handful of
// concrete providers, adapted from the teacher's pkg/llm/provider.go:
// Ollama, OpenAI-compatible, Anthropic, and a Mock used in tests and
// --no-llm runs.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Usage tracks token consumption for a single completion call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Completion is the result of Provider.Complete.
type Completion struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
	Model   string `json:"model"`
}

// ErrorCallback is invoked when a completion fails, before the error is
// returned to the caller (spec §6.2 onError).
type ErrorCallback func(err error, ctx string)

// Provider is the LLM Client contract the Semantic Extractor, Structural
// Reorganizer, and Semantic Router depend on.
type Provider interface {
	// Complete returns free-text content for prompt, with an optional
	// system prompt.
	Complete(ctx context.Context, prompt, system string) (Completion, error)

	// CompleteJSON requests structured output conforming to schema (a JSON
	// Schema document) and unmarshals the result into out.
	CompleteJSON(ctx context.Context, prompt, system string, schema map[string]any, out any) (Usage, error)

	// Name identifies the provider for cost-table lookups and logging.
	Name() string

	// Model returns the concrete model string in use.
	Model() string

	// UsageStats returns cumulative usage across every call made through
	// this provider instance.
	UsageStats() Usage

	// EstimateCost maps cumulative (or supplied) usage to USD using a
	// known price table; unknown models return 0 (spec §6.2).
	EstimateCost(stats *Usage) float64
}

// ProviderConfig configures any of the concrete providers below.
type ProviderConfig struct {
	Provider    string // "ollama" | "openai" | "anthropic" | "mock"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	OnError     ErrorCallback
}

// pricePerMillionTokens is a known (prompt, completion) USD price table
// per provider/model pair; unlisted models estimate to 0, per spec §6.2.
var pricePerMillionTokens = map[string][2]float64{
	"openai/gpt-4o":               {2.50, 10.00},
	"openai/gpt-4o-mini":          {0.15, 0.60},
	"anthropic/claude-3-5-sonnet": {3.00, 15.00},
	"anthropic/claude-3-5-haiku":  {0.80, 4.00},
}

type usageTracker struct {
	mu    sync.Mutex
	stats Usage
}

func (t *usageTracker) add(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.PromptTokens += u.PromptTokens
	t.stats.CompletionTokens += u.CompletionTokens
	t.stats.TotalTokens += u.TotalTokens
}

func (t *usageTracker) snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func estimateCost(providerModel string, stats Usage) float64 {
	price, ok := pricePerMillionTokens[providerModel]
	if !ok {
		return 0
	}
	promptCost := float64(stats.PromptTokens) / 1_000_000 * price[0]
	completionCost := float64(stats.CompletionTokens) / 1_000_000 * price[1]
	return promptCost + completionCost
}

// NewProvider constructs a concrete Provider from cfg, mirroring the
// teacher's factory switch in pkg/llm/provider.go.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockProvider(cfg.Model), nil
	case "ollama":
		return newOllamaProvider(cfg), nil
	case "openai":
		return newOpenAIProvider(cfg), nil
	case "anthropic":
		return newAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// unmarshalStructured is shared by every provider's CompleteJSON: extract
// the first top-level JSON object/array from raw model output (models
// sometimes wrap JSON in prose or code fences) and decode it into out.
func unmarshalStructured(raw string, out any) (Usage, error) {
	trimmed := extractJSON(raw)
	if trimmed == "" {
		return Usage{}, fmt.Errorf("llm: no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return Usage{}, fmt.Errorf("llm: decode structured output: %w", err)
	}
	return Usage{}, nil
}

func extractJSON(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{', '[':
			if start == -1 {
				start = i
			}
			depth++
		case '}', ']':
			depth--
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
