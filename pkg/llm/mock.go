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

package llm

import (
	"context"
	"encoding/json"
)

// MockProvider returns deterministic, configurable output without making
// any network call. It backs --no-llm CLI runs that still want to
// exercise the structured-output code paths in tests.
type MockProvider struct {
	model   string
	usage   usageTracker
	Content string
	JSONOut func(schema map[string]any) any
	// Err, when set, is returned by every Complete/CompleteJSON call,
	// letting tests exercise retry and fallback paths.
	Err error
}

// NewMockProvider constructs a MockProvider for the given model label.
func NewMockProvider(model string) *MockProvider {
	if model == "" {
		model = "mock/stub"
	}
	return &MockProvider{model: model, Content: "mock completion"}
}

func (m *MockProvider) Complete(ctx context.Context, prompt, system string) (Completion, error) {
	if m.Err != nil {
		return Completion{}, m.Err
	}
	u := Usage{PromptTokens: len(prompt) / 4, CompletionTokens: len(m.Content) / 4}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	m.usage.add(u)
	return Completion{Content: m.Content, Usage: u, Model: m.model}, nil
}

func (m *MockProvider) CompleteJSON(ctx context.Context, prompt, system string, schema map[string]any, out any) (Usage, error) {
	if m.Err != nil {
		return Usage{}, m.Err
	}
	var payload any
	if m.JSONOut != nil {
		payload = m.JSONOut(schema)
	} else {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Usage{}, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return Usage{}, err
	}
	u := Usage{PromptTokens: len(prompt) / 4, CompletionTokens: len(raw) / 4}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	m.usage.add(u)
	return u, nil
}

func (m *MockProvider) Name() string          { return "mock" }
func (m *MockProvider) Model() string         { return m.model }
func (m *MockProvider) UsageStats() Usage     { return m.usage.snapshot() }
func (m *MockProvider) EstimateCost(stats *Usage) float64 {
	return 0
}
