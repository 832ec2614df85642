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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpProvider is the shared skeleton for the three network-backed
// providers: one HTTP POST per call, a JSON request/response body, and a
// provider-specific response unwrapper. This mirrors the teacher's
// pkg/llm/provider.go, which gives Ollama/OpenAI/Anthropic near-identical
// bodies differing only in endpoint shape.
type httpProvider struct {
	name       string
	model      string
	baseURL    string
	apiKey     string
	client     *http.Client
	onError    ErrorCallback
	usage      usageTracker
	buildBody  func(prompt, system string, jsonMode bool) any
	endpoint   func(baseURL string) string
	authHeader func(req *http.Request, apiKey string)
	parse      func(body []byte) (content string, usage Usage, err error)
}

func (p *httpProvider) Name() string  { return p.name }
func (p *httpProvider) Model() string { return p.model }
func (p *httpProvider) UsageStats() Usage {
	return p.usage.snapshot()
}
func (p *httpProvider) EstimateCost(stats *Usage) float64 {
	u := p.usage.snapshot()
	if stats != nil {
		u = *stats
	}
	return estimateCost(p.name+"/"+p.model, u)
}

func (p *httpProvider) do(ctx context.Context, prompt, system string, jsonMode bool) (string, Usage, error) {
	body := p.buildBody(prompt, system, jsonMode)
	raw, err := json.Marshal(body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: %s: encode request: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.baseURL), bytes.NewReader(raw))
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: %s: build request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.authHeader != nil {
		p.authHeader(req, p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if p.onError != nil {
			p.onError(err, "complete")
		}
		return "", Usage{}, fmt.Errorf("llm: %s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: %s: read response: %w", p.name, err)
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("llm: %s: http %d: %s", p.name, resp.StatusCode, string(respBody))
		if p.onError != nil {
			p.onError(err, "complete")
		}
		return "", Usage{}, err
	}

	content, usage, err := p.parse(respBody)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: %s: parse response: %w", p.name, err)
	}
	p.usage.add(usage)
	return content, usage, nil
}

func (p *httpProvider) Complete(ctx context.Context, prompt, system string) (Completion, error) {
	content, usage, err := p.do(ctx, prompt, system, false)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Content: content, Usage: usage, Model: p.model}, nil
}

func (p *httpProvider) CompleteJSON(ctx context.Context, prompt, system string, schema map[string]any, out any) (Usage, error) {
	content, usage, err := p.do(ctx, prompt, system, true)
	if err != nil {
		return Usage{}, err
	}
	if _, err := unmarshalStructured(content, out); err != nil {
		return usage, err
	}
	return usage, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// --- Ollama -----------------------------------------------------------

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response           string `json:"response"`
	PromptEvalCount     int    `json:"prompt_eval_count"`
	EvalCount           int    `json:"eval_count"`
}

func newOllamaProvider(cfg ProviderConfig) *httpProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &httpProvider{
		name:    "ollama",
		model:   model,
		baseURL: baseURL,
		client:  defaultHTTPClient(),
		onError: cfg.OnError,
		endpoint: func(base string) string {
			return base + "/api/generate"
		},
		buildBody: func(prompt, system string, jsonMode bool) any {
			req := ollamaRequest{Model: model, Prompt: prompt, System: system, Stream: false}
			if jsonMode {
				req.Format = "json"
			}
			return req
		},
		parse: func(body []byte) (string, Usage, error) {
			var resp ollamaResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", Usage{}, err
			}
			u := Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
			return resp.Response, u, nil
		},
	}
}

// --- OpenAI-compatible --------------------------------------------------

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat map[string]any  `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func newOpenAIProvider(cfg ProviderConfig) *httpProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &httpProvider{
		name:    "openai",
		model:   model,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  defaultHTTPClient(),
		onError: cfg.OnError,
		endpoint: func(base string) string {
			return base + "/chat/completions"
		},
		authHeader: func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		},
		buildBody: func(prompt, system string, jsonMode bool) any {
			msgs := []openAIMessage{}
			if system != "" {
				msgs = append(msgs, openAIMessage{Role: "system", Content: system})
			}
			msgs = append(msgs, openAIMessage{Role: "user", Content: prompt})
			req := openAIRequest{Model: model, Messages: msgs, Temperature: cfg.Temperature}
			if jsonMode {
				req.ResponseFormat = map[string]any{"type": "json_object"}
			}
			return req
		},
		parse: func(body []byte) (string, Usage, error) {
			var resp openAIResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", Usage{}, err
			}
			if len(resp.Choices) == 0 {
				return "", Usage{}, fmt.Errorf("no choices in response")
			}
			u := Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
			return resp.Choices[0].Message.Content, u, nil
		},
	}
}

// --- Anthropic ----------------------------------------------------------

type anthropicRequest struct {
	Model     string          `json:"model"`
	System    string          `json:"system,omitempty"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func newAnthropicProvider(cfg ProviderConfig) *httpProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &httpProvider{
		name:    "anthropic",
		model:   model,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  defaultHTTPClient(),
		onError: cfg.OnError,
		endpoint: func(base string) string {
			return base + "/messages"
		},
		authHeader: func(req *http.Request, apiKey string) {
			req.Header.Set("x-api-key", apiKey)
			req.Header.Set("anthropic-version", "2023-06-01")
		},
		buildBody: func(prompt, system string, jsonMode bool) any {
			p := prompt
			if jsonMode {
				p += "\n\nRespond with JSON only, no prose."
			}
			return anthropicRequest{
				Model:     model,
				System:    system,
				Messages:  []openAIMessage{{Role: "user", Content: p}},
				MaxTokens: maxTokens,
			}
		},
		parse: func(body []byte) (string, Usage, error) {
			var resp anthropicResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", Usage{}, err
			}
			if len(resp.Content) == 0 {
				return "", Usage{}, fmt.Errorf("no content in response")
			}
			u := Usage{
				PromptTokens:     resp.Usage.InputTokens,
				CompletionTokens: resp.Usage.OutputTokens,
				TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			}
			return resp.Content[0].Text, u, nil
		},
	}
}
