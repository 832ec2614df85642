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
	"errors"
	"testing"

	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractorNoProviderUsesHeuristic(t *testing.T) {
	x := NewExtractor(nil, nil, DefaultConfig(false), nil)
	f, err := x.Describe(context.Background(), EntityInput{Type: rpgmodel.EntityMethod, Name: "getUser"})
	require.NoError(t, err)
	assert.Equal(t, "retrieve user", f.Description)
}

func TestExtractorUsesLLMWhenAvailable(t *testing.T) {
	mock := llm.NewMockProvider("mock/test")
	mock.JSONOut = func(schema map[string]any) any {
		return map[string]any{"description": "create a widget", "keywords": []string{"widget"}}
	}
	x := NewExtractor(mock, nil, DefaultConfig(true), nil)
	f, err := x.Describe(context.Background(), EntityInput{Type: rpgmodel.EntityFunction, Name: "buildWidget"})
	require.NoError(t, err)
	assert.Equal(t, "create a widget", f.Description)
	assert.Contains(t, f.Keywords, "widget")
}

func TestExtractorFallsBackToHeuristicAfterLLMFailures(t *testing.T) {
	mock := llm.NewMockProvider("mock/test")
	mock.Err = errors.New("boom")
	x := NewExtractor(mock, nil, DefaultConfig(true), nil)
	f, err := x.Describe(context.Background(), EntityInput{Type: rpgmodel.EntityMethod, Name: "getUser"})
	require.NoError(t, err)
	assert.Equal(t, "retrieve user", f.Description)
}

func TestExtractorDescribeBatchPreservesOrder(t *testing.T) {
	x := NewExtractor(nil, nil, DefaultConfig(false), nil)
	entities := []EntityInput{
		{Type: rpgmodel.EntityMethod, Name: "getUser"},
		{Type: rpgmodel.EntityMethod, Name: "setUser"},
		{Type: rpgmodel.EntityMethod, Name: "createUser"},
	}
	out, err := x.DescribeBatch(context.Background(), entities)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "retrieve user", out[0].Description)
	assert.Equal(t, "set user", out[1].Description)
	assert.Equal(t, "create user", out[2].Description)
}
