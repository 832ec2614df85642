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

package reorganize

import (
	"context"
	"testing"

	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileGraph(t *testing.T, paths ...string) (*rpgmodel.Graph, map[string]string) {
	t.Helper()
	g := rpgmodel.NewGraph(rpgmodel.Config{Name: "test"})
	ids := make(map[string]string)
	for _, p := range paths {
		id := "file:" + p
		require.NoError(t, g.AddNode(rpgmodel.Node{
			ID:   id,
			Kind: rpgmodel.NodeLowLevel,
			Metadata: rpgmodel.Metadata{
				EntityType: rpgmodel.EntityFile,
				Path:       p,
			},
		}))
		ids[p] = id
	}
	return g, ids
}

func TestReorganizeNoProviderIsNoop(t *testing.T) {
	g, ids := newFileGraph(t, "pkg/user/service.go")
	r := New(nil)
	require.NoError(t, r.Reorganize(context.Background(), g, []FileEntity{{Path: "pkg/user/service.go"}}, ids))
	assert.Empty(t, g.NodesByKind(rpgmodel.NodeHighLevel))
}

func TestReorganizeBuildsDomainHierarchy(t *testing.T) {
	g, ids := newFileGraph(t, "pkg/user/service.go", "pkg/billing/invoice.go")
	mock := llm.NewMockProvider("mock/test")
	mock.JSONOut = func(schema map[string]any) any {
		return map[string]any{
			"areas": []string{"Backend"},
			"files": []map[string]any{
				{"path": "pkg/user/service.go", "area": "Backend", "category": "User"},
				{"path": "pkg/billing/invoice.go", "area": "Backend", "category": "Billing"},
			},
		}
	}
	r := New(mock)
	entities := []FileEntity{
		{Path: "pkg/user/service.go", Description: "manage users"},
		{Path: "pkg/billing/invoice.go", Description: "manage invoices"},
	}
	require.NoError(t, r.Reorganize(context.Background(), g, entities, ids))

	highLevel := g.NodesByKind(rpgmodel.NodeHighLevel)
	require.Len(t, highLevel, 3) // Backend, Backend/User, Backend/Billing

	userFileParent, ok := g.Parent(ids["pkg/user/service.go"])
	require.True(t, ok)
	userNode, ok := g.GetNode(userFileParent)
	require.True(t, ok)
	assert.Equal(t, "Backend/User", userNode.DirectoryPath)
}

func TestReorganizeFallsBackToUtilitiesForUnplacedFile(t *testing.T) {
	g, ids := newFileGraph(t, "pkg/orphan/misc.go")
	mock := llm.NewMockProvider("mock/test")
	mock.JSONOut = func(schema map[string]any) any {
		return map[string]any{"areas": []string{}, "files": []map[string]any{}}
	}
	r := New(mock)
	require.NoError(t, r.Reorganize(context.Background(), g, []FileEntity{{Path: "pkg/orphan/misc.go"}}, ids))

	parentID, ok := g.Parent(ids["pkg/orphan/misc.go"])
	require.True(t, ok)
	node, ok := g.GetNode(parentID)
	require.True(t, ok)
	assert.Equal(t, "Utilities", node.DirectoryPath)
}
