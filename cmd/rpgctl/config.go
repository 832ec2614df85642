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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/rpg/internal/rpgerrors"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/kraklabs/rpg/pkg/store"
)

// ConfigDir returns the .rpg directory under projectDir, mirroring the
// teacher's ConfigDir(cwd)-joins-".cie" convention.
func ConfigDir(projectDir string) string {
	return filepath.Join(projectDir, ".rpg")
}

// ConfigPath returns the project.yaml path under projectDir's .rpg
// directory.
func ConfigPath(projectDir string) string {
	return filepath.Join(ConfigDir(projectDir), "project.yaml")
}

// GraphPath returns the persisted-graph JSON path (spec §6.4) for
// projectDir's .rpg directory.
func GraphPath(projectDir string) string {
	return filepath.Join(ConfigDir(projectDir), "graph.json")
}

// loadGraph reads projectDir's persisted RPG through a pkg/store.GraphStore,
// the ContextStore seam spec §6.1 names for persistence (CLI runs with no
// configured backend use store.MemStore). The graph is reassembled purely
// through the GraphStore contract: Import decodes the wire format, GetNodes
// enumerates every id, and Subgraph materializes the rpgmodel.Graph callers
// operate on.
func loadGraph(projectDir string) (*rpgmodel.Graph, error) {
	path := GraphPath(projectDir)
	data, err := os.ReadFile(path) // nolint:gosec // G304: path built from --project
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rpgerrors.New(rpgerrors.KindStorage,
				fmt.Sprintf("no graph found at %s", path), "",
				"run 'rpgctl encode' first", err)
		}
		return nil, rpgerrors.NewStorageError("read graph", err)
	}

	ctx := context.Background()
	gs := store.NewMemStore(rpgmodel.Config{}).Graph()
	if err := gs.Import(ctx, data); err != nil {
		return nil, rpgerrors.NewStorageError("decode graph", err)
	}
	nodes, err := gs.GetNodes(ctx, nil)
	if err != nil {
		return nil, rpgerrors.NewStorageError("decode graph", err)
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	g, err := gs.Subgraph(ctx, ids)
	if err != nil {
		return nil, rpgerrors.NewStorageError("decode graph", err)
	}
	return g, nil
}

// saveGraph exports g through a pkg/store.GraphStore and writes the result
// to projectDir's graph.json.
func saveGraph(projectDir string, g *rpgmodel.Graph) error {
	gs := store.NewMemStore(g.Config).Graph()
	for _, n := range g.Nodes() {
		if err := gs.AddNode(context.Background(), n); err != nil {
			return rpgerrors.NewStorageError("encode graph", err)
		}
	}
	for _, e := range g.Edges() {
		if err := gs.AddEdge(context.Background(), e); err != nil {
			return rpgerrors.NewStorageError("encode graph", err)
		}
	}
	data, err := gs.Export(context.Background())
	if err != nil {
		return rpgerrors.NewStorageError("encode graph", err)
	}
	if err := os.MkdirAll(ConfigDir(projectDir), 0o755); err != nil {
		return rpgerrors.NewStorageError("create .rpg dir", err)
	}
	if err := os.WriteFile(GraphPath(projectDir), data, 0o644); err != nil { // nolint:gosec // G306: graph.json is not sensitive
		return rpgerrors.NewStorageError("write graph", err)
	}
	return nil
}
