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

package rpgmodel

import (
	"encoding/json"
	"fmt"
	"sort"
)

// schemaVersion is the persisted graph format version (spec §6.4).
const schemaVersion = "1.0.0"

// document is the on-disk shape of a persisted RPG: deterministically
// sorted so two encodes of the same graph produce byte-identical JSON.
type document struct {
	Version       string         `json:"version"`
	Config        Config         `json:"config"`
	Nodes         []Node         `json:"nodes"`
	Edges         []Edge         `json:"edges"`
	DataFlowEdges []DataFlowEdge `json:"dataFlowEdges,omitempty"`
}

// ToJSON serializes the graph per spec §6.4: nodes sorted by id, edges
// sorted by (source, target), dataFlowEdges sorted by (from, to, dataId).
func (g *Graph) ToJSON() ([]byte, error) {
	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	dataFlow := append([]DataFlowEdge(nil), g.dataFlowEdges...)
	sort.Slice(dataFlow, func(i, j int) bool {
		if dataFlow[i].From != dataFlow[j].From {
			return dataFlow[i].From < dataFlow[j].From
		}
		if dataFlow[i].To != dataFlow[j].To {
			return dataFlow[i].To < dataFlow[j].To
		}
		return dataFlow[i].DataID < dataFlow[j].DataID
	})

	doc := document{
		Version:       schemaVersion,
		Config:        g.Config,
		Nodes:         nodes,
		Edges:         edges,
		DataFlowEdges: dataFlow,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FromJSON reconstructs a Graph from its persisted form, re-validating every
// invariant AddNode/AddEdge would have enforced during a live encode.
func FromJSON(data []byte) (*Graph, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rpgmodel: decode graph: %w", err)
	}
	if doc.Version != schemaVersion {
		return nil, fmt.Errorf("rpgmodel: unsupported graph schema version %q", doc.Version)
	}

	g := NewGraph(doc.Config)
	for _, n := range doc.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	g.dataFlowEdges = append(g.dataFlowEdges, doc.DataFlowEdges...)
	return g, nil
}

// AddDataFlowEdge records a data-flow relationship between two low-level
// nodes (spec §3, dependency injection phase §4.9).
func (g *Graph) AddDataFlowEdge(e DataFlowEdge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("rpgmodel: dataFlowEdge from %q does not exist", e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("rpgmodel: dataFlowEdge to %q does not exist", e.To)
	}
	g.dataFlowEdges = append(g.dataFlowEdges, e)
	return nil
}

// DataFlowEdges returns every recorded data-flow edge.
func (g *Graph) DataFlowEdges() []DataFlowEdge {
	return append([]DataFlowEdge(nil), g.dataFlowEdges...)
}
