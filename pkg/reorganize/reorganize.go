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

// Package reorganize implements the Structural Reorganizer (spec §4.7):
// LLM-driven domain discovery and `<area>/<category>/<subcategory>` path
// assignment for LowLevelNodes, emitting HighLevelNodes and
// FunctionalEdges. Without an LLM it is a no-op (spec: "skipped entirely").
package reorganize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// domainPlan is the structured shape requested from the LLM: one entry
// per file, naming the area/category/subcategory it belongs to.
type domainPlan struct {
	Areas []string         `json:"areas"`
	Files []filePlacement `json:"files"`
}

type filePlacement struct {
	Path        string `json:"path"`
	Area        string `json:"area"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
}

var domainPlanSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"areas": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"files": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":        map[string]any{"type": "string"},
					"area":        map[string]any{"type": "string"},
					"category":    map[string]any{"type": "string"},
					"subcategory": map[string]any{"type": "string"},
				},
				"required": []string{"path", "area", "category"},
			},
		},
	},
	"required": []string{"areas", "files"},
}

// utilitiesArea is the catch-all area/category used when the LLM omits a
// file or the reorganizer has no LLM-derived placement for it.
const utilitiesArea = "Utilities"

// Reorganizer performs domain discovery and path assignment when an LLM
// is configured; with none, Reorganize is a no-op (spec §4.7).
type Reorganizer struct {
	provider llm.Provider
}

// New builds a Reorganizer. A nil provider disables reorganization
// entirely, matching spec §4.7's "without LLM: skipped entirely".
func New(provider llm.Provider) *Reorganizer {
	return &Reorganizer{provider: provider}
}

// FileEntity is the minimal shape the Reorganizer needs per file: its
// repo-relative path and the description of its aggregated feature, used
// to prompt the LLM for a domain placement.
type FileEntity struct {
	Path        string
	Description string
}

// Reorganize builds the HighLevelNode hierarchy for files and attaches
// each file node under its assigned `<area>/<category>/<subcategory>`
// path, via FunctionalEdges (spec §4.7). It is a no-op when no LLM is
// configured. fileNodeID maps a file path to the LowLevelNode id the
// orchestrator already created for it.
func (r *Reorganizer) Reorganize(ctx context.Context, g *rpgmodel.Graph, files []FileEntity, fileNodeID map[string]string) error {
	if r.provider == nil {
		return nil
	}

	plan, err := r.discoverDomains(ctx, files)
	if err != nil {
		return fmt.Errorf("reorganize: domain discovery: %w", err)
	}

	placements := make(map[string]filePlacement, len(plan.Files))
	for _, p := range plan.Files {
		placements[p.Path] = p
	}

	nodeIDForPath := make(map[string]string)
	siblingOrder := make(map[string]int)

	for _, f := range files {
		p, ok := placements[f.Path]
		if !ok || p.Area == "" || p.Category == "" {
			p = filePlacement{Area: utilitiesArea, Category: utilitiesArea}
		}
		segments := buildSegments(p)
		parentID := ""
		pathSoFar := ""
		for _, seg := range segments {
			pathSoFar = joinSegments(pathSoFar, seg)
			id, ok := nodeIDForPath[pathSoFar]
			if !ok {
				id = "domain:" + pathSoFar
				if err := g.AddNode(rpgmodel.Node{
					ID:   id,
					Kind: rpgmodel.NodeHighLevel,
					Feature: rpgmodel.Feature{
						Description: "organize " + strings.ToLower(seg),
					},
					DirectoryPath: pathSoFar,
					Metadata:      rpgmodel.Metadata{EntityType: rpgmodel.EntityModule},
				}); err != nil {
					return fmt.Errorf("reorganize: add domain node %q: %w", pathSoFar, err)
				}
				nodeIDForPath[pathSoFar] = id
				if parentID != "" {
					order := siblingOrder[parentID]
					siblingOrder[parentID] = order + 1
					if err := g.AddEdge(rpgmodel.Edge{Source: parentID, Target: id, Kind: rpgmodel.EdgeFunctional, SiblingOrder: order}); err != nil {
						return fmt.Errorf("reorganize: link domain %q: %w", pathSoFar, err)
					}
				}
			}
			parentID = id
		}

		fileID, ok := fileNodeID[f.Path]
		if !ok {
			continue
		}
		order := siblingOrder[parentID]
		siblingOrder[parentID] = order + 1
		if err := g.AddEdge(rpgmodel.Edge{Source: parentID, Target: fileID, Kind: rpgmodel.EdgeFunctional, SiblingOrder: order}); err != nil {
			return fmt.Errorf("reorganize: attach file %q: %w", f.Path, err)
		}
	}

	return nil
}

// buildSegments produces the PascalCase, deduplicated path segments for a
// placement (spec §4.7 "<area>/<category>/<subcategory> path ... PascalCase,
// deduplicated").
func buildSegments(p filePlacement) []string {
	segs := []string{toPascalCase(p.Area), toPascalCase(p.Category)}
	if p.Subcategory != "" {
		segs = append(segs, toPascalCase(p.Subcategory))
	}
	return dedupeConsecutive(segs)
}

func dedupeConsecutive(segs []string) []string {
	out := segs[:0:0]
	for _, s := range segs {
		if len(out) > 0 && out[len(out)-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}

func joinSegments(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "/" + seg
}

func toPascalCase(s string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '_' || r == '-' || r == '/':
			upperNext = true
		case upperNext:
			b.WriteRune(toUpper(r))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// discoverDomains asks the LLM to name top-level areas and place every
// file under one (spec §4.7).
func (r *Reorganizer) discoverDomains(ctx context.Context, files []FileEntity) (domainPlan, error) {
	var sb strings.Builder
	sb.WriteString("Organize the following files into top-level domain areas, then categories:\n")
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)
	descByPath := make(map[string]string, len(files))
	for _, f := range files {
		descByPath[f.Path] = f.Description
	}
	for _, p := range paths {
		fmt.Fprintf(&sb, "- %s: %s\n", p, descByPath[p])
	}

	var plan domainPlan
	_, err := r.provider.CompleteJSON(ctx, sb.String(),
		"Group source files into a directory hierarchy of domain areas, categories, and optional subcategories.",
		domainPlanSchema, &plan)
	if err != nil {
		return domainPlan{}, err
	}
	return plan, nil
}
