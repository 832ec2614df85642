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

package ingestion

import (
	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/kraklabs/rpg/pkg/typeinfer"
)

// DependencyInjector merges import, call, and inheritance relations into
// typed DependencyEdges and import-derived DataFlowEdges (spec §4.9). It
// is constructed once per encode/evolve phase from the SymbolTable and
// TypeInferrer already built for that operation.
type DependencyInjector struct {
	symbols *SymbolTable
	types   *typeinfer.TypeInferrer
	// nodeIDByFile maps a known file path to its file-level node id, the
	// fallback target when a call/inheritance can't be resolved to a more
	// specific entity id.
	nodeIDByFile map[string]string
}

// NewDependencyInjector builds an injector from the tables a single
// encode/evolve phase already constructed.
func NewDependencyInjector(symbols *SymbolTable, types *typeinfer.TypeInferrer, nodeIDByFile map[string]string) *DependencyInjector {
	return &DependencyInjector{symbols: symbols, types: types, nodeIDByFile: nodeIDByFile}
}

// entityNodeIDs maps (file, qualifiedName) -> node id, supplied by the
// caller (the orchestrator knows the ids it minted for each entity).
type entityNodeIDs = map[string]map[string]string

// InjectImports resolves each import to a known file and emits one
// DependencyEdge{type:import} per resolvable import; unresolvable
// (external) imports produce no edge (spec §4.9).
func (d *DependencyInjector) InjectImports(files []ParsedFile) []rpgmodel.Edge {
	var edges []rpgmodel.Edge
	seen := make(map[string]bool)
	for _, f := range files {
		callerID, ok := d.nodeIDByFile[f.Path]
		if !ok {
			continue
		}
		for _, imp := range f.Imports {
			targetFile := d.symbols.resolveModuleToFile(f.Path, imp.Module)
			if targetFile == "" {
				continue
			}
			targetID, ok := d.nodeIDByFile[targetFile]
			if !ok || targetID == callerID {
				continue
			}
			key := callerID + "->" + targetID + ":import"
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, rpgmodel.Edge{
				Source: callerID, Target: targetID,
				Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepImport, Line: imp.Line,
			})
		}
	}
	return edges
}

// InjectCalls resolves each CallSite via the Type Inferrer (for a
// qualified "Class.method" when possible) and the Symbol Resolver,
// preferring an entity-level target and falling back to file-level
// (spec §4.9). codeByFile supplies each file's raw source for the Type
// Inferrer's variable-type regexes; entityIDs supplies the node id minted
// for each (file, qualifiedName) entity.
func (d *DependencyInjector) InjectCalls(sites []CallSite, codeByFile map[string]string, language map[string]string, entityIDs entityNodeIDs) []rpgmodel.Edge {
	var edges []rpgmodel.Edge
	seen := make(map[string]bool)

	for _, site := range sites {
		resolved := d.symbols.ResolveCall(site)
		if resolved == nil {
			continue // SymbolResolutionMiss: non-fatal, dropped (spec §7).
		}

		targetID := d.nodeIDByFile[resolved.TargetFile]
		if targetID == "" {
			continue
		}

		qualified := d.types.ResolveQualifiedCall(typeinfer.Call{
			ReceiverKind: typeinfer.ReceiverKind(site.ReceiverKind),
			CallerEntity: site.CallerEntity,
			Receiver:     site.Receiver,
			CalleeSymbol: site.CalleeSymbol,
		}, codeByFile[site.CallerFile], language[site.CallerFile])

		if qualified != "" {
			if id, ok := entityIDs[resolved.TargetFile][qualified]; ok {
				targetID = id
			}
		} else if id, ok := entityIDs[resolved.TargetFile][resolved.CanonicalSymbol]; ok {
			targetID = id
		}

		callerID := d.nodeIDByFile[site.CallerFile]
		if site.CallerEntity != "" {
			if id, ok := entityIDs[site.CallerFile][site.CallerEntity]; ok {
				callerID = id
			}
		}
		if callerID == "" || targetID == "" {
			continue
		}

		key := callerID + "->" + targetID + ":call"
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, rpgmodel.Edge{
			Source: callerID, Target: targetID,
			Kind: rpgmodel.EdgeDependency, DependencyType: rpgmodel.DepCall, Line: site.Line,
		})
	}
	return edges
}

// InjectInheritance resolves each InheritanceRelation to its two endpoint
// entity ids and emits an inherit/implement DependencyEdge (spec §4.9,
// invariant 8: both endpoints typed as classes in the source language).
func (d *DependencyInjector) InjectInheritance(relations []InheritanceRelation, entityIDs entityNodeIDs) []rpgmodel.Edge {
	var edges []rpgmodel.Edge
	seen := make(map[string]bool)
	for _, r := range relations {
		resolved := d.symbols.ResolveInheritance(r)
		if resolved == nil {
			continue
		}
		childID, ok := entityIDs[r.ChildFile][r.ChildClass]
		if !ok {
			continue
		}
		parentID, ok := entityIDs[resolved.ParentFile][resolved.ParentSymbol]
		if !ok {
			continue
		}
		depType := rpgmodel.DepInherit
		if r.Kind == InheritImplement {
			depType = rpgmodel.DepImplement
		}
		key := childID + "->" + parentID + ":" + string(depType)
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, rpgmodel.Edge{
			Source: childID, Target: parentID,
			Kind: rpgmodel.EdgeDependency, DependencyType: depType,
		})
	}
	return edges
}

// InjectDataFlow emits one DataFlowEdge per resolvable import relationship
// at module (file) granularity (spec §4.9 "useful for inter-module
// summarization").
func (d *DependencyInjector) InjectDataFlow(files []ParsedFile) []rpgmodel.DataFlowEdge {
	var edges []rpgmodel.DataFlowEdge
	seen := make(map[string]bool)
	for _, f := range files {
		callerID, ok := d.nodeIDByFile[f.Path]
		if !ok {
			continue
		}
		for _, imp := range f.Imports {
			targetFile := d.symbols.resolveModuleToFile(f.Path, imp.Module)
			if targetFile == "" {
				continue
			}
			targetID, ok := d.nodeIDByFile[targetFile]
			if !ok || targetID == callerID {
				continue
			}
			key := callerID + "->" + targetID
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, rpgmodel.DataFlowEdge{
				From: callerID, To: targetID,
				DataID: imp.Module, DataType: "import",
			})
		}
	}
	return edges
}
