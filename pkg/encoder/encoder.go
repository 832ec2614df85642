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

// Package encoder implements the Encoder Orchestrator (spec §4.10): it
// drives discovery, entity extraction, semantic feature lifting, optional
// reorganization, artifact grounding, and dependency injection end to end
// over a single commit of a source tree, producing a persisted RPG.
// Grounded on the teacher's top-level encode flow in
// pkg/ingestion/local_pipeline.go (discover -> parse -> embed -> persist),
// generalized from CozoDB row inserts to rpgmodel.Graph node/edge
// construction.
package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/rpg/internal/metrics"
	"github.com/kraklabs/rpg/pkg/embedding"
	"github.com/kraklabs/rpg/pkg/ground"
	"github.com/kraklabs/rpg/pkg/ingestion"
	"github.com/kraklabs/rpg/pkg/llm"
	"github.com/kraklabs/rpg/pkg/reorganize"
	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/kraklabs/rpg/pkg/semantic"
	"github.com/kraklabs/rpg/pkg/typeinfer"
)

// Config bounds a single Orchestrator run.
type Config struct {
	RootPath  string
	Name      string
	Description string

	Discovery ingestion.DiscoveryConfig

	// LLM and Embedder may both be nil, in which case reorganization is
	// skipped entirely (spec §4.7) and semantic features fall back to the
	// heuristic extractor (spec §4.6).
	LLM      llm.Provider
	Embedder embedding.Provider

	CachePath    string
	CacheTTL     time.Duration
	CacheEnabled bool

	Logger *slog.Logger
}

// EncodeResult is the Orchestrator's output (spec §4.10).
type EncodeResult struct {
	RPG               *rpgmodel.Graph
	FilesProcessed    int
	EntitiesExtracted int
	Duration          time.Duration
	Errors            []error
}

// Orchestrator drives the encode pipeline end to end.
type Orchestrator struct {
	cfg        Config
	logger     *slog.Logger
	discoverer *ingestion.Discoverer
	registry   *ingestion.Registry
	extractor  *semantic.Extractor
	reorganizer *reorganize.Reorganizer
}

// New builds an Orchestrator from cfg.
func New(cfg Config) (*Orchestrator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := semantic.NewSemanticCache(cfg.CachePath, cfg.CacheTTL, cfg.CacheEnabled)
	if err != nil {
		return nil, fmt.Errorf("encoder: open semantic cache: %w", err)
	}

	registry := ingestion.NewRegistry(
		ingestion.NewGoParser(),
		ingestion.NewTypeScriptParser(),
		ingestion.NewJavaScriptParser(),
		ingestion.NewPythonParser(),
		ingestion.NewRustParser(),
		ingestion.NewJavaParser(),
	)

	return &Orchestrator{
		cfg:         cfg,
		logger:      logger,
		discoverer:  ingestion.NewDiscoverer(logger),
		registry:    registry,
		extractor:   semantic.NewExtractor(cfg.LLM, cache, semantic.DefaultConfig(cfg.LLM != nil), logger),
		reorganizer: reorganize.New(cfg.LLM),
	}, nil
}

// parsedFile bundles everything the orchestrator accumulates about one
// discovered file across phases 2, 3, and 6.
type parsedFile struct {
	path     string
	language string
	source   string
	result   ingestion.ParseResult
	calls    []ingestion.CallSite
	inherits []ingestion.InheritanceRelation

	fileNodeID string
	// entityNodeID maps an entity's qualified name to the node id minted
	// for it.
	entityNodeID map[string]string
}

// Encode runs phases 1-7 over cfg.RootPath and returns the assembled RPG
// (spec §4.10).
func (o *Orchestrator) Encode(ctx context.Context) (*EncodeResult, error) {
	start := time.Now()
	result := &EncodeResult{}
	metrics.EncodeRunStarted()

	g := rpgmodel.NewGraph(rpgmodel.Config{Name: o.cfg.Name, RootPath: o.cfg.RootPath, Description: o.cfg.Description})
	result.RPG = g

	// Phase 1: discover files.
	discoverStart := time.Now()
	paths, err := o.discoverer.Discover(o.cfg.RootPath, o.cfg.Discovery)
	metrics.ObserveEncodeDiscover(time.Since(discoverStart).Seconds())
	if err != nil {
		return result, fmt.Errorf("encoder: discover files: %w", err)
	}

	// Phase 2: extract entities. AST parsing is CPU-bound and independent
	// per file, so it runs bounded-parallel via errgroup; node/edge
	// creation happens afterward in discovery order to preserve the
	// stable node-iteration order phase 2 must produce (spec §5).
	parseStart := time.Now()
	parses, err := o.parseFilesParallel(ctx, paths)
	metrics.ObserveEncodeParse(time.Since(parseStart).Seconds())
	if err != nil {
		return result, fmt.Errorf("encoder: parse files: %w", err)
	}

	files := make([]*parsedFile, 0, len(paths))
	for i, p := range paths {
		parsed := parses[i]
		if parsed.err != nil {
			result.Errors = append(result.Errors, parsed.err)
			continue
		}
		pf, err := o.materializeFile(g, p, parsed)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		files = append(files, pf)
		result.FilesProcessed++
	}

	// Phase 3: lift features.
	liftStart := time.Now()
	entityCount, err := o.liftFeatures(ctx, g, files)
	metrics.ObserveEncodeLift(time.Since(liftStart).Seconds())
	if err != nil {
		return result, fmt.Errorf("encoder: lift features: %w", err)
	}
	result.EntitiesExtracted = entityCount

	// Phase 4: optional reorganize.
	if o.cfg.LLM != nil {
		fileEntities := make([]reorganize.FileEntity, 0, len(files))
		fileNodeID := make(map[string]string, len(files))
		for _, pf := range files {
			n, ok := g.GetNode(pf.fileNodeID)
			if !ok {
				continue
			}
			fileEntities = append(fileEntities, reorganize.FileEntity{Path: pf.path, Description: n.Feature.Description})
			fileNodeID[pf.path] = pf.fileNodeID
		}
		if err := o.reorganizer.Reorganize(ctx, g, fileEntities, fileNodeID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("encoder: reorganize: %w", err))
		}
	}

	// Phase 5: ground.
	groundStart := time.Now()
	err = ground.Ground(g)
	metrics.ObserveEncodeGround(time.Since(groundStart).Seconds())
	if err != nil {
		return result, fmt.Errorf("encoder: ground: %w", err)
	}

	// Phase 6: inject dependencies.
	if err := injectDependencies(g, files); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("encoder: inject dependencies: %w", err))
	}

	// Phase 7: stamp.
	if sha, err := ingestion.HeadSHA(o.cfg.RootPath, "HEAD"); err == nil {
		if g.Config.GitHub == nil {
			g.Config.GitHub = &rpgmodel.GitHubRef{}
		}
		g.Config.GitHub.Commit = sha
	} else {
		o.logger.Debug("encoder.stamp.not_a_git_worktree", "root", o.cfg.RootPath, "err", err)
	}

	result.Duration = time.Since(start)
	metrics.EncodeRunFinished(result.FilesProcessed, result.EntitiesExtracted, len(result.Errors), result.Duration.Seconds())
	return result, nil
}

// parseOutcome is the CPU-bound half of phase 2: reading and parsing one
// file, independent of every other file and of the graph itself.
type parseOutcome struct {
	source   []byte
	lang     string
	result   ingestion.ParseResult
	calls    []ingestion.CallSite
	inherits []ingestion.InheritanceRelation
	err      error
}

// maxParseConcurrency bounds how many files are parsed at once (spec §5
// "parallelism across files is optional and bounded").
const maxParseConcurrency = 8

// parseFilesParallel runs the read+parse step for every discovered path
// concurrently, bounded by maxParseConcurrency via errgroup, and returns
// one outcome per path in input order. Grounded on the teacher's bounded
// worker-pool idiom in pkg/ingestion/resolver.go, replaced here with the
// errgroup.Group.SetLimit idiom.
func (o *Orchestrator) parseFilesParallel(ctx context.Context, paths []string) ([]parseOutcome, error) {
	outcomes := make([]parseOutcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParseConcurrency)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = o.parseOne(p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// parseOne reads and parses a single file; per-file errors are captured on
// the outcome rather than propagated, since a parse failure blocks only
// that file (spec §4.13 Failure semantics, applied identically here).
func (o *Orchestrator) parseOne(path string) parseOutcome {
	source, err := os.ReadFile(fileJoin(o.cfg.RootPath, path))
	if err != nil {
		return parseOutcome{err: fmt.Errorf("read %s: %w", path, err)}
	}

	lang := ingestion.DetectLanguage(path)
	parsed, err := o.registry.Parse(source, path, ingestion.ModeFull)
	if err != nil {
		// Per-file parse failures are non-fatal (spec §7 ParseError): the
		// file still gets a node with empty children.
		o.logger.Warn("encoder.parse.failed", "path", path, "err", err)
		parsed = ingestion.ParseResult{Language: lang, Errors: []ingestion.ParseError{{Message: err.Error()}}}
	}

	out := parseOutcome{source: source, lang: lang, result: parsed}
	if calls, err := ingestion.ExtractCalls(source, lang, path); err == nil {
		out.calls = calls
	}
	if inherits, err := ingestion.ExtractInheritance(source, lang, path); err == nil {
		out.inherits = inherits
	}
	return out
}

// materializeFile turns a parseOutcome into graph nodes/edges: one file
// node plus one node per top-level class/function/method, connected by a
// FunctionalEdge from the file. This step is sequential across files so
// that node-iteration order matches discovery order (spec §5).
func (o *Orchestrator) materializeFile(g *rpgmodel.Graph, path string, parsed parseOutcome) (*parsedFile, error) {
	fileID := ingestion.NodeID(path)
	if err := g.AddNode(rpgmodel.Node{
		ID:   fileID,
		Kind: rpgmodel.NodeLowLevel,
		Metadata: rpgmodel.Metadata{
			EntityType: rpgmodel.EntityFile,
			Path:       path,
			Language:   parsed.lang,
		},
	}); err != nil {
		return nil, fmt.Errorf("add file node %s: %w", path, err)
	}

	pf := &parsedFile{
		path:         path,
		language:     parsed.lang,
		source:       string(parsed.source),
		result:       parsed.result,
		calls:        parsed.calls,
		inherits:     parsed.inherits,
		entityNodeID: make(map[string]string),
		fileNodeID:   fileID,
	}

	order := 0
	for _, e := range parsed.result.Entities {
		if e.Type == ingestion.EntityFile {
			continue
		}
		id := ingestion.EntityID(path, e.QualifiedName(), e.StartLine, e.EndLine, e.StartCol, e.EndCol)
		if err := g.AddNode(rpgmodel.Node{
			ID:   id,
			Kind: rpgmodel.NodeLowLevel,
			Metadata: rpgmodel.Metadata{
				EntityType:    rpgmodel.EntityType(e.Type),
				Path:          path,
				StartLine:     e.StartLine,
				EndLine:       e.EndLine,
				QualifiedName: e.QualifiedName(),
				Language:      parsed.lang,
			},
			SourceCode: e.SourceCode,
		}); err != nil {
			return nil, fmt.Errorf("add entity node %s: %w", e.QualifiedName(), err)
		}
		if err := g.AddEdge(rpgmodel.Edge{Source: fileID, Target: id, Kind: rpgmodel.EdgeFunctional, SiblingOrder: order}); err != nil {
			return nil, fmt.Errorf("link entity %s to file %s: %w", e.QualifiedName(), path, err)
		}
		order++
		pf.entityNodeID[e.QualifiedName()] = id
	}

	return pf, nil
}

// liftFeatures extracts a SemanticFeature for every entity node and
// aggregates file-level features from their children (spec §4.6, §4.10
// phase 3).
func (o *Orchestrator) liftFeatures(ctx context.Context, g *rpgmodel.Graph, files []*parsedFile) (int, error) {
	type target struct {
		nodeID string
		input  semantic.EntityInput
	}

	var targets []target
	for _, pf := range files {
		for _, e := range pf.result.Entities {
			if e.Type == ingestion.EntityFile {
				continue
			}
			id := pf.entityNodeID[e.QualifiedName()]
			targets = append(targets, target{
				nodeID: id,
				input: semantic.EntityInput{
					Type:       rpgmodel.EntityType(e.Type),
					Name:       e.Name,
					FilePath:   pf.path,
					Parent:     e.Parent,
					SourceCode: e.SourceCode,
				},
			})
		}
	}

	inputs := make([]semantic.EntityInput, len(targets))
	for i, t := range targets {
		inputs[i] = t.input
	}
	features, err := o.extractor.DescribeBatch(ctx, inputs)
	if err != nil {
		return 0, err
	}

	featuresByNodeID := make(map[string]rpgmodel.Feature, len(targets))
	for i, t := range targets {
		featuresByNodeID[t.nodeID] = features[i]
		if err := g.UpdateNode(withFeature(mustNode(g, t.nodeID), features[i])); err != nil {
			return 0, err
		}
	}

	for _, pf := range files {
		var childFeatures []rpgmodel.Feature
		for _, e := range pf.result.Entities {
			if e.Type == ingestion.EntityFile {
				continue
			}
			if f, ok := featuresByNodeID[pf.entityNodeID[e.QualifiedName()]]; ok {
				childFeatures = append(childFeatures, f)
			}
		}
		fileFeature := semantic.AggregateFileFeature(pf.path, childFeatures)
		if err := g.UpdateNode(withFeature(mustNode(g, pf.fileNodeID), fileFeature)); err != nil {
			return 0, err
		}
	}

	return len(targets), nil
}

func mustNode(g *rpgmodel.Graph, id string) rpgmodel.Node {
	n, _ := g.GetNode(id)
	return n
}

func withFeature(n rpgmodel.Node, f rpgmodel.Feature) rpgmodel.Node {
	n.Feature = f
	return n
}

// injectDependencies runs the Dependency Injector (spec §4.9) over every
// parsed file's imports, calls, and inheritance relations.
func injectDependencies(g *rpgmodel.Graph, files []*parsedFile) error {
	parsedFiles := make([]ingestion.ParsedFile, 0, len(files))
	nodeIDByFile := make(map[string]string, len(files))
	entityIDs := make(map[string]map[string]string, len(files))
	codeByFile := make(map[string]string, len(files))
	langByFile := make(map[string]string, len(files))

	var methods []typeinfer.MethodDecl
	var parents []typeinfer.ParentRel
	var allCalls []ingestion.CallSite
	var allInherits []ingestion.InheritanceRelation

	for _, pf := range files {
		parsedFiles = append(parsedFiles, ingestion.ParsedFile{
			Path: pf.path, Language: pf.language,
			Entities: pf.result.Entities, Imports: pf.result.Imports,
		})
		nodeIDByFile[pf.path] = pf.fileNodeID
		entityIDs[pf.path] = pf.entityNodeID
		codeByFile[pf.path] = pf.source
		langByFile[pf.path] = pf.language
		allCalls = append(allCalls, pf.calls...)
		allInherits = append(allInherits, pf.inherits...)

		for _, e := range pf.result.Entities {
			if e.Type == ingestion.EntityMethod && e.Parent != "" {
				methods = append(methods, typeinfer.MethodDecl{Class: e.Parent, Name: e.Name})
			}
		}
	}
	for _, r := range allInherits {
		parents = append(parents, typeinfer.ParentRel{Child: r.ChildClass, Parent: r.ParentClass})
	}

	symbols := ingestion.BuildSymbolTable(parsedFiles)
	types := typeinfer.New(methods, parents)
	injector := ingestion.NewDependencyInjector(symbols, types, nodeIDByFile)

	for _, e := range injector.InjectImports(parsedFiles) {
		if err := g.AddEdge(e); err != nil {
			return err
		}
	}
	for _, e := range injector.InjectCalls(allCalls, codeByFile, langByFile, entityIDs) {
		if err := g.AddEdge(e); err != nil {
			return err
		}
	}
	for _, e := range injector.InjectInheritance(allInherits, entityIDs) {
		if err := g.AddEdge(e); err != nil {
			return err
		}
	}
	for _, e := range injector.InjectDataFlow(parsedFiles) {
		if err := g.AddDataFlowEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func fileJoin(root, rel string) string {
	if root == "" {
		return rel
	}
	return root + "/" + rel
}
