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
	"path/filepath"
	"strings"
)

// ParsedFile bundles one file's parse output with its path, the unit the
// Symbol Resolver and friends build their tables from.
type ParsedFile struct {
	Path     string
	Language string
	Entities []Entity
	Imports  []Import
}

// SymbolTable is the per-repository symbol arena built once per encode and
// read-only thereafter (spec §9 "Symbol and MRO tables as arenas"): flat
// maps indexed by stable string keys rather than back-pointers into the RPG.
type SymbolTable struct {
	// exports maps file -> set of entity names defined there.
	exports map[string]map[string]bool
	// exportEntities maps file -> entity name -> the Entity itself, so a
	// resolved call can report a sourceEntity/qualified name.
	exportEntities map[string]map[string]Entity
	// imports maps file -> imported name -> resolved source module path
	// (module text if not resolvable to a known file).
	imports map[string]map[string]string
	// importsToFile maps file -> imported name -> resolved known file path,
	// when the import target matches one of the files handed to BuildSymbolTable.
	importsToFile map[string]map[string]string
	// byNameCI is a case-insensitive global index: lowercased name -> list
	// of (file, name) pairs, used by the fuzzy fallback (spec §4.4.3).
	byNameCI map[string][]symbolRef

	knownFiles map[string]bool
}

type symbolRef struct {
	file string
	name string
}

// BuildSymbolTable constructs the exports/imports tables from a set of
// parsed files (spec §4.4).
func BuildSymbolTable(files []ParsedFile) *SymbolTable {
	t := &SymbolTable{
		exports:        make(map[string]map[string]bool),
		exportEntities: make(map[string]map[string]Entity),
		imports:        make(map[string]map[string]string),
		importsToFile:  make(map[string]map[string]string),
		byNameCI:       make(map[string][]symbolRef),
		knownFiles:     make(map[string]bool, len(files)),
	}

	for _, f := range files {
		t.knownFiles[f.Path] = true
	}

	for _, f := range files {
		names := make(map[string]bool)
		entities := make(map[string]Entity)
		for _, e := range f.Entities {
			if e.Type == EntityFile {
				continue
			}
			names[e.Name] = true
			entities[e.Name] = e
			t.byNameCI[strings.ToLower(e.Name)] = append(t.byNameCI[strings.ToLower(e.Name)], symbolRef{file: f.Path, name: e.Name})
			if e.Parent != "" {
				qn := e.Parent + "." + e.Name
				entities[qn] = e
			}
		}
		t.exports[f.Path] = names
		t.exportEntities[f.Path] = entities

		impNames := make(map[string]string)
		impFiles := make(map[string]string)
		for _, imp := range f.Imports {
			resolvedFile := t.resolveModuleToFile(f.Path, imp.Module)
			targets := imp.ImportedNames
			if len(targets) == 0 {
				// Whole-module import: record the module itself so a
				// qualified symbol like "pkg.Foo" can still find it.
				targets = []string{filepath.Base(imp.Module)}
			}
			for _, name := range targets {
				impNames[name] = imp.Module
				if resolvedFile != "" {
					impFiles[name] = resolvedFile
				}
			}
		}
		t.imports[f.Path] = impNames
		t.importsToFile[f.Path] = impFiles
	}

	return t
}

// resolveModuleToFile maps an import's module string to one of the known
// file paths, when possible: exact match, match by trimming a relative
// prefix, or match by directory/basename for language import conventions
// that name a package rather than a file.
func (t *SymbolTable) resolveModuleToFile(fromFile, module string) string {
	if module == "" {
		return ""
	}
	candidates := []string{
		module,
		module + ".go", module + ".py", module + ".ts", module + ".tsx",
		module + ".js", module + ".jsx", module + ".rs", module + ".java",
	}
	dir := filepath.Dir(fromFile)
	for _, c := range candidates {
		rel := filepath.ToSlash(filepath.Clean(filepath.Join(dir, c)))
		if t.knownFiles[rel] {
			return rel
		}
		clean := filepath.ToSlash(filepath.Clean(c))
		if t.knownFiles[clean] {
			return clean
		}
	}
	// Fall back to matching any known file whose basename (without
	// extension) equals the last module segment — covers `import foo` in
	// Python resolving to foo.py, `use crate::bar` in Rust resolving to
	// bar.rs, etc.
	lastSeg := module
	if idx := strings.LastIndexAny(module, "./\\:"); idx >= 0 {
		lastSeg = module[idx+1:]
	}
	for known := range t.knownFiles {
		base := filepath.Base(known)
		ext := filepath.Ext(base)
		if strings.TrimSuffix(base, ext) == lastSeg {
			return known
		}
	}
	return ""
}

// ResolvedCall is the Symbol Resolver's successful outcome for a CallSite
// (spec §4.4).
type ResolvedCall struct {
	SourceFile   string
	SourceEntity string
	TargetFile   string
	TargetSymbol string
	// CanonicalSymbol preserves the matched known file's actual casing,
	// addressing the spec's Open Question about fuzzy-match casing
	// without changing TargetSymbol's literal-match semantics.
	CanonicalSymbol string
	Line            int
}

// ResolveCall resolves a CallSite's callee symbol to (file, entity)
// following the three-tier rule in spec §4.4: own file, then import, then
// a case-insensitive unique fuzzy match across the repository.
func (t *SymbolTable) ResolveCall(c CallSite) *ResolvedCall {
	symbol := c.CalleeSymbol
	if symbol == "" {
		return nil
	}

	// Tier 1: defined in the caller's own file.
	if t.exports[c.CallerFile][symbol] {
		return &ResolvedCall{
			SourceFile: c.CallerFile, SourceEntity: c.CallerEntity,
			TargetFile: c.CallerFile, TargetSymbol: symbol, CanonicalSymbol: symbol, Line: c.Line,
		}
	}

	// Tier 2: named in the caller's imports and present in a known file.
	if targetFile, ok := t.importsToFile[c.CallerFile][symbol]; ok {
		return &ResolvedCall{
			SourceFile: c.CallerFile, SourceEntity: c.CallerEntity,
			TargetFile: targetFile, TargetSymbol: symbol, CanonicalSymbol: symbol, Line: c.Line,
		}
	}

	// Tier 3: unique case-insensitive match across the repository.
	if ref := t.fuzzyUnique(symbol); ref != nil {
		return &ResolvedCall{
			SourceFile: c.CallerFile, SourceEntity: c.CallerEntity,
			TargetFile: ref.file, TargetSymbol: symbol, CanonicalSymbol: ref.name, Line: c.Line,
		}
	}

	return nil
}

func (t *SymbolTable) fuzzyUnique(symbol string) *symbolRef {
	refs := t.byNameCI[strings.ToLower(symbol)]
	if len(refs) != 1 {
		return nil
	}
	return &refs[0]
}

// ResolvedInheritance is the Symbol Resolver's successful outcome for an
// InheritanceRelation (spec §4.4).
type ResolvedInheritance struct {
	ChildFile    string
	ChildClass   string
	ParentFile   string
	ParentSymbol string
}

// ResolveInheritance resolves a parent class name the same way ResolveCall
// resolves a callee: locally-defined first, then imported (spec §4.4).
func (t *SymbolTable) ResolveInheritance(r InheritanceRelation) *ResolvedInheritance {
	parent := r.ParentClass
	if idx := strings.LastIndex(parent, "."); idx >= 0 {
		parent = parent[idx+1:]
	}
	if parent == "" {
		return nil
	}

	if t.exports[r.ChildFile][parent] {
		return &ResolvedInheritance{ChildFile: r.ChildFile, ChildClass: r.ChildClass, ParentFile: r.ChildFile, ParentSymbol: parent}
	}
	if targetFile, ok := t.importsToFile[r.ChildFile][parent]; ok {
		return &ResolvedInheritance{ChildFile: r.ChildFile, ChildClass: r.ChildClass, ParentFile: targetFile, ParentSymbol: parent}
	}
	if ref := t.fuzzyUnique(parent); ref != nil {
		return &ResolvedInheritance{ChildFile: r.ChildFile, ChildClass: r.ChildClass, ParentFile: ref.file, ParentSymbol: ref.name}
	}
	return nil
}

// Entity looks up an entity by (file, name) as recorded during
// BuildSymbolTable, used by the Dependency Injector to resolve a
// ResolvedCall's target symbol down to an entity-level node id.
func (t *SymbolTable) Entity(file, name string) (Entity, bool) {
	e, ok := t.exportEntities[file][name]
	return e, ok
}

// KnownFiles reports whether path was among the files BuildSymbolTable saw.
func (t *SymbolTable) KnownFiles(path string) bool {
	return t.knownFiles[path]
}
