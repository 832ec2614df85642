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

// Package ingestion houses everything that turns raw source files into the
// graph primitives the encoder assembles: the AST Parser (§4.1), Call
// Extractor (§4.2), Inheritance Extractor (§4.3), Symbol Resolver (§4.4),
// Dependency Injector (§4.9), the git-aware repo loader and Diff Parser
// (§4.11), deterministic id generation, and ingestion-local metrics —
// mirroring the teacher's decision to keep all of this in one
// pkg/ingestion package rather than splitting per concern.
package ingestion

// EntityType enumerates the kinds of AST entity the parser yields.
type EntityType string

const (
	EntityFile     EntityType = "file"
	EntityClass    EntityType = "class"
	EntityFunction EntityType = "function"
	EntityMethod   EntityType = "method"
	EntityModule   EntityType = "module"
)

// Entity is a single parsed code unit (spec §4.1).
type Entity struct {
	Type       EntityType
	Name       string
	FilePath   string
	StartLine  int
	EndLine    int
	StartCol   int
	EndCol     int
	Parent     string // enclosing class name, if any
	SourceCode string
}

// QualifiedName returns "Parent.Name" for methods with a known enclosing
// class, else just Name.
func (e Entity) QualifiedName() string {
	if e.Parent != "" {
		return e.Parent + "." + e.Name
	}
	return e.Name
}

// Import is a single import statement (spec §4.1).
type Import struct {
	Module        string
	ImportedNames []string
	Line          int
}

// ParseError records a syntax error the grammar could not recover from;
// parsing never aborts on one, it just accumulates here (spec §4.1, §7
// ParseError).
type ParseError struct {
	Line    int
	Column  int
	Message string
}

// ParseResult is the AST Parser's output for a single file.
type ParseResult struct {
	Language string
	Entities []Entity
	Imports  []Import
	Errors   []ParseError
}

// ParserMode selects how much of a file the parser walks; full mode
// yields entity bodies as SourceCode, signature mode omits them to save
// memory on very large files.
type ParserMode int

const (
	ModeFull ParserMode = iota
	ModeSignatureOnly
)

// CodeParser is the AST Parser contract (spec §4.1): given source,
// language, and path, return entities/imports/errors. Implementations
// must not panic on malformed source and must return empty slices (never
// nil-and-panic) for empty input.
type CodeParser interface {
	Parse(source []byte, path string, mode ParserMode) (ParseResult, error)
	Language() string
}

// languageByExtension mirrors the teacher's detectLanguageFromPath table
// (repo_loader.go), extended with the languages this spec names.
var languageByExtension = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".py":   "python",
	".rs":   "rust",
	".java": "java",
}

// DetectLanguage returns the language for a path by its extension, or
// "unknown" when unrecognized (spec §4.1: language detection is
// extensible by extension; unsupported extensions degrade gracefully).
func DetectLanguage(path string) string {
	ext := extOf(path)
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return "unknown"
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

// UnknownResult is the contract's required response for an unsupported
// language (spec §4.1): empty arrays, downstream must tolerate it.
func UnknownResult() ParseResult {
	return ParseResult{Language: "unknown"}
}

// Registry dispatches Parse calls to the CodeParser registered for a
// detected language, falling back to UnknownResult for anything else.
type Registry struct {
	parsers map[string]CodeParser
}

// NewRegistry builds a Registry with the given parsers keyed by their
// own Language().
func NewRegistry(parsers ...CodeParser) *Registry {
	r := &Registry{parsers: make(map[string]CodeParser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Language()] = p
	}
	return r
}

// Parse detects path's language and dispatches to the matching parser.
func (r *Registry) Parse(source []byte, path string, mode ParserMode) (ParseResult, error) {
	lang := DetectLanguage(path)
	p, ok := r.parsers[lang]
	if !ok {
		return UnknownResult(), nil
	}
	return p.Parse(source, path, mode)
}
