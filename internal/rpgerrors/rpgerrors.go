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

// Package rpgerrors provides structured error handling for the RPG pipeline
// and its CLI.
//
// RPGError carries a Kind drawn from the taxonomy the encoder and evolver
// report against (ParseError, SymbolResolutionMiss, SemanticExtractionFailure,
// CacheError, StorageError, GitError, RouterFailure, ValidationError), plus
// the same what/why/how shape as the teacher's UserError: Message, Cause,
// Fix, and a semantic process exit code.
package rpgerrors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Kind identifies which part of the pipeline produced an error.
type Kind string

const (
	KindParse             Kind = "parse_error"
	KindSymbolResolution   Kind = "symbol_resolution_miss"
	KindSemanticExtraction Kind = "semantic_extraction_failure"
	KindCache              Kind = "cache_error"
	KindStorage            Kind = "storage_error"
	KindGit                Kind = "git_error"
	KindRouter             Kind = "router_failure"
	KindValidation         Kind = "validation_error"
	KindInternal           Kind = "internal_error"
)

// Exit codes, mirroring the teacher's semantic exit-code convention.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitStorage    = 2
	ExitNetwork    = 3
	ExitInput      = 4
	ExitPermission = 5
	ExitNotFound   = 6
	ExitInternal   = 10
)

var exitCodeByKind = map[Kind]int{
	KindParse:              ExitValidation,
	KindSymbolResolution:   ExitValidation,
	KindSemanticExtraction: ExitNetwork,
	KindCache:              ExitStorage,
	KindStorage:            ExitStorage,
	KindGit:                ExitInput,
	KindRouter:             ExitNetwork,
	KindValidation:         ExitValidation,
	KindInternal:           ExitInternal,
}

// RPGError is the structured error type returned by every pipeline stage
// that can fail in a way a human needs to act on.
type RPGError struct {
	Kind     Kind
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *RPGError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RPGError) Unwrap() error {
	return e.Err
}

// New constructs an RPGError of the given kind, defaulting ExitCode from
// exitCodeByKind.
func New(kind Kind, msg, cause, fix string, err error) *RPGError {
	return &RPGError{
		Kind:     kind,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: exitCodeByKind[kind],
		Err:      err,
	}
}

// NewParseError reports a source file the AST Parser could not parse
// (spec §7 ParseError).
func NewParseError(path string, err error) *RPGError {
	return New(KindParse,
		fmt.Sprintf("failed to parse %s", path),
		"the file contains a syntax error the grammar could not recover from",
		"fix the syntax error or exclude the file with --exclude",
		err)
}

// NewSymbolResolutionMiss reports a call or inheritance reference the
// Symbol Resolver could not bind to a known entity (spec §7).
func NewSymbolResolutionMiss(symbol string) *RPGError {
	return New(KindSymbolResolution,
		fmt.Sprintf("could not resolve symbol %q", symbol),
		"the symbol is not exported by any parsed file, or is defined in a dependency outside the repository root",
		"",
		nil)
}

// NewSemanticExtractionFailure reports an LLM call that failed after
// exhausting retries (spec §7 SemanticExtractionFailure).
func NewSemanticExtractionFailure(batchID string, err error) *RPGError {
	return New(KindSemanticExtraction,
		fmt.Sprintf("semantic extraction failed for batch %s", batchID),
		"the LLM provider returned an error or malformed JSON on every retry",
		"check provider credentials and connectivity, or rerun with --no-llm to fall back to heuristic features",
		err)
}

// NewCacheError reports a semantic-cache read/write failure (spec §7).
func NewCacheError(op string, err error) *RPGError {
	return New(KindCache,
		fmt.Sprintf("semantic cache %s failed", op),
		"",
		"",
		err)
}

// NewStorageError reports a ContextStore failure (spec §7).
func NewStorageError(op string, err error) *RPGError {
	return New(KindStorage,
		fmt.Sprintf("store operation %q failed", op),
		"",
		"",
		err)
}

// NewGitError reports a git-diff or revision-resolution failure (spec §7).
func NewGitError(msg string, err error) *RPGError {
	return New(KindGit, msg, "", "verify the path is a git repository with the given commit range reachable", err)
}

// NewRouterFailure reports a Semantic Router failure to place a node
// anywhere in the hierarchy (spec §7 RouterFailure).
func NewRouterFailure(nodeID string, err error) *RPGError {
	return New(KindRouter,
		fmt.Sprintf("could not route node %s into the hierarchy", nodeID),
		"",
		"",
		err)
}

// NewValidationError reports a graph invariant violation (spec §7).
func NewValidationError(msg, cause string) *RPGError {
	return New(KindValidation, msg, cause, "", nil)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for terminal display, respecting NO_COLOR.
func (e *RPGError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// JSON is the machine-readable shape of an RPGError.
type JSON struct {
	Kind     Kind   `json:"kind"`
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the error to its JSON-serializable form.
func (e *RPGError) ToJSON() JSON {
	return JSON{
		Kind:     e.Kind,
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints err and exits with its exit code. Never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}
	if re, ok := err.(*RPGError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(re.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, re.Format(false))
		}
		os.Exit(re.ExitCode)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
