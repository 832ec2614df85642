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

// Package typeinfer implements the Type Inferrer (spec §4.5): per-class
// MRO construction and best-effort qualified-call resolution. It takes
// plain (class, method, parent) tuples rather than importing pkg/ingestion
// directly, so the Dependency Injector in pkg/ingestion can depend on this
// package without creating an import cycle; ingestion's call/entity types
// are adapted to these tuples at the call site.
package typeinfer

import (
	"regexp"
	"strings"
)

// ReceiverKind mirrors ingestion.ReceiverKind's four values without
// importing that package (see package doc).
type ReceiverKind string

const (
	ReceiverNone     ReceiverKind = "none"
	ReceiverSelf     ReceiverKind = "self"
	ReceiverSuper    ReceiverKind = "super"
	ReceiverVariable ReceiverKind = "variable"
)

// Call is the minimal call-site shape ResolveQualifiedCall needs.
type Call struct {
	ReceiverKind ReceiverKind
	CallerEntity string // qualified enclosing entity, e.g. "Dog.fetch"
	Receiver     string
	CalleeSymbol string
}

// MethodDecl records that Class declares a method named Name.
type MethodDecl struct {
	Class string
	Name  string
}

// ParentRel records that Child's parent class (or trait/interface) is Parent.
type ParentRel struct {
	Child  string
	Parent string
}

// commonMethodBlocklist is the ≥30-name list spec §4.5 requires the fuzzy
// fallback to reject, since these verbs are common enough that a unique
// global match is usually coincidence rather than signal.
var commonMethodBlocklist = map[string]bool{
	"get": true, "set": true, "add": true, "remove": true, "update": true,
	"delete": true, "create": true, "find": true, "load": true, "save": true,
	"init": true, "run": true, "start": true, "stop": true, "close": true,
	"open": true, "read": true, "write": true, "process": true, "handle": true,
	"execute": true, "build": true, "parse": true, "format": true, "convert": true,
	"check": true, "validate": true, "reset": true, "clear": true, "flush": true,
	"new": true, "to_string": true, "tostring": true,
}

// classInfo is one class's method set, built from the method declarations.
type classInfo struct {
	name    string
	methods map[string]bool
}

// TypeInferrer builds per-class MRO chains from inheritance records and
// resolves qualified method calls against them (spec §4.5).
type TypeInferrer struct {
	classes map[string]*classInfo
	// parents maps class -> ordered list of parent class names, following
	// declaration order of the inheritance relations fed in.
	parents map[string][]string
	// methodOwners maps a bare method name -> the set of classes declaring
	// it, used by the global fuzzy fallback.
	methodOwners map[string]map[string]bool
}

// New builds a TypeInferrer from method declarations (for class/method
// membership) and parent relations (for the MRO graph).
func New(methods []MethodDecl, parents []ParentRel) *TypeInferrer {
	ti := &TypeInferrer{
		classes:      make(map[string]*classInfo),
		parents:      make(map[string][]string),
		methodOwners: make(map[string]map[string]bool),
	}

	classOf := func(name string) *classInfo {
		c, ok := ti.classes[name]
		if !ok {
			c = &classInfo{name: name, methods: make(map[string]bool)}
			ti.classes[name] = c
		}
		return c
	}

	for _, m := range methods {
		if m.Class == "" {
			continue
		}
		classOf(m.Class).methods[m.Name] = true
		if ti.methodOwners[m.Name] == nil {
			ti.methodOwners[m.Name] = make(map[string]bool)
		}
		ti.methodOwners[m.Name][m.Class] = true
	}

	for _, r := range parents {
		classOf(r.Child)
		classOf(r.Parent)
		ti.parents[r.Child] = append(ti.parents[r.Child], r.Parent)
	}

	return ti
}

// GetMROChain linearizes class's parent chain: [class, parent,
// grandparent, ...], each class appearing exactly once even in the
// presence of a cycle (spec §4.5, §8 property 5).
func (ti *TypeInferrer) GetMROChain(class string) []string {
	var chain []string
	seen := make(map[string]bool)
	queue := []string{class}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		chain = append(chain, cur)
		queue = append(queue, ti.parents[cur]...)
	}
	return chain
}

// declares reports whether class (directly, not via MRO) has method m.
func (ti *TypeInferrer) declares(class, method string) bool {
	c, ok := ti.classes[class]
	return ok && c.methods[method]
}

// ResolveQualifiedCall returns "Class.method" for call, per the
// receiver-kind dispatch in spec §4.5, or "" when unresolved.
func (ti *TypeInferrer) ResolveQualifiedCall(call Call, code, language string) string {
	switch call.ReceiverKind {
	case ReceiverNone:
		return ""
	case ReceiverSelf:
		enclosing := enclosingClass(call.CallerEntity)
		if enclosing == "" {
			return ""
		}
		for _, cls := range ti.GetMROChain(enclosing) {
			if ti.declares(cls, call.CalleeSymbol) {
				return cls + "." + call.CalleeSymbol
			}
		}
		return ""
	case ReceiverSuper:
		enclosing := enclosingClass(call.CallerEntity)
		if enclosing == "" {
			return ""
		}
		chain := ti.GetMROChain(enclosing)
		for _, cls := range chain {
			if cls == enclosing {
				continue
			}
			if ti.declares(cls, call.CalleeSymbol) {
				return cls + "." + call.CalleeSymbol
			}
		}
		return ""
	case ReceiverVariable:
		typ := InferLocalVarType(code, language, call.Receiver)
		if typ == "" {
			typ = InferAttributeType(code, language, call.Receiver)
		}
		if typ != "" {
			for _, cls := range ti.GetMROChain(typ) {
				if ti.declares(cls, call.CalleeSymbol) {
					return cls + "." + call.CalleeSymbol
				}
			}
		}
		return ti.fuzzyFallback(call.CalleeSymbol)
	default:
		return ""
	}
}

// fuzzyFallback implements spec §4.5's last resort: a globally-unique
// method name, not on the common-method blocklist, resolves to its one
// declaring class (spec §8 property 6: blocklisted names always return "").
func (ti *TypeInferrer) fuzzyFallback(method string) string {
	if commonMethodBlocklist[strings.ToLower(method)] {
		return ""
	}
	owners := ti.methodOwners[method]
	if len(owners) != 1 {
		return ""
	}
	for cls := range owners {
		return cls + "." + method
	}
	return ""
}

// enclosingClass extracts the class name from a qualified enclosing
// entity string like "Dog.fetch" (produced by the Call Extractor's
// enclosingName helpers); a bare function name (no ".") has no class.
func enclosingClass(qualifiedEnclosing string) string {
	idx := strings.Index(qualifiedEnclosing, ".")
	if idx < 0 {
		return ""
	}
	return qualifiedEnclosing[:idx]
}

// varTypePatterns maps a language to the regexp it uses to spot
// `identifier = Type(...)`-shaped local variable assignments (spec §4.5).
// Rust and Go are intentionally absent: the spec treats their local-var
// inference as future work and requires both to return "" (no AST walk).
var varTypePatterns = map[string]*regexp.Regexp{
	"python":     regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([A-Z][A-Za-z0-9_]*)\s*\(`),
	"typescript": regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?::\s*[A-Za-z0-9_<>\[\]]+)?\s*=\s*new\s+([A-Z][A-Za-z0-9_]*)\s*\(`),
	"javascript": regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*new\s+([A-Z][A-Za-z0-9_]*)\s*\(`),
	"java":       regexp.MustCompile(`\b([A-Z][A-Za-z0-9_<>\[\]]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=`),
}

// InferLocalVarType maps receiver to a type name by scanning code for a
// `var = Type(...)` (Python/JS/TS) or `Type var = ...` (Java) assignment
// pattern (spec §4.5). Rust and Go have no pattern and always return "".
func InferLocalVarType(code, language, receiver string) string {
	if receiver == "" || code == "" {
		return ""
	}
	pattern, ok := varTypePatterns[language]
	if !ok {
		return ""
	}
	if language == "java" {
		for _, m := range pattern.FindAllStringSubmatch(code, -1) {
			if len(m) == 3 && m[2] == receiver {
				return m[1]
			}
		}
		return ""
	}
	for _, m := range pattern.FindAllStringSubmatch(code, -1) {
		if len(m) == 3 && m[1] == receiver {
			return m[2]
		}
	}
	return ""
}

// attrTypePatterns maps a language to the regexp spotting
// `self.attr = Type(...)` / `this.attr = new Type(...)`-shaped attribute
// assignments, the fallback spec §4.5 calls for after a local-var miss.
var attrTypePatterns = map[string]*regexp.Regexp{
	"python":     regexp.MustCompile(`\bself\.([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([A-Z][A-Za-z0-9_]*)\s*\(`),
	"typescript": regexp.MustCompile(`\bthis\.([A-Za-z_][A-Za-z0-9_]*)\s*(?::\s*[A-Za-z0-9_<>\[\]]+)?\s*=\s*new\s+([A-Z][A-Za-z0-9_]*)\s*\(`),
	"javascript": regexp.MustCompile(`\bthis\.([A-Za-z_][A-Za-z0-9_]*)\s*=\s*new\s+([A-Z][A-Za-z0-9_]*)\s*\(`),
	"java":       regexp.MustCompile(`\bthis\.([A-Za-z_][A-Za-z0-9_]*)\s*=\s*new\s+([A-Z][A-Za-z0-9_]*)\s*\(`),
}

// InferAttributeType is InferLocalVarType's counterpart for instance
// attributes (spec §4.5); same language coverage, same Rust/Go gap.
func InferAttributeType(code, language, receiver string) string {
	if receiver == "" || code == "" {
		return ""
	}
	pattern, ok := attrTypePatterns[language]
	if !ok {
		return ""
	}
	for _, m := range pattern.FindAllStringSubmatch(code, -1) {
		if len(m) == 3 && m[1] == receiver {
			return m[2]
		}
	}
	return ""
}
