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
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// RustParser walks a Rust AST: struct/enum/trait items become EntityClass,
// functions inside an impl block become EntityMethod keyed by the impl's
// target type, free functions become EntityFunction (spec §4.1's fixed
// language list names Rust alongside TypeScript/JavaScript/Python/Go/Java).
type RustParser struct {
	lang *sitter.Language
}

// NewRustParser builds a parser for Rust sources.
func NewRustParser() *RustParser {
	return &RustParser{lang: rust.GetLanguage()}
}

func (p *RustParser) Language() string { return "rust" }

func (p *RustParser) Parse(source []byte, path string, mode ParserMode) (ParseResult, error) {
	result := ParseResult{Language: "rust"}
	if len(source) == 0 {
		return result, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(p.lang)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		result.Errors = append(result.Errors, ParseError{Message: err.Error()})
		return result, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	collectSyntaxErrors(root, source, &result.Errors)

	var currentImplTarget string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "struct_item", "enum_item", "trait_item":
			name := fieldText(n, "name", source)
			result.Entities = append(result.Entities, Entity{
				Type: EntityClass, Name: name, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i))
			}
			return
		case "impl_item":
			prevTarget := currentImplTarget
			currentImplTarget = rustImplTargetType(n, source)
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i))
			}
			currentImplTarget = prevTarget
			return
		case "function_item":
			name := fieldText(n, "name", source)
			entityType := EntityFunction
			parent := ""
			if currentImplTarget != "" {
				entityType = EntityMethod
				parent = currentImplTarget
			}
			result.Entities = append(result.Entities, Entity{
				Type: entityType, Name: name, Parent: parent, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
			return
		case "use_declaration":
			result.Imports = append(result.Imports, rustImport(n, source))
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return result, nil
}

// rustImplTargetType returns the "Struct" half of `impl Trait for Struct`
// or just "Struct" for an inherent `impl Struct`, using the type field
// shared by both shapes.
func rustImplTargetType(n *sitter.Node, source []byte) string {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	return strings.TrimSpace(typeNode.Content(source))
}

// rustTraitOf returns the trait half of `impl Trait for Struct`, or "" for
// an inherent impl (used by the Inheritance Extractor).
func rustTraitOf(n *sitter.Node, source []byte) string {
	traitNode := n.ChildByFieldName("trait")
	if traitNode == nil {
		return ""
	}
	return strings.TrimSpace(traitNode.Content(source))
}

func rustImport(n *sitter.Node, source []byte) Import {
	text := strings.TrimSpace(n.Content(source))
	text = strings.TrimPrefix(text, "use")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimSpace(text)
	module := text
	if idx := strings.IndexAny(text, "{:"); idx > 0 {
		module = strings.TrimSuffix(text[:idx], ":")
	}
	return Import{Module: module, Line: row(n.StartPoint())}
}
