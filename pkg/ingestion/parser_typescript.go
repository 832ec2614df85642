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
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScriptParser handles both TypeScript and JavaScript (same grammar
// family, same node shapes for the constructs this parser cares about).
type TypeScriptParser struct {
	lang     *sitter.Language
	langName string
}

// NewTypeScriptParser builds a parser for TypeScript/TSX sources.
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{lang: typescript.GetLanguage(), langName: "typescript"}
}

// NewJavaScriptParser builds a parser for JavaScript/JSX sources, reusing
// the TypeScript parser's walk logic against the javascript grammar.
func NewJavaScriptParser() *TypeScriptParser {
	return &TypeScriptParser{lang: javascript.GetLanguage(), langName: "javascript"}
}

func (p *TypeScriptParser) Language() string { return p.langName }

func (p *TypeScriptParser) Parse(source []byte, path string, mode ParserMode) (ParseResult, error) {
	result := ParseResult{Language: p.langName}
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

	var currentClass string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "class_declaration":
			name := fieldText(n, "name", source)
			result.Entities = append(result.Entities, Entity{
				Type: EntityClass, Name: name, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
			prevClass := currentClass
			currentClass = name
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i))
			}
			currentClass = prevClass
			return
		case "method_definition":
			name := fieldText(n, "name", source)
			result.Entities = append(result.Entities, Entity{
				Type: EntityMethod, Name: name, Parent: currentClass, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
		case "function_declaration":
			name := fieldText(n, "name", source)
			result.Entities = append(result.Entities, Entity{
				Type: EntityFunction, Name: name, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
		case "import_statement":
			result.Imports = append(result.Imports, tsImport(n, source))
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return result, nil
}

func tsImport(n *sitter.Node, source []byte) Import {
	imp := Import{Line: row(n.StartPoint())}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "string":
			imp.Module = strings.Trim(child.Content(source), `"'`)
		case "import_clause":
			collectImportNames(child, source, &imp.ImportedNames)
		}
	}
	return imp
}

func collectImportNames(n *sitter.Node, source []byte, out *[]string) {
	switch n.Type() {
	case "identifier":
		*out = append(*out, n.Content(source))
	default:
		for i := 0; i < int(n.ChildCount()); i++ {
			collectImportNames(n.Child(i), source, out)
		}
	}
}

func fieldText(n *sitter.Node, field string, source []byte) string {
	f := n.ChildByFieldName(field)
	if f == nil {
		return ""
	}
	return f.Content(source)
}

func row(p sitter.Point) int { return int(p.Row) + 1 }
func col(p sitter.Point) int { return int(p.Column) + 1 }
