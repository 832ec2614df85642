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
	"github.com/smacker/go-tree-sitter/golang"
)

// GoParser walks a tree-sitter Go AST into Entities/Imports, directly
// grounded on the teacher's pkg/ingestion/parser_go.go: functions and
// methods become entities keyed by receiver type, struct type
// declarations become "class" entities so the Inheritance Extractor has
// something to attach embedded-field relations to.
type GoParser struct {
	lang *sitter.Language
}

// NewGoParser constructs a GoParser with the golang tree-sitter grammar.
func NewGoParser() *GoParser {
	return &GoParser{lang: golang.GetLanguage()}
}

func (p *GoParser) Language() string { return "go" }

func (p *GoParser) Parse(source []byte, path string, mode ParserMode) (ParseResult, error) {
	result := ParseResult{Language: "go"}
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

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			result.Entities = append(result.Entities, goFunctionEntity(n, source, path, mode))
		case "method_declaration":
			result.Entities = append(result.Entities, goMethodEntity(n, source, path, mode))
		case "type_declaration":
			result.Entities = append(result.Entities, goTypeEntities(n, source, path, mode)...)
		case "import_declaration":
			result.Imports = append(result.Imports, goImports(n, source)...)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return result, nil
}

func collectSyntaxErrors(n *sitter.Node, source []byte, errs *[]ParseError) {
	if n.IsError() || n.IsMissing() {
		*errs = append(*errs, ParseError{
			Line:    int(n.StartPoint().Row) + 1,
			Column:  int(n.StartPoint().Column) + 1,
			Message: "syntax error near: " + snippet(n, source),
		})
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectSyntaxErrors(n.Child(i), source, errs)
	}
}

func snippet(n *sitter.Node, source []byte) string {
	text := n.Content(source)
	if len(text) > 40 {
		text = text[:40]
	}
	return strings.TrimSpace(text)
}

func goFunctionEntity(n *sitter.Node, source []byte, path string, mode ParserMode) Entity {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(source)
	}
	return Entity{
		Type:       EntityFunction,
		Name:       name,
		FilePath:   path,
		StartLine:  int(n.StartPoint().Row) + 1,
		EndLine:    int(n.EndPoint().Row) + 1,
		StartCol:   int(n.StartPoint().Column) + 1,
		EndCol:     int(n.EndPoint().Column) + 1,
		SourceCode: sourceFor(n, source, mode),
	}
}

func goMethodEntity(n *sitter.Node, source []byte, path string, mode ParserMode) Entity {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(source)
	}
	receiver := goReceiverType(n, source)
	return Entity{
		Type:       EntityMethod,
		Name:       name,
		Parent:     receiver,
		FilePath:   path,
		StartLine:  int(n.StartPoint().Row) + 1,
		EndLine:    int(n.EndPoint().Row) + 1,
		StartCol:   int(n.StartPoint().Column) + 1,
		EndCol:     int(n.EndPoint().Column) + 1,
		SourceCode: sourceFor(n, source, mode),
	}
}

// goReceiverType extracts the bare type name from a method's receiver
// parameter list, stripping a leading pointer `*`.
func goReceiverType(n *sitter.Node, source []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.ChildCount()); i++ {
		child := recv.Child(i)
		if child.Type() == "parameter_declaration" {
			typeNode := child.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			text := typeNode.Content(source)
			text = strings.TrimPrefix(text, "*")
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// goTypeEntities yields one "class" entity per struct or interface type
// defined in a `type (...)` or single type declaration; every other type
// declaration (aliases, named non-struct types) is skipped.
func goTypeEntities(n *sitter.Node, source []byte, path string, mode ParserMode) []Entity {
	var out []Entity
	for i := 0; i < int(n.ChildCount()); i++ {
		spec := n.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil || typeNode == nil {
			continue
		}
		if typeNode.Type() != "struct_type" && typeNode.Type() != "interface_type" {
			continue
		}
		out = append(out, Entity{
			Type:       EntityClass,
			Name:       nameNode.Content(source),
			FilePath:   path,
			StartLine:  int(spec.StartPoint().Row) + 1,
			EndLine:    int(spec.EndPoint().Row) + 1,
			StartCol:   int(spec.StartPoint().Column) + 1,
			EndCol:     int(spec.EndPoint().Column) + 1,
			SourceCode: sourceFor(spec, source, mode),
		})
	}
	return out
}

func goImports(n *sitter.Node, source []byte) []Import {
	var out []Import
	var collect func(spec *sitter.Node)
	collect = func(spec *sitter.Node) {
		if spec.Type() == "import_spec" {
			pathNode := spec.ChildByFieldName("path")
			if pathNode == nil {
				return
			}
			modulePath := strings.Trim(pathNode.Content(source), `"`)
			out = append(out, Import{
				Module: modulePath,
				Line:   int(spec.StartPoint().Row) + 1,
			})
			return
		}
		for i := 0; i < int(spec.ChildCount()); i++ {
			collect(spec.Child(i))
		}
	}
	collect(n)
	return out
}

func sourceFor(n *sitter.Node, source []byte, mode ParserMode) string {
	if mode == ModeSignatureOnly {
		return ""
	}
	return n.Content(source)
}
