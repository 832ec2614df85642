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

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser walks a Python AST. Module-level functions become
// EntityFunction, class bodies become EntityClass with their methods
// nested as EntityMethod with Parent set to the class name.
type PythonParser struct {
	lang *sitter.Language
}

// NewPythonParser builds a parser for Python sources.
func NewPythonParser() *PythonParser {
	return &PythonParser{lang: python.GetLanguage()}
}

func (p *PythonParser) Language() string { return "python" }

func (p *PythonParser) Parse(source []byte, path string, mode ParserMode) (ParseResult, error) {
	result := ParseResult{Language: "python"}
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
		case "class_definition":
			name := fieldText(n, "name", source)
			result.Entities = append(result.Entities, Entity{
				Type: EntityClass, Name: name, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
			prevClass := currentClass
			currentClass = name
			if body := n.ChildByFieldName("body"); body != nil {
				walk(body)
			}
			currentClass = prevClass
			return
		case "function_definition":
			name := fieldText(n, "name", source)
			entityType := EntityFunction
			parent := ""
			if currentClass != "" {
				entityType = EntityMethod
				parent = currentClass
			}
			result.Entities = append(result.Entities, Entity{
				Type: entityType, Name: name, Parent: parent, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
			return
		case "import_statement", "import_from_statement":
			result.Imports = append(result.Imports, pyImport(n, source)...)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return result, nil
}

func pyImport(n *sitter.Node, source []byte) []Import {
	var out []Import
	line := row(n.StartPoint())
	switch n.Type() {
	case "import_statement":
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.Type() == "dotted_name" || child.Type() == "aliased_import" {
				out = append(out, Import{Module: child.Content(source), Line: line})
			}
		}
	case "import_from_statement":
		moduleNode := n.ChildByFieldName("module_name")
		module := ""
		if moduleNode != nil {
			module = moduleNode.Content(source)
		}
		imp := Import{Module: module, Line: line}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.Type() == "dotted_name" && child != moduleNode {
				imp.ImportedNames = append(imp.ImportedNames, child.Content(source))
			}
		}
		out = append(out, imp)
	}
	return out
}
