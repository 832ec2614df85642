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
	"github.com/smacker/go-tree-sitter/java"
)

// JavaParser walks a Java AST: classes/interfaces become EntityClass,
// their methods become EntityMethod.
type JavaParser struct {
	lang *sitter.Language
}

// NewJavaParser builds a parser for Java sources.
func NewJavaParser() *JavaParser {
	return &JavaParser{lang: java.GetLanguage()}
}

func (p *JavaParser) Language() string { return "java" }

func (p *JavaParser) Parse(source []byte, path string, mode ParserMode) (ParseResult, error) {
	result := ParseResult{Language: "java"}
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
		case "class_declaration", "interface_declaration":
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
		case "method_declaration", "constructor_declaration":
			name := fieldText(n, "name", source)
			result.Entities = append(result.Entities, Entity{
				Type: EntityMethod, Name: name, Parent: currentClass, FilePath: path,
				StartLine: row(n.StartPoint()), EndLine: row(n.EndPoint()),
				StartCol: col(n.StartPoint()), EndCol: col(n.EndPoint()),
				SourceCode: sourceFor(n, source, mode),
			})
			return
		case "import_declaration":
			result.Imports = append(result.Imports, javaImport(n, source))
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return result, nil
}

func javaImport(n *sitter.Node, source []byte) Import {
	text := strings.TrimSpace(n.Content(source))
	text = strings.TrimPrefix(text, "import")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimSpace(text)
	parts := strings.Split(text, ".")
	name := parts[len(parts)-1]
	return Import{Module: text, ImportedNames: []string{name}, Line: row(n.StartPoint())}
}
