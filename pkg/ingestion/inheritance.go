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
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// InheritanceKind discriminates a class-to-class relation (spec §4.3).
type InheritanceKind string

const (
	InheritExtends   InheritanceKind = "inherit"
	InheritImplement InheritanceKind = "implement"
)

// InheritanceRelation is a single child->parent class relation found while
// walking a file.
type InheritanceRelation struct {
	ChildFile   string
	ChildClass  string
	ParentClass string
	Kind        InheritanceKind
}

// ExtractInheritance walks source for language and returns every
// child->parent relation found (spec §4.3). Unsupported languages return
// an empty slice, never an error.
func ExtractInheritance(source []byte, language, path string) ([]InheritanceRelation, error) {
	if len(source) == 0 {
		return nil, nil
	}
	switch language {
	case "typescript", "javascript":
		return extractJSInheritance(source, language, path)
	case "python":
		return extractPythonInheritance(source, path)
	case "java":
		return extractJavaInheritance(source, path)
	case "go":
		return extractGoInheritance(source, path)
	case "rust":
		return extractRustInheritance(source, path)
	default:
		return nil, nil
	}
}

func parseTree(source []byte, lang *sitter.Language) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	return parser.ParseCtx(context.Background(), nil, source)
}

// extractJSInheritance handles `class Child extends Parent implements I1, I2`.
// The TS/JS grammar models `implements` as a clause node of its own, while
// `extends` is a direct field on class_heritage.
func extractJSInheritance(source []byte, language, path string) ([]InheritanceRelation, error) {
	lang := typescript.GetLanguage()
	if language == "javascript" {
		lang = javascript.GetLanguage()
	}
	tree, err := parseTree(source, lang)
	if err != nil {
		return nil, nil
	}
	defer tree.Close()

	var out []InheritanceRelation
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "class_declaration" {
			className := fieldText(n, "name", source)
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				switch child.Type() {
				case "class_heritage":
					for j := 0; j < int(child.ChildCount()); j++ {
						clause := child.Child(j)
						switch clause.Type() {
						case "extends_clause":
							if v := clause.ChildByFieldName("value"); v != nil {
								out = append(out, InheritanceRelation{
									ChildFile: path, ChildClass: className,
									ParentClass: strings.TrimSpace(v.Content(source)), Kind: InheritExtends,
								})
							}
						case "implements_clause":
							for k := 0; k < int(clause.ChildCount()); k++ {
								t := clause.Child(k)
								if t.Type() == "type_identifier" || t.Type() == "identifier" {
									out = append(out, InheritanceRelation{
										ChildFile: path, ChildClass: className,
										ParentClass: strings.TrimSpace(t.Content(source)), Kind: InheritImplement,
									})
								}
							}
						}
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

// extractPythonInheritance handles `class Child(Parent1, Parent2):` —
// every base listed in the argument list is an `inherit` relation
// (spec §4.3: "Python parentheses in class definition -> inherit, all listed").
func extractPythonInheritance(source []byte, path string) ([]InheritanceRelation, error) {
	tree, err := parseTree(source, python.GetLanguage())
	if err != nil {
		return nil, nil
	}
	defer tree.Close()

	var out []InheritanceRelation
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "class_definition" {
			className := fieldText(n, "name", source)
			if superclasses := n.ChildByFieldName("superclasses"); superclasses != nil {
				for i := 0; i < int(superclasses.ChildCount()); i++ {
					arg := superclasses.Child(i)
					switch arg.Type() {
					case "identifier", "attribute":
						out = append(out, InheritanceRelation{
							ChildFile: path, ChildClass: className,
							ParentClass: strings.TrimSpace(arg.Content(source)), Kind: InheritExtends,
						})
					case "keyword_argument":
						// e.g. `metaclass=ABCMeta` — not a base class.
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

// extractJavaInheritance handles `class Child extends Parent implements I1, I2`.
func extractJavaInheritance(source []byte, path string) ([]InheritanceRelation, error) {
	tree, err := parseTree(source, java.GetLanguage())
	if err != nil {
		return nil, nil
	}
	defer tree.Close()

	var out []InheritanceRelation
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "class_declaration" {
			className := fieldText(n, "name", source)
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				switch child.Type() {
				case "superclass":
					if t := child.ChildByFieldName("type"); t != nil {
						out = append(out, InheritanceRelation{
							ChildFile: path, ChildClass: className,
							ParentClass: strings.TrimSpace(t.Content(source)), Kind: InheritExtends,
						})
					}
				case "super_interfaces":
					collectJavaTypeList(child, source, func(name string) {
						out = append(out, InheritanceRelation{
							ChildFile: path, ChildClass: className,
							ParentClass: name, Kind: InheritImplement,
						})
					})
				}
			}
		}
		if n.Type() == "interface_declaration" {
			className := fieldText(n, "name", source)
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				if child.Type() == "extends_interfaces" {
					collectJavaTypeList(child, source, func(name string) {
						out = append(out, InheritanceRelation{
							ChildFile: path, ChildClass: className,
							ParentClass: name, Kind: InheritExtends,
						})
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

func collectJavaTypeList(n *sitter.Node, source []byte, emit func(string)) {
	switch n.Type() {
	case "type_identifier", "scoped_type_identifier", "generic_type":
		emit(strings.TrimSpace(n.Content(source)))
	default:
		for i := 0; i < int(n.ChildCount()); i++ {
			collectJavaTypeList(n.Child(i), source, emit)
		}
	}
}

// extractGoInheritance treats an embedded (anonymous) struct field as the
// `inherit` relation spec §4.3 calls for.
func extractGoInheritance(source []byte, path string) ([]InheritanceRelation, error) {
	tree, err := parseTree(source, golang.GetLanguage())
	if err != nil {
		return nil, nil
	}
	defer tree.Close()

	var out []InheritanceRelation
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "type_declaration" {
			for i := 0; i < int(n.ChildCount()); i++ {
				spec := n.Child(i)
				if spec.Type() != "type_spec" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				typeNode := spec.ChildByFieldName("type")
				if nameNode == nil || typeNode == nil || typeNode.Type() != "struct_type" {
					continue
				}
				childName := nameNode.Content(source)
				fieldList := typeNode.ChildByFieldName("body")
				if fieldList == nil {
					continue
				}
				for j := 0; j < int(fieldList.ChildCount()); j++ {
					field := fieldList.Child(j)
					if field.Type() != "field_declaration" {
						continue
					}
					// An embedded field has no `name` child, only a `type`.
					if field.ChildByFieldName("name") != nil {
						continue
					}
					typeField := field.ChildByFieldName("type")
					if typeField == nil {
						continue
					}
					parent := strings.TrimPrefix(strings.TrimSpace(typeField.Content(source)), "*")
					if idx := strings.LastIndex(parent, "."); idx >= 0 {
						parent = parent[idx+1:]
					}
					out = append(out, InheritanceRelation{
						ChildFile: path, ChildClass: childName,
						ParentClass: parent, Kind: InheritExtends,
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

// extractRustInheritance treats `impl Trait for Struct` as an `implement`
// relation with Struct as child and Trait as parent (spec §4.3).
func extractRustInheritance(source []byte, path string) ([]InheritanceRelation, error) {
	tree, err := parseTree(source, rust.GetLanguage())
	if err != nil {
		return nil, nil
	}
	defer tree.Close()

	var out []InheritanceRelation
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "impl_item" {
			trait := rustTraitOf(n, source)
			target := rustImplTargetType(n, source)
			if trait != "" && target != "" {
				out = append(out, InheritanceRelation{
					ChildFile: path, ChildClass: target,
					ParentClass: trait, Kind: InheritImplement,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}
