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
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ReceiverKind classifies a call site's receiver expression (spec §4.2).
type ReceiverKind string

const (
	ReceiverNone     ReceiverKind = "none"
	ReceiverSelf     ReceiverKind = "self"
	ReceiverSuper    ReceiverKind = "super"
	ReceiverVariable ReceiverKind = "variable"
)

// CallSite is a single call expression found while walking a file.
type CallSite struct {
	CallerFile   string
	CallerEntity string // qualified enclosing entity name, if any
	CalleeSymbol string
	Line         int
	Receiver     string
	ReceiverKind ReceiverKind
}

// callGrammar describes the node-type vocabulary needed to find calls and
// member accesses for one language family; the walk logic in
// ExtractCalls is otherwise identical across languages (spec §4.2:
// "extraction is pure and stateless").
type callGrammar struct {
	lang             *sitter.Language
	callExprType     string
	calleeField      string // field on a call_expression naming the callee
	memberExprTypes  map[string]bool
	memberObjField   string
	memberPropField  string
	selfNames        map[string]bool
	superNames       map[string]bool
	enclosingTypes   map[string]bool // node types that introduce a new "current entity" scope
	enclosingName    func(n *sitter.Node, source []byte) string
}

var grammars = map[string]callGrammar{
	"go": {
		lang:            golang.GetLanguage(),
		callExprType:    "call_expression",
		calleeField:     "function",
		memberExprTypes: map[string]bool{"selector_expression": true},
		memberObjField:  "operand",
		memberPropField: "field",
		selfNames:       map[string]bool{}, // Go has no implicit self; receiver var name varies
		superNames:      map[string]bool{},
		enclosingTypes:  map[string]bool{"function_declaration": true, "method_declaration": true},
		enclosingName:   goEnclosingName,
	},
	"typescript": {
		lang:            typescript.GetLanguage(),
		callExprType:    "call_expression",
		calleeField:     "function",
		memberExprTypes: map[string]bool{"member_expression": true},
		memberObjField:  "object",
		memberPropField: "property",
		selfNames:       map[string]bool{"this": true},
		superNames:      map[string]bool{"super": true},
		enclosingTypes:  map[string]bool{"method_definition": true, "function_declaration": true, "class_declaration": true},
		enclosingName:   jsEnclosingName,
	},
	"javascript": {
		lang:            javascript.GetLanguage(),
		callExprType:    "call_expression",
		calleeField:     "function",
		memberExprTypes: map[string]bool{"member_expression": true},
		memberObjField:  "object",
		memberPropField: "property",
		selfNames:       map[string]bool{"this": true},
		superNames:      map[string]bool{"super": true},
		enclosingTypes:  map[string]bool{"method_definition": true, "function_declaration": true, "class_declaration": true},
		enclosingName:   jsEnclosingName,
	},
	"python": {
		lang:            python.GetLanguage(),
		callExprType:    "call",
		calleeField:     "function",
		memberExprTypes: map[string]bool{"attribute": true},
		memberObjField:  "object",
		memberPropField: "attribute",
		selfNames:       map[string]bool{"self": true, "cls": true},
		superNames:      map[string]bool{"super": true},
		enclosingTypes:  map[string]bool{"function_definition": true, "class_definition": true},
		enclosingName:   pyEnclosingName,
	},
	"java": {
		lang:            java.GetLanguage(),
		callExprType:    "method_invocation",
		calleeField:     "name",
		memberExprTypes: map[string]bool{}, // method_invocation carries its own object field
		memberObjField:  "object",
		memberPropField: "name",
		selfNames:       map[string]bool{"this": true},
		superNames:      map[string]bool{"super": true},
		enclosingTypes:  map[string]bool{"method_declaration": true, "class_declaration": true},
		enclosingName:   javaEnclosingName,
	},
}

func goEnclosingName(n *sitter.Node, source []byte) string {
	if n.Type() == "method_declaration" {
		recv := goReceiverType(n, source)
		name := fieldText(n, "name", source)
		if recv != "" {
			return recv + "." + name
		}
		return name
	}
	return fieldText(n, "name", source)
}

func jsEnclosingName(n *sitter.Node, source []byte) string {
	return fieldText(n, "name", source)
}

func pyEnclosingName(n *sitter.Node, source []byte) string {
	return fieldText(n, "name", source)
}

func javaEnclosingName(n *sitter.Node, source []byte) string {
	return fieldText(n, "name", source)
}

// ExtractCalls walks source for language and returns every call site found
// (spec §4.2). Unsupported languages return an empty slice, never an error.
func ExtractCalls(source []byte, language, path string) ([]CallSite, error) {
	g, ok := grammars[language]
	if !ok || len(source) == 0 {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(g.lang)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, nil
	}
	defer tree.Close()

	var sites []CallSite
	var walk func(n *sitter.Node, enclosing string)
	walk = func(n *sitter.Node, enclosing string) {
		current := enclosing
		if g.enclosingTypes[n.Type()] {
			current = g.enclosingName(n, source)
		}

		if n.Type() == g.callExprType {
			sites = append(sites, callSiteFromNode(n, g, source, path, current)...)
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), current)
		}
	}
	walk(tree.RootNode(), "")

	return sites, nil
}

func callSiteFromNode(n *sitter.Node, g callGrammar, source []byte, path, enclosing string) []CallSite {
	callee := n.ChildByFieldName(g.calleeField)
	if callee == nil {
		return nil
	}
	line := row(n.StartPoint())

	// Java's method_invocation carries the object directly.
	if len(g.memberExprTypes) == 0 {
		obj := n.ChildByFieldName(g.memberObjField)
		name := callee.Content(source)
		if obj == nil {
			return []CallSite{{CallerFile: path, CallerEntity: enclosing, CalleeSymbol: name, Line: line, ReceiverKind: ReceiverNone}}
		}
		return []CallSite{memberCallSite(obj, name, g, source, path, line, enclosing)}
	}

	if g.memberExprTypes[callee.Type()] {
		obj := callee.ChildByFieldName(g.memberObjField)
		prop := callee.ChildByFieldName(g.memberPropField)
		if obj == nil || prop == nil {
			return nil
		}
		return []CallSite{memberCallSite(obj, prop.Content(source), g, source, path, line, enclosing)}
	}

	return []CallSite{{
		CallerFile: path, CallerEntity: enclosing,
		CalleeSymbol: callee.Content(source), Line: line, ReceiverKind: ReceiverNone,
	}}
}

func memberCallSite(obj *sitter.Node, symbol string, g callGrammar, source []byte, path string, line int, enclosing string) CallSite {
	receiverText := obj.Content(source)
	kind := ReceiverVariable
	switch {
	case g.selfNames[receiverText]:
		kind = ReceiverSelf
	case g.superNames[receiverText] || obj.Type() == "super":
		kind = ReceiverSuper
	}
	// super().x() parses as a call_expression object in some grammars;
	// detect that shape explicitly.
	if obj.Type() == g.callExprType {
		inner := obj.ChildByFieldName(g.calleeField)
		if inner != nil && g.superNames[inner.Content(source)] {
			kind = ReceiverSuper
			receiverText = inner.Content(source) + "()"
		}
	}
	return CallSite{
		CallerFile: path, CallerEntity: enclosing,
		CalleeSymbol: symbol, Line: line,
		Receiver: receiverText, ReceiverKind: kind,
	}
}
