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

// Package rpgmodel defines the Repository Planning Graph data model: nodes,
// edges, features, and the per-graph config. It has no storage or parsing
// dependencies; it is the type vocabulary shared by every other package.
package rpgmodel

// NodeKind distinguishes the two node variants in the RPG's dual view.
type NodeKind string

const (
	NodeHighLevel NodeKind = "high_level"
	NodeLowLevel  NodeKind = "low_level"
)

// EntityType enumerates the concrete kinds of code entity a LowLevelNode (or
// a grounded HighLevelNode) can represent.
type EntityType string

const (
	EntityFile     EntityType = "file"
	EntityClass    EntityType = "class"
	EntityFunction EntityType = "function"
	EntityMethod   EntityType = "method"
	EntityModule   EntityType = "module"
)

// Feature is the semantic annotation carried by every node: a natural
// language description, optional keywords, and optional sub-feature
// descriptions (used when a single entity bundles more than one concern).
type Feature struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	SubFeatures []string `json:"subFeatures,omitempty"`
}

// Metadata carries the grounded, language-level facts about a node.
type Metadata struct {
	EntityType    EntityType     `json:"entityType"`
	Path          string         `json:"path,omitempty"`
	StartLine     int            `json:"startLine,omitempty"`
	EndLine       int            `json:"endLine,omitempty"`
	QualifiedName string         `json:"qualifiedName,omitempty"`
	Language      string         `json:"language,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// ExtraPaths reads the `extra.paths` secondary-LCA list, if present.
func (m Metadata) ExtraPaths() []string {
	if m.Extra == nil {
		return nil
	}
	v, ok := m.Extra["paths"]
	if !ok {
		return nil
	}
	switch paths := v.(type) {
	case []string:
		return paths
	case []any:
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Node is a single entry in the RPG. Kind discriminates HighLevelNode from
// LowLevelNode; DirectoryPath is only meaningful for high-level nodes and
// SourceCode only for low-level ones.
type Node struct {
	ID            string   `json:"id"`
	Kind          NodeKind `json:"kind"`
	Feature       Feature  `json:"feature"`
	DirectoryPath string   `json:"directoryPath,omitempty"`
	Metadata      Metadata `json:"metadata"`
	SourceCode    string   `json:"sourceCode,omitempty"`
}

// HasCodeAnchor reports whether this node directly carries source code or
// entity-level metadata, used by the Evolver's orphan-pruning rule (a
// HighLevelNode with no functional children is only removed when it also
// has no code anchor of its own).
func (n Node) HasCodeAnchor() bool {
	return n.SourceCode != "" || (n.Kind == NodeLowLevel && n.Metadata.Path != "")
}

// DependencyType enumerates the kinds of code-derived relationship a
// DependencyEdge can carry.
type DependencyType string

const (
	DepImport    DependencyType = "import"
	DepCall      DependencyType = "call"
	DepInherit   DependencyType = "inherit"
	DepImplement DependencyType = "implement"
	DepUse       DependencyType = "use"
)

// EdgeKind discriminates the two Edge variants, functional and dependency;
// data-flow relationships use the separate DataFlowEdge type.
type EdgeKind string

const (
	EdgeFunctional EdgeKind = "functional"
	EdgeDependency EdgeKind = "dependency"
)

// Edge connects two nodes. FunctionalEdge attributes (Level, SiblingOrder)
// and DependencyEdge attributes (DependencyType, IsRuntime, Line) are both
// carried on the same struct with zero values when not applicable, mirroring
// how the teacher's CallsEdge/ImportEntity pairs stay flat data structs
// rather than an interface hierarchy.
type Edge struct {
	Source         string         `json:"source"`
	Target         string         `json:"target"`
	Kind           EdgeKind       `json:"kind"`
	Level          int            `json:"level,omitempty"`
	SiblingOrder   int            `json:"siblingOrder,omitempty"`
	DependencyType DependencyType `json:"dependencyType,omitempty"`
	IsRuntime      bool           `json:"isRuntime,omitempty"`
	Line           int            `json:"line,omitempty"`
	Weight         float64        `json:"weight,omitempty"`
}

// DataFlowEdge records an inter-module data-flow relationship, stored
// out-of-band from the typed Edge set (see spec §3, §6.4).
type DataFlowEdge struct {
	From           string `json:"from"`
	To             string `json:"to"`
	DataID         string `json:"dataId"`
	DataType       string `json:"dataType"`
	Transformation string `json:"transformation,omitempty"`
}

// GitHubRef identifies the revision an RPG was built from.
type GitHubRef struct {
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Commit     string `json:"commit"`
	PathPrefix string `json:"pathPrefix,omitempty"`
}

// Config is the per-graph configuration persisted alongside the node/edge
// set (see spec §3, §6.4).
type Config struct {
	Name        string     `json:"name"`
	RootPath    string     `json:"rootPath,omitempty"`
	Description string     `json:"description,omitempty"`
	GitHub      *GitHubRef `json:"github,omitempty"`
}
