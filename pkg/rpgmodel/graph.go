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

package rpgmodel

import (
	"fmt"
	"regexp"
	"sort"
)

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Graph is an in-memory reference implementation of the RPG's invariants
// (spec §3.2). Concrete pipelines persist through the store.ContextStore
// interface; Graph is what the encoder/evolver build up in memory before
// (and sometimes instead of, in tests) handing it to a store.
//
// The functional hierarchy is modeled as an edge type, not as parent
// pointers on nodes (spec §9 "Hierarchy as a forest + side index"); a
// reverse child index is materialized here for fast traversal.
type Graph struct {
	Config        Config
	nodes         map[string]Node
	edges         []Edge
	dataFlowEdges []DataFlowEdge

	// parent maps a node id to its single functional parent, enforcing the
	// forest invariant (spec invariant 3).
	parent map[string]string
	// children maps a node id to its functional children, kept in
	// siblingOrder ascending order.
	children map[string][]string
}

// NewGraph creates an empty graph with the given config.
func NewGraph(cfg Config) *Graph {
	return &Graph{
		Config:   cfg,
		nodes:    make(map[string]Node),
		parent:   make(map[string]string),
		children: make(map[string][]string),
	}
}

// AddNode inserts a node. Duplicate ids fail deterministically (invariant 1).
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("rpgmodel: node id must not be empty")
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("rpgmodel: duplicate node id %q", n.ID)
	}
	g.nodes[n.ID] = n
	return nil
}

// GetNode returns the node with the given id, or false if absent.
func (g *Graph) GetNode(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// UpdateNode replaces the stored node. The id must already exist.
func (g *Graph) UpdateNode(n Node) error {
	if _, exists := g.nodes[n.ID]; !exists {
		return fmt.Errorf("rpgmodel: node %q does not exist", n.ID)
	}
	g.nodes[n.ID] = n
	return nil
}

// RemoveNode deletes a node and cascades to its incident edges and
// functional-hierarchy bookkeeping.
func (g *Graph) RemoveNode(id string) {
	delete(g.nodes, id)

	filtered := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			continue
		}
		filtered = append(filtered, e)
	}
	g.edges = filtered

	if p, ok := g.parent[id]; ok {
		g.children[p] = removeString(g.children[p], id)
		delete(g.parent, id)
	}
	for _, c := range g.children[id] {
		delete(g.parent, c)
	}
	delete(g.children, id)
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Nodes returns every node in the graph, in no particular order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// NodesByKind returns only nodes of the given kind.
func (g *Graph) NodesByKind(kind NodeKind) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// AddEdge inserts an edge after checking referential integrity (invariant 2)
// and, for functional edges, the forest invariant (invariant 3).
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("rpgmodel: edge source %q does not exist", e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("rpgmodel: edge target %q does not exist", e.Target)
	}

	if e.Kind == EdgeFunctional {
		if existingParent, ok := g.parent[e.Target]; ok && existingParent != e.Source {
			return fmt.Errorf("rpgmodel: node %q already has functional parent %q", e.Target, existingParent)
		}
		if g.wouldCycle(e.Source, e.Target) {
			return fmt.Errorf("rpgmodel: edge %s->%s would create a functional cycle", e.Source, e.Target)
		}
		if e.SiblingOrder < 0 {
			return fmt.Errorf("rpgmodel: siblingOrder must be non-negative, got %d", e.SiblingOrder)
		}
		g.parent[e.Target] = e.Source
		g.children[e.Source] = insertSorted(g.children[e.Source], e.Target, e.SiblingOrder, g.siblingOrderOf(e.Source))
	}

	g.edges = append(g.edges, e)
	return nil
}

// siblingOrderOf returns a lookup of child id -> sibling order for the
// children already attached to parent, used to keep insertSorted stable.
func (g *Graph) siblingOrderOf(parent string) map[string]int {
	orders := make(map[string]int, len(g.children[parent]))
	for _, e := range g.edges {
		if e.Kind == EdgeFunctional && e.Source == parent {
			orders[e.Target] = e.SiblingOrder
		}
	}
	return orders
}

func insertSorted(children []string, newChild string, newOrder int, orders map[string]int) []string {
	children = append(children, newChild)
	sort.SliceStable(children, func(i, j int) bool {
		oi, iok := orders[children[i]]
		oj, jok := orders[children[j]]
		if children[i] == newChild {
			oi, iok = newOrder, true
		}
		if children[j] == newChild {
			oj, jok = newOrder, true
		}
		if !iok || !jok {
			return false
		}
		return oi < oj
	})
	return children
}

// wouldCycle reports whether adding a functional edge parent->child would
// create a cycle, i.e. parent is already a descendant of child.
func (g *Graph) wouldCycle(parent, child string) bool {
	cur := parent
	for {
		p, ok := g.parent[cur]
		if !ok {
			return false
		}
		if p == child {
			return true
		}
		cur = p
	}
}

// RemoveEdge removes the first edge matching source/target/type.
func (g *Graph) RemoveEdge(source, target string, depType DependencyType) {
	filtered := g.edges[:0]
	removed := false
	for _, e := range g.edges {
		if !removed && e.Source == source && e.Target == target &&
			(e.Kind != EdgeDependency || e.DependencyType == depType) {
			removed = true
			if e.Kind == EdgeFunctional {
				g.children[source] = removeString(g.children[source], target)
				delete(g.parent, target)
			}
			continue
		}
		filtered = append(filtered, e)
	}
	g.edges = filtered
}

// Edges returns every edge in the graph.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Children returns the functional children of id, in ascending sibling
// order (spec invariant 7).
func (g *Graph) Children(id string) []string {
	return append([]string(nil), g.children[id]...)
}

// Parent returns the functional parent of id, if any.
func (g *Graph) Parent(id string) (string, bool) {
	p, ok := g.parent[id]
	return p, ok
}

// Roots returns every HighLevelNode with no functional parent.
func (g *Graph) Roots() []string {
	var roots []string
	for id, n := range g.nodes {
		if n.Kind != NodeHighLevel {
			continue
		}
		if _, hasParent := g.parent[id]; !hasParent {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// LeafPaths collects the metadata.path of every transitive low-level
// descendant of id (used by the Artifact Grounder, spec §4.8). Leaves
// with an empty path are skipped (spec §4.8.5).
func (g *Graph) LeafPaths(id string) []string {
	var paths []string
	var walk func(string)
	seen := make(map[string]bool)
	walk = func(cur string) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		n, ok := g.nodes[cur]
		if !ok {
			return
		}
		if n.Kind == NodeLowLevel {
			if n.Metadata.Path != "" {
				paths = append(paths, n.Metadata.Path)
			}
			return
		}
		for _, c := range g.children[cur] {
			walk(c)
		}
	}
	walk(id)
	return paths
}

// ValidateCommit checks that a commit stamp matches the 40-char lowercase
// hex SHA format required by spec invariant 6.
func ValidateCommit(commit string) error {
	if !commitPattern.MatchString(commit) {
		return fmt.Errorf("rpgmodel: commit %q is not a 40-char lowercase hex SHA", commit)
	}
	return nil
}
