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

// Package ground implements the Artifact Grounder (spec §4.8): a path trie
// over every LowLevelNode's metadata.path, an LCA computation over that
// trie, and the pass that assigns each HighLevelNode's primary (and, for
// multi-LCA nodes, secondary) grounded path. No teacher file builds a path
// trie — kraklabs-cie grounds nothing, since its CozoDB rows already carry
// an absolute file path per entity — so this package follows spec §4.8's
// algorithm directly, in the plain-function, table-driven-constant style
// the rest of this module uses for spec-only components (see pkg/semantic).
package ground

import (
	"sort"
	"strings"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// trieNode is one segment of the path trie built from a set of leaf paths.
type trieNode struct {
	children map[string]*trieNode
	terminal bool // true when some input path ends exactly at this node
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// buildTrie segments every path on "/" and inserts it into a fresh trie
// rooted at an empty virtual node (spec §4.8.1).
func buildTrie(paths []string) *trieNode {
	root := newTrieNode()
	for _, p := range paths {
		if p == "" {
			continue
		}
		cur := root
		for _, seg := range strings.Split(p, "/") {
			if seg == "" {
				continue
			}
			child, ok := cur.children[seg]
			if !ok {
				child = newTrieNode()
				cur.children[seg] = child
			}
			cur = child
		}
		cur.terminal = true
	}
	return root
}

// ComputeLCA returns the set of maximal-but-distinct prefix nodes across
// paths (spec §4.8.2, testable property 4): starting from the root,
// descend while the current node has exactly one child and is not itself
// terminal; once that invariant breaks, emit the current node — unless the
// break happened at the virtual root itself (i.e. the input paths diverge
// immediately into more than one top-level area), in which case each of
// the root's children is treated as an independent sub-problem and
// recursed into, so the result never includes the meaningless empty-string
// prefix and never contains one element that is a strict prefix of
// another (property 4b).
func ComputeLCA(paths []string) []string {
	root := buildTrie(paths)
	out := lca(root, "")
	sort.Strings(out)
	return out
}

func lca(node *trieNode, prefix string) []string {
	cur := node
	curPrefix := prefix
	for len(cur.children) == 1 && !cur.terminal {
		for seg, child := range cur.children {
			curPrefix = joinPath(curPrefix, seg)
			cur = child
		}
	}

	if curPrefix == "" {
		segs := make([]string, 0, len(cur.children))
		for seg := range cur.children {
			segs = append(segs, seg)
		}
		sort.Strings(segs)
		var out []string
		for _, seg := range segs {
			out = append(out, lca(cur.children[seg], seg)...)
		}
		return out
	}
	return []string{curPrefix}
}

func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "/" + seg
}

// firstAlphabetically picks the primary path among a node's LCAs (spec
// §4.8.3): the alphabetically-first of the (already-sorted) set.
func firstAlphabetically(lcas []string) string {
	if len(lcas) == 0 {
		return ""
	}
	return lcas[0]
}

// Ground computes and assigns metadata.path (and metadata.extra.paths for
// multi-LCA nodes) for every HighLevelNode in g, by propagating its
// transitive leaf descendants' paths through the path trie (spec §4.8.3-5).
// Pre-existing metadata.extra.* keys are preserved; only "paths" is
// replaced. Leaves with an empty path are already excluded by
// rpgmodel.Graph.LeafPaths (spec §4.8.5).
func Ground(g *rpgmodel.Graph) error {
	for _, n := range g.NodesByKind(rpgmodel.NodeHighLevel) {
		leaves := g.LeafPaths(n.ID)
		if len(leaves) == 0 {
			continue
		}
		lcas := ComputeLCA(leaves)
		if len(lcas) == 0 {
			continue
		}

		md := n.Metadata
		md.EntityType = rpgmodel.EntityModule
		md.Path = firstAlphabetically(lcas)
		if md.Extra == nil {
			md.Extra = make(map[string]any, 1)
		} else {
			extra := make(map[string]any, len(md.Extra))
			for k, v := range md.Extra {
				extra[k] = v
			}
			md.Extra = extra
		}
		if len(lcas) > 1 {
			md.Extra["paths"] = lcas
		} else {
			delete(md.Extra, "paths")
		}
		if len(md.Extra) == 0 {
			md.Extra = nil
		}

		n.Metadata = md
		if err := g.UpdateNode(n); err != nil {
			return err
		}
	}
	return nil
}
