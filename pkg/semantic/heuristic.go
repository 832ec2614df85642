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

package semantic

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
)

// verbPrefixes maps a name prefix to the verb the heuristic assigns it
// (spec §4.6), checked longest-prefix-first so "handle"/"process" don't
// shadow more specific prefixes.
var verbPrefixes = []struct {
	prefix string
	verb   string
}{
	{"get", "retrieve"},
	{"set", "set"},
	{"is", "check"},
	{"has", "check"},
	{"create", "create"},
	{"handle", "dispatch"},
	{"process", "transform"},
	{"parse", "parse"},
	{"format", "format"},
}

// vagueVerbReplacements is the feature-name validation step's verb
// normalization table (spec §4.6).
var vagueVerbReplacements = map[string]string{
	"handle":  "dispatch",
	"process": "transform",
}

// implementationDetailTokens are stripped during feature-name validation.
var implementationDetailTokens = map[string]bool{
	"iterate": true,
	"array":   true,
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// tokenizeName splits a camelCase or snake_case identifier into lowercase
// tokens (spec §4.6 keyword extraction).
func tokenizeName(name string) []string {
	s := camelBoundary.ReplaceAllString(name, "$1_$2")
	s = strings.ReplaceAll(s, "-", "_")
	parts := strings.Split(s, "_")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// verbFor picks the heuristic's verb for a function/method name by its
// longest matching prefix, defaulting to "call" when nothing matches.
func verbFor(name string) string {
	lower := strings.ToLower(name)
	best := ""
	bestLen := 0
	for _, vp := range verbPrefixes {
		if strings.HasPrefix(lower, vp.prefix) && len(vp.prefix) > bestLen {
			best = vp.verb
			bestLen = len(vp.prefix)
		}
	}
	if best == "" {
		return "call"
	}
	return best
}

// HeuristicDescribe produces a SemanticFeature for a single entity without
// any LLM involvement (spec §4.6).
func HeuristicDescribe(in EntityInput) rpgmodel.Feature {
	tokens := tokenizeName(in.Name)
	keywords := append([]string{}, tokens...)
	keywords = append(keywords, string(in.Type))
	for _, seg := range strings.Split(filepath.ToSlash(in.FilePath), "/") {
		seg = strings.TrimSuffix(seg, filepath.Ext(seg))
		for _, t := range tokenizeName(seg) {
			if t != "" {
				keywords = append(keywords, t)
			}
		}
	}
	keywords = dedupe(keywords)

	// object drops a leading verb-prefix token ("get" in getUser) so a
	// method/function description reads "<verb> <object>".
	object := tokens
	if len(tokens) > 1 {
		for _, vp := range verbPrefixes {
			if tokens[0] == vp.prefix {
				object = tokens[1:]
				break
			}
		}
	}

	var description string
	switch in.Type {
	case rpgmodel.EntityClass:
		description = "define " + strings.Join(tokens, " ")
	case rpgmodel.EntityMethod:
		verb := verbFor(in.Name)
		description = verb + " " + strings.Join(object, " ")
		if in.Parent != "" {
			keywords = dedupe(append(keywords, tokenizeName(in.Parent)...))
		}
	case rpgmodel.EntityFunction:
		verb := verbFor(in.Name)
		description = verb + " " + strings.Join(object, " ")
	default:
		description = "define " + strings.Join(tokens, " ")
	}

	return validateFeature(rpgmodel.Feature{Description: description, Keywords: keywords})
}

// validateFeature applies spec §4.6's feature-name validation rules:
// lowercase; strip trailing punctuation; replace vague verbs; strip
// implementation-detail tokens; truncate to ≤8 words; split on "and" into
// description + subFeatures when it looks like two concerns.
func validateFeature(f rpgmodel.Feature) rpgmodel.Feature {
	desc := strings.ToLower(strings.TrimSpace(f.Description))
	desc = strings.TrimRight(desc, ".;,")

	words := strings.Fields(desc)
	if len(words) > 0 {
		if repl, ok := vagueVerbReplacements[words[0]]; ok {
			words[0] = repl
		}
	}

	filtered := words[:0:0]
	for _, w := range words {
		if !implementationDetailTokens[w] {
			filtered = append(filtered, w)
		}
	}
	words = filtered

	if idx := indexOfWord(words, "and"); idx > 0 && idx < len(words)-1 {
		left := words[:idx]
		right := words[idx+1:]
		if len(left) >= 2 && isVerbPhrase(right) {
			f.Description = truncateWords(left, 8)
			f.SubFeatures = append(f.SubFeatures, truncateWords(right, 8))
			f.Keywords = f.Keywords
			return f
		}
	}

	f.Description = truncateWords(words, 8)
	return f
}

func indexOfWord(words []string, target string) int {
	for i, w := range words {
		if w == target {
			return i
		}
	}
	return -1
}

// isVerbPhrase reports whether phrase's first word is a recognized verb,
// the signal spec §4.6 uses to decide an "and"-joined clause is a second
// concern rather than a compound noun phrase.
func isVerbPhrase(phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	switch phrase[0] {
	case "retrieve", "set", "check", "create", "dispatch", "transform",
		"parse", "format", "define", "call", "update", "delete", "build",
		"validate", "convert", "load", "save":
		return true
	}
	return false
}

func truncateWords(words []string, max int) string {
	if len(words) > max {
		words = words[:max]
	}
	return strings.Join(words, " ")
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// AggregateFileFeature rolls up a file's child SemanticFeatures into the
// file node's own feature (spec §4.6 "File-level aggregation"): most
// common verb paired with the file's base name, deduped merged keywords,
// child descriptions as subFeatures when N>=2, and a "<verb> <fileName>"
// fallback for N=0.
func AggregateFileFeature(filePath string, children []rpgmodel.Feature) rpgmodel.Feature {
	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	fileWords := strings.Join(tokenizeName(base), " ")

	if len(children) == 0 {
		return rpgmodel.Feature{Description: "define " + fileWords}
	}

	verbCounts := make(map[string]int)
	var keywords []string
	var subFeatures []string
	for _, c := range children {
		if w := strings.Fields(c.Description); len(w) > 0 {
			verbCounts[w[0]]++
		}
		keywords = append(keywords, c.Keywords...)
		if c.Description != "" {
			subFeatures = append(subFeatures, c.Description)
		}
	}

	verb := "define"
	best := -1
	for v, n := range verbCounts {
		if n > best {
			best = n
			verb = v
		}
	}

	f := rpgmodel.Feature{
		Description: verb + " " + fileWords,
		Keywords:    dedupe(keywords),
	}
	if len(children) >= 2 {
		f.SubFeatures = subFeatures
	}
	return f
}
