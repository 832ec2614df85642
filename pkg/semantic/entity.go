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

// Package semantic implements the Semantic Extractor + Cache (spec §4.6):
// heuristic and LLM-backed SemanticFeature extraction, token-aware batching,
// and a content-hash-keyed TTL cache.
package semantic

import "github.com/kraklabs/rpg/pkg/rpgmodel"

// EntityInput is the Semantic Extractor's per-call argument (spec §4.6).
type EntityInput struct {
	Type          rpgmodel.EntityType
	Name          string
	FilePath      string
	Parent        string
	SourceCode    string
	Documentation string
}
