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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// NodeID generates a deterministic RPG node id for a file-level entity,
// grounded on the teacher's pkg/ingestion/ids.go GenerateFileID/
// GenerateFunctionID pair: a readable path-based id for files, a hashed id
// for everything else so names don't collide across overloads or
// identically-named nested scopes.
func NodeID(path string) string {
	normalized := normalizePath(path)
	if len(normalized) <= 256 {
		return "file:" + normalized
	}
	hash := sha256.Sum256([]byte(normalized))
	return "file:" + hex.EncodeToString(hash[:16])
}

// EntityID generates a deterministic id for a class/function/method
// entity: hash(path + qualifiedName + start/end line + start/end col).
// Columns are included to avoid collisions between two entities sharing a
// line range (e.g. nested or nearly-identical generated code).
func EntityID(path, qualifiedName string, startLine, endLine, startCol, endCol int) string {
	normalized := normalizePath(path)
	idStr := fmt.Sprintf("%s|%s|%d|%d|%d|%d", normalized, qualifiedName, startLine, endLine, startCol, endCol)
	hash := sha256.Sum256([]byte(idStr))
	return "entity:" + hex.EncodeToString(hash[:])
}

// DomainID generates a deterministic id for a HighLevelNode keyed by its
// hierarchy path (e.g. "Auth/Handlers/Login"), so the same area name
// always maps to the same node id across repeated encodes.
func DomainID(hierarchyPath string) string {
	hash := sha256.Sum256([]byte(hierarchyPath))
	return "domain:" + hex.EncodeToString(hash[:16])
}

// normalizePath normalizes a file path for consistent id generation:
// forward slashes, no leading "./" or "/", cleaned of redundant separators.
func normalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
