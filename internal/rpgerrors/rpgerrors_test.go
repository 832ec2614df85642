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

package rpgerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsExitCodeFromKind(t *testing.T) {
	cases := []struct {
		kind     Kind
		wantExit int
	}{
		{KindValidation, ExitValidation},
		{KindStorage, ExitStorage},
		{KindSemanticExtraction, ExitNetwork},
		{KindGit, ExitInput},
		{KindInternal, ExitInternal},
	}
	for _, c := range cases {
		t.Run(string(c.kind), func(t *testing.T) {
			err := New(c.kind, "boom", "", "", nil)
			assert.Equal(t, c.wantExit, err.ExitCode)
		})
	}
}

func TestRPGErrorErrorIncludesWrappedCause(t *testing.T) {
	wrapped := errors.New("disk full")
	err := NewStorageError("write graph", wrapped)
	assert.Contains(t, err.Error(), "store operation \"write graph\" failed")
	assert.Contains(t, err.Error(), "disk full")
}

func TestRPGErrorUnwrapReturnsWrappedError(t *testing.T) {
	wrapped := errors.New("disk full")
	err := NewStorageError("write graph", wrapped)
	require.ErrorIs(t, err, wrapped)
}

func TestNewParseErrorFixMentionsExcludeFlag(t *testing.T) {
	err := NewParseError("pkg/broken.go", errors.New("unexpected token"))
	assert.Equal(t, KindParse, err.Kind)
	assert.Contains(t, err.Fix, "--exclude")
}

func TestFormatIncludesCauseAndFixWhenPresent(t *testing.T) {
	err := New(KindValidation, "bad input", "the field was empty", "set the field", nil)
	out := err.Format(true)
	assert.Contains(t, out, "bad input")
	assert.Contains(t, out, "the field was empty")
	assert.Contains(t, out, "set the field")
}

func TestFormatOmitsCauseAndFixWhenAbsent(t *testing.T) {
	err := New(KindValidation, "bad input", "", "", nil)
	out := err.Format(true)
	assert.Contains(t, out, "bad input")
	assert.NotContains(t, out, "Cause:")
	assert.NotContains(t, out, "Fix:")
}

func TestToJSONRoundTripsFields(t *testing.T) {
	err := New(KindGit, "cannot resolve HEAD", "not a git repo", "run inside a git repository", errors.New("exit status 128"))
	j := err.ToJSON()
	assert.Equal(t, KindGit, j.Kind)
	assert.Contains(t, j.Error, "cannot resolve HEAD")
	assert.Equal(t, "not a git repo", j.Cause)
	assert.Equal(t, "run inside a git repository", j.Fix)
	assert.Equal(t, ExitInput, j.ExitCode)
}
