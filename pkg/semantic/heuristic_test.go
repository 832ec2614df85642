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
	"strings"
	"testing"

	"github.com/kraklabs/rpg/pkg/rpgmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicDescribeKeywordsIncludeEntityType(t *testing.T) {
	f := HeuristicDescribe(EntityInput{Type: rpgmodel.EntityFunction, Name: "validateUserInput", FilePath: "src/validation.ts"})
	assert.Contains(t, f.Description, "validate")
	assert.Contains(t, f.Keywords, "function")
	assert.Contains(t, f.Keywords, "user")
	assert.Contains(t, f.Keywords, "input")
}

func TestHeuristicDescribeVerbSelection(t *testing.T) {
	cases := []struct {
		name     string
		typ      rpgmodel.EntityType
		wantVerb string
	}{
		{"getUserByID", rpgmodel.EntityMethod, "retrieve"},
		{"setTimeout", rpgmodel.EntityMethod, "set"},
		{"isValid", rpgmodel.EntityMethod, "check"},
		{"hasChildren", rpgmodel.EntityMethod, "check"},
		{"createSession", rpgmodel.EntityMethod, "create"},
		{"handleRequest", rpgmodel.EntityMethod, "dispatch"},
		{"processPayload", rpgmodel.EntityMethod, "transform"},
		{"parseConfig", rpgmodel.EntityMethod, "parse"},
		{"formatOutput", rpgmodel.EntityMethod, "format"},
		{"doSomething", rpgmodel.EntityMethod, "call"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := HeuristicDescribe(EntityInput{Type: c.typ, Name: c.name, FilePath: "pkg/foo.go"})
			require.NotEmpty(t, f.Description)
			assert.Equal(t, c.wantVerb, f.Description[:len(c.wantVerb)])
		})
	}
}

func TestHeuristicDescribeClassUsesDefine(t *testing.T) {
	f := HeuristicDescribe(EntityInput{Type: rpgmodel.EntityClass, Name: "UserRepository", FilePath: "pkg/user.go"})
	assert.Equal(t, "define user repository", f.Description)
}

func TestHeuristicDescribeMethodInheritsParentKeyword(t *testing.T) {
	f := HeuristicDescribe(EntityInput{
		Type: rpgmodel.EntityMethod, Name: "fetch", Parent: "Dog", FilePath: "pkg/animal.go",
	})
	assert.Contains(t, f.Keywords, "dog")
}

func TestValidateFeatureTruncatesToEightWords(t *testing.T) {
	f := validateFeature(rpgmodel.Feature{Description: "one two three four five six seven eight nine ten"})
	assert.LessOrEqual(t, len(strings.Fields(f.Description)), 8)
}

func TestValidateFeatureStripsTrailingPunctuation(t *testing.T) {
	f := validateFeature(rpgmodel.Feature{Description: "retrieve user profile."})
	assert.Equal(t, "retrieve user profile", f.Description)
}

func TestValidateFeatureReplacesVagueVerb(t *testing.T) {
	f := validateFeature(rpgmodel.Feature{Description: "handle incoming request"})
	assert.Equal(t, "dispatch incoming request", f.Description)
}

func TestValidateFeatureStripsImplementationDetailTokens(t *testing.T) {
	f := validateFeature(rpgmodel.Feature{Description: "iterate array of users"})
	assert.NotContains(t, strings.Fields(f.Description), "iterate")
	assert.NotContains(t, strings.Fields(f.Description), "array")
}

func TestValidateFeatureSplitsOnAndForVerbPhrase(t *testing.T) {
	f := validateFeature(rpgmodel.Feature{Description: "validate input and transform payload"})
	assert.Equal(t, "validate input", f.Description)
	require.Len(t, f.SubFeatures, 1)
	assert.Equal(t, "transform payload", f.SubFeatures[0])
}

func TestValidateFeatureDoesNotSplitWhenRightSideNotVerbPhrase(t *testing.T) {
	f := validateFeature(rpgmodel.Feature{Description: "create session and token"})
	assert.Equal(t, "create session and token", f.Description)
	assert.Empty(t, f.SubFeatures)
}

func TestAggregateFileFeatureZeroChildren(t *testing.T) {
	f := AggregateFileFeature("pkg/user_repo.go", nil)
	assert.Equal(t, "define user repo", f.Description)
}

func TestAggregateFileFeatureMajorityVerb(t *testing.T) {
	children := []rpgmodel.Feature{
		{Description: "retrieve user", Keywords: []string{"user"}},
		{Description: "retrieve session", Keywords: []string{"session"}},
		{Description: "create token", Keywords: []string{"token"}},
	}
	f := AggregateFileFeature("pkg/user_repo.go", children)
	assert.Equal(t, "retrieve user repo", f.Description)
	assert.ElementsMatch(t, []string{"user", "session", "token"}, f.Keywords)
	assert.Len(t, f.SubFeatures, 3)
}

