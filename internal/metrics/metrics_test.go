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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestRecordHelpersNoOpBeforeInit exercises the package before Init has run
// (as happens under go test, which never sets --metrics-addr): every helper
// must be callable without panicking and without registering anything.
func TestRecordHelpersNoOpBeforeInit(t *testing.T) {
	assert.False(t, ready())
	assert.NotPanics(t, func() {
		EncodeRunStarted()
		ObserveEncodeDiscover(1)
		ObserveEncodeParse(1)
		ObserveEncodeLift(1)
		ObserveEncodeGround(1)
		EncodeRunFinished(1, 1, 0, 1)
		EvolveRunStarted()
		EvolveRunFinished(1, 1, 1, 1, 1, 0, 1)
	})
}

func TestInitRegistersCollectorsAndRecordsObservations(t *testing.T) {
	Init()
	assert.True(t, ready())

	before := testutil.ToFloat64(m.encodeRuns)
	EncodeRunStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(m.encodeRuns))

	EncodeRunFinished(3, 7, 1, 0.5)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.encodeFiles), float64(3))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.encodeEntities), float64(7))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.encodeErrors), float64(1))

	EvolveRunStarted()
	EvolveRunFinished(1, 2, 3, 4, 5, 0, 0.1)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.evolveInserted), float64(1))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.evolveDeleted), float64(2))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.evolveModified), float64(3))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.evolveRerouted), float64(4))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.evolvePruned), float64(5))

	// Init is idempotent: calling it again must not re-register (which
	// would panic on duplicate collector registration) or reset counters.
	assert.NotPanics(t, Init)
}

func TestInitIsSafeToCallConcurrently(t *testing.T) {
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			Init()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.True(t, ready())
}
