// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateGuardEligibleOnGuaranteeBandwidth(t *testing.T) {
	th := NewDefaultThresholds()
	m := RelayMetrics{WFU: 0.99, TK: 9 * 86400, Bandwidth: 3_000_000}
	r := EvaluateGuard(th, m)
	assert.True(t, r.WFUMet)
	assert.True(t, r.TKMet)
	assert.True(t, r.BWMeetsGuarantee)
	assert.True(t, r.BWEligible)
	assert.True(t, r.Eligible)
}

func TestEvaluateGuardNotEligibleOnLowWFU(t *testing.T) {
	th := NewDefaultThresholds()
	m := RelayMetrics{WFU: 0.5, TK: 9 * 86400, Bandwidth: 3_000_000}
	r := EvaluateGuard(th, m)
	assert.False(t, r.WFUMet)
	assert.False(t, r.Eligible)
}

func TestEvaluateGuardEligibleViaTop25Threshold(t *testing.T) {
	th := NewDefaultThresholds()
	top25 := 500_000.0
	m := RelayMetrics{WFU: 0.99, TK: 9 * 86400, Bandwidth: 600_000, Top25BW: &top25}
	r := EvaluateGuard(th, m)
	assert.False(t, r.BWMeetsGuarantee)
	assert.True(t, r.BWInTop25)
	assert.True(t, r.Eligible)
}

func TestEvaluateFastGuaranteeOrThreshold(t *testing.T) {
	th := NewDefaultThresholds()
	speed := 50_000.0
	th.FastSpeed = &speed

	fast := EvaluateFast(th, RelayMetrics{Bandwidth: 60_000})
	assert.True(t, fast.BWInTop25)
	assert.True(t, fast.Eligible)

	slow := EvaluateFast(th, RelayMetrics{Bandwidth: 10_000})
	assert.False(t, slow.Eligible)
}

func TestEvaluateStableUptimeOrMTBF(t *testing.T) {
	th := NewDefaultThresholds()
	uptime := 100_000.0
	mtbf := 200_000.0
	th.StableUptime = &uptime
	th.StableMTBF = &mtbf

	byMTBF := EvaluateStable(th, RelayMetrics{Uptime: 0, MTBF: 250_000})
	assert.True(t, byMTBF.MTBFMet)
	assert.True(t, byMTBF.Eligible)

	neither := EvaluateStable(th, RelayMetrics{Uptime: 1, MTBF: 1})
	assert.False(t, neither.Eligible)
}

func TestEvaluateHSDirRequiresBothWFUAndTK(t *testing.T) {
	th := NewDefaultThresholds()
	eligible := EvaluateHSDir(th, RelayMetrics{WFU: 0.99, TK: 30 * 3600})
	assert.True(t, eligible.Eligible)

	ineligible := EvaluateHSDir(th, RelayMetrics{WFU: 0.99, TK: 3600})
	assert.False(t, ineligible.Eligible)
}
