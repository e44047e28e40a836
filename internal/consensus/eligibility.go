// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package consensus

// RelayMetrics is the subset of a relay's measured attributes needed to
// evaluate flag eligibility against one authority's thresholds.
type RelayMetrics struct {
	WFU       float64 // weighted fractional uptime, 0..1
	TK        float64 // time known, seconds
	Bandwidth float64 // observed bandwidth, bytes/s
	Uptime    float64 // seconds
	MTBF      float64 // mean time between failures, seconds
	Top25BW   *float64 // authority's dynamic top-25%-bandwidth threshold, if published
}

// EligibilityResult is the evaluated eligibility breakdown for one flag
// against one authority's thresholds (spec §4.H "Per-flag eligibility").
type EligibilityResult struct {
	Flag              string
	WFUMet            bool
	TKMet             bool
	BWMeetsGuarantee  bool
	BWInTop25         bool
	BWEligible        bool
	UptimeMet         bool
	MTBFMet           bool
	Eligible          bool
}

// EvaluateGuard applies the Guard eligibility rule (spec §4.H).
func EvaluateGuard(t Thresholds, m RelayMetrics) EligibilityResult {
	r := EligibilityResult{Flag: "Guard"}
	r.WFUMet = m.WFU >= t.GuardWFU
	r.TKMet = m.TK >= t.GuardTK
	r.BWMeetsGuarantee = m.Bandwidth >= t.GuardBWIncExits
	if m.Top25BW != nil {
		r.BWInTop25 = m.Bandwidth >= *m.Top25BW
	}
	r.BWEligible = r.BWMeetsGuarantee || r.BWInTop25
	r.Eligible = r.WFUMet && r.TKMet && r.BWEligible
	return r
}

// EvaluateFast applies the Fast eligibility rule: guaranteed 100 KB/s OR at
// or above the authority's published fast-speed threshold.
func EvaluateFast(t Thresholds, m RelayMetrics) EligibilityResult {
	r := EligibilityResult{Flag: "Fast"}
	r.BWMeetsGuarantee = m.Bandwidth >= DefaultFastGuaranteedSpeed
	if t.FastSpeed != nil {
		r.BWInTop25 = m.Bandwidth >= *t.FastSpeed
	}
	r.BWEligible = r.BWMeetsGuarantee || r.BWInTop25
	r.Eligible = r.BWEligible
	return r
}

// EvaluateStable applies the Stable eligibility rule: meets the authority's
// stable-uptime OR stable-mtbf threshold.
func EvaluateStable(t Thresholds, m RelayMetrics) EligibilityResult {
	r := EligibilityResult{Flag: "Stable"}
	if t.StableUptime != nil {
		r.UptimeMet = m.Uptime >= *t.StableUptime
	}
	if t.StableMTBF != nil {
		r.MTBFMet = m.MTBF >= *t.StableMTBF
	}
	r.Eligible = r.UptimeMet || r.MTBFMet
	return r
}

// EvaluateHSDir applies the HSDir eligibility rule: meets both the
// authority's hsdir-wfu and hsdir-tk thresholds.
func EvaluateHSDir(t Thresholds, m RelayMetrics) EligibilityResult {
	r := EligibilityResult{Flag: "HSDir"}
	r.WFUMet = m.WFU >= t.HSDirWFU
	r.TKMet = m.TK >= t.HSDirTK
	r.Eligible = r.WFUMet && r.TKMet
	return r
}
