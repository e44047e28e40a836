// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package relay

import "github.com/allium-project/allium/internal/statx"

// FlagReliability is the per-flag, per-period uptime figure for one
// relay or operator, with the network-wide outlier classification reused
// from statx.NetworkStats (SPEC_FULL §5.1, grounded on
// flag_reliability_utils.py's FlagReliabilityAnalyzer).
type FlagReliability struct {
	Flag        string
	Period      string
	Uptime      float64
	OutlierHigh bool
	OutlierLow  bool
}

// FlagReliabilityAnalyzer computes per-flag uptime series for a set of
// relays (an operator's fingerprints), comparing each against network-wide
// statistics computed once per (flag, period) pair.
type FlagReliabilityAnalyzer struct {
	store        *Store
	networkStats map[string]map[string]statx.NetworkStats // flag -> period -> stats
}

// NewFlagReliabilityAnalyzer precomputes network_stats once per run, mirroring
// the original's "calculate once, reuse per relay" discipline so the network
// statistics are not recomputed per operator lookup (SPEC_FULL §5.1). Each
// OperatorFlagReliability call still scans the store's relays once.
func NewFlagReliabilityAnalyzer(store *Store) *FlagReliabilityAnalyzer {
	a := &FlagReliabilityAnalyzer{store: store, networkStats: make(map[string]map[string]statx.NetworkStats)}
	a.computeNetworkStats()
	return a
}

func (a *FlagReliabilityAnalyzer) computeNetworkStats() {
	samples := make(map[string]map[string][]float64) // flag -> period -> samples

	for _, r := range a.store.Relays {
		for flag, periods := range r.FlagUptime {
			if samples[flag] == nil {
				samples[flag] = make(map[string][]float64)
			}
			for period, v := range periods {
				if v == nil {
					continue
				}
				samples[flag][period] = append(samples[flag][period], *v)
			}
		}
	}

	for flag, periods := range samples {
		a.networkStats[flag] = make(map[string]statx.NetworkStats, len(periods))
		for period, vals := range periods {
			a.networkStats[flag][period] = statx.ComputeNetworkStats(vals)
		}
	}
}

// OperatorFlagReliability computes the flag-reliability breakdown for the
// relays belonging to one operator (by fingerprint). Returns false in the
// second value if no flag-uptime data exists for any of the relays,
// mirroring has_flag_data=False in the original.
func (a *FlagReliabilityAnalyzer) OperatorFlagReliability(fingerprints []string) ([]FlagReliability, bool) {
	members := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		members[fp] = struct{}{}
	}

	type accum struct {
		sum   float64
		count int
	}
	perFlagPeriod := make(map[string]map[string]*accum)

	for _, r := range a.store.Relays {
		if _, ok := members[r.Fingerprint]; !ok {
			continue
		}
		for flag, periods := range r.FlagUptime {
			if perFlagPeriod[flag] == nil {
				perFlagPeriod[flag] = make(map[string]*accum)
			}
			for period, v := range periods {
				if v == nil {
					continue
				}
				if perFlagPeriod[flag][period] == nil {
					perFlagPeriod[flag][period] = &accum{}
				}
				perFlagPeriod[flag][period].sum += *v
				perFlagPeriod[flag][period].count++
			}
		}
	}

	if len(perFlagPeriod) == 0 {
		return nil, false
	}

	var out []FlagReliability
	for flag, periods := range perFlagPeriod {
		for period, acc := range periods {
			if acc.count == 0 {
				continue
			}
			uptime := acc.sum / float64(acc.count)
			stats := a.networkStats[flag][period]
			out = append(out, FlagReliability{
				Flag:        flag,
				Period:      period,
				Uptime:      uptime,
				OutlierHigh: stats.OutlierHigh(uptime),
				OutlierLow:  stats.OutlierLow(uptime),
			})
		}
	}
	return out, true
}
