// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/json"

	"github.com/allium-project/allium/internal/obslog"
	"github.com/allium-project/allium/internal/statx"
)

const (
	periodOneMonth  = "1_month"
	periodSixMonths = "6_months"
	periodOneYear   = "1_year"
	periodFiveYears = "5_years"
)

var knownPeriods = []string{periodOneMonth, periodSixMonths, periodOneYear, periodFiveYears}

type wireSeries struct {
	Factor float64    `json:"factor"`
	Values []*float64 `json:"values"`
}

type wireUptimeRelay struct {
	Fingerprint string                            `json:"fingerprint"`
	Uptime      map[string]wireSeries             `json:"uptime"`
	Flags       map[string]map[string]wireSeries  `json:"flags"`
}

type wireUptimeBody struct {
	Relays []wireUptimeRelay `json:"relays"`
}

type wireBandwidthRelay struct {
	Fingerprint    string                `json:"fingerprint"`
	WriteHistory   map[string]wireSeries `json:"write_history"`
	ReadHistory    map[string]wireSeries `json:"read_history"`
}

type wireBandwidthBody struct {
	Relays []wireBandwidthRelay `json:"relays"`
}

// JoinUptimeAndBandwidth implements component F (spec §4.F): merges
// per-relay time series from the uptime and bandwidth sources by
// fingerprint, normalizes each period to a single average, and flags
// network-wide 2-sigma outliers. Either body may be nil (both sources are
// optional); missing data for a relay leaves its fields nil.
func JoinUptimeAndBandwidth(store *Store, uptimeBody, bandwidthBody []byte, logger obslog.Logger) {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}

	var uptimeDoc wireUptimeBody
	haveUptime := false
	if len(uptimeBody) > 0 {
		if err := json.Unmarshal(uptimeBody, &uptimeDoc); err != nil {
			logger.Warn("uptime body failed to parse, skipping join", "error", err.Error())
		} else {
			haveUptime = true
		}
	}

	var bandwidthDoc wireBandwidthBody
	haveBandwidth := false
	if len(bandwidthBody) > 0 {
		if err := json.Unmarshal(bandwidthBody, &bandwidthDoc); err != nil {
			logger.Warn("bandwidth body failed to parse, skipping join", "error", err.Error())
		} else {
			haveBandwidth = true
		}
	}

	if haveUptime {
		joinUptime(store, uptimeDoc)
		recomputeOperatorReliability(store)
	}
	if haveBandwidth {
		joinBandwidth(store, bandwidthDoc)
		aggregateOperatorBandwidthHistory(store)
	}
}

func averagePeriod(s wireSeries) *float64 {
	var samples []float64
	for _, v := range s.Values {
		if v != nil {
			samples = append(samples, *v*s.Factor*100)
		}
	}
	if len(samples) == 0 {
		return nil
	}
	avg := statx.Mean(samples)
	return &avg
}

func joinUptime(store *Store, doc wireUptimeBody) {
	byFingerprint := make(map[string]wireUptimeRelay, len(doc.Relays))
	for _, ur := range doc.Relays {
		byFingerprint[ur.Fingerprint] = ur
	}

	for i := range store.Relays {
		ur, ok := byFingerprint[store.Relays[i].Fingerprint]
		if !ok {
			continue
		}
		for period, series := range ur.Uptime {
			store.Relays[i].UptimePeriods[period] = averagePeriod(series)
		}
		for flag, periods := range ur.Flags {
			out := make(map[string]*float64, len(periods))
			for period, series := range periods {
				out[period] = averagePeriod(series)
			}
			store.Relays[i].FlagUptime[flag] = out
		}
	}

	classifyOutliers(store)
}

func classifyOutliers(store *Store) {
	for _, period := range knownPeriods {
		var samples []float64
		for _, r := range store.Relays {
			if v := r.UptimePeriods[period]; v != nil {
				samples = append(samples, *v)
			}
		}
		if len(samples) == 0 {
			continue
		}
		stats := statx.ComputeNetworkStats(samples)

		for i := range store.Relays {
			v := store.Relays[i].UptimePeriods[period]
			if v == nil {
				continue
			}
			store.Relays[i].UptimeOutlierHigh[period] = stats.OutlierHigh(*v)
			store.Relays[i].UptimeOutlierLow[period] = stats.OutlierLow(*v)
		}
	}
}

// recomputeOperatorReliability fills in each operator's mean 6-month and
// 5-year uptime across member relays (spec §3.1 "reliability (mean 6-month
// and 5-year uptime across relays)"), run once after the uptime join.
func recomputeOperatorReliability(store *Store) {
	for _, op := range store.Operators {
		op.Reliability6Mo = meanUptimeAcrossRelays(store, op.Fingerprints, periodSixMonths)
		op.Reliability5Yr = meanUptimeAcrossRelays(store, op.Fingerprints, periodFiveYears)
	}
}

func meanUptimeAcrossRelays(store *Store, fingerprints []string, period string) *float64 {
	var samples []float64
	for _, fp := range fingerprints {
		idx, ok := store.ByFingerprint[fp]
		if !ok {
			continue
		}
		if v := store.Relays[idx].UptimePeriods[period]; v != nil {
			samples = append(samples, *v)
		}
	}
	if len(samples) == 0 {
		return nil
	}
	avg := statx.Mean(samples)
	return &avg
}

// aggregateOperatorBandwidthHistory computes each operator's per-day
// bandwidth aggregate (spec §4.F "mean across member relays of
// values*factor aligned day-by-day; missing days are skipped"), run once
// after the bandwidth join.
func aggregateOperatorBandwidthHistory(store *Store) {
	for _, op := range store.Operators {
		op.BandwidthHistory = aggregateBandwidthHistoryForRelays(store, op.Fingerprints)
	}
}

func aggregateBandwidthHistoryForRelays(store *Store, fingerprints []string) map[string][]*float64 {
	perPeriodSeries := make(map[string][][]*float64)
	for _, fp := range fingerprints {
		idx, ok := store.ByFingerprint[fp]
		if !ok {
			continue
		}
		for period, values := range store.Relays[idx].BandwidthHistory.Periods {
			perPeriodSeries[period] = append(perPeriodSeries[period], values)
		}
	}

	out := make(map[string][]*float64, len(perPeriodSeries))
	for period, seriesList := range perPeriodSeries {
		maxLen := 0
		for _, s := range seriesList {
			if len(s) > maxLen {
				maxLen = len(s)
			}
		}

		days := make([]*float64, maxLen)
		for day := 0; day < maxLen; day++ {
			var samples []float64
			for _, s := range seriesList {
				if day < len(s) && s[day] != nil {
					samples = append(samples, *s[day])
				}
			}
			if len(samples) == 0 {
				continue
			}
			avg := statx.Mean(samples)
			days[day] = &avg
		}
		out[period] = days
	}
	return out
}

func joinBandwidth(store *Store, doc wireBandwidthBody) {
	byFingerprint := make(map[string]wireBandwidthRelay, len(doc.Relays))
	for _, br := range doc.Relays {
		byFingerprint[br.Fingerprint] = br
	}

	for i := range store.Relays {
		br, ok := byFingerprint[store.Relays[i].Fingerprint]
		if !ok {
			continue
		}
		periods := make(map[string][]*float64, len(br.WriteHistory))
		for period, series := range br.WriteHistory {
			values := make([]*float64, len(series.Values))
			for j, v := range series.Values {
				if v == nil {
					continue
				}
				scaled := *v * series.Factor
				values[j] = &scaled
			}
			periods[period] = values
		}
		store.Relays[i].BandwidthHistory = TimeSeries{Periods: periods}
	}
}
