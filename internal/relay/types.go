// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package relay implements the in-memory relay store (component E), the
// uptime/bandwidth joiner (component F), and the AROI/flag-reliability
// supplements grounded on original_source/allium/lib.
package relay

import "time"

// Ternary represents a true/false/unknown tri-state value (spec §3.1 "measured").
type Ternary string

const (
	TernaryTrue    Ternary = "true"
	TernaryFalse   Ternary = "false"
	TernaryUnknown Ternary = "unknown"
)

// TimeSeries is the normalized shape of one upstream period->values mapping
// (spec §3.2): Values[i] is nil for a missing sample, else a percentage (for
// uptime) or bytes/second (for bandwidth) already multiplied by Factor*100
// or Factor respectively.
type TimeSeries struct {
	Periods map[string][]*float64
}

// Relay is the canonical per-relay record (spec §3.1).
type Relay struct {
	Fingerprint         string
	Nickname            string
	NicknameTruncated   string
	Running             bool
	Flags               []string
	FlagsLower          []string
	ORAddresses         []string
	IPAddress           string
	ObservedBandwidth   int64
	ObsBandwidthDisplay string
	Measured            Ternary
	ConsensusWeight     int64
	ConsensusWeightFrac float64
	AS                  string
	ASName              string
	Country             string
	CountryName         string
	Platform            string
	Version             string
	Contact             string
	ContactMD5          string
	AROIDomain          string
	EffectiveFamily     map[string]struct{}
	FirstSeen           time.Time
	LastSeen            time.Time
	LastRestarted       time.Time

	// Joined series (component F).
	UptimePeriods    map[string]*float64 // period -> average percent, nil if unavailable
	FlagUptime       map[string]map[string]*float64 // flag -> period -> average percent
	BandwidthHistory TimeSeries

	// Outlier classification attached by the joiner (spec §4.F).
	UptimeOutlierHigh map[string]bool // period -> is high outlier
	UptimeOutlierLow  map[string]bool // period -> is low outlier
}

// HasFlag reports whether the relay carries the given flag (case-sensitive,
// canonical casing as published by onionoo).
func (r *Relay) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Operator is the AROI-group aggregation keyed by contact hash (spec §3.1),
// built once by BuildStore (component E) and enriched with reliability and
// bandwidth-history figures once the joiner (component F) runs.
type Operator struct {
	ContactHash     string
	Contact         string
	AROIDomain      string
	Fingerprints    []string
	TotalBandwidth  int64
	TotalWeight     int64
	ExitWeight      int64
	GuardWeight     int64
	GuardCount      int
	MiddleCount     int
	ExitCount       int
	Countries       map[string]struct{}
	ASNs            map[string]struct{}
	Platforms       map[string]struct{}
	Families        map[string]struct{}
	UniqueCountries int
	UniqueAS        int
	UniquePlatforms int
	UniqueFamilies  int
	FirstSeenOldest time.Time
	Reliability6Mo  *float64
	Reliability5Yr  *float64

	// BandwidthHistory is the per-day operator aggregate: mean across member
	// relays of values*factor aligned day-by-day, missing days skipped
	// (spec §4.F "Bandwidth per-day total for operator aggregates").
	BandwidthHistory map[string][]*float64
}

// Authority is a relay with the Authority flag, enriched with diagnostics
// attributes (spec §3.1, populated further by internal/consensus).
type Authority struct {
	Relay               *Relay
	Online              bool
	LatencyMS           *int64
	BandwidthAuthority  bool
	IPv6TestingAuthority bool
}

// CategoryBuckets maps category-key -> value -> relay-index list (spec §3.1).
type CategoryBuckets struct {
	AS        map[string][]int
	Contact   map[string][]int
	Country   map[string][]int
	Family    map[string][]int
	Flag      map[string][]int
	Platform  map[string][]int
	FirstSeen map[string][]int // truncated to YYYY-MM-DD
}

func newCategoryBuckets() CategoryBuckets {
	return CategoryBuckets{
		AS:        make(map[string][]int),
		Contact:   make(map[string][]int),
		Country:   make(map[string][]int),
		Family:    make(map[string][]int),
		Flag:      make(map[string][]int),
		Platform:  make(map[string][]int),
		FirstSeen: make(map[string][]int),
	}
}

// NetworkTotals is the scalar aggregates over all relays (spec §3.1).
type NetworkTotals struct {
	TotalRelays            int
	TotalBandwidth         int64
	GuardConsensusWeight   int64
	MiddleConsensusWeight  int64
	ExitConsensusWeight    int64
	FamilyCentralization   float64
}

// BandwidthUnit selects bits or bytes display (mirrors internal/config.BandwidthUnit).
type BandwidthUnit string

const (
	BandwidthUnitBits  BandwidthUnit = "bits"
	BandwidthUnitBytes BandwidthUnit = "bytes"
)

// Store is the fully built in-memory relay index for one run (spec §4.E).
type Store struct {
	Relays        []Relay
	ByFingerprint map[string]int
	Categories    CategoryBuckets
	Totals        NetworkTotals
	Operators     map[string]*Operator // keyed by contact hash
	BandwidthUnit BandwidthUnit
}
