// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/allium-project/allium/internal/obslog"
)

// wireRelay mirrors the onionoo details wire shape (spec §6.3).
type wireRelay struct {
	Fingerprint       string   `json:"fingerprint"`
	Nickname          string   `json:"nickname"`
	Running           bool     `json:"running"`
	Flags             []string `json:"flags"`
	ORAddresses       []string `json:"or_addresses"`
	ObservedBandwidth int64    `json:"observed_bandwidth"`
	Measured          *bool    `json:"measured"`
	ConsensusWeight   int64    `json:"consensus_weight"`
	AS                string   `json:"as"`
	ASName            string   `json:"as_name"`
	Country           string   `json:"country"`
	CountryName       string   `json:"country_name"`
	Platform          string   `json:"platform"`
	Version           string   `json:"version"`
	Contact           string   `json:"contact"`
	EffectiveFamily   []string `json:"effective_family"`
	FirstSeen         string   `json:"first_seen"`
	LastSeen          string   `json:"last_seen"`
	LastRestarted     string   `json:"last_restarted"`
}

type wireDetailsBody struct {
	Version string      `json:"version"`
	Relays  []wireRelay `json:"relays"`
}

const onionooTimeLayout = "2006-01-02 15:04:05"

// BuildStore implements component E (spec §4.E): parses the required
// details body, computes derived per-relay fields, builds category
// buckets, and computes network totals. detailsBody == nil yields the
// "abort the run with exit code 0" case upstream (this function reports
// that via the bool return, caller decides the exit).
func BuildStore(detailsBody []byte, unit BandwidthUnit, logger obslog.Logger) (*Store, bool) {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}
	if len(detailsBody) == 0 {
		logger.Warn("no details data available, aborting run")
		return nil, false
	}

	var doc wireDetailsBody
	if err := json.Unmarshal(detailsBody, &doc); err != nil {
		logger.Warn("details body failed to parse, aborting run", "error", err.Error())
		return nil, false
	}

	store := &Store{
		ByFingerprint: make(map[string]int),
		Categories:    newCategoryBuckets(),
		Operators:     make(map[string]*Operator),
		BandwidthUnit: unit,
	}

	for _, wr := range doc.Relays {
		r, err := buildRelay(wr, unit)
		if err != nil {
			logger.Warn("skipping relay with parse error", "fingerprint", wr.Fingerprint, "error", err.Error())
			continue
		}
		store.Relays = append(store.Relays, r)
	}

	// Sort by fingerprint for deterministic output before any indexing
	// (spec §5 "output must be deterministic (sorted by fingerprint)").
	sortRelaysByFingerprint(store.Relays)

	for i := range store.Relays {
		store.ByFingerprint[store.Relays[i].Fingerprint] = i
	}

	computeConsensusWeightFractions(store)
	buildCategoryBuckets(store)
	closeEffectiveFamilies(store)
	buildOperators(store)
	computeNetworkTotals(store)

	return store, true
}

func buildRelay(wr wireRelay, unit BandwidthUnit) (Relay, error) {
	r := Relay{
		Fingerprint:       strings.ToUpper(wr.Fingerprint),
		Nickname:          wr.Nickname,
		NicknameTruncated: truncate(wr.Nickname, 20),
		Running:           wr.Running,
		Flags:             wr.Flags,
		ORAddresses:       wr.ORAddresses,
		ObservedBandwidth: wr.ObservedBandwidth,
		ConsensusWeight:   wr.ConsensusWeight,
		AS:                wr.AS,
		ASName:            wr.ASName,
		Country:           wr.Country,
		CountryName:       wr.CountryName,
		Platform:          wr.Platform,
		Version:           wr.Version,
		Contact:           wr.Contact,
		ContactMD5:        contactMD5(wr.Contact),
		AROIDomain:        ParseAROI(wr.Contact),
		EffectiveFamily:   make(map[string]struct{}),
		UptimePeriods:     make(map[string]*float64),
		FlagUptime:        make(map[string]map[string]*float64),
		UptimeOutlierHigh: make(map[string]bool),
		UptimeOutlierLow:  make(map[string]bool),
	}

	r.FlagsLower = make([]string, len(wr.Flags))
	for i, f := range wr.Flags {
		r.FlagsLower[i] = strings.ToLower(f)
	}

	r.Measured = TernaryUnknown
	if wr.Measured != nil {
		if *wr.Measured {
			r.Measured = TernaryTrue
		} else {
			r.Measured = TernaryFalse
		}
	}

	if len(wr.ORAddresses) > 0 {
		r.IPAddress = hostPart(wr.ORAddresses[0])
	}

	r.ObsBandwidthDisplay = FormatBytesPerSecond(wr.ObservedBandwidth, unit)

	for _, fp := range wr.EffectiveFamily {
		r.EffectiveFamily[strings.ToUpper(fp)] = struct{}{}
	}

	r.FirstSeen = parseOnionooTime(wr.FirstSeen)
	r.LastSeen = parseOnionooTime(wr.LastSeen)
	r.LastRestarted = parseOnionooTime(wr.LastRestarted)

	return r, nil
}

func parseOnionooTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(onionooTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func hostPart(orAddress string) string {
	idx := strings.LastIndex(orAddress, ":")
	if idx < 0 {
		return orAddress
	}
	return strings.Trim(orAddress[:idx], "[]")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func computeConsensusWeightFractions(store *Store) {
	var total int64
	for _, r := range store.Relays {
		total += r.ConsensusWeight
	}
	if total == 0 {
		return
	}
	for i := range store.Relays {
		store.Relays[i].ConsensusWeightFrac = float64(store.Relays[i].ConsensusWeight) / float64(total)
	}
}

func buildCategoryBuckets(store *Store) {
	for i, r := range store.Relays {
		if r.AS != "" {
			store.Categories.AS[r.AS] = append(store.Categories.AS[r.AS], i)
		}
		if r.Contact != "" {
			store.Categories.Contact[r.ContactMD5] = append(store.Categories.Contact[r.ContactMD5], i)
		}
		if r.Country != "" {
			store.Categories.Country[r.Country] = append(store.Categories.Country[r.Country], i)
		}
		if r.Platform != "" {
			store.Categories.Platform[r.Platform] = append(store.Categories.Platform[r.Platform], i)
		}
		for _, f := range r.FlagsLower {
			store.Categories.Flag[f] = append(store.Categories.Flag[f], i)
		}
		if !r.FirstSeen.IsZero() {
			key := r.FirstSeen.Format("2006-01-02")
			store.Categories.FirstSeen[key] = append(store.Categories.FirstSeen[key], i)
		}
	}

	// Family buckets keyed by every fingerprint a relay's family touches.
	for i, r := range store.Relays {
		if len(r.EffectiveFamily) <= 1 {
			continue
		}
		for fp := range r.EffectiveFamily {
			store.Categories.Family[fp] = append(store.Categories.Family[fp], i)
		}
	}
}

// buildOperators groups relays into the AROI-operator aggregation keyed by
// contact hash (spec §3.1 "Operator (AROI group)"). Relays with an empty
// contact string are anonymous and excluded, matching the leaderboard's
// eligibility rule (spec §4.G). Reliability and bandwidth-history fields
// are left nil here; the joiner fills them in once uptime/bandwidth data
// is available.
func buildOperators(store *Store) {
	for i := range store.Relays {
		r := &store.Relays[i]
		if r.Contact == "" {
			continue
		}

		op, ok := store.Operators[r.ContactMD5]
		if !ok {
			op = &Operator{
				ContactHash: r.ContactMD5,
				Contact:     r.Contact,
				AROIDomain:  r.AROIDomain,
				Countries:   make(map[string]struct{}),
				ASNs:        make(map[string]struct{}),
				Platforms:   make(map[string]struct{}),
				Families:    make(map[string]struct{}),
			}
			store.Operators[r.ContactMD5] = op
		}

		op.Fingerprints = append(op.Fingerprints, r.Fingerprint)
		op.TotalBandwidth += r.ObservedBandwidth
		op.TotalWeight += r.ConsensusWeight

		switch {
		case r.HasFlag("Exit"):
			op.ExitCount++
			op.ExitWeight += r.ConsensusWeight
		case r.HasFlag("Guard"):
			op.GuardCount++
			op.GuardWeight += r.ConsensusWeight
		default:
			op.MiddleCount++
		}

		if r.Country != "" {
			op.Countries[r.Country] = struct{}{}
		}
		if r.AS != "" {
			op.ASNs[r.AS] = struct{}{}
		}
		if r.Platform != "" {
			op.Platforms[r.Platform] = struct{}{}
		}
		for fp := range r.EffectiveFamily {
			op.Families[fp] = struct{}{}
		}

		if !r.FirstSeen.IsZero() && (op.FirstSeenOldest.IsZero() || r.FirstSeen.Before(op.FirstSeenOldest)) {
			op.FirstSeenOldest = r.FirstSeen
		}
	}

	for _, op := range store.Operators {
		op.UniqueCountries = len(op.Countries)
		op.UniqueAS = len(op.ASNs)
		op.UniquePlatforms = len(op.Platforms)
		op.UniqueFamilies = len(op.Families)
	}
}

// closeEffectiveFamilies ensures self-inclusion for any relay whose family
// is non-trivial (spec §4.E step 5, §3.3 invariant).
func closeEffectiveFamilies(store *Store) {
	for i := range store.Relays {
		r := &store.Relays[i]
		if len(r.EffectiveFamily) > 1 {
			r.EffectiveFamily[r.Fingerprint] = struct{}{}
		}
	}
}

func computeNetworkTotals(store *Store) {
	totals := NetworkTotals{TotalRelays: len(store.Relays)}
	for _, r := range store.Relays {
		totals.TotalBandwidth += r.ObservedBandwidth
		switch {
		case r.HasFlag("Guard") && !r.HasFlag("Exit"):
			totals.GuardConsensusWeight += r.ConsensusWeight
		case r.HasFlag("Exit"):
			totals.ExitConsensusWeight += r.ConsensusWeight
		default:
			totals.MiddleConsensusWeight += r.ConsensusWeight
		}
	}
	store.Totals = totals
}

func sortRelaysByFingerprint(relays []Relay) {
	sort.Slice(relays, func(i, j int) bool {
		return relays[i].Fingerprint < relays[j].Fingerprint
	})
}
