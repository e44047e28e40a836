// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package leaderboard implements the AROI operator ranking engine
// (component G, spec §4.G): twelve categories (plus the legacy-titans
// variant kept per the Open Question resolution), tie-break rules,
// Top-N pagination, and the rare-country/eligibility rules.
package leaderboard

import (
	"sort"
	"time"

	"github.com/allium-project/allium/internal/relay"
)

// Category is one of the ranked leaderboard categories, in the exact order
// spec §4.G names them.
type Category string

const (
	CategoryBandwidth          Category = "bandwidth"
	CategoryConsensusWeight    Category = "consensus_weight"
	CategoryExitAuthority      Category = "exit_authority"
	CategoryGuardAuthority     Category = "guard_authority"
	CategoryExitOperators      Category = "exit_operators"
	CategoryGuardOperators     Category = "guard_operators"
	CategoryMostDiverse        Category = "most_diverse"
	CategoryPlatformDiversity  Category = "platform_diversity"
	CategoryNonEUNLeaders      Category = "non_eu_leaders"
	CategoryFrontierBuilders   Category = "frontier_builders"
	CategoryNetworkVeterans    Category = "network_veterans"
	CategoryReliabilityMasters Category = "reliability_masters"
	CategoryLegacyTitans       Category = "legacy_titans"
)

// Categories lists every category in canonical display order (spec §4.G
// 1-13; thirteen entries internally, matching the Open Question resolution
// recorded in DESIGN.md: both exit_authority and exit_operators, and both
// reliability_masters/legacy_titans, are kept as distinct categories).
var Categories = []Category{
	CategoryBandwidth,
	CategoryConsensusWeight,
	CategoryExitAuthority,
	CategoryGuardAuthority,
	CategoryExitOperators,
	CategoryGuardOperators,
	CategoryMostDiverse,
	CategoryPlatformDiversity,
	CategoryNonEUNLeaders,
	CategoryFrontierBuilders,
	CategoryNetworkVeterans,
	CategoryReliabilityMasters,
	CategoryLegacyTitans,
}

// reliabilityMinRelays is the strict cutoff (spec §4.G category 12, §3.3
// invariant "strict > 25"): an operator needs at least 26 relays to appear
// in uptime-ranked categories.
const reliabilityMinRelays = 25

// euCountries is the set of ISO-3166 alpha-2 codes treated as EU member
// states for the non_eu_leaders category. Kept as a flat constant list
// since EU membership changes rarely and the spec treats it as a fixed
// classification, not a fetched attribute.
var euCountries = map[string]struct{}{
	"at": {}, "be": {}, "bg": {}, "hr": {}, "cy": {}, "cz": {}, "dk": {}, "ee": {},
	"fi": {}, "fr": {}, "de": {}, "gr": {}, "hu": {}, "ie": {}, "it": {}, "lv": {},
	"lt": {}, "lu": {}, "mt": {}, "nl": {}, "pl": {}, "pt": {}, "ro": {}, "sk": {},
	"si": {}, "es": {}, "se": {},
}

// rareCountryThreshold is the network-wide relay count below which a
// country is considered "rare" for frontier_builders (spec §4.G "Rare-country rule").
const rareCountryThreshold = 10

// Entry is one ranked row within a category.
type Entry struct {
	ContactHash    string
	AROIDomain     string
	TotalRelays    int
	Score          float64
	DisplayScore   string
	GuardCount     int
	MiddleCount    int
	ExitCount      int
}

// PageSlice is one of the three pagination windows (spec §4.G "Top-N").
type PageSlice struct {
	Label   string // "1-10", "11-20", "21-25"
	Entries []Entry
}

// Result is the full ranking for one category.
type Result struct {
	Category Category
	Pages    []PageSlice
}

// Compute builds every category's ranking from the store (spec §4.G). The
// operator aggregates it ranks over are built once by relay.BuildStore
// (component E, spec §3.1's Operator entity) and enriched by the joiner
// (component F); this package only scores and ranks them. Compute calls
// RareCountries once at the start and reuses that set for every operator,
// so it is never recomputed per operator (spec "O(n) discipline").
func Compute(store *relay.Store) []Result {
	rare := RareCountries(store)

	results := make([]Result, 0, len(Categories))
	for _, cat := range Categories {
		results = append(results, computeCategory(cat, store.Operators, rare))
	}
	return results
}

// RareCountries computes the network-wide rare-country set once per run
// (spec §4.G "Compute the rare-country set once per run, not per operator").
func RareCountries(store *relay.Store) map[string]struct{} {
	counts := make(map[string]int)
	for _, r := range store.Relays {
		if r.Country != "" {
			counts[r.Country]++
		}
	}
	rare := make(map[string]struct{})
	for country, n := range counts {
		if n < rareCountryThreshold {
			rare[country] = struct{}{}
		}
	}
	return rare
}

func computeCategory(cat Category, operators map[string]*relay.Operator, rare map[string]struct{}) Result {
	var entries []Entry

	for _, op := range operators {
		entry, include := scoreOperator(cat, op, rare)
		if include {
			entries = append(entries, entry)
		}
	}

	sortEntries(entries)
	return Result{Category: cat, Pages: paginate(entries)}
}

func scoreOperator(cat Category, op *relay.Operator, rare map[string]struct{}) (Entry, bool) {
	base := Entry{
		ContactHash: op.ContactHash,
		AROIDomain:  op.AROIDomain,
		TotalRelays: len(op.Fingerprints),
		GuardCount:  op.GuardCount,
		MiddleCount: op.MiddleCount,
		ExitCount:   op.ExitCount,
	}

	switch cat {
	case CategoryBandwidth:
		base.Score = float64(op.TotalBandwidth)
	case CategoryConsensusWeight:
		base.Score = float64(op.TotalWeight)
	case CategoryExitAuthority:
		if op.ExitCount == 0 {
			return base, false
		}
		base.Score = float64(op.ExitWeight)
	case CategoryGuardAuthority:
		if op.GuardCount == 0 {
			return base, false
		}
		base.Score = float64(op.GuardWeight)
	case CategoryExitOperators:
		if op.ExitCount == 0 {
			return base, false
		}
		base.Score = float64(op.ExitCount)
	case CategoryGuardOperators:
		if op.GuardCount == 0 {
			return base, false
		}
		base.Score = float64(op.GuardCount)
	case CategoryMostDiverse:
		base.Score = diversityScore(op)
	case CategoryPlatformDiversity:
		base.Score = float64(op.UniquePlatforms)
	case CategoryNonEUNLeaders:
		bw := nonEUBandwidth(op)
		if bw == 0 {
			return base, false
		}
		base.Score = float64(bw)
	case CategoryFrontierBuilders:
		score := frontierScore(op, rare)
		if score == 0 {
			return base, false
		}
		base.Score = score
	case CategoryNetworkVeterans:
		if op.FirstSeenOldest.IsZero() {
			return base, false
		}
		ageSeconds := float64(time.Now().Unix() - op.FirstSeenOldest.Unix())
		base.Score = ageSeconds * float64(len(op.Fingerprints))
	case CategoryReliabilityMasters:
		if len(op.Fingerprints) <= reliabilityMinRelays {
			return base, false
		}
		if op.Reliability6Mo == nil {
			return base, false
		}
		base.Score = *op.Reliability6Mo
	case CategoryLegacyTitans:
		if len(op.Fingerprints) <= reliabilityMinRelays {
			return base, false
		}
		if op.Reliability5Yr == nil {
			return base, false
		}
		base.Score = *op.Reliability5Yr
	}

	return base, true
}

func diversityScore(op *relay.Operator) float64 {
	return float64(op.UniqueAS + op.UniqueCountries + op.UniquePlatforms + op.UniqueFamilies)
}

func nonEUBandwidth(op *relay.Operator) int64 {
	for country := range op.Countries {
		if _, isEU := euCountries[country]; isEU {
			return 0
		}
	}
	return op.TotalBandwidth
}

func frontierScore(op *relay.Operator, rare map[string]struct{}) float64 {
	var score float64
	for country := range op.Countries {
		if _, isRare := rare[country]; isRare {
			score++
		}
	}
	return score
}

// sortEntries applies the tie-break rule: primary metric desc, then
// total_relays desc, then contact-hash asc (spec §4.G "Tie-breaks").
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TotalRelays != entries[j].TotalRelays {
			return entries[i].TotalRelays > entries[j].TotalRelays
		}
		return entries[i].ContactHash < entries[j].ContactHash
	})
}

// paginate slices entries into the three pagination windows (spec §4.G
// "Top-N"): ranks 1-10, 11-20, 21-25. An empty slice is omitted.
func paginate(entries []Entry) []PageSlice {
	windows := []struct {
		label string
		start int
		end   int
	}{
		{"1-10", 0, 10},
		{"11-20", 10, 20},
		{"21-25", 20, 25},
	}

	var pages []PageSlice
	for _, w := range windows {
		if w.start >= len(entries) {
			continue
		}
		end := w.end
		if end > len(entries) {
			end = len(entries)
		}
		pages = append(pages, PageSlice{Label: w.label, Entries: entries[w.start:end]})
	}
	return pages
}
