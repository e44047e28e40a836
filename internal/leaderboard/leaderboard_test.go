// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allium-project/allium/internal/relay"
)

const twoOperatorDetailsBody = `{
  "version": "9.0",
  "relays": [
    {
      "fingerprint": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
      "nickname": "RelayOne",
      "running": true,
      "flags": ["Exit", "Fast", "Running", "Valid"],
      "observed_bandwidth": 2000000,
      "consensus_weight": 200,
      "as": "AS1",
      "country": "us",
      "platform": "Tor 0.4.8 on Linux",
      "contact": "abuse@operator-one.example.net",
      "first_seen": "2015-01-01 00:00:00"
    },
    {
      "fingerprint": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
      "nickname": "RelayTwo",
      "running": true,
      "flags": ["Guard", "Running", "Valid"],
      "observed_bandwidth": 500000,
      "consensus_weight": 50,
      "as": "AS2",
      "country": "de",
      "platform": "Tor 0.4.8 on BSD",
      "contact": "abuse@operator-two.example.net",
      "first_seen": "2022-01-01 00:00:00"
    },
    {
      "fingerprint": "cccccccccccccccccccccccccccccccccccccccc",
      "nickname": "RelayThree",
      "running": true,
      "flags": ["Running", "Valid"],
      "observed_bandwidth": 100000,
      "consensus_weight": 10,
      "as": "AS3",
      "country": "fr",
      "contact": "",
      "first_seen": "2021-01-01 00:00:00"
    }
  ]
}`

func buildTestStore(t *testing.T) *relay.Store {
	t.Helper()
	store, ok := relay.BuildStore([]byte(twoOperatorDetailsBody), relay.BandwidthUnitBits, nil)
	require.True(t, ok)
	return store
}

func findResult(results []Result, cat Category) Result {
	for _, r := range results {
		if r.Category == cat {
			return r
		}
	}
	return Result{}
}

func firstPageEntries(result Result) []Entry {
	if len(result.Pages) == 0 {
		return nil
	}
	return result.Pages[0].Entries
}

func TestComputeReturnsAllCategories(t *testing.T) {
	store := buildTestStore(t)
	results := Compute(store)
	assert.Len(t, results, len(Categories))
}

func TestBandwidthCategoryRanksDescending(t *testing.T) {
	store := buildTestStore(t)
	results := Compute(store)
	entries := firstPageEntries(findResult(results, CategoryBandwidth))
	require.Len(t, entries, 2)
	assert.GreaterOrEqual(t, entries[0].Score, entries[1].Score)
}

func TestAnonymousRelayExcludedFromOperatorAggregates(t *testing.T) {
	store := buildTestStore(t)
	results := Compute(store)
	entries := firstPageEntries(findResult(results, CategoryBandwidth))
	for _, e := range entries {
		assert.NotEmpty(t, e.ContactHash)
	}
	assert.Len(t, entries, 2)
}

func TestExitAuthorityOnlyIncludesExitOperators(t *testing.T) {
	store := buildTestStore(t)
	results := Compute(store)
	entries := firstPageEntries(findResult(results, CategoryExitAuthority))
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].ExitCount)
}

func TestGuardOperatorsOnlyIncludesGuardOperators(t *testing.T) {
	store := buildTestStore(t)
	results := Compute(store)
	entries := firstPageEntries(findResult(results, CategoryGuardOperators))
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].GuardCount)
}

func TestNonEULeadersExcludesEUOperators(t *testing.T) {
	store := buildTestStore(t)
	results := Compute(store)
	entries := firstPageEntries(findResult(results, CategoryNonEUNLeaders))
	for _, e := range entries {
		assert.NotEqual(t, "operator-two.example.net", e.AROIDomain)
	}
}

func TestReliabilityMastersRequiresMoreThanThreshold(t *testing.T) {
	store := buildTestStore(t)
	results := Compute(store)
	entries := firstPageEntries(findResult(results, CategoryReliabilityMasters))
	assert.Empty(t, entries)
}

func TestPaginateSplitsIntoWindows(t *testing.T) {
	entries := make([]Entry, 23)
	for i := range entries {
		entries[i] = Entry{ContactHash: string(rune('a' + i)), Score: float64(100 - i)}
	}
	pages := paginate(entries)
	require.Len(t, pages, 3)
	assert.Equal(t, "1-10", pages[0].Label)
	assert.Len(t, pages[0].Entries, 10)
	assert.Equal(t, "11-20", pages[1].Label)
	assert.Len(t, pages[1].Entries, 10)
	assert.Equal(t, "21-25", pages[2].Label)
	assert.Len(t, pages[2].Entries, 3)
}

func TestPaginateOmitsEmptyWindows(t *testing.T) {
	entries := []Entry{{ContactHash: "a", Score: 1}}
	pages := paginate(entries)
	require.Len(t, pages, 1)
	assert.Equal(t, "1-10", pages[0].Label)
}

func TestSortEntriesTieBreaksByTotalRelaysThenContactHash(t *testing.T) {
	entries := []Entry{
		{ContactHash: "zzz", Score: 10, TotalRelays: 1},
		{ContactHash: "aaa", Score: 10, TotalRelays: 2},
		{ContactHash: "bbb", Score: 10, TotalRelays: 2},
	}
	sortEntries(entries)
	assert.Equal(t, "aaa", entries[0].ContactHash)
	assert.Equal(t, "bbb", entries[1].ContactHash)
	assert.Equal(t, "zzz", entries[2].ContactHash)
}

func TestRareCountriesIncludesLowCountCountries(t *testing.T) {
	store := buildTestStore(t)
	rare := RareCountries(store)
	assert.Contains(t, rare, "us")
	assert.Contains(t, rare, "de")
	assert.Contains(t, rare, "fr")
}
