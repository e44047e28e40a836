// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDetailsBody = `{
  "version": "9.0",
  "relays": [
    {
      "fingerprint": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
      "nickname": "RelayOne",
      "running": true,
      "flags": ["Fast", "Running", "Valid"],
      "or_addresses": ["198.51.100.1:9001"],
      "observed_bandwidth": 1500000,
      "measured": true,
      "consensus_weight": 100,
      "as": "AS3",
      "as_name": "Example AS",
      "country": "us",
      "country_name": "United States",
      "platform": "Tor 0.4.8 on Linux",
      "contact": "abuse@relay-one.example.net",
      "effective_family": ["AAAA", "BBBB"],
      "first_seen": "2020-01-02 03:04:05"
    },
    {
      "fingerprint": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
      "nickname": "RelayTwo",
      "running": true,
      "flags": ["Authority", "Exit", "Guard", "Running"],
      "or_addresses": ["198.51.100.2:9001"],
      "observed_bandwidth": 500000,
      "consensus_weight": 50,
      "as": "AS4",
      "country": "de",
      "contact": "",
      "first_seen": "2019-06-01 00:00:00"
    }
  ]
}`

func TestBuildStoreParsesRelaysAndSortsByFingerprint(t *testing.T) {
	store, ok := BuildStore([]byte(sampleDetailsBody), BandwidthUnitBits, nil)
	require.True(t, ok)
	require.Len(t, store.Relays, 2)

	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", store.Relays[0].Fingerprint)
	assert.Equal(t, "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", store.Relays[1].Fingerprint)
}

func TestBuildStoreNoDetailsBodyAborts(t *testing.T) {
	store, ok := BuildStore(nil, BandwidthUnitBits, nil)
	assert.False(t, ok)
	assert.Nil(t, store)
}

func TestBuildStoreDerivedFields(t *testing.T) {
	store, ok := BuildStore([]byte(sampleDetailsBody), BandwidthUnitBits, nil)
	require.True(t, ok)

	idx := store.ByFingerprint["AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"]
	r := store.Relays[idx]

	assert.Equal(t, "198.51.100.1", r.IPAddress)
	assert.Equal(t, "relay-one.example.net", r.AROIDomain)
	assert.Equal(t, "12.00 Mbit/s", r.ObsBandwidthDisplay)
	assert.Equal(t, TernaryTrue, r.Measured)
	assert.Contains(t, r.FlagsLower, "fast")
	assert.True(t, r.HasFlag("Valid"))
	assert.Equal(t, 2020, r.FirstSeen.Year())
}

func TestBuildStoreEffectiveFamilySelfInclusion(t *testing.T) {
	store, ok := BuildStore([]byte(sampleDetailsBody), BandwidthUnitBits, nil)
	require.True(t, ok)

	idx := store.ByFingerprint["AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"]
	r := store.Relays[idx]
	_, selfIncluded := r.EffectiveFamily[r.Fingerprint]
	assert.True(t, selfIncluded)
}

func TestBuildStoreNetworkTotals(t *testing.T) {
	store, ok := BuildStore([]byte(sampleDetailsBody), BandwidthUnitBits, nil)
	require.True(t, ok)

	assert.Equal(t, 2, store.Totals.TotalRelays)
	assert.Equal(t, int64(2_000_000), store.Totals.TotalBandwidth)
}

func TestBuildStoreCategoryBuckets(t *testing.T) {
	store, ok := BuildStore([]byte(sampleDetailsBody), BandwidthUnitBits, nil)
	require.True(t, ok)

	assert.Contains(t, store.Categories.Country["us"], store.ByFingerprint["AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"])
	assert.Contains(t, store.Categories.Flag["guard"], store.ByFingerprint["BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"])
}

func TestBuildStoreEmptyRelayListIsValid(t *testing.T) {
	store, ok := BuildStore([]byte(`{"version":"1.0","relays":[]}`), BandwidthUnitBits, nil)
	require.True(t, ok)
	assert.Empty(t, store.Relays)
}

func TestBuildStoreOperatorsGroupedByContactHash(t *testing.T) {
	store, ok := BuildStore([]byte(sampleDetailsBody), BandwidthUnitBits, nil)
	require.True(t, ok)

	// RelayOne has a non-empty contact so it forms its own operator; RelayTwo
	// has an empty contact and is excluded (spec §4.G anonymous-operator rule).
	require.Len(t, store.Operators, 1)

	idx := store.ByFingerprint["AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"]
	r := store.Relays[idx]
	op, ok := store.Operators[r.ContactMD5]
	require.True(t, ok)

	assert.Equal(t, "relay-one.example.net", op.AROIDomain)
	assert.Equal(t, []string{"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}, op.Fingerprints)
	assert.Equal(t, int64(1_500_000), op.TotalBandwidth)
	assert.Equal(t, 1, op.UniqueCountries)
	assert.Equal(t, 1, op.UniqueAS)
	assert.Equal(t, 2020, op.FirstSeenOldest.Year())
}
