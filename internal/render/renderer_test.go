// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allium-project/allium/internal/consensus"
	"github.com/allium-project/allium/internal/leaderboard"
	"github.com/allium-project/allium/internal/relay"
)

const renderTestDetailsBody = `{
  "version": "9.0",
  "relays": [
    {
      "fingerprint": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
      "nickname": "<script>",
      "running": true,
      "flags": ["Valid", "Authority", "Running"],
      "observed_bandwidth": 1500000,
      "consensus_weight": 100,
      "country": "us",
      "contact": "abuse@example-operator.net",
      "first_seen": "2020-01-02 03:04:05"
    }
  ]
}`

func buildRenderTestStore(t *testing.T) *relay.Store {
	t.Helper()
	store, ok := relay.BuildStore([]byte(renderTestDetailsBody), relay.BandwidthUnitBits, nil)
	require.True(t, ok)
	return store
}

func TestRelaysEscapesNicknameAndOrdersFlags(t *testing.T) {
	store := buildRenderTestStore(t)
	r := New(store, nil, nil, nil)
	views := r.Relays()
	require.Len(t, views, 1)
	assert.NotContains(t, views[0].Nickname, "<script>")
	assert.Equal(t, []string{"Authority", "Running", "Valid"}, views[0].Flags)
}

func TestNetworkTotalsFormatsBandwidth(t *testing.T) {
	store := buildRenderTestStore(t)
	r := New(store, nil, nil, nil)
	totals := r.NetworkTotals()
	assert.Equal(t, 1, totals.TotalRelays)
	assert.NotEmpty(t, totals.TotalBandwidthFmt)
}

func TestAROILeaderboardsIncludesMetadata(t *testing.T) {
	store := buildRenderTestStore(t)
	results := leaderboard.Compute(store)
	r := New(store, results, nil, nil)
	views := r.AROILeaderboards()
	require.NotEmpty(t, views)
	for _, v := range views {
		assert.NotEmpty(t, v.Title)
	}
}

func TestAuthorityDiagnosticsSummarizesProbes(t *testing.T) {
	store := buildRenderTestStore(t)
	probes := []consensus.AuthorityProbe{
		{Name: "moria1", Online: true, LatencyMS: 50},
		{Name: "tor26", Online: false, Error: "timeout"},
	}
	r := New(store, nil, probes, nil)
	diag := r.AuthorityDiagnostics()
	assert.Equal(t, 2, diag.Total)
	assert.Equal(t, 1, diag.Online)
	assert.Equal(t, 1, diag.Offline)
	assert.Len(t, diag.Alerts, 1)
}

func TestRelayDiagnosticsInvalidFingerprint(t *testing.T) {
	store := buildRenderTestStore(t)
	r := New(store, nil, nil, nil)
	_, ok := r.RelayDiagnostics("not-a-fingerprint")
	assert.False(t, ok)
}

func TestRelayDiagnosticsUnknownFingerprint(t *testing.T) {
	store := buildRenderTestStore(t)
	r := New(store, nil, nil, nil)
	_, ok := r.RelayDiagnostics("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF")
	assert.False(t, ok)
}

func TestRelayDiagnosticsKnownFingerprintReportsConsensus(t *testing.T) {
	store := buildRenderTestStore(t)
	vote := &consensus.Vote{
		AuthorityName: "moria1",
		Thresholds:    consensus.NewDefaultThresholds(),
		RelayFlags: map[string][]string{
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA": {"Running", "Valid"},
		},
	}
	r := New(store, nil, nil, []*consensus.Vote{vote})
	diag, ok := r.RelayDiagnostics("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.True(t, ok)
	assert.True(t, diag.AuthorityVotes["moria1"])
	assert.NotEmpty(t, diag.ConsensusStatus)
}
