// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"sort"

	"github.com/allium-project/allium/internal/consensus"
	"github.com/allium-project/allium/internal/leaderboard"
	"github.com/allium-project/allium/internal/relay"
)

// leaderboardMeta is the static display metadata (title/emoji/tooltip) per
// leaderboard category (spec §4.I "aroi_leaderboards").
var leaderboardMeta = map[leaderboard.Category]struct {
	title   string
	emoji   string
	tooltip string
}{
	leaderboard.CategoryBandwidth:          {"Bandwidth Contributed", "\U0001F680", "Operators ranked by total observed bandwidth"},
	leaderboard.CategoryConsensusWeight:    {"Consensus Weight Leaders", "⚖️", "Operators ranked by total consensus weight"},
	leaderboard.CategoryExitAuthority:      {"Exit Authority", "\U0001F6AA", "Operators ranked by exit consensus weight"},
	leaderboard.CategoryGuardAuthority:     {"Guard Authority", "\U0001F6E1️", "Operators ranked by guard consensus weight"},
	leaderboard.CategoryExitOperators:      {"Exit Operators", "\U0001F6AA", "Operators ranked by exit relay count"},
	leaderboard.CategoryGuardOperators:     {"Guard Operators", "\U0001F6E1️", "Operators ranked by guard relay count"},
	leaderboard.CategoryMostDiverse:        {"Most Diverse Operators", "\U0001F30D", "Operators ranked by AS/country/platform/family diversity"},
	leaderboard.CategoryPlatformDiversity:  {"Platform Diversity", "\U0001F4BB", "Operators ranked by distinct platform count"},
	leaderboard.CategoryNonEUNLeaders:      {"Non-EU Leaders", "\U0001F310", "Non-EU operators ranked by bandwidth"},
	leaderboard.CategoryFrontierBuilders:   {"Frontier Builders", "\U0001F9ED", "Operators ranked by rare-country presence"},
	leaderboard.CategoryNetworkVeterans:    {"Network Veterans", "\U0001F3C6", "Longest-running operators weighted by relay count"},
	leaderboard.CategoryReliabilityMasters: {"Reliability Masters", "✅", "Operators with 26+ relays ranked by 6-month uptime"},
	leaderboard.CategoryLegacyTitans:       {"Legacy Titans", "\U0001F5FF", "Operators with 26+ relays ranked by 5-year uptime"},
}

// Renderer exposes the language-neutral contract consumed by the template
// layer (spec §4.I). It performs no arithmetic; every input is already
// computed by the upstream components.
type Renderer struct {
	store         *relay.Store
	leaderboards  []leaderboard.Result
	authorities   []consensus.AuthorityProbe
	summary       consensus.MonitorSummary
	votes         []*consensus.Vote
	authorityList []string // total_authorities for majority computation
	flagAnalyzer  *relay.FlagReliabilityAnalyzer
}

// New builds a Renderer from the fully computed upstream state.
func New(store *relay.Store, leaderboards []leaderboard.Result, probes []consensus.AuthorityProbe, votes []*consensus.Vote) *Renderer {
	return &Renderer{
		store:        store,
		leaderboards: leaderboards,
		authorities:  probes,
		summary:      consensus.Summarize(probes),
		votes:        votes,
		flagAnalyzer: relay.NewFlagReliabilityAnalyzer(store),
	}
}

// Relays returns every relay as a display-ready view, sorted by fingerprint
// (the store already guarantees this ordering; spec §5 "sorted by
// fingerprint before emission").
func (r *Renderer) Relays() []RelayView {
	views := make([]RelayView, 0, len(r.store.Relays))
	for i := range r.store.Relays {
		views = append(views, r.relayView(&r.store.Relays[i]))
	}
	return views
}

func (r *Renderer) relayView(rel *relay.Relay) RelayView {
	measured := "unknown"
	switch rel.Measured {
	case relay.TernaryTrue:
		measured = "true"
	case relay.TernaryFalse:
		measured = "false"
	}

	firstSeen := ""
	if !rel.FirstSeen.IsZero() {
		firstSeen = rel.FirstSeen.Format("2006-01-02")
	}

	return RelayView{
		Fingerprint:          rel.Fingerprint,
		Nickname:             EscapeHTML(rel.Nickname),
		IPAddress:            rel.IPAddress,
		Flags:                consensus.OrderFlags(rel.Flags),
		ObservedBandwidthFmt: rel.ObsBandwidthDisplay,
		Measured:             measured,
		Country:              rel.Country,
		CountryName:          EscapeHTML(rel.CountryName),
		Platform:             EscapeHTML(rel.Platform),
		AROIDomain:           EscapeHTML(rel.AROIDomain),
		ContactEscaped:       EscapeHTML(rel.Contact),
		FirstSeen:            firstSeen,
	}
}

// Categories exposes the pre-sorted category-bucket lookups (spec §4.I
// "categories.by_key").
func (r *Renderer) Categories() CategoryBuckets {
	return CategoryBuckets{
		ByKey: map[string]map[string][]int{
			"as":         r.store.Categories.AS,
			"contact":    r.store.Categories.Contact,
			"country":    r.store.Categories.Country,
			"family":     r.store.Categories.Family,
			"flag":       r.store.Categories.Flag,
			"platform":   r.store.Categories.Platform,
			"first_seen": r.store.Categories.FirstSeen,
		},
	}
}

// NetworkTotals exposes the scalar aggregates (spec §4.I "network_totals").
func (r *Renderer) NetworkTotals() NetworkTotalsView {
	totals := r.store.Totals
	bwFmt := relay.FormatBytesPerSecond(totals.TotalBandwidth, r.store.BandwidthUnit)
	return NetworkTotalsView{
		TotalRelays:           totals.TotalRelays,
		TotalBandwidthFmt:     bwFmt,
		GuardConsensusWeight:  totals.GuardConsensusWeight,
		MiddleConsensusWeight: totals.MiddleConsensusWeight,
		ExitConsensusWeight:   totals.ExitConsensusWeight,
	}
}

// AROILeaderboards exposes every category's display-formatted ranking
// (spec §4.I "aroi_leaderboards").
func (r *Renderer) AROILeaderboards() []LeaderboardView {
	views := make([]LeaderboardView, 0, len(r.leaderboards))
	for _, result := range r.leaderboards {
		meta := leaderboardMeta[result.Category]
		view := LeaderboardView{
			Category: string(result.Category),
			Title:    meta.title,
			Emoji:    meta.emoji,
			Tooltip:  meta.tooltip,
			Pages:    make(map[string][]LeaderboardEntryView),
		}

		for _, page := range result.Pages {
			rank := rankOffset(page.Label)
			entries := make([]LeaderboardEntryView, 0, len(page.Entries))
			for i, e := range page.Entries {
				entries = append(entries, LeaderboardEntryView{
					Rank:               rank + i + 1,
					AROIDomain:         EscapeHTML(e.AROIDomain),
					ContactHash:        e.ContactHash,
					DisplayScore:       displayScore(result.Category, e, r.store.BandwidthUnit),
					TotalRelays:        e.TotalRelays,
					RecentBandwidthFmt: r.recentBandwidthFmt(e.ContactHash),
				})
			}
			view.Pages[page.Label] = entries
		}

		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool { return views[i].Category < views[j].Category })
	return views
}

// recentBandwidthFmt selects and formats the most recent day's value from
// an operator's bandwidth-history aggregate (spec §4.F), preferring the
// 1-month period since it carries the finest-grained recent samples.
func (r *Renderer) recentBandwidthFmt(contactHash string) string {
	op, ok := r.store.Operators[contactHash]
	if !ok {
		return ""
	}
	for _, period := range []string{"1_month", "1_year", "5_years"} {
		series, ok := op.BandwidthHistory[period]
		if !ok {
			continue
		}
		for i := len(series) - 1; i >= 0; i-- {
			if series[i] != nil {
				return relay.FormatBytesPerSecond(int64(*series[i]), r.store.BandwidthUnit)
			}
		}
	}
	return ""
}

func rankOffset(label string) int {
	switch label {
	case "11-20":
		return 10
	case "21-25":
		return 20
	default:
		return 0
	}
}

func displayScore(cat leaderboard.Category, e leaderboard.Entry, unit relay.BandwidthUnit) string {
	switch cat {
	case leaderboard.CategoryBandwidth, leaderboard.CategoryNonEUNLeaders:
		return relay.FormatBytesPerSecond(int64(e.Score), unit)
	case leaderboard.CategoryReliabilityMasters, leaderboard.CategoryLegacyTitans:
		return fmt.Sprintf("%.2f%%", e.Score)
	default:
		return fmt.Sprintf("%.0f", e.Score)
	}
}

// AuthorityDiagnostics exposes the authority status table and summary (spec
// §4.I "authority_diagnostics").
func (r *Renderer) AuthorityDiagnostics() AuthorityDiagnosticsView {
	statuses := make([]AuthorityStatusView, 0, len(r.authorities))
	for _, p := range r.authorities {
		statuses = append(statuses, AuthorityStatusView{
			Name:      p.Name,
			Online:    p.Online,
			LatencyMS: p.LatencyMS,
			Error:     p.Error,
		})
	}

	alerts := make([]AlertView, 0, len(r.summary.Alerts))
	for _, a := range r.summary.Alerts {
		alerts = append(alerts, AlertView{Severity: a.Severity, Authority: a.Authority, Message: a.Message})
	}

	return AuthorityDiagnosticsView{
		Authorities:      statuses,
		Total:            r.summary.Total,
		Online:           r.summary.Online,
		Offline:          r.summary.Offline,
		AverageLatencyMS: r.summary.AverageLatencyMS,
		Slow:             r.summary.Slow,
		Alerts:           alerts,
	}
}

// RelayDiagnostics builds the per-relay diagnostics struct (spec §4.I
// "relay_diagnostics(fingerprint)"). The second return is false when the
// fingerprint is invalid or unknown.
func (r *Renderer) RelayDiagnostics(fingerprint string) (RelayDiagnosticsView, bool) {
	if !consensus.ValidFingerprint(fingerprint) {
		return RelayDiagnosticsView{
			Fingerprint: fingerprint,
			Issues:      []string{"invalid fingerprint"},
		}, false
	}

	idx, ok := r.store.ByFingerprint[fingerprint]
	if !ok {
		return RelayDiagnosticsView{}, false
	}
	rel := &r.store.Relays[idx]

	votes := make(map[string]bool)
	for _, v := range r.votes {
		_, voted := v.RelayFlags[fingerprint]
		votes[v.AuthorityName] = voted
	}

	consensusResult := consensus.ComputeConsensus(consensus.CountVotes(r.votes, fingerprint), len(r.votes))

	var issues []string
	var advice []string
	if !consensusResult.InConsensus {
		issues = append(issues, "relay is not in majority consensus")
		advice = append(advice, "check authority connectivity and descriptor freshness")
	}

	thresholds := make([]ThresholdRow, 0, len(r.votes))
	for _, v := range r.votes {
		thresholds = append(thresholds, ThresholdRow{
			Authority: v.AuthorityName,
			GuardWFU:  fmt.Sprintf("%.2f%%", v.Thresholds.GuardWFU*100),
			GuardTK:   fmt.Sprintf("%.0fs", v.Thresholds.GuardTK),
			HSDirWFU:  fmt.Sprintf("%.2f%%", v.Thresholds.HSDirWFU*100),
			HSDirTK:   fmt.Sprintf("%.0fs", v.Thresholds.HSDirTK),
		})
	}

	return RelayDiagnosticsView{
		Fingerprint:         fingerprint,
		ConsensusStatus:     consensusStatusLabel(consensusResult),
		AuthorityVotes:      votes,
		FlagSummary:         consensus.OrderFlags(rel.Flags),
		ReachabilitySummary: reachabilitySummary(rel),
		BandwidthSummary:    rel.ObsBandwidthDisplay,
		Issues:              issues,
		Advice:              advice,
		ThresholdsTable:     thresholds,
		FlagReliability:     r.flagReliabilityRows(fingerprint),
	}, true
}

// flagReliabilityRows builds the per-flag uptime breakdown for one relay,
// reusing the network-wide statistics the analyzer precomputes once per run
// (SPEC_FULL §5.1).
func (r *Renderer) flagReliabilityRows(fingerprint string) []FlagReliabilityRow {
	breakdown, ok := r.flagAnalyzer.OperatorFlagReliability([]string{fingerprint})
	if !ok {
		return nil
	}
	rows := make([]FlagReliabilityRow, 0, len(breakdown))
	for _, fr := range breakdown {
		rows = append(rows, FlagReliabilityRow{
			Flag:        fr.Flag,
			Label:       consensus.FlagDisplay(fr.Flag).Label,
			Period:      fr.Period,
			UptimeFmt:   fmt.Sprintf("%.2f%%", fr.Uptime),
			OutlierHigh: fr.OutlierHigh,
			OutlierLow:  fr.OutlierLow,
		})
	}
	return rows
}

func consensusStatusLabel(c consensus.ConsensusResult) string {
	if c.InConsensus {
		return fmt.Sprintf("in consensus (%d/%d votes, majority %d)", c.VoteCount, c.TotalAuthorities, c.MajorityRequired)
	}
	return fmt.Sprintf("not in consensus (%d/%d votes, majority %d)", c.VoteCount, c.TotalAuthorities, c.MajorityRequired)
}

func reachabilitySummary(rel *relay.Relay) string {
	if rel.Running {
		return "running"
	}
	return "not running"
}
