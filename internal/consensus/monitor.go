// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package consensus

import (
	"context"
	"net"
	"time"
)

// slowLatencyThreshold marks an authority as "slow" in the monitor summary
// (spec §4.H "warning if latency > 1 s").
const slowLatencyThreshold = time.Second

// AuthorityTarget names one directory authority's probe address.
type AuthorityTarget struct {
	Name    string
	Address string // host:port of the directory port
}

// AuthorityProbe is the outcome of probing one authority (spec §4.H
// "Authority monitor").
type AuthorityProbe struct {
	Name      string
	Online    bool
	LatencyMS int64
	Error     string
}

// ProbeAuthority dials an authority's directory port and measures latency.
// The CLI probes every Authority-flagged relay this way; consensus_health
// data is not consulted (SPEC_FULL §5.5).
func ProbeAuthority(ctx context.Context, target AuthorityTarget, timeout time.Duration) AuthorityProbe {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var dialer net.Dialer
	conn, err := dialer.DialContext(probeCtx, "tcp", target.Address)
	elapsed := time.Since(start)

	if err != nil {
		return AuthorityProbe{Name: target.Name, Online: false, Error: err.Error()}
	}
	conn.Close()

	return AuthorityProbe{Name: target.Name, Online: true, LatencyMS: elapsed.Milliseconds()}
}

// ProbeAuthorities probes every target sequentially; the authority set is
// small (roughly a dozen well-known directory authorities) so no
// concurrency is needed here.
func ProbeAuthorities(ctx context.Context, targets []AuthorityTarget, timeout time.Duration) []AuthorityProbe {
	probes := make([]AuthorityProbe, 0, len(targets))
	for _, target := range targets {
		probes = append(probes, ProbeAuthority(ctx, target, timeout))
	}
	return probes
}

// Alert is a diagnostic condition raised by Summarize.
type Alert struct {
	Severity  string // "critical" or "warning"
	Authority string
	Message   string
}

// MonitorSummary aggregates a probe round (spec §4.H "Summarize").
type MonitorSummary struct {
	Total            int
	Online           int
	Offline          int
	AverageLatencyMS float64
	Slow             []string
	OfflineNames     []string
	Alerts           []Alert
}

// Summarize builds the monitor summary and alert list from a probe round.
func Summarize(probes []AuthorityProbe) MonitorSummary {
	summary := MonitorSummary{Total: len(probes)}

	var latencySum int64
	var onlineCount int

	for _, p := range probes {
		if !p.Online {
			summary.Offline++
			summary.OfflineNames = append(summary.OfflineNames, p.Name)
			summary.Alerts = append(summary.Alerts, Alert{
				Severity:  "critical",
				Authority: p.Name,
				Message:   "authority unreachable: " + p.Error,
			})
			continue
		}

		summary.Online++
		onlineCount++
		latencySum += p.LatencyMS

		if time.Duration(p.LatencyMS)*time.Millisecond > slowLatencyThreshold {
			summary.Slow = append(summary.Slow, p.Name)
			summary.Alerts = append(summary.Alerts, Alert{
				Severity:  "warning",
				Authority: p.Name,
				Message:   "authority latency exceeds 1s",
			})
		}
	}

	if onlineCount > 0 {
		summary.AverageLatencyMS = float64(latencySum) / float64(onlineCount)
	}

	return summary
}
