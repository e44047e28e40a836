// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/allium-project/allium/internal/cachestore"
	"github.com/allium-project/allium/internal/config"
	"github.com/allium-project/allium/internal/consensus"
	"github.com/allium-project/allium/internal/coordinator"
	"github.com/allium-project/allium/internal/diagnostics"
	"github.com/allium-project/allium/internal/fetch"
	"github.com/allium-project/allium/internal/leaderboard"
	"github.com/allium-project/allium/internal/obslog"
	"github.com/allium-project/allium/internal/obsmetrics"
	"github.com/allium-project/allium/internal/relay"
	"github.com/allium-project/allium/internal/render"
	"github.com/allium-project/allium/internal/sitewriter"
	"github.com/allium-project/allium/internal/source"
)

var (
	flagOut            string
	flagBandwidthUnits string
	flagProgress       bool
	flagDetailsURL     string
	flagUptimeURL      string
	flagBandwidthURL   string
	flagDebugListen    string
	flagConfigFile     string

	rootCmd = &cobra.Command{
		Use:   "allium",
		Short: "Generate a Tor relay metrics site from onionoo data",
		Long:  `allium fetches onionoo relay data, derives network statistics and AROI operator leaderboards, and renders a static metrics site.`,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Run one fetch-build-render pass (default action)",
		RunE:  runGenerate,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, generateCmd} {
		cmd.Flags().StringVar(&flagOut, "out", "", "Output directory (default ./www)")
		cmd.Flags().StringVar(&flagBandwidthUnits, "display-bandwidth-units", "", "bits or bytes (default bits)")
		cmd.Flags().BoolVarP(&flagProgress, "progress", "p", false, "Emit progress lines to stdout")
		cmd.Flags().StringVar(&flagDetailsURL, "onionoo-details-url", "", "Override the onionoo details source URL")
		cmd.Flags().StringVar(&flagUptimeURL, "onionoo-uptime-url", "", "Override the onionoo uptime source URL")
		cmd.Flags().StringVar(&flagBandwidthURL, "onionoo-bandwidth-url", "", "Override the onionoo bandwidth source URL")
		cmd.Flags().StringVar(&flagDebugListen, "debug-listen", "", "Address to serve /healthz and /diagnostics/{fingerprint} on (e.g. 127.0.0.1:6831)")
		cmd.Flags().StringVar(&flagConfigFile, "config", "", "Optional YAML config file")
	}

	rootCmd.RunE = runGenerate
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.NewDefault()
	if flagConfigFile != "" {
		if err := cfg.LoadYAMLFile(flagConfigFile); err != nil {
			return err
		}
	}
	cfg.LoadEnv()
	cfg.ApplyCLI(flagOut, flagBandwidthUnits, flagProgress, flagDetailsURL, flagUptimeURL, flagBandwidthURL, flagDebugListen)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := obslog.NewLogger(obslog.DefaultConfig())
	if cfg.Progress {
		logger.Info("starting generator run", "out", cfg.OutDir, "bandwidth_units", cfg.BandwidthUnits)
	}

	store, probes, votes, err := runPipeline(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	results := leaderboard.Compute(store)
	renderer := render.New(store, results, probes, votes)

	if err := writeSite(renderer, store, cfg.OutDir); err != nil {
		return fmt.Errorf("writing site: %w", err)
	}

	if cfg.DebugListen != "" {
		serveDebug(renderer, cfg.DebugListen, logger)
	}

	if cfg.Progress {
		logger.Info("generator run complete", "relays", len(store.Relays))
	}
	return nil
}

// runPipeline executes components A-F: cache bookkeeping, parallel fetch,
// store construction, and the uptime/bandwidth join (spec §4.A-F).
func runPipeline(ctx context.Context, cfg *config.Config, logger obslog.Logger) (*relay.Store, []consensus.AuthorityProbe, []*consensus.Vote, error) {
	cache, err := cachestore.New(cfg.DataDir, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening cache store: %w", err)
	}

	metrics := obsmetrics.NewInMemoryCollector()
	client := fetch.NewClient(
		fetch.WithRequestID(),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithLogging(logger),
		fetch.WithMetrics(metrics),
	)

	urls := make(map[string]string)
	timeouts := make(map[string]time.Duration)
	for name, s := range cfg.Sources {
		urls[name] = s.URL
		timeouts[name] = s.Timeout
	}

	apiConfigs := source.DefaultAPIConfigs(urls, timeouts)
	enabled := make(map[string]bool)
	for _, s := range cfg.EnabledSources() {
		enabled[s.Name] = true
	}

	var workers []*source.Worker
	for _, apiCfg := range apiConfigs {
		if !enabled[apiCfg.Name] {
			continue
		}
		workers = append(workers, source.NewWorker(apiCfg, client, cache, logger))
	}

	results := coordinator.Run(ctx, workers, logger)

	bodies := make(map[string][]byte, len(results))
	for _, r := range results {
		bodies[r.Name] = r.Body
	}

	detailsBody := bodies["onionoo_details"]
	store, ok := relay.BuildStore(detailsBody, relay.BandwidthUnit(cfg.BandwidthUnits), logger)
	if !ok {
		return nil, nil, nil, fmt.Errorf("no onionoo_details data available (neither fresh fetch nor cache)")
	}

	relay.JoinUptimeAndBandwidth(store, bodies["onionoo_uptime"], bodies["onionoo_bandwidth"], logger)

	var votes []*consensus.Vote
	if cfg.CollectorDiagnostics {
		if body := bodies["collector_consensus"]; len(body) > 0 {
			votes = append(votes, consensus.ParseVoteDocument(body))
		}
	}

	probes := authorityProbes(store)
	return store, probes, votes, nil
}

// authorityProbes builds the authority target list from relays carrying the
// Authority flag and probes each one's directory port (spec §4.H "Authority
// monitor"). Each target address is the relay's primary IP address with the
// fixed port 80.
func authorityProbes(store *relay.Store) []consensus.AuthorityProbe {
	var targets []consensus.AuthorityTarget
	for i := range store.Relays {
		r := &store.Relays[i]
		if !r.HasFlag("Authority") || r.IPAddress == "" {
			continue
		}
		targets = append(targets, consensus.AuthorityTarget{
			Name:    r.Nickname,
			Address: fmt.Sprintf("%s:80", r.IPAddress),
		})
	}
	return consensus.ProbeAuthorities(context.Background(), targets, 5*time.Second)
}

// writeSite renders the fixed site layout (spec §6.5) for the index page,
// the authority and AROI-leaderboard misc pages, and one detail page per
// relay. The template bodies here are minimal placeholders; the actual
// templating engine is external to this module (spec §4.I).
func writeSite(renderer *render.Renderer, store *relay.Store, outDir string) error {
	writer := sitewriter.New(outDir)

	totals := renderer.NetworkTotals()
	if err := writer.WritePage(sitewriter.IndexPath(), []byte(fmt.Sprintf("relays=%d bandwidth=%s", totals.TotalRelays, totals.TotalBandwidthFmt))); err != nil {
		return err
	}

	if err := writer.WritePage(sitewriter.MiscPath("authorities"), []byte("authority diagnostics")); err != nil {
		return err
	}
	if err := writer.WritePage(sitewriter.MiscPath("aroi-leaderboards"), []byte("aroi leaderboards")); err != nil {
		return err
	}

	for i := range store.Relays {
		r := &store.Relays[i]
		if err := writer.WritePage(sitewriter.RelayPath(r.Fingerprint), []byte(r.Nickname)); err != nil {
			return err
		}
	}

	return nil
}

func serveDebug(renderer *render.Renderer, addr string, logger obslog.Logger) {
	server := diagnostics.NewProbeServer(renderer)
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}

	go func() {
		logger.Info("debug server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("debug server exited", "error", err.Error())
		}
	}()
}
