// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package source implements the per-API worker (component C): conditional
// fetch, minimal schema validation, cache/state bookkeeping, and the
// fetch-with-cache-fallback algorithm of spec §4.C.
package source

import (
	"context"
	"encoding/json"
	"time"

	"github.com/allium-project/allium/internal/cachestore"
	"github.com/allium-project/allium/internal/fetch"
	"github.com/allium-project/allium/internal/ferrors"
	"github.com/allium-project/allium/internal/obslog"
)

// APIConfig describes one upstream source (spec §4.C).
type APIConfig struct {
	Name                   string
	DisplayName            string
	URL                    string
	CacheMaxAge            time.Duration
	TimeoutFreshCache      time.Duration
	TimeoutStaleCache      time.Duration
	UseConditionalRequests bool
	CountField             string
}

// DefaultAPIConfigs returns the five sources named in spec §4.C, wired to
// the given per-source URL/timeout overrides from config.
func DefaultAPIConfigs(urls map[string]string, timeouts map[string]time.Duration) []APIConfig {
	configs := []APIConfig{
		{
			Name: "onionoo_details", DisplayName: "Relay Details",
			CacheMaxAge: time.Hour, TimeoutFreshCache: 90 * time.Second, TimeoutStaleCache: 30 * time.Second,
			UseConditionalRequests: true, CountField: "relays",
		},
		{
			Name: "onionoo_uptime", DisplayName: "Relay Uptime",
			CacheMaxAge: time.Hour, TimeoutFreshCache: 90 * time.Second, TimeoutStaleCache: 30 * time.Second,
			UseConditionalRequests: true, CountField: "relays",
		},
		{
			Name: "onionoo_bandwidth", DisplayName: "Relay Bandwidth",
			CacheMaxAge: time.Hour, TimeoutFreshCache: 90 * time.Second, TimeoutStaleCache: 30 * time.Second,
			UseConditionalRequests: true, CountField: "relays",
		},
		{
			Name: "collector_consensus", DisplayName: "Collector Consensus Votes",
			CacheMaxAge: 30 * time.Minute, TimeoutFreshCache: 60 * time.Second, TimeoutStaleCache: 20 * time.Second,
			UseConditionalRequests: false, CountField: "",
		},
		{
			Name: "consensus_health", DisplayName: "Consensus Health",
			CacheMaxAge: 30 * time.Minute, TimeoutFreshCache: 60 * time.Second, TimeoutStaleCache: 20 * time.Second,
			UseConditionalRequests: false, CountField: "",
		},
	}
	for i := range configs {
		if u, ok := urls[configs[i].Name]; ok && u != "" {
			configs[i].URL = u
		}
		if t, ok := timeouts[configs[i].Name]; ok && t > 0 {
			configs[i].TimeoutStaleCache = t
		}
	}
	return configs
}

// Worker runs FetchWithCacheFallback for a single API source.
type Worker struct {
	cfg    APIConfig
	fetch  *fetch.Client
	cache  *cachestore.Store
	logger obslog.Logger
}

// NewWorker constructs a Worker for cfg, sharing the fetch client and cache
// store across the run (spec §5, "exactly one process mutates the cache
// directory per run").
func NewWorker(cfg APIConfig, client *fetch.Client, cache *cachestore.Store, logger obslog.Logger) *Worker {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}
	return &Worker{cfg: cfg, fetch: client, cache: cache, logger: logger}
}

// Name returns the API source name this worker fetches (e.g. "onionoo_details").
func (w *Worker) Name() string { return w.cfg.Name }

// FetchResult is what a worker hands back to the coordinator: the usable
// body (possibly from cache) and whether it came from a fresh fetch.
type FetchResult struct {
	Body  []byte
	Fresh bool
}

// FetchWithCacheFallback implements spec §4.C steps 1-8. It never returns an
// error to the caller beyond context cancellation: all upstream failures are
// absorbed into cache fallback and worker status, per the "a worker never
// raises" failure semantics.
func (w *Worker) FetchWithCacheFallback(ctx context.Context) FetchResult {
	age, hasCache := w.cache.CacheAge(w.cfg.Name)

	timeout := w.cfg.TimeoutStaleCache
	if hasCache && age <= w.cfg.CacheMaxAge {
		timeout = w.cfg.TimeoutFreshCache
	}

	ifModifiedSince := ""
	if w.cfg.UseConditionalRequests {
		ifModifiedSince = w.cache.ReadTimestamp(w.cfg.Name)
	}

	result, err := w.fetch.Fetch(ctx, w.cfg.URL, timeout, ifModifiedSince)
	if err != nil {
		return w.fallbackToCache(err)
	}

	if result.NotModified {
		body, ok := w.cache.LoadCache(w.cfg.Name)
		if !ok {
			return w.fallbackToCache(ferrors.New(ferrors.CodeCacheCorrupt, w.cfg.Name, "304 received but cache body missing"))
		}
		w.cache.MarkReady(w.cfg.Name)
		w.logger.Info("source status", "api", w.cfg.Name, "status", "cached-304")
		return FetchResult{Body: body, Fresh: true}
	}

	if err := w.validateSchema(result.Body); err != nil {
		return w.fallbackToCache(err)
	}

	if err := w.cache.SaveCache(w.cfg.Name, result.Body); err != nil {
		w.logger.Warn("failed to persist cache", "api", w.cfg.Name, "error", err.Error())
	}
	if result.LastModified != "" {
		if err := w.cache.WriteTimestamp(w.cfg.Name, result.LastModified); err != nil {
			w.logger.Warn("failed to persist timestamp", "api", w.cfg.Name, "error", err.Error())
		}
	}
	w.cache.MarkReady(w.cfg.Name)
	w.logger.Info("source status", "api", w.cfg.Name, "status", "fetched")
	return FetchResult{Body: result.Body, Fresh: true}
}

func (w *Worker) fallbackToCache(cause error) FetchResult {
	body, ok := w.cache.LoadCache(w.cfg.Name)
	w.cache.MarkStale(w.cfg.Name, cause)
	if ok {
		w.logger.Info("source status", "api", w.cfg.Name, "status", "stale", "error", cause.Error())
		return FetchResult{Body: body, Fresh: false}
	}
	w.logger.Warn("source unavailable, no cache", "api", w.cfg.Name, "error", cause.Error())
	return FetchResult{Body: nil, Fresh: false}
}

// validateSchema checks the body parses as JSON and contains the
// discriminator field named by CountField (spec §4.C step 6, §6.3). A
// source with an empty CountField (the optional diagnostics sources, whose
// wire shape is best-effort per SPEC_FULL §5.4) skips the field check.
func (w *Worker) validateSchema(body []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return ferrors.Wrap(ferrors.CodeJSONInvalid, w.cfg.Name, "response is not valid JSON", err)
	}
	if w.cfg.CountField == "" {
		return nil
	}
	if _, ok := doc[w.cfg.CountField]; !ok {
		return ferrors.New(ferrors.CodeSchemaMissing, w.cfg.Name, "missing required field "+w.cfg.CountField)
	}
	return nil
}
