// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package config holds the run configuration for a generator pass: output
// directory, bandwidth-unit display preference, upstream source URLs and
// timeouts, and the optional-diagnostics toggle. Values are assembled from
// defaults, an optional YAML file, environment variables, and CLI flags, in
// that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// BandwidthUnit selects how relay bandwidth figures are rendered.
type BandwidthUnit string

const (
	BandwidthUnitBits  BandwidthUnit = "bits"
	BandwidthUnitBytes BandwidthUnit = "bytes"
)

const (
	defaultOnionooDetailsURL   = "https://onionoo.torproject.org/details"
	defaultOnionooUptimeURL    = "https://onionoo.torproject.org/uptime"
	defaultOnionooBandwidthURL = "https://onionoo.torproject.org/bandwidth"
	defaultCollectorConsensusURL = "https://collector.torproject.org/recent/relay-descriptors/consensuses/"
	defaultConsensusHealthURL    = "https://consensus-health.torproject.org/"

	defaultOutDir        = "./www"
	defaultSourceTimeout = 30 * time.Second
)

// SourceConfig is the per-API-source configuration used by internal/source.
type SourceConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// Optional marks a diagnostics source that EnabledSources includes only
	// when CollectorDiagnostics is on (used for collector_consensus /
	// consensus_health).
	Optional bool `yaml:"-"`
}

// Config is the fully resolved configuration for a single generator run.
type Config struct {
	// OutDir is the directory the rendered site is written to.
	OutDir string `yaml:"out"`

	// DataDir is where cache/*.json and state.json are persisted.
	DataDir string `yaml:"data_dir"`

	// BandwidthUnits selects bits or bytes display.
	BandwidthUnits BandwidthUnit `yaml:"display_bandwidth_units"`

	// Progress enables progress-line logging at Info level.
	Progress bool `yaml:"progress"`

	// CollectorDiagnostics gates the optional consensus-diagnostics
	// sources (collector_consensus, consensus_health) per spec §4.H.
	CollectorDiagnostics bool `yaml:"-"`

	// DebugListen, if non-empty, starts the diagnostics probe server on
	// this address (e.g. "127.0.0.1:6831"). Ambient, not in spec.md §6.
	DebugListen string `yaml:"debug_listen"`

	Sources map[string]SourceConfig `yaml:"-"`

	// UserAgent identifies this generator to upstream servers.
	UserAgent string `yaml:"user_agent"`
}

// NewDefault returns a Config populated with spec.md §6.1/§6.2 defaults.
func NewDefault() *Config {
	return &Config{
		OutDir:               defaultOutDir,
		DataDir:              defaultOutDir + "/.allium-data",
		BandwidthUnits:       BandwidthUnitBits,
		Progress:             false,
		CollectorDiagnostics: true,
		UserAgent:            "allium/1.0",
		Sources: map[string]SourceConfig{
			"onionoo_details": {
				Name: "onionoo_details", URL: defaultOnionooDetailsURL, Timeout: defaultSourceTimeout,
			},
			"onionoo_uptime": {
				Name: "onionoo_uptime", URL: defaultOnionooUptimeURL, Timeout: defaultSourceTimeout,
			},
			"onionoo_bandwidth": {
				Name: "onionoo_bandwidth", URL: defaultOnionooBandwidthURL, Timeout: defaultSourceTimeout,
			},
			"collector_consensus": {
				Name: "collector_consensus", URL: defaultCollectorConsensusURL, Timeout: defaultSourceTimeout, Optional: true,
			},
			"consensus_health": {
				Name: "consensus_health", URL: defaultConsensusHealthURL, Timeout: defaultSourceTimeout, Optional: true,
			},
		},
	}
}

// LoadYAMLFile merges an optional YAML config file into c. A missing file is
// not an error; a malformed one is.
func (c *Config) LoadYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if overlay.OutDir != "" {
		c.OutDir = overlay.OutDir
	}
	if overlay.DataDir != "" {
		c.DataDir = overlay.DataDir
	}
	if overlay.BandwidthUnits != "" {
		c.BandwidthUnits = overlay.BandwidthUnits
	}
	if overlay.Progress {
		c.Progress = overlay.Progress
	}
	if overlay.DebugListen != "" {
		c.DebugListen = overlay.DebugListen
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
	return nil
}

// LoadEnv applies environment-variable overrides per spec.md §6.2.
func (c *Config) LoadEnv() {
	if v := os.Getenv("ALLIUM_COLLECTOR_DIAGNOSTICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CollectorDiagnostics = b
		}
	}
	if v := os.Getenv("ALLIUM_OUT"); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv("ALLIUM_DEBUG_LISTEN"); v != "" {
		c.DebugListen = v
	}
}

// ApplyCLI overlays the flags parsed by cmd/allium (spec.md §6.1). Empty
// string arguments leave the existing value untouched.
func (c *Config) ApplyCLI(out, bandwidthUnits string, progress bool, detailsURL, uptimeURL, bandwidthURL, debugListen string) {
	if out != "" {
		c.OutDir = out
	}
	if bandwidthUnits != "" {
		c.BandwidthUnits = BandwidthUnit(bandwidthUnits)
	}
	if progress {
		c.Progress = true
	}
	if detailsURL != "" {
		c.setSourceURL("onionoo_details", detailsURL)
	}
	if uptimeURL != "" {
		c.setSourceURL("onionoo_uptime", uptimeURL)
	}
	if bandwidthURL != "" {
		c.setSourceURL("onionoo_bandwidth", bandwidthURL)
	}
	if debugListen != "" {
		c.DebugListen = debugListen
	}
}

func (c *Config) setSourceURL(name, url string) {
	s := c.Sources[name]
	s.Name = name
	s.URL = url
	if s.Timeout == 0 {
		s.Timeout = defaultSourceTimeout
	}
	c.Sources[name] = s
}

// EnabledSources returns the source configs that should be fetched this run,
// gating the two optional diagnostics sources on CollectorDiagnostics.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, name := range []string{"onionoo_details", "onionoo_uptime", "onionoo_bandwidth", "collector_consensus", "consensus_health"} {
		s, ok := c.Sources[name]
		if !ok {
			continue
		}
		if s.Optional && !c.CollectorDiagnostics {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.OutDir == "" {
		return ErrMissingOutDir
	}
	if c.BandwidthUnits != BandwidthUnitBits && c.BandwidthUnits != BandwidthUnitBytes {
		return ErrInvalidBandwidthUnits
	}
	for _, s := range c.Sources {
		if s.Optional && !c.CollectorDiagnostics {
			continue
		}
		if s.URL == "" {
			return fmt.Errorf("config: %w: %s", ErrMissingSourceURL, s.Name)
		}
		if s.Timeout <= 0 {
			return fmt.Errorf("config: %w: %s", ErrInvalidTimeout, s.Name)
		}
	}
	return nil
}
