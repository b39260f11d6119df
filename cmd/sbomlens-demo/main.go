// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main wires the parse -> enrich -> match -> diff pipeline into a
// single command-line entry point: point it at one SBOM to inspect, or two
// to diff.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sbomlens/sbomlens/diff"
	"github.com/sbomlens/sbomlens/enrich"
	"github.com/sbomlens/sbomlens/enrich/eol"
	"github.com/sbomlens/sbomlens/enrich/kev"
	"github.com/sbomlens/sbomlens/enrich/noop"
	"github.com/sbomlens/sbomlens/enrich/osv"
	"github.com/sbomlens/sbomlens/enrich/staleness"
	"github.com/sbomlens/sbomlens/enrichcache"
	"github.com/sbomlens/sbomlens/httpx"
	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomformat"
	"github.com/sbomlens/sbomlens/sbomformat/cyclonedx"
	"github.com/sbomlens/sbomlens/sbomformat/spdx"
)

// Config holds the flags this demo understands.
type Config struct {
	Path         string
	BaselinePath string
	Enrich       bool
	CacheDir     string
	CacheTTL     time.Duration
	HTTPTimeout  time.Duration
	MaxRetries   int
	OutputFile   string
}

func main() {
	cfg := parseFlags()

	ctx := context.Background()
	registry := sbomformat.NewRegistry(cyclonedx.New(), spdx.New())

	sbom, err := loadAndEnrich(ctx, registry, cfg, cfg.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var out any = summarize(sbom)
	if cfg.BaselinePath != "" {
		baseline, err := loadAndEnrich(ctx, registry, cfg, cfg.BaselinePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading baseline: %v\n", err)
			os.Exit(1)
		}
		result, err := diff.New().Diff(baseline, sbom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error diffing: %v\n", err)
			os.Exit(1)
		}
		out = result
	}

	if err := writeJSON(cfg.OutputFile, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}
	flag.StringVar(&cfg.Path, "path", "", "SBOM file to parse (required)")
	flag.StringVar(&cfg.BaselinePath, "baseline", "", "Optional earlier SBOM to diff against -path")
	flag.BoolVar(&cfg.Enrich, "enrich", false, "Query OSV/KEV/EOL/staleness for each component")
	flag.StringVar(&cfg.CacheDir, "cache-dir", ".sbomlens-cache", "Enrichment cache directory")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", 24*time.Hour, "Enrichment cache entry lifetime")
	flag.DurationVar(&cfg.HTTPTimeout, "http-timeout", 10*time.Second, "Per-request timeout for enrichers")
	flag.IntVar(&cfg.MaxRetries, "max-retries", 3, "Max retries per enricher HTTP request")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output file (default: stdout)")
	flag.Parse()

	if cfg.Path == "" {
		fmt.Fprintln(os.Stderr, "Error: -path is required")
		flag.Usage()
		os.Exit(2)
	}
	return cfg
}

func loadAndEnrich(ctx context.Context, registry *sbomformat.Registry, cfg *Config, path string) (*model.NormalizedSbom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sbom, err := registry.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	enrichers, err := buildEnrichers(cfg)
	if err != nil {
		return nil, err
	}
	stats := enrich.Run(ctx, enrichers, sbom.Components())
	if len(stats.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "enrichment for %s completed with %d errors\n", path, len(stats.Errors))
	}
	return sbom, nil
}

func buildEnrichers(cfg *Config) ([]enrich.Enricher, error) {
	if !cfg.Enrich {
		return []enrich.Enricher{noop.New()}, nil
	}

	cache, err := enrichcache.New(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("opening enrichment cache: %w", err)
	}
	client := httpx.New(cfg.HTTPTimeout, cfg.MaxRetries)

	return []enrich.Enricher{
		osv.New(client, cache, cfg.CacheTTL),
		kev.New(client, cache),
		eol.New(client, cache, cfg.CacheTTL),
		staleness.New(client, cache, cfg.CacheTTL),
	}, nil
}

// summaryReport is a compact human-facing view of a parsed document.
type summaryReport struct {
	Format         string         `json:"format"`
	FormatVersion  string         `json:"format_version"`
	ComponentCount int            `json:"component_count"`
	EdgeCount      int            `json:"edge_count"`
	VulnTotals     map[string]int `json:"vuln_totals"`
	Collisions     int            `json:"collisions"`
}

func summarize(sbom *model.NormalizedSbom) summaryReport {
	totals := sbom.VulnTotals()
	out := summaryReport{
		Format:         sbom.Document.Format,
		FormatVersion:  sbom.Document.FormatVersion,
		ComponentCount: sbom.ComponentCount(),
		EdgeCount:      len(sbom.Edges),
		VulnTotals:     make(map[string]int, len(totals)),
		Collisions:     len(sbom.Collisions),
	}
	for sev, n := range totals {
		out.VulnTotals[sev.String()] = n
	}
	return out
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
