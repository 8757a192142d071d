// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package sources loads and validates Source Profiles from TOML files and
// keeps an in-memory registry in sync with the on-disk directory.
package sources

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/tomfr/radar/internal/model"
)

// Profile is the on-disk TOML representation of a Source.
type Profile struct {
	ID             string `toml:"id" validate:"required"`
	Name           string `toml:"name" validate:"required"`
	Tier           int    `toml:"tier" validate:"required,min=1,max=4"`
	HomepageURL    string `toml:"homepage_url" validate:"required,url"`
	PollIntervalS  int    `toml:"poll_interval_s" validate:"required,min=5"`
	FetchStrategy  string  `toml:"fetch_strategy" validate:"required,oneof=FAST SPA_HEADLESS DEEP"`
	Strategy       string  `toml:"strategy" validate:"required,oneof=RSS HTML API SPA_API SPA_HEADLESS PDF"`
	TrustWeight    float64 `toml:"trust_weight" validate:"min=0,max=1"`
	Enabled        bool    `toml:"enabled"`
	MaxBodyBytes   int64   `toml:"max_body_bytes"`
	RateLimitReqPerMin   int `toml:"rate_limit_req_per_min"`
	ConcurrencyPerDomain int `toml:"concurrency_per_domain"`
}

var validate = validator.New()

// LoadProfile reads and validates a single TOML profile file.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	if _, err := toml.Decode(string(raw), &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if p.TrustWeight == 0 {
		p.TrustWeight = 1.0
	}
	if err := validate.Struct(p); err != nil {
		return Profile{}, fmt.Errorf("validate profile %s: %w", path, err)
	}
	return p, nil
}

// LoadDir reads every *.toml file in dir and returns the resulting profiles,
// each paired with a content hash used for hot-reload change detection.
func LoadDir(dir string) ([]Profile, map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read source profile directory %s: %w", dir, err)
	}

	var profiles []Profile
	hashes := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		p, err := LoadProfile(path)
		if err != nil {
			return nil, nil, err
		}
		sum := sha256.Sum256(raw)
		profiles = append(profiles, p)
		hashes[p.ID] = hex.EncodeToString(sum[:])
	}
	return profiles, hashes, nil
}

// ToSource converts a validated Profile plus its content hash into the
// persisted model.Source.
func (p Profile) ToSource(profileHash string, userAgent string) model.Source {
	return model.Source{
		ID:            p.ID,
		Name:          p.Name,
		Tier:          model.SourceTier(p.Tier),
		HomepageURL:   p.HomepageURL,
		PollInterval:  time.Duration(p.PollIntervalS) * time.Second,
		FetchStrategy: model.FetchStrategy(p.FetchStrategy),
		Strategy:      model.ContentStrategy(p.Strategy),
		TrustWeight:   p.TrustWeight,
		Enabled:       p.Enabled,
		ProfileHash:   profileHash,
		UpdatedAt:     time.Now().UTC(),

		RateLimitReqPerMin:   p.RateLimitReqPerMin,
		ConcurrencyPerDomain: p.ConcurrencyPerDomain,
	}
}
