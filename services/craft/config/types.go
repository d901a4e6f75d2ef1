// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the wordcraft YAML configuration.
package config

import (
	"path/filepath"
	"time"

	"github.com/AleutianAI/wordcraft/services/craft/generate"
	"github.com/AleutianAI/wordcraft/services/craft/lifecycle"
	"github.com/AleutianAI/wordcraft/services/craft/pathfind"
	"github.com/AleutianAI/wordcraft/services/craft/telemetry"
)

// Config is the root of wordcraft.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Lifecycle  LifecycleConfig  `yaml:"lifecycle"`
	Paths      PathsConfig      `yaml:"paths"`
	Telemetry  telemetry.Config `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`

	// CORSOrigins lists allowed origins. Empty or "*" allows all.
	CORSOrigins []string `yaml:"cors_origins,omitempty"`

	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

type StorageConfig struct {
	// Backend is "badger" (default) or "file".
	Backend string `yaml:"backend" validate:"oneof=badger file"`

	// Path is the badger directory or the JSON document path.
	Path string `yaml:"path" validate:"required"`

	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"min=0"`
}

type LLMConfig struct {
	// Provider is "ollama", "openai" or "llamacpp".
	Provider string `yaml:"provider" validate:"oneof=ollama openai llamacpp"`

	// BaseURL and Model fall back to each provider's own defaults.
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`

	// APIKey is never written by createDefault. Prefer OPENAI_API_KEY.
	APIKey     string `yaml:"api_key,omitempty"`
	SecretPath string `yaml:"secret_path,omitempty"`

	Timeout         time.Duration `yaml:"timeout" validate:"min=0"`
	DisableThinking bool          `yaml:"disable_thinking"`

	// RatePerSecond paces outbound calls. Zero disables pacing.
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=0"`

	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`
}

type GenerationConfig struct {
	Timeout time.Duration   `yaml:"timeout" validate:"gt=0"`
	Limits  generate.Limits `yaml:"limits"`
}

type LifecycleConfig struct {
	UpvoteAccept   int     `yaml:"upvote_accept" validate:"gte=0"`
	DownvoteDelete int     `yaml:"downvote_delete" validate:"gte=0"`
	RevokeRatio    float64 `yaml:"revoke_ratio" validate:"gte=0"`
}

// Thresholds converts the section to lifecycle thresholds.
func (c LifecycleConfig) Thresholds() lifecycle.Thresholds {
	return lifecycle.Thresholds{
		UpvoteAccept:   c.UpvoteAccept,
		DownvoteDelete: c.DownvoteDelete,
		RevokeRatio:    c.RevokeRatio,
	}
}

type PathsConfig struct {
	MaxHops   int `yaml:"max_hops" validate:"min=1,max=100"`
	TrimDelta int `yaml:"trim_delta" validate:"gte=0"`
	MaxPaths  int `yaml:"max_paths" validate:"min=1"`
}

// Options converts the section to path search options.
func (c PathsConfig) Options() []pathfind.Option {
	return []pathfind.Option{
		pathfind.WithMaxHops(c.MaxHops),
		pathfind.WithTrimDelta(c.TrimDelta),
		pathfind.WithMaxPaths(c.MaxPaths),
	}
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"`
}

// DefaultConfig returns the configuration written on first run. dataDir
// holds the badger directory.
func DefaultConfig(dataDir string) Config {
	thresholds := lifecycle.DefaultThresholds()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    "badger",
			Path:       filepath.Join(dataDir, "graph"),
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:      "ollama",
			Timeout:       2 * time.Minute,
			RatePerSecond: 2,
			Burst:         4,
			Temperature:   0.7,
			MaxTokens:     256,
		},
		Generation: GenerationConfig{
			Timeout: generate.DefaultTimeout,
			Limits:  generate.DefaultLimits(),
		},
		Lifecycle: LifecycleConfig{
			UpvoteAccept:   thresholds.UpvoteAccept,
			DownvoteDelete: thresholds.DownvoteDelete,
			RevokeRatio:    thresholds.RevokeRatio,
		},
		Paths: PathsConfig{
			MaxHops:   pathfind.DefaultMaxHops,
			TrimDelta: pathfind.DefaultTrimDelta,
			MaxPaths:  pathfind.DefaultMaxPaths,
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging:   LoggingConfig{Level: "info"},
	}
}
