// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultDir returns $WORDCRAFT_HOME, or ~/.wordcraft.
func DefaultDir() (string, error) {
	if dir := os.Getenv("WORDCRAFT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".wordcraft"), nil
}

// DefaultPath returns $WORDCRAFT_CONFIG, or wordcraft.yaml in DefaultDir.
func DefaultPath() (string, error) {
	if p := os.Getenv("WORDCRAFT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "wordcraft.yaml"), nil
}

// LoadDotEnv loads KEY=VALUE files into the environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration at path.
//
// Description:
//
//	On first run the file is created from DefaultConfig. Keys absent from
//	the file keep their defaults. Environment overrides are applied after
//	parsing and the result is validated.
//
// Inputs:
//
//	path - Config file path. Empty means DefaultPath().
//
// Outputs:
//
//	Config - The effective configuration.
//	error - Read, parse or validation failure (ErrInvalidConfig).
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg := DefaultConfig(filepath.Dir(path))

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Info("first run detected, creating config", "path", path)
		if err := createDefault(path, cfg); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section's constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func createDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	cfg.LLM.APIKey = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnv overrides file values from the environment. Provider variables
// such as OLLAMA_MODEL apply only to the selected provider, and
// WORDCRAFT_LLM_MODEL overrides them.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "WORDCRAFT_ADDR")
	setString(&cfg.Storage.Backend, "WORDCRAFT_STORAGE_BACKEND")
	setString(&cfg.Storage.Path, "WORDCRAFT_STORAGE_PATH")
	setString(&cfg.LLM.Provider, "WORDCRAFT_LLM_PROVIDER")
	setString(&cfg.Logging.Level, "WORDCRAFT_LOG_LEVEL")
	setString(&cfg.Telemetry.Environment, "WORDCRAFT_ENV")
	setString(&cfg.Telemetry.TraceExporter, "OTEL_TRACES_EXPORTER")
	setString(&cfg.Telemetry.MetricExporter, "OTEL_METRICS_EXPORTER")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("WORDCRAFT_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	switch cfg.LLM.Provider {
	case "ollama":
		setString(&cfg.LLM.BaseURL, "OLLAMA_BASE_URL")
		setString(&cfg.LLM.Model, "OLLAMA_MODEL")
	case "openai":
		setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
		setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	case "llamacpp":
		setString(&cfg.LLM.BaseURL, "LLM_SERVICE_URL_BASE")
	}

	// The product-level model wins over provider variables.
	setString(&cfg.LLM.Model, "WORDCRAFT_LLM_MODEL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
