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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var envKeys = []string{
	"WORDCRAFT_HOME", "WORDCRAFT_CONFIG", "WORDCRAFT_ADDR", "WORDCRAFT_STORAGE_BACKEND",
	"WORDCRAFT_STORAGE_PATH", "WORDCRAFT_LLM_PROVIDER", "WORDCRAFT_LLM_MODEL",
	"WORDCRAFT_LOG_LEVEL", "WORDCRAFT_ENV", "WORDCRAFT_CORS_ORIGINS",
	"OTEL_TRACES_EXPORTER", "OTEL_METRICS_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"OLLAMA_BASE_URL", "OLLAMA_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "LLM_SERVICE_URL_BASE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_FirstRunCreatesDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "wordcraft.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "graph"), cfg.Storage.Path)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 48, cfg.Generation.Limits.MaxLength)
	assert.Equal(t, 9, cfg.Lifecycle.UpvoteAccept)
	assert.Equal(t, 10, cfg.Paths.MaxHops)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "wordcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
storage:
  backend: file
  path: /tmp/words.json
generation:
  timeout: 5s
  limits:
    max_length: 20
    max_words: 3
    max_hyphens: 1
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 20, cfg.Generation.Limits.MaxLength)
	assert.Equal(t, 4, cfg.Lifecycle.DownvoteDelete)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "wordcraft.yaml")
	t.Setenv("WORDCRAFT_ADDR", "127.0.0.1:7000")
	t.Setenv("WORDCRAFT_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OLLAMA_MODEL", "ignored-for-openai")
	t.Setenv("WORDCRAFT_CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("OTEL_METRICS_EXPORTER", "none")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "none", cfg.Telemetry.MetricExporter)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-test")
}

func TestLoad_ModelPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "wordcraft.yaml")
	t.Setenv("WORDCRAFT_LLM_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "from-ollama")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-ollama", cfg.LLM.Model)

	t.Setenv("WORDCRAFT_LLM_MODEL", "from-wordcraft")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-wordcraft", cfg.LLM.Model)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
	}{
		{"bad backend", "storage:\n  backend: postgres\n"},
		{"bad provider", "llm:\n  provider: carrier-pigeon\n"},
		{"hops over limit", "paths:\n  max_hops: 500\n"},
		{"zero max length", "generation:\n  limits:\n    max_length: 0\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"zero timeout", "generation:\n  timeout: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "wordcraft.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0600))

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "wordcraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestDefaultPath_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORDCRAFT_HOME", "/srv/wordcraft")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/wordcraft", "wordcraft.yaml"), p)

	t.Setenv("WORDCRAFT_CONFIG", "/etc/wordcraft.yaml")
	p, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/wordcraft.yaml", p)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OLLAMA_MODEL=llama3\nWORDCRAFT_ADDR=:1234\n"), 0600))
	t.Setenv("WORDCRAFT_ADDR", ":5555")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))

	assert.Equal(t, "llama3", os.Getenv("OLLAMA_MODEL"))
	assert.Equal(t, ":5555", os.Getenv("WORDCRAFT_ADDR"), "existing variables win")
	os.Unsetenv("OLLAMA_MODEL")
}

func TestDefaultConfig_RoundTripsThroughYAML(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig("/data")
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)
	require.NoError(t, back.Validate())
}

func TestSectionConversions(t *testing.T) {
	cfg := DefaultConfig("/data")
	th := cfg.Lifecycle.Thresholds()
	assert.Equal(t, 9, th.UpvoteAccept)
	assert.InDelta(t, 0.75, th.RevokeRatio, 1e-9)
	assert.Len(t, cfg.Paths.Options(), 3)
}
