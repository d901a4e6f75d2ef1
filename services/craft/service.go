// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package craft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/wordcraft/services/craft/config"
	"github.com/AleutianAI/wordcraft/services/craft/generate"
	"github.com/AleutianAI/wordcraft/services/craft/graph"
	"github.com/AleutianAI/wordcraft/services/craft/lifecycle"
	craftdb "github.com/AleutianAI/wordcraft/services/craft/storage/badger"
	"github.com/AleutianAI/wordcraft/services/craft/store"
	"github.com/AleutianAI/wordcraft/services/craft/telemetry"
	"github.com/AleutianAI/wordcraft/services/llm"
)

// Service wires the store, the vote lifecycle and the gatekeeper from a
// Config.
type Service struct {
	Store   *store.Store
	Votes   *lifecycle.Manager
	Gate    *generate.Gatekeeper
	Metrics *telemetry.Metrics

	cfg    config.Config
	logger *slog.Logger
}

type serviceOptions struct {
	backend  store.Backend
	producer generate.Producer
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// ServiceOption configures NewService.
type ServiceOption func(*serviceOptions)

// WithBackend replaces the backend built from the storage section.
func WithBackend(b store.Backend) ServiceOption {
	return func(o *serviceOptions) { o.backend = b }
}

// WithProducer replaces the LLM-backed producer.
func WithProducer(p generate.Producer) ServiceOption {
	return func(o *serviceOptions) { o.producer = p }
}

// WithServiceLogger sets the logger handed to every component.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = l }
}

// WithServiceMetrics registers m as the observer of every component.
func WithServiceMetrics(m *telemetry.Metrics) ServiceOption {
	return func(o *serviceOptions) { o.metrics = m }
}

// NewService opens the storage medium and builds the components.
//
// Description:
//
//	An LLM client that cannot be constructed does not fail startup; the
//	gatekeeper then reports every uncached combination as an external
//	call failure. Storage failures are fatal.
//
// Outputs:
//
//	*Service - Ready service. Close releases the store.
//	error - Backend open or initial load failed.
func NewService(ctx context.Context, cfg config.Config, opts ...ServiceOption) (*Service, error) {
	o := serviceOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	backend := o.backend
	if backend == nil {
		b, err := OpenBackend(cfg.Storage, o.logger)
		if err != nil {
			return nil, err
		}
		backend = b
	}

	storeOpts := []store.Option{store.WithLogger(o.logger)}
	if o.metrics != nil {
		storeOpts = append(storeOpts, store.WithCommitObserver(o.metrics))
	}
	st, err := store.Open(ctx, backend, storeOpts...)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	voteOpts := []lifecycle.Option{
		lifecycle.WithThresholds(cfg.Lifecycle.Thresholds()),
		lifecycle.WithLogger(o.logger),
	}
	if o.metrics != nil {
		voteOpts = append(voteOpts, lifecycle.WithObserver(o.metrics))
	}

	producer := o.producer
	if producer == nil {
		producer = newProducer(cfg.LLM, o.logger)
	}
	gateOpts := []generate.Option{
		generate.WithLimits(cfg.Generation.Limits),
		generate.WithTimeout(cfg.Generation.Timeout),
		generate.WithLogger(o.logger),
	}
	if o.metrics != nil {
		gateOpts = append(gateOpts, generate.WithObserver(o.metrics))
	}

	return &Service{
		Store:   st,
		Votes:   lifecycle.NewManager(st, voteOpts...),
		Gate:    generate.NewGatekeeper(st, producer, gateOpts...),
		Metrics: o.metrics,
		cfg:     cfg,
		logger:  o.logger,
	}, nil
}

// Handlers returns HTTP handlers over the service's components.
func (s *Service) Handlers() *Handlers {
	return NewHandlers(s.Store, s.Votes, s.Gate).
		WithPathOptions(s.cfg.Paths.Options()...).
		WithMetrics(s.Metrics)
}

// Close closes the store and its backend.
func (s *Service) Close() error {
	return s.Store.Close()
}

// OpenBackend builds the storage medium named by cfg.Backend.
func OpenBackend(cfg config.StorageConfig, logger *slog.Logger) (store.Backend, error) {
	switch cfg.Backend {
	case "", "badger":
		dbCfg := craftdb.DefaultConfig(cfg.Path)
		dbCfg.SyncWrites = cfg.SyncWrites
		dbCfg.GCInterval = cfg.GCInterval
		dbCfg.Logger = logger
		b, err := store.OpenBadgerBackend(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrStorageUnavailable, err)
		}
		return b, nil
	case "file":
		return store.NewFileBackend(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewLLMClient builds the client for cfg.Provider, paced by
// cfg.RatePerSecond when positive.
func NewLLMClient(cfg config.LLMConfig) (llm.LLMClient, error) {
	var (
		client llm.LLMClient
		err    error
	)
	switch cfg.Provider {
	case "", "ollama":
		client, err = llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			Timeout:         cfg.Timeout,
			DisableThinking: cfg.DisableThinking,
		})
	case "openai":
		client, err = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			SecretPath: cfg.SecretPath,
		})
	case "llamacpp":
		client, err = llm.NewLocalLlamaCppClient(cfg.BaseURL, cfg.Timeout)
	default:
		err = fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RatePerSecond > 0 {
		client = llm.NewThrottledClient(client, cfg.RatePerSecond, cfg.Burst)
	}
	return client, nil
}

// GenerationParams converts the sampling settings of cfg.
func GenerationParams(cfg config.LLMConfig) llm.GenerationParams {
	var p llm.GenerationParams
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		p.Temperature = &t
	}
	if cfg.MaxTokens > 0 {
		n := cfg.MaxTokens
		p.MaxTokens = &n
	}
	return p
}

// errProducerUnavailable is returned by the fallback producer.
var errProducerUnavailable = errors.New("text generation backend not configured")

func newProducer(cfg config.LLMConfig, logger *slog.Logger) generate.Producer {
	client, err := NewLLMClient(cfg)
	if err != nil {
		logger.Warn("LLM client unavailable, combinations will fail until configured",
			"provider", cfg.Provider, "error", err)
		cause := fmt.Errorf("%w: %w", errProducerUnavailable, err)
		return generate.ProducerFunc(func(context.Context, graph.Node, graph.Node) (generate.Production, error) {
			return generate.Production{}, cause
		})
	}
	return generate.NewLLMProducer(client, GenerationParams(cfg))
}
