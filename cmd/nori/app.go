package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/inforens/nori/internal/api"
	"github.com/inforens/nori/internal/config"
	"github.com/inforens/nori/internal/corpus"
	"github.com/inforens/nori/internal/gateway"
	"github.com/inforens/nori/internal/memory"
	"github.com/inforens/nori/internal/policy"
	"github.com/inforens/nori/internal/storage"
	"github.com/inforens/nori/internal/workflow"
)

// app is the fully wired server side.
type app struct {
	model        string
	chat         *workflow.Chat
	scholarships *workflow.Scholarships
	sop          *workflow.SOPWriter
	cv           *workflow.CVBuilder
	store        *storage.Store
}

func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// newCompleter builds the configured completion backend and reports the
// model it defaults to.
func newCompleter(ctx context.Context, cfg config.CompletionConfig) (gateway.Completer, string, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, "", err
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := gateway.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, "", err
		}
		g.WithTimeout(timeout)
		return g, g.Model(), nil
	case config.ProviderOpenAI, "":
		c := gateway.NewClient(cfg.APIKey)
		if cfg.BaseURL != "" {
			c = gateway.NewClientWithBaseURL(cfg.APIKey, cfg.BaseURL)
		}
		c.WithModel(cfg.Model).WithTimeout(timeout)
		return c, c.Model(), nil
	default:
		return nil, "", fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	pol, err := policy.Load(cfg.Policy.Path)
	if err != nil {
		// Load still returns usable defaults.
		slog.Warn("policy file ignored, using defaults", "error", err)
	}

	c, err := corpus.Load(cfg.Corpus.Path, pol.FallbackURLs()...)
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		printWarning("no reference content at %s; chat will answer with a fixed notice", cfg.Corpus.Path)
	}

	completer, model, err := newCompleter(ctx, cfg.Completion)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	logger := slog.Default()
	return &app{
		model: model,
		chat: workflow.NewChat(workflow.ChatConfig{
			Completer:     completer,
			Corpus:        c,
			Policy:        pol,
			Memory:        memory.NewInMemory(cfg.Memory.MaxTurns),
			ContextTokens: cfg.Corpus.MaxTokens,
			Logger:        logger,
		}),
		scholarships: workflow.NewScholarships(completer, logger),
		sop:          workflow.NewSOPWriter(completer, logger),
		cv:           workflow.NewCVBuilder(completer, logger),
		store:        store,
	}, nil
}

func (a *app) apiDeps() api.Deps {
	return api.Deps{
		Chat:         a.chat,
		Scholarships: a.scholarships,
		SOP:          a.sop,
		CV:           a.cv,
		Store:        a.store,
		Model:        a.model,
	}
}

func (a *app) mcpDeps() api.MCPDeps {
	return api.MCPDeps{
		Chat:         a.chat,
		Scholarships: a.scholarships,
		SOP:          a.sop,
		Store:        a.store,
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
