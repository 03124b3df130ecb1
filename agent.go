package main

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// noResponseSentinel is substituted for a failed or empty model call. It
// flows through the sanitizer and extractor like any other text and decodes
// to an invalid action, so one bad call never aborts a game.
const noResponseSentinel = "no response"

// Generator produces one model reply for one prompt. Implementations must be
// safe for concurrent use; parallel games share a single Generator.
type Generator interface {
	Generate(ctx context.Context, modelID, prompt string) (string, error)
}

type llmGenerator struct {
	cfg      AppConfig
	callOpts []llms.CallOption

	mu     sync.Mutex
	models map[string]llms.Model
}

// newLLMGenerator builds a Generator backed by the configured provider.
// Clients are created lazily per model ID and cached for the process
// lifetime.
func newLLMGenerator(cfg AppConfig) *llmGenerator {
	var opts []llms.CallOption
	if cfg.Temperature != "" {
		if f, err := strconv.ParseFloat(cfg.Temperature, 64); err == nil {
			opts = append(opts, llms.WithTemperature(f))
			log.Printf("Generator: temperature=%.2f", f)
		} else {
			log.Printf("Generator: invalid temperature %q: %v", cfg.Temperature, err)
		}
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	return &llmGenerator{cfg: cfg, callOpts: opts, models: make(map[string]llms.Model)}
}

func (g *llmGenerator) modelFor(modelID string) (llms.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.models[modelID]; ok {
		return m, nil
	}

	var (
		m   llms.Model
		err error
	)
	switch g.cfg.Provider {
	case "ollama":
		m, err = ollama.New(ollama.WithModel(modelID), ollama.WithServerURL(g.cfg.OllamaURL))
	case "claude":
		m, err = anthropic.New(anthropic.WithModel(modelID))
	case "gemini":
		m, err = googleai.New(context.Background(), googleai.WithDefaultModel(modelID))
	case "groq":
		m, err = openai.New(
			openai.WithModel(modelID),
			openai.WithBaseURL("https://api.groq.com/openai/v1"),
			openai.WithToken(g.cfg.GroqAPIKey),
		)
	case "openai":
		m, err = openai.New(openai.WithModel(modelID))
	default: // openai-compatible endpoint, e.g. OpenRouter
		opts := []openai.Option{openai.WithModel(modelID)}
		if g.cfg.APIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(g.cfg.APIBaseURL))
		}
		if g.cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(g.cfg.APIKey))
		}
		m, err = openai.New(opts...)
	}
	if err != nil {
		return nil, err
	}
	g.models[modelID] = m
	return m, nil
}

func (g *llmGenerator) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	m, err := g.modelFor(modelID)
	if err != nil {
		return "", err
	}
	if g.cfg.APITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(g.cfg.APITimeout)*time.Second)
		defer cancel()
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, m, prompt, g.callOpts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// getAgentResponse calls the generator for one player's turn and normalizes
// the outcome. Failures and empty replies become the sentinel, and private
// thinking blocks are stripped before the text goes anywhere else.
func getAgentResponse(ctx context.Context, gen Generator, p *Player, prompt string, logger *AppLogger) string {
	logger.LogPrompt(p.ModelID, prompt)
	raw, err := gen.Generate(ctx, p.ModelID, prompt)
	if err != nil {
		log.Printf("Generator: %s (%s): %v", p.Name, p.ModelID, err)
		raw = noResponseSentinel
	}
	logger.LogResponse(p.ModelID, raw)

	cleaned := stripThinking(raw)
	if cleaned == "" {
		return noResponseSentinel
	}
	return cleaned
}
