package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/mortarhq/mortar/pkg/formatting"
)

// AIBackend extracts rate sheets by sending a text transcript of the PDF
// to a language model and parsing the structured JSON response.
type AIBackend struct {
	cfg                *gaconfig.AgentConfig
	logger             *slog.Logger
	maxTranscriptChars int
}

// NewAIBackend creates an AI extraction backend from an agent configuration.
func NewAIBackend(cfg *gaconfig.AgentConfig, logger *slog.Logger, maxTranscriptChars int) *AIBackend {
	return &AIBackend{
		cfg:                cfg,
		logger:             logger.With("backend", "ai"),
		maxTranscriptChars: maxTranscriptChars,
	}
}

// Name identifies the backend in rate-sheet processing logs.
func (b *AIBackend) Name() string { return "ai" }

// Extract renders the PDF transcript, prompts the model, and parses the
// response. A malformed response gets one stricter retry before the
// sheet fails.
func (b *AIBackend) Extract(ctx context.Context, in Input) (*Document, error) {
	transcript, err := Transcript(in.Data, b.maxTranscriptChars)
	if err != nil {
		return nil, err
	}

	doc, err := b.extractOnce(ctx, in, transcript, false)
	if err == nil {
		return doc, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	b.logger.Warn("retrying extraction with strict prompt",
		"lender_id", in.LenderID,
		"file", in.Filename,
		"error", err,
	)

	return b.extractOnce(ctx, in, transcript, true)
}

func (b *AIBackend) extractOnce(ctx context.Context, in Input, transcript string, retry bool) (*Document, error) {
	a, err := agent.New(b.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create agent: %w", ErrExtraction, err)
	}

	resp, err := a.Chat(ctx, composePrompt(in, transcript, retry))
	if err != nil {
		return nil, fmt.Errorf("%w: chat call: %w", ErrExtraction, err)
	}

	doc, err := formatting.Parse[Document](resp.Content())
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %w", ErrExtraction, err)
	}

	return &doc, nil
}
