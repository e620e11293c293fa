package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/llm"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/pdfdoc"
	"github.com/and161185/signator/internal/repository"
)

// ErrSummariesDisabled is returned when no LLM is configured.
var ErrSummariesDisabled = fmt.Errorf("%w: summaries are not configured", errs.ErrInvalidInput)

// SummaryUnavailable replaces an empty completion.
const SummaryUnavailable = "Summary unavailable."

// Summary output types.
const (
	OutputSummary   = "summary"
	OutputExecutive = "executive"
	OutputTechnical = "technical"
	OutputKeyPoints = "key-points"
)

const defaultPrompt = "Summarize the following document:"

var outputPrompts = map[string]string{
	OutputExecutive: "Create an executive summary of the following document for busy professionals:",
	OutputTechnical: "Create a technical summary of the following document, focusing on technical details, specifications and methodology:",
	OutputKeyPoints: "Extract the most important key points from the following document:",
}

// SummaryOptions tune a regeneration. Zero values take the defaults.
type SummaryOptions struct {
	Model              string
	MaxTokens          int
	OutputType         string
	BulletPoints       bool
	HighlightKeyPoints bool
	CustomPrompt       bool
	PromptText         string
}

// BuildPrompt returns the system prompt for opts. A non-default output type
// wins over a custom prompt.
func BuildPrompt(opts SummaryOptions) (string, error) {
	prompt := defaultPrompt
	if opts.CustomPrompt && strings.TrimSpace(opts.PromptText) != "" {
		prompt = strings.TrimSpace(opts.PromptText)
	}
	switch opts.OutputType {
	case "", OutputSummary:
	case OutputExecutive, OutputTechnical, OutputKeyPoints:
		prompt = outputPrompts[opts.OutputType]
	default:
		return "", errs.Invalid("unknown outputType %q", opts.OutputType)
	}
	if opts.BulletPoints {
		prompt += " Format the output as bullet points."
	}
	if opts.HighlightKeyPoints {
		prompt += " Highlight key terms or important concepts by adding bold formatting using markdown."
	}
	return prompt, nil
}

// SummaryService produces and caches AI summaries of documents.
type SummaryService struct {
	documents *DocumentService
	docs      repository.DocumentRepository
	llm       llm.Completer
	log       *zap.Logger
}

// NewSummaryService constructs SummaryService. A nil completer disables
// generation; cached summaries are still served.
func NewSummaryService(documents *DocumentService, docs repository.DocumentRepository, c llm.Completer, log *zap.Logger) *SummaryService {
	return &SummaryService{documents: documents, docs: docs, llm: c, log: log}
}

// Get returns the cached summary, generating it with default options on first use.
func (s *SummaryService) Get(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (string, error) {
	d, err := s.documents.Get(ctx, cu, id)
	if err != nil {
		return "", err
	}
	if d.Summary != nil && *d.Summary != "" {
		return *d.Summary, nil
	}
	return s.generate(ctx, d, SummaryOptions{})
}

// Regenerate replaces the cached summary. Admin only.
func (s *SummaryService) Regenerate(ctx context.Context, cu model.CurrentUser, id uuid.UUID, opts SummaryOptions) (string, error) {
	if !cu.IsAdmin() {
		return "", errs.ErrAccessDenied
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, d, opts)
}

func (s *SummaryService) generate(ctx context.Context, d *model.Document, opts SummaryOptions) (string, error) {
	if s.llm == nil {
		return "", ErrSummariesDisabled
	}
	if opts.MaxTokens < 0 {
		return "", errs.Invalid("maxTokens must be positive")
	}
	prompt, err := BuildPrompt(opts)
	if err != nil {
		return "", err
	}
	data, err := s.documents.blobs.Get(ctx, d.StorageKey)
	if err != nil {
		return "", err
	}
	text, err := pdfdoc.ExtractText(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errs.Invalid("unable to extract text")
	}

	summary, err := s.llm.Complete(ctx, llm.Request{
		Model:     opts.Model,
		MaxTokens: opts.MaxTokens,
		Messages: []llm.Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil && !errors.Is(err, llm.ErrEmptyCompletion) {
		return "", fmt.Errorf("summarize %s: %w", d.ID, err)
	}
	if strings.TrimSpace(summary) == "" {
		summary = SummaryUnavailable
	}
	if err := s.docs.SetSummary(ctx, d.ID, summary); err != nil {
		return "", err
	}
	s.log.Info("summary generated", zap.String("document_id", d.ID.String()), zap.Int("chars", len(summary)))
	return summary, nil
}
