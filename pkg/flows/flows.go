// Package flows implements the prompt-backed checks: text comparison, file
// comparison, contextual analysis, advanced plagiarism analysis, grammar
// checking and summarization. Each flow builds a prompt, sends it through a
// Completer, decodes the JSON answer into a typed result and repairs the
// fields it can compute locally.
package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("plagiarism-detective/flows")

var (
	// ErrInvalidInput marks input rejected before any model call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModel marks a failed or unusable model answer.
	ErrModel = errors.New("model call failed")
)

// Minimum trimmed input lengths, in characters.
const (
	MinCompareChars    = 50
	MinFileTextChars   = 50
	MinContextualChars = 100
	MinAdvancedChars   = 100
	MinGrammarChars    = 10
	MinSummaryChars    = 50
)

// Completer sends one JSON-mode prompt to a model.
type Completer interface {
	CompleteJSON(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Service runs flows against a model.
type Service struct {
	model Completer
}

// New returns a Service backed by model.
func New(model Completer) *Service {
	return &Service{model: model}
}

// ask runs one prompt and decodes the answer into out.
// The run ID is returned even when the call fails.
func (s *Service) ask(ctx context.Context, flow, system, user string, files []string, out any) (string, error) {
	resp, err := s.model.CompleteJSON(ctx, llm.Request{
		Flow:   flow,
		System: system,
		User:   user,
		Files:  files,
	})
	if err != nil {
		return resp.RunID, fmt.Errorf("%w: %w", ErrModel, err)
	}
	if err := llm.DecodeLLMJSON(resp.Content, out); err != nil {
		return resp.RunID, fmt.Errorf("%w: parse payload: %w", ErrModel, err)
	}
	return resp.RunID, nil
}

func startSpan(ctx context.Context, flow string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flow."+flow, trace.WithAttributes(attribute.String("flow.name", flow)))
}

func endSpan(span trace.Span, runID string, err error) {
	if runID != "" {
		span.SetAttributes(attribute.String("gen_ai.run.id", runID))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func requireText(field, text string, minChars int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if n < minChars {
		return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidInput, field, minChars)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v != v: // NaN
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
