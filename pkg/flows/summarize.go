package flows

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Summary length bounds, as a percentage of the original text.
const (
	MinSummaryLength = 10
	MaxSummaryLength = 90
)

// SummarizeInput is the text to summarize and the target length in percent.
type SummarizeInput struct {
	Text          string `json:"text"`
	SummaryLength int    `json:"summaryLength"`
}

// SummarizeResult is the summary with locally counted word totals.
type SummarizeResult struct {
	Summary           string `json:"summary"`
	OriginalWordCount int    `json:"originalWordCount"`
	SummaryWordCount  int    `json:"summaryWordCount"`
	Fallback          bool   `json:"fallback,omitempty"`
	RunID             string `json:"runId,omitempty"`
}

// Summarize asks the model for a summary of roughly SummaryLength percent.
// When the model fails, the first two sentences stand in as the summary.
func (s *Service) Summarize(ctx context.Context, in SummarizeInput) (SummarizeResult, error) {
	if err := requireText("text", in.Text, MinSummaryChars); err != nil {
		return SummarizeResult{}, err
	}
	if in.SummaryLength < MinSummaryLength || in.SummaryLength > MaxSummaryLength {
		return SummarizeResult{}, fmt.Errorf("%w: summaryLength must be between %d and %d",
			ErrInvalidInput, MinSummaryLength, MaxSummaryLength)
	}

	ctx, span := startSpan(ctx, FlowSummarize)
	var answer struct {
		Summary string `json:"summary"`
	}
	runID, err := s.ask(ctx, FlowSummarize, summarizeSystemPrompt,
		summarizeUserPrompt(in.Text, in.SummaryLength), nil, &answer)
	if err == nil && strings.TrimSpace(answer.Summary) == "" {
		err = fmt.Errorf("%w: empty summary", ErrModel)
	}
	endSpan(span, runID, err)

	result := SummarizeResult{
		Summary:           strings.TrimSpace(answer.Summary),
		OriginalWordCount: CountWords(in.Text),
		RunID:             runID,
	}
	if err != nil {
		log.Printf("[%s] %s: using fallback summary: %v", runID, FlowSummarize, err)
		result.Summary = FallbackSummary(in.Text)
		result.Fallback = true
	}
	result.SummaryWordCount = CountWords(result.Summary)
	return result, nil
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// FallbackSummary returns the first two ". "-separated sentences of text,
// ending in a single period.
func FallbackSummary(text string) string {
	sentences := strings.Split(strings.TrimSpace(text), ". ")
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	return strings.TrimRight(strings.Join(sentences, ". "), ".") + "."
}
