package flows

import (
	"context"
	"fmt"
)

// GrammarInput is the text to check.
type GrammarInput struct {
	Text string `json:"text"`
}

// Correction is one change made to the text.
type Correction struct {
	Original    string `json:"original"`
	Corrected   string `json:"corrected"`
	Explanation string `json:"explanation"`
}

// GrammarReport summarizes the corrections.
type GrammarReport struct {
	TotalCorrections       int    `json:"totalCorrections"`
	ReadabilityScoreBefore string `json:"readabilityScoreBefore"`
	ReadabilityScoreAfter  string `json:"readabilityScoreAfter"`
	Summary                string `json:"summary"`
}

// GrammarResult is the corrected text plus a list of every change.
type GrammarResult struct {
	CorrectedText string        `json:"correctedText"`
	Corrections   []Correction  `json:"corrections"`
	Report        GrammarReport `json:"report"`
	RunID         string        `json:"runId,omitempty"`
}

// GrammarCheck asks the model to correct grammar, spelling and punctuation.
func (s *Service) GrammarCheck(ctx context.Context, in GrammarInput) (GrammarResult, error) {
	if err := requireText("text", in.Text, MinGrammarChars); err != nil {
		return GrammarResult{}, err
	}

	ctx, span := startSpan(ctx, FlowGrammarCheck)
	var result GrammarResult
	runID, err := s.ask(ctx, FlowGrammarCheck, grammarSystemPrompt, grammarUserPrompt(in.Text), nil, &result)
	result.RunID = runID
	endSpan(span, runID, err)
	if err != nil {
		return result, fmt.Errorf("flows: grammar check: %w", err)
	}

	result.Corrections = nonNil(result.Corrections)
	result.Report.TotalCorrections = len(result.Corrections)
	if result.CorrectedText == "" && len(result.Corrections) == 0 {
		result.CorrectedText = in.Text
	}
	return result, nil
}
