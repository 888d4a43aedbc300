package flows

import (
	"context"
	"fmt"
)

// SentenceStatus classifies one sentence of an advanced check.
type SentenceStatus string

const (
	StatusOriginal            SentenceStatus = "Original"
	StatusPossiblyPlagiarized SentenceStatus = "Possibly Plagiarized"
	StatusLikelyPlagiarized   SentenceStatus = "Likely Plagiarized"
)

// Valid reports whether s is one of the known statuses.
func (s SentenceStatus) Valid() bool {
	switch s {
	case StatusOriginal, StatusPossiblyPlagiarized, StatusLikelyPlagiarized:
		return true
	}
	return false
}

// AdvancedInput is the text to analyze.
type AdvancedInput struct {
	Text string `json:"text"`
}

// SentenceAnalysis is the verdict for one sentence.
type SentenceAnalysis struct {
	Sentence string         `json:"sentence"`
	Status   SentenceStatus `json:"status"`
	Reason   string         `json:"reason"`
}

// RewriteSuggestion offers three rewrites of a flagged passage.
type RewriteSuggestion struct {
	PlagiarizedText     string `json:"plagiarizedText"`
	HumanRewrite        string `json:"humanRewrite"`
	SimplifiedRewrite   string `json:"simplifiedRewrite"`
	ProfessionalRewrite string `json:"professionalRewrite"`
}

// SentenceOriginality counts sentences per status.
type SentenceOriginality struct {
	Original            int `json:"original"`
	PossiblyPlagiarized int `json:"possiblyPlagiarized"`
	LikelyPlagiarized   int `json:"likelyPlagiarized"`
}

// FinalReport summarizes the check.
type FinalReport struct {
	Plagiarism          float64             `json:"plagiarism"`
	Originality         float64             `json:"originality"`
	Paraphrasing        string              `json:"paraphrasing"`
	SentenceOriginality SentenceOriginality `json:"sentenceOriginality"`
	ReadabilityScore    string              `json:"readabilityScore"`
	FixRecommendations  string              `json:"fixRecommendations"`
}

// AdvancedResult is the full plagiarism report for one text.
type AdvancedResult struct {
	OverallPlagiarismPercentage float64             `json:"overallPlagiarismPercentage"`
	ParaphrasingDetected        string              `json:"paraphrasingDetected"`
	UniqueContent               float64             `json:"uniqueContent"`
	SentenceAnalysis            []SentenceAnalysis  `json:"sentenceAnalysis"`
	HighlightedText             string              `json:"highlightedText"`
	SourceTypeGuess             []string            `json:"sourceTypeGuess"`
	RewriteSuggestions          []RewriteSuggestion `json:"rewriteSuggestions"`
	FinalReport                 FinalReport         `json:"finalReport"`
	RunID                       string              `json:"runId,omitempty"`
}

// AdvancedCheck asks the model for a sentence-level plagiarism report.
// Sentence counts in the final report are recomputed from the sentence analysis.
func (s *Service) AdvancedCheck(ctx context.Context, in AdvancedInput) (AdvancedResult, error) {
	if err := requireText("text", in.Text, MinAdvancedChars); err != nil {
		return AdvancedResult{}, err
	}

	ctx, span := startSpan(ctx, FlowAdvancedCheck)
	var result AdvancedResult
	runID, err := s.ask(ctx, FlowAdvancedCheck, advancedSystemPrompt, advancedUserPrompt(in.Text), nil, &result)
	result.RunID = runID
	if err == nil {
		err = result.normalize()
	}
	endSpan(span, runID, err)
	if err != nil {
		return result, fmt.Errorf("flows: advanced check: %w", err)
	}
	return result, nil
}

func (r *AdvancedResult) normalize() error {
	var counts SentenceOriginality
	for i, sa := range r.SentenceAnalysis {
		switch sa.Status {
		case StatusOriginal:
			counts.Original++
		case StatusPossiblyPlagiarized:
			counts.PossiblyPlagiarized++
		case StatusLikelyPlagiarized:
			counts.LikelyPlagiarized++
		default:
			return fmt.Errorf("%w: sentence %d has unknown status %q", ErrModel, i+1, sa.Status)
		}
	}

	r.OverallPlagiarismPercentage = clamp(r.OverallPlagiarismPercentage, 0, 100)
	r.UniqueContent = clamp(r.UniqueContent, 0, 100)
	r.FinalReport.Plagiarism = clamp(r.FinalReport.Plagiarism, 0, 100)
	r.FinalReport.Originality = clamp(r.FinalReport.Originality, 0, 100)
	r.FinalReport.SentenceOriginality = counts
	r.SentenceAnalysis = nonNil(r.SentenceAnalysis)
	r.SourceTypeGuess = nonNil(r.SourceTypeGuess)
	r.RewriteSuggestions = nonNil(r.RewriteSuggestions)
	return nil
}
