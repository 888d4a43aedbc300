package flows

import (
	"context"
	"log"
	"strings"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/similarity"
)

// CompareInput holds the two texts of a text-vs-text comparison.
type CompareInput struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

// CompareResult is the outcome of a text-vs-text comparison.
type CompareResult struct {
	SimilarityScore float64  `json:"similarityScore"`
	MatchedPhrases  []string `json:"matchedPhrases"`
	RunID           string   `json:"runId,omitempty"`
}

// SimilarityResult is the lexical-only score of two texts.
type SimilarityResult struct {
	SimilarityScore float64 `json:"similarityScore"`
}

// Similarity scores two texts lexically without calling the model.
func Similarity(in CompareInput) SimilarityResult {
	return SimilarityResult{SimilarityScore: similarity.Score(in.Text1, in.Text2)}
}

// CompareTexts scores two texts lexically and asks the model for matched phrases.
// The model never decides the score. A failed model call still yields the
// lexical score with no matched phrases.
func (s *Service) CompareTexts(ctx context.Context, in CompareInput) (CompareResult, error) {
	if err := requireText("text1", in.Text1, MinCompareChars); err != nil {
		return CompareResult{}, err
	}
	if err := requireText("text2", in.Text2, MinCompareChars); err != nil {
		return CompareResult{}, err
	}

	ctx, span := startSpan(ctx, FlowCompareTexts)
	result := CompareResult{
		SimilarityScore: similarity.Score(in.Text1, in.Text2),
		MatchedPhrases:  []string{},
	}

	var answer struct {
		MatchedPhrases []string `json:"matchedPhrases"`
	}
	runID, err := s.ask(ctx, FlowCompareTexts, compareSystemPrompt, compareUserPrompt(in.Text1, in.Text2), nil, &answer)
	result.RunID = runID
	endSpan(span, runID, err)
	if err != nil {
		log.Printf("[%s] %s: matched phrases unavailable: %v", runID, FlowCompareTexts, err)
		return result, nil
	}

	for _, p := range answer.MatchedPhrases {
		if p = strings.TrimSpace(p); p != "" {
			result.MatchedPhrases = append(result.MatchedPhrases, p)
		}
	}
	return result, nil
}
