package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/similarity"
)

// DefaultReferenceDatabase is compared against when a request brings no references.
var DefaultReferenceDatabase = []string{
	"The quick brown fox jumps over the lazy dog. This is a classic sentence used for typography samples.",
	"In the field of computer science, algorithms are the cornerstone of efficient problem-solving. Key examples include sorting algorithms like quicksort and mergesort.",
	"William Shakespeare's play 'Hamlet' explores themes of revenge, madness, and moral corruption. The protagonist, Prince Hamlet, is one of the most complex characters in literature.",
	"The theory of relativity, developed by Albert Einstein, revolutionized our understanding of space, time, gravity, and the universe. It consists of two major theories: special relativity and general relativity.",
	"Climate change is a long-term change in the average weather patterns that have come to define Earth's local, regional and global climates. These changes have a broad range of observed effects that are synonymous with the term.",
}

// ContextualInput holds a text and the references to compare it against.
type ContextualInput struct {
	InputText         string   `json:"inputText"`
	ReferenceDatabase []string `json:"referenceDatabase,omitempty"`
}

// ContextualMatch is the verdict for one reference text.
type ContextualMatch struct {
	ReferenceText   string  `json:"referenceText"`
	SimilarityScore float64 `json:"similarityScore"`
	IsPlagiarized   bool    `json:"isPlagiarized"`
	LexicalScore    float64 `json:"lexicalScore"`
}

// ContextualResult lists one match per reference the model judged.
type ContextualResult struct {
	SimilarityResults []ContextualMatch `json:"similarityResults"`
	RunID             string            `json:"runId,omitempty"`
}

// Contextual asks the model to judge the input against every reference text.
// Each match also carries the lexical score so callers can weigh the two.
func (s *Service) Contextual(ctx context.Context, in ContextualInput) (ContextualResult, error) {
	if err := requireText("inputText", in.InputText, MinContextualChars); err != nil {
		return ContextualResult{}, err
	}

	refs := make([]string, 0, len(in.ReferenceDatabase))
	for _, r := range in.ReferenceDatabase {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}
	if len(refs) == 0 {
		refs = DefaultReferenceDatabase
	}

	ctx, span := startSpan(ctx, FlowContextual)
	var result ContextualResult
	runID, err := s.ask(ctx, FlowContextual, contextualSystemPrompt,
		contextualUserPrompt(in.InputText, refs), nil, &result)
	result.RunID = runID
	endSpan(span, runID, err)
	if err != nil {
		return result, fmt.Errorf("flows: contextual analysis: %w", err)
	}

	result.SimilarityResults = nonNil(result.SimilarityResults)
	for i := range result.SimilarityResults {
		m := &result.SimilarityResults[i]
		m.SimilarityScore = clamp(m.SimilarityScore, 0, 1)
		m.LexicalScore = similarity.Score(in.InputText, m.ReferenceText)
	}
	return result, nil
}
