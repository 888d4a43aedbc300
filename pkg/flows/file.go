package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/llm"
)

// FileCheckInput holds an uploaded file and the text to compare it with.
type FileCheckInput struct {
	FileName      string `json:"fileName"`
	FileDataURI   string `json:"fileDataUri"`
	TextToCompare string `json:"textToCompare"`
}

// FileCheckResult is the model's comparison of a file and a text.
type FileCheckResult struct {
	SimilarityPercentage float64  `json:"similarityPercentage"`
	MatchedPhrases       []string `json:"matchedPhrases"`
	RunID                string   `json:"runId,omitempty"`
}

// FileCheck sends the file to the model as an attachment alongside the text.
func (s *Service) FileCheck(ctx context.Context, in FileCheckInput) (FileCheckResult, error) {
	if strings.TrimSpace(in.FileDataURI) == "" {
		return FileCheckResult{}, fmt.Errorf("%w: fileDataUri is required", ErrInvalidInput)
	}
	if _, err := llm.ParseDataURI(in.FileDataURI); err != nil {
		return FileCheckResult{}, fmt.Errorf("%w: fileDataUri: %w", ErrInvalidInput, err)
	}
	if err := requireText("textToCompare", in.TextToCompare, MinFileTextChars); err != nil {
		return FileCheckResult{}, err
	}

	ctx, span := startSpan(ctx, FlowFileCheck)
	var result FileCheckResult
	runID, err := s.ask(ctx, FlowFileCheck, fileCheckSystemPrompt,
		fileCheckUserPrompt(in.FileName, in.TextToCompare), []string{in.FileDataURI}, &result)
	result.RunID = runID
	endSpan(span, runID, err)
	if err != nil {
		return result, fmt.Errorf("flows: file check: %w", err)
	}

	result.SimilarityPercentage = clamp(result.SimilarityPercentage, 0, 100)
	result.MatchedPhrases = nonNil(result.MatchedPhrases)
	return result, nil
}
