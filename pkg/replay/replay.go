// Package replay re-issues a recorded model call against the provider and
// reports how far the new answer drifted from the recorded one.
package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/llm"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/recorder"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/similarity"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/vault"
)

// DriftThreshold is the lexical similarity below which a replay counts as drift.
const DriftThreshold = 0.80

// Fetcher reads vaulted objects by vault:// URI. *vault.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Result holds the outcome of a replay.
type Result struct {
	RunID          string  `json:"run_id"`
	Flow           string  `json:"flow,omitempty"`
	OriginalModel  string  `json:"original_model"`
	ReplayModel    string  `json:"replay_model"`
	Drift          bool    `json:"drift"`
	DriftSummary   string  `json:"drift_summary,omitempty"`
	OriginalTokens int     `json:"original_tokens"`
	ReplayTokens   int     `json:"replay_tokens"`
	Similarity     float64 `json:"similarity"` // lexical cosine, 0.0–1.0
}

// Options configures a replay.
type Options struct {
	ProviderURL string       // upstream provider for replay
	Vault       Fetcher      // to fetch original request/response
	APIKey      string       // provider API key for replay
	Model       string       // optional model override
	HTTPClient  *http.Client // defaults to http.DefaultClient
}

// Run fetches the vaulted request of rec, replays it and compares answers.
func Run(ctx context.Context, rec recorder.Record, opts Options) (Result, error) {
	result := Result{
		RunID:          rec.RunID,
		Flow:           rec.Flow,
		OriginalModel:  rec.Model,
		OriginalTokens: rec.Tokens.Total,
	}
	if opts.Vault == nil {
		return result, errors.New("replay: vault required")
	}
	if rec.RequestVaultRef == "" {
		return result, errors.New("replay: no request vault ref in run record")
	}

	reqData, err := opts.Vault.Fetch(ctx, rec.RequestVaultRef)
	if err != nil {
		return result, fmt.Errorf("replay: fetch request: %w", err)
	}
	if rec.RequestChecksum != "" && !vault.VerifyChecksum(reqData, rec.RequestChecksum) {
		return result, errors.New("replay: request checksum mismatch (tampered?)")
	}

	var originalResp []byte
	if rec.ResponseVaultRef != "" {
		originalResp, err = opts.Vault.Fetch(ctx, rec.ResponseVaultRef)
		if err != nil {
			return result, fmt.Errorf("replay: fetch response: %w", err)
		}
		if rec.ResponseChecksum != "" && !vault.VerifyChecksum(originalResp, rec.ResponseChecksum) {
			return result, errors.New("replay: response checksum mismatch (tampered?)")
		}
	}

	if opts.Model != "" {
		if reqData, err = overrideModel(reqData, opts.Model); err != nil {
			return result, err
		}
	}

	providerURL := strings.TrimRight(opts.ProviderURL, "/")
	if providerURL == "" {
		providerURL = llm.DefaultProviderURL
	}
	endpoint := rec.Endpoint
	if endpoint == "" {
		endpoint = llm.ChatCompletionsPath
	}

	replayReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		providerURL+endpoint, bytes.NewReader(reqData))
	if err != nil {
		return result, fmt.Errorf("replay: create request: %w", err)
	}
	replayReq.Header.Set("Content-Type", "application/json")
	if opts.APIKey != "" {
		replayReq.Header.Set("Authorization", "Bearer "+opts.APIKey)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(replayReq)
	if err != nil {
		return result, fmt.Errorf("replay: upstream: %w", err)
	}
	defer resp.Body.Close()

	replayBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("replay: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("replay: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(replayBody)))
	}

	var replayParsed struct {
		Model string `json:"model"`
		Usage *struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(replayBody, &replayParsed); err == nil {
		result.ReplayModel = replayParsed.Model
		if replayParsed.Usage != nil {
			result.ReplayTokens = replayParsed.Usage.TotalTokens
		}
	}

	originalContent := extractContent(originalResp)
	replayContent := extractContent(replayBody)

	result.Similarity = contentSimilarity(originalContent, replayContent)
	result.Drift = result.Similarity < DriftThreshold
	if result.Drift {
		result.DriftSummary = fmt.Sprintf(
			"similarity=%.2f (threshold=%.2f); original=%d chars, replay=%d chars",
			result.Similarity, DriftThreshold, len(originalContent), len(replayContent))
	}

	return result, nil
}

// overrideModel rewrites the model field of a chat completion request.
func overrideModel(reqData []byte, model string) ([]byte, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(reqData, &body); err != nil {
		return nil, fmt.Errorf("replay: decode request: %w", err)
	}
	m, _ := json.Marshal(model)
	body["model"] = m
	out, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("replay: encode request: %w", err)
	}
	return out, nil
}

// extractContent pulls the assistant message content from an OpenAI response.
func extractContent(data []byte) string {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &resp); err == nil && len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content
	}
	return string(data)
}

// contentSimilarity scores two answers lexically. Two empty answers match.
func contentSimilarity(a, b string) float64 {
	if strings.TrimSpace(a) == "" && strings.TrimSpace(b) == "" {
		return 1.0
	}
	return similarity.Score(a, b)
}
