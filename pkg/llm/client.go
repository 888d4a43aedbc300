package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/recorder"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/vault"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ChatCompletionsPath is appended to the provider URL for every call.
	ChatCompletionsPath = "/v1/chat/completions"

	DefaultProviderURL = "https://api.openai.com"
	DefaultModel       = "gpt-4o-mini"

	jsonResponseType      = "json_object"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
)

var tracer = otel.Tracer("plagiarism-detective/llm")

// Config captures the settings needed to talk to the model provider.
type Config struct {
	APIKey         string
	ProviderURL    string // e.g. https://api.openai.com
	Model          string
	TimeoutSeconds int
}

// Client wraps an OpenAI-compatible chat completions API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	vault      *vault.Client
	recorder   *recorder.Writer

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithVault stores raw request and response bodies of every call.
func WithVault(vc *vault.Client) Option {
	return func(c *Client) {
		c.vault = vc
	}
}

// WithRecorder writes a run record for every call.
func WithRecorder(w *recorder.Writer) Option {
	return func(c *Client) {
		c.recorder = w
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			ProviderURL:    strings.TrimRight(strings.TrimSpace(cfg.ProviderURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.ProviderURL == "" {
		client.cfg.ProviderURL = DefaultProviderURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = DefaultModel
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Request is one prompt sent to the model.
type Request struct {
	Flow   string   // name of the calling flow, recorded with the run
	System string   // system prompt
	User   string   // user prompt
	Files  []string // data URIs attached after the user prompt
}

// Response is the model's JSON answer plus run metadata.
type Response struct {
	RunID   string
	Content string
	Model   string
	Tokens  recorder.Tokens
}

// CompleteJSON issues a JSON-only chat completion request.
// The returned Response carries the run ID even when err is non-nil.
func (c *Client) CompleteJSON(ctx context.Context, req Request) (Response, error) {
	runID := uuid.New().String()
	out := Response{RunID: runID}

	system := strings.TrimSpace(req.System)
	user := strings.TrimSpace(req.User)
	if system == "" {
		return out, errors.New("llm complete: system prompt required")
	}
	if user == "" {
		return out, errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return out, errors.New("llm complete: api key required")
	}

	content, err := userContent(user, req.Files)
	if err != nil {
		return out, fmt.Errorf("llm complete: %w", err)
	}

	start := time.Now()
	provider := InferProvider(c.cfg.Model, c.cfg.ProviderURL)
	ctx, span := tracer.Start(ctx, "llm.call",
		trace.WithAttributes(
			attribute.String("gen_ai.run.id", runID),
			attribute.String("gen_ai.flow", req.Flow),
			attribute.String("gen_ai.request.model", c.cfg.Model),
			attribute.String("gen_ai.system", provider),
		),
	)
	defer span.End()

	body, err := json.Marshal(chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: content},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	})
	if err != nil {
		return out, fmt.Errorf("llm complete: encode body: %w", err)
	}

	res := c.completeWithRetry(ctx, body, "llm complete")
	out.Content = res.content
	out.Model = res.completion.Model
	out.Tokens = res.tokens()

	span.SetAttributes(
		attribute.Int("gen_ai.attempts", res.attempts),
		attribute.Int("gen_ai.usage.prompt_tokens", out.Tokens.Prompt),
		attribute.Int("gen_ai.usage.completion_tokens", out.Tokens.Completion),
		attribute.String("gen_ai.response.model", out.Model),
		attribute.Int64("gen_ai.duration_ms", time.Since(start).Milliseconds()),
	)

	status := "success"
	errMsg := ""
	if res.err != nil {
		status = "error"
		errMsg = res.err.Error()
		span.RecordError(res.err)
		span.SetStatus(codes.Error, errMsg)
	}

	c.record(ctx, span, req.Flow, provider, runID, body, res, start, status, errMsg)

	log.Printf("[%s] %s model=%s tokens=%d attempts=%d duration=%dms status=%s",
		runID, req.Flow, c.cfg.Model, out.Tokens.Total, res.attempts, time.Since(start).Milliseconds(), status)

	if res.err != nil {
		return out, res.err
	}
	return out, nil
}

// record vaults the final request/response bodies and writes the run record.
// Both sinks are optional; failures are logged and never fail the call.
func (c *Client) record(ctx context.Context, span trace.Span, flow, provider, runID string,
	reqBody []byte, res attemptResult, start time.Time, status, errMsg string) {

	var reqRef, respRef vault.Ref
	if c.vault != nil {
		var err error
		if reqRef, err = c.vault.Store(ctx, runID, "request.json", reqBody); err != nil {
			log.Printf("[%s] vault request: %v", runID, err)
		}
		if len(res.body) > 0 {
			if respRef, err = c.vault.Store(ctx, runID, "response.json", res.body); err != nil {
				log.Printf("[%s] vault response: %v", runID, err)
			}
		}
	}

	if c.recorder == nil {
		return
	}

	traceID := ""
	if sc := span.SpanContext(); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}

	rec := recorder.Record{
		RunID:            runID,
		TraceID:          traceID,
		Timestamp:        start.UTC(),
		Flow:             flow,
		Model:            c.cfg.Model,
		Provider:         provider,
		Endpoint:         ChatCompletionsPath,
		RequestVaultRef:  reqRef.URI,
		ResponseVaultRef: respRef.URI,
		RequestChecksum:  reqRef.Checksum,
		ResponseChecksum: respRef.Checksum,
		Tokens:           res.tokens(),
		Attempts:         res.attempts,
		DurationMS:       time.Since(start).Milliseconds(),
		Status:           status,
		Error:            errMsg,
	}
	if err := c.recorder.Write(rec); err != nil {
		log.Printf("[%s] write run record: %v", runID, err)
	}
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role string `json:"role"`
	// Content is either a string or a []contentPart.
	Content any `json:"content"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when stream=false.
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls"`
	Refusal   string     `json:"refusal"`
}

type toolCall struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.Refusal, e.Snippet)
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

type attemptResult struct {
	content    string
	completion chatCompletionResponse
	body       []byte
	attempts   int
	err        error
}

func (r attemptResult) tokens() recorder.Tokens {
	if r.completion.Usage == nil {
		return recorder.Tokens{}
	}
	return recorder.Tokens{
		Prompt:     r.completion.Usage.PromptTokens,
		Completion: r.completion.Usage.CompletionTokens,
		Total:      r.completion.Usage.TotalTokens,
	}
}

func (c *Client) completeWithRetry(ctx context.Context, reqBody []byte, op string) attemptResult {
	maxAttempts := c.retryAttempts()
	var res attemptResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.attempts = attempt
		completion, body, err := c.sendOnce(ctx, reqBody)
		res.completion = completion
		res.body = body
		if err == nil {
			content, finishReason := extractContent(completion)
			if content != "" {
				res.content = content
				res.err = nil
				return res
			}
			if len(completion.Choices) == 0 {
				err = fmt.Errorf("%s: empty choices", op)
			} else {
				err = &emptyContentError{
					Op:           op,
					FinishReason: finishReason,
					Refusal:      extractRefusal(completion),
					Snippet:      summarizePayloadSnippet(string(body)),
				}
			}
		}
		res.err = err

		delay, retry := c.retryDelay(ctx, err, attempt, maxAttempts)
		if !retry {
			if attempt > 1 {
				res.err = fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return res
		}
		if serr := c.sleep(ctx, delay); serr != nil {
			res.err = serr
			return res
		}
	}
	return res
}

func (c *Client) sendOnce(ctx context.Context, reqBody []byte) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.ProviderURL+ChatCompletionsPath, bytes.NewReader(reqBody))
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}

func extractContent(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, finishReason
		}
		for _, calls := range [][]toolCall{choice.Message.ToolCalls, choice.Delta.ToolCalls} {
			for _, call := range calls {
				if args := strings.TrimSpace(call.Function.Arguments); args != "" {
					return args, finishReason
				}
			}
		}
	}
	return "", finishReason
}

func extractRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) timeoutDuration() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
