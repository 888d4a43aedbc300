// Package server exposes the detective checks as a JSON-over-HTTP API.
// Model-backed routes answer with an x-run-id header and land in history.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/flows"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/history"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("plagiarism-detective/server")

// MaxBodyBytes bounds request bodies; file checks carry base64 data URIs.
const MaxBodyBytes = 20 << 20

// Config holds server configuration.
type Config struct {
	Flows      *flows.Service // prompt flows
	History    *history.Store // optional; nil disables history
	GatewayKey string         // required X-Gateway-Key value; empty disables auth
}

// Handler returns an http.Handler serving the detective API.
func Handler(cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/similarity", func(w http.ResponseWriter, r *http.Request) {
		var in flows.CompareInput
		if !decodePost(w, r, &in) {
			return
		}
		writeJSON(w, http.StatusOK, flows.Similarity(in))
	})

	f := cfg.Flows
	mux.HandleFunc("/api/compare", serveFlow(cfg, flows.FlowCompareTexts, f.CompareTexts,
		func(out flows.CompareResult) string { return out.RunID },
		func(in flows.CompareInput, out flows.CompareResult) history.Entry {
			return history.TextCompare{Input: in, Result: out}
		}))

	mux.HandleFunc("/api/file-check", serveFlow(cfg, flows.FlowFileCheck, f.FileCheck,
		func(out flows.FileCheckResult) string { return out.RunID },
		func(in flows.FileCheckInput, out flows.FileCheckResult) history.Entry {
			return history.FileCompare{
				Input:  history.FileInput{FileName: in.FileName, TextToCompare: in.TextToCompare},
				Result: out,
			}
		}))

	mux.HandleFunc("/api/contextual", serveFlow(cfg, flows.FlowContextual, f.Contextual,
		func(out flows.ContextualResult) string { return out.RunID },
		func(in flows.ContextualInput, out flows.ContextualResult) history.Entry {
			return history.Contextual{Input: in, Result: out}
		}))

	mux.HandleFunc("/api/advanced-check", serveFlow(cfg, flows.FlowAdvancedCheck, f.AdvancedCheck,
		func(out flows.AdvancedResult) string { return out.RunID },
		func(in flows.AdvancedInput, out flows.AdvancedResult) history.Entry {
			return history.Advanced{Input: in, Result: out}
		}))

	mux.HandleFunc("/api/grammar-check", serveFlow(cfg, flows.FlowGrammarCheck, f.GrammarCheck,
		func(out flows.GrammarResult) string { return out.RunID },
		func(in flows.GrammarInput, out flows.GrammarResult) history.Entry {
			return history.Grammar{Input: in, Result: out}
		}))

	mux.HandleFunc("/api/summarize", serveFlow(cfg, flows.FlowSummarize, f.Summarize,
		func(out flows.SummarizeResult) string { return out.RunID },
		func(in flows.SummarizeInput, out flows.SummarizeResult) history.Entry {
			return history.Summary{Input: in, Result: out}
		}))

	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(w, r, cfg.History)
	})

	return requireGatewayKey(cfg.GatewayKey, mux)
}

// serveFlow adapts one flow to a POST handler: decode, run, record history, respond.
func serveFlow[In, Out any](cfg Config, name string,
	run func(context.Context, In) (Out, error),
	runIDOf func(Out) string,
	entryOf func(In, Out) history.Entry,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var in In
		if !decodePost(w, r, &in) {
			return
		}

		ctx, span := tracer.Start(r.Context(), "http."+name,
			trace.WithAttributes(attribute.String("http.route", r.URL.Path)))
		defer span.End()

		out, err := run(ctx, in)
		runID := runIDOf(out)
		if runID != "" {
			w.Header().Set("x-run-id", runID)
		}
		if err != nil {
			code := statusFor(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.Int("http.status_code", code))
			log.Printf("[%s] %s status=%d duration=%dms error=%v",
				runID, r.URL.Path, code, time.Since(start).Milliseconds(), err)
			writeError(w, code, errorMessage(code, err))
			return
		}

		if cfg.History != nil {
			if err := cfg.History.Add(ctx, history.NewItem(entryOf(in, out))); err != nil {
				log.Printf("[%s] WARN: history add: %v", runID, err)
			}
		}

		span.SetAttributes(attribute.Int("http.status_code", http.StatusOK))
		log.Printf("[%s] %s status=%d duration=%dms", runID, r.URL.Path, http.StatusOK, time.Since(start).Milliseconds())
		writeJSON(w, http.StatusOK, out)
	}
}

func handleHistory(w http.ResponseWriter, r *http.Request, store *history.Store) {
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := store.List(r.Context())
		if err != nil {
			log.Printf("history list: %v", err)
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodDelete:
		if err := store.Clear(r.Context()); err != nil {
			log.Printf("history clear: %v", err)
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// decodePost checks the method and decodes the JSON body into v.
// It writes the error response itself and reports whether to continue.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "failed to read request")
		return false
	}
	r.Body.Close()
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

// statusFor maps a flow error to a response code. Context errors are checked
// before ErrModel since model failures wrap them.
func statusFor(err error) int {
	switch {
	case errors.Is(err, flows.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, flows.ErrModel):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorMessage is the client-facing text for code. Only validation errors
// are echoed; upstream detail stays in the log line.
func errorMessage(code int, err error) string {
	switch code {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusGatewayTimeout:
		return "request timed out"
	case http.StatusBadGateway:
		return "model call failed"
	}
	return "internal error"
}

// requireGatewayKey rejects requests without the configured X-Gateway-Key.
// /health stays open for probes.
func requireGatewayKey(key string, next http.Handler) http.Handler {
	if key == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			got := r.Header.Get("X-Gateway-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing X-Gateway-Key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
