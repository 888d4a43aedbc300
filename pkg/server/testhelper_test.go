package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/flows"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/history"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/llm"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/recorder"
	"github.com/nostalgicskinco/plagiarism-detective/testdata"
)

// testEnv is a detective API wired to a mock model provider.
type testEnv struct {
	handler  http.Handler
	history  *history.Store
	runsDir  string
	upstream *httptest.Server
	calls    *atomic.Int32
}

// newTestEnv starts a mock provider answering with content and status and
// builds the API on top of it. gatewayKey may be empty.
func newTestEnv(t *testing.T, content string, status int, gatewayKey string) *testEnv {
	t.Helper()

	calls := &atomic.Int32{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			w.Write([]byte(content))
			return
		}
		w.Write([]byte(testdata.Completion("gpt-4o-mini", content)))
	}))
	t.Cleanup(upstream.Close)

	runsDir := t.TempDir()
	rec, err := recorder.NewWriter(runsDir)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client := llm.NewClient(
		llm.Config{APIKey: "sk-test", ProviderURL: upstream.URL, Model: "gpt-4o-mini"},
		llm.WithRecorder(rec),
		llm.WithRetryMaxAttempts(2),
		llm.WithSleeper(func(time.Duration) {}),
	)

	return &testEnv{
		handler: Handler(Config{
			Flows:      flows.New(client),
			History:    store,
			GatewayKey: gatewayKey,
		}),
		history:  store,
		runsDir:  runsDir,
		upstream: upstream,
		calls:    calls,
	}
}

// post sends body to route and returns the recorded response.
func (e *testEnv) post(route, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptestPost(route, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return serve(e.handler, req)
}

func httptestGet(route string) *http.Request {
	return httptest.NewRequest(http.MethodGet, route, nil)
}

func httptestPost(route, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// runRecordPath returns the run record for runID, failing if it is missing.
func runRecordPath(t *testing.T, dir, runID string) string {
	t.Helper()
	path := filepath.Join(dir, runID+recorder.Ext)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("run record %s missing: %v", path, err)
	}
	return path
}

// countRunRecords counts run record files in dir.
func countRunRecords(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read runs dir: %v", err)
	}
	n := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), recorder.Ext) {
			n++
		}
	}
	return n
}
