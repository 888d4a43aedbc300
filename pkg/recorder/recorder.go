// Package recorder writes one run record per model call: which flow asked,
// which model answered, where the raw bodies are vaulted, and how it went.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Version is stamped on every record written.
const Version = "1.0.0"

// Ext is the file suffix of run records.
const Ext = ".run.json"

// Record describes a single model call.
type Record struct {
	Version          string    `json:"version"`
	RunID            string    `json:"run_id"`
	TraceID          string    `json:"trace_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Flow             string    `json:"flow"`
	Model            string    `json:"model"`
	Provider         string    `json:"provider"`
	Endpoint         string    `json:"endpoint"`
	RequestVaultRef  string    `json:"request_vault_ref,omitempty"`
	ResponseVaultRef string    `json:"response_vault_ref,omitempty"`
	RequestChecksum  string    `json:"request_checksum,omitempty"`
	ResponseChecksum string    `json:"response_checksum,omitempty"`
	Tokens           Tokens    `json:"tokens"`
	Attempts         int       `json:"attempts"`
	DurationMS       int64     `json:"duration_ms"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
}

// Tokens holds token usage reported by the provider.
type Tokens struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Writer saves records into a directory.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed and returns a writer for it.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("recorder: create dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the directory records are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns where the record for runID lives.
func (w *Writer) Path(runID string) string {
	return filepath.Join(w.dir, runID+Ext)
}

// Write persists r as <run_id>.run.json.
func (w *Writer) Write(r Record) error {
	if r.RunID == "" {
		return fmt.Errorf("recorder: write: empty run id")
	}
	r.Version = Version

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshal: %w", err)
	}

	path := w.Path(r.RunID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("recorder: write %s: %w", path, err)
	}
	return nil
}

// Load reads a record from a file path.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("recorder: read %s: %w", path, err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("recorder: parse %s: %w", path, err)
	}
	return r, nil
}

// List loads every record in dir, newest first.
func List(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("recorder: list %s: %w", dir, err)
	}

	var out []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		r, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
