// Package history keeps the most recent check results. Every item carries a
// typed Entry chosen by its Kind; observers receive a fresh snapshot after
// each change.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/flows"
)

// Kind discriminates the entry stored in an Item.
type Kind string

const (
	KindText       Kind = "text"
	KindFile       Kind = "file"
	KindContextual Kind = "contextual"
	KindAdvanced   Kind = "advanced"
	KindGrammar    Kind = "grammar"
	KindSummarizer Kind = "summarizer"
)

// Entry is the input and result of one check. The set of implementations is closed.
type Entry interface {
	Kind() Kind
	Title() string
	entry()
}

// TextCompare records a text vs text comparison.
type TextCompare struct {
	Input  flows.CompareInput  `json:"input"`
	Result flows.CompareResult `json:"result"`
}

// FileInput is what history keeps of a file check: never the file bytes.
type FileInput struct {
	FileName      string `json:"fileName"`
	TextToCompare string `json:"textToCompare"`
}

// FileCompare records a file check.
type FileCompare struct {
	Input  FileInput             `json:"input"`
	Result flows.FileCheckResult `json:"result"`
}

// Contextual records a contextual analysis.
type Contextual struct {
	Input  flows.ContextualInput  `json:"input"`
	Result flows.ContextualResult `json:"result"`
}

// Advanced records an advanced plagiarism check.
type Advanced struct {
	Input  flows.AdvancedInput  `json:"input"`
	Result flows.AdvancedResult `json:"result"`
}

// Grammar records a grammar check.
type Grammar struct {
	Input  flows.GrammarInput  `json:"input"`
	Result flows.GrammarResult `json:"result"`
}

// Summary records a summarization.
type Summary struct {
	Input  flows.SummarizeInput  `json:"input"`
	Result flows.SummarizeResult `json:"result"`
}

func (TextCompare) Kind() Kind { return KindText }
func (FileCompare) Kind() Kind { return KindFile }
func (Contextual) Kind() Kind { return KindContextual }
func (Advanced) Kind() Kind { return KindAdvanced }
func (Grammar) Kind() Kind { return KindGrammar }
func (Summary) Kind() Kind { return KindSummarizer }

func (TextCompare) Title() string { return "Text vs Text Comparison" }
func (e FileCompare) Title() string { return "File Check: " + e.Input.FileName }
func (Contextual) Title() string { return "Contextual Analysis" }
func (Advanced) Title() string { return "Advanced Plagiarism Check" }
func (Grammar) Title() string { return "Grammar Check" }
func (Summary) Title() string { return "Text Summarization" }

func (TextCompare) entry() {}
func (FileCompare) entry() {}
func (Contextual) entry() {}
func (Advanced) entry() {}
func (Grammar) entry() {}
func (Summary) entry() {}

// newEntry returns a pointer to the zero entry for kind.
func newEntry(kind Kind) (Entry, error) {
	switch kind {
	case KindText:
		return &TextCompare{}, nil
	case KindFile:
		return &FileCompare{}, nil
	case KindContextual:
		return &Contextual{}, nil
	case KindAdvanced:
		return &Advanced{}, nil
	case KindGrammar:
		return &Grammar{}, nil
	case KindSummarizer:
		return &Summary{}, nil
	}
	return nil, fmt.Errorf("history: unknown kind %q", kind)
}

// decodeEntry decodes data as the entry type for kind.
func decodeEntry(kind Kind, data []byte) (Entry, error) {
	ptr, err := newEntry(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("history: decode %s entry: %w", kind, err)
	}
	switch e := ptr.(type) {
	case *TextCompare:
		return *e, nil
	case *FileCompare:
		return *e, nil
	case *Contextual:
		return *e, nil
	case *Advanced:
		return *e, nil
	case *Grammar:
		return *e, nil
	case *Summary:
		return *e, nil
	}
	return ptr, nil
}

// Item is one history record.
type Item struct {
	ID    string
	Date  time.Time
	Title string
	Entry Entry
}

// NewItem stamps e with a fresh ID, the current time and its title.
func NewItem(e Entry) Item {
	return Item{
		ID:    uuid.New().String(),
		Date:  time.Now().UTC(),
		Title: e.Title(),
		Entry: e,
	}
}

// Kind returns the kind of the item's entry.
func (it Item) Kind() Kind {
	if it.Entry == nil {
		return ""
	}
	return it.Entry.Kind()
}

type wireItem struct {
	ID     string          `json:"id"`
	Kind   Kind            `json:"kind"`
	Date   time.Time       `json:"date"`
	Title  string          `json:"title"`
	Input  json.RawMessage `json:"input"`
	Result json.RawMessage `json:"result"`
}

// MarshalJSON flattens the entry next to the item fields, tagged by kind.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Entry == nil {
		return nil, fmt.Errorf("history: item %s has no entry", it.ID)
	}
	raw, err := json.Marshal(it.Entry)
	if err != nil {
		return nil, err
	}
	var parts struct {
		Input  json.RawMessage `json:"input"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, err
	}
	return json.Marshal(wireItem{
		ID:     it.ID,
		Kind:   it.Entry.Kind(),
		Date:   it.Date,
		Title:  it.Title,
		Input:  parts.Input,
		Result: parts.Result,
	})
}

// UnmarshalJSON decodes the entry type named by the kind field.
func (it *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	raw, err := json.Marshal(struct {
		Input  json.RawMessage `json:"input,omitempty"`
		Result json.RawMessage `json:"result,omitempty"`
	}{w.Input, w.Result})
	if err != nil {
		return err
	}
	e, err := decodeEntry(w.Kind, raw)
	if err != nil {
		return err
	}
	*it = Item{ID: w.ID, Date: w.Date, Title: w.Title, Entry: e}
	return nil
}
