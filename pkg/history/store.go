package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// MaxItems is how many items the store keeps; older ones are dropped on Add.
const MaxItems = 20

const schemaSQL = `
CREATE TABLE IF NOT EXISTS history_items (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    created_at TEXT NOT NULL,
    title TEXT NOT NULL,
    entry TEXT NOT NULL
);
`

// Store persists history items in SQLite. It is safe for concurrent use.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	subs    map[int]chan []Item
	nextSub int
}

// Open opens (or creates) the history database at path.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db, subs: make(map[int]chan []Item)}, nil
}

// Close closes the database and every subscriber channel.
func (s *Store) Close() error {
	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// Add stores it as the newest item and trims the store to MaxItems.
func (s *Store) Add(ctx context.Context, it Item) error {
	if it.Entry == nil {
		return fmt.Errorf("history: add %s: missing entry", it.ID)
	}
	if it.ID == "" {
		return fmt.Errorf("history: add: missing id")
	}
	entry, err := json.Marshal(it.Entry)
	if err != nil {
		return fmt.Errorf("history: encode entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history_items(id, kind, created_at, title, entry) VALUES(?,?,?,?,?)`,
		it.ID, string(it.Kind()), it.Date.UTC().Format(time.RFC3339Nano), it.Title, string(entry),
	); err != nil {
		return fmt.Errorf("history: insert item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history_items WHERE seq NOT IN (SELECT seq FROM history_items ORDER BY seq DESC LIMIT ?)`,
		MaxItems,
	); err != nil {
		return fmt.Errorf("history: trim items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}

	if err := s.notify(ctx); err != nil {
		log.Printf("WARN: history: notify after add %s: %v", it.ID, err)
	}
	return nil
}

// List returns stored items, newest first.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, created_at, title, entry FROM history_items ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: query items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var id, kind, created, title, entry string
		if err := rows.Scan(&id, &kind, &created, &title, &entry); err != nil {
			return nil, fmt.Errorf("history: scan item: %w", err)
		}
		date, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("history: item %s: parse date: %w", id, err)
		}
		e, err := decodeEntry(Kind(kind), []byte(entry))
		if err != nil {
			return nil, fmt.Errorf("history: item %s: %w", id, err)
		}
		items = append(items, Item{ID: id, Date: date, Title: title, Entry: e})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate items: %w", err)
	}
	return items, nil
}

// Clear removes every item.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history_items`); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	if err := s.notify(ctx); err != nil {
		log.Printf("WARN: history: notify after clear: %v", err)
	}
	return nil
}

// Subscribe returns a channel that receives the full item list after every
// change. Slow readers only see the latest snapshot. cancel unsubscribes and
// closes the channel.
func (s *Store) Subscribe() (<-chan []Item, func()) {
	ch := make(chan []Item, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (s *Store) notify(ctx context.Context) error {
	s.mu.Lock()
	n := len(s.subs)
	s.mu.Unlock()
	if n == 0 {
		return nil
	}

	items, err := s.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- items:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- items:
			default:
			}
		}
	}
	return nil
}
