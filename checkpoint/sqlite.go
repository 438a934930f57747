package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dshills/blueprint-go/state"
)

// SQLiteStore is a durable Store backend, for resuming runs across
// process restarts (an in-memory MemoryStore only survives one process).
// A single thread_id-keyed table holding the serialized State per run.
type SQLiteStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OpenSQLiteStore opens (creating if needed) a SQLiteStore at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		thread_id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, locks: map[string]*sync.Mutex{}}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) lockFor(threadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[threadID] = l
	}
	return l
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, threadID string, st state.State) error {
	l := s.lockFor(threadID)
	l.Lock()
	defer l.Unlock()

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, state_json) VALUES (?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET state_json = excluded.state_json`,
		threadID, string(raw))
	return err
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, threadID string) (state.State, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM checkpoints WHERE thread_id = ?`, threadID).Scan(&raw)
	if err == sql.ErrNoRows {
		return state.State{}, notFound(threadID)
	}
	if err != nil {
		return state.State{}, err
	}
	var st state.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return state.State{}, err
	}
	return st, nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, threadID string, patch Patch) error {
	l := s.lockFor(threadID)
	l.Lock()
	defer l.Unlock()

	cur, err := s.loadLocked(ctx, threadID)
	if err != nil {
		return err
	}
	next := patch.Apply(cur)
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE checkpoints SET state_json = ? WHERE thread_id = ?`, string(raw), threadID)
	return err
}

func (s *SQLiteStore) loadLocked(ctx context.Context, threadID string) (state.State, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM checkpoints WHERE thread_id = ?`, threadID).Scan(&raw)
	if err == sql.ErrNoRows {
		return state.State{}, notFound(threadID)
	}
	if err != nil {
		return state.State{}, err
	}
	var st state.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return state.State{}, err
	}
	return st, nil
}
