package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// How many appends between prune passes. Pruning per insert would double
// the write cost for no benefit; the journal is diagnostics, not a ledger.
const pruneEvery = 64

// Frame is one accepted stream frame as recorded for diagnostics.
type Frame struct {
	ID         string          `json:"id"`
	TaskID     string          `json:"task_id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

type Config struct {
	Path string
	DB   *sql.DB
	// Keep is how many newest frames survive pruning.
	Keep int
}

// Journal is a bounded sqlite log of accepted frames. It is never read back
// to rebuild task state; it exists so a misbehaving producer can be debugged
// after the fact.
type Journal struct {
	db    *sql.DB
	cfg   Config
	stmts *preparedStatements

	mu      sync.Mutex
	pending int
}

func New(cfg Config) (*Journal, error) {
	if cfg.DB == nil && cfg.Path == "" {
		return nil, errors.New("journal requires a db or path")
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 1000
	}

	db := cfg.DB
	if db == nil {
		opened, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := opened.Ping(); err != nil {
			return nil, err
		}
		db = opened
	}

	journal := &Journal{db: db, cfg: cfg}
	if err := journal.init(); err != nil {
		return nil, err
	}
	stmts, err := prepareStatements(db)
	if err != nil {
		return nil, err
	}
	journal.stmts = stmts
	return journal, nil
}

func (j *Journal) init() error {
	if _, err := j.db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return err
	}
	if _, err := j.db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		return err
	}
	_, err := j.db.Exec(`
CREATE TABLE IF NOT EXISTS frames (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload BLOB,
	received_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frames_received ON frames(received_at DESC, id DESC);
`)
	return err
}

// Append records one accepted frame and prunes old rows periodically so the
// table stays near the configured keep count.
func (j *Journal) Append(ctx context.Context, taskID, kind string, payload []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	err := j.stmts.insert(ctx, Frame{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		Kind:       kind,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.pending++
	prune := j.pending >= pruneEvery
	if prune {
		j.pending = 0
	}
	j.mu.Unlock()

	if prune {
		return j.Prune(ctx)
	}
	return nil
}

// Prune deletes everything but the newest keep frames.
func (j *Journal) Prune(ctx context.Context) error {
	return j.stmts.prune(ctx, j.cfg.Keep)
}

// Recent returns the newest frames, newest first. A non-positive limit
// falls back to the keep count.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Frame, error) {
	if limit <= 0 || limit > j.cfg.Keep {
		limit = j.cfg.Keep
	}
	return j.stmts.recent(ctx, limit)
}

func (j *Journal) Close() error {
	if j.stmts != nil {
		j.stmts.Close()
	}
	if j.cfg.DB != nil {
		return nil
	}
	return j.db.Close()
}

type preparedStatements struct {
	stmtInsert *sql.Stmt
	stmtPrune  *sql.Stmt
	stmtRecent *sql.Stmt
}

func prepareStatements(db *sql.DB) (*preparedStatements, error) {
	insertSQL := `
INSERT INTO frames (id, task_id, kind, payload, received_at)
VALUES (?, ?, ?, ?, ?)
`
	pruneSQL := `
DELETE FROM frames
WHERE id NOT IN (
 SELECT id FROM frames ORDER BY received_at DESC, id DESC LIMIT ?
)
`
	recentSQL := `
SELECT id, task_id, kind, payload, received_at
FROM frames
ORDER BY received_at DESC, id DESC
LIMIT ?
`

	var err error
	stmts := &preparedStatements{}
	stmts.stmtInsert, err = db.Prepare(insertSQL)
	if err != nil {
		stmts.Close()
		return nil, err
	}
	stmts.stmtPrune, err = db.Prepare(pruneSQL)
	if err != nil {
		stmts.Close()
		return nil, err
	}
	stmts.stmtRecent, err = db.Prepare(recentSQL)
	if err != nil {
		stmts.Close()
		return nil, err
	}
	return stmts, nil
}

func (s *preparedStatements) Close() {
	if s == nil {
		return
	}
	if s.stmtInsert != nil {
		s.stmtInsert.Close()
	}
	if s.stmtPrune != nil {
		s.stmtPrune.Close()
	}
	if s.stmtRecent != nil {
		s.stmtRecent.Close()
	}
}

func (s *preparedStatements) insert(ctx context.Context, frame Frame) error {
	_, err := s.stmtInsert.ExecContext(ctx,
		frame.ID, frame.TaskID, frame.Kind, []byte(frame.Payload), frame.ReceivedAt.UnixNano())
	return err
}

func (s *preparedStatements) prune(ctx context.Context, keep int) error {
	_, err := s.stmtPrune.ExecContext(ctx, keep)
	return err
}

func (s *preparedStatements) recent(ctx context.Context, limit int) ([]Frame, error) {
	rows, err := s.stmtRecent.QueryContext(ctx, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var frame Frame
		var payload []byte
		var receivedAt int64
		if err := rows.Scan(&frame.ID, &frame.TaskID, &frame.Kind, &payload, &receivedAt); err != nil {
			return nil, err
		}
		frame.Payload = payload
		frame.ReceivedAt = time.Unix(0, receivedAt).UTC()
		frames = append(frames, frame)
	}
	return frames, rows.Err()
}
