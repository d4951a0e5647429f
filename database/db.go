package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

var ErrSnapshotNotFound = errors.New("database: no snapshot for board")

// InitDB opens the local snapshot cache at path and creates its tables
func InitDB(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	// Create boards table
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS boards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create boards table: %w", err)
	}

	// Create snapshot table (stores the reconciled state of each board as JSON)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS board_snapshots (
		board_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		notes INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY (board_id) REFERENCES boards(id)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create board_snapshots table: %w", err)
	}

	return db, nil
}

// SnapshotService caches board states for offline viewing
type SnapshotService struct {
	db *sqlx.DB
}

func NewSnapshotService(db *sqlx.DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// LoadSnapshot returns the last saved state of a board and when it was saved
func (s *SnapshotService) LoadSnapshot(ctx context.Context, boardID string) (board.State, time.Time, error) {
	var row Snapshot
	err := s.db.GetContext(ctx, &row, `
		SELECT b.id AS board_id, b.name, s.state, s.notes, s.updated_at
		FROM board_snapshots s JOIN boards b ON b.id = s.board_id
		WHERE s.board_id = ?`, boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return board.State{}, time.Time{}, ErrSnapshotNotFound
	}
	if err != nil {
		return board.State{}, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var st board.State
	if err := json.Unmarshal([]byte(row.State), &st); err != nil {
		return board.State{}, time.Time{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return st, row.UpdatedAt, nil
}

// SaveSnapshot saves or replaces the cached state of st's board. Drag locks
// are not persisted.
func (s *SnapshotService) SaveSnapshot(ctx context.Context, st board.State) error {
	if st.Board.ID == "" {
		return errors.New("database: snapshot has no board id")
	}
	st.DragLocks = nil

	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO boards (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		st.Board.ID, st.Board.Name, now)
	if err != nil {
		return fmt.Errorf("failed to upsert board: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO board_snapshots (board_id, state, notes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(board_id) DO UPDATE SET
			state = excluded.state,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		st.Board.ID, string(stateJSON), len(st.Notes), now)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListSnapshots returns every cached board, most recently saved first
func (s *SnapshotService) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	err := s.db.SelectContext(ctx, &out, `
		SELECT b.id AS board_id, b.name, s.notes, s.updated_at
		FROM board_snapshots s JOIN boards b ON b.id = s.board_id
		ORDER BY s.updated_at DESC, b.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}

// DeleteSnapshot forgets a cached board
func (s *SnapshotService) DeleteSnapshot(ctx context.Context, boardID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM board_snapshots WHERE board_id = ?`, boardID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
