package database

import "time"

// SnapshotInfo describes a cached board without its state
type SnapshotInfo struct {
	BoardID   string    `db:"board_id" json:"boardId"`
	Name      string    `db:"name" json:"name"`
	Notes     int       `db:"notes" json:"notes"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Snapshot is a cached board state as stored
type Snapshot struct {
	SnapshotInfo
	State string `db:"state"`
}
