package model

import (
	"context"
	"time"
)

// CheckpointStore persists the full session state of a thread.
type CheckpointStore interface {
	// Load returns the last saved state, or an error matching errx.ErrThreadNotFound.
	Load(ctx context.Context, threadID string) (*SessionState, error)

	// Save atomically replaces the thread state and appends a journal record.
	Save(ctx context.Context, threadID string, state *SessionState) error

	// Delete removes the state and journal of a thread.
	Delete(ctx context.Context, threadID string) error

	// History returns the journal of stage checkpoints, oldest first.
	History(ctx context.Context, threadID string) ([]CheckpointRecord, error)
}

// ThreadLocker serializes runs on the same thread.
type ThreadLocker interface {
	Lock(ctx context.Context, threadID string) (unlock func(), err error)
}

// CheckpointRecord is one journal entry written at a stage boundary.
type CheckpointRecord struct {
	TurnID    string    `json:"turn_id"`
	Stage     Stage     `json:"stage"`
	Step      Step      `json:"current_step,omitempty"`
	Iteration int       `json:"iteration"`
	Sources   int       `json:"sources"`
	At        time.Time `json:"at"`
}

// RecordOf summarizes state for the journal.
func RecordOf(s *SessionState) CheckpointRecord {
	return CheckpointRecord{
		TurnID:    s.TurnID,
		Stage:     s.Stage,
		Step:      s.CurrentStep,
		Iteration: s.IterationCount,
		Sources:   len(s.SourcesDetailed),
		At:        s.UpdatedAt,
	}
}
