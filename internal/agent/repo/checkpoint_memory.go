package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
)

// MemoryCheckpointStore keeps encoded states in process memory.
// Stored values are copies, so callers may keep mutating their state.
type MemoryCheckpointStore struct {
	mu         sync.RWMutex
	states     map[string][]byte
	journals   map[string][]model.CheckpointRecord
	journalLen int
}

func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		states:     make(map[string][]byte),
		journals:   make(map[string][]model.CheckpointRecord),
		journalLen: int(defaultJournalLen),
	}
}

func (m *MemoryCheckpointStore) Save(_ context.Context, threadID string, state *model.SessionState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[threadID] = b
	journal := append(m.journals[threadID], model.RecordOf(state))
	if len(journal) > m.journalLen {
		journal = journal[len(journal)-m.journalLen:]
	}
	m.journals[threadID] = journal
	return nil
}

func (m *MemoryCheckpointStore) Load(_ context.Context, threadID string) (*model.SessionState, error) {
	m.mu.RLock()
	b, ok := m.states[threadID]
	m.mu.RUnlock()
	if !ok {
		return nil, errx.NotFound(threadID)
	}

	var state model.SessionState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (m *MemoryCheckpointStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, threadID)
	delete(m.journals, threadID)
	return nil
}

func (m *MemoryCheckpointStore) History(_ context.Context, threadID string) ([]model.CheckpointRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.CheckpointRecord, len(m.journals[threadID]))
	copy(out, m.journals[threadID])
	return out, nil
}

var _ model.CheckpointStore = (*MemoryCheckpointStore)(nil)
