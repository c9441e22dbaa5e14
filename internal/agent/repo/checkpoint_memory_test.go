package repo

import (
	"testing"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/repo/repotest"
)

func TestMemoryCheckpointStore_Contract(t *testing.T) {
	repotest.RunCheckpointStoreContract(t, NewMemoryCheckpointStore())
}
