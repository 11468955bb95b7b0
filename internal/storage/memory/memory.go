package memory

import (
	"sync"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrNotFound = storage.ErrNotFound
)

// MemoryStorage: in-memory реализация ReportsStorage.
// Порядок перечисления совпадает с порядком вставки.
type MemoryStorage struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*storage.Report
	order   []uuid.UUID
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		reports: make(map[uuid.UUID]*storage.Report),
	}
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}
