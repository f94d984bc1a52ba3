package store

import (
	"sync"
)

// SnapshotRepository - долговременное хранилище снапшота состояния.
// Load возвращает (nil, nil), если сохраненного состояния еще нет.
type SnapshotRepository interface {
	Load() (*State, error)
	Save(st *State) error
}

// MemorySnapshotRepository держит снапшот в памяти. Используется в тестах
// и как no-op хранилище, когда долговременность не нужна.
type MemorySnapshotRepository struct {
	mu   sync.Mutex
	data []byte
}

// Compile-time check
var _ SnapshotRepository = (*MemorySnapshotRepository)(nil)

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{}
}

func (r *MemorySnapshotRepository) Load() (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil, nil
	}
	return decodeState(r.data)
}

func (r *MemorySnapshotRepository) Save(st *State) error {
	data, err := encodeState(st)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}
