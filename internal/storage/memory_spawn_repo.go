package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemorySpawnRepo реализует SpawnRepo в памяти.
// Используется, когда ни Redis, ни MariaDB не настроены, и в тестах.
type MemorySpawnRepo struct {
	mu   sync.RWMutex
	data map[string]Spawn
}

func NewMemorySpawnRepo() *MemorySpawnRepo {
	return &MemorySpawnRepo{
		data: make(map[string]Spawn),
	}
}

func (r *MemorySpawnRepo) Save(ctx context.Context, s Spawn) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.GUID] = s
	return nil
}

func (r *MemorySpawnRepo) Load(ctx context.Context, guid string) (Spawn, bool, error) {
	if err := ctx.Err(); err != nil {
		return Spawn{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[guid]
	return s, ok, nil
}

func (r *MemorySpawnRepo) Delete(ctx context.Context, guid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[guid]; !ok {
		return fmt.Errorf("%w: %s", ErrSpawnNotFound, guid)
	}
	delete(r.data, guid)
	return nil
}

// BatchSave проверяет все точки до записи: пачка сохраняется целиком или никак.
func (r *MemorySpawnRepo) BatchSave(ctx context.Context, spawns []Spawn) error {
	if len(spawns) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, s := range spawns {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range spawns {
		r.data[s.GUID] = s
	}
	return nil
}

func (r *MemorySpawnRepo) Close() error { return nil }

// All возвращает копию всех точек, отсортированную по GUID
func (r *MemorySpawnRepo) All() []Spawn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Spawn, 0, len(r.data))
	for _, s := range r.data {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out
}

// Count возвращает количество сохранённых точек
func (r *MemorySpawnRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
