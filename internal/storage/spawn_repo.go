package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/sniff-parser/internal/vec"
)

// ErrSpawnNotFound - точки появления с таким GUID нет
var ErrSpawnNotFound = errors.New("точка появления не найдена")

// Spawn - точка появления объекта, увиденная в захвате.
// Ключ - строковый GUID, поэтому повторное создание объекта перезаписывает точку.
type Spawn struct {
	GUID        string      `json:"guid"`
	Kind        string      `json:"kind"`
	Entry       uint32      `json:"entry"`
	MapID       uint32      `json:"map_id"`
	ZoneID      uint32      `json:"zone_id"`
	AreaID      uint32      `json:"area_id"`
	PhaseMask   uint32      `json:"phase_mask"`
	Position    vec.Vector3 `json:"position"`
	Orientation float32     `json:"orientation"`
	HasPath     bool        `json:"has_path"`
	SeenAt      time.Time   `json:"seen_at"`
}

// Validate проверяет обязательные поля
func (s Spawn) Validate() error {
	if s.GUID == "" {
		return fmt.Errorf("пустой GUID точки появления")
	}
	return nil
}

// SpawnRepo определяет интерфейс для сохранения и загрузки точек появления.
type SpawnRepo interface {
	// Save сохраняет или перезаписывает точку.
	Save(ctx context.Context, s Spawn) error

	// Load загружает точку; found=false, если её нет.
	Load(ctx context.Context, guid string) (Spawn, bool, error)

	// Delete удаляет точку; ErrSpawnNotFound, если её нет.
	Delete(ctx context.Context, guid string) error

	// BatchSave сохраняет несколько точек одной операцией.
	BatchSave(ctx context.Context, spawns []Spawn) error

	Close() error
}
