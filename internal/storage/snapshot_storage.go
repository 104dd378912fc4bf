package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// Префиксы ключей BadgerDB
const (
	prefixEntity    = "entity:"
	prefixChanges   = "changes:"
	keyAccessories  = "meta:accessories"
	keyActivePlayer = "meta:active_player"
)

// ErrNotReady - хранилище закрыто
var ErrNotReady = errors.New("хранилище не готово")

// SnapshotStorage хранит снимки состояния мира после разбора захвата.
// Значения - JSON, сжатый zstd.
type SnapshotStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	log     *logging.Logger
}

// EntityHistory - журналы изменений одного объекта
type EntityHistory struct {
	Creature   []world.CreatureUpdate   `json:"creature,omitempty"`
	GameObject []world.GameObjectUpdate `json:"gameobject,omitempty"`
	Targets    []world.TargetChange     `json:"targets,omitempty"`
}

// SaveSummary - итог сохранения хранилища
type SaveSummary struct {
	Entities    int
	Histories   int
	Accessories int
}

// NewSnapshotStorage открывает хранилище в каталоге dataPath/snapshots
func NewSnapshotStorage(dataPath string) (*SnapshotStorage, error) {
	dbPath := filepath.Join(dataPath, "snapshots")
	return openSnapshotStorage(badger.DefaultOptions(dbPath), dbPath)
}

// NewInMemorySnapshotStorage - хранилище без диска, для тестов и разовых прогонов
func NewInMemorySnapshotStorage() (*SnapshotStorage, error) {
	return openSnapshotStorage(badger.DefaultOptions("").WithInMemory(true), "")
}

func openSnapshotStorage(opts badger.Options, dbPath string) (*SnapshotStorage, error) {
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd: %w", err)
	}

	return &SnapshotStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		enc:     enc,
		dec:     dec,
		log:     logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище данных
func (ss *SnapshotStorage) Close() error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	if !ss.isReady {
		return nil
	}

	ss.isReady = false
	ss.dec.Close()
	ss.enc.Close()
	return ss.db.Close()
}

func (ss *SnapshotStorage) encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return ss.enc.EncodeAll(data, nil), nil
}

func (ss *SnapshotStorage) decode(raw []byte, v any) error {
	data, err := ss.dec.DecodeAll(raw, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка десериализации: %w", err)
	}
	return nil
}

// get читает значение; found=false для отсутствующего ключа
func (ss *SnapshotStorage) get(key string, v any) (bool, error) {
	var raw []byte
	err := ss.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return true, ss.decode(raw, v)
}

// SaveEntity сохраняет снимок одного объекта
func (ss *SnapshotStorage) SaveEntity(e *world.Entity) error {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return ErrNotReady
	}

	data, err := ss.encode(e)
	if err != nil {
		return err
	}
	err = ss.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixEntity+e.GUID.String()), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadEntity загружает снимок объекта
func (ss *SnapshotStorage) LoadEntity(g guid.GUID) (*world.Entity, bool, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return nil, false, ErrNotReady
	}

	var e world.Entity
	found, err := ss.get(prefixEntity+g.String(), &e)
	if err != nil || !found {
		return nil, found, err
	}
	return &e, true, nil
}

// SaveStore сохраняет всё содержимое хранилища мира одной пачкой:
// объекты, журналы изменений, пассажиров транспорта и активного персонажа.
func (ss *SnapshotStorage) SaveStore(store *world.Store) (SaveSummary, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	var sum SaveSummary
	if !ss.isReady {
		return sum, ErrNotReady
	}

	wb := ss.db.NewWriteBatch()
	defer wb.Cancel()

	set := func(key string, v any) error {
		data, err := ss.encode(v)
		if err != nil {
			return err
		}
		return wb.Set([]byte(key), data)
	}

	for _, e := range store.All() {
		id := e.GUID.String()
		if err := set(prefixEntity+id, e); err != nil {
			return sum, fmt.Errorf("объект %s: %w", id, err)
		}
		sum.Entities++

		h := EntityHistory{
			Creature:   store.Changes(e.GUID),
			GameObject: store.GameObjectChanges(e.GUID),
			Targets:    store.TargetChanges(e.GUID),
		}
		if len(h.Creature)+len(h.GameObject)+len(h.Targets) == 0 {
			continue
		}
		if err := set(prefixChanges+id, h); err != nil {
			return sum, fmt.Errorf("журнал %s: %w", id, err)
		}
		sum.Histories++
	}

	acc := store.Accessories()
	if err := set(keyAccessories, acc); err != nil {
		return sum, err
	}
	sum.Accessories = len(acc)

	if g, ok := store.ActivePlayer(); ok {
		if err := set(keyActivePlayer, g); err != nil {
			return sum, err
		}
	}

	if err := wb.Flush(); err != nil {
		return sum, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	ss.log.Info("💾 Сохранено объектов: %d, журналов: %d, пассажиров: %d", sum.Entities, sum.Histories, sum.Accessories)
	return sum, nil
}

// LoadHistory загружает журналы изменений объекта
func (ss *SnapshotStorage) LoadHistory(g guid.GUID) (EntityHistory, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	var h EntityHistory
	if !ss.isReady {
		return h, ErrNotReady
	}
	_, err := ss.get(prefixChanges+g.String(), &h)
	return h, err
}

// LoadAccessories загружает найденных пассажиров транспорта
func (ss *SnapshotStorage) LoadAccessories() ([]movement.Accessory, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return nil, ErrNotReady
	}
	var acc []movement.Accessory
	_, err := ss.get(keyAccessories, &acc)
	return acc, err
}

// LoadEntities загружает все сохранённые объекты в порядке ключей
func (ss *SnapshotStorage) LoadEntities() ([]*world.Entity, error) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	if !ss.isReady {
		return nil, ErrNotReady
	}

	var out []*world.Entity
	err := ss.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixEntity)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var e world.Entity
			if err := ss.decode(raw, &e); err != nil {
				ss.log.Warn("⚠️ Снимок %s пропущен: %v", it.Item().Key(), err)
				continue
			}
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return out, nil
}

// RestoreInto загружает сохранённые объекты и пассажиров в хранилище мира.
// Журналы изменений не восстанавливаются: они доступны через LoadHistory.
func (ss *SnapshotStorage) RestoreInto(store *world.Store) (int, error) {
	entities, err := ss.LoadEntities()
	if err != nil {
		return 0, err
	}
	for _, e := range entities {
		store.Restore(e)
	}

	acc, err := ss.LoadAccessories()
	if err != nil {
		return len(entities), err
	}
	for _, a := range acc {
		store.AddVehicleAccessory(a)
	}

	ss.mutex.RLock()
	var g guid.GUID
	found, err := ss.get(keyActivePlayer, &g)
	ss.mutex.RUnlock()
	if err != nil {
		return len(entities), err
	}
	if found {
		store.MarkActivePlayer(g)
	}
	return len(entities), nil
}
