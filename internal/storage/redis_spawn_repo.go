package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisSpawnRepo хранит точки появления в Redis: JSON по ключу GUID
// и GEO-индекс на каждую карту для поиска соседей.
type RedisSpawnRepo struct {
	client      *redis.Client
	keyPrefix   string
	ttl         time.Duration
	batchSize   int
	batchMu     sync.Mutex
	batchBuffer map[string]Spawn
	batchTicker *time.Ticker
	shutdown    chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	log         *logging.Logger
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr         string        // Адрес Redis сервера
	Password     string        // Пароль (пустой если не требуется)
	DB           int           // Номер базы данных
	KeyPrefix    string        // Префикс для ключей
	TTL          time.Duration // Время жизни записей, 0 - без ограничения
	BatchSize    int           // Размер батча для записи
	BatchFlushMs int           // Интервал сброса батча в миллисекундах
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "sniff:spawn:",
		BatchSize:    100,
		BatchFlushMs: 100,
	}
}

// NewRedisSpawnRepo подключается к Redis и запускает фоновый сброс батчей
func NewRedisSpawnRepo(ctx context.Context, config *RedisConfig) (*RedisSpawnRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.BatchFlushMs <= 0 {
		config.BatchFlushMs = 100
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	repo := &RedisSpawnRepo{
		client:      client,
		keyPrefix:   config.KeyPrefix,
		ttl:         config.TTL,
		batchSize:   config.BatchSize,
		batchBuffer: make(map[string]Spawn),
		batchTicker: time.NewTicker(time.Duration(config.BatchFlushMs) * time.Millisecond),
		shutdown:    make(chan struct{}),
		log:         logging.GetStorageLogger(),
	}

	repo.wg.Add(1)
	go repo.batchFlusher()

	repo.log.Info("🔴 Подключено к Redis %s", config.Addr)
	return repo, nil
}

func (r *RedisSpawnRepo) key(guid string) string {
	return r.keyPrefix + guid
}

func (r *RedisSpawnRepo) geoKey(mapID uint32) string {
	return fmt.Sprintf("%sgeo:%d", r.keyPrefix, mapID)
}

// geoPoint переводит координаты карты в долготу/широту GEO-индекса.
// Карты клиента укладываются в ±17067 по X и Y, так что масштаб 1/100 и 1/200
// оставляет значения в допустимых пределах.
func geoPoint(x, y float32) (lon, lat float64) {
	lon = float64(x) / 100
	lat = float64(y) / 200

	if lon < -180 {
		lon = -180
	} else if lon > 180 {
		lon = 180
	}
	if lat < -85 {
		lat = -85
	} else if lat > 85 {
		lat = 85
	}
	return lon, lat
}

// Save добавляет точку в батч-буфер; при заполнении буфер сбрасывается сразу
func (r *RedisSpawnRepo) Save(ctx context.Context, s Spawn) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.batchMu.Lock()
	r.batchBuffer[s.GUID] = s
	if len(r.batchBuffer) >= r.batchSize {
		batch := r.takeBatch()
		r.batchMu.Unlock()
		return r.flushBatch(ctx, batch)
	}
	r.batchMu.Unlock()
	return nil
}

// takeBatch забирает буфер; вызывается под batchMu
func (r *RedisSpawnRepo) takeBatch() map[string]Spawn {
	batch := r.batchBuffer
	r.batchBuffer = make(map[string]Spawn)
	return batch
}

// Load читает точку, сначала из несброшенного буфера
func (r *RedisSpawnRepo) Load(ctx context.Context, guid string) (Spawn, bool, error) {
	r.batchMu.Lock()
	if s, ok := r.batchBuffer[guid]; ok {
		r.batchMu.Unlock()
		return s, true, nil
	}
	r.batchMu.Unlock()

	data, err := r.client.Get(ctx, r.key(guid)).Bytes()
	if err == redis.Nil {
		return Spawn{}, false, nil
	} else if err != nil {
		return Spawn{}, false, fmt.Errorf("ошибка чтения точки %s: %w", guid, err)
	}

	var s Spawn
	if err := json.Unmarshal(data, &s); err != nil {
		return Spawn{}, false, fmt.Errorf("ошибка разбора точки %s: %w", guid, err)
	}
	return s, true, nil
}

// Delete удаляет точку из буфера, из Redis и из GEO-индекса карты
func (r *RedisSpawnRepo) Delete(ctx context.Context, guid string) error {
	s, found, err := r.Load(ctx, guid)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSpawnNotFound, guid)
	}

	r.batchMu.Lock()
	delete(r.batchBuffer, guid)
	r.batchMu.Unlock()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(guid))
	pipe.ZRem(ctx, r.geoKey(s.MapID), guid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка удаления точки %s: %w", guid, err)
	}
	return nil
}

// BatchSave пишет точки одним пайплайном, минуя буфер
func (r *RedisSpawnRepo) BatchSave(ctx context.Context, spawns []Spawn) error {
	if len(spawns) == 0 {
		return nil
	}
	batch := make(map[string]Spawn, len(spawns))
	for _, s := range spawns {
		if err := s.Validate(); err != nil {
			return err
		}
		batch[s.GUID] = s
	}
	return r.flushBatch(ctx, batch)
}

// Nearby возвращает GUID точек карты в радиусе (в единицах GEO-индекса, метрах)
func (r *RedisSpawnRepo) Nearby(ctx context.Context, mapID uint32, x, y float32, radius float64) ([]string, error) {
	lon, lat := geoPoint(x, y)
	names, err := r.client.GeoSearch(ctx, r.geoKey(mapID), &redis.GeoSearchQuery{
		Longitude:  lon,
		Latitude:   lat,
		Radius:     radius,
		RadiusUnit: "m",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска соседей: %w", err)
	}
	return names, nil
}

// Count возвращает количество точек в Redis
func (r *RedisSpawnRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"0x*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта точек: %w", err)
	}
	return count, nil
}

// Close сбрасывает остаток буфера и закрывает соединение
func (r *RedisSpawnRepo) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.shutdown)
		r.wg.Wait()
		r.batchTicker.Stop()

		r.batchMu.Lock()
		batch := r.takeBatch()
		r.batchMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := r.flushBatch(ctx, batch); ferr != nil {
			r.log.Error("❌ Не удалось сбросить остаток батча: %v", ferr)
		}
		err = r.client.Close()
	})
	return err
}

// batchFlusher периодически сбрасывает батч-буфер
func (r *RedisSpawnRepo) batchFlusher() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdown:
			return
		case <-r.batchTicker.C:
			r.batchMu.Lock()
			if len(r.batchBuffer) == 0 {
				r.batchMu.Unlock()
				continue
			}
			batch := r.takeBatch()
			r.batchMu.Unlock()

			if err := r.flushBatch(context.Background(), batch); err != nil {
				r.log.Error("❌ Не удалось сбросить батч: %v", err)
			}
		}
	}
}

// flushBatch записывает батч точек и обновляет GEO-индексы карт
func (r *RedisSpawnRepo) flushBatch(ctx context.Context, batch map[string]Spawn) error {
	if len(batch) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for guid, s := range batch {
		data, err := json.Marshal(s)
		if err != nil {
			r.log.Warn("⚠️ Точка %s не сериализована: %v", guid, err)
			continue
		}
		pipe.Set(ctx, r.key(guid), data, r.ttl)

		lon, lat := geoPoint(s.Position.X, s.Position.Y)
		pipe.GeoAdd(ctx, r.geoKey(s.MapID), &redis.GeoLocation{
			Name:      guid,
			Longitude: lon,
			Latitude:  lat,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка записи батча: %w", err)
	}
	return nil
}
