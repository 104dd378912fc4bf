package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MariaSpawnRepo реализует SpawnRepo для MariaDB/MySQL.
// Использует таблицу sniff_spawns.
type MariaSpawnRepo struct {
	db *sql.DB
}

const upsertSpawn = `
	INSERT INTO sniff_spawns
		(guid, kind, entry, map_id, zone_id, area_id, phase_mask, x, y, z, orientation, has_path, seen_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		kind = VALUES(kind),
		entry = VALUES(entry),
		map_id = VALUES(map_id),
		zone_id = VALUES(zone_id),
		area_id = VALUES(area_id),
		phase_mask = VALUES(phase_mask),
		x = VALUES(x),
		y = VALUES(y),
		z = VALUES(z),
		orientation = VALUES(orientation),
		has_path = VALUES(has_path),
		seen_at = VALUES(seen_at)
`

// NewMariaSpawnRepo подключается к базе и создаёт таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения (user:pass@tcp(host:port)/dbname?parseTime=true)
func NewMariaSpawnRepo(ctx context.Context, dsn string) (*MariaSpawnRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaSpawnRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *MariaSpawnRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS sniff_spawns (
			guid        VARCHAR(34)  PRIMARY KEY,
			kind        VARCHAR(32)  NOT NULL,
			entry       INT UNSIGNED NOT NULL,
			map_id      INT UNSIGNED NOT NULL,
			zone_id     INT UNSIGNED NOT NULL DEFAULT 0,
			area_id     INT UNSIGNED NOT NULL DEFAULT 0,
			phase_mask  INT UNSIGNED NOT NULL DEFAULT 1,
			x           FLOAT        NOT NULL,
			y           FLOAT        NOT NULL,
			z           FLOAT        NOT NULL,
			orientation FLOAT        NOT NULL,
			has_path    BOOLEAN      NOT NULL DEFAULT FALSE,
			seen_at     DATETIME(3)  NOT NULL,
			INDEX idx_entry (entry),
			INDEX idx_map (map_id)
		) ENGINE=InnoDB
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы sniff_spawns: %w", err)
	}
	return nil
}

func spawnArgs(s Spawn) []any {
	return []any{
		s.GUID, s.Kind, s.Entry, s.MapID, s.ZoneID, s.AreaID, s.PhaseMask,
		s.Position.X, s.Position.Y, s.Position.Z, s.Orientation, s.HasPath, s.SeenAt.UTC(),
	}
}

// Save сохраняет точку; существующая запись перезаписывается.
func (r *MariaSpawnRepo) Save(ctx context.Context, s Spawn) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertSpawn, spawnArgs(s)...); err != nil {
		return fmt.Errorf("ошибка сохранения точки %s: %w", s.GUID, err)
	}
	return nil
}

// Load загружает точку по GUID.
func (r *MariaSpawnRepo) Load(ctx context.Context, guid string) (Spawn, bool, error) {
	query := `
		SELECT guid, kind, entry, map_id, zone_id, area_id, phase_mask, x, y, z, orientation, has_path, seen_at
		FROM sniff_spawns WHERE guid = ?
	`

	var s Spawn
	err := r.db.QueryRowContext(ctx, query, guid).Scan(
		&s.GUID, &s.Kind, &s.Entry, &s.MapID, &s.ZoneID, &s.AreaID, &s.PhaseMask,
		&s.Position.X, &s.Position.Y, &s.Position.Z, &s.Orientation, &s.HasPath, &s.SeenAt,
	)
	if err == sql.ErrNoRows {
		return Spawn{}, false, nil
	}
	if err != nil {
		return Spawn{}, false, fmt.Errorf("ошибка загрузки точки %s: %w", guid, err)
	}
	return s, true, nil
}

// Delete удаляет точку.
func (r *MariaSpawnRepo) Delete(ctx context.Context, guid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sniff_spawns WHERE guid = ?`, guid)
	if err != nil {
		return fmt.Errorf("ошибка удаления точки %s: %w", guid, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSpawnNotFound, guid)
	}
	return nil
}

// BatchSave сохраняет точки в одной транзакции.
func (r *MariaSpawnRepo) BatchSave(ctx context.Context, spawns []Spawn) error {
	if len(spawns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSpawn)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for _, s := range spawns {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, spawnArgs(s)...); err != nil {
			return fmt.Errorf("ошибка сохранения точки %s в batch: %w", s.GUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaSpawnRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
