package storage

import (
	"context"
	"sync/atomic"

	"github.com/annel0/sniff-parser/internal/eventbus"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/world"
)

// SpawnRecorder слушает шину и сохраняет точки появления существ и игровых объектов.
// Повторное создание объекта обновляет маску фаз и признак маршрута.
type SpawnRecorder struct {
	repo   SpawnRepo
	build  revision.Build
	log    *logging.Logger
	saved  atomic.Int64
	failed atomic.Int64
}

func NewSpawnRecorder(repo SpawnRepo, build revision.Build) *SpawnRecorder {
	return &SpawnRecorder{repo: repo, build: build, log: logging.GetStorageLogger()}
}

// SpawnFromEntity строит точку появления; ok=false для объектов без точки
// (игроки, питомцы, предметы).
func SpawnFromEntity(e *world.Entity, build revision.Build) (Spawn, bool) {
	if e == nil || !e.GUID.HasEntry() || e.GUID.HighType() == guid.Pet {
		return Spawn{}, false
	}
	return Spawn{
		GUID:        e.GUID.String(),
		Kind:        e.Kind.String(),
		Entry:       e.GUID.Entry(build.Cataclysm()),
		MapID:       e.MapID,
		ZoneID:      e.ZoneID,
		AreaID:      e.AreaID,
		PhaseMask:   e.PhaseMask,
		Position:    e.Movement.Position,
		Orientation: e.Movement.Orientation,
		HasPath:     e.Movement.HasWpsOrRandMov,
		SeenAt:      e.CreateTime,
	}, true
}

// Attach подписывает регистратор на события создания
func (r *SpawnRecorder) Attach(ctx context.Context, bus eventbus.EventBus) (eventbus.Subscription, error) {
	return bus.Subscribe(ctx, eventbus.Filter{Types: []string{
		world.EventEntityCreated.String(),
		world.EventEntityMerged.String(),
	}}, r.handle)
}

func (r *SpawnRecorder) handle(ctx context.Context, env *eventbus.Envelope) {
	p, err := eventbus.DecodePayload(env)
	if err != nil {
		r.failed.Add(1)
		r.log.Warn("⚠️ Событие %s не разобрано: %v", env.ID, err)
		return
	}

	spawn, ok := SpawnFromEntity(p.Entity, r.build)
	if !ok {
		return
	}
	if err := r.repo.Save(ctx, spawn); err != nil {
		r.failed.Add(1)
		r.log.Warn("⚠️ Точка %s не сохранена: %v", spawn.GUID, err)
		return
	}
	r.saved.Add(1)
}

// Stats возвращает число сохранённых и неудачных записей
func (r *SpawnRecorder) Stats() (saved, failed int64) {
	return r.saved.Load(), r.failed.Load()
}
