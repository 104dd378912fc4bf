package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/google/uuid"
)

// PayloadVersion - версия схемы EventPayload
const PayloadVersion = 1

// EventPayload - JSON-тело события хранилища
type EventPayload struct {
	GUID      guid.GUID               `json:"guid"`
	Time      time.Time               `json:"time"`
	Entity    *world.Entity           `json:"entity,omitempty"`
	Creature  *world.CreatureUpdate   `json:"creature,omitempty"`
	Object    *world.GameObjectUpdate `json:"object,omitempty"`
	Target    *world.TargetChange     `json:"target,omitempty"`
	Accessory *movement.Accessory     `json:"accessory,omitempty"`
}

// StoreBridge публикует события хранилища в шину.
// Реализует world.Listener; ошибки публикации только логируются,
// чтобы разбор захвата не зависел от доступности брокера.
type StoreBridge struct {
	bus     EventBus
	source  string
	skip    map[world.EventType]bool
	timeout time.Duration
	log     *logging.Logger
}

// BridgeOption настраивает StoreBridge
type BridgeOption func(*StoreBridge)

// WithSkip отключает публикацию указанных типов событий
func WithSkip(types ...world.EventType) BridgeOption {
	return func(b *StoreBridge) {
		for _, t := range types {
			b.skip[t] = true
		}
	}
}

// WithPublishTimeout ограничивает ожидание при заполненном буфере
func WithPublishTimeout(d time.Duration) BridgeOption {
	return func(b *StoreBridge) { b.timeout = d }
}

// NewStoreBridge создаёт мост. source попадает в Envelope.Source (обычно имя файла захвата).
func NewStoreBridge(bus EventBus, source string, opts ...BridgeOption) *StoreBridge {
	b := &StoreBridge{
		bus:     bus,
		source:  source,
		skip:    make(map[world.EventType]bool),
		timeout: 5 * time.Second,
		log:     logging.GetEventBusLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetSource меняет источник для последующих событий
func (b *StoreBridge) SetSource(source string) {
	b.source = source
}

// priority: уничтожение и изменения важнее рядовых обновлений
func priority(t world.EventType) int {
	switch t {
	case world.EventEntityCreated, world.EventEntityDestroyed:
		return 7
	case world.EventCreatureChanged, world.EventGameObjectChanged,
		world.EventTargetChanged, world.EventVehicleAccessory:
		return 5
	default:
		return 1
	}
}

// Envelope строит конверт для события хранилища
func (b *StoreBridge) Envelope(ev world.Event) (*Envelope, error) {
	payload, err := json.Marshal(EventPayload{
		GUID:      ev.GUID,
		Time:      ev.Time,
		Entity:    ev.Entity,
		Creature:  ev.Creature,
		Object:    ev.Object,
		Target:    ev.Target,
		Accessory: ev.Accessory,
	})
	if err != nil {
		return nil, err
	}

	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	env := &Envelope{
		ID:        uuid.NewString(),
		Timestamp: ts.UTC(),
		Source:    b.source,
		EventType: ev.Type.String(),
		Version:   PayloadVersion,
		Priority:  priority(ev.Type),
		Payload:   payload,
	}
	if !ev.GUID.IsEmpty() {
		env.CorrelationID = ev.GUID.String()
	}
	return env, nil
}

// HandleEvent реализует world.Listener
func (b *StoreBridge) HandleEvent(ev world.Event) {
	if b.skip[ev.Type] {
		return
	}

	env, err := b.Envelope(ev)
	if err != nil {
		b.log.Warn("⚠️ Событие %s %s не сериализовано: %v", ev.Type, ev.GUID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.bus.Publish(ctx, env); err != nil {
		b.log.Warn("⚠️ Событие %s %s не опубликовано: %v", ev.Type, ev.GUID, err)
	}
}

// DecodePayload разбирает Payload конверта, опубликованного StoreBridge
func DecodePayload(env *Envelope) (EventPayload, error) {
	var p EventPayload
	err := json.Unmarshal(env.Payload, &p)
	return p, err
}
