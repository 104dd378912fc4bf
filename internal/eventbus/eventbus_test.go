package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/vec"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector накапливает доставленные конверты
type collector struct {
	mu  sync.Mutex
	evs []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.evs = append(c.evs, ev)
	c.mu.Unlock()
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.evs))
	for _, ev := range c.evs {
		out = append(out, ev.EventType)
	}
	return out
}

func TestMemoryBusOrderAndFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var all, created collector
	_, err := bus.Subscribe(ctx, Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, Filter{Types: []string{"EntityCreated"}}, created.handle)
	require.NoError(t, err)

	for _, typ := range []string{"EntityCreated", "EntityUpdated", "EntityDestroyed", "EntityCreated"} {
		require.NoError(t, bus.Publish(ctx, &Envelope{EventType: typ}))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"EntityCreated", "EntityUpdated", "EntityDestroyed", "EntityCreated"}, all.types())
	assert.Equal(t, []string{"EntityCreated", "EntityCreated"}, created.types())

	stats := bus.Metrics()
	assert.Equal(t, uint64(4), stats.Published)
	assert.Equal(t, uint64(6), stats.Consumed)

	assert.ErrorIs(t, bus.Publish(ctx, &Envelope{}), ErrClosed)
	_, err = bus.Subscribe(ctx, Filter{}, all.handle)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) {
		once.Do(func() { close(started) })
		<-release
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "a"}))
	<-started // первое событие уже у подписчика
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "b"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "c", Priority: 1}))

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = bus.Publish(timeout, &Envelope{EventType: "d", Priority: 9})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, bus.Close())

	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, uint64(2), stats.Consumed)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	ctx := context.Background()

	var c collector
	sub, err := bus.Subscribe(ctx, Filter{Sources: []string{"a.pkt"}}, c.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "x", Source: "a.pkt"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "y", Source: "b.pkt"}))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 && len(c.types()) == 1 }, time.Second, time.Millisecond)

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "z", Source: "a.pkt"}))
	require.NoError(t, bus.Close())
	assert.Equal(t, []string{"x"}, c.types())
}

func TestStoreBridgePublishesStoreEvents(t *testing.T) {
	set, err := catalog.Embedded()
	require.NoError(t, err)
	cat := set.For(revision.V3_3_5_12340)
	store := world.NewStore(cat, revision.V3_3_5_12340, world.Options{SaveHealthUpdates: true})

	bus := NewMemoryBus(64)
	var c collector
	_, err = bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	store.AddListener(NewStoreBridge(bus, "capture.pkt", WithSkip(world.EventEntityUpdated)))

	g := guid.New64(0xF130000064000001)
	at := time.Date(2012, 3, 14, 12, 0, 0, 0, time.UTC)
	store.CreateOrMerge(world.Context{PhaseMask: 1, Time: at}, g, catalog.Unit,
		movement.Info{Position: vec.Vector3{X: 1, Y: 2, Z: 3}},
		map[int]uint32{cat.Slot("UNIT_FIELD_HEALTH"): 50}, nil)
	store.ApplyUpdate(g, at.Add(time.Second), map[int]uint32{cat.Slot("UNIT_FIELD_HEALTH"): 40}, nil)
	store.Destroy(g, at.Add(2*time.Second))
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"EntityCreated", "CreatureChanged", "EntityDestroyed"}, c.types())

	first := c.evs[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "capture.pkt", first.Source)
	assert.Equal(t, g.String(), first.CorrelationID)
	assert.Equal(t, at, first.Timestamp)
	assert.Equal(t, PayloadVersion, first.Version)

	p, err := DecodePayload(first)
	require.NoError(t, err)
	assert.Equal(t, g, p.GUID)
	require.NotNil(t, p.Entity)
	assert.Equal(t, catalog.Unit, p.Entity.Kind)
	assert.Equal(t, vec.Vector3{X: 1, Y: 2, Z: 3}, p.Entity.Movement.Position)

	change, err := DecodePayload(c.evs[1])
	require.NoError(t, err)
	require.NotNil(t, change.Creature)
	require.NotNil(t, change.Creature.CurHealth)
	assert.Equal(t, uint32(40), *change.Creature.CurHealth)
	assert.NotEqual(t, first.ID, c.evs[1].ID)
}

func TestMetricsExporter(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "a"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "b"}))
	require.NoError(t, bus.Close())

	me.Collect()
	me.Collect()
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))
	assert.Equal(t, 0.0, testutil.ToFloat64(me.inflight))

	me.Stop() // без Start не блокируется
}

func TestLoggingListener(t *testing.T) {
	bus := NewMemoryBus(4)
	sub, err := StartLoggingListener(bus)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "EntityCreated"}))
	sub.Unsubscribe()
	require.NoError(t, bus.Close())
}

func TestCaptureSubjects(t *testing.T) {
	assert.Equal(t, "sniff.capture_pkt.EntityCreated", Subject("/tmp/dumps/capture.pkt", "EntityCreated"))
	assert.Equal(t, "sniff.live.TargetChanged", Subject("", "TargetChanged"))
	assert.Equal(t, "sniff.*.EntityMoved", Subject("*", "EntityMoved"))
	assert.Equal(t, "sniff.a_b_pkt.X", Subject("a b*.pkt", "X"))

	assert.Equal(t, "sniff.>", filterSubject(Filter{}))
	assert.Equal(t, "sniff.>", filterSubject(Filter{Types: []string{"A", "B"}}))
	assert.Equal(t, "sniff.*.CreatureChanged", filterSubject(Filter{Types: []string{"CreatureChanged"}}))
	assert.Equal(t, "sniff.capture_pkt.*", filterSubject(Filter{Sources: []string{"capture.pkt"}}))
	assert.Equal(t, "sniff.capture_pkt.EntityMoved",
		filterSubject(Filter{Types: []string{"EntityMoved"}, Sources: []string{"capture.pkt"}}))
}
