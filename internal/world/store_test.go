package world

import (
	"testing"
	"time"

	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/updatefield"
	"github.com/annel0/sniff-parser/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	creatureGUID = guid.New64(0xF130000064000001)
	petGUID      = guid.New64(0xF140000064000002)
	objectGUID   = guid.New64(0xF110000050000003)
	baseTime     = time.Date(2012, 3, 14, 12, 0, 0, 0, time.UTC)
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	set, err := catalog.Embedded()
	require.NoError(t, err)
	return set.For(revision.V3_3_5_12340)
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	return NewStore(testCatalog(t), revision.V3_3_5_12340, opts)
}

// slots собирает таблицу полей по именам каталога
func slots(t *testing.T, cat *catalog.Catalog, kv map[string]uint32) updatefield.Slots {
	t.Helper()
	out := make(updatefield.Slots)
	for name, v := range kv {
		slot := cat.Slot(name)
		require.GreaterOrEqual(t, slot, 0, name)
		out[slot] = v
	}
	return out
}

func at(sec int) Context {
	return Context{MapID: 571, ZoneID: 65, AreaID: 4161, PhaseMask: 1, Time: baseTime.Add(time.Duration(sec) * time.Second)}
}

func TestCreateAndHealthChange(t *testing.T) {
	s := newTestStore(t, Options{SaveHealthUpdates: true})
	cat := s.Catalog()

	var events []EventType
	s.AddListener(ListenerFunc(func(ev Event) { events = append(events, ev.Type) }))

	created := s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"OBJECT_FIELD_ENTRY": 100, "UNIT_FIELD_HEALTH": 50, "UNIT_FIELD_MAXHEALTH": 50}), nil)
	require.True(t, created)

	tracked := s.ApplyUpdate(creatureGUID, at(5).Time, slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 40}), nil)
	require.True(t, tracked)

	changes := s.Changes(creatureGUID)
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].CurHealth)
	assert.Equal(t, uint32(40), *changes[0].CurHealth)
	assert.Nil(t, changes[0].MaxHealth)
	assert.Nil(t, changes[0].Entry)
	assert.Equal(t, at(5).Time, changes[0].Time)

	assert.Equal(t, []EventType{EventEntityCreated, EventCreatureChanged, EventEntityUpdated}, events)

	e, ok := s.Get(creatureGUID)
	require.True(t, ok)
	data := NewUnitData(cat, s.Build(), e.Fields)
	assert.Equal(t, uint32(40), data.CurHealth())
	assert.Equal(t, uint32(50), data.MaxHealth())
	assert.Equal(t, uint32(100), data.Entry())
	assert.Equal(t, uint32(571), e.MapID)
	assert.Equal(t, uint32(4161), e.AreaID)
}

func TestHealthGatedByOptions(t *testing.T) {
	s := newTestStore(t, Options{})
	cat := s.Catalog()

	s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 50}), nil)
	s.ApplyUpdate(creatureGUID, at(1).Time, slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 10}), nil)

	assert.Empty(t, s.Changes(creatureGUID))

	e, _ := s.Get(creatureGUID)
	assert.Equal(t, uint32(10), NewUnitData(cat, s.Build(), e.Fields).CurHealth(), "поле всё равно сливается")
}

func TestNoWatchedChangeNoRecord(t *testing.T) {
	s := newTestStore(t, Options{SaveHealthUpdates: true, SaveManaUpdates: true})
	cat := s.Catalog()

	s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 50, "UNIT_FIELD_LEVEL": 10}), nil)

	// Уровень не отслеживается, здоровье не изменилось
	s.ApplyUpdate(creatureGUID, at(1).Time,
		slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 50, "UNIT_FIELD_LEVEL": 11}), nil)

	assert.Empty(t, s.Changes(creatureGUID))
	e, _ := s.Get(creatureGUID)
	assert.Equal(t, uint32(11), NewUnitData(cat, s.Build(), e.Fields).Level())
}

func TestWatchListBatchesFields(t *testing.T) {
	s := newTestStore(t, Options{SaveManaUpdates: true})
	cat := s.Catalog()

	s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"UNIT_FIELD_BYTES_1": 0x01020300, "UNIT_FIELD_DISPLAYID": 11686}), nil)

	s.ApplyUpdate(creatureGUID, at(1).Time, slots(t, cat, map[string]uint32{
		"UNIT_FIELD_BYTES_1":         0x01020308,
		"UNIT_FIELD_DISPLAYID":       11686,
		"UNIT_FIELD_FACTIONTEMPLATE": 35,
		"UNIT_FIELD_POWER1":          200,
		"UNIT_FIELD_FLAGS":           0x8000,
		"OBJECT_FIELD_SCALE_X":       0x3F800000,
	}), nil)

	changes := s.Changes(creatureGUID)
	require.Len(t, changes, 1)
	u := changes[0]
	require.NotNil(t, u.StandState)
	assert.Equal(t, uint32(8), *u.StandState)
	require.NotNil(t, u.FactionTemplate)
	assert.Equal(t, uint32(35), *u.FactionTemplate)
	require.NotNil(t, u.CurMana)
	assert.Equal(t, uint32(200), *u.CurMana)
	require.NotNil(t, u.UnitFlags)
	require.NotNil(t, u.Scale)
	assert.Equal(t, float32(1), *u.Scale)
	assert.Nil(t, u.DisplayID, "значение не изменилось")

	// Изменение старших байтов BYTES_1 не меняет stand state
	s.ApplyUpdate(creatureGUID, at(2).Time, slots(t, cat, map[string]uint32{"UNIT_FIELD_BYTES_1": 0x09020308}), nil)
	assert.Len(t, s.Changes(creatureGUID), 1)
}

func TestPetIsNotWatched(t *testing.T) {
	s := newTestStore(t, Options{SaveHealthUpdates: true})
	cat := s.Catalog()

	s.CreateOrMerge(at(0), petGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 50}), nil)
	s.ApplyUpdate(petGUID, at(1).Time, slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 40}), nil)

	assert.Empty(t, s.Changes(petGUID))
}

func TestTargetChangeIsSeparate(t *testing.T) {
	s := newTestStore(t, Options{SaveHealthUpdates: true, CreatureTargetChange: true})
	cat := s.Catalog()
	target := cat.Slot("UNIT_FIELD_TARGET")

	s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 50}), nil)

	player := guid.New64(0x0000000000000042)
	s.ApplyUpdate(creatureGUID, at(1).Time, updatefield.Slots{target: 0x42, target + 1: 0}, nil)

	targets := s.TargetChanges(creatureGUID)
	require.Len(t, targets, 1)
	assert.Equal(t, player, targets[0].Target)
	assert.Empty(t, s.Changes(creatureGUID), "цель не попадает в общий журнал")

	// Только младшее слово: старшее берётся из прежнего значения
	s.ApplyUpdate(creatureGUID, at(2).Time, updatefield.Slots{target: 0x42}, nil)
	assert.Len(t, s.TargetChanges(creatureGUID), 1)

	s.ApplyUpdate(creatureGUID, at(3).Time, updatefield.Slots{target: 0}, nil)
	targets = s.TargetChanges(creatureGUID)
	require.Len(t, targets, 2)
	assert.True(t, targets[1].Target.IsEmpty())
}

func TestGameObjectWatchList(t *testing.T) {
	s := newTestStore(t, Options{})
	cat := s.Catalog()

	s.CreateOrMerge(at(0), objectGUID, catalog.GameObject, movement.Info{},
		slots(t, cat, map[string]uint32{"GAMEOBJECT_BYTES_1": 0xFF000001, "GAMEOBJECT_FLAGS": 32}), nil)

	s.ApplyUpdate(objectGUID, at(1).Time, slots(t, cat, map[string]uint32{"GAMEOBJECT_BYTES_1": 0xFF000000}), nil)
	s.ApplyUpdate(objectGUID, at(2).Time, slots(t, cat, map[string]uint32{"GAMEOBJECT_FLAGS": 32}), nil)
	s.ApplyUpdate(objectGUID, at(3).Time, slots(t, cat, map[string]uint32{"GAMEOBJECT_LEVEL": 80}), nil)

	changes := s.GameObjectChanges(objectGUID)
	require.Len(t, changes, 2)

	require.NotNil(t, changes[0].State)
	assert.Equal(t, uint32(0), *changes[0].State)
	assert.Nil(t, changes[0].AnimProgress)
	assert.Nil(t, changes[0].Flags)

	// Флаги пишутся при любом присутствии в маске
	require.NotNil(t, changes[1].Flags)
	assert.Equal(t, uint32(32), *changes[1].Flags)
}

func TestUnknownGUIDIsNoop(t *testing.T) {
	s := newTestStore(t, Options{SaveHealthUpdates: true})
	cat := s.Catalog()
	unknown := guid.New64(0xF130000064000099)

	assert.False(t, s.ApplyUpdate(unknown, baseTime, slots(t, cat, map[string]uint32{"UNIT_FIELD_HEALTH": 1}), nil))
	assert.False(t, s.Destroy(unknown, baseTime))

	_, ok := s.Get(unknown)
	assert.False(t, ok)
	assert.Equal(t, []guid.GUID{unknown}, s.Untracked())
	assert.Equal(t, 0, s.Len())
}

func TestDestroyKeepsSnapshot(t *testing.T) {
	s := newTestStore(t, Options{})
	cat := s.Catalog()

	s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"OBJECT_FIELD_ENTRY": 100}), nil)
	require.True(t, s.Destroy(creatureGUID, at(9).Time))

	e, ok := s.Get(creatureGUID)
	require.True(t, ok)
	assert.True(t, e.Destroyed)
	assert.Equal(t, at(9).Time, e.DestroyTime)
	assert.Equal(t, uint32(100), NewUnitData(cat, s.Build(), e.Fields).Entry())
	assert.Equal(t, 1, s.Stats().Destroyed)
}

func TestCreateOrMergeIdempotent(t *testing.T) {
	s := newTestStore(t, Options{SaveHealthUpdates: true})
	cat := s.Catalog()
	fields := slots(t, cat, map[string]uint32{"OBJECT_FIELD_ENTRY": 100, "UNIT_FIELD_HEALTH": 50})
	mov := movement.Info{Position: vec.Vector3{X: 1, Y: 2, Z: 3}}

	assert.True(t, s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, mov, fields.Clone(), nil))
	first, _ := s.Get(creatureGUID)

	assert.False(t, s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, mov, fields.Clone(), nil))
	second, _ := s.Get(creatureGUID)

	assert.Equal(t, first, second)
	assert.Empty(t, s.Changes(creatureGUID))
	assert.Len(t, s.All(), 1)
}

func TestMergeORsPhaseMask(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := at(0)

	s.CreateOrMerge(ctx, creatureGUID, catalog.Unit, movement.Info{}, nil, nil)
	ctx.PhaseMask = 4
	s.CreateOrMerge(ctx, creatureGUID, catalog.Unit, movement.Info{}, nil, nil)

	e, _ := s.Get(creatureGUID)
	assert.Equal(t, uint32(5), e.PhaseMask)
}

func TestWaypointHeuristic(t *testing.T) {
	cat := testCatalog(t)
	here := movement.Info{Position: vec.Vector3{X: 10, Y: 20, Z: 30}}
	there := movement.Info{Position: vec.Vector3{X: 11, Y: 20, Z: 30}}

	t.Run("позиция изменилась", func(t *testing.T) {
		s := NewStore(cat, revision.V3_3_5_12340, Options{})
		s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, here, nil, nil)
		s.CreateOrMerge(at(1), creatureGUID, catalog.Unit, there, nil, nil)

		e, _ := s.Get(creatureGUID)
		assert.True(t, e.Movement.HasWpsOrRandMov)
		assert.Equal(t, here.Position, e.Movement.Position, "движение при повторном создании не заменяется")
	})

	t.Run("в бою", func(t *testing.T) {
		s := NewStore(cat, revision.V3_3_5_12340, Options{})
		s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, here,
			slots(t, cat, map[string]uint32{"UNIT_FIELD_FLAGS": UnitFlagInCombat}), nil)
		s.CreateOrMerge(at(1), creatureGUID, catalog.Unit, there, nil, nil)

		e, _ := s.Get(creatureGUID)
		assert.False(t, e.Movement.HasWpsOrRandMov)
	})

	t.Run("не существо", func(t *testing.T) {
		s := NewStore(cat, revision.V3_3_5_12340, Options{})
		s.CreateOrMerge(at(0), objectGUID, catalog.GameObject, here, nil, nil)
		s.CreateOrMerge(at(1), objectGUID, catalog.GameObject, there, nil, nil)

		e, _ := s.Get(objectGUID)
		assert.False(t, e.Movement.HasWpsOrRandMov)
	})
}

func TestVehicleAccessoriesDeduplicated(t *testing.T) {
	s := newTestStore(t, Options{})
	var n int
	s.AddListener(ListenerFunc(func(ev Event) {
		if ev.Type == EventVehicleAccessory {
			n++
		}
	}))

	a := movement.Accessory{Entry: 200, AccessoryEntry: 100, SeatID: 2}
	s.AddVehicleAccessory(a)
	s.AddVehicleAccessory(a)
	s.AddVehicleAccessory(movement.Accessory{Entry: 200, AccessoryEntry: 101, SeatID: 3})

	assert.Len(t, s.Accessories(), 2)
	assert.Equal(t, a, s.Accessories()[0])
	assert.Equal(t, 2, n)
}

func TestQueriesReturnCopies(t *testing.T) {
	s := newTestStore(t, Options{})
	cat := s.Catalog()
	s.CreateOrMerge(at(0), creatureGUID, catalog.Unit, movement.Info{},
		slots(t, cat, map[string]uint32{"OBJECT_FIELD_ENTRY": 100}), nil)
	s.CreateOrMerge(at(0), objectGUID, catalog.GameObject, movement.Info{}, nil, nil)

	e, _ := s.Get(creatureGUID)
	e.Fields[cat.Slot("OBJECT_FIELD_ENTRY")] = 1

	again, _ := s.Get(creatureGUID)
	assert.Equal(t, uint32(100), again.Fields[cat.Slot("OBJECT_FIELD_ENTRY")])

	assert.Len(t, s.ByKind(catalog.GameObject), 1)
	assert.Len(t, s.ByKind(catalog.Unit), 1)
	assert.Equal(t, map[string]int{catalog.Unit.String(): 1, catalog.GameObject.String(): 1}, s.Stats().ByKind)
}

func TestRestoreAndActivePlayer(t *testing.T) {
	s := newTestStore(t, Options{})
	player := guid.New64(0x0000000000000007)

	s.Restore(&Entity{GUID: player, Kind: catalog.Player, Fields: updatefield.Slots{}, Dynamic: updatefield.DynamicSlots{}})
	s.MarkActivePlayer(player)

	g, ok := s.ActivePlayer()
	require.True(t, ok)
	assert.Equal(t, player, g)

	e, _ := s.Get(player)
	assert.True(t, e.ActivePlayer)
	assert.True(t, e.IsCreature())
}

func TestIsCreatureFollowsGUIDType(t *testing.T) {
	cases := []struct {
		name string
		e    Entity
		want bool
	}{
		{"существо", Entity{GUID: creatureGUID, Kind: catalog.Unit}, true},
		{"существо с чужим типом блока", Entity{GUID: creatureGUID, Kind: catalog.Object}, true},
		{"транспорт", Entity{GUID: guid.New64(0xF150000C8000000A), Kind: catalog.Unit}, true},
		{"игрок", Entity{GUID: guid.New64(0x0000000000000042), Kind: catalog.Player}, true},
		{"питомец", Entity{GUID: petGUID, Kind: catalog.Unit}, false},
		{"GUID объекта с типом юнита", Entity{GUID: objectGUID, Kind: catalog.Unit}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.e.IsCreature())
		})
	}
}
