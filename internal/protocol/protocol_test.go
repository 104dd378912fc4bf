package protocol

import (
	"bytes"
	"testing"
	"time"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/capture"
	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/updatefield"
	"github.com/annel0/sniff-parser/internal/vec"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	opUpdate     = 0x0A9
	opDestroy    = 0x0AA
	opCompressed = 0x1F6
	opFailed     = 0x097

	wireUnit   = 3
	wirePlayer = 4
)

var (
	creatureGUID = guid.New64(0xF130000064000001)
	playerGUID   = guid.New64(0x0000000000000042)
	baseTime     = time.Date(2012, 3, 14, 12, 0, 0, 0, time.UTC)
)

func newTestHandler(t *testing.T) (*Handler, *world.Store) {
	t.Helper()
	set, err := catalog.Embedded()
	require.NoError(t, err)

	store := world.NewStore(set.For(revision.V3_3_5_12340), revision.V3_3_5_12340, world.Options{SaveHealthUpdates: true})
	names, ok := DefaultOpcodes(revision.V3_3_5_12340)
	require.True(t, ok)
	ops, err := NewOpcodes(names)
	require.NoError(t, err)

	return NewHandler(store, ops, nil), store
}

func fields(t *testing.T, store *world.Store, kv map[string]uint32) updatefield.Slots {
	t.Helper()
	out := make(updatefield.Slots)
	for name, v := range kv {
		slot := store.Catalog().Slot(name)
		require.GreaterOrEqual(t, slot, 0, name)
		out[slot] = v
	}
	return out
}

// stationary пишет блок движения 3.3.5 с одной позицией
func stationary(w *bitstream.Writer, flags movement.UpdateFlag, pos vec.Vector3) {
	w.WriteUint16(uint16(flags | movement.UpdateFlagStationaryObject))
	w.WriteVector3(pos)
	w.WriteFloat(1.5)
}

type block func(w *bitstream.Writer)

func updateObject(blocks ...block) []byte {
	w := bitstream.NewWriter()
	w.WriteUint32(uint32(len(blocks)))
	for _, b := range blocks {
		b(w)
	}
	return w.Bytes()
}

func createBlock(g guid.GUID, wireKind uint8, flags movement.UpdateFlag, pos vec.Vector3, slots updatefield.Slots) block {
	return func(w *bitstream.Writer) {
		w.WriteUint8(2)
		w.WritePackedGUID(g)
		w.WriteUint8(wireKind)
		stationary(w, flags, pos)
		updatefield.EncodeSlots(w, slots)
	}
}

func valuesBlock(g guid.GUID, slots updatefield.Slots) block {
	return func(w *bitstream.Writer) {
		w.WriteUint8(0)
		w.WritePackedGUID(g)
		updatefield.EncodeSlots(w, slots)
	}
}

func guidListBlock(t uint8, gs ...guid.GUID) block {
	return func(w *bitstream.Writer) {
		w.WriteUint8(t)
		w.WriteInt32(int32(len(gs)))
		for _, g := range gs {
			w.WritePackedGUID(g)
		}
	}
}

func record(op uint32, sec int, payload []byte) capture.Record {
	return capture.Record{Opcode: op, Time: baseTime.Add(time.Duration(sec) * time.Second), Payload: payload}
}

func TestCreateThenHealthUpdate(t *testing.T) {
	h, store := newTestHandler(t)
	pos := vec.Vector3{X: 100, Y: 200, Z: 30}

	create := updateObject(createBlock(creatureGUID, wireUnit, 0, pos, fields(t, store, map[string]uint32{
		"OBJECT_FIELD_ENTRY":   100,
		"UNIT_FIELD_HEALTH":    50,
		"UNIT_FIELD_MAXHEALTH": 50,
	})))
	require.NoError(t, h.Handle(record(opUpdate, 0, create), nil))

	update := updateObject(valuesBlock(creatureGUID, fields(t, store, map[string]uint32{"UNIT_FIELD_HEALTH": 40})))
	require.NoError(t, h.Handle(record(opUpdate, 5, update), nil))

	e, ok := store.Get(creatureGUID)
	require.True(t, ok)
	assert.Equal(t, catalog.Unit, e.Kind)
	assert.Equal(t, pos, e.Movement.Position)
	assert.Equal(t, uint32(1), e.PhaseMask)
	assert.Equal(t, baseTime, e.CreateTime)

	data := world.NewUnitData(store.Catalog(), store.Build(), e.Fields)
	assert.Equal(t, uint32(100), data.Entry())
	assert.Equal(t, uint32(40), data.CurHealth())

	changes := store.Changes(creatureGUID)
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].CurHealth)
	assert.Equal(t, uint32(40), *changes[0].CurHealth)
	assert.Equal(t, baseTime.Add(5*time.Second), changes[0].Time)
}

func TestValuesForUnknownObject(t *testing.T) {
	h, store := newTestHandler(t)
	rec := observe.NewRecorder()

	update := updateObject(valuesBlock(creatureGUID, fields(t, store, map[string]uint32{"UNIT_FIELD_HEALTH": 40})))
	require.NoError(t, h.Handle(record(opUpdate, 0, update), rec))

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, []guid.GUID{creatureGUID}, store.Untracked())
	assert.True(t, rec.Has("UNIT_FIELD_HEALTH"))
}

func TestDestroyBlockAndOpcode(t *testing.T) {
	h, store := newTestHandler(t)
	other := guid.New64(0xF130000064000002)

	create := updateObject(
		createBlock(creatureGUID, wireUnit, 0, vec.Vector3{}, fields(t, store, map[string]uint32{"OBJECT_FIELD_ENTRY": 100})),
		createBlock(other, wireUnit, 0, vec.Vector3{}, fields(t, store, map[string]uint32{"OBJECT_FIELD_ENTRY": 101})),
		guidListBlock(6, creatureGUID),
	)
	require.NoError(t, h.Handle(record(opUpdate, 1, create), nil))

	e, ok := store.Get(creatureGUID)
	require.True(t, ok)
	assert.True(t, e.Destroyed)
	assert.Equal(t, baseTime.Add(time.Second), e.DestroyTime)

	w := bitstream.NewWriter()
	w.WriteUint64(other.Low)
	w.WriteBool(true)
	require.NoError(t, h.Handle(record(opDestroy, 2, w.Bytes()), nil))

	e, ok = store.Get(other)
	require.True(t, ok)
	assert.True(t, e.Destroyed)
	assert.Equal(t, 2, store.Len(), "уничтоженные объекты остаются в хранилище")
}

func TestFarNearObjectsAreObservedOnly(t *testing.T) {
	h, store := newTestHandler(t)
	rec := observe.NewRecorder()

	payload := updateObject(guidListBlock(4, creatureGUID, playerGUID), guidListBlock(5, playerGUID))
	require.NoError(t, h.Handle(record(opUpdate, 0, payload), rec))

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Untracked())

	first, ok := rec.Find("Object GUID")
	require.True(t, ok)
	assert.Equal(t, creatureGUID, first.Value)
	assert.Equal(t, []int{0, 0}, first.Index)

	types := 0
	for _, tup := range rec.Tuples() {
		if tup.Name == "UpdateType" {
			types++
		}
	}
	assert.Equal(t, 2, types)
}

func TestMovementBlockReplacesMovement(t *testing.T) {
	h, store := newTestHandler(t)

	create := updateObject(createBlock(creatureGUID, wireUnit, 0, vec.Vector3{X: 1}, fields(t, store, map[string]uint32{"OBJECT_FIELD_ENTRY": 100})))
	require.NoError(t, h.Handle(record(opUpdate, 0, create), nil))

	moved := updateObject(func(w *bitstream.Writer) {
		w.WriteUint8(1)
		w.WritePackedGUID(creatureGUID)
		stationary(w, 0, vec.Vector3{X: 2, Y: 3, Z: 4})
	})
	require.NoError(t, h.Handle(record(opUpdate, 1, moved), nil))

	e, ok := store.Get(creatureGUID)
	require.True(t, ok)
	assert.Equal(t, vec.Vector3{X: 2, Y: 3, Z: 4}, e.Movement.Position)
}

func TestSelfCreateMarksActivePlayer(t *testing.T) {
	h, store := newTestHandler(t)

	create := updateObject(createBlock(playerGUID, wirePlayer, movement.UpdateFlagSelf, vec.Vector3{}, fields(t, store, map[string]uint32{"OBJECT_FIELD_ENTRY": 0})))
	require.NoError(t, h.Handle(record(opUpdate, 0, create), nil))

	g, ok := store.ActivePlayer()
	require.True(t, ok)
	assert.Equal(t, playerGUID, g)

	e, ok := store.Get(playerGUID)
	require.True(t, ok)
	assert.True(t, e.ActivePlayer)
	assert.Equal(t, catalog.Player, e.Kind)
}

func TestCompressedUpdateObject(t *testing.T) {
	h, store := newTestHandler(t)
	body := updateObject(createBlock(creatureGUID, wireUnit, 0, vec.Vector3{}, fields(t, store, map[string]uint32{"OBJECT_FIELD_ENTRY": 100})))

	var packed bytes.Buffer
	zw := zlib.NewWriter(&packed)
	_, err := zw.Write(body)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	w := bitstream.NewWriter()
	w.WriteInt32(int32(len(body)))
	w.WriteBytes(packed.Bytes())
	require.NoError(t, h.Handle(record(opCompressed, 0, w.Bytes()), nil))
	assert.Equal(t, 1, store.Len())

	bad := bitstream.NewWriter()
	bad.WriteInt32(int32(len(body) + 10))
	bad.WriteBytes(packed.Bytes())
	err = h.Handle(record(opCompressed, 0, bad.Bytes()), nil)
	assert.ErrorIs(t, err, ErrInflateSize)
}

func TestObjectUpdateFailed(t *testing.T) {
	h, store := newTestHandler(t)
	v := creatureGUID.Low

	w := bitstream.NewWriter()
	w.WriteGUIDMask(v, 6, 7, 4, 0, 1, 5, 3, 2)
	w.FlushBits()
	w.WriteGUIDBytes(v, 6, 7, 2, 3, 1, 4, 0, 5)

	rec := observe.NewRecorder()
	require.NoError(t, h.Handle(record(opFailed, 0, w.Bytes()), rec))

	got, ok := rec.Find("Guid")
	require.True(t, ok)
	assert.Equal(t, creatureGUID, got.Value)
	assert.Equal(t, 0, store.Len())
}

func TestUpdateFailedOrderChangesIn510(t *testing.T) {
	old := updateFailedOrder.Select(revision.V4_3_4_15595)
	assert.Equal(t, []int{6, 7, 4, 0, 1, 5, 3, 2}, old.declare)

	mop := updateFailedOrder.Select(revision.V5_1_0_16309)
	assert.Equal(t, []int{5, 3, 0, 6, 1, 4, 2, 7}, mop.declare)
	assert.Equal(t, []int{2, 3, 7, 4, 5, 1, 0, 6}, mop.complete)
}

func TestUnknownOpcodeIsSkipped(t *testing.T) {
	h, _ := newTestHandler(t)
	err := h.Handle(record(0x7FFF, 0, []byte{1, 2}), nil)
	assert.ErrorIs(t, err, capture.ErrSkipped)
	assert.Equal(t, "0x7FFF", h.OpcodeName(capture.Record{Opcode: 0x7FFF}))
	assert.Equal(t, OpUpdateObject, h.OpcodeName(capture.Record{Opcode: opUpdate}))
}

func TestTruncatedRecordFails(t *testing.T) {
	h, store := newTestHandler(t)
	create := updateObject(createBlock(creatureGUID, wireUnit, 0, vec.Vector3{}, fields(t, store, map[string]uint32{"OBJECT_FIELD_ENTRY": 100})))

	err := h.Handle(record(opUpdate, 0, create[:len(create)-2]), nil)
	assert.ErrorIs(t, err, bitstream.ErrOverrun)
	assert.Equal(t, 0, store.Len())
}

func TestUnknownBlockTypeFails(t *testing.T) {
	h, _ := newTestHandler(t)
	payload := updateObject(func(w *bitstream.Writer) { w.WriteUint8(9) })

	err := h.Handle(record(opUpdate, 0, payload), nil)
	assert.ErrorIs(t, err, ErrUnknownBlock)
}

func TestBlockNames(t *testing.T) {
	name, ok := BlockName(1, revision.V3_3_5_12340)
	assert.True(t, ok)
	assert.Equal(t, BlockMovement, name)

	name, ok = BlockName(1, revision.V4_3_4_15595)
	assert.True(t, ok)
	assert.Equal(t, BlockCreateObject1, name)

	_, ok = BlockName(4, revision.V4_3_4_15595)
	assert.False(t, ok)
}

func TestNewOpcodesRejectsDuplicates(t *testing.T) {
	_, err := NewOpcodes(map[string]uint32{"A": 1, "B": 1})
	assert.Error(t, err)

	ops, err := NewOpcodes(map[string]uint32{OpUpdateObject: 0x0A9})
	require.NoError(t, err)
	num, ok := ops.Number(OpUpdateObject)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x0A9), num)
	assert.Equal(t, 1, ops.Len())

	_, ok = DefaultOpcodes(revision.V4_3_4_15595)
	assert.False(t, ok)
}

func newHandlerFor(t *testing.T, build revision.Build) (*Handler, *world.Store) {
	t.Helper()
	set, err := catalog.Embedded()
	require.NoError(t, err)

	names, ok := DefaultOpcodes(revision.V3_3_5_12340)
	require.True(t, ok)
	ops, err := NewOpcodes(names)
	require.NoError(t, err)

	store := world.NewStore(set.For(build), build, world.Options{})
	return NewHandler(store, ops, nil), store
}

// cataUpdateObject - SMSG_UPDATE_OBJECT с 4.0.1: карта, затем блоки
func cataUpdateObject(mapID uint16, blocks ...block) []byte {
	w := bitstream.NewWriter()
	w.WriteUint16(mapID)
	w.WriteUint32(uint32(len(blocks)))
	for _, b := range blocks {
		b(w)
	}
	return w.Bytes()
}

// cataCreate - CreateObject1 с 4.0.1; mov пишет блок движения нужной эпохи
func cataCreate(g guid.GUID, wireKind uint8, dynamic bool, mov func(w *bitstream.Writer)) block {
	return func(w *bitstream.Writer) {
		w.WriteUint8(1)
		w.WritePackedGUID(g)
		w.WriteUint8(wireKind)
		mov(w)
		updatefield.EncodeSlots(w, nil)
		if dynamic {
			w.WriteUint8(0)
		}
	}
}

// stationary510 - неподвижный блок движения 5.1.0
func stationary510(self bool, pos vec.Vector3) func(w *bitstream.Writer) {
	return func(w *bitstream.Writer) {
		w.WriteBits(0, 6)
		w.WriteBits(0, 24)
		w.WriteBits(0, 4)
		w.WriteBit(self)
		w.WriteBits(0, 4)
		w.WriteBit(true) // stationary
		w.WriteBit(false)
		w.WriteBits(0, 21)
		w.WriteBit(false)

		w.WriteFloat(pos.X)
		w.WriteFloat(0)
		w.WriteFloat(pos.Y)
		w.WriteFloat(pos.Z)
	}
}

// stationary504 - неподвижный блок движения 5.0.4
func stationary504(self bool, pos vec.Vector3) func(w *bitstream.Writer) {
	return func(w *bitstream.Writer) {
		w.WriteBits(0, 2)
		w.WriteBits(0, 24)
		w.WriteBits(0, 2)
		w.WriteBit(true) // stationary
		w.WriteBits(0, 21)
		w.WriteBits(0, 10)
		w.WriteBit(self)

		w.WriteFloat(pos.Y)
		w.WriteFloat(pos.Z)
		w.WriteFloat(pos.X)
		w.WriteFloat(0)
	}
}

func TestActivePlayerByBuild(t *testing.T) {
	pos := vec.Vector3{X: 1, Y: 2, Z: 3}

	cases := []struct {
		name   string
		build  revision.Build
		create block
		marked bool
	}{
		{
			name:  "4.2.2 побайтовый блок",
			build: revision.V4_2_2_14545,
			create: cataCreate(playerGUID, wirePlayer, false, func(w *bitstream.Writer) {
				stationary(w, movement.UpdateFlagSelf, pos)
			}),
			marked: true,
		},
		{
			name:   "5.1.0",
			build:  revision.V5_1_0_16309,
			create: cataCreate(playerGUID, wirePlayer, true, stationary510(true, pos)),
			marked: true,
		},
		{
			name:   "5.0.4 не отмечает",
			build:  revision.V5_0_4_16016,
			create: cataCreate(playerGUID, wirePlayer, true, stationary504(true, pos)),
			marked: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, store := newHandlerFor(t, tc.build)
			require.NoError(t, h.Handle(record(opUpdate, 0, cataUpdateObject(571, tc.create)), nil))

			e, ok := store.Get(playerGUID)
			require.True(t, ok)
			assert.Equal(t, uint32(571), e.MapID)
			assert.Equal(t, pos, e.Movement.Position)
			assert.True(t, e.Movement.Self)

			g, ok := store.ActivePlayer()
			assert.Equal(t, tc.marked, ok)
			assert.Equal(t, tc.marked, e.ActivePlayer)
			if tc.marked {
				assert.Equal(t, playerGUID, g)
			}
		})
	}
}

func TestSelfMovementBlockMarksActivePlayer(t *testing.T) {
	h, store := newTestHandler(t)

	create := updateObject(createBlock(playerGUID, wirePlayer, 0, vec.Vector3{}, nil))
	require.NoError(t, h.Handle(record(opUpdate, 0, create), nil))
	_, ok := store.ActivePlayer()
	require.False(t, ok)

	moved := updateObject(func(w *bitstream.Writer) {
		w.WriteUint8(1)
		w.WritePackedGUID(playerGUID)
		stationary(w, movement.UpdateFlagSelf, vec.Vector3{X: 5})
	})
	require.NoError(t, h.Handle(record(opUpdate, 1, moved), nil))

	g, ok := store.ActivePlayer()
	require.True(t, ok)
	assert.Equal(t, playerGUID, g)

	e, ok := store.Get(playerGUID)
	require.True(t, ok)
	assert.True(t, e.ActivePlayer)
	assert.Equal(t, vec.Vector3{X: 5}, e.Movement.Position)
}
