package protocol

import (
	"errors"
	"fmt"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/updatefield"
	"github.com/annel0/sniff-parser/internal/world"
)

// Имена типов блоков SMSG_UPDATE_OBJECT
const (
	BlockValues         = "Values"
	BlockMovement       = "Movement"
	BlockCreateObject1  = "CreateObject1"
	BlockCreateObject2  = "CreateObject2"
	BlockFarObjects     = "FarObjects"
	BlockNearObjects    = "NearObjects"
	BlockDestroyObjects = "DestroyObjects"
)

// ErrUnknownBlock - байт типа блока вне таблицы эпохи
var ErrUnknownBlock = errors.New("неизвестный тип блока")

// blockTypes - нумерация типов блоков. С Cataclysm Movement и
// Far/Near исчезли, и номера сдвинулись.
var blockTypes = revision.NewTable([]string{
	BlockValues, BlockMovement, BlockCreateObject1, BlockCreateObject2,
	BlockFarObjects, BlockNearObjects, BlockDestroyObjects,
}).Register(revision.V4_0_1_13164, []string{
	BlockValues, BlockCreateObject1, BlockCreateObject2, BlockDestroyObjects,
})

// BlockName возвращает имя типа блока для сборки
func BlockName(t uint8, build revision.Build) (string, bool) {
	names := blockTypes.Select(build)
	if int(t) >= len(names) {
		return fmt.Sprintf("Unknown%d", t), false
	}
	return names[t], true
}

// UpdateObject разбирает SMSG_UPDATE_OBJECT
func (h *Handler) UpdateObject(r *bitstream.Reader, ctx world.Context, o observe.Observer) error {
	o = observe.OrNop(o)

	if h.build.AddedIn(revision.V4_0_1_13164) {
		ctx.MapID = uint32(r.ReadUint16())
		o.Value("Map", ctx.MapID)
	}

	count := r.ReadUint32()
	o.Value("Count", count)

	if h.build.RemovedIn(revision.V3_0_2_9056) {
		o.Value("Has Transport", r.ReadBool())
	}

	for i := 0; i < int(count) && r.Err() == nil; i++ {
		t := r.ReadUint8()
		name, known := BlockName(t, h.build)
		o.Value("UpdateType", name, i)
		if !known {
			return fmt.Errorf("блок %d: %w: %d", i, ErrUnknownBlock, t)
		}

		bo := observe.Indexed(o, i)
		var err error
		switch name {
		case BlockValues:
			err = h.valuesBlock(r, ctx, bo)
		case BlockMovement:
			err = h.movementBlock(r, ctx, bo)
		case BlockCreateObject1, BlockCreateObject2:
			err = h.createBlock(r, ctx, bo)
		case BlockFarObjects, BlockNearObjects:
			h.objectsBlock(r, bo, nil)
		case BlockDestroyObjects:
			h.objectsBlock(r, bo, func(g guid.GUID) { h.store.Destroy(g, ctx.Time) })
		}
		if err != nil {
			return fmt.Errorf("блок %d (%s): %w", i, name, err)
		}
	}

	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", OpUpdateObject, err)
	}
	return nil
}

func (h *Handler) readGUID(r *bitstream.Reader, o observe.Observer) guid.GUID {
	g := r.ReadPackedGUID(h.build.WideGUID())
	o.Value("GUID", g)
	return g
}

// valuesBlock разбирает частичное обновление полей.
// Для объекта, чьё создание не попало в захват, тип берётся из GUID,
// а результат не сохраняется.
func (h *Handler) valuesBlock(r *bitstream.Reader, ctx world.Context, o observe.Observer) error {
	g := h.readGUID(r, o)

	kind, prev, _, known := h.store.Lookup(g)
	if !known {
		kind = catalog.KindOf(g)
	}

	fields, err := h.decoder.Decode(r, kind, false, prev, o)
	if err != nil {
		return err
	}

	var dynamic updatefield.DynamicSlots
	if h.build.HasDynamicFields() {
		if dynamic, err = h.decoder.DecodeDynamic(r, kind, o); err != nil {
			return err
		}
	}

	h.store.ApplyUpdate(g, ctx.Time, fields, dynamic)
	return nil
}

func (h *Handler) movementBlock(r *bitstream.Reader, ctx world.Context, o observe.Observer) error {
	var g guid.GUID
	if h.build.AddedIn(revision.V3_1_2_9901) {
		g = r.ReadPackedGUID(h.build.WideGUID())
	} else {
		g = r.ReadGUID64()
	}
	o.Value("GUID", g)

	mov, err := movement.Decode(r, g, h.movementEnv(o))
	if err != nil {
		return err
	}
	h.store.UpdateMovement(g, ctx.Time, mov)
	h.markActivePlayer(g, mov)
	return nil
}

func (h *Handler) createBlock(r *bitstream.Reader, ctx world.Context, o observe.Observer) error {
	g := h.readGUID(r, o)

	kind := catalog.KindFromWire(r.ReadUint8(), h.build)
	o.Value("Object Type", kind.String())

	mov, err := movement.Decode(r, g, h.movementEnv(o))
	if err != nil {
		return err
	}

	fields, err := h.decoder.Decode(r, kind, true, nil, o)
	if err != nil {
		return err
	}

	var dynamic updatefield.DynamicSlots
	if h.build.HasDynamicFields() {
		if dynamic, err = h.decoder.DecodeDynamic(r, kind, o); err != nil {
			return err
		}
	}

	h.store.CreateOrMerge(ctx, g, kind, mov, fields, dynamic)
	h.markActivePlayer(g, mov)
	return nil
}

func (h *Handler) markActivePlayer(g guid.GUID, mov movement.Info) {
	if mov.Self && movement.MarksActivePlayer(h.build) {
		h.store.MarkActivePlayer(g)
	}
}

// objectsBlock читает список упакованных GUID; each вызывается для каждого
func (h *Handler) objectsBlock(r *bitstream.Reader, o observe.Observer, each func(guid.GUID)) {
	count := r.ReadInt32()
	o.Value("Object Count", count)

	for j := 0; j < int(count) && r.Err() == nil; j++ {
		g := r.ReadPackedGUID(h.build.WideGUID())
		if r.Err() != nil {
			return
		}
		o.Value("Object GUID", g, j)
		if each != nil {
			each(g)
		}
	}
}
