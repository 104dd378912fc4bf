// Package protocol разбирает пакеты обновления объектов и передаёт
// результат в хранилище мира.
package protocol

import (
	"fmt"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/capture"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/updatefield"
	"github.com/annel0/sniff-parser/internal/world"
)

// Handler разбирает записи захвата одной сборки клиента
type Handler struct {
	store   *world.Store
	decoder *updatefield.Decoder
	build   revision.Build
	opcodes *Opcodes
	session world.Context
}

// NewHandler создаёт обработчик поверх хранилища.
// factions может быть nil.
func NewHandler(store *world.Store, opcodes *Opcodes, factions updatefield.FactionResolver) *Handler {
	return &Handler{
		store:   store,
		decoder: updatefield.NewDecoder(store.Catalog(), store.Build(), factions),
		build:   store.Build(),
		opcodes: opcodes,
		session: world.Context{PhaseMask: 1},
	}
}

// Session возвращает текущий контекст сессии
func (h *Handler) Session() world.Context {
	return h.session
}

// SetSession задаёт карту, зону, область и маску фаз для последующих записей
func (h *Handler) SetSession(ctx world.Context) {
	h.session = ctx
}

// OpcodeName - имя опкода для логов и метрик
func (h *Handler) OpcodeName(rec capture.Record) string {
	if name, ok := h.opcodes.Name(rec.Opcode); ok {
		return name
	}
	return fmt.Sprintf("0x%04X", rec.Opcode)
}

// Handle разбирает запись целиком. Неизвестный опкод - capture.ErrSkipped.
func (h *Handler) Handle(rec capture.Record, o observe.Observer) error {
	name, ok := h.opcodes.Name(rec.Opcode)
	if !ok {
		return fmt.Errorf("%w: 0x%04X", capture.ErrSkipped, rec.Opcode)
	}

	ctx := h.session
	ctx.Time = rec.Time
	r := bitstream.NewReader(rec.Payload)
	o = observe.OrNop(o)

	switch name {
	case OpUpdateObject:
		return h.UpdateObject(r, ctx, o)
	case OpCompressedUpdateObject:
		return h.CompressedUpdateObject(r, ctx, o)
	case OpDestroyObject:
		return h.DestroyObject(r, ctx, o)
	case OpObjectUpdateFailed:
		return h.ObjectUpdateFailed(r, ctx, o)
	}
	return fmt.Errorf("%w: %s", capture.ErrSkipped, name)
}

// movementEnv - окружение декодера движения для одного блока
func (h *Handler) movementEnv(o observe.Observer) movement.Env {
	return movement.Env{Build: h.build, Observer: o, Accessories: h.store}
}
