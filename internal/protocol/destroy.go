package protocol

import (
	"fmt"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/world"
)

// guidOrder - порядок битов объявления и байтов данных обфусцированного GUID
type guidOrder struct {
	declare  []int
	complete []int
}

var updateFailedOrder = revision.NewTable(guidOrder{
	declare:  []int{6, 7, 4, 0, 1, 5, 3, 2},
	complete: []int{6, 7, 2, 3, 1, 4, 0, 5},
}).Register(revision.V5_1_0_16309, guidOrder{
	declare:  []int{5, 3, 0, 6, 1, 4, 2, 7},
	complete: []int{2, 3, 7, 4, 5, 1, 0, 6},
})

// DestroyObject разбирает SMSG_DESTROY_OBJECT. Флаг анимации смерти
// появился не во всех сборках, поэтому читается только при наличии байт.
func (h *Handler) DestroyObject(r *bitstream.Reader, ctx world.Context, o observe.Observer) error {
	g := r.ReadGUID64()
	o.Value("GUID", g)

	if !r.Done() {
		o.Value("Despawn Animation", r.ReadBool())
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", OpDestroyObject, err)
	}

	h.store.Destroy(g, ctx.Time)
	return nil
}

// ObjectUpdateFailed разбирает CMSG_OBJECT_UPDATE_FAILED. Хранилище не меняется.
func (h *Handler) ObjectUpdateFailed(r *bitstream.Reader, _ world.Context, o observe.Observer) error {
	order := updateFailedOrder.Select(h.build)
	masked := r.DeclareGUID(order.declare...)
	r.ResetBitReader()
	g := r.CompleteGUID(masked, order.complete...).GUID()
	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", OpObjectUpdateFailed, err)
	}
	o.Value("Guid", g)
	return nil
}
