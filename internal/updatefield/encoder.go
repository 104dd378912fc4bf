package updatefield

import "github.com/annel0/sniff-parser/internal/bitstream"

// Encode записывает блок полей в формате провода: маска, затем значения
// выставленных слотов в порядке маски. Слоты без бита в маске не пишутся.
func Encode(w *bitstream.Writer, mask Mask, slots Slots) {
	mask.write(w)
	for i := 0; i < mask.Len(); i++ {
		if mask.IsSet(i) {
			w.WriteUint32(slots[i])
		}
	}
}

// EncodeSlots строит минимальную маску под переданные слоты и кодирует их
func EncodeSlots(w *bitstream.Writer, slots Slots) {
	var mask Mask
	for slot := range slots {
		mask.Set(slot)
	}
	Encode(w, mask, slots)
}
