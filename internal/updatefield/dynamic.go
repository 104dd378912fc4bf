package updatefield

import (
	"fmt"
	"math"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/observe"
)

// DynamicSlots - динамические поля: слот -> упорядоченный список значений
type DynamicSlots map[int][]uint32

// Clone возвращает независимую копию
func (s DynamicSlots) Clone() DynamicSlots {
	out := make(DynamicSlots, len(s))
	for k, v := range s {
		out[k] = append([]uint32(nil), v...)
	}
	return out
}

// DecodeDynamic читает блок динамических полей.
// До 7.0.3 счётчик слов - 7 бит с необязательным 16-битным размером,
// начиная с 7.0.3 - 15 бит с необязательным 32-битным размером.
func (d *Decoder) DecodeDynamic(r *bitstream.Reader, kind catalog.Kind, o observe.Observer) (DynamicSlots, error) {
	o = observe.OrNop(o)
	mask := readMask(r)
	out := make(DynamicSlots)

	for i := 0; i < mask.Len(); i++ {
		if !mask.IsSet(i) {
			continue
		}

		info, _ := d.catalog.ResolveDynamic(kind, i)
		name := info.Name

		var count int
		if d.build.LargeDynamicCounts() {
			flag := r.ReadUint16()
			count = int(flag & 0x7FFF)
			if flag&0x8000 != 0 {
				o.Value(name+" Size", r.ReadUint32(), i)
			}
		} else {
			flag := r.ReadUint8()
			count = int(flag & 0x7F)
			if flag&0x80 != 0 {
				o.Value(name+" Size", r.ReadUint16(), i)
			}
		}

		elements := make(Mask, count)
		for k := range elements {
			elements[k] = r.ReadUint32()
		}

		values := make([]uint32, 0, elements.Count())
		for j := 0; j < elements.Len(); j++ {
			if !elements.IsSet(j) {
				continue
			}
			v := r.ReadUint32()
			o.Value(name, fmt.Sprintf("%d/%g", v, math.Float32frombits(v)), i, j)
			values = append(values, v)
		}
		out[i] = values
	}

	if err := r.Err(); err != nil {
		return out, fmt.Errorf("динамический блок %s: %w", kind, err)
	}
	return out, nil
}
