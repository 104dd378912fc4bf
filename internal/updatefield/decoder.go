// Package updatefield декодирует блоки полей объекта: маску присутствия
// и следующий за ней поток 32-битных значений слотов.
package updatefield

import (
	"fmt"
	"math"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/vec"
)

// Slots - таблица слотов объекта (слот -> сырые 32 бита)
type Slots map[int]uint32

// Clone возвращает независимую копию
func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Float - вид слота как float32
func (s Slots) Float(slot int) float32 {
	return math.Float32frombits(s[slot])
}

// Block - результат декодирования блока вместе с исходной маской
type Block struct {
	Mask  Mask
	Slots Slots
}

// factionTemplateField - единственное поле, которое подписывается именем фракции
const factionTemplateField = "UNIT_FIELD_FACTIONTEMPLATE"

// FactionResolver - необязательный справочник имён фракций для отчёта
type FactionResolver interface {
	FactionName(template uint32) (string, bool)
}

// Decoder декодирует блоки полей для одной сборки
type Decoder struct {
	catalog  *catalog.Catalog
	build    revision.Build
	factions FactionResolver
}

// NewDecoder создаёт декодер. factions может быть nil.
func NewDecoder(c *catalog.Catalog, build revision.Build, factions FactionResolver) *Decoder {
	return &Decoder{catalog: c, build: build, factions: factions}
}

// Catalog возвращает каталог декодера
func (d *Decoder) Catalog() *catalog.Catalog {
	return d.catalog
}

// Decode читает маску и значения. prev - сохранённые слоты объекта (nil при создании).
func (d *Decoder) Decode(r *bitstream.Reader, kind catalog.Kind, creating bool, prev Slots, o observe.Observer) (Slots, error) {
	b, err := d.DecodeBlock(r, kind, creating, prev, o)
	return b.Slots, err
}

// DecodeBlock - то же, что Decode, но возвращает и маску
func (d *Decoder) DecodeBlock(r *bitstream.Reader, kind catalog.Kind, creating bool, prev Slots, o observe.Observer) (Block, error) {
	o = observe.OrNop(o)
	mask := readMask(r)
	slots := make(Slots)

	for i := 0; i < mask.Len(); i++ {
		if !mask.IsSet(i) {
			continue
		}

		blockVal := r.ReadUint32()
		info, _ := d.catalog.Resolve(kind, i)

		start, size := info.Start, info.Size
		if start > i || start+size <= i {
			// каталог не покрывает слот корректно - читаем как анонимный
			info = catalog.Anonymous(i, false)
			start, size = i, 1
		}

		// слоты поля до текущего бита: их биты не выставлены, иначе поле уже было бы прочитано
		data := make([]uint32, 0, size)
		for k := start; k < i; k++ {
			data = append(data, previous(prev, k))
		}
		data = append(data, blockVal)
		for len(data) < size {
			i++
			if mask.IsSet(i) {
				data = append(data, r.ReadUint32())
			} else {
				data = append(data, previous(prev, i))
			}
		}

		d.emit(o, info, data, mask, creating)

		for k, v := range data {
			if _, exists := slots[start+k]; !exists {
				slots[start+k] = v
			}
		}
	}

	if err := r.Err(); err != nil {
		return Block{Mask: mask, Slots: slots}, fmt.Errorf("блок полей %s: %w", kind, err)
	}
	return Block{Mask: mask, Slots: slots}, nil
}

func previous(prev Slots, slot int) uint32 {
	if prev == nil {
		return 0
	}
	return prev[slot]
}

// emit сообщает наблюдателю значения поля согласно формату
func (d *Decoder) emit(o observe.Observer, info catalog.FieldInfo, data []uint32, mask Mask, creating bool) {
	name := func(k int) string {
		if len(data) > 1 {
			return fmt.Sprintf("%s + %d", info.Name, k)
		}
		return info.Name
	}
	// поэлементный вывод: только выставленные биты, нули при создании не выводятся
	each := func(value func(v uint32) any) {
		for k, v := range data {
			if !mask.IsSet(info.Start + k) {
				continue
			}
			if creating && v == 0 {
				continue
			}
			o.Value(name(k), value(v), info.Start+k)
		}
	}

	switch info.Format {
	case catalog.GUID:
		width := d.build.GUIDFieldSlots()
		if len(data)%width != 0 {
			each(func(v uint32) any { return v })
			return
		}
		for g := 0; g*width < len(data); g++ {
			first := info.Start + g*width
			if !mask.AnySet(first, width) {
				continue
			}
			id := guidFromSlots(data[g*width : (g+1)*width])
			if creating && id.IsEmpty() {
				continue
			}
			n := info.Name
			if len(data) > width {
				n = fmt.Sprintf("%s + %d", info.Name, g)
			}
			o.Value(n, id, first)
		}

	case catalog.Quaternion:
		if len(data) == 4 {
			o.Value(info.Name, vec.Quaternion{
				X: math.Float32frombits(data[0]),
				Y: math.Float32frombits(data[1]),
				Z: math.Float32frombits(data[2]),
				W: math.Float32frombits(data[3]),
			}, info.Start)
			return
		}
		each(func(v uint32) any { return math.Float32frombits(v) })

	case catalog.PackedQuaternion:
		if len(data) == 2 {
			packed := int64(uint64(data[1])<<32 | uint64(data[0]))
			o.Value(info.Name, vec.UnpackQuaternion(packed), info.Start)
			return
		}
		each(func(v uint32) any { return v })

	case catalog.Uint:
		each(func(v uint32) any { return v })

	case catalog.Int:
		each(func(v uint32) any { return int32(v) })

	case catalog.Float:
		each(func(v uint32) any { return math.Float32frombits(v) })

	case catalog.Bytes:
		each(func(v uint32) any {
			return fmt.Sprintf("%d/%d/%d/%d", byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		})

	case catalog.Custom:
		each(func(v uint32) any {
			if info.Name == factionTemplateField && d.factions != nil {
				if n, ok := d.factions.FactionName(v); ok {
					return fmt.Sprintf("%d (%s)", v, n)
				}
			}
			return v
		})

	default:
		each(func(v uint32) any {
			return fmt.Sprintf("%d/%g", v, math.Float32frombits(v))
		})
	}
}

// guidFromSlots собирает GUID из 2 или 4 слотов (младшее слово первым)
func guidFromSlots(data []uint32) guid.GUID {
	low := uint64(data[1])<<32 | uint64(data[0])
	if len(data) == 4 {
		high := uint64(data[3])<<32 | uint64(data[2])
		return guid.New128(low, high)
	}
	return guid.New64(low)
}

// GUIDAt собирает GUID из таблицы слотов начиная с start
func GUIDAt(s Slots, start int, build revision.Build) guid.GUID {
	width := build.GUIDFieldSlots()
	data := make([]uint32, width)
	for k := range data {
		data[k] = s[start+k]
	}
	return guidFromSlots(data)
}
