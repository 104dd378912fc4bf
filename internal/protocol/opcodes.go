package protocol

import (
	"fmt"
	"sort"

	"github.com/annel0/sniff-parser/internal/revision"
)

// Имена опкодов, которые разбирает Handler
const (
	OpUpdateObject           = "SMSG_UPDATE_OBJECT"
	OpCompressedUpdateObject = "SMSG_COMPRESSED_UPDATE_OBJECT"
	OpDestroyObject          = "SMSG_DESTROY_OBJECT"
	OpObjectUpdateFailed     = "CMSG_OBJECT_UPDATE_FAILED"
)

// defaultOpcodes - встроенные номера опкодов для известных сборок
var defaultOpcodes = map[revision.Build]map[string]uint32{
	revision.V3_3_5_12340: {
		OpUpdateObject:           0x0A9,
		OpDestroyObject:          0x0AA,
		OpCompressedUpdateObject: 0x1F6,
		OpObjectUpdateFailed:     0x097,
	},
}

// DefaultOpcodes возвращает встроенную таблицу для сборки, если она есть
func DefaultOpcodes(build revision.Build) (map[string]uint32, bool) {
	names, ok := defaultOpcodes[build]
	if !ok {
		return nil, false
	}
	out := make(map[string]uint32, len(names))
	for k, v := range names {
		out[k] = v
	}
	return out, true
}

// Opcodes - двусторонняя таблица имя <-> номер для одной сборки
type Opcodes struct {
	byNumber map[uint32]string
	byName   map[string]uint32
}

// NewOpcodes строит таблицу. Повтор номера - ошибка конфигурации.
func NewOpcodes(names map[string]uint32) (*Opcodes, error) {
	o := &Opcodes{
		byNumber: make(map[uint32]string, len(names)),
		byName:   make(map[string]uint32, len(names)),
	}

	keys := make([]string, 0, len(names))
	for name := range names {
		keys = append(keys, name)
	}
	sort.Strings(keys)

	for _, name := range keys {
		num := names[name]
		if prev, dup := o.byNumber[num]; dup {
			return nil, fmt.Errorf("опкод 0x%04X назначен и %s, и %s", num, prev, name)
		}
		o.byNumber[num] = name
		o.byName[name] = num
	}
	return o, nil
}

// Name возвращает имя опкода по номеру
func (o *Opcodes) Name(num uint32) (string, bool) {
	name, ok := o.byNumber[num]
	return name, ok
}

// Number возвращает номер опкода по имени
func (o *Opcodes) Number(name string) (uint32, bool) {
	num, ok := o.byName[name]
	return num, ok
}

// Len - число известных опкодов
func (o *Opcodes) Len() int {
	return len(o.byNumber)
}
