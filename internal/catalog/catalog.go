// Package catalog хранит таблицы полей объектов, привязанные к сборке клиента.
//
// Каталог отображает (тип объекта, номер слота) в описание поля:
// имя, первый слот, число слотов и формат значения. Сами таблицы - это
// данные (YAML), а не логика; пакет лишь загружает их и выполняет поиск
// с учётом цепочки родительских типов.
package catalog

import (
	"fmt"

	"github.com/annel0/sniff-parser/internal/revision"
)

// FieldInfo описывает одно поле
type FieldInfo struct {
	Name   string `json:"name" yaml:"name"`
	Start  int    `json:"start" yaml:"start"`
	Size   int    `json:"size" yaml:"size"`
	Format Format `json:"format" yaml:"-"`
}

// Anonymous - поле, отсутствующее в каталоге
func Anonymous(slot int, dynamic bool) FieldInfo {
	name := fmt.Sprintf("Block Value %d", slot)
	if dynamic {
		name = fmt.Sprintf("Dynamic Block Value %d", slot)
	}
	return FieldInfo{Name: name, Start: slot, Size: 1, Format: Default}
}

type table struct {
	slots map[Kind]map[int]FieldInfo
	ends  map[Kind]int
}

func newTable() table {
	return table{slots: make(map[Kind]map[int]FieldInfo), ends: make(map[Kind]int)}
}

func (t table) add(kind Kind, f FieldInfo) {
	if f.Size <= 0 {
		f.Size = 1
	}
	m, ok := t.slots[kind]
	if !ok {
		m = make(map[int]FieldInfo)
		t.slots[kind] = m
	}
	for s := f.Start; s < f.Start+f.Size; s++ {
		m[s] = f
	}
}

// resolveKind применяет цепочку родителей
func (t table) resolveKind(kind Kind, slot int) Kind {
	if end, ok := t.ends[Object]; ok && slot < end {
		return Object
	}
	resolved := kind
	for _, parent := range fallbackChains[kind] {
		end, ok := t.ends[parent]
		if !ok || slot >= end {
			break
		}
		resolved = parent
	}
	return resolved
}

func (t table) resolve(kind Kind, slot int) (FieldInfo, bool) {
	k := t.resolveKind(kind, slot)
	f, ok := t.slots[k][slot]
	return f, ok
}

// Catalog - таблицы полей одной сборки
type Catalog struct {
	Build   revision.Build
	fields  table
	dynamic table
	byName  map[string]FieldInfo
}

// New создаёт пустой каталог
func New(build revision.Build) *Catalog {
	return &Catalog{
		Build:   build,
		fields:  newTable(),
		dynamic: newTable(),
		byName:  make(map[string]FieldInfo),
	}
}

// Add регистрирует поле
func (c *Catalog) Add(kind Kind, f FieldInfo) *Catalog {
	c.fields.add(kind, f)
	c.byName[f.Name] = c.fields.slots[kind][f.Start]
	return c
}

// AddDynamic регистрирует динамическое поле
func (c *Catalog) AddDynamic(kind Kind, f FieldInfo) *Catalog {
	c.dynamic.add(kind, f)
	return c
}

// SetEnd задаёт END-маркер типа (первый слот за пределами его таблицы)
func (c *Catalog) SetEnd(kind Kind, end int) *Catalog {
	c.fields.ends[kind] = end
	return c
}

// SetDynamicEnd - END-маркер для динамических полей
func (c *Catalog) SetDynamicEnd(kind Kind, end int) *Catalog {
	c.dynamic.ends[kind] = end
	return c
}

// End возвращает END-маркер типа
func (c *Catalog) End(kind Kind) (int, bool) {
	end, ok := c.fields.ends[kind]
	return end, ok
}

// Resolve находит поле для слота с учётом цепочки родителей.
// Промах не является ошибкой: возвращается анонимное поле и false.
func (c *Catalog) Resolve(kind Kind, slot int) (FieldInfo, bool) {
	if c == nil {
		return Anonymous(slot, false), false
	}
	if f, ok := c.fields.resolve(kind, slot); ok {
		return f, true
	}
	return Anonymous(slot, false), false
}

// ResolveDynamic - то же для динамических полей
func (c *Catalog) ResolveDynamic(kind Kind, slot int) (FieldInfo, bool) {
	if c == nil {
		return Anonymous(slot, true), false
	}
	if f, ok := c.dynamic.resolve(kind, slot); ok {
		return f, true
	}
	return Anonymous(slot, true), false
}

// Field ищет поле по имени
func (c *Catalog) Field(name string) (FieldInfo, bool) {
	if c == nil {
		return FieldInfo{}, false
	}
	f, ok := c.byName[name]
	return f, ok
}

// Slot возвращает первый слот поля по имени, -1 если поля нет
func (c *Catalog) Slot(name string) int {
	if f, ok := c.Field(name); ok {
		return f.Start
	}
	return -1
}
