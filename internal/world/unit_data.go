package world

import (
	"math"

	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/updatefield"
)

// UnitFlagInCombat - бит "в бою" в UNIT_FIELD_FLAGS
const UnitFlagInCombat = 0x00080000

// UnitData - доступ к полям юнита по именам из каталога.
// Отсутствующее в каталоге поле читается как ноль.
type UnitData struct {
	cat    *catalog.Catalog
	build  revision.Build
	fields updatefield.Slots
}

// NewUnitData создаёт представление над таблицей полей
func NewUnitData(cat *catalog.Catalog, build revision.Build, fields updatefield.Slots) UnitData {
	return UnitData{cat: cat, build: build, fields: fields}
}

func (u UnitData) value(name string) uint32 {
	slot := u.cat.Slot(name)
	if slot < 0 {
		return 0
	}
	return u.fields[slot]
}

func (u UnitData) float(name string) float32 {
	return math.Float32frombits(u.value(name))
}

func (u UnitData) Entry() uint32           { return u.value("OBJECT_FIELD_ENTRY") }
func (u UnitData) Scale() float32          { return u.float("OBJECT_FIELD_SCALE_X") }
func (u UnitData) DisplayID() uint32       { return u.value("UNIT_FIELD_DISPLAYID") }
func (u UnitData) MountDisplayID() uint32  { return u.value("UNIT_FIELD_MOUNTDISPLAYID") }
func (u UnitData) FactionTemplate() uint32 { return u.value("UNIT_FIELD_FACTIONTEMPLATE") }
func (u UnitData) Level() uint32           { return u.value("UNIT_FIELD_LEVEL") }
func (u UnitData) CurHealth() uint32       { return u.value("UNIT_FIELD_HEALTH") }
func (u UnitData) MaxHealth() uint32       { return u.value("UNIT_FIELD_MAXHEALTH") }
func (u UnitData) CurMana() uint32         { return u.value("UNIT_FIELD_POWER1") }
func (u UnitData) MaxMana() uint32         { return u.value("UNIT_FIELD_MAXPOWER1") }
func (u UnitData) NpcFlags() uint32        { return u.value("UNIT_NPC_FLAGS") }
func (u UnitData) UnitFlags() uint32       { return u.value("UNIT_FIELD_FLAGS") }
func (u UnitData) EmoteState() uint32      { return u.value("UNIT_NPC_EMOTESTATE") }
func (u UnitData) BoundingRadius() float32 { return u.float("UNIT_FIELD_BOUNDINGRADIUS") }
func (u UnitData) CombatReach() float32    { return u.float("UNIT_FIELD_COMBATREACH") }

// StandState - младший байт UNIT_FIELD_BYTES_1
func (u UnitData) StandState() uint32 {
	return u.value("UNIT_FIELD_BYTES_1") & 0xFF
}

// Target собирает GUID цели из двух или четырёх слотов
func (u UnitData) Target() guid.GUID {
	slot := u.cat.Slot("UNIT_FIELD_TARGET")
	if slot < 0 {
		return guid.GUID{}
	}
	return updatefield.GUIDAt(u.fields, slot, u.build)
}

// InCombat проверяет флаг боя
func (u UnitData) InCombat() bool {
	return u.UnitFlags()&UnitFlagInCombat != 0
}
