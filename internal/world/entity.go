package world

import (
	"time"

	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/updatefield"
	"github.com/annel0/sniff-parser/internal/vec"
)

// Context - состояние сессии на момент разбора записи.
// Заполняется обработчиком пакетов, а не хранится глобально.
type Context struct {
	MapID     uint32
	ZoneID    uint32
	AreaID    uint32
	PhaseMask uint32
	Time      time.Time
}

// Entity представляет объект мира, восстановленный из захвата
type Entity struct {
	GUID         guid.GUID                `json:"guid"`
	Kind         catalog.Kind             `json:"kind"`
	Movement     movement.Info            `json:"movement"`
	Fields       updatefield.Slots        `json:"fields"`
	Dynamic      updatefield.DynamicSlots `json:"dynamic,omitempty"`
	MapID        uint32                   `json:"map_id"`
	ZoneID       uint32                   `json:"zone_id"`
	AreaID       uint32                   `json:"area_id"`
	PhaseMask    uint32                   `json:"phase_mask"`
	CreateTime   time.Time                `json:"create_time"`
	DestroyTime  time.Time                `json:"destroy_time,omitempty"`
	Destroyed    bool                     `json:"destroyed"`
	ActivePlayer bool                     `json:"active_player,omitempty"`
}

// Clone возвращает копию, не разделяющую таблицы полей с оригиналом
func (e *Entity) Clone() *Entity {
	c := *e
	c.Fields = e.Fields.Clone()
	c.Dynamic = e.Dynamic.Clone()
	if e.Movement.Spline != nil {
		spline := *e.Movement.Spline
		spline.Points = append([]vec.Vector3(nil), e.Movement.Spline.Points...)
		c.Movement.Spline = &spline
	}
	return &c
}

// IsCreature - существо, за которым следит список наблюдения юнитов.
// Тип определяется по GUID, а не по типу из блока создания: юниты
// (Creature и Vehicle) и игроки. Питомцы игроков исключены.
func (e *Entity) IsCreature() bool {
	switch e.GUID.HighType() {
	case guid.Creature, guid.Vehicle, guid.Player:
		return true
	}
	return false
}

// Entry возвращает номер шаблона из GUID или из поля OBJECT_FIELD_ENTRY
func (e *Entity) Entry(cat *catalog.Catalog, cataclysm bool) uint32 {
	if e.GUID.HasEntry() {
		return e.GUID.Entry(cataclysm)
	}
	if slot := cat.Slot("OBJECT_FIELD_ENTRY"); slot >= 0 {
		return e.Fields[slot]
	}
	return 0
}
