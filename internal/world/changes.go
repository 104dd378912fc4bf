package world

import (
	"time"

	"github.com/annel0/sniff-parser/internal/guid"
)

// CreatureUpdate - изменения отслеживаемых полей юнита за один вызов ApplyUpdate.
// Заполнены только изменившиеся поля.
type CreatureUpdate struct {
	Time            time.Time `json:"time"`
	Entry           *uint32   `json:"entry,omitempty"`
	Scale           *float32  `json:"scale,omitempty"`
	DisplayID       *uint32   `json:"display_id,omitempty"`
	MountDisplayID  *uint32   `json:"mount_display_id,omitempty"`
	FactionTemplate *uint32   `json:"faction_template,omitempty"`
	EmoteState      *uint32   `json:"emote_state,omitempty"`
	StandState      *uint32   `json:"stand_state,omitempty"`
	NpcFlags        *uint32   `json:"npc_flags,omitempty"`
	UnitFlags       *uint32   `json:"unit_flags,omitempty"`
	CurHealth       *uint32   `json:"current_health,omitempty"`
	MaxHealth       *uint32   `json:"max_health,omitempty"`
	CurMana         *uint32   `json:"current_mana,omitempty"`
	MaxMana         *uint32   `json:"max_mana,omitempty"`
}

// Empty сообщает, что ни одно поле не изменилось
func (u *CreatureUpdate) Empty() bool {
	return u.Entry == nil && u.Scale == nil && u.DisplayID == nil &&
		u.MountDisplayID == nil && u.FactionTemplate == nil && u.EmoteState == nil &&
		u.StandState == nil && u.NpcFlags == nil && u.UnitFlags == nil &&
		u.CurHealth == nil && u.MaxHealth == nil && u.CurMana == nil && u.MaxMana == nil
}

// GameObjectUpdate - изменения состояния игрового объекта
type GameObjectUpdate struct {
	Time         time.Time `json:"time"`
	Flags        *uint32   `json:"flags,omitempty"`
	State        *uint32   `json:"state,omitempty"`
	AnimProgress *uint32   `json:"anim_progress,omitempty"`
}

// Empty сообщает, что ни одно поле не изменилось
func (u *GameObjectUpdate) Empty() bool {
	return u.Flags == nil && u.State == nil && u.AnimProgress == nil
}

// TargetChange - смена цели юнита. Пишется сразу, без объединения с прочими полями.
type TargetChange struct {
	Time   time.Time `json:"time"`
	Target guid.GUID `json:"target"`
}

func ptr[T any](v T) *T {
	return &v
}
