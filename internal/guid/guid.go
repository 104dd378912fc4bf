// Package guid описывает идентификаторы объектов мира.
//
// В протоколе сосуществуют две кодировки: классическая 64-битная (до 6.0.2)
// и современная 128-битная. Ширина всегда выбирается по активной ревизии
// протокола, из самих данных она не выводится.
package guid

import (
	"fmt"
	"strconv"
	"strings"
)

// HighType - тип объекта, закодированный в старших битах GUID
type HighType uint8

const (
	Null HighType = iota
	Uniq
	Player
	Item
	WorldTransaction
	StaticDoor
	Transport
	Conversation
	Creature
	Vehicle
	Pet
	GameObject
	DynamicObject
	AreaTrigger
	Corpse
	LootObject
	SceneObject
	Scenario
	AIGroup
	DynamicDoor
	ClientActor
	Vignette
	CallForHelp
	AIResource
	AILock
	AILockTicket
	ChatChannel
	Party
	Guild
	WowAccount
	BNetAccount
	GMTask
	MobileSession
	RaidGroup
	Spell
	Mail
	WebObj
	LFGObject
	LFGList
	UserRouter
	PVPQueueGroup
	UserClient
	PetBattle
	UniqUserClient
	BattlePet
	CommerceObj
	ClientSession
	Cast
	MOTransport
	Group
	Unknown
)

var highTypeNames = map[HighType]string{
	Null:          "Null",
	Uniq:          "Uniq",
	Player:        "Player",
	Item:          "Item",
	Transport:     "Transport",
	Conversation:  "Conversation",
	Creature:      "Creature",
	Vehicle:       "Vehicle",
	Pet:           "Pet",
	GameObject:    "GameObject",
	DynamicObject: "DynamicObject",
	AreaTrigger:   "AreaTrigger",
	Corpse:        "Corpse",
	SceneObject:   "SceneObject",
	Cast:          "Cast",
	MOTransport:   "MOTransport",
	Group:         "Group",
}

func (h HighType) String() string {
	if name, ok := highTypeNames[h]; ok {
		return name
	}
	return fmt.Sprintf("HighType(%d)", uint8(h))
}

// Старшие 12 бит классического GUID после маски 0xF0F0...
const (
	legacyPlayer        = 0x000
	legacyItem          = 0x400
	legacyDynamicObject = 0xF00
	legacyGameObject    = 0xF01
	legacyTransport     = 0xF02
	legacyUnit          = 0xF03
	legacyPet           = 0xF04
	legacyVehicle       = 0xF05
	legacyMOTransport   = 0x10C
	legacyGroup         = 0x105
)

// GUID - неизменяемый идентификатор объекта.
// Для классической кодировки используется только Low.
type GUID struct {
	Low  uint64
	High uint64
	Wide bool
}

// New64 создаёт классический GUID
func New64(v uint64) GUID {
	return GUID{Low: v}
}

// New128 создаёт современный GUID
func New128(low, high uint64) GUID {
	return GUID{Low: low, High: high, Wide: true}
}

// IsEmpty возвращает true для нулевого идентификатора
func (g GUID) IsEmpty() bool {
	return g.Low == 0 && g.High == 0
}

// HighType извлекает тип объекта
func (g GUID) HighType() HighType {
	if g.IsEmpty() {
		return Null
	}
	if g.Wide {
		return HighType((g.High >> 58) & 0x3F)
	}

	switch (g.Low & 0xF0F0000000000000) >> 52 {
	case legacyPlayer:
		return Player
	case legacyItem:
		return Item
	case legacyDynamicObject:
		return DynamicObject
	case legacyGameObject:
		return GameObject
	case legacyTransport:
		return Transport
	case legacyUnit:
		return Creature
	case legacyPet:
		return Pet
	case legacyVehicle:
		return Vehicle
	case legacyMOTransport:
		return MOTransport
	case legacyGroup:
		return Group
	default:
		return Unknown
	}
}

// HasEntry сообщает, несёт ли GUID номер шаблона
func (g GUID) HasEntry() bool {
	switch g.HighType() {
	case Creature, GameObject, Pet, Vehicle, AreaTrigger:
		return true
	}
	return false
}

// Entry возвращает номер шаблона (entry) или 0.
// Разметка классического GUID поменялась в 4.0.1, поэтому нужен флаг cataclysm.
func (g GUID) Entry(cataclysm bool) uint32 {
	if !g.HasEntry() {
		return 0
	}
	if g.Wide {
		return uint32((g.High >> 6) & 0x7FFFFF)
	}
	if cataclysm {
		return uint32((g.Low >> 32) & 0xFFFFF)
	}
	return uint32((g.Low >> 24) & 0xFFFFFF)
}

// Counter - порядковая часть идентификатора
func (g GUID) Counter(cataclysm bool) uint64 {
	if g.Wide {
		return g.Low & 0xFFFFFFFFFF
	}
	if g.HasEntry() {
		if cataclysm {
			return g.Low & 0xFFFFFFFF
		}
		return g.Low & 0xFFFFFF
	}
	return g.Low & 0xFFFFFFFFFFFF
}

// MapID доступен только в 128-битной кодировке
func (g GUID) MapID() uint32 {
	if !g.Wide {
		return 0
	}
	return uint32((g.High >> 29) & 0x1FFF)
}

// String выводит GUID в шестнадцатеричном виде, тот же формат используется как ключ в хранилищах
func (g GUID) String() string {
	if g.Wide {
		return fmt.Sprintf("0x%016X%016X", g.High, g.Low)
	}
	return fmt.Sprintf("0x%016X", g.Low)
}

// Parse разбирает строку, полученную из String
func Parse(s string) (GUID, error) {
	if !strings.HasPrefix(s, "0x") {
		return GUID{}, fmt.Errorf("некорректный GUID %q", s)
	}
	hex := s[2:]

	switch len(hex) {
	case 16:
		low, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return GUID{}, fmt.Errorf("некорректный GUID %q: %w", s, err)
		}
		return New64(low), nil
	case 32:
		high, err := strconv.ParseUint(hex[:16], 16, 64)
		if err != nil {
			return GUID{}, fmt.Errorf("некорректный GUID %q: %w", s, err)
		}
		low, err := strconv.ParseUint(hex[16:], 16, 64)
		if err != nil {
			return GUID{}, fmt.Errorf("некорректный GUID %q: %w", s, err)
		}
		return New128(low, high), nil
	default:
		return GUID{}, fmt.Errorf("некорректная длина GUID %q", s)
	}
}

// MarshalText позволяет использовать GUID как ключ JSON
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText - обратное к MarshalText
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
