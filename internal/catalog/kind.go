package catalog

import (
	"fmt"
	"strings"

	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/revision"
)

// Kind - тип объекта мира, определяющий таблицу полей
type Kind uint8

const (
	Object Kind = iota
	Item
	Container
	AzeriteEmpoweredItem
	AzeriteItem
	Unit
	Player
	ActivePlayer
	GameObject
	DynamicObject
	Corpse
	AreaTrigger
	SceneObject
	Conversation
)

var kindNames = [...]string{
	Object:               "Object",
	Item:                 "Item",
	Container:            "Container",
	AzeriteEmpoweredItem: "AzeriteEmpoweredItem",
	AzeriteItem:          "AzeriteItem",
	Unit:                 "Unit",
	Player:               "Player",
	ActivePlayer:         "ActivePlayer",
	GameObject:           "GameObject",
	DynamicObject:        "DynamicObject",
	Corpse:               "Corpse",
	AreaTrigger:          "AreaTrigger",
	SceneObject:          "SceneObject",
	Conversation:         "Conversation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind - обратное к String, регистр не важен
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(i), nil
		}
	}
	return Object, fmt.Errorf("неизвестный тип объекта %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Типы объектов на проводе до 8.0.1
var legacyWireKinds = []Kind{Object, Item, Container, Unit, Player, GameObject, DynamicObject, Corpse, AreaTrigger, SceneObject, Conversation}

// Начиная с 8.0.1 в нумерацию вставлены Azerite* и ActivePlayer
var modernWireKinds = []Kind{Object, Item, Container, AzeriteEmpoweredItem, AzeriteItem, Unit, Player, ActivePlayer, GameObject, DynamicObject, Corpse, AreaTrigger, SceneObject, Conversation}

// KindFromWire переводит байт типа объекта из блока создания
func KindFromWire(b uint8, build revision.Build) Kind {
	table := legacyWireKinds
	if build.AddedIn(revision.V8_0_1_27101) {
		table = modernWireKinds
	}
	if int(b) < len(table) {
		return table[b]
	}
	return Object
}

// KindOf выводит тип объекта из GUID. Используется для блоков Values,
// пришедших на объект, создание которого не попало в захват.
func KindOf(g guid.GUID) Kind {
	switch g.HighType() {
	case guid.Player:
		return Player
	case guid.Creature, guid.Pet, guid.Vehicle:
		return Unit
	case guid.GameObject, guid.Transport, guid.MOTransport:
		return GameObject
	case guid.Item:
		return Item
	case guid.DynamicObject:
		return DynamicObject
	case guid.Corpse:
		return Corpse
	case guid.AreaTrigger:
		return AreaTrigger
	case guid.SceneObject:
		return SceneObject
	case guid.Conversation:
		return Conversation
	default:
		return Object
	}
}

// fallbackChains - фиксированный порядок родительских таблиц.
// Слот ниже END-маркера родителя берётся из таблицы родителя;
// проверки идут строго в порядке списка.
var fallbackChains = map[Kind][]Kind{
	Container:            {Item},
	AzeriteEmpoweredItem: {Item},
	AzeriteItem:          {Item},
	Player:               {Unit},
	ActivePlayer:         {Player, Unit},
}

// FallbackChain возвращает цепочку родителей для типа
func FallbackChain(k Kind) []Kind {
	return fallbackChains[k]
}
