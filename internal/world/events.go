package world

import (
	"time"

	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/movement"
)

// EventType определяет тип события хранилища
type EventType uint8

const (
	EventEntityCreated     EventType = iota // Первое создание объекта
	EventEntityMerged                       // Повторное создание известного объекта
	EventEntityUpdated                      // Применён блок Values
	EventEntityDestroyed                    // Объект уничтожен
	EventVehicleAccessory                   // Найден пассажир транспорта
	EventCreatureChanged                    // Изменились отслеживаемые поля юнита
	EventGameObjectChanged                  // Изменилось состояние игрового объекта
	EventTargetChanged                      // Юнит сменил цель
	EventEntityMoved                        // Получен блок Movement
)

var eventNames = [...]string{
	EventEntityCreated:     "EntityCreated",
	EventEntityMerged:      "EntityMerged",
	EventEntityUpdated:     "EntityUpdated",
	EventEntityDestroyed:   "EntityDestroyed",
	EventVehicleAccessory:  "VehicleAccessory",
	EventCreatureChanged:   "CreatureChanged",
	EventGameObjectChanged: "GameObjectChanged",
	EventTargetChanged:     "TargetChanged",
	EventEntityMoved:       "EntityMoved",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "Unknown"
}

// Event - событие хранилища, доставляемое слушателям после снятия блокировки
type Event struct {
	Type      EventType
	GUID      guid.GUID
	Time      time.Time
	Entity    *Entity
	Creature  *CreatureUpdate
	Object    *GameObjectUpdate
	Target    *TargetChange
	Accessory *movement.Accessory
}

// Listener получает события хранилища в порядке их возникновения
type Listener interface {
	HandleEvent(ev Event)
}

// ListenerFunc позволяет использовать функцию как Listener
type ListenerFunc func(ev Event)

// HandleEvent вызывает f(ev)
func (f ListenerFunc) HandleEvent(ev Event) {
	f(ev)
}
