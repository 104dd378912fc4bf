// Package movement декодирует блок движения объекта.
//
// Каждая эпоха протокола переставляет, добавляет и удаляет флаги и
// подзаписи, поэтому на каждую эпоху заведена отдельная процедура.
// Общего алгоритма у них нет, кроме механики чтения из bitstream:
// порядок полей переписан с провода бит в бит.
package movement

import (
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/vec"
)

// Базовые скорости, на которые нормализуются скорости с провода
const (
	BaseWalkSpeed       = 2.5
	BaseRunSpeed        = 7.0
	BaseRunBackSpeed    = 4.5
	BaseSwimSpeed       = 4.722222
	BaseSwimBackSpeed   = 2.5
	BaseFlightSpeed     = 7.0
	BaseFlightBackSpeed = 4.5
	BaseTurnRate        = 3.141594
	BasePitchRate       = 3.141594
)

// Facing - тип финальной ориентации сплайна
type Facing uint8

const (
	FacingNormal Facing = iota
	FacingSpot
	FacingTarget
	FacingAngle
)

func (f Facing) String() string {
	switch f {
	case FacingSpot:
		return "FacingSpot"
	case FacingTarget:
		return "FacingTarget"
	case FacingAngle:
		return "FacingAngle"
	default:
		return "Normal"
	}
}

// Spline - серверный путь движения
type Spline struct {
	ID           uint32        `json:"id"`
	Flags        uint32        `json:"flags"`
	Mode         uint8         `json:"mode"`
	Facing       Facing        `json:"facing"`
	FacingSpot   vec.Vector3   `json:"facing_spot"`
	FacingTarget guid.GUID     `json:"facing_target"`
	FacingAngle  float32       `json:"facing_angle"`
	Time         uint32        `json:"time"`
	FullTime     uint32        `json:"full_time"`
	StartTime    uint32        `json:"start_time"`
	DurationMod  float32       `json:"duration_mod"`
	DurationNext float32       `json:"duration_mod_next"`
	VerticalAcc  float32       `json:"vertical_acceleration"`
	Points       []vec.Vector3 `json:"points,omitempty"`
	EndPoint     vec.Vector3   `json:"end_point"`
}

// Info - снимок движения объекта в момент блока.
// Пересчитывается целиком при каждом декодировании.
type Info struct {
	Flags      uint32 `json:"flags"`
	FlagsExtra uint32 `json:"flags_extra"`
	MoveTime   uint32 `json:"move_time"`

	Living      bool        `json:"living"`
	Self        bool        `json:"self"`
	Position    vec.Vector3 `json:"position"`
	Orientation float32     `json:"orientation"`

	TransportGUID   guid.GUID   `json:"transport_guid"`
	TransportOffset vec.Vector4 `json:"transport_offset"`
	TransportSeat   int8        `json:"transport_seat"`
	TransportTime   uint32      `json:"transport_time"`

	Rotation        vec.Quaternion `json:"rotation"`
	AttackingTarget guid.GUID      `json:"attacking_target"`

	// Скорости нормализованы делением на базовую скорость оси
	WalkSpeed       float32 `json:"walk_speed"`
	RunSpeed        float32 `json:"run_speed"`
	RunBackSpeed    float32 `json:"run_back_speed"`
	SwimSpeed       float32 `json:"swim_speed"`
	SwimBackSpeed   float32 `json:"swim_back_speed"`
	FlightSpeed     float32 `json:"flight_speed"`
	FlightBackSpeed float32 `json:"flight_back_speed"`
	TurnRate        float32 `json:"turn_rate"`
	PitchRate       float32 `json:"pitch_rate"`

	VehicleID          uint32  `json:"vehicle_id"`
	VehicleOrientation float32 `json:"vehicle_orientation"`

	HasSplineData bool    `json:"has_spline_data"`
	Spline        *Spline `json:"spline,omitempty"`

	AnimKits [3]uint16 `json:"anim_kits"`

	// Вычисляется хранилищем: объект ходит по маршруту или случайно
	HasWpsOrRandMov bool `json:"has_wps_or_rand_mov"`
}

// HasTransport - прикреплён ли объект к транспорту
func (i *Info) HasTransport() bool {
	return !i.TransportGUID.IsEmpty()
}

// Accessory - пассажир транспортного средства на фиксированном месте
type Accessory struct {
	Entry          uint32 `json:"entry"`
	AccessoryEntry uint32 `json:"accessory_entry"`
	SeatID         int8   `json:"seat_id"`
}

// AccessorySink принимает выведенные связи транспорт-пассажир
type AccessorySink interface {
	AddVehicleAccessory(a Accessory)
}
