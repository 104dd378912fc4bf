package movement

import (
	"fmt"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/vec"
)

// Env - окружение процедуры декодирования
type Env struct {
	Build       revision.Build
	Observer    observe.Observer
	Accessories AccessorySink
}

// Routine - процедура декодирования блока движения одной эпохи
type Routine func(r *bitstream.Reader, subject guid.GUID, env Env) Info

var routines = revision.NewTable[Routine](decodeLegacy).
	Register(revision.V4_3_0_15005, decode430).
	Register(revision.V4_3_2_15211, decode432).
	Register(revision.V4_3_3_15354, decode433).
	Register(revision.V5_0_4_16016, decode504).
	Register(revision.V5_1_0_16309, decode510)

// Select выбирает процедуру для сборки. Неизвестные сборки уходят в legacy.
func Select(build revision.Build) Routine {
	return routines.Select(build)
}

// MarksActivePlayer сообщает, отмечает ли бит Self персонажа, записавшего захват.
// Процедуры 4.3.0-5.0.4 читают бит, но не связывают его с персонажем.
func MarksActivePlayer(build revision.Build) bool {
	return build.RemovedIn(revision.V4_3_0_15005) || build.AddedIn(revision.V5_1_0_16309)
}

// Thresholds - сборки, на которых меняется процедура
func Thresholds() []revision.Build {
	return routines.Thresholds()
}

// Decode выбирает процедуру и декодирует блок
func Decode(r *bitstream.Reader, subject guid.GUID, env Env) (Info, error) {
	info := Select(env.Build)(r, subject, env)
	if err := r.Err(); err != nil {
		return info, fmt.Errorf("блок движения %s: %w", subject, err)
	}
	return info, nil
}

// state - курсор с наблюдателем; каждое прочитанное значение уходит наблюдателю
type state struct {
	r    *bitstream.Reader
	o    observe.Observer
	env  Env
	info Info
}

func newState(r *bitstream.Reader, env Env) *state {
	return &state{r: r, o: observe.OrNop(env.Observer), env: env}
}

func (s *state) bit() bool         { return s.r.ReadBit() }
func (s *state) bits(n int) uint32 { return s.r.ReadBits(n) }
func (s *state) skip(n int)        { s.r.SkipBits(n) }

func (s *state) float(name string, index ...int) float32 {
	v := s.r.ReadFloat()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) u32(name string, index ...int) uint32 {
	v := s.r.ReadUint32()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) i32(name string, index ...int) int32 {
	v := s.r.ReadInt32()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) u16(name string, index ...int) uint16 {
	v := s.r.ReadUint16()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) i16(name string, index ...int) int16 {
	v := s.r.ReadInt16()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) u8(name string, index ...int) uint8 {
	v := s.r.ReadUint8()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) i8(name string, index ...int) int8 {
	v := s.r.ReadInt8()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) vector3(name string, index ...int) vec.Vector3 {
	v := s.r.ReadVector3()
	s.o.Value(name, v, index...)
	return v
}

func (s *state) quaternion(name string) vec.Quaternion {
	v := s.r.ReadPackedQuaternion()
	s.o.Value(name, v)
	return v
}

func (s *state) guid(name string, g bitstream.MaskedGUID) guid.GUID {
	id := g.GUID()
	s.o.Value(name, id)
	return id
}

// Скорости: значение с провода выводится как есть, в Info пишется отношение к базовой
func (s *state) walk()      { s.info.WalkSpeed = s.float("Walk Speed") / BaseWalkSpeed }
func (s *state) run()       { s.info.RunSpeed = s.float("Run Speed") / BaseRunSpeed }
func (s *state) runBack()   { s.info.RunBackSpeed = s.float("RunBack Speed") / BaseRunBackSpeed }
func (s *state) swim()      { s.info.SwimSpeed = s.float("Swim Speed") / BaseSwimSpeed }
func (s *state) swimBack()  { s.info.SwimBackSpeed = s.float("SwimBack Speed") / BaseSwimBackSpeed }
func (s *state) fly()       { s.info.FlightSpeed = s.float("Fly Speed") / BaseFlightSpeed }
func (s *state) flyBack()   { s.info.FlightBackSpeed = s.float("FlyBack Speed") / BaseFlightBackSpeed }
func (s *state) turnRate()  { s.info.TurnRate = s.float("Turn Speed") / BaseTurnRate }
func (s *state) pitchRate() { s.info.PitchRate = s.float("Pitch Speed") / BasePitchRate }

func (s *state) spline() *Spline {
	if s.info.Spline == nil {
		s.info.Spline = &Spline{}
	}
	return s.info.Spline
}

// points читает count точек сплайна в порядке осей order ("xyz", "yzx"...)
func (s *state) points(count uint32, order string) {
	sp := s.spline()
	for i := 0; i < int(count) && s.r.Err() == nil; i++ {
		sp.Points = append(sp.Points, s.axes("Spline Waypoint", order, i))
	}
}

// axes читает три float в заданном порядке осей
func (s *state) axes(name, order string, index ...int) vec.Vector3 {
	var v vec.Vector3
	for _, axis := range order {
		f := s.r.ReadFloat()
		switch axis {
		case 'x':
			v.X = f
		case 'y':
			v.Y = f
		case 'z':
			v.Z = f
		}
	}
	s.o.Value(name, v, index...)
	return v
}

// accessory выводит связь транспорт-пассажир, если транспорт - Vehicle, а пассажир - существо
func (s *state) accessory(subject guid.GUID) {
	transport := s.info.TransportGUID
	if s.env.Accessories == nil {
		return
	}
	if transport.HighType() != guid.Vehicle || subject.HighType() != guid.Creature {
		return
	}
	cata := s.env.Build.Cataclysm()
	s.env.Accessories.AddVehicleAccessory(Accessory{
		Entry:          transport.Entry(cata),
		AccessoryEntry: subject.Entry(cata),
		SeatID:         s.info.TransportSeat,
	})
}
