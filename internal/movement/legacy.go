package movement

import (
	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/revision"
)

// UpdateFlag - флаги состава блока движения до 4.3.0
type UpdateFlag uint16

const (
	UpdateFlagSelf              UpdateFlag = 0x0001
	UpdateFlagTransport         UpdateFlag = 0x0002
	UpdateFlagAttackingTarget   UpdateFlag = 0x0004
	UpdateFlagUnknown1          UpdateFlag = 0x0008
	UpdateFlagLowGUID           UpdateFlag = 0x0010
	UpdateFlagLiving            UpdateFlag = 0x0020
	UpdateFlagStationaryObject  UpdateFlag = 0x0040
	UpdateFlagVehicle           UpdateFlag = 0x0080
	UpdateFlagGOPosition        UpdateFlag = 0x0100
	UpdateFlagGORotation        UpdateFlag = 0x0200
	UpdateFlagTransportUnkArray UpdateFlag = 0x0400
	UpdateFlagAnimKits          UpdateFlag = 0x0800
)

func (f UpdateFlag) Has(flag UpdateFlag) bool { return f&flag != 0 }

// Флаги движения классической раскладки
const (
	MoveFlagOnTransport     uint32 = 0x00000200
	MoveFlagFalling         uint32 = 0x00001000
	MoveFlagSwimming        uint32 = 0x00200000
	MoveFlagFlying          uint32 = 0x02000000
	MoveFlagSplineElevation uint32 = 0x04000000
	MoveFlagSplineEnabled   uint32 = 0x08000000

	MoveFlagExtraAlwaysAllowPitching uint32 = 0x0020
	MoveFlagExtraInterpolatedMove    uint32 = 0x0400
)

// Флаги финальной точки сплайна
const (
	SplineFlagFinalPoint  uint32 = 0x00008000
	SplineFlagFinalTarget uint32 = 0x00010000
	SplineFlagFinalAngle  uint32 = 0x00020000
)

// Порядок скоростей на проводе до 4.3.0; скорость тангажа появилась в 3.0.2
var legacySpeeds = []func(*state){
	(*state).walk, (*state).run, (*state).runBack, (*state).swim, (*state).swimBack,
	(*state).turnRate, (*state).fly, (*state).flyBack, (*state).pitchRate,
}

// decodeLegacy - побайтовый блок движения до 4.3.0
func decodeLegacy(r *bitstream.Reader, subject guid.GUID, env Env) Info {
	s := newState(r, env)
	b := env.Build

	var flags UpdateFlag
	if b.AddedIn(revision.V3_1_0_9767) {
		flags = UpdateFlag(s.u16("Update Flags"))
	} else {
		flags = UpdateFlag(s.u8("Update Flags"))
	}
	s.info.Self = flags.Has(UpdateFlagSelf)
	s.info.Living = flags.Has(UpdateFlagLiving)

	if s.info.Living {
		s.movementInfo(subject)

		speeds := legacySpeeds
		if !b.AddedIn(revision.V3_0_2_9056) {
			speeds = speeds[:8]
		}
		for _, speed := range speeds {
			speed(s)
		}

		if (b.RemovedIn(revision.V4_2_0_14333) && s.info.Flags&MoveFlagSplineEnabled != 0) || s.info.HasSplineData {
			s.info.HasSplineData = true
			s.legacySpline()
		}
	} else {
		switch {
		case flags.Has(UpdateFlagGOPosition):
			s.info.TransportGUID = s.packedGUID("GO Transport GUID")
			s.info.Position = s.vector3("GO Position")
			s.info.TransportOffset.X = s.float("GO Transport Position X")
			s.info.TransportOffset.Y = s.float("GO Transport Position Y")
			s.info.TransportOffset.Z = s.float("GO Transport Position Z")
			s.info.Orientation = s.float("GO Orientation")
			s.info.TransportOffset.O = s.info.Orientation
			s.float("Corpse Orientation")
		case flags.Has(UpdateFlagStationaryObject):
			s.info.Position = s.vector3("Stationary Position")
			s.info.Orientation = s.float("Stationary Orientation")
		}
	}

	if b.RemovedIn(revision.V4_2_2_14545) {
		if flags.Has(UpdateFlagUnknown1) {
			s.u32("Unk Int32")
		}
		if flags.Has(UpdateFlagLowGUID) {
			s.u32("Low GUID")
		}
	}

	if flags.Has(UpdateFlagAttackingTarget) {
		s.info.AttackingTarget = s.packedGUID("Target GUID")
	}

	if flags.Has(UpdateFlagTransport) {
		s.u32("Transport Unk Timer")
	}

	if flags.Has(UpdateFlagVehicle) {
		s.info.VehicleID = s.u32("Vehicle Id")
		s.info.VehicleOrientation = s.float("Vehicle Orientation")
	}

	if b.AddedIn(revision.V4_1_0_13914) && flags.Has(UpdateFlagAnimKits) {
		s.info.AnimKits[0] = uint16(s.i16("AI Anim Kit"))
		s.info.AnimKits[1] = uint16(s.i16("Movement Anim Kit"))
		s.info.AnimKits[2] = uint16(s.i16("Melee Anim Kit"))
	}

	if flags.Has(UpdateFlagGORotation) {
		s.info.Rotation = s.quaternion("GameObject Rotation")
	}

	if b.AddedIn(revision.V4_1_0_13914) && flags.Has(UpdateFlagTransportUnkArray) {
		count := s.u8("Pause Times Count")
		for i := 0; i < int(count); i++ {
			s.i32("Pause Times", i)
		}
	}

	return s.info
}

func (s *state) packedGUID(name string) guid.GUID {
	id := s.r.ReadPackedGUID(s.env.Build.WideGUID())
	s.o.Value(name, id)
	return id
}

// movementInfo - классическая запись движения живого объекта
func (s *state) movementInfo(subject guid.GUID) {
	b := s.env.Build
	s.info.Flags = s.u32("Movement Flags")
	if b.AddedIn(revision.V3_0_2_9056) {
		s.info.FlagsExtra = uint32(s.u16("Extra Movement Flags"))
	} else {
		s.info.FlagsExtra = uint32(s.u8("Extra Movement Flags"))
	}
	s.info.MoveTime = s.u32("Time")
	s.info.Position = s.vector3("Position")
	s.info.Orientation = s.float("Orientation")

	if s.info.Flags&MoveFlagOnTransport != 0 {
		s.info.TransportGUID = s.packedGUID("Transport GUID")
		s.info.TransportOffset = s.r.ReadVector4()
		s.o.Value("Transport Position", s.info.TransportOffset)
		s.info.TransportTime = s.u32("Transport Time")
		s.info.TransportSeat = s.i8("Transport Seat")
		if s.info.FlagsExtra&MoveFlagExtraInterpolatedMove != 0 {
			s.u32("Transport Time 2")
		}
		s.accessory(subject)
	}

	if s.info.Flags&(MoveFlagSwimming|MoveFlagFlying) != 0 || s.info.FlagsExtra&MoveFlagExtraAlwaysAllowPitching != 0 {
		s.float("Swim Pitch")
	}

	s.u32("Fall Time")

	if s.info.Flags&MoveFlagFalling != 0 {
		s.float("Fall Velocity")
		s.float("Fall Sin Angle")
		s.float("Fall Cos Angle")
		s.float("Fall Speed")
	}

	if s.info.Flags&MoveFlagSplineElevation != 0 {
		s.float("Spline Elevation")
	}

	// С 4.2.0 наличие сплайна определяется самой записью, а не проверкой флагов в блоке
	if b.AddedIn(revision.V4_2_0_14333) {
		s.info.HasSplineData = s.info.Flags&MoveFlagSplineEnabled != 0
	}
}

// legacySpline - сплайн классической раскладки.
// С 4.2.0 сменился порядок проверки финальных флагов.
func (s *state) legacySpline() {
	b := s.env.Build
	sp := s.spline()
	sp.Flags = uint32(s.i32("Spline Flags"))

	finalTarget := func() {
		sp.Facing = FacingTarget
		sp.FacingTarget = s.r.ReadGUID64()
		s.o.Value("Final Spline Target GUID", sp.FacingTarget)
	}
	finalAngle := func() {
		sp.Facing = FacingAngle
		sp.FacingAngle = s.float("Final Spline Orientation")
	}
	finalPoint := func() {
		sp.Facing = FacingSpot
		sp.FacingSpot = s.vector3("Final Spline Coords")
	}

	if b.AddedIn(revision.V4_2_0_14333) {
		switch {
		case sp.Flags&SplineFlagFinalAngle != 0:
			finalAngle()
		case sp.Flags&SplineFlagFinalTarget != 0:
			finalTarget()
		case sp.Flags&SplineFlagFinalPoint != 0:
			finalPoint()
		}
	} else {
		switch {
		case sp.Flags&SplineFlagFinalTarget != 0:
			finalTarget()
		case sp.Flags&SplineFlagFinalAngle != 0:
			finalAngle()
		case sp.Flags&SplineFlagFinalPoint != 0:
			finalPoint()
		}
	}

	sp.Time = uint32(s.i32("Spline Time"))
	sp.FullTime = uint32(s.i32("Spline Full Time"))
	sp.ID = uint32(s.i32("Spline Id"))

	if b.AddedIn(revision.V3_1_0_9767) {
		sp.DurationMod = s.float("Spline Duration Multiplier")
		sp.DurationNext = s.float("Spline Duration Multiplier Next")
		sp.VerticalAcc = s.float("Spline Vertical Acceleration")
		sp.StartTime = uint32(s.i32("Spline Start Time"))
	}

	count := s.i32("Spline Count")
	for i := 0; i < int(count) && s.r.Err() == nil; i++ {
		sp.Points = append(sp.Points, s.vector3("Spline Waypoint", i))
	}

	if b.AddedIn(revision.V3_0_8_9464) {
		sp.Mode = s.u8("Spline Mode")
	}

	sp.EndPoint = s.vector3("Spline Endpoint")
}
