package movement

import (
	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/vec"
)

// decode510 - блок движения 5.1.0
func decode510(r *bitstream.Reader, subject guid.GUID, env Env) Info {
	s := newState(r, env)
	var (
		ownerGUID, transportGUID, goTransportGUID, attackingGUID, facingGUID bitstream.MaskedGUID
	)

	bit654 := s.bit()
	s.skip(1)
	hasGORotation := s.bit()
	hasAttackingTarget := s.bit()
	s.skip(1)
	bit520 := s.bit()
	unkLoopCounter := s.bits(24)
	hasTransportTime := s.bit()
	hasGOPosition := s.bit()
	s.skip(1)
	bit784 := s.bit()
	s.info.Self = s.bit()
	s.skip(1)
	s.info.Living = s.bit()
	s.skip(1)
	bit644 := s.bit()
	hasStationary := s.bit()
	hasVehicle := s.bit()
	bits360 := s.bits(21)
	hasAnimKits := s.bit()
	for i := uint32(0); i < bits360; i++ {
		s.bits(2)
	}

	var (
		hasFallData, hasTimestamp, hasPitch, hasMoveFlagsExtra             bool
		hasSplineElevation, hasField8, hasTransport, hasOrientation        bool
		hasTransportTime2, hasTransportTime3, hasFallDirection, fullSpline bool
		hasSplineStartTime, hasUnkSplineCounter, hasSplineVerticalAcc      bool
		unkLoop2, splineCount, unkSplineCounter                            uint32
		facing                                                             uint32
	)
	if s.info.Living {
		r.DeclareGUIDByte(&ownerGUID, 3)
		hasFallData = s.bit()
		hasTimestamp = !s.bit()
		s.bit()
		r.DeclareGUIDByte(&ownerGUID, 2)
		s.bit()
		hasPitch = !s.bit()
		hasMoveFlagsExtra = !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 4)
		r.DeclareGUIDByte(&ownerGUID, 5)
		unkLoop2 = s.bits(24)
		hasSplineElevation = !s.bit()
		hasField8 = !s.bit()
		s.bit()
		r.DeclareGUIDByte(&ownerGUID, 0)
		r.DeclareGUIDByte(&ownerGUID, 6)
		r.DeclareGUIDByte(&ownerGUID, 7)
		hasTransport = s.bit()
		hasOrientation = !s.bit()

		if hasTransport {
			r.DeclareGUIDByte(&transportGUID, 3)
			r.DeclareGUIDByte(&transportGUID, 0)
			r.DeclareGUIDByte(&transportGUID, 4)
			r.DeclareGUIDByte(&transportGUID, 5)
			r.DeclareGUIDByte(&transportGUID, 2)
			r.DeclareGUIDByte(&transportGUID, 7)
			r.DeclareGUIDByte(&transportGUID, 1)
			hasTransportTime2 = s.bit()
			r.DeclareGUIDByte(&transportGUID, 6)
			hasTransportTime3 = s.bit()
		}

		if hasMoveFlagsExtra {
			s.info.FlagsExtra = s.bits(13)
		}
		hasMoveFlags := !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 1)
		if hasFallData {
			hasFallDirection = s.bit()
		}
		s.info.HasSplineData = s.bit()
		if hasMoveFlags {
			s.info.Flags = s.bits(30)
		}

		if s.info.HasSplineData {
			fullSpline = s.bit()
			if fullSpline {
				sp := s.spline()
				hasSplineStartTime = s.bit()
				splineCount = s.bits(22)
				sp.Flags = s.bits(25)
				facing = s.bits(2)
				if facing == 1 {
					facingGUID = r.DeclareGUID(0, 1, 6, 5, 2, 3, 4, 7)
				}
				hasUnkSplineCounter = s.bit()
				if hasUnkSplineCounter {
					unkSplineCounter = s.bits(23)
					s.bits(2)
				}
				sp.Mode = uint8(s.bits(2))
				hasSplineVerticalAcc = s.bit()
			}
		}
	}

	var hasGOTransportTime2, hasGOTransportTime3 bool
	if hasGOPosition {
		hasGOTransportTime3 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 3)
		r.DeclareGUIDByte(&goTransportGUID, 1)
		r.DeclareGUIDByte(&goTransportGUID, 4)
		r.DeclareGUIDByte(&goTransportGUID, 7)
		r.DeclareGUIDByte(&goTransportGUID, 2)
		r.DeclareGUIDByte(&goTransportGUID, 5)
		r.DeclareGUIDByte(&goTransportGUID, 0)
		r.DeclareGUIDByte(&goTransportGUID, 6)
		hasGOTransportTime2 = s.bit()
	}

	if bit654 {
		s.bits(9)
	}

	var (
		bit540, bit552, bit580, bit624 bool
		bit147, bit151, bit158         uint32
	)
	if bit520 {
		bit540 = s.bit()
		s.bit() // 536
		bit552 = s.bit()
		s.bit() // 539
		bit624 = s.bit()
		bit580 = s.bit()
		s.bit() // 537
		if bit580 {
			bit147 = s.bits(23)
			bit151 = s.bits(23)
		}
		if bit624 {
			bit158 = s.bits(22)
		}
		s.bit() // 538
	}

	if hasAttackingTarget {
		attackingGUID = r.DeclareGUID(2, 6, 7, 1, 0, 3, 4, 5)
	}

	var bit198 uint32
	if bit784 {
		bit198 = s.bits(24)
	}

	var hasAnimKit1, hasAnimKit2, hasAnimKit3 bool
	if hasAnimKits {
		hasAnimKit3 = !s.bit()
		hasAnimKit1 = !s.bit()
		hasAnimKit2 = !s.bit()
	}

	r.ResetBitReader()

	for i := 0; i < int(bits360); i++ {
		s.float("Float16", i)
		s.u32("Int8", i)
		s.float("Float1C", i)
		s.u32("Int0", i)
		s.float("Float10", i)
		s.float("Float14", i)
	}

	for i := 0; i < int(unkLoopCounter); i++ {
		s.u32("Unk UInt32", i)
	}

	if s.info.Living {
		s.flyBack()

		if s.info.HasSplineData {
			sp := s.spline()
			if fullSpline {
				for i := 0; i < int(unkSplineCounter); i++ {
					s.float("Spline Unk Float 1", i)
					s.float("Spline Unk Float 2", i)
				}
				if facing == 1 {
					facingGUID = r.CompleteGUID(facingGUID, 3, 2, 0, 5, 6, 7, 4, 1)
					sp.Facing = FacingTarget
					sp.FacingTarget = s.guid("Facing Target GUID", facingGUID)
				}
				sp.Time = s.u32("Spline Time")
				sp.FullTime = s.u32("Spline Full Time")
				if hasSplineVerticalAcc {
					sp.VerticalAcc = s.float("Spline Vertical Acceleration")
				}
				sp.DurationNext = s.float("Spline Duration Multiplier Next")
				sp.DurationMod = s.float("Spline Duration Multiplier")
				if facing == 3 {
					sp.Facing = FacingSpot
					sp.FacingSpot = s.axes("Facing Spot", "xzy")
				}
				if hasSplineStartTime {
					sp.StartTime = s.u32("Spline Start Time")
				}
				s.points(splineCount, "yzx")
				if facing == 0 {
					sp.Facing = FacingAngle
					sp.FacingAngle = s.float("Facing Angle")
				}
			}
			sp.EndPoint = s.axes("Spline Endpoint", "yxz")
			sp.ID = s.u32("Spline Id")
		}

		s.swim()

		if hasFallData {
			if hasFallDirection {
				s.float("Jump Velocity")
				s.float("Jump Cos")
				s.float("Jump Sin")
			}
			s.float("Fall Start Velocity")
			s.i32("Time Fallen")
		}

		if hasTransport {
			off := &s.info.TransportOffset
			off.Z = s.float("Transport Position Z")
			r.XORGUIDByte(&transportGUID, 4)
			off.X = s.float("Transport Position X")
			if hasTransportTime3 {
				s.u32("Transport Time 3")
			}
			r.XORGUIDByte(&transportGUID, 6)
			r.XORGUIDByte(&transportGUID, 5)
			r.XORGUIDByte(&transportGUID, 1)
			off.O = s.float("Transport Orientation")
			off.Y = s.float("Transport Position Y")
			s.info.TransportSeat = s.i8("Transport Seat")
			r.XORGUIDByte(&transportGUID, 7)
			if hasTransportTime2 {
				s.u32("Transport Time 2")
			}
			s.info.TransportTime = s.u32("Transport Time")
			r.XORGUIDByte(&transportGUID, 0)
			r.XORGUIDByte(&transportGUID, 2)
			r.XORGUIDByte(&transportGUID, 3)
			s.info.TransportGUID = s.guid("Transport GUID", transportGUID)
			s.accessory(subject)
		}

		r.XORGUIDByte(&ownerGUID, 1)
		s.turnRate()
		s.info.Position.Y = s.float("Position Y")
		r.XORGUIDByte(&ownerGUID, 3)
		s.info.Position.Z = s.float("Position Z")
		if hasOrientation {
			s.info.Orientation = s.float("Orientation")
		}
		s.runBack()
		if hasSplineElevation {
			s.float("Spline Elevation")
		}
		r.XORGUIDByte(&ownerGUID, 0)
		r.XORGUIDByte(&ownerGUID, 6)
		for i := 0; i < int(unkLoop2); i++ {
			s.u32("Unk Loop UInt32", i)
		}
		s.info.Position.X = s.float("Position X")
		if hasTimestamp {
			s.info.MoveTime = s.u32("Time")
		}
		s.walk()
		if hasPitch {
			s.float("Pitch")
		}
		r.XORGUIDByte(&ownerGUID, 5)
		if hasField8 {
			s.u32("Unk Int32")
		}
		s.pitchRate()
		r.XORGUIDByte(&ownerGUID, 2)
		s.run()
		r.XORGUIDByte(&ownerGUID, 7)
		s.swimBack()
		r.XORGUIDByte(&ownerGUID, 4)
		s.fly()
		s.guid("GUID 2", ownerGUID)
	}

	if bit520 {
		if bit580 {
			s.float("Unk Float 580 1")
			s.float("Unk Float 580 2")
			for i := 0; i < int(bit147); i++ {
				s.float("Unk Float 147 1", i)
				s.float("Unk Float 147 2", i)
			}
			for i := 0; i < int(bit151); i++ {
				s.float("Unk Float 151 1", i)
				s.float("Unk Float 151 2", i)
			}
		}
		if bit540 {
			s.float("Unk Float 540 1")
			s.float("Unk Float 540 2")
		}
		if bit552 {
			for i := 0; i < 6; i++ {
				s.float("Unk Float 552", i)
			}
		}
		s.float("Unk Float 520")
		if bit624 {
			for i := 0; i < int(bit158); i++ {
				s.float("Unk Float 158 1", i)
				s.float("Unk Float 158 2", i)
				s.float("Unk Float 158 3", i)
			}
		}
		s.float("Unk Float 520 2")
		s.float("Unk Float 520 3")
	}

	if hasAttackingTarget {
		attackingGUID = r.CompleteGUID(attackingGUID, 3, 4, 2, 5, 1, 6, 7, 0)
		s.info.AttackingTarget = s.guid("Attacking Target GUID", attackingGUID)
	}

	if hasStationary {
		s.info.Position.X = s.float("Stationary Position X")
		s.info.Orientation = s.float("Stationary Orientation")
		s.info.Position.Y = s.float("Stationary Position Y")
		s.info.Position.Z = s.float("Stationary Position Z")
	}

	if hasGOPosition {
		s.goTransport(&goTransportGUID, hasGOTransportTime2, hasGOTransportTime3, goOrder510)
	}

	if hasAnimKits {
		if hasAnimKit3 {
			s.info.AnimKits[2] = s.u16("Anim Kit 3")
		}
		if hasAnimKit1 {
			s.info.AnimKits[0] = s.u16("Anim Kit 1")
		}
		if hasAnimKit2 {
			s.info.AnimKits[1] = s.u16("Anim Kit 2")
		}
	}

	if hasVehicle {
		s.info.VehicleOrientation = s.float("Vehicle Orientation")
		s.info.VehicleID = s.u32("Vehicle Id")
	}

	if hasTransportTime {
		s.u32("Transport Path Timer")
	}

	if bit644 {
		s.u32("Unk Int32 644")
	}

	if bit784 {
		for i := 0; i < int(bit198); i++ {
			s.u32("Unk Int32 198", i)
		}
	}

	if hasGORotation {
		s.info.Rotation = s.quaternion("GameObject Rotation")
	}

	return s.info
}

// goStep - шаг данных транспорта игрового объекта
type goStep uint8

const (
	goX goStep = iota
	goY
	goZ
	goO
	goSeat
	goTime
	goTime2
	goTime3
	goByte0
	goByte1
	goByte2
	goByte3
	goByte4
	goByte5
	goByte6
	goByte7
	goSeatByte
	goTimeFloat
)

var goOrder510 = []goStep{
	goByte3, goByte1, goSeat, goZ, goByte2, goByte7, goTime3, goByte6,
	goTime2, goTime, goY, goX, goByte0, goByte4, goByte5, goO,
}

// goTransport читает транспортную позицию игрового объекта в порядке order
func (s *state) goTransport(g *bitstream.MaskedGUID, hasTime2, hasTime3 bool, order []goStep) {
	var off vec.Vector4
	for _, step := range order {
		switch step {
		case goX:
			off.X = s.float("GO Transport Position X")
		case goY:
			off.Y = s.float("GO Transport Position Y")
		case goZ:
			off.Z = s.float("GO Transport Position Z")
		case goO:
			off.O = s.float("GO Transport Orientation")
		case goSeat:
			s.info.TransportSeat = s.i8("GO Transport Seat")
		case goTime:
			s.info.TransportTime = s.u32("GO Transport Time")
		case goTime2:
			if hasTime2 {
				s.u32("GO Transport Time 2")
			}
		case goTime3:
			if hasTime3 {
				s.u32("GO Transport Time 3")
			}
		case goSeatByte:
			s.info.TransportSeat = int8(s.u8("GO Transport Seat"))
		case goTimeFloat:
			s.float("GO Transport Time")
		default:
			s.r.XORGUIDByte(g, int(step-goByte0))
		}
	}
	s.info.TransportOffset = off
	s.info.TransportGUID = s.guid("GO Transport GUID", *g)
}
