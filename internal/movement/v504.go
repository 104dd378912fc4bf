package movement

import (
	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
)

var goOrder504 = []goStep{
	goByte7, goByte3, goByte5, goO, goByte6, goByte0, goByte2, goTime,
	goTime3, goByte1, goZ, goSeat, goTime2, goX, goByte4, goY,
}

// decode504 - блок движения 5.0.4
func decode504(r *bitstream.Reader, subject guid.GUID, env Env) Info {
	s := newState(r, env)
	var ownerGUID, transportGUID, goTransportGUID, attackingGUID, facingGUID bitstream.MaskedGUID

	hasAttackingTarget := s.bit()
	hasVehicle := s.bit()
	unkLoopCounter := s.bits(24)
	bit284 := s.bit()
	hasGOPosition := s.bit()
	hasStationary := s.bit()
	bits16C := s.bits(21)
	hasTransportTime := s.bit()
	bit208 := s.bit()
	s.skip(1)
	s.info.Living = s.bit()
	s.skip(1)
	bit28D := s.bit()
	s.skip(1)
	hasGORotation := s.bit()
	hasAnimKits := s.bit()
	s.skip(1)
	s.info.Self = s.bit()
	for i := uint32(0); i < bits16C; i++ {
		s.bits(2)
	}

	var hasGOTransportTime2, hasGOTransportTime3 bool
	if hasGOPosition {
		r.DeclareGUIDByte(&goTransportGUID, 4)
		r.DeclareGUIDByte(&goTransportGUID, 3)
		r.DeclareGUIDByte(&goTransportGUID, 6)
		r.DeclareGUIDByte(&goTransportGUID, 0)
		r.DeclareGUIDByte(&goTransportGUID, 5)
		r.DeclareGUIDByte(&goTransportGUID, 1)
		hasGOTransportTime2 = s.bit()
		hasGOTransportTime3 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 2)
		r.DeclareGUIDByte(&goTransportGUID, 7)
	}

	var (
		bit228, bit21C, bit244 bool
		bit278, bit24C, bit25C uint32
	)
	if bit208 {
		bit228 = s.bit()
		bit270 := s.bit()
		s.bit() // 219
		s.bit() // 21A
		bit21C = s.bit()
		if bit270 {
			bit278 = s.bits(22)
		}
		bit244 = s.bit()
		if bit244 {
			bit24C = s.bits(23)
			bit25C = s.bits(23)
		}
		s.bit() // 218
	}

	var (
		hasPitch, hasTransport, hasFallData, hasTimestamp, hasFieldA8 bool
		hasTransportTime2, hasTransportTime3, hasFallDirection        bool
		hasOrientation, fullSpline, hasSplineVerticalAcc              bool
		hasSplineStartTime, hasSplineElevation                        bool
		field9C, unkSplineCounter, splineCount, facing                uint32
	)
	if s.info.Living {
		r.DeclareGUIDByte(&ownerGUID, 3)
		s.info.HasSplineData = s.bit()
		field9C = s.bits(24)
		r.DeclareGUIDByte(&ownerGUID, 4)
		hasPitch = !s.bit()
		hasTransport = s.bit()
		hasFallData = s.bit()
		hasTimestamp = !s.bit()
		if hasTransport {
			r.DeclareGUIDByte(&transportGUID, 3)
			hasTransportTime3 = s.bit()
			r.DeclareGUIDByte(&transportGUID, 7)
			r.DeclareGUIDByte(&transportGUID, 0)
			r.DeclareGUIDByte(&transportGUID, 6)
			hasTransportTime2 = s.bit()
			r.DeclareGUIDByte(&transportGUID, 4)
			r.DeclareGUIDByte(&transportGUID, 1)
			r.DeclareGUIDByte(&transportGUID, 2)
			r.DeclareGUIDByte(&transportGUID, 5)
		}
		hasFieldA8 = !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 7)
		hasMoveFlagsExtra := !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 0)
		s.bit()
		r.DeclareGUIDByte(&ownerGUID, 5)
		if hasMoveFlagsExtra {
			s.info.FlagsExtra = s.bits(13)
		}
		r.DeclareGUIDByte(&ownerGUID, 2)
		r.DeclareGUIDByte(&ownerGUID, 6)
		hasMoveFlags := !s.bit()
		if hasFallData {
			hasFallDirection = s.bit()
		}
		if hasMoveFlags {
			s.info.Flags = s.bits(30)
		}
		hasOrientation = !s.bit()
		s.bit()
		s.bit()
		if s.info.HasSplineData {
			fullSpline = s.bit()
			if fullSpline {
				sp := s.spline()
				hasSplineVerticalAcc = s.bit()
				sp.Mode = uint8(s.bits(2))
				if s.bit() {
					unkSplineCounter = s.bits(23)
					s.bits(2)
				}
				sp.Flags = s.bits(25)
				hasSplineStartTime = s.bit()
				splineCount = s.bits(22)
				facing = s.bits(2)
				if facing == 0 {
					facingGUID = r.DeclareGUID(4, 5, 0, 7, 1, 3, 2, 6)
				}
			}
		}
		r.DeclareGUIDByte(&ownerGUID, 1)
		hasSplineElevation = !s.bit()
	}

	if hasAttackingTarget {
		attackingGUID = r.DeclareGUID(2, 6, 5, 1, 7, 3, 4, 0)
	}

	var hasAnimKit1, hasAnimKit2, hasAnimKit3 bool
	if hasAnimKits {
		hasAnimKit2 = !s.bit()
		hasAnimKit3 = !s.bit()
		hasAnimKit1 = !s.bit()
	}

	if bit28D {
		s.bits(9)
	}

	r.ResetBitReader()

	for i := 0; i < int(bits16C); i++ {
		s.u32("Int0", i)
		s.float("Float1", i)
		s.float("Float2", i)
		s.u32("Int3", i)
		s.float("Float4", i)
		s.float("Float5", i)
	}

	for i := 0; i < int(unkLoopCounter); i++ {
		s.u32("Unk UInt32", i)
	}

	if s.info.Living {
		if s.info.HasSplineData {
			sp := s.spline()
			if fullSpline {
				switch facing {
				case 1:
					sp.Facing = FacingSpot
					sp.FacingSpot = s.axes("Facing Spot", "xzy")
				case 0:
					facingGUID = r.CompleteGUID(facingGUID, 5, 6, 0, 1, 2, 4, 7, 3)
					sp.Facing = FacingTarget
					sp.FacingTarget = s.guid("Facing Target GUID", facingGUID)
				}
				sp.Time = s.u32("Spline Time")
				if hasSplineVerticalAcc {
					sp.VerticalAcc = s.float("Spline Vertical Acceleration")
				}
				if hasSplineStartTime {
					sp.StartTime = s.u32("Spline Start Time")
				}
				for i := 0; i < int(unkSplineCounter); i++ {
					s.float("Spline Unk Float 1", i)
					s.float("Spline Unk Float 2", i)
				}
				if facing == 3 {
					sp.Facing = FacingAngle
					sp.FacingAngle = s.float("Facing Angle")
				}
				s.points(splineCount, "xyz")
				sp.DurationMod = s.float("Spline Duration Multiplier")
				sp.FullTime = s.u32("Spline Full Time")
				sp.DurationNext = s.float("Spline Duration Multiplier Next")
			}
			sp.EndPoint.Z = s.float("Spline Endpoint Z")
			sp.ID = s.u32("Spline Id")
			sp.EndPoint.X = s.float("Spline Endpoint X")
			sp.EndPoint.Y = s.float("Spline Endpoint Y")
		}

		for i := 0; i < int(field9C); i++ {
			s.u32("Unk Loop UInt32", i)
		}

		s.walk()

		if hasTransport {
			off := &s.info.TransportOffset
			r.XORGUIDByte(&transportGUID, 4)
			r.XORGUIDByte(&transportGUID, 0)
			off.Y = s.float("Transport Position Y")
			off.X = s.float("Transport Position X")
			s.info.TransportSeat = s.i8("Transport Seat")
			r.XORGUIDByte(&transportGUID, 7)
			r.XORGUIDByte(&transportGUID, 3)
			if hasTransportTime3 {
				s.u32("Transport Time 3")
			}
			r.XORGUIDByte(&transportGUID, 6)
			off.O = s.float("Transport Orientation")
			s.info.TransportTime = s.u32("Transport Time")
			r.XORGUIDByte(&transportGUID, 2)
			r.XORGUIDByte(&transportGUID, 1)
			off.Z = s.float("Transport Position Z")
			r.XORGUIDByte(&transportGUID, 5)
			if hasTransportTime2 {
				s.u32("Transport Time 2")
			}
			s.info.TransportGUID = s.guid("Transport GUID", transportGUID)
			s.accessory(subject)
		}

		r.XORGUIDByte(&ownerGUID, 2)
		if hasFallData {
			s.i32("Time Fallen")
			if hasFallDirection {
				s.float("Jump Sin")
				s.float("Jump Cos")
				s.float("Jump Velocity")
			}
			s.float("Fall Start Velocity")
		}
		r.XORGUIDByte(&ownerGUID, 7)
		if hasTimestamp {
			s.info.MoveTime = s.u32("Time")
		}
		s.fly()
		s.info.Position.X = s.float("Position X")
		if hasFieldA8 {
			s.u32("Unk UInt32 A8")
		}
		s.info.Position.Y = s.float("Position Y")
		r.XORGUIDByte(&ownerGUID, 5)
		s.info.Position.Z = s.float("Position Z")
		if hasPitch {
			s.float("Pitch")
		}
		r.XORGUIDByte(&ownerGUID, 3)
		r.XORGUIDByte(&ownerGUID, 6)
		r.XORGUIDByte(&ownerGUID, 1)
		if hasSplineElevation {
			s.float("Spline Elevation")
		}
		s.turnRate()
		s.pitchRate()
		s.run()
		if hasOrientation {
			s.info.Orientation = s.float("Orientation")
		}
		r.XORGUIDByte(&ownerGUID, 4)
		s.swim()
		s.swimBack()
		s.flyBack()
		s.runBack()
		r.XORGUIDByte(&ownerGUID, 0)
		s.guid("GUID 2", ownerGUID)
	}

	if bit208 {
		if bit228 {
			for i := 0; i < 6; i++ {
				s.float("Unk Float 228", i)
			}
		}
		if bit21C {
			s.float("Unk Float 21C 1")
			s.float("Unk Float 21C 2")
		}
		if bit244 {
			for i := 0; i < int(bit24C); i++ {
				s.float("Unk Float 24C 1", i)
				s.float("Unk Float 24C 2", i)
			}
			s.float("Unk Float 244 1")
			for i := 0; i < int(bit25C); i++ {
				s.float("Unk Float 25C 1", i)
				s.float("Unk Float 25C 2", i)
			}
			s.float("Unk Float 244 2")
		}
		s.u32("Unk UInt32 208")
		for i := 0; i < int(bit278); i++ {
			s.float("Unk Float 278 1", i)
			s.float("Unk Float 278 2", i)
			s.float("Unk Float 278 3", i)
		}
		s.float("Unk Float 208 1")
		s.float("Unk Float 208 2")
	}

	if hasGOPosition {
		s.goTransport(&goTransportGUID, hasGOTransportTime2, hasGOTransportTime3, goOrder504)
	}

	if hasStationary {
		s.info.Position = s.axes("Stationary Position", "yzx")
		s.info.Orientation = s.float("Stationary Orientation")
	}

	if hasAttackingTarget {
		attackingGUID = r.CompleteGUID(attackingGUID, 3, 6, 4, 1, 5, 7, 0, 2)
		s.info.AttackingTarget = s.guid("Attacking Target GUID", attackingGUID)
	}

	if hasTransportTime {
		s.u32("Transport Path Timer")
	}

	if hasGORotation {
		s.info.Rotation = s.quaternion("GameObject Rotation")
	}

	if hasVehicle {
		s.info.VehicleID = s.u32("Vehicle Id")
		s.info.VehicleOrientation = s.float("Vehicle Orientation")
	}

	if hasAnimKits {
		if hasAnimKit2 {
			s.info.AnimKits[1] = s.u16("Anim Kit 2")
		}
		if hasAnimKit3 {
			s.info.AnimKits[2] = s.u16("Anim Kit 3")
		}
		if hasAnimKit1 {
			s.info.AnimKits[0] = s.u16("Anim Kit 1")
		}
	}

	if bit284 {
		s.u32("Unk UInt32 284")
	}

	return s.info
}
