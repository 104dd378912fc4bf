package movement

import (
	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
)

var goOrder432 = []goStep{
	goTime3, goByte7, goZ, goSeatByte, goX, goY, goByte4, goByte5,
	goByte6, goO, goTime, goByte1, goTime2, goByte0, goByte2, goByte3,
}

// decode432 - блок движения 4.3.2
func decode432(r *bitstream.Reader, subject guid.GUID, env Env) Info {
	s := newState(r, env)
	var ownerGUID, transportGUID, goTransportGUID, attackingGUID, facingGUID bitstream.MaskedGUID

	s.skip(3)
	hasStationary := s.bit()
	hasAnimKits := s.bit()
	unkLoopCounter := s.bits(24)
	s.skip(1)
	hasTransportExtra := s.bit()
	hasGORotation := s.bit()
	s.info.Living = s.bit()
	hasGOPosition := s.bit()
	hasVehicle := s.bit()
	hasAttackingTarget := s.bit()
	s.skip(1)
	unkFloats := s.bit()

	var (
		unkFloat1, unkFloat2, hasOrientation, hasFallData, hasUnkUInt bool
		hasTransport, hasTransportTime2, hasTransportTime3            bool
		fullSpline, hasDurationMod, bit256, hasFallDirection          bool
		splineCount                                                   uint32
	)
	facing := FacingNormal
	if s.info.Living {
		unkFloat1 = !s.bit()
		hasOrientation = !s.bit()
		hasMoveFlagsExtra := !s.bit()
		hasFallData = s.bit()
		r.DeclareGUIDByte(&ownerGUID, 0)
		r.DeclareGUIDByte(&ownerGUID, 5)
		r.DeclareGUIDByte(&ownerGUID, 4)
		hasMoveFlags := !s.bit()
		s.info.HasSplineData = s.bit()
		s.bit()
		if hasMoveFlagsExtra {
			s.info.FlagsExtra = s.bits(12)
		}
		hasUnkUInt = !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 3)
		s.bit()
		if hasMoveFlags {
			s.info.Flags = s.bits(30)
		}
		r.DeclareGUIDByte(&ownerGUID, 1)
		unkFloat2 = !s.bit()
		hasTransport = s.bit()
		r.DeclareGUIDByte(&ownerGUID, 2)
		if hasTransport {
			r.DeclareGUIDByte(&transportGUID, 3)
			r.DeclareGUIDByte(&transportGUID, 5)
			r.DeclareGUIDByte(&transportGUID, 1)
			r.DeclareGUIDByte(&transportGUID, 7)
			hasTransportTime2 = s.bit()
			r.DeclareGUIDByte(&transportGUID, 4)
			r.DeclareGUIDByte(&transportGUID, 0)
			r.DeclareGUIDByte(&transportGUID, 2)
			r.DeclareGUIDByte(&transportGUID, 6)
			hasTransportTime3 = s.bit()
		}
		if s.info.HasSplineData {
			fullSpline = s.bit()
			if fullSpline {
				sp := s.spline()
				bits57 := s.bits(2)
				splineCount = s.bits(22)
				switch bits57 {
				case 0:
					facing = FacingTarget
				case 1:
					facing = FacingSpot
				case 2:
					facing = FacingNormal
				case 3:
					facing = FacingAngle
				}
				if facing == FacingTarget {
					facingGUID = r.DeclareGUID(4, 3, 2, 5, 7, 1, 0, 6)
				}
				sp.Flags = s.bits(25)
				sp.Mode = uint8(s.bits(2))
				hasDurationMod = s.bit()
				bit256 = s.bit()
			}
		}
		if hasFallData {
			hasFallDirection = s.bit()
		}
		r.DeclareGUIDByte(&ownerGUID, 6)
		r.DeclareGUIDByte(&ownerGUID, 7)
	}

	var hasGOTransportTime2, hasGOTransportTime3 bool
	if hasGOPosition {
		r.DeclareGUIDByte(&goTransportGUID, 5)
		r.DeclareGUIDByte(&goTransportGUID, 4)
		hasGOTransportTime3 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 7)
		r.DeclareGUIDByte(&goTransportGUID, 6)
		r.DeclareGUIDByte(&goTransportGUID, 1)
		r.DeclareGUIDByte(&goTransportGUID, 2)
		hasGOTransportTime2 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 0)
		r.DeclareGUIDByte(&goTransportGUID, 3)
	}

	var hasAnimKit1, hasAnimKit2, hasAnimKit3 bool
	if hasAnimKits {
		hasAnimKit1 = !s.bit()
		hasAnimKit3 = !s.bit()
		hasAnimKit2 = !s.bit()
	}

	if hasAttackingTarget {
		attackingGUID = r.DeclareGUID(4, 3, 2, 5, 0, 6, 1, 7)
	}

	for i := 0; i < int(unkLoopCounter); i++ {
		s.i32("Unk Int32", i)
	}

	if hasGOPosition {
		s.goTransport(&goTransportGUID, hasGOTransportTime2, hasGOTransportTime3, goOrder432)
	}

	if s.info.Living {
		if s.info.HasSplineData {
			sp := s.spline()
			if fullSpline {
				s.float("Unk Spline Float 2")
				s.points(splineCount, "yzx")
				switch facing {
				case FacingTarget:
					facingGUID = r.CompleteGUID(facingGUID, 2, 1, 3, 7, 0, 5, 4, 6)
					sp.Facing = FacingTarget
					sp.FacingTarget = s.guid("Facing Target GUID", facingGUID)
				case FacingSpot:
					sp.Facing = FacingSpot
					sp.FacingSpot = s.axes("Facing Spot", "yzx")
				}
				if hasDurationMod {
					sp.DurationMod = s.float("Spline Duration Multiplier")
				}
				if bit256 {
					s.u32("Unk Spline UInt32 1")
				}
				s.u32("Unk Spline UInt32 2")
				s.float("Unk Spline Float 1")
				if facing == FacingAngle {
					sp.Facing = FacingAngle
					sp.FacingAngle = s.float("Facing Angle")
				}
				s.u32("Unk Spline UInt32 3")
			}
			sp.FullTime = s.u32("Spline Full Time")
			sp.EndPoint = s.axes("Spline Endpoint", "zyx")
		}

		if hasTransport {
			off := &s.info.TransportOffset
			r.XORGUIDByte(&transportGUID, 6)
			if hasTransportTime2 {
				s.i32("Transport Time 2")
			}
			s.info.TransportSeat = int8(s.u8("Transport Seat"))
			off.O = s.float("Transport Orientation")
			r.XORGUIDByte(&transportGUID, 7)
			off.Y = s.float("Transport Position Y")
			r.XORGUIDByte(&transportGUID, 3)
			if hasTransportTime3 {
				s.i32("Transport Time 3")
			}
			s.info.TransportTime = uint32(s.i32("Transport Time"))
			r.XORGUIDByte(&transportGUID, 0)
			r.XORGUIDByte(&transportGUID, 1)
			off.X = s.float("Transport Position X")
			r.XORGUIDByte(&transportGUID, 4)
			off.Z = s.float("Transport Position Z")
			r.XORGUIDByte(&transportGUID, 5)
			r.XORGUIDByte(&transportGUID, 2)
			s.info.TransportGUID = s.guid("Transport GUID", transportGUID)
			s.accessory(subject)
		}

		s.info.Position.Z = s.float("Position Z")
		s.flyBack()
		s.info.Position.Y = s.float("Position Y")
		r.XORGUIDByte(&ownerGUID, 4)
		r.XORGUIDByte(&ownerGUID, 0)
		s.info.Position.X = s.float("Position X")
		if hasFallData {
			s.i32("Time Fallen")
			if hasFallDirection {
				s.float("Jump Sin")
				s.float("Jump Velocity")
				s.float("Jump Cos")
			}
			s.float("Fall Start Velocity")
		}
		if hasOrientation {
			s.info.Orientation = s.float("Orientation")
		}
		s.swim()
		s.run()
		s.fly()
		r.XORGUIDByte(&ownerGUID, 2)
		if unkFloat2 {
			s.float("Unk Float 36")
		}
		if unkFloat1 {
			s.float("Unk Float 28")
		}
		r.XORGUIDByte(&ownerGUID, 3)
		s.runBack()
		r.XORGUIDByte(&ownerGUID, 6)
		s.pitchRate()
		r.XORGUIDByte(&ownerGUID, 7)
		r.XORGUIDByte(&ownerGUID, 5)
		s.turnRate()
		s.swimBack()
		r.XORGUIDByte(&ownerGUID, 1)
		s.guid("GUID 2", ownerGUID)
		if hasUnkUInt {
			s.i32("Unk Int32 Living")
		}
		s.walk()
	}

	if hasAttackingTarget {
		attackingGUID = r.CompleteGUID(attackingGUID, 6, 5, 3, 2, 0, 1, 7, 4)
		s.info.AttackingTarget = s.guid("Attacking Target GUID", attackingGUID)
	}

	if unkFloats {
		i := 0
		for ; i < 13; i++ {
			s.float("Unk Float 456", i)
		}
		s.u8("Unk Byte 456")
		for ; i < 16; i++ {
			s.float("Unk Float 456", i)
		}
	}

	if hasVehicle {
		s.info.VehicleOrientation = s.float("Vehicle Orientation")
		s.info.VehicleID = s.u32("Vehicle Id")
	}

	if hasGORotation {
		s.info.Rotation = s.quaternion("GameObject Rotation")
	}

	if hasStationary {
		s.info.Position = s.axes("Stationary Position", "xzy")
		s.info.Orientation = s.float("Stationary Orientation")
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

	if hasTransportExtra {
		s.i32("Transport Time")
	}

	r.ResetBitReader()
	return s.info
}
