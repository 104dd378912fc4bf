package movement

import (
	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
)

var goOrder430 = []goStep{
	goByte1, goByte4, goZ, goTime3, goTime, goByte5, goByte6, goX,
	goByte2, goTime2, goSeatByte, goByte3, goY, goO, goByte7, goByte0,
}

// decode430 - блок движения 4.3.0
func decode430(r *bitstream.Reader, subject guid.GUID, env Env) Info {
	s := newState(r, env)
	var ownerGUID, transportGUID, goTransportGUID, attackingGUID, facingGUID bitstream.MaskedGUID

	hasAttackingTarget := s.bit()
	s.skip(1)
	hasVehicle := s.bit()
	s.skip(3)
	hasTransportExtra := s.bit()
	hasGOPosition := s.bit()
	unkFloats := s.bit()
	hasAnimKits := s.bit()
	hasGORotation := s.bit()
	s.info.Living = s.bit()
	hasStationary := s.bit()
	unkLoopCounter := s.bits(24)
	s.skip(1)

	var (
		hasTransport, hasTransportTime2, hasTransportTime3, hasUnkUInt bool
		fullSpline, bit256, hasDurationMod, unkFloat1, unkFloat2       bool
		hasFallData, hasOrientation, hasFallDirection                  bool
		splineCount                                                    uint32
	)
	facing := FacingNormal
	if s.info.Living {
		hasTransport = s.bit()
		if hasTransport {
			r.DeclareGUIDByte(&transportGUID, 2)
			r.DeclareGUIDByte(&transportGUID, 7)
			r.DeclareGUIDByte(&transportGUID, 5)
			hasTransportTime3 = s.bit()
			r.DeclareGUIDByte(&transportGUID, 3)
			r.DeclareGUIDByte(&transportGUID, 0)
			r.DeclareGUIDByte(&transportGUID, 4)
			r.DeclareGUIDByte(&transportGUID, 1)
			hasTransportTime2 = s.bit()
			r.DeclareGUIDByte(&transportGUID, 6)
		}
		s.info.HasSplineData = s.bit()
		r.DeclareGUIDByte(&ownerGUID, 7)
		r.DeclareGUIDByte(&ownerGUID, 6)
		r.DeclareGUIDByte(&ownerGUID, 5)
		r.DeclareGUIDByte(&ownerGUID, 2)
		r.DeclareGUIDByte(&ownerGUID, 4)
		hasMoveFlags := !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 1)
		s.bit()
		hasUnkUInt = !s.bit()
		hasMoveFlagsExtra := !s.bit()
		if s.info.HasSplineData {
			fullSpline = s.bit()
			if fullSpline {
				sp := s.spline()
				bit256 = s.bit()
				sp.Flags = s.bits(25)
				sp.Mode = uint8(s.bits(2))
				hasDurationMod = s.bit()
				splineCount = s.bits(22)
				switch s.bits(2) {
				case 0:
					facing = FacingSpot
				case 1:
					facing = FacingNormal
				case 2:
					facing = FacingTarget
				case 3:
					facing = FacingAngle
				}
				if facing == FacingTarget {
					facingGUID = r.DeclareGUID(7, 3, 4, 2, 1, 6, 0, 5)
				}
			}
		}
		r.DeclareGUIDByte(&ownerGUID, 3)
		if hasMoveFlags {
			s.info.Flags = s.bits(30)
		}
		unkFloat1 = !s.bit()
		hasFallData = s.bit()
		if hasMoveFlagsExtra {
			s.info.FlagsExtra = s.bits(12)
		}
		r.DeclareGUIDByte(&ownerGUID, 0)
		hasOrientation = !s.bit()
		if hasFallData {
			hasFallDirection = s.bit()
		}
		unkFloat2 = !s.bit()
	}

	var hasGOTransportTime2, hasGOTransportTime3 bool
	if hasGOPosition {
		r.DeclareGUIDByte(&goTransportGUID, 1)
		hasGOTransportTime3 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 3)
		r.DeclareGUIDByte(&goTransportGUID, 2)
		r.DeclareGUIDByte(&goTransportGUID, 6)
		r.DeclareGUIDByte(&goTransportGUID, 5)
		r.DeclareGUIDByte(&goTransportGUID, 0)
		r.DeclareGUIDByte(&goTransportGUID, 4)
		hasGOTransportTime2 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 7)
	}

	var hasAnimKit1, hasAnimKit2, hasAnimKit3 bool
	if hasAnimKits {
		hasAnimKit3 = !s.bit()
		hasAnimKit1 = !s.bit()
		hasAnimKit2 = !s.bit()
	}

	if hasAttackingTarget {
		attackingGUID = r.DeclareGUID(3, 4, 6, 0, 1, 7, 5, 2)
	}

	for i := 0; i < int(unkLoopCounter); i++ {
		s.u32("Unk UInt32", i)
	}

	if hasStationary {
		s.info.Position.Z = s.float("Stationary Position Z")
		s.info.Orientation = s.float("Stationary Orientation")
		s.info.Position.X = s.float("Stationary Position X")
		s.info.Position.Y = s.float("Stationary Position Y")
	}

	if hasVehicle {
		s.info.VehicleID = s.u32("Vehicle Id")
		s.info.VehicleOrientation = s.float("Vehicle Orientation")
	}

	if hasGOPosition {
		s.goTransport(&goTransportGUID, hasGOTransportTime2, hasGOTransportTime3, goOrder430)
	}

	if s.info.Living {
		if s.info.HasSplineData {
			sp := s.spline()
			if fullSpline {
				s.points(splineCount, "yxz")
				if hasDurationMod {
					sp.DurationMod = s.float("Spline Duration Multiplier")
				}
				s.float("Unk Spline Float 2")
				if facing == FacingTarget {
					facingGUID = r.CompleteGUID(facingGUID, 3, 4, 5, 7, 2, 0, 6, 1)
					sp.Facing = FacingTarget
					sp.FacingTarget = s.guid("Facing Target GUID", facingGUID)
				}
				if bit256 {
					s.u32("Unk Spline UInt32 3")
				}
				s.float("Unk Spline Float 1")
				s.u32("Unk Spline UInt32 1")
				if facing == FacingSpot {
					sp.Facing = FacingSpot
					sp.FacingSpot = s.axes("Facing Spot", "yzx")
				}
				s.u32("Unk Spline UInt32 2")
				if facing == FacingAngle {
					sp.Facing = FacingAngle
					sp.FacingAngle = s.float("Facing Angle")
				}
			}
			sp.EndPoint.Z = s.float("Spline Endpoint Z")
			sp.EndPoint.Y = s.float("Spline Endpoint Y")
			sp.FullTime = s.u32("Spline Full Time")
			sp.EndPoint.X = s.float("Spline Endpoint X")
		}

		s.pitchRate()

		if hasTransport {
			off := &s.info.TransportOffset
			r.XORGUIDByte(&transportGUID, 4)
			off.Z = s.float("Transport Position Z")
			r.XORGUIDByte(&transportGUID, 7)
			r.XORGUIDByte(&transportGUID, 5)
			r.XORGUIDByte(&transportGUID, 1)
			off.X = s.float("Transport Position X")
			r.XORGUIDByte(&transportGUID, 3)
			r.XORGUIDByte(&transportGUID, 6)
			if hasTransportTime3 {
				s.i32("Transport Time 3")
			}
			off.Y = s.float("Transport Position Y")
			s.info.TransportSeat = int8(s.u8("Transport Seat"))
			off.O = s.float("Transport Orientation")
			if hasTransportTime2 {
				s.i32("Transport Time 2")
			}
			r.XORGUIDByte(&transportGUID, 2)
			s.info.TransportTime = uint32(s.i32("Transport Time"))
			r.XORGUIDByte(&transportGUID, 0)
			s.info.TransportGUID = s.guid("Transport GUID", transportGUID)
			s.accessory(subject)
		}

		s.flyBack()
		s.info.Position.X = s.float("Position X")
		if unkFloat1 {
			s.float("Unk Float 28")
		}
		if hasFallData {
			s.i32("Time Fallen")
			if hasFallDirection {
				s.float("Jump Sin")
				s.float("Jump Velocity")
				s.float("Jump Cos")
			}
			s.float("Fall Start Velocity")
		}
		r.XORGUIDByte(&ownerGUID, 7)
		s.swimBack()
		r.XORGUIDByte(&ownerGUID, 0)
		r.XORGUIDByte(&ownerGUID, 5)
		if hasUnkUInt {
			s.u32("Unk UInt32 Living")
		}
		s.info.Position.Z = s.float("Position Z")
		s.fly()
		r.XORGUIDByte(&ownerGUID, 1)
		s.runBack()
		s.turnRate()
		s.swim()
		s.walk()
		r.XORGUIDByte(&ownerGUID, 3)
		r.XORGUIDByte(&ownerGUID, 4)
		r.XORGUIDByte(&ownerGUID, 2)
		r.XORGUIDByte(&ownerGUID, 6)
		s.guid("GUID 2", ownerGUID)
		if unkFloat2 {
			s.float("Unk Float 36")
		}
		s.info.Position.Y = s.float("Position Y")
		if hasOrientation {
			s.info.Orientation = s.float("Orientation")
		}
		s.run()
	}

	if unkFloats {
		for i := 0; i < 16; i++ {
			s.float("Unk Float 456", i)
		}
		s.u8("Unk Byte 456")
	}

	if hasTransportExtra {
		s.i32("Transport Time")
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

	if hasGORotation {
		s.info.Rotation = s.quaternion("GameObject Rotation")
	}

	if hasAttackingTarget {
		attackingGUID = r.CompleteGUID(attackingGUID, 3, 5, 0, 7, 2, 4, 6, 1)
		s.info.AttackingTarget = s.guid("Attacking Target GUID", attackingGUID)
	}

	r.ResetBitReader()
	return s.info
}
