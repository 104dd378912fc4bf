package movement

import (
	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
)

var goOrder433 = []goStep{
	goByte6, goByte5, goY, goByte4, goByte2, goTime3, goO, goZ,
	goTime2, goSeatByte, goByte7, goByte1, goByte0, goByte3, goX, goTimeFloat,
}

// decode433 - блок движения 4.3.3.
// Данные идут сразу за битами без выравнивания, выравнивание в конце блока.
func decode433(r *bitstream.Reader, subject guid.GUID, env Env) Info {
	s := newState(r, env)
	var ownerGUID, transportGUID, goTransportGUID, attackingGUID, facingGUID bitstream.MaskedGUID

	s.info.Living = s.bit()
	hasAttackingTarget := s.bit()
	hasVehicle := s.bit()
	unkLoopCounter := s.bits(24)
	hasStationary := s.bit()
	s.skip(2)
	unkInt := s.bit()
	unkFloats := s.bit()
	s.skip(3)
	hasGOPosition := s.bit()
	hasAnimKits := s.bit()
	hasGORotation := s.bit()

	var (
		unkFloat1, hasFallData, unkFloat2, fullSpline, bit256           bool
		hasDurationMod, hasTransport, hasTransportTime2                 bool
		hasTransportTime3, hasFallDirection, hasUnkUInt, hasOrientation bool
		splineCount                                                     uint32
	)
	facing := FacingNormal
	if s.info.Living {
		r.DeclareGUIDByte(&ownerGUID, 4)
		s.bit()
		r.DeclareGUIDByte(&ownerGUID, 5)
		unkFloat1 = !s.bit()
		hasFallData = s.bit()
		unkFloat2 = !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 6)
		s.info.HasSplineData = s.bit()
		if s.info.HasSplineData {
			fullSpline = s.bit()
			if fullSpline {
				sp := s.spline()
				bit256 = s.bit()
				sp.Mode = uint8(s.bits(2))
				hasDurationMod = s.bit()
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
					facingGUID = r.DeclareGUID(0, 2, 7, 1, 6, 3, 4, 5)
				}
				sp.Flags = s.bits(25)
				splineCount = s.bits(22)
			}
		}
		hasTransport = s.bit()
		r.DeclareGUIDByte(&ownerGUID, 1)
		s.bit()
		if hasTransport {
			hasTransportTime2 = s.bit()
			transportGUID = r.DeclareGUID(0, 7, 2, 6, 5, 4, 1, 3)
			hasTransportTime3 = s.bit()
		}
		r.DeclareGUIDByte(&ownerGUID, 2)
		if hasFallData {
			hasFallDirection = s.bit()
		}
		hasMoveFlags := !s.bit()
		hasMoveFlagsExtra := !s.bit()
		hasUnkUInt = !s.bit()
		r.DeclareGUIDByte(&ownerGUID, 7)
		if hasMoveFlagsExtra {
			s.info.FlagsExtra = s.bits(12)
		}
		r.DeclareGUIDByte(&ownerGUID, 0)
		if hasMoveFlags {
			s.info.Flags = s.bits(30)
		}
		r.DeclareGUIDByte(&ownerGUID, 3)
		hasOrientation = !s.bit()
	}

	if hasAttackingTarget {
		attackingGUID = r.DeclareGUID(2, 4, 0, 1, 3, 7, 5, 6)
	}

	var hasGOTransportTime2, hasGOTransportTime3 bool
	if hasGOPosition {
		hasGOTransportTime2 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 1)
		r.DeclareGUIDByte(&goTransportGUID, 4)
		r.DeclareGUIDByte(&goTransportGUID, 5)
		r.DeclareGUIDByte(&goTransportGUID, 0)
		r.DeclareGUIDByte(&goTransportGUID, 6)
		r.DeclareGUIDByte(&goTransportGUID, 7)
		r.DeclareGUIDByte(&goTransportGUID, 3)
		hasGOTransportTime3 = s.bit()
		r.DeclareGUIDByte(&goTransportGUID, 2)
	}

	var hasAnimKit1, hasAnimKit2, hasAnimKit3 bool
	if hasAnimKits {
		hasAnimKit3 = !s.bit()
		hasAnimKit1 = !s.bit()
		hasAnimKit2 = !s.bit()
	}

	for i := 0; i < int(unkLoopCounter); i++ {
		s.u32("Unk UInt32", i)
	}

	if s.info.Living {
		s.walk()
		if s.info.HasSplineData {
			sp := s.spline()
			if fullSpline {
				s.points(splineCount, "xzy")
				switch facing {
				case FacingTarget:
					facingGUID = r.CompleteGUID(facingGUID, 0, 6, 5, 4, 1, 3, 7, 2)
					sp.Facing = FacingTarget
					sp.FacingTarget = s.guid("Facing Target GUID", facingGUID)
				case FacingSpot:
					sp.Facing = FacingSpot
					sp.FacingSpot = s.axes("Facing Spot", "zyx")
				}
				s.u32("Unk Spline UInt32 2")
				if bit256 {
					s.u32("Unk Spline UInt32 3")
				}
				s.float("Unk Spline Float 2")
				s.float("Unk Spline Float 1")
				s.u32("Unk Spline UInt32 1")
				if facing == FacingAngle {
					sp.Facing = FacingAngle
					sp.FacingAngle = s.float("Facing Angle")
				}
				if hasDurationMod {
					sp.DurationMod = s.float("Spline Duration Multiplier")
				}
			}
			sp.EndPoint.Z = s.float("Spline Endpoint Z")
			sp.EndPoint.Y = s.float("Spline Endpoint Y")
			sp.FullTime = s.u32("Spline Full Time")
			sp.EndPoint.X = s.float("Spline Endpoint X")
		}

		if hasTransport {
			off := &s.info.TransportOffset
			if hasTransportTime2 {
				s.i32("Transport Time 2")
			}
			r.XORGUIDByte(&transportGUID, 4)
			r.XORGUIDByte(&transportGUID, 6)
			r.XORGUIDByte(&transportGUID, 5)
			if hasTransportTime3 {
				s.i32("Transport Time 3")
			}
			r.XORGUIDByte(&transportGUID, 7)
			r.XORGUIDByte(&transportGUID, 3)
			off.X = s.float("Transport Position X")
			off.Z = s.float("Transport Position Z")
			off.O = s.float("Transport Orientation")
			r.XORGUIDByte(&transportGUID, 2)
			r.XORGUIDByte(&transportGUID, 1)
			r.XORGUIDByte(&transportGUID, 0)
			off.Y = s.float("Transport Position Y")
			s.info.TransportGUID = s.guid("Transport GUID", transportGUID)
			s.info.TransportSeat = int8(s.u8("Transport Seat"))
			s.info.TransportTime = uint32(s.i32("Transport Time"))
			s.accessory(subject)
		}

		if unkFloat1 {
			s.float("Unk Float 28")
		}
		s.flyBack()
		s.turnRate()
		r.XORGUIDByte(&ownerGUID, 5)
		s.run()
		if unkFloat2 {
			s.float("Unk Float 36")
		}
		r.XORGUIDByte(&ownerGUID, 0)
		s.pitchRate()
		if hasFallData {
			s.i32("Time Fallen")
			s.float("Fall Start Velocity")
			if hasFallDirection {
				s.float("Jump Sin")
				s.float("Jump Velocity")
				s.float("Jump Cos")
			}
		}
		s.runBack()
		s.info.Position.X = s.float("Position X")
		s.swimBack()
		r.XORGUIDByte(&ownerGUID, 7)
		s.info.Position.Z = s.float("Position Z")
		r.XORGUIDByte(&ownerGUID, 3)
		r.XORGUIDByte(&ownerGUID, 2)
		s.fly()
		s.swim()
		r.XORGUIDByte(&ownerGUID, 1)
		r.XORGUIDByte(&ownerGUID, 4)
		r.XORGUIDByte(&ownerGUID, 6)
		s.guid("GUID 2", ownerGUID)
		s.info.Position.Y = s.float("Position Y")
		if hasUnkUInt {
			s.u32("Unk UInt32 Living")
		}
		if hasOrientation {
			s.info.Orientation = s.float("Orientation")
		}
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

	if hasGOPosition {
		s.goTransport(&goTransportGUID, hasGOTransportTime2, hasGOTransportTime3, goOrder433)
	}

	if hasAttackingTarget {
		attackingGUID = r.CompleteGUID(attackingGUID, 2, 4, 7, 3, 0, 1, 5, 6)
		s.info.AttackingTarget = s.guid("Attacking Target GUID", attackingGUID)
	}

	if hasGORotation {
		s.info.Rotation = s.quaternion("GameObject Rotation")
	}

	if unkInt {
		s.u32("Unk UInt32 412")
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

	if hasStationary {
		s.info.Position = s.axes("Stationary Position", "zxy")
		s.info.Orientation = s.float("Stationary Orientation")
	}

	if hasVehicle {
		s.info.VehicleOrientation = s.float("Vehicle Orientation")
		s.info.VehicleID = s.u32("Vehicle Id")
	}

	r.ResetBitReader()
	return s.info
}
