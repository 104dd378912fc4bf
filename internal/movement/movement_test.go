package movement

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/vec"
)

// accessoryLog запоминает выведенные связи
type accessoryLog struct {
	items []Accessory
}

func (l *accessoryLog) AddVehicleAccessory(a Accessory) {
	l.items = append(l.items, a)
}

func routineName(fn Routine) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func TestSelectBoundaries(t *testing.T) {
	cases := []struct {
		build revision.Build
		want  Routine
	}{
		{0, decodeLegacy},
		{revision.V3_3_5_12340, decodeLegacy},
		{revision.V4_3_0_15005 - 1, decodeLegacy},
		{revision.V4_3_0_15005, decode430},
		{revision.V4_3_2_15211 - 1, decode430},
		{revision.V4_3_2_15211, decode432},
		{revision.V4_3_3_15354 - 1, decode432},
		{revision.V4_3_3_15354, decode433},
		{revision.V4_3_4_15595, decode433},
		{revision.V5_0_4_16016 - 1, decode433},
		{revision.V5_0_4_16016, decode504},
		{revision.V5_1_0_16309 - 1, decode504},
		{revision.V5_1_0_16309, decode510},
		{revision.V7_0_3_22248, decode510},
	}

	for _, tc := range cases {
		assert.Equal(t, routineName(tc.want), routineName(Select(tc.build)), "сборка %d", tc.build)
	}

	assert.Equal(t, []revision.Build{
		revision.V4_3_0_15005, revision.V4_3_2_15211, revision.V4_3_3_15354,
		revision.V5_0_4_16016, revision.V5_1_0_16309,
	}, Thresholds())
}

func TestEmptyBlockConsumption(t *testing.T) {
	// Все флаги сброшены: читается только заголовок из битов
	cases := []struct {
		build revision.Build
		size  int
	}{
		{revision.V5_1_0_16309, 8},
		{revision.V5_0_4_16016, 8},
		{revision.V4_3_3_15354, 5},
		{revision.V4_3_2_15211, 5},
		{revision.V4_3_0_15005, 5},
	}

	for _, tc := range cases {
		r := bitstream.NewReader(make([]byte, tc.size+3))
		info, err := Decode(r, guid.GUID{}, Env{Build: tc.build})
		require.NoError(t, err, "сборка %d", tc.build)
		assert.Equal(t, tc.size, r.Position(), "сборка %d", tc.build)
		assert.False(t, info.Living)
		assert.False(t, info.HasTransport())
	}
}

func TestLegacyStationaryGolden(t *testing.T) {
	data := []byte{
		0x40, 0x00, // StationaryObject
		0x00, 0x00, 0x80, 0x3F, // 1.0
		0x00, 0x00, 0x00, 0x40, // 2.0
		0x00, 0x00, 0x40, 0x40, // 3.0
		0x00, 0x00, 0x00, 0x3F, // 0.5
	}
	rec := observe.NewRecorder()
	r := bitstream.NewReader(data)

	info, err := Decode(r, guid.New64(0xF110000000000001), Env{Build: revision.V3_3_5_12340, Observer: rec})
	require.NoError(t, err)
	assert.True(t, r.Done())
	assert.Equal(t, vec.Vector3{X: 1, Y: 2, Z: 3}, info.Position)
	assert.Equal(t, float32(0.5), info.Orientation)
	assert.False(t, info.Living)

	tuple, ok := rec.Find("Update Flags")
	require.True(t, ok)
	assert.Equal(t, uint16(0x40), tuple.Value)
}

func TestLegacyUpdateFlagsWidth(t *testing.T) {
	// До 3.1.0 флаги обновления занимают один байт
	w := bitstream.NewWriter()
	w.WriteUint8(uint8(UpdateFlagStationaryObject))
	w.WriteVector3(vec.Vector3{X: 4, Y: 5, Z: 6})
	w.WriteFloat(1)

	r := bitstream.NewReader(w.Bytes())
	info, err := Decode(r, guid.GUID{}, Env{Build: revision.V3_0_2_9056})
	require.NoError(t, err)
	assert.True(t, r.Done())
	assert.Equal(t, vec.Vector3{X: 4, Y: 5, Z: 6}, info.Position)
}

func writeLegacySpeeds(w *bitstream.Writer, walk, run float32) {
	w.WriteFloat(walk)
	w.WriteFloat(run)
	w.WriteFloat(4.5)
	w.WriteFloat(4.722222)
	w.WriteFloat(2.5)
	w.WriteFloat(3.141594)
	w.WriteFloat(7)
	w.WriteFloat(4.5)
	w.WriteFloat(3.141594)
}

func TestLegacyLivingOnVehicle(t *testing.T) {
	vehicle := guid.New64(0xF1500000C800000A)
	subject := guid.New64(0xF130000064000001)

	w := bitstream.NewWriter()
	w.WriteUint16(uint16(UpdateFlagLiving | UpdateFlagSelf))
	w.WriteUint32(MoveFlagOnTransport)
	w.WriteUint16(0)
	w.WriteUint32(1000)
	w.WriteVector3(vec.Vector3{X: 10, Y: 20, Z: 30})
	w.WriteFloat(1.5)
	w.WritePackedGUID(vehicle)
	w.WriteFloat(0.25)
	w.WriteFloat(-0.5)
	w.WriteFloat(1)
	w.WriteFloat(3)
	w.WriteUint32(77)
	w.WriteInt8(2)
	w.WriteUint32(0) // время падения
	writeLegacySpeeds(w, 5, 14)

	log := &accessoryLog{}
	r := bitstream.NewReader(w.Bytes())
	info, err := Decode(r, subject, Env{Build: revision.V3_3_5_12340, Accessories: log})
	require.NoError(t, err)
	assert.True(t, r.Done())

	assert.True(t, info.Living)
	assert.True(t, info.Self)
	assert.Equal(t, uint32(1000), info.MoveTime)
	assert.Equal(t, vec.Vector3{X: 10, Y: 20, Z: 30}, info.Position)
	assert.Equal(t, vehicle, info.TransportGUID)
	assert.Equal(t, vec.Vector4{X: 0.25, Y: -0.5, Z: 1, O: 3}, info.TransportOffset)
	assert.Equal(t, int8(2), info.TransportSeat)
	assert.Equal(t, float32(2), info.WalkSpeed)
	assert.Equal(t, float32(2), info.RunSpeed)
	assert.InDelta(t, 1.0, info.SwimSpeed, 1e-6)
	assert.False(t, info.HasSplineData)

	require.Len(t, log.items, 1)
	assert.Equal(t, Accessory{Entry: 200, AccessoryEntry: 100, SeatID: 2}, log.items[0])
}

func TestLegacyPassengerNotCreature(t *testing.T) {
	// Игрок на транспортном средстве не порождает связь
	w := bitstream.NewWriter()
	w.WriteUint16(uint16(UpdateFlagLiving))
	w.WriteUint32(MoveFlagOnTransport)
	w.WriteUint16(0)
	w.WriteUint32(0)
	w.WriteVector3(vec.Vector3{})
	w.WriteFloat(0)
	w.WritePackedGUID(guid.New64(0xF1500000C800000A))
	for i := 0; i < 4; i++ {
		w.WriteFloat(0)
	}
	w.WriteUint32(0)
	w.WriteInt8(0)
	w.WriteUint32(0)
	writeLegacySpeeds(w, 2.5, 7)

	log := &accessoryLog{}
	_, err := Decode(bitstream.NewReader(w.Bytes()), guid.New64(0x42), Env{Build: revision.V3_3_5_12340, Accessories: log})
	require.NoError(t, err)
	assert.Empty(t, log.items)
}

func writeLegacySplineBlock(w *bitstream.Writer, splineFlags uint32) {
	w.WriteUint16(uint16(UpdateFlagLiving))
	w.WriteUint32(MoveFlagSplineEnabled)
	w.WriteUint16(0)
	w.WriteUint32(0)
	w.WriteVector3(vec.Vector3{})
	w.WriteFloat(0)
	w.WriteUint32(0)
	writeLegacySpeeds(w, 2.5, 7)
	w.WriteUint32(splineFlags)
}

func TestLegacySplineFinalOrder(t *testing.T) {
	flags := SplineFlagFinalTarget | SplineFlagFinalAngle

	t.Run("До 4.2.0 цель важнее угла", func(t *testing.T) {
		w := bitstream.NewWriter()
		writeLegacySplineBlock(w, flags)
		w.WriteUint64(0xF130000064000001)
		w.WriteUint32(100) // time
		w.WriteUint32(200) // full time
		w.WriteUint32(3)   // id
		w.WriteFloat(1)
		w.WriteFloat(1)
		w.WriteFloat(0)
		w.WriteUint32(0)
		w.WriteUint32(2)
		w.WriteVector3(vec.Vector3{X: 1, Y: 1, Z: 1})
		w.WriteVector3(vec.Vector3{X: 2, Y: 2, Z: 2})
		w.WriteUint8(0)
		w.WriteVector3(vec.Vector3{X: 3, Y: 3, Z: 3})

		r := bitstream.NewReader(w.Bytes())
		info, err := Decode(r, guid.GUID{}, Env{Build: revision.V3_3_5_12340})
		require.NoError(t, err)
		assert.True(t, r.Done())
		require.NotNil(t, info.Spline)
		assert.True(t, info.HasSplineData)
		assert.Equal(t, FacingTarget, info.Spline.Facing)
		assert.Equal(t, guid.New64(0xF130000064000001), info.Spline.FacingTarget)
		assert.Equal(t, uint32(3), info.Spline.ID)
		assert.Len(t, info.Spline.Points, 2)
		assert.Equal(t, vec.Vector3{X: 3, Y: 3, Z: 3}, info.Spline.EndPoint)
	})

	t.Run("С 4.2.0 угол важнее цели", func(t *testing.T) {
		w := bitstream.NewWriter()
		writeLegacySplineBlock(w, flags)
		w.WriteFloat(1.25)
		w.WriteUint32(100)
		w.WriteUint32(200)
		w.WriteUint32(3)
		w.WriteFloat(1)
		w.WriteFloat(1)
		w.WriteFloat(0)
		w.WriteUint32(0)
		w.WriteUint32(0)
		w.WriteUint8(0)
		w.WriteVector3(vec.Vector3{X: 3, Y: 3, Z: 3})

		r := bitstream.NewReader(w.Bytes())
		info, err := Decode(r, guid.GUID{}, Env{Build: revision.V4_2_0_14333})
		require.NoError(t, err)
		assert.True(t, r.Done())
		assert.Equal(t, FacingAngle, info.Spline.Facing)
		assert.Equal(t, float32(1.25), info.Spline.FacingAngle)
	})
}

func TestDecode430LivingOnVehicle(t *testing.T) {
	w := bitstream.NewWriter()
	// заголовок
	w.WriteBit(false) // атакуемая цель
	w.WriteBit(false)
	w.WriteBit(false) // транспортное средство
	w.WriteBits(0, 3)
	w.WriteBit(false) // transport extra
	w.WriteBit(false) // позиция GO
	w.WriteBit(false) // unk floats
	w.WriteBit(false) // anim kits
	w.WriteBit(false) // поворот GO
	w.WriteBit(true)  // living
	w.WriteBit(false) // stationary
	w.WriteBits(0, 24)
	w.WriteBit(false)

	// биты живого объекта
	w.WriteBit(true) // есть транспорт
	w.WriteGUIDMask(vehicleRaw, 2, 7, 5)
	w.WriteBit(false) // time3
	w.WriteGUIDMask(vehicleRaw, 3, 0, 4, 1)
	w.WriteBit(false) // time2
	w.WriteGUIDMask(vehicleRaw, 6)
	w.WriteBit(false) // сплайн
	w.WriteGUIDMask(subjectRaw, 7, 6, 5, 2, 4)
	w.WriteBit(true) // нет флагов движения
	w.WriteGUIDMask(subjectRaw, 1)
	w.WriteBit(false)
	w.WriteBit(true) // нет unk uint
	w.WriteBit(true) // нет extra флагов
	w.WriteGUIDMask(subjectRaw, 3)
	w.WriteBit(true)  // нет float +28
	w.WriteBit(false) // нет падения
	w.WriteGUIDMask(subjectRaw, 0)
	w.WriteBit(false) // ориентация есть
	w.WriteBit(true)  // нет float +36

	// данные
	w.WriteFloat(3.141594) // pitch rate
	w.WriteGUIDBytes(vehicleRaw, 4)
	w.WriteFloat(1) // transport z
	w.WriteGUIDBytes(vehicleRaw, 7, 5, 1)
	w.WriteFloat(2) // transport x
	w.WriteGUIDBytes(vehicleRaw, 3, 6)
	w.WriteFloat(3) // transport y
	w.WriteUint8(4) // seat
	w.WriteFloat(5) // transport o
	w.WriteGUIDBytes(vehicleRaw, 2)
	w.WriteInt32(6) // transport time
	w.WriteGUIDBytes(vehicleRaw, 0)
	w.WriteFloat(4.5) // fly back
	w.WriteFloat(100) // x
	w.WriteGUIDBytes(subjectRaw, 7)
	w.WriteFloat(2.5) // swim back
	w.WriteGUIDBytes(subjectRaw, 0, 5)
	w.WriteFloat(300) // z
	w.WriteFloat(7)   // fly
	w.WriteGUIDBytes(subjectRaw, 1)
	w.WriteFloat(4.5)      // run back
	w.WriteFloat(3.141594) // turn
	w.WriteFloat(4.722222) // swim
	w.WriteFloat(2.5)      // walk
	w.WriteGUIDBytes(subjectRaw, 3, 4, 2, 6)
	w.WriteFloat(200) // y
	w.WriteFloat(0.75)
	w.WriteFloat(10.5) // run

	rec := observe.NewRecorder()
	log := &accessoryLog{}
	r := bitstream.NewReader(w.Bytes())
	info, err := Decode(r, guid.New64(subjectRaw), Env{
		Build:       revision.V4_3_0_15005,
		Observer:    rec,
		Accessories: log,
	})
	require.NoError(t, err)
	assert.True(t, r.Done())

	assert.True(t, info.Living)
	assert.Equal(t, guid.New64(vehicleRaw), info.TransportGUID)
	assert.Equal(t, vec.Vector4{X: 2, Y: 3, Z: 1, O: 5}, info.TransportOffset)
	assert.Equal(t, int8(4), info.TransportSeat)
	assert.Equal(t, uint32(6), info.TransportTime)
	assert.Equal(t, vec.Vector3{X: 100, Y: 200, Z: 300}, info.Position)
	assert.Equal(t, float32(0.75), info.Orientation)
	assert.Equal(t, float32(1), info.WalkSpeed)
	assert.Equal(t, float32(1.5), info.RunSpeed)

	owner, ok := rec.Find("GUID 2")
	require.True(t, ok)
	assert.Equal(t, guid.New64(subjectRaw), owner.Value)

	require.Len(t, log.items, 1)
	assert.Equal(t, Accessory{Entry: 200, AccessoryEntry: 100, SeatID: 4}, log.items[0])
}

func TestDecode510Stationary(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(false) // 654
	w.WriteBit(false)
	w.WriteBit(false) // поворот GO
	w.WriteBit(false) // атакуемая цель
	w.WriteBit(false)
	w.WriteBit(false) // 520
	w.WriteBits(0, 24)
	w.WriteBit(true) // transport path timer
	w.WriteBit(false)
	w.WriteBit(false)
	w.WriteBit(false) // 784
	w.WriteBit(false) // self
	w.WriteBit(false)
	w.WriteBit(false) // living
	w.WriteBit(false)
	w.WriteBit(false) // 644
	w.WriteBit(true)  // stationary
	w.WriteBit(true)  // vehicle
	w.WriteBits(0, 21)
	w.WriteBit(false) // anim kits

	w.WriteFloat(1)    // x
	w.WriteFloat(0.5)  // o
	w.WriteFloat(2)    // y
	w.WriteFloat(3)    // z
	w.WriteFloat(1.25) // vehicle orientation
	w.WriteUint32(509) // vehicle id
	w.WriteUint32(42)  // path timer

	r := bitstream.NewReader(w.Bytes())
	info, err := Decode(r, guid.GUID{}, Env{Build: revision.V5_1_0_16309})
	require.NoError(t, err)
	assert.True(t, r.Done())
	assert.Equal(t, vec.Vector3{X: 1, Y: 2, Z: 3}, info.Position)
	assert.Equal(t, float32(0.5), info.Orientation)
	assert.Equal(t, uint32(509), info.VehicleID)
	assert.Equal(t, float32(1.25), info.VehicleOrientation)
}

func TestDecode504Stationary(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteBit(false) // атакуемая цель
	w.WriteBit(false) // vehicle
	w.WriteBits(0, 24)
	w.WriteBit(false) // 284
	w.WriteBit(false) // GO позиция
	w.WriteBit(true)  // stationary
	w.WriteBits(0, 21)
	w.WriteBits(0, 10)
	w.WriteBit(false) // self

	w.WriteFloat(2)   // y
	w.WriteFloat(3)   // z
	w.WriteFloat(1)   // x
	w.WriteFloat(0.5) // o

	r := bitstream.NewReader(w.Bytes())
	info, err := Decode(r, guid.GUID{}, Env{Build: revision.V5_0_4_16016})
	require.NoError(t, err)
	assert.True(t, r.Done())
	assert.Equal(t, vec.Vector3{X: 1, Y: 2, Z: 3}, info.Position)
	assert.Equal(t, float32(0.5), info.Orientation)
}

func TestDecode433And432Stationary(t *testing.T) {
	t.Run("4.3.3", func(t *testing.T) {
		w := bitstream.NewWriter()
		w.WriteBits(0, 3)
		w.WriteBits(0, 24)
		w.WriteBit(true) // stationary
		w.WriteBits(0, 10)
		w.WriteFloat(3) // z
		w.WriteFloat(1) // x
		w.WriteFloat(2) // y
		w.WriteFloat(0.5)

		r := bitstream.NewReader(w.Bytes())
		info, err := Decode(r, guid.GUID{}, Env{Build: revision.V4_3_4_15595})
		require.NoError(t, err)
		assert.True(t, r.Done())
		assert.Equal(t, vec.Vector3{X: 1, Y: 2, Z: 3}, info.Position)
	})

	t.Run("4.3.2", func(t *testing.T) {
		w := bitstream.NewWriter()
		w.WriteBits(0, 3)
		w.WriteBit(true) // stationary
		w.WriteBit(false)
		w.WriteBits(0, 24)
		w.WriteBits(0, 9)
		w.WriteFloat(1) // x
		w.WriteFloat(3) // z
		w.WriteFloat(2) // y
		w.WriteFloat(0.5)

		r := bitstream.NewReader(w.Bytes())
		info, err := Decode(r, guid.GUID{}, Env{Build: revision.V4_3_2_15211})
		require.NoError(t, err)
		assert.True(t, r.Done())
		assert.Equal(t, vec.Vector3{X: 1, Y: 2, Z: 3}, info.Position)
	})
}

func TestDecodeTruncated(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteUint16(uint16(UpdateFlagStationaryObject))
	w.WriteFloat(1)

	_, err := Decode(bitstream.NewReader(w.Bytes()), guid.GUID{}, Env{Build: revision.V3_3_5_12340})
	require.Error(t, err)
	assert.ErrorIs(t, err, bitstream.ErrOverrun)
}

const (
	vehicleRaw = uint64(0xF15000C80000000A)
	subjectRaw = uint64(0xF130006400000001)
)

// decodeOnVehicle разбирает блок пассажира транспорта и проверяет общие поля
func decodeOnVehicle(t *testing.T, w *bitstream.Writer, build revision.Build, seat int8) Info {
	t.Helper()

	rec := observe.NewRecorder()
	log := &accessoryLog{}
	r := bitstream.NewReader(w.Bytes())
	info, err := Decode(r, guid.New64(subjectRaw), Env{
		Build:       build,
		Observer:    rec,
		Accessories: log,
	})
	require.NoError(t, err)
	assert.True(t, r.Done())

	assert.True(t, info.Living)
	assert.Equal(t, guid.New64(vehicleRaw), info.TransportGUID)
	assert.Equal(t, vec.Vector4{X: 2, Y: 3, Z: 1, O: 5}, info.TransportOffset)
	assert.Equal(t, seat, info.TransportSeat)
	assert.Equal(t, uint32(6), info.TransportTime)
	assert.Equal(t, vec.Vector3{X: 100, Y: 200, Z: 300}, info.Position)
	assert.Equal(t, float32(0.75), info.Orientation)
	assert.Equal(t, float32(1), info.WalkSpeed)
	assert.Equal(t, float32(1.5), info.RunSpeed)

	owner, ok := rec.Find("GUID 2")
	require.True(t, ok)
	assert.Equal(t, guid.New64(subjectRaw), owner.Value)

	require.Len(t, log.items, 1)
	assert.Equal(t, Accessory{Entry: 200, AccessoryEntry: 100, SeatID: seat}, log.items[0])
	return info
}

func TestDecode510LivingOnVehicle(t *testing.T) {
	w := bitstream.NewWriter()
	// заголовок
	w.WriteBits(0, 6)
	w.WriteBits(0, 24)
	w.WriteBits(0, 4) // path timer, позиция GO, -, 784
	w.WriteBit(true)  // self
	w.WriteBit(false)
	w.WriteBit(true) // living
	w.WriteBit(false)
	w.WriteBit(false) // 644
	w.WriteBit(false) // stationary
	w.WriteBit(false) // vehicle
	w.WriteBits(0, 21)
	w.WriteBit(false) // anim kits

	// биты живого объекта
	w.WriteGUIDMask(subjectRaw, 3)
	w.WriteBit(false) // нет падения
	w.WriteBit(false) // время есть
	w.WriteBit(false)
	w.WriteGUIDMask(subjectRaw, 2)
	w.WriteBit(false)
	w.WriteBit(true) // нет pitch
	w.WriteBit(true) // нет extra флагов
	w.WriteGUIDMask(subjectRaw, 4, 5)
	w.WriteBits(0, 24)
	w.WriteBit(true) // нет spline elevation
	w.WriteBit(true) // нет field8
	w.WriteBit(false)
	w.WriteGUIDMask(subjectRaw, 0, 6, 7)
	w.WriteBit(true)  // есть транспорт
	w.WriteBit(false) // ориентация есть
	w.WriteGUIDMask(vehicleRaw, 3, 0, 4, 5, 2, 7, 1)
	w.WriteBit(false) // time2
	w.WriteGUIDMask(vehicleRaw, 6)
	w.WriteBit(false) // time3
	w.WriteBit(true)  // нет флагов движения
	w.WriteGUIDMask(subjectRaw, 1)
	w.WriteBit(false) // сплайн

	// данные
	w.WriteFloat(4.5)      // fly back
	w.WriteFloat(4.722222) // swim
	w.WriteFloat(1)        // transport z
	w.WriteGUIDBytes(vehicleRaw, 4)
	w.WriteFloat(2) // transport x
	w.WriteGUIDBytes(vehicleRaw, 6, 5, 1)
	w.WriteFloat(5) // transport o
	w.WriteFloat(3) // transport y
	w.WriteInt8(4)  // seat
	w.WriteGUIDBytes(vehicleRaw, 7)
	w.WriteUint32(6) // transport time
	w.WriteGUIDBytes(vehicleRaw, 0, 2, 3)
	w.WriteGUIDBytes(subjectRaw, 1)
	w.WriteFloat(3.141594) // turn
	w.WriteFloat(200)      // y
	w.WriteGUIDBytes(subjectRaw, 3)
	w.WriteFloat(300)  // z
	w.WriteFloat(0.75) // o
	w.WriteFloat(4.5)  // run back
	w.WriteGUIDBytes(subjectRaw, 0, 6)
	w.WriteFloat(100)   // x
	w.WriteUint32(1234) // время
	w.WriteFloat(2.5)   // walk
	w.WriteGUIDBytes(subjectRaw, 5)
	w.WriteFloat(3.141594) // pitch rate
	w.WriteGUIDBytes(subjectRaw, 2)
	w.WriteFloat(10.5) // run
	w.WriteGUIDBytes(subjectRaw, 7)
	w.WriteFloat(2.5) // swim back
	w.WriteGUIDBytes(subjectRaw, 4)
	w.WriteFloat(7) // fly

	info := decodeOnVehicle(t, w, revision.V5_1_0_16309, 4)
	assert.True(t, info.Self)
	assert.Equal(t, uint32(1234), info.MoveTime)
}

func TestDecode504LivingOnVehicle(t *testing.T) {
	w := bitstream.NewWriter()
	// заголовок
	w.WriteBit(false) // атакуемая цель
	w.WriteBit(false) // vehicle
	w.WriteBits(0, 24)
	w.WriteBits(0, 3) // 284, позиция GO, stationary
	w.WriteBits(0, 21)
	w.WriteBits(0, 3) // path timer, 208, -
	w.WriteBit(true)  // living
	w.WriteBits(0, 6)
	w.WriteBit(true) // self

	// биты живого объекта
	w.WriteGUIDMask(subjectRaw, 3)
	w.WriteBit(false) // сплайн
	w.WriteBits(0, 24)
	w.WriteGUIDMask(subjectRaw, 4)
	w.WriteBit(true)  // нет pitch
	w.WriteBit(true)  // есть транспорт
	w.WriteBit(false) // нет падения
	w.WriteBit(false) // время есть
	w.WriteGUIDMask(vehicleRaw, 3)
	w.WriteBit(false) // time3
	w.WriteGUIDMask(vehicleRaw, 7, 0, 6)
	w.WriteBit(false) // time2
	w.WriteGUIDMask(vehicleRaw, 4, 1, 2, 5)
	w.WriteBit(true) // нет A8
	w.WriteGUIDMask(subjectRaw, 7)
	w.WriteBit(true) // нет extra флагов
	w.WriteGUIDMask(subjectRaw, 0)
	w.WriteBit(false)
	w.WriteGUIDMask(subjectRaw, 5, 2, 6)
	w.WriteBit(true)  // нет флагов движения
	w.WriteBit(false) // ориентация есть
	w.WriteBits(0, 2)
	w.WriteGUIDMask(subjectRaw, 1)
	w.WriteBit(true) // нет spline elevation

	// данные
	w.WriteFloat(2.5) // walk
	w.WriteGUIDBytes(vehicleRaw, 4, 0)
	w.WriteFloat(3) // transport y
	w.WriteFloat(2) // transport x
	w.WriteInt8(7)  // seat
	w.WriteGUIDBytes(vehicleRaw, 7, 3, 6)
	w.WriteFloat(5)  // transport o
	w.WriteUint32(6) // transport time
	w.WriteGUIDBytes(vehicleRaw, 2, 1)
	w.WriteFloat(1) // transport z
	w.WriteGUIDBytes(vehicleRaw, 5)
	w.WriteGUIDBytes(subjectRaw, 2, 7)
	w.WriteUint32(1234) // время
	w.WriteFloat(7)     // fly
	w.WriteFloat(100)   // x
	w.WriteFloat(200)   // y
	w.WriteGUIDBytes(subjectRaw, 5)
	w.WriteFloat(300) // z
	w.WriteGUIDBytes(subjectRaw, 3, 6, 1)
	w.WriteFloat(3.141594) // turn
	w.WriteFloat(3.141594) // pitch rate
	w.WriteFloat(10.5)     // run
	w.WriteFloat(0.75)     // o
	w.WriteGUIDBytes(subjectRaw, 4)
	w.WriteFloat(4.722222) // swim
	w.WriteFloat(2.5)      // swim back
	w.WriteFloat(4.5)      // fly back
	w.WriteFloat(4.5)      // run back
	w.WriteGUIDBytes(subjectRaw, 0)

	info := decodeOnVehicle(t, w, revision.V5_0_4_16016, 7)
	assert.True(t, info.Self)
	assert.Equal(t, uint32(1234), info.MoveTime)
}

func TestDecode433LivingOnVehicle(t *testing.T) {
	w := bitstream.NewWriter()
	// заголовок
	w.WriteBit(true)  // living
	w.WriteBit(false) // атакуемая цель
	w.WriteBit(false) // vehicle
	w.WriteBits(0, 24)
	w.WriteBit(false) // stationary
	w.WriteBits(0, 2)
	w.WriteBit(false) // unk int
	w.WriteBit(false) // unk floats
	w.WriteBits(0, 3)
	w.WriteBit(false) // позиция GO
	w.WriteBit(false) // anim kits
	w.WriteBit(false) // поворот GO

	// биты живого объекта
	w.WriteGUIDMask(subjectRaw, 4)
	w.WriteBit(false)
	w.WriteGUIDMask(subjectRaw, 5)
	w.WriteBit(true)  // нет float +28
	w.WriteBit(false) // нет падения
	w.WriteBit(true)  // нет float +36
	w.WriteGUIDMask(subjectRaw, 6)
	w.WriteBit(false) // сплайн
	w.WriteBit(true)  // есть транспорт
	w.WriteGUIDMask(subjectRaw, 1)
	w.WriteBit(false)
	w.WriteBit(false) // time2
	w.WriteGUIDMask(vehicleRaw, 0, 7, 2, 6, 5, 4, 1, 3)
	w.WriteBit(false) // time3
	w.WriteGUIDMask(subjectRaw, 2)
	w.WriteBit(true) // нет флагов движения
	w.WriteBit(true) // нет extra флагов
	w.WriteBit(true) // нет unk uint
	w.WriteGUIDMask(subjectRaw, 7, 0, 3)
	w.WriteBit(false) // ориентация есть

	// данные
	w.WriteFloat(2.5) // walk
	w.WriteGUIDBytes(vehicleRaw, 4, 6, 5, 7, 3)
	w.WriteFloat(2) // transport x
	w.WriteFloat(1) // transport z
	w.WriteFloat(5) // transport o
	w.WriteGUIDBytes(vehicleRaw, 2, 1, 0)
	w.WriteFloat(3)        // transport y
	w.WriteUint8(2)        // seat
	w.WriteInt32(6)        // transport time
	w.WriteFloat(4.5)      // fly back
	w.WriteFloat(3.141594) // turn
	w.WriteGUIDBytes(subjectRaw, 5)
	w.WriteFloat(10.5) // run
	w.WriteGUIDBytes(subjectRaw, 0)
	w.WriteFloat(3.141594) // pitch rate
	w.WriteFloat(4.5)      // run back
	w.WriteFloat(100)      // x
	w.WriteFloat(2.5)      // swim back
	w.WriteGUIDBytes(subjectRaw, 7)
	w.WriteFloat(300) // z
	w.WriteGUIDBytes(subjectRaw, 3, 2)
	w.WriteFloat(7)        // fly
	w.WriteFloat(4.722222) // swim
	w.WriteGUIDBytes(subjectRaw, 1, 4, 6)
	w.WriteFloat(200)  // y
	w.WriteFloat(0.75) // o

	info := decodeOnVehicle(t, w, revision.V4_3_4_15595, 2)
	assert.False(t, info.Self)
}

func TestDecode432LivingOnVehicle(t *testing.T) {
	w := bitstream.NewWriter()
	// заголовок
	w.WriteBits(0, 3)
	w.WriteBit(false) // stationary
	w.WriteBit(false) // anim kits
	w.WriteBits(0, 24)
	w.WriteBit(false)
	w.WriteBit(false) // transport extra
	w.WriteBit(false) // поворот GO
	w.WriteBit(true)  // living
	w.WriteBit(false) // позиция GO
	w.WriteBit(false) // vehicle
	w.WriteBit(false) // атакуемая цель
	w.WriteBit(false)
	w.WriteBit(false) // unk floats

	// биты живого объекта
	w.WriteBit(true)  // нет float +28
	w.WriteBit(false) // ориентация есть
	w.WriteBit(true)  // нет extra флагов
	w.WriteBit(false) // нет падения
	w.WriteGUIDMask(subjectRaw, 0, 5, 4)
	w.WriteBit(true)  // нет флагов движения
	w.WriteBit(false) // сплайн
	w.WriteBit(false)
	w.WriteBit(true) // нет unk uint
	w.WriteGUIDMask(subjectRaw, 3)
	w.WriteBit(false)
	w.WriteGUIDMask(subjectRaw, 1)
	w.WriteBit(true) // нет float +36
	w.WriteBit(true) // есть транспорт
	w.WriteGUIDMask(subjectRaw, 2)
	w.WriteGUIDMask(vehicleRaw, 3, 5, 1, 7)
	w.WriteBit(false) // time2
	w.WriteGUIDMask(vehicleRaw, 4, 0, 2, 6)
	w.WriteBit(false) // time3
	w.WriteGUIDMask(subjectRaw, 6, 7)

	// данные
	w.WriteGUIDBytes(vehicleRaw, 6)
	w.WriteUint8(3) // seat
	w.WriteFloat(5) // transport o
	w.WriteGUIDBytes(vehicleRaw, 7)
	w.WriteFloat(3) // transport y
	w.WriteGUIDBytes(vehicleRaw, 3)
	w.WriteInt32(6) // transport time
	w.WriteGUIDBytes(vehicleRaw, 0, 1)
	w.WriteFloat(2) // transport x
	w.WriteGUIDBytes(vehicleRaw, 4)
	w.WriteFloat(1) // transport z
	w.WriteGUIDBytes(vehicleRaw, 5, 2)
	w.WriteFloat(300) // z
	w.WriteFloat(4.5) // fly back
	w.WriteFloat(200) // y
	w.WriteGUIDBytes(subjectRaw, 4, 0)
	w.WriteFloat(100)      // x
	w.WriteFloat(0.75)     // o
	w.WriteFloat(4.722222) // swim
	w.WriteFloat(10.5)     // run
	w.WriteFloat(7)        // fly
	w.WriteGUIDBytes(subjectRaw, 2, 3)
	w.WriteFloat(4.5) // run back
	w.WriteGUIDBytes(subjectRaw, 6)
	w.WriteFloat(3.141594) // pitch rate
	w.WriteGUIDBytes(subjectRaw, 7, 5)
	w.WriteFloat(3.141594) // turn
	w.WriteFloat(2.5)      // swim back
	w.WriteGUIDBytes(subjectRaw, 1)
	w.WriteFloat(2.5) // walk

	decodeOnVehicle(t, w, revision.V4_3_2_15211, 3)
}

func TestMarksActivePlayer(t *testing.T) {
	cases := []struct {
		build revision.Build
		want  bool
	}{
		{revision.V3_3_5_12340, true},
		{revision.V4_2_2_14545, true},
		{revision.V4_3_0_15005 - 1, true},
		{revision.V4_3_0_15005, false},
		{revision.V4_3_4_15595, false},
		{revision.V5_0_4_16016, false},
		{revision.V5_1_0_16309, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MarksActivePlayer(tc.build), "сборка %d", tc.build)
	}
}
