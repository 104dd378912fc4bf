package bitstream

import (
	"encoding/binary"
	"math"

	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/vec"
)

// Writer - зеркальное отражение Reader. Нужен для построения эталонных
// буферов и для обратного кодирования блока полей (round-trip).
// Побайтовая запись сбрасывает недописанный битовый байт, как и чтение.
type Writer struct {
	buf     []byte
	curByte byte
	bitPos  uint8
}

func NewWriter() *Writer {
	return &Writer{}
}

// Bytes возвращает записанные данные, дописывая неполный битовый байт
func (w *Writer) Bytes() []byte {
	w.FlushBits()
	return w.buf
}

// FlushBits дописывает неполный байт, младшие биты остаются нулевыми
func (w *Writer) FlushBits() {
	if w.bitPos == 0 {
		return
	}
	w.buf = append(w.buf, w.curByte)
	w.curByte = 0
	w.bitPos = 0
}

func (w *Writer) WriteBit(bit bool) {
	if bit {
		w.curByte |= 1 << (7 - w.bitPos)
	}
	w.bitPos++
	if w.bitPos == 8 {
		w.buf = append(w.buf, w.curByte)
		w.curByte = 0
		w.bitPos = 0
	}
}

// WriteBits пишет n младших бит значения, старший первым
func (w *Writer) WriteBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteBit(v&(1<<i) != 0)
	}
}

func (w *Writer) WriteUint8(v uint8) {
	w.FlushBits()
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteInt8(v int8) {
	w.WriteUint8(uint8(v))
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
		return
	}
	w.WriteUint8(0)
}

func (w *Writer) WriteUint16(v uint16) {
	w.FlushBits()
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

func (w *Writer) WriteUint32(v uint32) {
	w.FlushBits()
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteUint64(v uint64) {
	w.FlushBits()
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

func (w *Writer) WriteFloat(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WriteBytes(b []byte) {
	w.FlushBits()
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteVector3(v vec.Vector3) {
	w.WriteFloat(v.X)
	w.WriteFloat(v.Y)
	w.WriteFloat(v.Z)
}

func (w *Writer) writePacked64(v uint64) uint8 {
	var mask uint8
	for i := 0; i < 8; i++ {
		if byte(v>>(i*8)) != 0 {
			mask |= 1 << i
		}
	}
	return mask
}

func (w *Writer) writePackedBytes(v uint64, mask uint8) {
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			w.buf = append(w.buf, byte(v>>(i*8)))
		}
	}
}

// WritePackedGUID пишет GUID в упакованном виде нужной ширины
func (w *Writer) WritePackedGUID(g guid.GUID) {
	w.FlushBits()
	if g.Wide {
		lo := w.writePacked64(g.Low)
		hi := w.writePacked64(g.High)
		w.buf = append(w.buf, lo, hi)
		w.writePackedBytes(g.Low, lo)
		w.writePackedBytes(g.High, hi)
		return
	}
	mask := w.writePacked64(g.Low)
	w.buf = append(w.buf, mask)
	w.writePackedBytes(g.Low, mask)
}

// WriteGUIDMask - фаза объявления обфусцированного GUID
func (w *Writer) WriteGUIDMask(v uint64, order ...int) {
	for _, idx := range order {
		w.WriteBit(byte(v>>(idx*8)) != 0)
	}
}

// WriteGUIDBytes - фаза данных: ненулевые байты пишутся с XOR 1
func (w *Writer) WriteGUIDBytes(v uint64, order ...int) {
	for _, idx := range order {
		b := byte(v >> (idx * 8))
		if b != 0 {
			w.WriteUint8(b ^ 1)
		}
	}
}
