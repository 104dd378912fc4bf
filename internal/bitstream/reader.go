// Package bitstream реализует курсор чтения поверх буфера захваченного пакета.
//
// Чтение байтов и битов идёт через один и тот же курсор: побитовое чтение
// забирает очередной байт целиком и раздаёт его старшими битами вперёд,
// а любое побайтовое чтение сбрасывает недочитанный байт. Поэтому после
// выровненного чтения следующий бит всегда берётся из свежего байта.
package bitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/vec"
)

// ErrOverrun возвращается при попытке чтения за концом буфера
var ErrOverrun = errors.New("чтение за пределами буфера")

// Reader - курсор по байтовому буферу.
// Ошибка "липкая": после первого выхода за границу все чтения возвращают нули,
// а Err() сообщает смещение, на котором произошёл сбой.
type Reader struct {
	buf     []byte
	pos     int
	bitPos  uint8
	curByte byte
	err     error
}

// NewReader создаёт курсор над буфером. Буфер не копируется.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, bitPos: 8}
}

// Err возвращает первую ошибку чтения
func (r *Reader) Err() error {
	return r.err
}

// Position - текущее байтовое смещение
func (r *Reader) Position() int {
	return r.pos
}

// Len - размер буфера
func (r *Reader) Len() int {
	return len(r.buf)
}

// Remaining - количество непрочитанных байт
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Done возвращает true, когда буфер прочитан до конца
func (r *Reader) Done() bool {
	return r.pos >= len(r.buf)
}

// take возвращает следующие n байт или nil при выходе за границу
func (r *Reader) take(n int) []byte {
	r.bitPos = 8
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: смещение %d, нужно %d, доступно %d", ErrOverrun, r.pos, n, len(r.buf)-r.pos)
		r.pos = len(r.buf)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// ReadUint8 читает один байт
func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadInt8() int8 {
	return int8(r.ReadUint8())
}

// ReadBool читает байт и трактует ненулевое значение как true
func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}

func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

func (r *Reader) ReadUint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadInt64() int64 {
	return int64(r.ReadUint64())
}

func (r *Reader) ReadFloat() float32 {
	return math.Float32frombits(r.ReadUint32())
}

// ReadBytes читает n байт. Возвращается копия.
func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadToEnd забирает остаток буфера
func (r *Reader) ReadToEnd() []byte {
	return r.ReadBytes(r.Remaining())
}

// ReadVector3 читает X, Y, Z
func (r *Reader) ReadVector3() vec.Vector3 {
	return vec.Vector3{X: r.ReadFloat(), Y: r.ReadFloat(), Z: r.ReadFloat()}
}

// ReadVector4 читает X, Y, Z, O
func (r *Reader) ReadVector4() vec.Vector4 {
	return vec.Vector4{X: r.ReadFloat(), Y: r.ReadFloat(), Z: r.ReadFloat(), O: r.ReadFloat()}
}

// ReadPackedQuaternion читает int64 и распаковывает вращение
func (r *Reader) ReadPackedQuaternion() vec.Quaternion {
	return vec.UnpackQuaternion(r.ReadInt64())
}

// ReadGUID64 читает несжатый 64-битный GUID
func (r *Reader) ReadGUID64() guid.GUID {
	return guid.New64(r.ReadUint64())
}

// readPacked64 читает байты, отмеченные в маске, на их позиции
func (r *Reader) readPacked64(mask uint8) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			v |= uint64(r.ReadUint8()) << (i * 8)
		}
	}
	return v
}

// ReadPackedGUID64 - классический упакованный GUID: байт-маска и присутствующие байты
func (r *Reader) ReadPackedGUID64() guid.GUID {
	mask := r.ReadUint8()
	return guid.New64(r.readPacked64(mask))
}

// ReadPackedGUID128 - современный упакованный GUID: две маски, затем младшая и старшая половины
func (r *Reader) ReadPackedGUID128() guid.GUID {
	loMask := r.ReadUint8()
	hiMask := r.ReadUint8()
	low := r.readPacked64(loMask)
	high := r.readPacked64(hiMask)
	return guid.New128(low, high)
}

// ReadPackedGUID выбирает кодировку по ширине, заданной ревизией протокола
func (r *Reader) ReadPackedGUID(wide bool) guid.GUID {
	if wide {
		return r.ReadPackedGUID128()
	}
	return r.ReadPackedGUID64()
}

//================ Побитовое чтение =================//

// ReadBit читает один бит, старший бит байта идёт первым
func (r *Reader) ReadBit() bool {
	if r.bitPos >= 8 {
		if r.err != nil {
			return false
		}
		if r.pos >= len(r.buf) {
			r.err = fmt.Errorf("%w: побитовое чтение на смещении %d", ErrOverrun, r.pos)
			return false
		}
		r.curByte = r.buf[r.pos]
		r.pos++
		r.bitPos = 0
	}
	bit := (r.curByte >> (7 - r.bitPos)) & 1
	r.bitPos++
	return bit != 0
}

// ReadBits читает n бит (1..32) в порядке от старшего к младшему
func (r *Reader) ReadBits(n int) uint32 {
	var v uint32
	for i := n - 1; i >= 0; i-- {
		if r.ReadBit() {
			v |= 1 << i
		}
	}
	return v
}

// SkipBits читает и отбрасывает n бит
func (r *Reader) SkipBits(n int) {
	for i := 0; i < n; i++ {
		r.ReadBit()
	}
}

// ResetBitReader выравнивает курсор по байту, отбрасывая остаток текущего байта
func (r *Reader) ResetBitReader() {
	r.bitPos = 8
}
