package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/sniff-parser/internal/bitstream"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/klauspost/compress/zlib"
)

// ErrInflateSize - распакованный размер не совпал с заявленным
var ErrInflateSize = errors.New("размер после распаковки не совпадает")

// maxInflated ограничивает заявленный размер, чтобы битый заголовок
// не приводил к огромной аллокации
const maxInflated = 64 << 20

// Inflate распаковывает zlib-поток ожидаемого размера
func Inflate(data []byte, size int) ([]byte, error) {
	if size < 0 || size > maxInflated {
		return nil, fmt.Errorf("%w: заявлено %d", ErrInflateSize, size)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()

	out := make([]byte, 0, size)
	buf := bytes.NewBuffer(out)
	// +1, чтобы заметить лишние байты
	n, err := io.Copy(buf, io.LimitReader(zr, int64(size)+1))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if n != int64(size) {
		return nil, fmt.Errorf("%w: ожидалось %d, получено %d", ErrInflateSize, size, n)
	}
	return buf.Bytes(), nil
}

// CompressedUpdateObject разбирает SMSG_COMPRESSED_UPDATE_OBJECT:
// int32 размера, затем zlib-поток с телом SMSG_UPDATE_OBJECT
func (h *Handler) CompressedUpdateObject(r *bitstream.Reader, ctx world.Context, o observe.Observer) error {
	size := r.ReadInt32()
	packed := r.ReadToEnd()
	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", OpCompressedUpdateObject, err)
	}
	o.Value("Decompressed Size", size)

	data, err := Inflate(packed, int(size))
	if err != nil {
		return fmt.Errorf("%s: %w", OpCompressedUpdateObject, err)
	}
	return h.UpdateObject(bitstream.NewReader(data), ctx, o)
}
