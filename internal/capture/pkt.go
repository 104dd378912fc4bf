package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/annel0/sniff-parser/internal/revision"
)

// Версия формата PKT, которую умеет читать PKTReader
const PKTVersion31 = 0x0301

const (
	directionSMSG = 0x47534D53 // "SMSG"
	directionCMSG = 0x47534D43 // "CMSG"
	maxPayload    = 64 << 20
)

var (
	ErrBadMagic           = errors.New("файл не является захватом PKT")
	ErrUnsupportedVersion = errors.New("неподдерживаемая версия PKT")
)

// PKTHeader - заголовок файла захвата
type PKTHeader struct {
	Version   uint16
	SnifferID uint8
	Build     revision.Build
	Locale    string
	StartTime time.Time
	StartTick uint32
}

// PKTReader читает записи из файла PKT 3.1
type PKTReader struct {
	Header PKTHeader

	r      *bufio.Reader
	closer io.Closer
	index  int
}

// OpenPKT открывает файл захвата и читает заголовок
func OpenPKT(path string) (*PKTReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p, err := NewPKTReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.closer = f
	return p, nil
}

// NewPKTReader читает заголовок из r
func NewPKTReader(r io.Reader) (*PKTReader, error) {
	p := &PKTReader{r: bufio.NewReaderSize(r, 64<<10)}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PKTReader) readHeader() error {
	var magic [3]byte
	if _, err := io.ReadFull(p.r, magic[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if string(magic[:]) != "PKT" {
		return ErrBadMagic
	}

	var fixed struct {
		Version    uint16
		SnifferID  uint8
		Build      uint32
		Locale     [4]byte
		SessionKey [40]byte
		StartTime  uint32
		StartTick  uint32
		OptLength  uint32
	}
	if err := binary.Read(p.r, binary.LittleEndian, &fixed.Version); err != nil {
		return fmt.Errorf("заголовок PKT: %w", err)
	}
	if fixed.Version != PKTVersion31 {
		return fmt.Errorf("%w: 0x%04X", ErrUnsupportedVersion, fixed.Version)
	}
	if err := binary.Read(p.r, binary.LittleEndian, &fixed.SnifferID); err != nil {
		return fmt.Errorf("заголовок PKT: %w", err)
	}
	for _, v := range []any{&fixed.Build, &fixed.Locale, &fixed.SessionKey, &fixed.StartTime, &fixed.StartTick, &fixed.OptLength} {
		if err := binary.Read(p.r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("заголовок PKT: %w", err)
		}
	}
	if _, err := p.r.Discard(int(fixed.OptLength)); err != nil {
		return fmt.Errorf("заголовок PKT: %w", err)
	}

	p.Header = PKTHeader{
		Version:   fixed.Version,
		SnifferID: fixed.SnifferID,
		Build:     revision.Build(fixed.Build),
		Locale:    string(fixed.Locale[:]),
		StartTime: time.Unix(int64(fixed.StartTime), 0).UTC(),
		StartTick: fixed.StartTick,
	}
	return nil
}

// Next читает следующую запись. В конце файла возвращает io.EOF.
func (p *PKTReader) Next() (Record, error) {
	var head struct {
		Direction  uint32
		Connection uint32
		Tick       uint32
		OptLength  uint32
	}
	if err := binary.Read(p.r, binary.LittleEndian, &head); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("запись #%d: %w", p.index, err)
	}
	if _, err := p.r.Discard(int(head.OptLength)); err != nil {
		return Record{}, fmt.Errorf("запись #%d: %w", p.index, err)
	}

	var body struct {
		Length uint32
		Opcode uint32
	}
	if err := binary.Read(p.r, binary.LittleEndian, &body); err != nil {
		return Record{}, fmt.Errorf("запись #%d: %w", p.index, io.ErrUnexpectedEOF)
	}
	if body.Length < 4 || body.Length > maxPayload {
		return Record{}, fmt.Errorf("запись #%d: некорректная длина %d", p.index, body.Length)
	}

	payload := make([]byte, body.Length-4)
	if _, err := io.ReadFull(p.r, payload); err != nil {
		return Record{}, fmt.Errorf("запись #%d: %w", p.index, io.ErrUnexpectedEOF)
	}

	dir := ServerToClient
	switch head.Direction {
	case directionSMSG:
	case directionCMSG:
		dir = ClientToServer
	default:
		return Record{}, fmt.Errorf("запись #%d: неизвестное направление 0x%08X", p.index, head.Direction)
	}

	rec := Record{
		Index:     p.index,
		Build:     p.Header.Build,
		Direction: dir,
		Opcode:    body.Opcode,
		Time:      p.Header.StartTime.Add(time.Duration(int64(head.Tick)-int64(p.Header.StartTick)) * time.Millisecond),
		Payload:   payload,
	}
	p.index++
	return rec, nil
}

// Close закрывает файл, если он был открыт через OpenPKT
func (p *PKTReader) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
