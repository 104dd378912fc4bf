// Package capture читает записи захвата трафика и прогоняет их
// через обработчик пакетов с изоляцией ошибок по записям.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/revision"
)

// Direction - направление пакета
type Direction uint8

const (
	ServerToClient Direction = iota
	ClientToServer
)

func (d Direction) String() string {
	if d == ClientToServer {
		return "CMSG"
	}
	return "SMSG"
}

// Record - одна запись захвата
type Record struct {
	Index     int
	Build     revision.Build
	Direction Direction
	Opcode    uint32
	Time      time.Time
	Payload   []byte
}

// Source выдаёт записи по порядку; конец потока - io.EOF
type Source interface {
	Next() (Record, error)
}

// Handler разбирает одну запись целиком
type Handler interface {
	Handle(rec Record, o observe.Observer) error
}

// OpcodeNamer даёт имя опкода для логов и метрик
type OpcodeNamer interface {
	OpcodeName(rec Record) string
}

// ErrSkipped возвращается обработчиком для опкодов, которые он не разбирает
var ErrSkipped = errors.New("опкод не обрабатывается")

// RecordError - ошибка разбора записи. Запись отбрасывается, разбор продолжается.
type RecordError struct {
	Index  int
	Opcode uint32
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("запись #%d (0x%04X): %v", e.Index, e.Opcode, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// SliceSource - источник из готового списка записей
type SliceSource struct {
	records []Record
	pos     int
}

// NewSliceSource создаёт источник; Index проставляется по порядку
func NewSliceSource(records ...Record) *SliceSource {
	for i := range records {
		records[i].Index = i
	}
	return &SliceSource{records: records}
}

// Next возвращает следующую запись
func (s *SliceSource) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return Record{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}
