package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/annel0/sniff-parser/internal/metrics"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FailureHandler получает каждую отброшенную запись
type FailureHandler func(rec Record, err *RecordError)

// Summary - итог прогона одного источника
type Summary struct {
	Records  int
	Decoded  int
	Skipped  int
	Failed   int
	Bytes    int64
	Duration time.Duration
}

// String форматирует итог для консоли
func (s Summary) String() string {
	return fmt.Sprintf("%s записей (%s разобрано, %s пропущено, %s с ошибкой), %s за %s",
		humanize.Comma(int64(s.Records)), humanize.Comma(int64(s.Decoded)),
		humanize.Comma(int64(s.Skipped)), humanize.Comma(int64(s.Failed)),
		humanize.Bytes(uint64(s.Bytes)), s.Duration.Round(time.Millisecond))
}

// Add суммирует итоги нескольких файлов
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Records:  s.Records + other.Records,
		Decoded:  s.Decoded + other.Decoded,
		Skipped:  s.Skipped + other.Skipped,
		Failed:   s.Failed + other.Failed,
		Bytes:    s.Bytes + other.Bytes,
		Duration: s.Duration + other.Duration,
	}
}

// Pipeline прогоняет записи через Handler строго по порядку.
// Ошибка одной записи не останавливает разбор остальных.
type Pipeline struct {
	handler  Handler
	observer observe.Observer
	onFail   FailureHandler
	metrics  *metrics.DecoderMetrics
	tracer   trace.Tracer
	logger   *logging.Logger
	entities func() int
}

// Option настраивает Pipeline
type Option func(*Pipeline)

// WithObserver задаёт наблюдателя значений
func WithObserver(o observe.Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithFailureHandler задаёт обработчик отброшенных записей
func WithFailureHandler(f FailureHandler) Option {
	return func(p *Pipeline) { p.onFail = f }
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *metrics.DecoderMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer задаёт трассировщик вместо глобального
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithLogger задаёт логгер
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithEntityCounter задаёт функцию подсчёта объектов для метрики
func WithEntityCounter(f func() int) Option {
	return func(p *Pipeline) { p.entities = f }
}

// NewPipeline создаёт конвейер
func NewPipeline(h Handler, opts ...Option) *Pipeline {
	p := &Pipeline{
		handler:  h,
		observer: observe.Nop,
		onFail:   func(Record, *RecordError) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("sniff-parser/capture")
	}
	if p.logger == nil {
		p.logger = logging.GetDecoderLogger()
	}
	return p
}

// Run читает src до конца. Отмена контекста проверяется только между записями.
// Ошибка возвращается при отмене или повреждении самого файла.
func (p *Pipeline) Run(ctx context.Context, src Source) (Summary, error) {
	var sum Summary
	started := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(started)
			return sum, err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sum.Duration = time.Since(started)
			return sum, fmt.Errorf("чтение захвата: %w", err)
		}

		sum.Records++
		sum.Bytes += int64(len(rec.Payload))

		switch p.process(ctx, rec) {
		case metrics.ResultDecoded:
			sum.Decoded++
		case metrics.ResultSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}

	if p.entities != nil {
		p.metrics.SetEntities(p.entities())
	}
	sum.Duration = time.Since(started)
	return sum, nil
}

func (p *Pipeline) opcodeName(rec Record) string {
	if n, ok := p.handler.(OpcodeNamer); ok {
		return n.OpcodeName(rec)
	}
	return fmt.Sprintf("0x%04X", rec.Opcode)
}

// process разбирает одну запись и возвращает результат для метрик
func (p *Pipeline) process(ctx context.Context, rec Record) string {
	name := p.opcodeName(rec)
	_, span := p.tracer.Start(ctx, "capture.record", trace.WithAttributes(
		attribute.Int("record.index", rec.Index),
		attribute.String("record.opcode", name),
		attribute.String("record.direction", rec.Direction.String()),
		attribute.Int("record.size", len(rec.Payload)),
	))
	defer span.End()

	start := time.Now()
	err := p.handle(rec)
	took := time.Since(start)

	result := metrics.ResultDecoded
	switch {
	case err == nil:
	case errors.Is(err, ErrSkipped):
		result = metrics.ResultSkipped
	default:
		result = metrics.ResultFailed
		recErr := &RecordError{Index: rec.Index, Opcode: rec.Opcode, Err: err}
		span.RecordError(recErr)
		span.SetStatus(codes.Error, recErr.Error())
		p.logger.LogRecordError(rec.Index, name, err, rec.Payload)
		p.onFail(rec, recErr)
	}

	span.SetAttributes(attribute.String("record.result", result))
	p.metrics.ObserveRecord(name, result, len(rec.Payload), took)
	return result
}

// handle изолирует панику обработчика в пределах записи
func (p *Pipeline) handle(rec Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при разборе: %v", r)
		}
	}()
	return p.handler.Handle(rec, p.observer)
}

// MemoryReport возвращает строку с памятью процесса для итоговой сводки
func MemoryReport() string {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return "память: n/a"
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return "память: n/a"
	}
	return fmt.Sprintf("память: RSS %s", humanize.Bytes(mem.RSS))
}
