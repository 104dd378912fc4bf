package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/annel0/sniff-parser/internal/logging"
	nats "github.com/nats-io/nats.go"
)

// subjectRoot - события хранилища публикуются в sniff.<захват>.<EventType>
const subjectRoot = "sniff"

// liveToken - токен источника для событий без имени файла захвата
const liveToken = "live"

// Заголовки сообщения, по которым потребитель фильтрует без разбора JSON
const (
	headerSource      = "Sniff-Source"
	headerCorrelation = "Sniff-Correlation"
)

// captureToken превращает имя файла захвата в один токен subject.
// Точки и символы подстановки NATS заменяются подчёркиванием.
func captureToken(source string) string {
	switch source {
	case "":
		return liveToken
	case "*":
		return source
	}
	base := filepath.Base(source)
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, base)
}

// Subject возвращает subject события. "*" на месте источника или типа
// подставляется как есть и даёт шаблон подписки.
func Subject(source, eventType string) string {
	return subjectRoot + "." + captureToken(source) + "." + eventType
}

// filterSubject сужает подписку на стороне сервера, если фильтр задаёт
// ровно один тип или один захват. Остальное проверяет matchFilter.
func filterSubject(f Filter) string {
	source, eventType := "*", "*"
	if len(f.Sources) == 1 {
		source = f.Sources[0]
	}
	if len(f.Types) == 1 {
		eventType = f.Types[0]
	}
	if source == "*" && eventType == "*" {
		return subjectRoot + ".>"
	}
	return Subject(source, eventType)
}

// JetStreamBus - шина событий захвата поверх NATS JetStream.
// Стрим хранит события прогонов в течение retention, повторная публикация
// того же захвата отбрасывается сервером по Nats-Msg-Id.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его нет
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "SNIFF"
	}

	nc, err := nats.Connect(url, nats.Name("sniff-parser"))
	if err != nil {
		return nil, fmt.Errorf("подключение к NATS %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err = js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       stream,
			Subjects:   []string{subjectRoot + ".>"},
			Retention:  nats.LimitsPolicy,
			MaxAge:     retention,
			Storage:    nats.FileStorage,
			Duplicates: 2 * time.Minute,
		})
		if err != nil {
			nc.Drain()
			return nil, fmt.Errorf("создание стрима %s: %w", stream, err)
		}
	}

	logging.GetEventBusLogger().Info("📨 JetStream подключён: %s, стрим %s, хранение %s", url, stream, retention)
	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

// Publish отправляет конверт в sniff.<захват>.<тип>
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}

	msg := nats.NewMsg(Subject(ev.Source, ev.EventType))
	msg.Data = data
	msg.Header.Set(headerSource, ev.Source)
	if ev.CorrelationID != "" {
		msg.Header.Set(headerCorrelation, ev.CorrelationID)
	}

	if _, err = jb.js.PublishMsg(msg, nats.Context(ctx), nats.MsgId(ev.ID)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("публикация %s: %w", ev.EventType, err)
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe читает стрим с начала через эфемерного потребителя.
// Потребитель удаляется сервером после Unsubscribe.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	natSub, err := jb.js.Subscribe(filterSubject(f), func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logging.GetEventBusLogger().Warn("⚠️ Сообщение %s не разобрано: %v", msg.Subject, err)
		} else if matchFilter(&ev, f) {
			h(ctx, &ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}, nats.BindStream(jb.stream), nats.DeliverAll(), nats.ManualAck(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("подписка на %s: %w", filterSubject(f), err)
	}

	return &jetSub{natSub}, nil
}

type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает счётчики шины. Очередь держит сам JetStream.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
	}
}

// Close дожидается отправки буфера клиента и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
