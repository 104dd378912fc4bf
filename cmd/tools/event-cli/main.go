package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/sniff-parser/internal/eventbus"
	"github.com/annel0/sniff-parser/internal/world"
)

const (
	defaultServerAddr = "nats://localhost:4222"
	timeFormat        = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "NATS server address")
		stream     = flag.String("stream", "SNIFF", "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats, types")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Capture file filter (comma-separated)")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		window     = flag.Duration("for", 5*time.Second, "How long stats collects events")
	)
	flag.Parse()

	if *command == "types" {
		showTypes(os.Stdout)
		return
	}

	bus, err := eventbus.NewJetStreamBus(*serverAddr, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to server: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, bus, filter, &TailOptions{Limit: *limit, Follow: *follow}); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(ctx, bus, filter, *window); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, types")
		os.Exit(1)
	}
}

type TailOptions struct {
	Limit  int
	Follow bool
}

// tailEvents выводит события по мере поступления
func tailEvents(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if !opts.Follow && count >= opts.Limit {
			return
		}
		printEvent(os.Stdout, ev)
		count++
		if !opts.Follow && count >= opts.Limit {
			cancel()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типам за окно window
func showStats(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, window time.Duration) error {
	fmt.Printf("📊 Event statistics (%s)\n", window)

	counter := newTypeCounter()
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		counter.add(ev.EventType)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %v", err)
	}

	select {
	case <-time.After(window):
	case <-ctx.Done():
	}
	sub.Unsubscribe()

	counter.print(os.Stdout)
	return nil
}

// typeCounter - счётчик событий по типу
type typeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newTypeCounter() *typeCounter {
	return &typeCounter{counts: make(map[string]int)}
}

func (c *typeCounter) add(eventType string) {
	c.mu.Lock()
	c.counts[eventType]++
	c.mu.Unlock()
}

func (c *typeCounter) print(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	types := make([]string, 0, len(c.counts))
	total := 0
	for t, n := range c.counts {
		types = append(types, t)
		total += n
	}
	sort.Strings(types)

	fmt.Fprintf(w, "Total events: %d\n", total)
	fmt.Fprintln(w, "\nBy event type:")
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d events\n", t, c.counts[t])
	}
}

// showTypes выводит типы событий, которые публикует парсер
func showTypes(w io.Writer) {
	fmt.Fprintln(w, "📋 Available event types")
	for t := world.EventEntityCreated; t <= world.EventEntityMoved; t++ {
		fmt.Fprintf(w, "Type: %s\n", t)
		fmt.Fprintf(w, "  Subject: %s\n", eventbus.Subject("*", t.String()))
	}
}

// printEvent выводит событие в читаемом формате
func printEvent(w io.Writer, ev *eventbus.Envelope) {
	fmt.Fprintf(w, "[%s] %s [%s] %s\n",
		ev.Timestamp.Format(timeFormat),
		ev.Source,
		ev.EventType,
		ev.ID)

	p, err := eventbus.DecodePayload(ev)
	if err != nil {
		fmt.Fprintf(w, "  Payload: %v\n", err)
		return
	}

	switch {
	case p.Entity != nil:
		pos := p.Entity.Movement.Position
		fmt.Fprintf(w, "  GUID: %s Kind: %s Map: %d Pos: (%.2f, %.2f, %.2f)\n",
			p.GUID, p.Entity.Kind, p.Entity.MapID, pos.X, pos.Y, pos.Z)
	case p.Target != nil:
		fmt.Fprintf(w, "  GUID: %s Target: %s\n", p.GUID, p.Target.Target)
	case p.Accessory != nil:
		fmt.Fprintf(w, "  Vehicle: %d Accessory: %d Seat: %d\n",
			p.Accessory.Entry, p.Accessory.AccessoryEntry, p.Accessory.SeatID)
	default:
		fmt.Fprintf(w, "  GUID: %s\n", p.GUID)
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
