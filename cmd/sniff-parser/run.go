package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/annel0/sniff-parser/internal/api"
	"github.com/annel0/sniff-parser/internal/capture"
	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/config"
	"github.com/annel0/sniff-parser/internal/eventbus"
	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/annel0/sniff-parser/internal/metrics"
	"github.com/annel0/sniff-parser/internal/observability"
	"github.com/annel0/sniff-parser/internal/observe"
	"github.com/annel0/sniff-parser/internal/protocol"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/storage"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type runOptions struct {
	DumpPath string
	Serve    bool
	Out      io.Writer // итоговая сводка, по умолчанию stdout
}

// session держит всё, что живёт один прогон CLI
type session struct {
	cfg      *config.Config
	build    revision.Build
	store    *world.Store
	handler  *protocol.Handler
	registry *prometheus.Registry
	metrics  *metrics.DecoderMetrics
	bus      eventbus.EventBus
	bridge   *eventbus.StoreBridge
	exporter *eventbus.MetricsExporter
	spawns   storage.SpawnRepo
	recorder *storage.SpawnRecorder
	snapshot *storage.SnapshotStorage
	failures map[string]int
}

func run(ctx context.Context, cfg *config.Config, files []string, opts runOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	build, err := resolveBuild(cfg, files[0])
	if err != nil {
		return err
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Build:       uint32(build),
		})
		if err != nil {
			return fmt.Errorf("телеметрия: %w", err)
		}
		defer shutdown(context.Background())
	}

	s, err := newSession(ctx, cfg, build, opts.Serve)
	if err != nil {
		return err
	}
	defer s.close()

	var dump *observe.TextWriter
	if opts.DumpPath != "" {
		f, err := os.Create(opts.DumpPath)
		if err != nil {
			return fmt.Errorf("файл вывода: %w", err)
		}
		buf := bufio.NewWriter(f)
		defer func() {
			buf.Flush()
			f.Close()
		}()
		dump = observe.NewTextWriter(buf)
	}

	total, err := s.parse(ctx, files, dump)
	if err != nil {
		return err
	}
	if dump != nil {
		if err := dump.Err(); err != nil {
			logging.Warn("⚠️ Текстовый вывод неполон: %v", err)
		}
	}

	s.flush()
	if err := s.saveSnapshot(); err != nil {
		return err
	}
	s.report(opts.Out, total)

	if opts.Serve && ctx.Err() == nil {
		return s.serve(ctx)
	}
	return nil
}

// resolveBuild берёт сборку из конфига или из заголовка первого файла
func resolveBuild(cfg *config.Config, first string) (revision.Build, error) {
	if build, ok := cfg.Parser.BuildOverride(); ok {
		return build, nil
	}
	src, err := capture.OpenPKT(first)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return src.Header.Build, nil
}

func loadCatalogs(dir string) (*catalog.Set, error) {
	if dir == "" {
		return catalog.Embedded()
	}
	return catalog.LoadDir(dir)
}

func loadOpcodes(cfg *config.Config, build revision.Build) (*protocol.Opcodes, error) {
	names, ok := cfg.OpcodesFor(build)
	if !ok {
		names, ok = protocol.DefaultOpcodes(build)
	}
	if !ok {
		return nil, fmt.Errorf("нет таблицы опкодов для сборки %d: задайте opcodes в конфигурации", build)
	}
	return protocol.NewOpcodes(names)
}

func newSession(ctx context.Context, cfg *config.Config, build revision.Build, serve bool) (*session, error) {
	set, err := loadCatalogs(cfg.Parser.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("каталоги полей: %w", err)
	}
	cat := set.For(build)
	if cat == nil {
		return nil, fmt.Errorf("нет каталога полей для сборки %d", build)
	}

	ops, err := loadOpcodes(cfg, build)
	if err != nil {
		return nil, err
	}

	store := world.NewStore(cat, build, world.Options{
		SaveHealthUpdates:    cfg.Parser.SaveHealthUpdates,
		SaveManaUpdates:      cfg.Parser.SaveManaUpdates,
		CreatureTargetChange: cfg.Parser.CreatureTargetChange,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &session{
		cfg:      cfg,
		build:    build,
		store:    store,
		handler:  protocol.NewHandler(store, ops, nil),
		registry: reg,
		metrics:  metrics.NewDecoderMetrics(reg),
		failures: make(map[string]int),
	}

	if err := s.openBus(ctx); err != nil {
		s.close()
		return nil, err
	}
	if err := s.openStorage(ctx, serve); err != nil {
		s.close()
		return nil, err
	}

	logging.Info("🧩 Сборка %d: каталог %d, опкодов %d", build, cat.Build, ops.Len())
	return s, nil
}

// openBus поднимает шину и мост хранилища. Без адреса NATS шина в памяти.
func (s *session) openBus(ctx context.Context) error {
	if s.cfg.EventBus.URL != "" {
		jb, err := eventbus.NewJetStreamBus(s.cfg.EventBus.URL, s.cfg.EventBus.Stream, s.cfg.EventBus.RetentionDuration())
		if err != nil {
			return fmt.Errorf("шина событий: %w", err)
		}
		s.bus = jb
	} else {
		s.bus = eventbus.NewMemoryBus(s.cfg.EventBus.Capacity)
	}

	// Updated и Moved несут полный снимок объекта и повторяются на каждый пакет
	s.bridge = eventbus.NewStoreBridge(s.bus, "", eventbus.WithSkip(world.EventEntityUpdated, world.EventEntityMoved))
	s.store.AddListener(s.bridge)

	if _, err := eventbus.StartLoggingListener(s.bus); err != nil {
		return err
	}

	s.exporter = eventbus.NewMetricsExporter(s.bus, s.registry)
	if s.cfg.Server.MetricsPort > 0 || os.Getenv("SNIFF_METRICS_PORT") != "" {
		s.exporter.StartHTTP(fmt.Sprintf(":%d", s.cfg.Server.GetMetricsPort()), s.registry)
	} else {
		s.exporter.Start(time.Second)
	}
	return nil
}

// openStorage подключает репозиторий точек появления и снимок Badger
func (s *session) openStorage(ctx context.Context, serve bool) error {
	st := s.cfg.Storage
	switch {
	case st.RedisAddr != "":
		rc := storage.DefaultRedisConfig()
		rc.Addr = st.RedisAddr
		repo, err := storage.NewRedisSpawnRepo(ctx, rc)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		s.spawns = repo
	case st.MariaDSN != "":
		repo, err := storage.NewMariaSpawnRepo(ctx, st.MariaDSN)
		if err != nil {
			return fmt.Errorf("mariadb: %w", err)
		}
		s.spawns = repo
	case serve:
		s.spawns = storage.NewMemorySpawnRepo()
	}

	if s.spawns != nil {
		s.recorder = storage.NewSpawnRecorder(s.spawns, s.build)
		if _, err := s.recorder.Attach(ctx, s.bus); err != nil {
			return fmt.Errorf("подписка на точки появления: %w", err)
		}
	}

	if st.BadgerPath != "" {
		snap, err := storage.NewSnapshotStorage(st.BadgerPath)
		if err != nil {
			return err
		}
		s.snapshot = snap
		restored, err := snap.RestoreInto(s.store)
		if err != nil {
			return fmt.Errorf("восстановление снимка: %w", err)
		}
		if restored > 0 {
			logging.Info("♻️ Восстановлено объектов из снимка: %s", humanize.Comma(int64(restored)))
		}
	}
	return nil
}

// dumpHandler пишет заголовок записи перед её значениями
type dumpHandler struct {
	*protocol.Handler
	out *observe.TextWriter
}

func (d dumpHandler) Handle(rec capture.Record, o observe.Observer) error {
	d.out.Line("%s: %s (0x%04X) Length: %d Time: %s Number: %d",
		rec.Direction, d.OpcodeName(rec), rec.Opcode, len(rec.Payload),
		rec.Time.Format("01/02/2006 15:04:05.000"), rec.Index)
	err := d.Handler.Handle(rec, o)
	if err != nil && !errors.Is(err, capture.ErrSkipped) {
		d.out.Line("*** Ошибка разбора: %v", err)
	}
	d.out.Line("")
	return err
}

func (s *session) parse(ctx context.Context, files []string, dump *observe.TextWriter) (capture.Summary, error) {
	var h capture.Handler = s.handler
	opts := []capture.Option{
		capture.WithMetrics(s.metrics),
		capture.WithEntityCounter(s.store.Len),
		capture.WithFailureHandler(func(rec capture.Record, _ *capture.RecordError) {
			s.failures[s.handler.OpcodeName(rec)]++
		}),
	}
	if dump != nil {
		h = dumpHandler{Handler: s.handler, out: dump}
		opts = append(opts, capture.WithObserver(dump))
	}
	pipeline := capture.NewPipeline(h, opts...)

	_, override := s.cfg.Parser.BuildOverride()
	var total capture.Summary
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		name := filepath.Base(path)

		src, err := capture.OpenPKT(path)
		if err != nil {
			logging.Error("❌ %s: %v", name, err)
			continue
		}
		if !override && src.Header.Build != s.build {
			logging.Warn("⚠️ %s: сборка %d, ожидалась %d, файл пропущен", name, src.Header.Build, s.build)
			src.Close()
			continue
		}

		s.bridge.SetSource(name)
		sum, err := pipeline.Run(ctx, src)
		src.Close()
		total = total.Add(sum)
		logging.Info("📄 %s: %s", name, sum)

		switch {
		case errors.Is(err, context.Canceled):
			logging.Warn("⏹ Разбор прерван на %s", name)
			return total, nil
		case err != nil:
			logging.Error("❌ %s: %v", name, err)
		}
	}
	return total, nil
}

// flush дожидается доставки событий подписчикам и останавливает экспортёр
func (s *session) flush() {
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			logging.Warn("⚠️ Закрытие шины: %v", err)
		}
		s.bus = nil
	}
	if s.exporter != nil {
		s.exporter.Stop()
	}
}

func (s *session) saveSnapshot() error {
	if s.snapshot == nil {
		return nil
	}
	sum, err := s.snapshot.SaveStore(s.store)
	if err != nil {
		return fmt.Errorf("сохранение снимка: %w", err)
	}
	logging.Info("💾 Снимок сохранён: объектов %s, журналов %s, пассажиров %s",
		humanize.Comma(int64(sum.Entities)), humanize.Comma(int64(sum.Histories)), humanize.Comma(int64(sum.Accessories)))
	return nil
}

func (s *session) report(out io.Writer, total capture.Summary) {
	stats := s.store.Stats()
	fmt.Fprintf(out, "📊 %s\n", total)
	fmt.Fprintf(out, "🌍 Объектов: %s (уничтожено %s), изменений: %s, пассажиров: %s, без создания: %s\n",
		humanize.Comma(int64(stats.Entities)), humanize.Comma(int64(stats.Destroyed)),
		humanize.Comma(int64(stats.Changes)), humanize.Comma(int64(stats.Accessories)),
		humanize.Comma(int64(stats.Untracked)))

	kinds := make([]string, 0, len(stats.ByKind))
	for k := range stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "   %-14s %s\n", k, humanize.Comma(int64(stats.ByKind[k])))
	}

	if len(s.failures) > 0 {
		names := make([]string, 0, len(s.failures))
		for name := range s.failures {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(out, "❌ Ошибки по опкодам:")
		for _, name := range names {
			fmt.Fprintf(out, "   %s: %d\n", name, s.failures[name])
		}
	}

	if s.recorder != nil {
		saved, failed := s.recorder.Stats()
		fmt.Fprintf(out, "📍 Точек появления: %s сохранено, %d с ошибкой\n", humanize.Comma(saved), failed)
	}
	fmt.Fprintf(out, "🧠 %s\n", capture.MemoryReport())
}

// serve обслуживает REST API до отмены контекста
func (s *session) serve(ctx context.Context) error {
	si, err := api.NewServerIntegration(api.IntegrationConfig{
		RestPort: fmt.Sprintf(":%d", s.cfg.Server.GetRESTPort()),
		Store:    s.store,
		Spawns:   s.spawns,
		Registry: s.registry,
	})
	if err != nil {
		return err
	}
	if err := si.Start(); err != nil {
		return err
	}
	s.spawns = nil // закрывается интеграцией

	<-ctx.Done()
	return si.Stop()
}

func (s *session) close() {
	s.flush()
	if s.spawns != nil {
		if err := s.spawns.Close(); err != nil {
			logging.Warn("⚠️ Закрытие репозитория точек: %v", err)
		}
	}
	if s.snapshot != nil {
		if err := s.snapshot.Close(); err != nil {
			logging.Warn("⚠️ Закрытие снимка: %v", err)
		}
	}
}
