package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/sniff-parser/internal/config"
	"github.com/annel0/sniff-parser/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML конфигурация (по умолчанию SNIFF_CONFIG)")
		build      = flag.Uint("build", 0, "сборка клиента вместо указанной в заголовке файла")
		dumpPath   = flag.String("dump", "", "файл для текстового вывода разобранных значений")
		serve      = flag.Bool("serve", false, "после разбора обслуживать REST API до сигнала")
		natsURL    = flag.String("nats", "", "адрес NATS JetStream для публикации событий")
		badgerPath = flag.String("badger", "", "каталог Badger для снимка объектов")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Использование: %s [флаги] файл.pkt...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	applyFlags(cfg, flagOverrides{
		Build:  uint32(*build),
		NATS:   *natsURL,
		Badger: *badgerPath,
	})

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logging.Configure(level, cfg.Logging.Dir)
	if err := logging.GetLoggerManager().ApplyLevels(cfg.Logging.Components); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("🔍 Запуск sniff-parser: файлов %d", len(files))

	if err := run(ctx, cfg, files, runOptions{DumpPath: *dumpPath, Serve: *serve}); err != nil {
		logging.Error("❌ %v", err)
		stop()
		os.Exit(1)
	}
}

// flagOverrides - значения флагов, перекрывающие конфигурацию
type flagOverrides struct {
	Build  uint32
	NATS   string
	Badger string
}

func applyFlags(cfg *config.Config, f flagOverrides) {
	if f.Build != 0 {
		cfg.Parser.Build = f.Build
	}
	if f.NATS != "" {
		cfg.EventBus.URL = f.NATS
	}
	if f.Badger != "" {
		cfg.Storage.BadgerPath = f.Badger
	}
}
