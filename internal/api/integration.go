package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/annel0/sniff-parser/internal/storage"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

// ServerIntegration управляет жизненным циклом REST API рядом с разбором
type ServerIntegration struct {
	restServer *RestServer
	spawns     storage.SpawnRepo
	httpServer *http.Server
	listener   net.Listener
	ctx        context.Context
	cancel     context.CancelFunc
	log        *logging.Logger
}

// IntegrationConfig содержит конфигурацию для интеграции
type IntegrationConfig struct {
	RestPort string
	Store    *world.Store

	// Spawns закрывается при остановке, может быть nil
	Spawns storage.SpawnRepo

	Registry *prometheus.Registry
}

// NewServerIntegration создает интеграцию REST API с хранилищем объектов
func NewServerIntegration(config IntegrationConfig) (*ServerIntegration, error) {
	if config.Store == nil {
		return nil, errors.New("не задано хранилище объектов")
	}

	cfg := Config{
		Port:   config.RestPort,
		Store:  config.Store,
		Spawns: config.Spawns,
	}
	if config.Registry != nil {
		cfg.Registerer = config.Registry
		cfg.Gatherer = config.Registry
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ServerIntegration{
		restServer: NewRestServer(cfg),
		spawns:     config.Spawns,
		ctx:        ctx,
		cancel:     cancel,
		log:        logging.GetAPILogger(),
	}, nil
}

// Start начинает слушать порт и обслуживать запросы в отдельной горутине
func (si *ServerIntegration) Start() error {
	ln, err := net.Listen("tcp", si.restServer.port)
	if err != nil {
		return fmt.Errorf("не удалось открыть %s: %w", si.restServer.port, err)
	}
	si.listener = ln

	si.httpServer = &http.Server{
		Handler:           si.restServer.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := si.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			si.log.Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	si.log.Info("✅ REST API сервер запущен на http://%s", ln.Addr())
	si.log.Info("📋 Доступные эндпоинты:")
	si.log.Info("   GET  /health")
	si.log.Info("   GET  /metrics")
	si.log.Info("   GET  /api/entities?kind=")
	si.log.Info("   GET  /api/entities/:guid")
	si.log.Info("   GET  /api/entities/:guid/changes")
	si.log.Info("   GET  /api/vehicle-accessories")
	si.log.Info("   GET  /api/stats")
	if si.spawns != nil {
		si.log.Info("   GET  /api/spawns/:guid")
	}
	return nil
}

// Addr возвращает фактический адрес после Start
func (si *ServerIntegration) Addr() string {
	if si.listener == nil {
		return ""
	}
	return si.listener.Addr().String()
}

// Stop останавливает HTTP сервер и закрывает репозиторий точек появления
func (si *ServerIntegration) Stop() error {
	si.log.Info("🛑 Остановка REST API сервера...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var firstErr error
	if si.httpServer != nil {
		if err := si.httpServer.Shutdown(ctx); err != nil {
			si.log.Error("❌ Ошибка при остановке HTTP сервера: %v", err)
			firstErr = err
		}
	}

	if si.spawns != nil {
		if err := si.spawns.Close(); err != nil {
			si.log.Error("❌ Ошибка при закрытии репозитория: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	si.cancel()
	si.log.Info("✅ REST API сервер остановлен")
	return firstErr
}

// GetRestServer возвращает REST сервер
func (si *ServerIntegration) GetRestServer() *RestServer {
	return si.restServer
}

// IsHealthy сообщает, что интеграция не остановлена
func (si *ServerIntegration) IsHealthy() bool {
	select {
	case <-si.ctx.Done():
		return false
	default:
		return true
	}
}
