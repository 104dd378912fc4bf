package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/sniff-parser/internal/revision"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.

type Config struct {
	Parser    ParserConfig                 `yaml:"parser"`
	Opcodes   map[uint32]map[string]uint32 `yaml:"opcodes"`
	EventBus  EventBusConfig               `yaml:"eventbus"`
	Storage   StorageConfig                `yaml:"storage"`
	Server    ServerConfig                 `yaml:"server"`
	Telemetry TelemetryConfig              `yaml:"telemetry"`
	Logging   LoggingConfig                `yaml:"logging"`
}

type ParserConfig struct {
	Build                uint32 `yaml:"build"`
	SaveHealthUpdates    bool   `yaml:"save_health_updates"`
	SaveManaUpdates      bool   `yaml:"save_mana_updates"`
	CreatureTargetChange bool   `yaml:"creature_target_change"`
	CatalogDir           string `yaml:"catalog_dir"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Capacity  int    `yaml:"capacity"`
}

type StorageConfig struct {
	BadgerPath string `yaml:"badger_path"`
	RedisAddr  string `yaml:"redis_addr"`
	MariaDSN   string `yaml:"maria_dsn"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`

	// Components - пороги консоли по подсистемам: decoder, storage, api, eventbus
	Components map[string]string `yaml:"components"`
}

// Default возвращает конфигурацию, с которой парсер работает без файла
func Default() *Config {
	return &Config{
		Parser:    ParserConfig{SaveHealthUpdates: true},
		EventBus:  EventBusConfig{Stream: "SNIFF", Retention: 24, Capacity: 1024},
		Telemetry: TelemetryConfig{ServiceName: "sniff-parser"},
		Logging:   LoggingConfig{Level: "INFO"},
	}
}

// BuildOverride возвращает сборку из конфига, если она задана
func (p *ParserConfig) BuildOverride() (revision.Build, bool) {
	return revision.Build(p.Build), p.Build != 0
}

// OpcodesFor возвращает таблицу опкодов для сборки из конфига
func (c *Config) OpcodesFor(build revision.Build) (map[string]uint32, bool) {
	names, ok := c.Opcodes[uint32(build)]
	return names, ok && len(names) > 0
}

// RetentionDuration - время хранения стрима JetStream
func (e *EventBusConfig) RetentionDuration() time.Duration {
	if e.Retention <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(e.Retention) * time.Hour
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "SNIFF_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "SNIFF_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", берёт путь из ENV SNIFF_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("SNIFF_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}

	return cfg, nil
}
