package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Component - подсистема парсера со своим логгером и файлом логов
type Component string

const (
	ComponentDecoder  Component = "decoder"  // разбор записей захвата
	ComponentStorage  Component = "storage"  // снимки и репозитории спавнов
	ComponentAPI      Component = "api"      // REST и WebSocket
	ComponentEventBus Component = "eventbus" // шина событий хранилища
)

// LoggerManager хранит логгеры подсистем и их пороги
type LoggerManager struct {
	mu        sync.RWMutex
	loggers   map[Component]*Logger
	overrides map[Component]LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает общий менеджер процесса
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newManager()
	})
	return globalManager
}

func newManager() *LoggerManager {
	return &LoggerManager{
		loggers:   make(map[Component]*Logger),
		overrides: make(map[Component]LogLevel),
	}
}

// ApplyLevels задаёт пороги подсистем из секции logging.components.
// Уже созданные логгеры получают новый порог консоли сразу.
func (lm *LoggerManager) ApplyLevels(levels map[string]string) error {
	parsed := make(map[Component]LogLevel, len(levels))
	for name, raw := range levels {
		level, err := ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("logging.components.%s: %w", name, err)
		}
		parsed[Component(name)] = level
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	for c, level := range parsed {
		lm.overrides[c] = level
		if l, ok := lm.loggers[c]; ok {
			l.minConsoleLevel = level
		}
	}
	return nil
}

// Logger возвращает логгер подсистемы, создавая его при первом обращении
func (lm *LoggerManager) Logger(c Component) (*Logger, error) {
	lm.mu.RLock()
	l, ok := lm.loggers[c]
	lm.mu.RUnlock()
	if ok {
		return l, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[c]; ok {
		return l, nil
	}

	l, err := NewLogger(string(c))
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", c, err)
	}
	if level, ok := lm.overrides[c]; ok {
		l.minConsoleLevel = level
	}
	lm.loggers[c] = l
	return l, nil
}

// MustLogger возвращает логгер подсистемы. Если файл логов не открылся,
// подсистема пишет только в консоль.
func (lm *LoggerManager) MustLogger(c Component) *Logger {
	l, err := lm.Logger(c)
	if err == nil {
		return l
	}
	defaultLogger.Warn("⚠️ %v, пишу только в консоль", err)

	current.mu.RLock()
	out, level := current.out, current.level
	current.mu.RUnlock()

	lm.mu.RLock()
	if o, ok := lm.overrides[c]; ok {
		level = o
	}
	lm.mu.RUnlock()
	return newConsoleLogger(string(c), out, level)
}

// CloseAll закрывает файлы всех подсистем. Вызывается один раз перед выходом.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var firstErr error
	for c, l := range lm.loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("закрытие логгера %s: %w", c, err)
		}
	}
	lm.loggers = make(map[Component]*Logger)
	return firstErr
}

// Components возвращает подсистемы, уже получившие логгер, по алфавиту
func (lm *LoggerManager) Components() []Component {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	out := make([]Component, 0, len(lm.loggers))
	for c := range lm.loggers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func GetDecoderLogger() *Logger {
	return GetLoggerManager().MustLogger(ComponentDecoder)
}

func GetStorageLogger() *Logger {
	return GetLoggerManager().MustLogger(ComponentStorage)
}

func GetAPILogger() *Logger {
	return GetLoggerManager().MustLogger(ComponentAPI)
}

func GetEventBusLogger() *Logger {
	return GetLoggerManager().MustLogger(ComponentEventBus)
}
