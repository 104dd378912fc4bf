package api

import (
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics содержит метрики процесса для /api/stats
type ServerMetrics struct {
	StartTime time.Time
}

// NewServerMetrics создает новый экземпляр метрик
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		StartTime: time.Now(),
	}
}

// GetUptime возвращает время работы сервера
func (sm *ServerMetrics) GetUptime() string {
	return time.Since(sm.StartTime).Round(time.Second).String()
}

// GetMemoryUsage возвращает занятую кучу в MB
func (sm *ServerMetrics) GetMemoryUsage() (float64, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024, nil
}

// GetRSS возвращает резидентную память процесса в читаемом виде
func (sm *ServerMetrics) GetRSS() string {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return "n/a"
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return "n/a"
	}
	return humanize.Bytes(mem.RSS)
}

// GetCPUUsage возвращает использование CPU процессом в процентах
func (sm *ServerMetrics) GetCPUUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		// Если не удалось получить метрику процесса, берём системную без ожидания
		cpuPercents, err := cpu.Percent(0, false)
		if err != nil || len(cpuPercents) == 0 {
			return 0, err
		}
		return cpuPercents[0], nil
	}

	return cpuPercent, nil
}

// GetDetailedMemoryStats возвращает детальную статистику памяти
func (sm *ServerMetrics) GetDetailedMemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"alloc":       humanize.Bytes(m.Alloc),
		"total_alloc": humanize.Bytes(m.TotalAlloc),
		"sys":         humanize.Bytes(m.Sys),
		"heap_alloc":  humanize.Bytes(m.HeapAlloc),
		"num_gc":      m.NumGC,
		"goroutines":  runtime.NumGoroutine(),
	}
}
