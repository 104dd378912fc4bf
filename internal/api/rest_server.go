package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/logging"
	"github.com/annel0/sniff-parser/internal/middleware"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/storage"
	"github.com/annel0/sniff-parser/internal/vec"
	"github.com/annel0/sniff-parser/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API поверх хранилища разобранных объектов
type RestServer struct {
	router  *gin.Engine
	store   *world.Store
	spawns  storage.SpawnRepo
	port    string
	metrics *ServerMetrics
	log     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string                // адрес для запуска сервера
	Store      *world.Store          // хранилище объектов
	Spawns     storage.SpawnRepo     // репозиторий точек появления, может быть nil
	Registerer prometheus.Registerer // регистр HTTP-метрик, nil - глобальный
	Gatherer   prometheus.Gatherer   // источник для /metrics, nil - глобальный
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("sniff_api"))

	promMw := middleware.NewPrometheusMiddleware("sniff_api", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	server := &RestServer{
		router:  router,
		store:   config.Store,
		spawns:  config.Spawns,
		port:    config.Port,
		metrics: NewServerMetrics(),
		log:     logging.GetAPILogger(),
	}

	server.setupRoutes()
	return server
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())

	api := rs.router.Group("/api")
	{
		api.GET("/entities", rs.handleEntities)
		api.GET("/stats", rs.handleStats)
		api.GET("/vehicle-accessories", rs.handleAccessories)

		byGUID := api.Group("/entities/:guid")
		byGUID.Use(guidMiddleware())
		{
			byGUID.GET("", rs.handleEntity)
			byGUID.GET("/changes", rs.handleChanges)
		}

		if rs.spawns != nil {
			api.GET("/spawns/:guid", guidMiddleware(), rs.handleSpawn)
		}
	}

	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// EntitySummary - строка списка объектов
type EntitySummary struct {
	GUID        guid.GUID    `json:"guid"`
	Kind        catalog.Kind `json:"kind"`
	Entry       uint32       `json:"entry,omitempty"`
	MapID       uint32       `json:"map_id"`
	Position    vec.Vector3  `json:"position"`
	Orientation float32      `json:"orientation"`
	Destroyed   bool         `json:"destroyed"`
}

// EntityChanges - журналы изменений одного объекта
type EntityChanges struct {
	GUID       guid.GUID                `json:"guid"`
	Creature   []world.CreatureUpdate   `json:"creature"`
	GameObject []world.GameObjectUpdate `json:"game_object"`
	Targets    []world.TargetChange     `json:"targets"`
}

func (rs *RestServer) summarize(e *world.Entity) EntitySummary {
	return EntitySummary{
		GUID:        e.GUID,
		Kind:        e.Kind,
		Entry:       e.Entry(rs.store.Catalog(), rs.store.Build().Cataclysm()),
		MapID:       e.MapID,
		Position:    e.Movement.Position,
		Orientation: e.Movement.Orientation,
		Destroyed:   e.Destroyed,
	}
}

// handleEntities возвращает объекты в порядке создания, с фильтром ?kind=
func (rs *RestServer) handleEntities(c *gin.Context) {
	entities := rs.store.All()

	if raw := c.Query("kind"); raw != "" {
		kind, err := catalog.ParseKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неизвестный тип объекта: " + raw,
			})
			return
		}
		entities = rs.store.ByKind(kind)
	}

	out := make([]EntitySummary, 0, len(entities))
	for _, e := range entities {
		out = append(out, rs.summarize(e))
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Объекты получены",
		Data: map[string]interface{}{
			"entities": out,
			"total":    len(out),
		},
	})
}

// handleEntity возвращает полное состояние объекта
func (rs *RestServer) handleEntity(c *gin.Context) {
	g := paramGUID(c)
	e, ok := rs.store.Get(g)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Объект не найден",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Объект получен",
		Data:    e,
	})
}

// handleChanges возвращает журналы изменений объекта.
// Объект, уничтоженный и вытесненный из хранилища, всё ещё имеет журнал.
func (rs *RestServer) handleChanges(c *gin.Context) {
	g := paramGUID(c)
	changes := EntityChanges{
		GUID:       g,
		Creature:   rs.store.Changes(g),
		GameObject: rs.store.GameObjectChanges(g),
		Targets:    rs.store.TargetChanges(g),
	}

	if _, known := rs.store.Get(g); !known &&
		len(changes.Creature) == 0 && len(changes.GameObject) == 0 && len(changes.Targets) == 0 {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Объект не найден",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Изменения получены",
		Data:    changes,
	})
}

// handleAccessories возвращает пассажиров транспортов
func (rs *RestServer) handleAccessories(c *gin.Context) {
	accessories := rs.store.Accessories()
	if accessories == nil {
		accessories = []movement.Accessory{}
	}
	sort.SliceStable(accessories, func(i, j int) bool {
		if accessories[i].Entry != accessories[j].Entry {
			return accessories[i].Entry < accessories[j].Entry
		}
		return accessories[i].SeatID < accessories[j].SeatID
	})

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Пассажиры транспортов получены",
		Data: map[string]interface{}{
			"accessories": accessories,
			"total":       len(accessories),
		},
	})
}

// handleSpawn возвращает сохранённую точку появления
func (rs *RestServer) handleSpawn(c *gin.Context) {
	g := paramGUID(c)
	spawn, found, err := rs.spawns.Load(c.Request.Context(), g.String())
	if err != nil {
		rs.log.Error("❌ Чтение точки появления %s: %v", g, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Ошибка хранилища",
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Точка появления не найдена",
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Точка появления получена",
		Data:    spawn,
	})
}

// handleStats возвращает сводку хранилища и метрики процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := make(map[string]interface{})
	stats["store"] = rs.store.Stats()
	stats["build"] = uint32(rs.store.Build())

	if player, ok := rs.store.ActivePlayer(); ok {
		stats["active_player"] = player
	}

	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	stats["server"] = map[string]interface{}{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   memoryMB,
		"rss":         rs.metrics.GetRSS(),
		"cpu_percent": cpuPercent,
		"server_time": time.Now().Unix(),
	}
	stats["memory_details"] = rs.metrics.GetDetailedMemoryStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleHealth проверка состояния
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"entities": rs.store.Len(),
		"uptime":   rs.metrics.GetUptime(),
	})
}

// Start запускает сервер в текущей горутине
func (rs *RestServer) Start() error {
	rs.log.Info("🌐 REST API на %s", rs.port)
	return rs.router.Run(rs.port)
}
