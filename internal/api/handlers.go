package api

import (
	"context"
	"errors"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medina/medina_core/internal/cache"
	"github.com/medina/medina_core/internal/db"
	"github.com/medina/medina_core/internal/graph"
	"github.com/medina/medina_core/internal/routing"
	"github.com/medina/medina_core/internal/store"
)

const defaultDepartureSeconds = 8*3600 + 30*60 // 08:30:00

// Handlers binds the HTTP surface to the loaded graph and the store
type Handlers struct {
	store      *store.Gateway
	graph      *graph.Graph
	engine     *routing.Engine
	resolver   *routing.Resolver
	cacheTTL   time.Duration
	cacheReady bool
}

// New creates the handler set for a loaded graph
func New(pool *pgxpool.Pool, g *graph.Graph) *Handlers {
	gw := store.NewGateway(pool)
	_, cacheErr := cache.GetClient()
	return &Handlers{
		store:      gw,
		graph:      g,
		engine:     routing.NewEngine(g),
		resolver:   routing.NewResolver(gw, g),
		cacheTTL:   cache.LoadConfigFromEnv().TTL,
		cacheReady: cacheErr == nil,
	}
}

// Register mounts all routes on the app
func (h *Handlers) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	v1 := app.Group("/api/v1")
	v1.Get("/lines", h.Lines)
	v1.Get("/lines/:id", h.LineByID)
	v1.Get("/stops", h.StopsInBox)
	v1.Get("/stops/:id", h.StopByID)
	v1.Get("/route", h.RouteSearch)
}

// Health handles the /health endpoint
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbStatus := "connected"
	httpStatus := 200
	status := "healthy"
	if err := db.HealthCheck(ctx); err != nil {
		dbStatus = "disconnected"
		status = "unhealthy"
		httpStatus = 503
	}

	cacheStatus := "connected"
	if err := cache.HealthCheck(ctx); err != nil {
		cacheStatus = "disconnected"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"db":     dbStatus,
		"cache":  cacheStatus,
	})
}

// Lines handles GET /api/v1/lines
func (h *Handlers) Lines(c *fiber.Ctx) error {
	lines, err := h.store.Lines(c.Context())
	if err != nil {
		return storeFailure(c, err)
	}
	return c.JSON(lines)
}

// LineByID handles GET /api/v1/lines/:id
func (h *Handlers) LineByID(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid line id"})
	}

	line, err := h.store.LineByID(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "line not found"})
	}
	if err != nil {
		return storeFailure(c, err)
	}

	stops, err := h.store.StopsOnLine(c.Context(), id, 0)
	if err != nil {
		return storeFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"line":  line,
		"stops": stops,
	})
}

// StopsInBox handles GET /api/v1/stops (viewport browsing)
func (h *Handlers) StopsInBox(c *fiber.Ctx) error {
	minLat, err := queryFloat(c, "min_lat")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	minLon, err := queryFloat(c, "min_lon")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	maxLat, err := queryFloat(c, "max_lat")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	maxLon, err := queryFloat(c, "max_lon")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	stops, err := h.store.StopsInBox(c.Context(), minLat, minLon, maxLat, maxLon)
	if err != nil {
		return storeFailure(c, err)
	}
	return c.JSON(stops)
}

// StopByID handles GET /api/v1/stops/:id
func (h *Handlers) StopByID(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid stop id"})
	}

	stop, err := h.store.StopByID(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "stop not found"})
	}
	if err != nil {
		return storeFailure(c, err)
	}

	lines, err := h.store.LinesServingStop(c.Context(), id)
	if err != nil {
		return storeFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"stop":  stop,
		"lines": lines,
	})
}

// RouteSearch handles GET /api/v1/route
func (h *Handlers) RouteSearch(c *fiber.Ctx) error {
	fromLat, err := queryFloat(c, "from_lat")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	fromLon, err := queryFloat(c, "from_lon")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	toLat, err := queryFloat(c, "to_lat")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	toLon, err := queryFloat(c, "to_lon")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	departure := queryDeparture(c)
	dayParam := queryDay(c)

	ctx := c.Context()

	sources, err := h.resolver.Nearby(ctx, fromLat, fromLon, 0)
	if err != nil {
		return storeFailure(c, err)
	}
	targetWalks, err := h.resolver.Nearby(ctx, toLat, toLon, 0)
	if err != nil {
		return storeFailure(c, err)
	}
	if len(sources) == 0 || len(targetWalks) == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "No nearby stops found"})
	}

	targets := make(map[graph.StopID]bool, len(targetWalks))
	for s := range targetWalks {
		targets[s] = true
	}

	journey := h.computeJourney(ctx, fromLat, fromLon, toLat, toLon, departure, dayParam, sources, targets)
	if journey == nil {
		return c.Status(404).JSON(fiber.Map{"error": "No route found"})
	}

	return c.JSON(journey)
}

// computeJourney runs the search behind the journey cache. When Redis
// never came up the cache path is skipped entirely.
func (h *Handlers) computeJourney(ctx context.Context, fromLat, fromLon, toLat, toLon float64, departure int, dayParam string, sources map[graph.StopID]int, targets map[graph.StopID]bool) *routing.Journey {
	if !h.cacheReady {
		return searchFanout(h.engine, sources, targets, departure, dayParam)
	}

	cacheKey := cache.JourneyKey(fromLat, fromLon, toLat, toLon, departure, dayParam)
	lockKey := cache.LockKey(cacheKey)

	if cached, err := cache.GetJourney(ctx, cacheKey); err == nil && cached != nil {
		return cached
	}

	acquired, err := cache.AcquireLock(ctx, lockKey, 5*time.Second)
	if err != nil {
		log.Printf("Failed to acquire journey lock: %v", err)
		// Continue without lock (degrade gracefully)
	} else if !acquired {
		if cached, err := cache.WaitForLock(ctx, cacheKey, 3*time.Second); err == nil && cached != nil {
			return cached
		}
	}
	defer func() {
		if acquired {
			cache.ReleaseLock(ctx, lockKey)
		}
	}()

	journey := searchFanout(h.engine, sources, targets, departure, dayParam)
	if journey == nil {
		return nil
	}

	if err := cache.SetJourney(ctx, cacheKey, journey, h.cacheTTL); err != nil {
		log.Printf("Failed to cache journey: %v", err)
	}
	return journey
}

// fanoutDays maps the request day to the concrete service days to try, in
// order. A weekend request tries saturday first, then sunday.
func fanoutDays(dayParam string) []graph.ServiceDay {
	if dayParam == "weekend" {
		return []graph.ServiceDay{graph.Saturday, graph.Sunday}
	}
	if day, ok := graph.ParseServiceDay(dayParam); ok {
		return []graph.ServiceDay{day}
	}
	return []graph.ServiceDay{graph.Weekday}
}

// searchFanout runs the engine once per candidate day; first hit wins
func searchFanout(engine *routing.Engine, sources map[graph.StopID]int, targets map[graph.StopID]bool, departure int, dayParam string) *routing.Journey {
	for _, day := range fanoutDays(dayParam) {
		if journey := engine.FindRoute(sources, targets, departure, day); journey != nil {
			return journey
		}
	}
	return nil
}

// queryFloat parses a required finite float query parameter
func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	return parseCoord(name, c.Query(name))
}

func parseCoord(name, raw string) (float64, error) {
	if raw == "" {
		return 0, errors.New("missing required parameter: " + name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

// queryDeparture parses the optional time parameter (seconds since
// midnight), falling back to 08:30:00 for missing or out-of-range values
func queryDeparture(c *fiber.Ctx) int {
	return parseDeparture(c.Query("time"))
}

func parseDeparture(raw string) int {
	if raw == "" {
		return defaultDepartureSeconds
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v >= 86400 {
		return defaultDepartureSeconds
	}
	return v
}

// queryDay normalizes the optional day parameter; unknown values fall
// back to weekday
func queryDay(c *fiber.Ctx) string {
	return normalizeDay(c.Query("day"))
}

func normalizeDay(raw string) string {
	switch d := strings.ToLower(raw); d {
	case "saturday", "sunday", "weekend":
		return d
	default:
		return "weekday"
	}
}

func storeFailure(c *fiber.Ctx, err error) error {
	log.Printf("Store error: %v", err)
	return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
}
