package graph

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/medina/medina_core/internal/models"
)

const (
	// transferRadiusMeters bounds the straight-line distance for generated
	// foot transfers; walkingSpeed converts meters to seconds.
	transferRadiusMeters = 300.0
	walkingSpeed         = 1.0 // meters per second

	// interStopSeconds is the synthesized travel time between consecutive
	// stops. The schedules table only carries first-stop departures, so
	// per-stop times are extrapolated at a fixed rate.
	// TODO: thread real per-segment durations once the schedules table
	// carries them for every stop.
	interStopSeconds = 180
)

// Source is the slice of the store gateway the loader consumes
type Source interface {
	ListStops(ctx context.Context) ([]models.Stop, error)
	PatternList(ctx context.Context) ([]models.Pattern, error)
	StopsOfPattern(ctx context.Context, lineID, direction int) ([]int, error)
	LineMeta(ctx context.Context, lineID int) (models.LineMeta, error)
	SchedulesForFirstStop(ctx context.Context, lineID, direction, firstStopID int, dayType string) ([]string, error)
	ProximityPairs(ctx context.Context, radiusMeters float64) ([]models.ProximityPair, error)
}

// Loader builds the immutable transit graph from the store
type Loader struct {
	src Source
}

// NewLoader creates a graph loader
func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load builds the graph in one pass: stops, routes with trips, transfers.
// Any store failure aborts; invalid patterns are skipped with a warning.
func (l *Loader) Load(ctx context.Context) (*Graph, error) {
	start := time.Now()
	log.Println("Loading transit graph into memory...")

	g := &Graph{byDBID: make(map[int]StopID)}

	if err := l.loadStops(ctx, g); err != nil {
		return nil, err
	}
	log.Printf("  Loaded %d stops", len(g.Stops))

	tripCount, err := l.loadRoutes(ctx, g)
	if err != nil {
		return nil, err
	}
	log.Printf("  Loaded %d routes, %d trips", len(g.Routes), tripCount)

	if err := l.loadTransfers(ctx, g); err != nil {
		return nil, err
	}
	log.Printf("  Generated %d transfers", g.TransferCount())

	g.freeze()

	log.Printf("Transit graph loaded in %v (%d stops, %d routes, %d trips, %d transfers)",
		time.Since(start).Round(time.Millisecond),
		len(g.Stops), len(g.Routes), tripCount, g.TransferCount())
	return g, nil
}

// loadStops assigns dense graph ids in fetch order and fills the db-id map
func (l *Loader) loadStops(ctx context.Context, g *Graph) error {
	rows, err := l.src.ListStops(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stops: %w", err)
	}

	g.Stops = make([]Stop, 0, len(rows))
	for _, row := range rows {
		id := StopID(len(g.Stops))
		g.Stops = append(g.Stops, Stop{
			ID:   id,
			DBID: row.ID,
			Code: row.Code,
			Name: row.Name,
			Lat:  row.Lat,
			Lon:  row.Lon,
		})
		g.byDBID[row.ID] = id
	}
	return nil
}

// loadRoutes turns each (line, direction) pattern into a route and
// synthesizes its trips for each service day
func (l *Loader) loadRoutes(ctx context.Context, g *Graph) (int, error) {
	patterns, err := l.src.PatternList(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load patterns: %w", err)
	}

	tripCount := 0
	for _, p := range patterns {
		meta, err := l.src.LineMeta(ctx, p.LineID)
		if err != nil {
			log.Printf("Warning: skipping pattern (line %d, dir %d): %v", p.LineID, p.Direction, err)
			continue
		}

		dbStopIDs, err := l.src.StopsOfPattern(ctx, p.LineID, p.Direction)
		if err != nil {
			return 0, fmt.Errorf("failed to load stops of pattern (line %d, dir %d): %w", p.LineID, p.Direction, err)
		}

		// Translate to graph ids, dropping stops missing from the stop table
		stops := make([]StopID, 0, len(dbStopIDs))
		firstDBIDs := make([]int, 0, len(dbStopIDs))
		seen := make(map[StopID]bool, len(dbStopIDs))
		duplicate := false
		for _, dbID := range dbStopIDs {
			sid, ok := g.byDBID[dbID]
			if !ok {
				continue
			}
			if seen[sid] {
				duplicate = true
				break
			}
			seen[sid] = true
			stops = append(stops, sid)
			firstDBIDs = append(firstDBIDs, dbID)
		}
		if duplicate {
			log.Printf("Warning: skipping pattern (line %d, dir %d): stop repeats in sequence", p.LineID, p.Direction)
			continue
		}
		if len(stops) < 2 {
			log.Printf("Warning: skipping pattern (line %d, dir %d): fewer than 2 stops", p.LineID, p.Direction)
			continue
		}

		route := Route{
			ID:     RouteID(len(g.Routes)),
			LineID: p.LineID,
			Code:   meta.Code,
			Kind:   string(meta.Type),
			Color:  meta.Color,
			Fare:   fareFor(meta.Type),
			Stops:  stops,
		}

		for _, day := range ServiceDays {
			departures, err := l.src.SchedulesForFirstStop(ctx, p.LineID, p.Direction, firstDBIDs[0], day.String())
			if err != nil {
				return 0, fmt.Errorf("failed to load schedules (line %d, dir %d, %s): %w", p.LineID, p.Direction, day, err)
			}
			for _, dep := range departures {
				secs, err := parseClock(dep)
				if err != nil {
					log.Printf("Warning: bad departure time %q (line %d, dir %d): %v", dep, p.LineID, p.Direction, err)
					continue
				}
				route.Trips = append(route.Trips, synthesizeTrip(day, secs, len(stops)))
				tripCount++
			}
		}

		// Boarding scans trips in ascending first-stop departure order;
		// stable to keep same-second trips deterministic
		sort.SliceStable(route.Trips, func(i, j int) bool {
			return route.Trips[i].Times[0].Departure < route.Trips[j].Times[0].Departure
		})

		g.Routes = append(g.Routes, route)
	}
	return tripCount, nil
}

// loadTransfers runs the proximity scan and stores per-source adjacency
func (l *Loader) loadTransfers(ctx context.Context, g *Graph) error {
	pairs, err := l.src.ProximityPairs(ctx, transferRadiusMeters)
	if err != nil {
		return fmt.Errorf("failed to load proximity pairs: %w", err)
	}

	g.Transfers = make([][]Transfer, len(g.Stops))
	for _, p := range pairs {
		from, ok := g.byDBID[p.FromID]
		if !ok {
			continue
		}
		to, ok := g.byDBID[p.ToID]
		if !ok || from == to {
			continue
		}
		g.Transfers[from] = append(g.Transfers[from], Transfer{
			To:      to,
			Seconds: int(math.Round(p.Meters / walkingSpeed)),
		})
	}
	return nil
}

// synthesizeTrip extrapolates per-stop times from the first-stop departure
// at a fixed inter-stop duration. Arrival equals departure at every stop.
func synthesizeTrip(day ServiceDay, firstDeparture, stopCount int) Trip {
	trip := Trip{Service: day, Times: make([]StopTime, stopCount)}
	secs := firstDeparture
	for i := range trip.Times {
		trip.Times[i] = StopTime{Arrival: secs, Departure: secs}
		secs += interStopSeconds
	}
	return trip
}

// fareFor assigns the fare class from the line type
func fareFor(t models.LineType) float64 {
	switch t {
	case models.LineTram, models.LineBusway:
		return 8.0
	default:
		return 5.0
	}
}

// parseClock converts "HH:MM" or "HH:MM:SS" to seconds since midnight
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM or HH:MM:SS, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	sec := 0
	if len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, fmt.Errorf("bad second in %q", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	return h*3600 + m*60 + sec, nil
}
