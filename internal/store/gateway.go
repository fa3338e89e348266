package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medina/medina_core/internal/models"
)

// ErrUnavailable marks any connectivity or query failure against the store.
// The loader treats it as fatal; the request path maps it to a 5xx.
var ErrUnavailable = errors.New("store unavailable")

// ErrNotFound is returned by the single-row lookups when no row matches
var ErrNotFound = errors.New("not found")

const viewportLimit = 200

// Gateway is the single point of read access to the transit database
type Gateway struct {
	db *pgxpool.Pool
}

// NewGateway creates a store gateway on top of an existing pool
func NewGateway(db *pgxpool.Pool) *Gateway {
	return &Gateway{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// ListStops returns every stop with its coordinates, in id order
func (g *Gateway) ListStops(ctx context.Context) ([]models.Stop, error) {
	rows, err := g.db.Query(ctx, `
		SELECT id, code, name_fr,
		       ST_X(location::geometry), ST_Y(location::geometry),
		       COALESCE(stop_type, '')
		FROM stops
		ORDER BY id
	`)
	if err != nil {
		return nil, storeErr("list stops", err)
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Lon, &s.Lat, &s.Type); err != nil {
			return nil, storeErr("scan stop", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list stops", err)
	}
	return stops, nil
}

// StopsInBox returns stops inside a lat/lon bounding box, capped at 200.
// Serves both viewport browsing and nearest-stop resolution.
func (g *Gateway) StopsInBox(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]models.Stop, error) {
	rows, err := g.db.Query(ctx, `
		SELECT id, code, name_fr,
		       ST_X(location::geometry), ST_Y(location::geometry),
		       COALESCE(stop_type, '')
		FROM stops
		WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY id
		LIMIT $5
	`, minLon, minLat, maxLon, maxLat, viewportLimit)
	if err != nil {
		return nil, storeErr("stops in box", err)
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Lon, &s.Lat, &s.Type); err != nil {
			return nil, storeErr("scan stop", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("stops in box", err)
	}
	return stops, nil
}

// StopByID returns a single stop
func (g *Gateway) StopByID(ctx context.Context, id int) (models.Stop, error) {
	var s models.Stop
	err := g.db.QueryRow(ctx, `
		SELECT id, code, name_fr,
		       ST_X(location::geometry), ST_Y(location::geometry),
		       COALESCE(stop_type, '')
		FROM stops
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Code, &s.Name, &s.Lon, &s.Lat, &s.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Stop{}, ErrNotFound
	}
	if err != nil {
		return models.Stop{}, storeErr("stop by id", err)
	}
	return s, nil
}

// Lines returns every line with its stop count (direction 0 sequence)
func (g *Gateway) Lines(ctx context.Context) ([]models.Line, error) {
	rows, err := g.db.Query(ctx, `
		SELECT l.id, l.code, l.name_fr, l.line_type, COALESCE(l.color, '#000000'),
		       COALESCE(l.operator_id, 0),
		       COALESCE(l.origin_name, ''), COALESCE(l.destination_name, ''),
		       COUNT(DISTINCT ls.stop_id)
		FROM lines l
		LEFT JOIN line_stops ls ON ls.line_id = l.id AND ls.direction = 0
		GROUP BY l.id
		ORDER BY l.code
	`)
	if err != nil {
		return nil, storeErr("list lines", err)
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		var l models.Line
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Type, &l.Color,
			&l.OperatorID, &l.Origin, &l.Destination, &l.StopCount); err != nil {
			return nil, storeErr("scan line", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list lines", err)
	}
	return lines, nil
}

// LineByID returns a single line
func (g *Gateway) LineByID(ctx context.Context, id int) (models.Line, error) {
	var l models.Line
	err := g.db.QueryRow(ctx, `
		SELECT l.id, l.code, l.name_fr, l.line_type, COALESCE(l.color, '#000000'),
		       COALESCE(l.operator_id, 0),
		       COALESCE(l.origin_name, ''), COALESCE(l.destination_name, ''),
		       (SELECT COUNT(DISTINCT stop_id) FROM line_stops WHERE line_id = l.id AND direction = 0)
		FROM lines l
		WHERE l.id = $1
	`, id).Scan(&l.ID, &l.Code, &l.Name, &l.Type, &l.Color,
		&l.OperatorID, &l.Origin, &l.Destination, &l.StopCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Line{}, ErrNotFound
	}
	if err != nil {
		return models.Line{}, storeErr("line by id", err)
	}
	return l, nil
}

// StopsOnLine returns the ordered stops a line serves in one direction
func (g *Gateway) StopsOnLine(ctx context.Context, lineID, direction int) ([]models.Stop, error) {
	rows, err := g.db.Query(ctx, `
		SELECT s.id, s.code, s.name_fr,
		       ST_X(s.location::geometry), ST_Y(s.location::geometry),
		       COALESCE(s.stop_type, '')
		FROM line_stops ls
		JOIN stops s ON s.id = ls.stop_id
		WHERE ls.line_id = $1 AND ls.direction = $2
		ORDER BY ls.stop_sequence
	`, lineID, direction)
	if err != nil {
		return nil, storeErr("stops on line", err)
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Lon, &s.Lat, &s.Type); err != nil {
			return nil, storeErr("scan stop", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("stops on line", err)
	}
	return stops, nil
}

// LinesServingStop returns every line that calls at a stop
func (g *Gateway) LinesServingStop(ctx context.Context, stopID int) ([]models.Line, error) {
	rows, err := g.db.Query(ctx, `
		SELECT DISTINCT l.id, l.code, l.name_fr, l.line_type, COALESCE(l.color, '#000000'),
		       COALESCE(l.operator_id, 0),
		       COALESCE(l.origin_name, ''), COALESCE(l.destination_name, '')
		FROM line_stops ls
		JOIN lines l ON l.id = ls.line_id
		WHERE ls.stop_id = $1
		ORDER BY l.code
	`, stopID)
	if err != nil {
		return nil, storeErr("lines serving stop", err)
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		var l models.Line
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Type, &l.Color,
			&l.OperatorID, &l.Origin, &l.Destination); err != nil {
			return nil, storeErr("scan line", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("lines serving stop", err)
	}
	return lines, nil
}

// --- Loader queries ---

// PatternList returns every distinct (line, direction) pair
func (g *Gateway) PatternList(ctx context.Context) ([]models.Pattern, error) {
	rows, err := g.db.Query(ctx, `
		SELECT DISTINCT line_id, direction
		FROM line_stops
		ORDER BY line_id, direction
	`)
	if err != nil {
		return nil, storeErr("pattern list", err)
	}
	defer rows.Close()

	var patterns []models.Pattern
	for rows.Next() {
		var p models.Pattern
		if err := rows.Scan(&p.LineID, &p.Direction); err != nil {
			return nil, storeErr("scan pattern", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("pattern list", err)
	}
	return patterns, nil
}

// StopsOfPattern returns the ordered stop db-ids of one pattern
func (g *Gateway) StopsOfPattern(ctx context.Context, lineID, direction int) ([]int, error) {
	rows, err := g.db.Query(ctx, `
		SELECT stop_id
		FROM line_stops
		WHERE line_id = $1 AND direction = $2
		ORDER BY stop_sequence
	`, lineID, direction)
	if err != nil {
		return nil, storeErr("stops of pattern", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan stop id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("stops of pattern", err)
	}
	return ids, nil
}

// LineMeta returns the display attributes the loader copies onto a route
func (g *Gateway) LineMeta(ctx context.Context, lineID int) (models.LineMeta, error) {
	var m models.LineMeta
	err := g.db.QueryRow(ctx, `
		SELECT code, line_type, COALESCE(color, '#000000')
		FROM lines
		WHERE id = $1
	`, lineID).Scan(&m.Code, &m.Type, &m.Color)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.LineMeta{}, ErrNotFound
	}
	if err != nil {
		return models.LineMeta{}, storeErr("line meta", err)
	}
	return m, nil
}

// SchedulesForFirstStop returns the first-stop departure times (HH:MM or
// HH:MM:SS) of one pattern for one day type, ascending
func (g *Gateway) SchedulesForFirstStop(ctx context.Context, lineID, direction, firstStopID int, dayType string) ([]string, error) {
	rows, err := g.db.Query(ctx, `
		SELECT departure_time
		FROM schedules
		WHERE line_id = $1 AND direction = $2 AND stop_id = $3 AND day_type = $4
		ORDER BY departure_time
	`, lineID, direction, firstStopID, dayType)
	if err != nil {
		return nil, storeErr("schedules for first stop", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, storeErr("scan departure time", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("schedules for first stop", err)
	}
	return times, nil
}

// ProximityPairs returns every ordered pair of distinct stops within
// radiusMeters of each other, with the geodesic distance in meters
func (g *Gateway) ProximityPairs(ctx context.Context, radiusMeters float64) ([]models.ProximityPair, error) {
	rows, err := g.db.Query(ctx, `
		SELECT s1.id, s2.id,
		       ST_Distance(s1.location::geography, s2.location::geography)
		FROM stops s1
		JOIN stops s2 ON ST_DWithin(s1.location::geography, s2.location::geography, $1)
		WHERE s1.id != s2.id
	`, radiusMeters)
	if err != nil {
		return nil, storeErr("proximity pairs", err)
	}
	defer rows.Close()

	var pairs []models.ProximityPair
	for rows.Next() {
		var p models.ProximityPair
		if err := rows.Scan(&p.FromID, &p.ToID, &p.Meters); err != nil {
			return nil, storeErr("scan proximity pair", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("proximity pairs", err)
	}
	return pairs, nil
}
