package routing

import (
	"context"

	"github.com/medina/medina_core/internal/graph"
	"github.com/medina/medina_core/internal/models"
)

// nearbyBoxDegrees is the half-width of the bounding box used to resolve
// a coordinate to candidate stops (roughly 1 km)
const nearbyBoxDegrees = 0.01

// StopLocator is the slice of the store gateway the resolver consumes
type StopLocator interface {
	StopsInBox(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]models.Stop, error)
}

// Resolver maps a coordinate to the graph stops near it, each annotated
// with an initial walk duration
type Resolver struct {
	src StopLocator
	g   *graph.Graph
}

// NewResolver creates a nearest-stop resolver
func NewResolver(src StopLocator, g *graph.Graph) *Resolver {
	return &Resolver{src: src, g: g}
}

// Nearby returns the graph stops within the box around (lat, lon). The
// initial walk is currently a flat value per stop; an empty map means no
// stop is close enough and the caller should answer with "no nearby
// stops".
func (r *Resolver) Nearby(ctx context.Context, lat, lon float64, initialWalk int) (map[graph.StopID]int, error) {
	rows, err := r.src.StopsInBox(ctx,
		lat-nearbyBoxDegrees, lon-nearbyBoxDegrees,
		lat+nearbyBoxDegrees, lon+nearbyBoxDegrees)
	if err != nil {
		return nil, err
	}

	stops := make(map[graph.StopID]int, len(rows))
	for _, row := range rows {
		if sid, ok := r.g.StopByDBID(row.ID); ok {
			stops[sid] = initialWalk
		}
	}
	return stops, nil
}
