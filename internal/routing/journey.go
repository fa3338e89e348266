package routing

import (
	"fmt"

	"github.com/medina/medina_core/internal/graph"
)

// LegStop is the external shape of one stop inside a leg
type LegStop struct {
	ID   int     `json:"id"`
	Code string  `json:"code"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Leg is one user-visible portion of a journey: a transit ride or a walk
type Leg struct {
	Type       string       `json:"type"` // "transit" or "walk"
	FromStop   LegStop      `json:"fromStop"`
	ToStop     LegStop      `json:"toStop"`
	StartTime  string       `json:"startTime"`
	EndTime    string       `json:"endTime"`
	Duration   int          `json:"duration"`
	RouteCode  string       `json:"routeCode"`
	RouteColor string       `json:"routeColor"`
	WaitTime   int          `json:"waitTime"`
	Stops      []LegStop    `json:"stops"`
	Geometry   [][2]float64 `json:"geometry"`
}

// Journey is an ordered, contiguous chain of legs
type Journey struct {
	Legs []Leg `json:"legs"`
}

// shapeJourney translates the reconstructed leg chain into the external
// schema: clock times, route code and color, stop sequences, polylines.
// Pure translation; no routing decisions happen here.
func shapeJourney(g *graph.Graph, legs []pathLeg) *Journey {
	out := make([]Leg, 0, len(legs))
	for _, pl := range legs {
		leg := Leg{
			StartTime: SecondsToClock(pl.start),
			EndTime:   SecondsToClock(pl.end),
			Duration:  pl.end - pl.start,
			WaitTime:  0,
		}

		if pl.route == walkRoute {
			leg.Type = "walk"
			leg.Stops = []LegStop{legStop(g, pl.from), legStop(g, pl.to)}
		} else {
			r := &g.Routes[pl.route]
			leg.Type = "transit"
			leg.RouteCode = r.Code
			leg.RouteColor = r.Color
			leg.Stops = segmentStops(g, r, pl.from, pl.to)
		}

		leg.FromStop = legStop(g, pl.from)
		leg.ToStop = legStop(g, pl.to)
		leg.Geometry = make([][2]float64, len(leg.Stops))
		for i, s := range leg.Stops {
			leg.Geometry[i] = [2]float64{s.Lon, s.Lat}
		}
		out = append(out, leg)
	}
	return &Journey{Legs: out}
}

// segmentStops returns the route's stops from the boarding stop to the
// alighting stop, inclusive
func segmentStops(g *graph.Graph, r *graph.Route, from, to graph.StopID) []LegStop {
	i := r.StopIndex(from)
	j := r.StopIndex(to)
	if i < 0 || j < 0 || i > j {
		return nil
	}
	stops := make([]LegStop, 0, j-i+1)
	for _, sid := range r.Stops[i : j+1] {
		stops = append(stops, legStop(g, sid))
	}
	return stops
}

func legStop(g *graph.Graph, s graph.StopID) LegStop {
	st := g.Stops[s]
	return LegStop{ID: st.DBID, Code: st.Code, Name: st.Name, Lat: st.Lat, Lon: st.Lon}
}

// SecondsToClock formats seconds since midnight as HH:MM:SS
func SecondsToClock(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
