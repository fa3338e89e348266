package routing

import (
	"testing"

	"github.com/medina/medina_core/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(h, m, s int) int {
	return h*3600 + m*60 + s
}

func tripAt(day graph.ServiceDay, times ...int) graph.Trip {
	ts := make([]graph.StopTime, len(times))
	for i, t := range times {
		ts[i] = graph.StopTime{Arrival: t, Departure: t}
	}
	return graph.Trip{Service: day, Times: ts}
}

// lineGraph is the three-stop fixture: one route A-B-C with a single
// weekday trip departing A at 08:00, five minutes between stops.
func lineGraph(extraTrips ...graph.Trip) *graph.Graph {
	stops := []graph.Stop{
		{ID: 0, DBID: 100, Code: "A", Name: "Alpha", Lat: 0, Lon: 0},
		{ID: 1, DBID: 101, Code: "B", Name: "Bravo", Lat: 0, Lon: 0.01},
		{ID: 2, DBID: 102, Code: "C", Name: "Charlie", Lat: 0, Lon: 0.02},
	}
	trips := append([]graph.Trip{
		tripAt(graph.Weekday, clock(8, 0, 0), clock(8, 5, 0), clock(8, 10, 0)),
	}, extraTrips...)
	routes := []graph.Route{{
		ID: 0, LineID: 1, Code: "R1", Kind: "bus", Color: "#ff0000", Fare: 5,
		Stops: []graph.StopID{0, 1, 2},
		Trips: trips,
	}}
	return graph.NewGraph(stops, routes, nil)
}

// transferGraph extends lineGraph with a stop C' near C, a route C'-D
// departing 08:15, and a 60 s foot transfer in both directions.
func transferGraph() *graph.Graph {
	stops := []graph.Stop{
		{ID: 0, DBID: 100, Code: "A", Name: "Alpha", Lat: 0, Lon: 0},
		{ID: 1, DBID: 101, Code: "B", Name: "Bravo", Lat: 0, Lon: 0.01},
		{ID: 2, DBID: 102, Code: "C", Name: "Charlie", Lat: 0, Lon: 0.02},
		{ID: 3, DBID: 103, Code: "CP", Name: "Charlie Prime", Lat: 0.0005, Lon: 0.02},
		{ID: 4, DBID: 104, Code: "D", Name: "Delta", Lat: 0.0005, Lon: 0.03},
	}
	routes := []graph.Route{
		{
			ID: 0, LineID: 1, Code: "R1", Kind: "bus", Color: "#ff0000", Fare: 5,
			Stops: []graph.StopID{0, 1, 2},
			Trips: []graph.Trip{tripAt(graph.Weekday, clock(8, 0, 0), clock(8, 5, 0), clock(8, 10, 0))},
		},
		{
			ID: 1, LineID: 2, Code: "R2", Kind: "tram", Color: "#00ff00", Fare: 8,
			Stops: []graph.StopID{3, 4},
			Trips: []graph.Trip{tripAt(graph.Weekday, clock(8, 15, 0), clock(8, 20, 0))},
		},
	}
	transfers := make([][]graph.Transfer, len(stops))
	transfers[2] = []graph.Transfer{{To: 3, Seconds: 60}}
	transfers[3] = []graph.Transfer{{To: 2, Seconds: 60}}
	return graph.NewGraph(stops, routes, transfers)
}

func TestFindRouteDirectRide(t *testing.T) {
	engine := NewEngine(lineGraph())

	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{2: true},
		clock(7, 55, 0), graph.Weekday)

	require.NotNil(t, journey)
	require.Len(t, journey.Legs, 1)

	leg := journey.Legs[0]
	assert.Equal(t, "transit", leg.Type)
	assert.Equal(t, "R1", leg.RouteCode)
	assert.Equal(t, "#ff0000", leg.RouteColor)
	assert.Equal(t, "08:00:00", leg.StartTime)
	assert.Equal(t, "08:10:00", leg.EndTime)
	assert.Equal(t, 600, leg.Duration)
	assert.Equal(t, 100, leg.FromStop.ID)
	assert.Equal(t, 102, leg.ToStop.ID)

	require.Len(t, leg.Stops, 3)
	assert.Equal(t, "A", leg.Stops[0].Code)
	assert.Equal(t, "B", leg.Stops[1].Code)
	assert.Equal(t, "C", leg.Stops[2].Code)

	require.Len(t, leg.Geometry, 3)
	assert.Equal(t, [2]float64{0.02, 0}, leg.Geometry[2]) // [lon, lat]
}

func TestFindRouteMissedTrip(t *testing.T) {
	engine := NewEngine(lineGraph())

	// The only trip has already left A by 08:06
	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{1: true},
		clock(8, 6, 0), graph.Weekday)

	assert.Nil(t, journey)
}

func TestFindRouteWrongServiceDay(t *testing.T) {
	engine := NewEngine(lineGraph())

	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{2: true},
		clock(7, 55, 0), graph.Saturday)

	assert.Nil(t, journey)
}

func TestFindRouteWithTransfer(t *testing.T) {
	engine := NewEngine(transferGraph())

	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{4: true},
		clock(7, 55, 0), graph.Weekday)

	require.NotNil(t, journey)
	require.Len(t, journey.Legs, 3)

	ride1, walk, ride2 := journey.Legs[0], journey.Legs[1], journey.Legs[2]

	assert.Equal(t, "transit", ride1.Type)
	assert.Equal(t, "R1", ride1.RouteCode)
	assert.Equal(t, "08:10:00", ride1.EndTime)

	assert.Equal(t, "walk", walk.Type)
	assert.Equal(t, "", walk.RouteCode)
	assert.Equal(t, "", walk.RouteColor)
	assert.Equal(t, "08:10:00", walk.StartTime)
	assert.Equal(t, "08:11:00", walk.EndTime)
	assert.Equal(t, 60, walk.Duration)
	assert.Len(t, walk.Stops, 2)
	assert.Len(t, walk.Geometry, 2)

	assert.Equal(t, "transit", ride2.Type)
	assert.Equal(t, "R2", ride2.RouteCode)
	assert.Equal(t, "08:15:00", ride2.StartTime)
	assert.Equal(t, "08:20:00", ride2.EndTime)

	// Legs are contiguous in space and time
	for i := 1; i < len(journey.Legs); i++ {
		assert.Equal(t, journey.Legs[i-1].ToStop.ID, journey.Legs[i].FromStop.ID)
		assert.LessOrEqual(t, journey.Legs[i-1].EndTime, journey.Legs[i].StartTime)
	}
}

func TestFindRouteEndsWithWalk(t *testing.T) {
	engine := NewEngine(transferGraph())

	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{3: true},
		clock(7, 55, 0), graph.Weekday)

	require.NotNil(t, journey)
	require.Len(t, journey.Legs, 2)
	assert.Equal(t, "transit", journey.Legs[0].Type)
	assert.Equal(t, "walk", journey.Legs[1].Type)
	assert.Equal(t, "08:11:00", journey.Legs[1].EndTime)
}

func TestFindRouteWalkAfterWalk(t *testing.T) {
	// Two routes improve B and C in the same round; the B-C transfer
	// undercuts C's ride, and C's own transfer carries on to D. The
	// reconstructed chain must include both walks and the ride.
	stops := []graph.Stop{
		{ID: 0, DBID: 100, Code: "A", Name: "Alpha"},
		{ID: 1, DBID: 101, Code: "B", Name: "Bravo", Lon: 0.01},
		{ID: 2, DBID: 102, Code: "C", Name: "Charlie", Lon: 0.02},
		{ID: 3, DBID: 103, Code: "D", Name: "Delta", Lon: 0.03},
	}
	routes := []graph.Route{
		{
			ID: 0, LineID: 1, Code: "R1", Kind: "bus", Color: "#ff0000", Fare: 5,
			Stops: []graph.StopID{0, 1},
			Trips: []graph.Trip{tripAt(graph.Weekday, clock(8, 0, 0), clock(8, 5, 0))},
		},
		{
			ID: 1, LineID: 2, Code: "R2", Kind: "bus", Color: "#0000ff", Fare: 5,
			Stops: []graph.StopID{0, 2},
			Trips: []graph.Trip{tripAt(graph.Weekday, clock(8, 0, 0), clock(8, 10, 0))},
		},
	}
	transfers := make([][]graph.Transfer, len(stops))
	transfers[1] = []graph.Transfer{{To: 2, Seconds: 60}}
	transfers[2] = []graph.Transfer{{To: 3, Seconds: 60}}
	engine := NewEngine(graph.NewGraph(stops, routes, transfers))

	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{3: true},
		clock(7, 55, 0), graph.Weekday)

	require.NotNil(t, journey)
	require.Len(t, journey.Legs, 3)
	assert.Equal(t, "transit", journey.Legs[0].Type)
	assert.Equal(t, "walk", journey.Legs[1].Type)
	assert.Equal(t, "walk", journey.Legs[2].Type)

	// Chain starts at the origin and stays contiguous through both walks
	assert.Equal(t, 100, journey.Legs[0].FromStop.ID)
	for i := 1; i < len(journey.Legs); i++ {
		assert.Equal(t, journey.Legs[i-1].ToStop.ID, journey.Legs[i].FromStop.ID)
		assert.LessOrEqual(t, journey.Legs[i-1].EndTime, journey.Legs[i].StartTime)
	}
	assert.Equal(t, "08:06:00", journey.Legs[2].StartTime)
	assert.Equal(t, "08:07:00", journey.Legs[2].EndTime)
}

func TestFindRouteWeekendFallback(t *testing.T) {
	// Sunday service only; the boundary tries saturday first, then sunday
	g := lineGraph(tripAt(graph.Sunday, clock(9, 0, 0), clock(9, 5, 0), clock(9, 10, 0)))
	engine := NewEngine(g)

	sources := map[graph.StopID]int{0: 0}
	targets := map[graph.StopID]bool{2: true}

	saturday := engine.FindRoute(sources, targets, clock(8, 30, 0), graph.Saturday)
	assert.Nil(t, saturday)

	sunday := engine.FindRoute(sources, targets, clock(8, 30, 0), graph.Sunday)
	require.NotNil(t, sunday)
	assert.Equal(t, "09:10:00", sunday.Legs[0].EndTime)
}

func TestFindRouteDeterministicOnEqualDepartures(t *testing.T) {
	// Two weekday trips with identical times; the engine must pick the
	// same one on every run
	g := lineGraph(tripAt(graph.Weekday, clock(8, 0, 0), clock(8, 5, 0), clock(8, 10, 0)))
	engine := NewEngine(g)

	sources := map[graph.StopID]int{0: 0}
	targets := map[graph.StopID]bool{2: true}

	first := engine.FindRoute(sources, targets, clock(7, 55, 0), graph.Weekday)
	require.NotNil(t, first)
	assert.Equal(t, "08:10:00", first.Legs[0].EndTime)

	for i := 0; i < 10; i++ {
		again := engine.FindRoute(sources, targets, clock(7, 55, 0), graph.Weekday)
		assert.Equal(t, first, again)
	}
}

func TestFindRouteSameStopOriginAndDestination(t *testing.T) {
	engine := NewEngine(lineGraph())

	// Already there: a zero-leg journey is not a valid result
	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{0: true},
		clock(7, 55, 0), graph.Weekday)

	assert.Nil(t, journey)
}

func TestFindRoutePrefersEarlierArrival(t *testing.T) {
	// A second, later trip must not displace the earlier one
	g := lineGraph(tripAt(graph.Weekday, clock(9, 0, 0), clock(9, 5, 0), clock(9, 10, 0)))
	engine := NewEngine(g)

	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{2: true},
		clock(7, 55, 0), graph.Weekday)

	require.NotNil(t, journey)
	assert.Equal(t, "08:10:00", journey.Legs[0].EndTime)
}

func TestFindRouteInitialWalkDelaysBoarding(t *testing.T) {
	engine := NewEngine(lineGraph())

	// A 10-minute initial walk makes the 08:00 departure unreachable
	// when leaving at 07:55
	journey := engine.FindRoute(
		map[graph.StopID]int{0: 600},
		map[graph.StopID]bool{2: true},
		clock(7, 55, 0), graph.Weekday)

	assert.Nil(t, journey)
}

func TestFindRouteBoardsDownstream(t *testing.T) {
	engine := NewEngine(lineGraph())

	// Departing from B after the trip has passed A still boards at B
	journey := engine.FindRoute(
		map[graph.StopID]int{1: 0},
		map[graph.StopID]bool{2: true},
		clock(8, 2, 0), graph.Weekday)

	require.NotNil(t, journey)
	require.Len(t, journey.Legs, 1)
	leg := journey.Legs[0]
	assert.Equal(t, 101, leg.FromStop.ID)
	assert.Equal(t, "08:05:00", leg.StartTime)
	assert.Equal(t, "08:10:00", leg.EndTime)
	require.Len(t, leg.Stops, 2)
}

func TestFindRouteEmptyInputs(t *testing.T) {
	engine := NewEngine(lineGraph())

	assert.Nil(t, engine.FindRoute(nil, map[graph.StopID]bool{2: true}, clock(8, 0, 0), graph.Weekday))
	assert.Nil(t, engine.FindRoute(map[graph.StopID]int{0: 0}, nil, clock(8, 0, 0), graph.Weekday))
}

func TestFindRouteMidnightBounds(t *testing.T) {
	engine := NewEngine(lineGraph())

	t.Run("midnight departure reaches the morning trip", func(t *testing.T) {
		journey := engine.FindRoute(
			map[graph.StopID]int{0: 0},
			map[graph.StopID]bool{2: true},
			0, graph.Weekday)
		require.NotNil(t, journey)
		assert.Equal(t, "08:00:00", journey.Legs[0].StartTime)
	})

	t.Run("just before midnight finds nothing", func(t *testing.T) {
		journey := engine.FindRoute(
			map[graph.StopID]int{0: 0},
			map[graph.StopID]bool{2: true},
			86399, graph.Weekday)
		assert.Nil(t, journey)
	})
}

func TestFindRouteMinimumArrivalTargetWins(t *testing.T) {
	engine := NewEngine(lineGraph())

	// Both B and C are acceptable targets; B is reached first
	journey := engine.FindRoute(
		map[graph.StopID]int{0: 0},
		map[graph.StopID]bool{1: true, 2: true},
		clock(7, 55, 0), graph.Weekday)

	require.NotNil(t, journey)
	require.Len(t, journey.Legs, 1)
	assert.Equal(t, 101, journey.Legs[0].ToStop.ID)
	assert.Equal(t, "08:05:00", journey.Legs[0].EndTime)
}
