package graph

// StopID is a dense, 0-based id local to the in-memory graph
type StopID int

// RouteID is a dense, 0-based id local to the in-memory graph
type RouteID int

// ServiceDay is the calendar category a trip runs under
type ServiceDay int

const (
	Weekday ServiceDay = iota
	Saturday
	Sunday
)

var serviceDayNames = [...]string{"weekday", "saturday", "sunday"}

// ServiceDays lists the concrete day types in loader order
var ServiceDays = [...]ServiceDay{Weekday, Saturday, Sunday}

func (d ServiceDay) String() string {
	if d < 0 || int(d) >= len(serviceDayNames) {
		return "unknown"
	}
	return serviceDayNames[d]
}

// ParseServiceDay maps a lowercase day name to its ServiceDay. The
// "weekend" alias is a boundary concept and is not accepted here.
func ParseServiceDay(s string) (ServiceDay, bool) {
	for i, name := range serviceDayNames {
		if s == name {
			return ServiceDay(i), true
		}
	}
	return 0, false
}

// Stop is one physical stop, immutable after load
type Stop struct {
	ID   StopID
	DBID int
	Code string
	Name string
	Lat  float64
	Lon  float64
}

// StopTime is the scheduled arrival and departure at one stop of a trip,
// in seconds since local midnight
type StopTime struct {
	Arrival   int
	Departure int
}

// Trip is one scheduled run of a route. Times has exactly one entry per
// stop in the owning route's sequence.
type Trip struct {
	Service ServiceDay
	Times   []StopTime
}

// Route is a unique ordered stop sequence derived from one (line,
// direction) pattern. Trips are kept sorted by first-stop departure.
type Route struct {
	ID        RouteID
	LineID    int
	Code      string
	Kind      string
	Color     string
	Fare      float64
	Stops     []StopID
	Trips     []Trip
	stopIndex map[StopID]int
}

// StopIndex returns the position of a stop in the route's sequence, or -1
func (r *Route) StopIndex(s StopID) int {
	if i, ok := r.stopIndex[s]; ok {
		return i
	}
	return -1
}

// Transfer is a directed foot connection to a nearby stop
type Transfer struct {
	To      StopID
	Seconds int
}

// Graph is the immutable in-memory transit network. Once built it is
// read-only and safe to share across concurrent searches without locks.
type Graph struct {
	Stops     []Stop
	Routes    []Route
	Transfers [][]Transfer // outgoing foot transfers, indexed by StopID

	stopRoutes [][]RouteID  // routes serving each stop, indexed by StopID
	byDBID     map[int]StopID
}

// NewGraph assembles a graph from prebuilt tables and freezes it. The
// loader is the normal producer; small fixtures can be built directly.
func NewGraph(stops []Stop, routes []Route, transfers [][]Transfer) *Graph {
	g := &Graph{
		Stops:     stops,
		Routes:    routes,
		Transfers: transfers,
		byDBID:    make(map[int]StopID, len(stops)),
	}
	for _, s := range stops {
		g.byDBID[s.DBID] = s.ID
	}
	g.freeze()
	return g
}

// StopByDBID translates a database stop id to its graph id
func (g *Graph) StopByDBID(dbID int) (StopID, bool) {
	id, ok := g.byDBID[dbID]
	return id, ok
}

// RoutesAt returns the routes whose sequence contains the stop
func (g *Graph) RoutesAt(s StopID) []RouteID {
	return g.stopRoutes[s]
}

// TransferCount returns the total number of directed foot transfers
func (g *Graph) TransferCount() int {
	n := 0
	for _, ts := range g.Transfers {
		n += len(ts)
	}
	return n
}

// freeze finalizes the graph: per-route stop indexes and the stop->routes
// adjacency are precomputed here so the search never scans sequences.
func (g *Graph) freeze() {
	g.stopRoutes = make([][]RouteID, len(g.Stops))
	for ri := range g.Routes {
		r := &g.Routes[ri]
		r.stopIndex = make(map[StopID]int, len(r.Stops))
		for i, s := range r.Stops {
			r.stopIndex[s] = i
			g.stopRoutes[s] = append(g.stopRoutes[s], r.ID)
		}
	}
	if g.Transfers == nil {
		g.Transfers = make([][]Transfer, len(g.Stops))
	}
}
