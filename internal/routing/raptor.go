package routing

import (
	"math"
	"sort"

	"github.com/medina/medina_core/internal/graph"
)

const (
	// MaxRounds bounds the search at 6 vehicle legs. Foot transfers do
	// not consume a round.
	MaxRounds = 6

	infinity = math.MaxInt32
)

// walkRoute marks a label produced by transfer relaxation
const walkRoute = graph.RouteID(-1)

// label is the per-round, per-stop back-pointer used for reconstruction
type label struct {
	fromStop  graph.StopID
	route     graph.RouteID // walkRoute for a foot transfer
	tripIdx   int
	boardTime int
}

// pathLeg is one reconstructed segment before shaping
type pathLeg struct {
	from, to   graph.StopID
	route      graph.RouteID // walkRoute for a foot transfer
	start, end int
}

// Engine runs round-based earliest-arrival searches on a frozen graph.
// It holds no per-search state; one Engine serves all requests.
type Engine struct {
	g *graph.Graph
}

// NewEngine creates a routing engine over a loaded graph
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{g: g}
}

// FindRoute computes the earliest-arrival journey from any source stop to
// any target stop, departing no earlier than departureSeconds plus the
// source's initial walk. Returns nil when no target is reachable within
// MaxRounds rides.
func (e *Engine) FindRoute(sources map[graph.StopID]int, targets map[graph.StopID]bool, departureSeconds int, day graph.ServiceDay) *Journey {
	n := len(e.g.Stops)
	if n == 0 || len(sources) == 0 || len(targets) == 0 {
		return nil
	}

	arr := make([][]int, MaxRounds+1)
	labels := make([][]label, MaxRounds+1)
	for k := 0; k <= MaxRounds; k++ {
		arr[k] = make([]int, n)
		for i := range arr[k] {
			arr[k][i] = infinity
		}
		labels[k] = make([]label, n)
	}

	marked := make(map[graph.StopID]bool, len(sources))
	for s, walk := range sources {
		arr[0][s] = departureSeconds + walk
		marked[s] = true
	}

	for k := 1; k <= MaxRounds; k++ {
		copy(arr[k], arr[k-1])

		// Route accumulation: each route is scanned once per round, from
		// the earliest sequence index reached through any marked stop
		entries := make(map[graph.RouteID]int)
		for s := range marked {
			for _, rid := range e.g.RoutesAt(s) {
				idx := e.g.Routes[rid].StopIndex(s)
				if cur, ok := entries[rid]; !ok || idx < cur {
					entries[rid] = idx
				}
			}
		}
		marked = make(map[graph.StopID]bool)

		// Scan routes in id order so equal-time label ties resolve the
		// same way on every run
		order := make([]graph.RouteID, 0, len(entries))
		for rid := range entries {
			order = append(order, rid)
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

		for _, rid := range order {
			e.scanRoute(rid, entries[rid], k, day, arr, labels, marked)
		}

		// Transfer relaxation feeds next round's boarding; only stops the
		// route scan improved are relaxed. Relaxed in stop order: a
		// transfer between two improved stops may lower the second before
		// its own transfers are walked, and the order must not vary
		transitMarked := make([]graph.StopID, 0, len(marked))
		for s := range marked {
			transitMarked = append(transitMarked, s)
		}
		sort.Slice(transitMarked, func(i, j int) bool { return transitMarked[i] < transitMarked[j] })
		for _, s := range transitMarked {
			base := arr[k][s]
			for _, tr := range e.g.Transfers[s] {
				if base+tr.Seconds < arr[k][tr.To] {
					arr[k][tr.To] = base + tr.Seconds
					labels[k][tr.To] = label{fromStop: s, route: walkRoute, boardTime: base}
					marked[tr.To] = true
				}
			}
		}

		if len(marked) == 0 {
			break
		}
	}

	bestK, bestStop, bestTime := selectTarget(arr, targets)
	if bestTime == infinity {
		return nil
	}

	legs := e.reconstruct(arr, labels, bestK, bestStop)
	if len(legs) == 0 {
		return nil
	}
	return shapeJourney(e.g, legs)
}

// scanRoute walks one route from its entry index, riding the current trip
// and attempting to board an earlier one at every stop
func (e *Engine) scanRoute(rid graph.RouteID, i0, k int, day graph.ServiceDay, arr [][]int, labels [][]label, marked map[graph.StopID]bool) {
	r := &e.g.Routes[rid]
	tripIdx := -1
	var boardStop graph.StopID
	boardTime := 0

	for i := i0; i < len(r.Stops); i++ {
		s := r.Stops[i]

		if tripIdx >= 0 {
			t := r.Trips[tripIdx].Times[i].Arrival
			if t < arr[k][s] {
				arr[k][s] = t
				labels[k][s] = label{fromStop: boardStop, route: rid, tripIdx: tripIdx, boardTime: boardTime}
				marked[s] = true
			}
		}

		prev := arr[k-1][s]
		if prev == infinity {
			continue
		}
		cand := earliestTrip(r, i, prev, day)
		if cand < 0 {
			tripIdx = -1
			continue
		}
		if tripIdx < 0 || r.Trips[cand].Times[i].Departure < r.Trips[tripIdx].Times[i].Departure {
			tripIdx = cand
			boardStop = s
			boardTime = r.Trips[cand].Times[i].Departure
		}
	}
}

// earliestTrip finds the first trip of the requested service departing
// stop index i at or after t. Trips are pre-sorted by first-stop
// departure, so the first hit is the earliest.
func earliestTrip(r *graph.Route, i, t int, day graph.ServiceDay) int {
	for ti := range r.Trips {
		if r.Trips[ti].Service != day {
			continue
		}
		if r.Trips[ti].Times[i].Departure >= t {
			return ti
		}
	}
	return -1
}

// selectTarget picks the minimum arrival over all targets and rounds,
// preferring the smallest round among equal-time journeys
func selectTarget(arr [][]int, targets map[graph.StopID]bool) (int, graph.StopID, int) {
	ids := make([]graph.StopID, 0, len(targets))
	for s := range targets {
		ids = append(ids, s)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bestTime := infinity
	bestK := 0
	var bestStop graph.StopID
	for k := 1; k <= MaxRounds; k++ {
		for _, s := range ids {
			if arr[k][s] < bestTime {
				bestTime = arr[k][s]
				bestK = k
				bestStop = s
			}
		}
	}
	return bestK, bestStop, bestTime
}

// reconstruct walks the labels backward from the chosen target. Within a
// round it consumes any chain of walk labels and then at most one ride;
// walk times strictly increase along a chain, so the loop terminates.
func (e *Engine) reconstruct(arr [][]int, labels [][]label, bestK int, target graph.StopID) []pathLeg {
	var legs []pathLeg
	cur := target

	for k := bestK; k >= 1; k-- {
		for arr[k][cur] < arr[k-1][cur] {
			lab := labels[k][cur]
			legs = append(legs, pathLeg{
				from:  lab.fromStop,
				to:    cur,
				route: lab.route,
				start: lab.boardTime,
				end:   arr[k][cur],
			})
			cur = lab.fromStop
			if lab.route != walkRoute {
				break // one ride per round
			}
		}
	}

	// Emitted target-first; flip into travel order
	for i, j := 0, len(legs)-1; i < j; i, j = i+1, j-1 {
		legs[i], legs[j] = legs[j], legs[i]
	}
	return legs
}
