package models

// LineType represents the kind of transit service a line runs
type LineType string

const (
	LineBus    LineType = "bus"
	LineBusway LineType = "busway"
	LineTram   LineType = "tram"
	LineTrain  LineType = "train"
)

// Stop represents a physical transit stop as stored in the database
type Stop struct {
	ID   int     `json:"id"`
	Code string  `json:"code"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Type string  `json:"type"`
}

// Line represents a commercial transit line. A line is a branded service;
// each of its directions yields one routing-graph route.
type Line struct {
	ID          int      `json:"id"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Type        LineType `json:"type"`
	Color       string   `json:"color"`
	OperatorID  int      `json:"operator_id"`
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	StopCount   int      `json:"stop_count"`
}

// Pattern identifies a (line, direction) pair whose ordered stop sequence
// becomes one routing-graph route
type Pattern struct {
	LineID    int
	Direction int
}

// LineMeta carries the display attributes the loader copies onto a route
type LineMeta struct {
	Code  string
	Type  LineType
	Color string
}

// ProximityPair is one directed result row of the transfer scan
type ProximityPair struct {
	FromID int
	ToID   int
	Meters float64
}
