package benchmark

import (
	"fmt"
	"strings"
	"time"
)

// Region names a simulation area and the GeoJSON file outlining it.
type Region struct {
	Name    string
	GeoJSON string
}

// NewRegion returns the region with the conventional "<name>.geojson" outline.
func NewRegion(name string) Region {
	return Region{Name: name, GeoJSON: name + ".geojson"}
}

// TimeStep is a half-day step of the simulation window.
type TimeStep struct {
	Year  int
	Month time.Month
	Day   int
	Half  string // "AM" or "PM"
}

// ParseTimeStep parses "YYYY-MM-DD:AM" or "YYYY-MM-DD:PM".
func ParseTimeStep(s string) (TimeStep, error) {
	date, half, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeStep{}, fmt.Errorf("time step %q: want YYYY-MM-DD:AM|PM", s)
	}
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return TimeStep{}, fmt.Errorf("time step %q: %w", s, err)
	}
	half = strings.ToUpper(half)
	if half != "AM" && half != "PM" {
		return TimeStep{}, fmt.Errorf("time step %q: half must be AM or PM", s)
	}
	return TimeStep{Year: d.Year(), Month: d.Month(), Day: d.Day(), Half: half}, nil
}

func (t TimeStep) String() string {
	return fmt.Sprintf("%04d-%02d-%02d:%s", t.Year, int(t.Month), t.Day, t.Half)
}
