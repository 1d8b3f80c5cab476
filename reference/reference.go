// Package reference holds the static map data of the dashboard: departments
// and intelligence hotspots. The data is immutable; accessors return copies.
package reference

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Level grades the risk of a hotspot.
type Level string

const (
	LevelHigh     Level = "high"
	LevelElevated Level = "elevated"
	LevelLow      Level = "low"
)

// Label returns the Spanish marker label of the level.
func (l Level) Label() string {
	switch l {
	case LevelHigh:
		return "ALTO"
	case LevelElevated:
		return "ELEVADO"
	default:
		return "NORMAL"
	}
}

// Trend is the direction of an indicator.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Indicator is a labelled figure attached to a hotspot.
type Indicator struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Trend Trend  `json:"trend"`
}

// Headline is a canned news line attached to a hotspot.
type Headline struct {
	Title string `json:"title"`
	Age   string `json:"age"`
}

// Hotspot is a point of interest on the map.
type Hotspot struct {
	Name        string      `json:"name"`
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
	Level       Level       `json:"level"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Groups      []string    `json:"groups"`
	Indicators  []Indicator `json:"indicators"`
	Headlines   []Headline  `json:"headlines"`
	Tags        []string    `json:"tags"`
}

// Coordinates renders the hotspot position as "7.89°N, 72.51°W".
func (h Hotspot) Coordinates() string {
	return FormatCoordinates(h.Lat, h.Lng)
}

// FormatCoordinates renders a position with two decimals and hemisphere letters.
func FormatCoordinates(lat, lng float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lng < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.2f°%s, %.2f°%s", math.Abs(lat), ns, math.Abs(lng), ew)
}

// Departments returns every department in display order.
func Departments() []Department {
	out := make([]Department, len(departments))
	copy(out, departments[:])
	return out
}

// LookupDepartment finds a department by its code, ignoring case.
func LookupDepartment(code string) (Department, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, dept := range departments {
		if dept.Code == code {
			return dept, true
		}
	}
	return Department{}, false
}

// Hotspots returns every hotspot in display order.
func Hotspots() []Hotspot {
	out := make([]Hotspot, len(hotspots))
	for i, spot := range hotspots {
		out[i] = spot.clone()
	}
	return out
}

// HotspotsNear returns the hotspots within radiusKm of the department's
// anchor, nearest first.
func HotspotsNear(dept Department, radiusKm float64) []Hotspot {
	type ranked struct {
		spot Hotspot
		dist float64
	}
	var matches []ranked
	for _, spot := range hotspots {
		dist := DistanceKm(dept.Lat, dept.Lng, spot.Lat, spot.Lng)
		if dist <= radiusKm {
			matches = append(matches, ranked{spot: spot.clone(), dist: dist})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })
	out := make([]Hotspot, len(matches))
	for i, m := range matches {
		out[i] = m.spot
	}
	return out
}

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between two positions.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func (h Hotspot) clone() Hotspot {
	out := h
	out.Groups = append([]string(nil), h.Groups...)
	out.Indicators = append([]Indicator(nil), h.Indicators...)
	out.Headlines = append([]Headline(nil), h.Headlines...)
	out.Tags = append([]string(nil), h.Tags...)
	return out
}
