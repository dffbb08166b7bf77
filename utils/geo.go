package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Coordinate represents a geographic coordinate with latitude and longitude
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to an orb point (lon, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// ValidateCoordinate checks latitude/longitude ranges
func ValidateCoordinate(c Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %.6f is out of valid range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %.6f is out of valid range [-180, 180]", c.Lng)
	}
	return nil
}

// ParseFloat converts loosely-typed request values (numbers, numeric strings,
// json.Number) into a finite float64. ok is false for anything else.
func ParseFloat(v interface{}) (f float64, ok bool) {
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case *float64:
		if n == nil {
			return 0, false
		}
		f = *n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// DistanceMeters returns the great-circle (haversine) distance between two
// coordinates in meters, or nil if any input is not numeric.
func DistanceMeters(lat1, lng1, lat2, lng2 interface{}) *float64 {
	var vals [4]float64
	for i, raw := range []interface{}{lat1, lng1, lat2, lng2} {
		f, ok := ParseFloat(raw)
		if !ok {
			return nil
		}
		vals[i] = f
	}
	a := Coordinate{Lat: vals[0], Lng: vals[1]}
	b := Coordinate{Lat: vals[2], Lng: vals[3]}
	d := geo.DistanceHaversine(a.Point(), b.Point())
	return &d
}
