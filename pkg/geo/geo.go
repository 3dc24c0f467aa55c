package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ValidLatLng reports whether the pair is inside the WGS84 domain.
func ValidLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// IsNullIsland reports whether the pair is the (0,0) placeholder emitted by
// clients that failed to obtain a fix.
func IsNullIsland(lat, lng float64) bool {
	return lat == 0 && lng == 0
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PolygonContains reports whether p lies inside the polygon using the ray
// casting rule. Vertices may be open or closed (first == last); polygons with
// fewer than three vertices contain nothing.
func PolygonContains(polygon []Point, p Point) bool {
	n := len(polygon)
	if n >= 2 && polygon[0] == polygon[n-1] {
		polygon = polygon[:n-1]
		n--
	}
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		yi, xi := polygon[i].Latitude, polygon[i].Longitude
		yj, xj := polygon[j].Latitude, polygon[j].Longitude

		if (yi > p.Latitude) != (yj > p.Latitude) &&
			p.Longitude < (xj-xi)*(p.Latitude-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}

	return inside
}

// DistanceToPolygon returns the distance in meters from p to the nearest
// polygon edge. Zero when the polygon is degenerate.
func DistanceToPolygon(polygon []Point, p Point) float64 {
	n := len(polygon)
	if n >= 2 && polygon[0] == polygon[n-1] {
		polygon = polygon[:n-1]
		n--
	}
	if n == 0 {
		return 0
	}
	if n == 1 {
		return Haversine(polygon[0], p)
	}

	min := math.MaxFloat64
	j := n - 1
	for i := 0; i < n; i++ {
		if d := distanceToSegment(polygon[j], polygon[i], p); d < min {
			min = d
		}
		j = i
	}

	return min
}

// distanceToSegment projects onto a local equirectangular plane centred on p;
// accurate to well under a metre at geofence scale.
func distanceToSegment(a, b, p Point) float64 {
	mPerDegLat := 2 * math.Pi * earthRadiusMeters / 360
	mPerDegLng := mPerDegLat * math.Cos(p.Latitude*math.Pi/180)

	ax := (a.Longitude - p.Longitude) * mPerDegLng
	ay := (a.Latitude - p.Latitude) * mPerDegLat
	bx := (b.Longitude - p.Longitude) * mPerDegLng
	by := (b.Latitude - p.Latitude) * mPerDegLat

	dx, dy := bx-ax, by-ay
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return math.Hypot(ax, ay)
	}

	t := -(ax*dx + ay*dy) / lengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	return math.Hypot(ax+t*dx, ay+t*dy)
}

var linkPatterns = []*regexp.Regexp{
	// .../maps/@12.9716,77.5946,17z
	regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`),
	// ...?q=12.9716,77.5946 and ...&query=12.9716,77.5946
	regexp.MustCompile(`[?&](?:q|query|ll|destination)=(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`),
	// .../place/12.9716,77.5946
	regexp.MustCompile(`/place/(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`),
}

// ParsePair extracts a coordinate pair from legacy "lat,lng" free text.
// Returns false when the text is not a valid, in-range pair.
func ParsePair(text string) (Point, bool) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) != 2 {
		return Point{}, false
	}

	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil {
		return Point{}, false
	}
	if !ValidLatLng(lat, lng) || IsNullIsland(lat, lng) {
		return Point{}, false
	}

	return Point{Latitude: lat, Longitude: lng}, true
}

// ParseLink extracts a coordinate pair from a shared map URL. Returns false
// when no recognisable, in-range pair is present.
func ParseLink(link string) (Point, bool) {
	if link == "" {
		return Point{}, false
	}

	for _, re := range linkPatterns {
		m := re.FindStringSubmatch(link)
		if m == nil {
			continue
		}

		lat, errLat := strconv.ParseFloat(m[1], 64)
		lng, errLng := strconv.ParseFloat(m[2], 64)
		if errLat != nil || errLng != nil {
			continue
		}
		if !ValidLatLng(lat, lng) || IsNullIsland(lat, lng) {
			continue
		}

		return Point{Latitude: lat, Longitude: lng}, true
	}

	return Point{}, false
}
