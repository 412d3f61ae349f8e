package geo

import (
	"fmt"
	"math"
	"sort"
)

const (
	metersPerDegreeLat = 111320.0

	// Longitude degrees shrink toward the poles; the cosine is floored so
	// offsets stay bounded for coordinates recorded near the poles.
	minCosLat = 0.15
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// SitePoint is a mapped site: identity plus its stored coordinate.
type SitePoint struct {
	ID   string
	Name string
	Point
}

// PlacedSite pairs a site with the coordinate it should be drawn at. The
// stored coordinate is never mutated; Rendered differs only when the site
// shares its coordinate with others.
type PlacedSite struct {
	SitePoint
	Rendered  Point
	GroupSize int
}

// LinkPath is one directed link between two stored coordinates.
type LinkPath struct {
	ID   int64
	From Point
	To   Point
}

// PlacedLink carries the offset endpoints a link should be drawn with.
type PlacedLink struct {
	LinkPath
	RenderedFrom Point
	RenderedTo   Point
	GroupSize    int
}

// coordKey groups coordinates that are identical to 8 decimal places,
// roughly millimeter precision.
func coordKey(p Point) string {
	return fmt.Sprintf("%.8f,%.8f", p.Lat, p.Lon)
}

// SpreadSites fans out sites that share an exact coordinate onto a circle
// around the shared point so every marker is individually clickable.
// sepMeters is the minimum distance between any two markers in a group;
// zero or negative disables spreading. Output order and placement depend
// only on site IDs, not on input order.
func SpreadSites(sites []SitePoint, sepMeters float64) []PlacedSite {
	placed := make([]PlacedSite, 0, len(sites))
	if sepMeters <= 0 {
		for _, s := range sites {
			placed = append(placed, PlacedSite{SitePoint: s, Rendered: s.Point, GroupSize: 1})
		}
		sort.SliceStable(placed, func(i, j int) bool { return placed[i].ID < placed[j].ID })
		return placed
	}

	groups := make(map[string][]SitePoint)
	for _, s := range sites {
		k := coordKey(s.Point)
		groups[k] = append(groups[k], s)
	}

	for _, group := range groups {
		n := len(group)
		if n == 1 {
			placed = append(placed, PlacedSite{SitePoint: group[0], Rendered: group[0].Point, GroupSize: 1})
			continue
		}

		sort.SliceStable(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		center := group[0].Point
		radius := sepMeters
		if n > 6 {
			// Past six members the unit-radius chord drops below the
			// separation target, so grow the circle to keep neighbors apart.
			radius = sepMeters / (2 * math.Sin(math.Pi/float64(n)))
		}
		dLat := radius / metersPerDegreeLat
		dLon := radius / (metersPerDegreeLat * math.Max(minCosLat, math.Cos(center.Lat*math.Pi/180)))

		for i, s := range group {
			angle := 2 * math.Pi * float64(i) / float64(n)
			placed = append(placed, PlacedSite{
				SitePoint: s,
				Rendered: Point{
					Lat: center.Lat + dLat*math.Sin(angle),
					Lon: center.Lon + dLon*math.Cos(angle),
				},
				GroupSize: n,
			})
		}
	}

	sort.SliceStable(placed, func(i, j int) bool { return placed[i].ID < placed[j].ID })
	return placed
}

// SpreadLinks offsets links that share the same directed endpoint pair
// perpendicular to their path, symmetric around the original line, so
// parallel circuits between two sites stay distinguishable. offsetMeters
// is the spacing between adjacent parallel lines.
func SpreadLinks(links []LinkPath, offsetMeters float64) []PlacedLink {
	placed := make([]PlacedLink, 0, len(links))

	groups := make(map[string][]LinkPath)
	for _, l := range links {
		k := coordKey(l.From) + ">" + coordKey(l.To)
		groups[k] = append(groups[k], l)
	}

	for _, group := range groups {
		n := len(group)
		if n == 1 || offsetMeters <= 0 {
			for _, l := range group {
				placed = append(placed, PlacedLink{LinkPath: l, RenderedFrom: l.From, RenderedTo: l.To, GroupSize: n})
			}
			continue
		}

		sort.SliceStable(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		from, to := group[0].From, group[0].To
		midLat := (from.Lat + to.Lat) / 2
		mLat := metersPerDegreeLat
		mLon := metersPerDegreeLat * math.Max(minCosLat, math.Cos(midLat*math.Pi/180))

		dLatM := (to.Lat - from.Lat) * mLat
		dLonM := (to.Lon - from.Lon) * mLon
		length := math.Hypot(dLatM, dLonM)
		if length < 1 {
			length = 1
		}

		// Unit perpendicular in meter space, converted back to degrees per axis.
		perpLatDeg := -dLonM / length / mLat
		perpLonDeg := dLatM / length / mLon

		for i, l := range group {
			d := (float64(i) - float64(n-1)/2) * offsetMeters
			placed = append(placed, PlacedLink{
				LinkPath:     l,
				RenderedFrom: Point{Lat: l.From.Lat + d*perpLatDeg, Lon: l.From.Lon + d*perpLonDeg},
				RenderedTo:   Point{Lat: l.To.Lat + d*perpLatDeg, Lon: l.To.Lon + d*perpLonDeg},
				GroupSize:    n,
			})
		}
	}

	sort.SliceStable(placed, func(i, j int) bool { return placed[i].ID < placed[j].ID })
	return placed
}

// Bearing returns the initial great-circle bearing from one point to
// another in degrees clockwise from north, in [0, 360).
func Bearing(from, to Point) float64 {
	phi1 := from.Lat * math.Pi / 180
	phi2 := to.Lat * math.Pi / 180
	dLon := (to.Lon - from.Lon) * math.Pi / 180

	x := math.Sin(dLon) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	deg := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Interpolate returns the point a fraction t of the way from one point to
// another, linear in degree space. Good enough at rendering scale.
func Interpolate(from, to Point, t float64) Point {
	return Point{
		Lat: from.Lat + (to.Lat-from.Lat)*t,
		Lon: from.Lon + (to.Lon-from.Lon)*t,
	}
}
