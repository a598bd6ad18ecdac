// Package geo computes the map view for a set of headquarters: the points to plot,
// their bounding rectangle, a centre and zoom that frame them, and S2 cell
// clusters for dense areas.
package geo

import (
	"math"
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/pkg/dataset"
)

// Default map framing: the continental United States.
const (
	DefaultLatitude  = 38.7946
	DefaultLongitude = -106.5348
	DefaultZoom      = 2.5
)

// DefaultGeohashPrecision gives cells of roughly 150m.
const DefaultGeohashPrecision = 7

// clusterLevel is the S2 level used to group nearby points (cells of ~20km).
const clusterLevel = 9

const (
	minZoom = 1.0
	maxZoom = 12.0
)

// Point is one plotted headquarters.
type Point struct {
	Name      string          `json:"name"`
	State     string          `json:"state"`
	County    string          `json:"county"`
	Latitude  float64         `json:"lat"`
	Longitude float64         `json:"lon"`
	Revenues  decimal.Decimal `json:"revenues"`
	Geohash   string          `json:"geohash"`
	Cell      string          `json:"cell"`
}

// LatLng is a position in degrees.
type LatLng struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Bounds is a latitude/longitude rectangle in degrees.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Cluster groups the points falling in one S2 cell.
type Cluster struct {
	Cell     string          `json:"cell"`
	Center   LatLng          `json:"center"`
	Count    int             `json:"count"`
	Revenues decimal.Decimal `json:"revenues"`
}

// View is everything a map needs to render a selection.
type View struct {
	Points   []Point   `json:"points"`
	Clusters []Cluster `json:"clusters"`
	Bounds   *Bounds   `json:"bounds,omitempty"`
	Center   LatLng    `json:"center"`
	Zoom     float64   `json:"zoom"`
	Skipped  int       `json:"skipped,omitempty"`
}

// Options tunes BuildView.
type Options struct {
	// GeohashPrecision is the geohash length per point (DefaultGeohashPrecision when 0)
	GeohashPrecision int
}

// BuildView computes the map view for table. Rows with missing or invalid
// coordinates are counted in Skipped and left off the map. An empty selection
// is framed on the default centre.
func BuildView(table *dataset.Table, opts Options) View {
	precision := opts.GeohashPrecision
	if precision <= 0 {
		precision = DefaultGeohashPrecision
	}

	view := View{
		Points:   []Point{},
		Clusters: []Cluster{},
		Center:   LatLng{Latitude: DefaultLatitude, Longitude: DefaultLongitude},
		Zoom:     DefaultZoom,
	}
	rect := s2.EmptyRect()
	clusters := make(map[s2.CellID]*Cluster)
	var order []s2.CellID

	table.Each(func(_ int, c dataset.Company) bool {
		ll, ok := latLng(c)
		if !ok {
			view.Skipped++
			return true
		}
		rect = rect.AddPoint(ll)

		cell := s2.CellIDFromLatLng(ll).Parent(clusterLevel)
		view.Points = append(view.Points, Point{
			Name:      c.Name,
			State:     c.State,
			County:    c.County,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Revenues:  c.Revenues,
			Geohash:   geohash.EncodeWithPrecision(c.Latitude, c.Longitude, precision),
			Cell:      cell.ToToken(),
		})

		cl, seen := clusters[cell]
		if !seen {
			center := cell.LatLng()
			cl = &Cluster{
				Cell:     cell.ToToken(),
				Center:   LatLng{Latitude: center.Lat.Degrees(), Longitude: center.Lng.Degrees()},
				Revenues: decimal.Zero,
			}
			clusters[cell] = cl
			order = append(order, cell)
		}
		cl.Count++
		cl.Revenues = cl.Revenues.Add(c.Revenues)
		return true
	})

	if rect.IsEmpty() {
		return view
	}

	for _, cell := range order {
		view.Clusters = append(view.Clusters, *clusters[cell])
	}
	sort.SliceStable(view.Clusters, func(i, j int) bool {
		return view.Clusters[i].Count > view.Clusters[j].Count
	})

	view.Bounds = &Bounds{
		South: rect.Lo().Lat.Degrees(),
		West:  rect.Lo().Lng.Degrees(),
		North: rect.Hi().Lat.Degrees(),
		East:  rect.Hi().Lng.Degrees(),
	}
	center := rect.Center()
	view.Center = LatLng{Latitude: center.Lat.Degrees(), Longitude: center.Lng.Degrees()}
	view.Zoom = zoomFor(rect)
	return view
}

// latLng returns the row's position, rejecting missing, NaN and out-of-range values.
func latLng(c dataset.Company) (s2.LatLng, bool) {
	if c.Missing.Has(dataset.ColLatitude) || c.Missing.Has(dataset.ColLongitude) {
		return s2.LatLng{}, false
	}
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return s2.LatLng{}, false
	}
	ll := s2.LatLngFromDegrees(c.Latitude, c.Longitude)
	if !ll.IsValid() {
		return s2.LatLng{}, false
	}
	return ll, true
}

// zoomFor picks a web-map zoom level that fits rect, in [minZoom, maxZoom].
// A single point gets maxZoom.
func zoomFor(rect s2.Rect) float64 {
	size := rect.Size()
	span := math.Max(size.Lng.Degrees(), 2*size.Lat.Degrees())
	if span <= 0 {
		return maxZoom
	}
	z := math.Log2(360 / span)
	z = math.Round(z*10) / 10
	return math.Min(maxZoom, math.Max(minZoom, z))
}
