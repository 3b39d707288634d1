package geo

import (
	"errors"
	"math"
)

const (
	// earthRadiusKM is the mean Earth radius used by the haversine formula.
	earthRadiusKM = 6371.0
)

var errNoSamples = errors.New("no geolocation samples provided")

// Point is the resolved coordinate for a single postal prefix.
type Point struct {
	ZipPrefix int     `json:"zip_prefix" yaml:"zipPrefix"`
	Lat       float64 `json:"lat" yaml:"lat"`
	Lng       float64 `json:"lng" yaml:"lng"`
}

// Sample is one raw geolocation reading. The raw dataset carries many
// readings per prefix; they are treated as noisy duplicates.
type Sample struct {
	ZipPrefix int     `json:"zip_prefix" yaml:"zipPrefix"`
	Lat       float64 `json:"lat" yaml:"lat"`
	Lng       float64 `json:"lng" yaml:"lng"`
}

// Table maps postal prefix to its resolved coordinate.
type Table map[int]Point

// Resolve reduces raw samples to one representative Point per postal prefix
// by averaging all readings that share the prefix. A prefix with a single
// sample resolves to that sample's coordinates exactly.
func Resolve(samples []Sample) (Table, error) {
	if len(samples) == 0 {
		return nil, errNoSamples
	}

	type acc struct {
		lat, lng float64
		n        int
	}

	sums := make(map[int]*acc)
	for _, s := range samples {
		a, ok := sums[s.ZipPrefix]
		if !ok {
			a = &acc{}
			sums[s.ZipPrefix] = a
		}
		a.lat += s.Lat
		a.lng += s.Lng
		a.n++
	}

	table := make(Table, len(sums))
	for prefix, a := range sums {
		table[prefix] = Point{
			ZipPrefix: prefix,
			Lat:       a.lat / float64(a.n),
			Lng:       a.lng / float64(a.n),
		}
	}
	return table, nil
}

// Lookup returns the resolved point for a prefix, reporting whether the
// prefix is present in the table.
func (t Table) Lookup(prefix int) (Point, bool) {
	p, ok := t[prefix]
	return p, ok
}

// Distance computes the great-circle distance between two points in km
// using the haversine formula. This is the only distance metric used
// anywhere in the pipeline.
func Distance(a, b Point) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKM * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
