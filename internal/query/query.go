// Package query filters, ranks and limits station sets for a requested
// viewport and device tier.
package query

import (
	"sort"

	"github.com/openfuelmap/fuelgrid/internal/model"
	"github.com/openfuelmap/fuelgrid/internal/tile"
)

// Center is a ranking origin, usually the viewport midpoint.
type Center struct {
	Lon float64
	Lat float64
}

// FilterByBounds keeps stations whose point lies within the bounds,
// inclusive on all edges. Tile storage uses half-open edges; this
// direct filter is intentionally inclusive and both conventions are
// pinned by tests.
func FilterByBounds(stations []model.Station, b model.BBox) []model.Station {
	out := make([]model.Station, 0, len(stations))
	for _, s := range stations {
		if tile.Contains(b, s.Lon, s.Lat, false) {
			out = append(out, s)
		}
	}
	return out
}

// SortByProximity orders stations by great-circle distance from the
// center. The sort is stable: ties keep input order.
func SortByProximity(stations []model.Station, c Center) []model.Station {
	out := make([]model.Station, len(stations))
	copy(out, stations)
	dist := make([]float64, len(out))
	for i, s := range out {
		dist[i] = tile.Distance(c.Lat, c.Lon, s.Lat, s.Lon)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return dist[idx[a]] < dist[idx[b]] })
	sorted := make([]model.Station, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// ApplyDeviceLimit truncates an oversized result to maxStations,
// preferring best-price flagged stations and then the cheapest, instead
// of truncating by arbitrary input order. Under the limit the input is
// returned unchanged.
func ApplyDeviceLimit(stations []model.Station, maxStations int) []model.Station {
	if maxStations <= 0 || len(stations) <= maxStations {
		return stations
	}
	ranked := make([]model.Station, len(stations))
	copy(ranked, stations)
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].BestPrice != ranked[b].BestPrice {
			return ranked[a].BestPrice
		}
		return ranked[a].MinPrice() < ranked[b].MinPrice()
	})
	return ranked[:maxStations]
}

// FilterAndOptimize composes the pipeline: bounds filter, proximity
// sort when a center is supplied, then device limiting when a profile
// is supplied. Each stage is optional.
func FilterAndOptimize(stations []model.Station, bounds *model.BBox, device *model.DeviceProfile, center *Center) []model.Station {
	out := stations
	if bounds != nil {
		out = FilterByBounds(out, *bounds)
	}
	if center != nil {
		out = SortByProximity(out, *center)
	}
	if device != nil {
		out = ApplyDeviceLimit(out, device.MaxStations)
	}
	return out
}
