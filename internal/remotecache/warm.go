package remotecache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openfuelmap/fuelgrid/internal/model"
	"github.com/openfuelmap/fuelgrid/internal/query"
)

// Region is a named high-traffic area pre-warmed after each dataset
// refresh.
type Region struct {
	Name   string
	Bounds model.BBox
}

// PopularRegions is the fixed warming list. Warm entries get the
// shorter warm TTL: more recomputation in exchange for guaranteed
// freshness where most queries land.
var PopularRegions = []Region{
	{Name: "london", Bounds: model.BBox{West: -0.51, South: 51.28, East: 0.33, North: 51.69}},
	{Name: "birmingham", Bounds: model.BBox{West: -2.03, South: 52.38, East: -1.73, North: 52.56}},
	{Name: "manchester", Bounds: model.BBox{West: -2.39, South: 53.36, East: -2.09, North: 53.55}},
	{Name: "leeds", Bounds: model.BBox{West: -1.71, South: 53.72, East: -1.38, North: 53.88}},
	{Name: "glasgow", Bounds: model.BBox{West: -4.39, South: 55.78, East: -4.07, North: 55.93}},
	{Name: "bristol", Bounds: model.BBox{West: -2.72, South: 51.38, East: -2.47, North: 51.54}},
}

// WarmPopularRegions filters the full dataset to each popular region
// and stores the result under that region's bounding-box key. Returns
// the number of regions warmed; individual failures are logged and
// skipped so one bad write never aborts the pass.
func (m *Manager) WarmPopularRegions(ctx context.Context, stations []model.Station) int {
	warmed := 0
	for _, r := range PopularRegions {
		if ctx.Err() != nil {
			return warmed
		}
		// the request path clamps every bbox to the envelope before
		// deriving its key; clamp here too so a region touching the
		// envelope edge warms the key requests actually hit
		bounds := r.Bounds.Clamp(model.Envelope)
		inRegion := query.FilterByBounds(stations, bounds)
		payload, err := json.Marshal(model.ToFeatureCollection(inRegion))
		if err != nil {
			m.logger.Warn().Err(err).Str("region", r.Name).Msg("warm marshal failed")
			continue
		}
		key := BBoxKey(bounds, "")
		if err := m.Put(ctx, key, payload, m.cfg.TTLWarm); err != nil {
			m.logger.Warn().Err(err).Str("region", r.Name).Msg("warm write failed")
			continue
		}
		m.logger.Debug().Str("region", r.Name).Int("stations", len(inRegion)).Msg("region warmed")
		warmed++
	}
	return warmed
}

// WarmDataset stores the whole station set under the fixed dataset key
// with the default TTL.
func (m *Manager) WarmDataset(ctx context.Context, stations []model.Station) error {
	payload, err := json.Marshal(model.ToFeatureCollection(stations))
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	return m.Put(ctx, DatasetKey(), payload, m.cfg.TTLDefault)
}
