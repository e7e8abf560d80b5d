// Package pricing derives cheap/average/expensive price thresholds per
// fuel category from a snapshot of live station prices.
package pricing

import (
	"math"
	"sort"
	"strings"

	"github.com/openfuelmap/fuelgrid/internal/model"
)

// Category is a normalized fuel bucket that raw provider fuel codes map
// onto.
type Category string

const (
	Unleaded      Category = "unleaded"
	SuperUnleaded Category = "super_unleaded"
	Diesel        Category = "diesel"
	SuperDiesel   Category = "super_diesel"
	LPG           Category = "lpg"
)

// Level classifies a single price against a category's thresholds.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Thresholds for one fuel category, in pence.
type Thresholds struct {
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Average    float64 `json:"average"`
	SampleSize int     `json:"sample_size"`
}

// Analysis maps each category with enough samples to its thresholds.
// Categories below the minimum sample size are absent; callers fall
// back to the static cutoffs.
type Analysis map[Category]Thresholds

const (
	// prices at or above this are assumed to already be in pence;
	// below it they are pounds and scaled up
	penceCutoff = 10.0

	// plausible absolute price range in pence
	minPlausible = 50.0
	maxPlausible = 350.0

	// fraction trimmed from each end before averaging
	trimFraction = 0.1
)

// static fallback cutoffs in pence, used when a category is absent from
// the analysis
var staticThresholds = map[Category]Thresholds{
	Unleaded:      {Low: 135, High: 150, Average: 142.5},
	SuperUnleaded: {Low: 150, High: 167, Average: 158.5},
	Diesel:        {Low: 140, High: 157, Average: 148.5},
	SuperDiesel:   {Low: 155, High: 175, Average: 165},
	LPG:           {Low: 60, High: 80, Average: 70},
}

var exactCategories = map[string]Category{
	"unleaded":       Unleaded,
	"e10":            Unleaded,
	"e5":             SuperUnleaded,
	"super unleaded": SuperUnleaded,
	"super_unleaded": SuperUnleaded,
	"premium":        SuperUnleaded,
	"diesel":         Diesel,
	"b7":             Diesel,
	"super diesel":   SuperDiesel,
	"super_diesel":   SuperDiesel,
	"premium diesel": SuperDiesel,
	"sdv":            SuperDiesel,
	"lpg":            LPG,
	"autogas":        LPG,
}

// Classify maps a raw provider fuel name to a category. Exact match
// first, then substring heuristics; unrecognized names report false and
// are dropped from analysis.
func ClassifyFuel(name string) (Category, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	if c, ok := exactCategories[n]; ok {
		return c, true
	}
	switch {
	case strings.Contains(n, "lpg") || strings.Contains(n, "autogas"):
		return LPG, true
	case strings.Contains(n, "diesel"):
		if strings.Contains(n, "super") || strings.Contains(n, "premium") {
			return SuperDiesel, true
		}
		return Diesel, true
	case strings.Contains(n, "super") || strings.Contains(n, "premium") || strings.Contains(n, "e5"):
		return SuperUnleaded, true
	case strings.Contains(n, "unleaded") || strings.Contains(n, "petrol") || strings.Contains(n, "e10"):
		return Unleaded, true
	default:
		return "", false
	}
}

// NormalizePrice converts a raw feed price to pence. Providers disagree
// on units: 1.459 and 145.9 denote the same unleaded price. Values that
// normalize outside the plausible range report false.
func NormalizePrice(p float64) (float64, bool) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}
	if p < penceCutoff {
		p *= 100
	}
	if p < minPlausible || p > maxPlausible {
		return 0, false
	}
	return p, true
}

type Analyzer struct {
	MinSampleSize int
	Margin        float64
}

func NewAnalyzer(minSampleSize int, margin float64) *Analyzer {
	if minSampleSize <= 0 {
		minSampleSize = 10
	}
	if margin <= 0 {
		margin = 5.0
	}
	return &Analyzer{MinSampleSize: minSampleSize, Margin: margin}
}

// Analyze performs a single statistical pass over a station snapshot:
// normalize every price, bucket by category, trim outliers, and derive
// low/high around the trimmed average.
func (a *Analyzer) Analyze(stations []model.Station) Analysis {
	buckets := map[Category][]float64{}
	for _, s := range stations {
		for fuel, raw := range s.Prices {
			cat, ok := ClassifyFuel(fuel)
			if !ok {
				continue
			}
			p, ok := NormalizePrice(raw)
			if !ok {
				continue
			}
			buckets[cat] = append(buckets[cat], p)
		}
	}

	out := Analysis{}
	for cat, prices := range buckets {
		if len(prices) < a.MinSampleSize {
			continue
		}
		sort.Float64s(prices)
		trim := int(float64(len(prices)) * trimFraction)
		trimmed := prices[trim : len(prices)-trim]

		var sum float64
		for _, p := range trimmed {
			sum += p
		}
		avg := sum / float64(len(trimmed))
		out[cat] = Thresholds{
			Low:        avg - a.Margin,
			High:       avg + a.Margin,
			Average:    avg,
			SampleSize: len(prices),
		}
	}
	return out
}

// Classify places a normalized price within a category's thresholds,
// falling back to the static cutoffs when the category is absent from
// the analysis.
func Classify(an Analysis, cat Category, price float64) Level {
	th, ok := an[cat]
	if !ok {
		th, ok = staticThresholds[cat]
		if !ok {
			return LevelMedium
		}
	}
	switch {
	case price <= th.Low:
		return LevelLow
	case price >= th.High:
		return LevelHigh
	default:
		return LevelMedium
	}
}
