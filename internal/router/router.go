// Package router validates and normalizes inbound HTTP requests into
// typed request values. Handlers never touch url.Values directly.
package router

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/openfuelmap/fuelgrid/internal/model"
	"github.com/openfuelmap/fuelgrid/internal/query"
)

// StationsRequest is a normalized /stations query.
type StationsRequest struct {
	Bounds *model.BBox
	Center *query.Center
	Device model.DeviceProfile
	Fuel   string
}

// ParseStationsRequest normalizes a /stations request. Malformed bbox
// and center values degrade to "not supplied" rather than erroring, so
// a broken client still gets a usable, device-limited response.
func ParseStationsRequest(r *http.Request) (StationsRequest, string) {
	var warn string
	q := r.URL.Query()

	bounds := model.ParseBBoxParam(q.Get("bbox"))
	if raw := strings.TrimSpace(q.Get("bbox")); raw != "" && bounds == nil {
		warn = "malformed bbox dropped; serving without viewport filter"
	}

	center := parseCenter(q.Get("center"))
	if center == nil && bounds != nil {
		c := query.Center{
			Lon: (bounds.West + bounds.East) / 2,
			Lat: (bounds.South + bounds.North) / 2,
		}
		center = &c
	}

	return StationsRequest{
		Bounds: bounds,
		Center: center,
		Device: query.DetectDevice(r.Header),
		Fuel:   strings.ToLower(strings.TrimSpace(q.Get("fuel"))),
	}, warn
}

// parseCenter accepts "lon,lat". Anything else yields nil.
func parseCenter(raw string) *query.Center {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil
	}
	lon, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return nil
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return nil
	}
	return &query.Center{Lon: lon, Lat: lat}
}

// ParseClassifyRequest reads the optional fuel+price pair on
// /thresholds. Both must be present together.
func ParseClassifyRequest(r *http.Request) (fuel string, price float64, ok bool, err error) {
	q := r.URL.Query()
	fuel = strings.TrimSpace(q.Get("fuel"))
	rawPrice := strings.TrimSpace(q.Get("price"))
	if fuel == "" && rawPrice == "" {
		return "", 0, false, nil
	}
	if fuel == "" || rawPrice == "" {
		return "", 0, false, errors.New("fuel and price must be supplied together")
	}
	price, perr := strconv.ParseFloat(rawPrice, 64)
	if perr != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return "", 0, false, errors.New("invalid price")
	}
	return fuel, price, true, nil
}
