package query

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/openfuelmap/fuelgrid/internal/model"
)

// Result-size tiers per device class. Policy constants, not computed.
const (
	maxStationsLowEnd  = 100
	maxStationsMobile  = 300
	maxStationsDesktop = 1000
)

// device memory at or below this (in GiB, per the Device-Memory client
// hint) counts as low-end
const lowEndMemoryGiB = 1.0

var mobileUASubstrings = []string{
	"mobile", "android", "iphone", "ipod", "windows phone", "opera mini",
}

// DetectDevice classifies the requesting client from edge/client-hint
// headers, falling back to User-Agent heuristics. With no signals at
// all the desktop tier applies, so an unknown client is never starved
// of results.
func DetectDevice(h http.Header) model.DeviceProfile {
	isMobile := false
	isLowEnd := false

	switch strings.TrimSpace(h.Get("Sec-CH-UA-Mobile")) {
	case "?1":
		isMobile = true
	case "?0":
		isMobile = false
	default:
		ua := strings.ToLower(h.Get("User-Agent"))
		for _, frag := range mobileUASubstrings {
			if strings.Contains(ua, frag) {
				isMobile = true
				break
			}
		}
	}

	if isMobile {
		if mem, err := strconv.ParseFloat(strings.TrimSpace(h.Get("Device-Memory")), 64); err == nil && mem > 0 && mem <= lowEndMemoryGiB {
			isLowEnd = true
		}
		if strings.EqualFold(strings.TrimSpace(h.Get("Save-Data")), "on") {
			isLowEnd = true
		}
	}

	p := model.DeviceProfile{IsMobile: isMobile, IsLowEnd: isLowEnd}
	switch {
	case isLowEnd:
		p.MaxStations = maxStationsLowEnd
	case isMobile:
		p.MaxStations = maxStationsMobile
	default:
		p.MaxStations = maxStationsDesktop
	}
	return p
}
