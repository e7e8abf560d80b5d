package query

import (
	"net/http"
	"testing"
)

func TestDetectDevice_Tiers(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		mobile  bool
		lowEnd  bool
		max     int
	}{
		{
			name:    "no signals defaults to desktop",
			headers: map[string]string{},
			max:     maxStationsDesktop,
		},
		{
			name:    "client hint mobile",
			headers: map[string]string{"Sec-CH-UA-Mobile": "?1"},
			mobile:  true,
			max:     maxStationsMobile,
		},
		{
			name:    "client hint explicitly not mobile overrides UA",
			headers: map[string]string{"Sec-CH-UA-Mobile": "?0", "User-Agent": "Mozilla/5.0 (iPhone)"},
			max:     maxStationsDesktop,
		},
		{
			name:    "UA fallback android",
			headers: map[string]string{"User-Agent": "Mozilla/5.0 (Linux; Android 11)"},
			mobile:  true,
			max:     maxStationsMobile,
		},
		{
			name:    "low memory mobile",
			headers: map[string]string{"Sec-CH-UA-Mobile": "?1", "Device-Memory": "0.5"},
			mobile:  true,
			lowEnd:  true,
			max:     maxStationsLowEnd,
		},
		{
			name:    "save-data mobile",
			headers: map[string]string{"Sec-CH-UA-Mobile": "?1", "Save-Data": "on"},
			mobile:  true,
			lowEnd:  true,
			max:     maxStationsLowEnd,
		},
		{
			name:    "low memory desktop stays desktop tier",
			headers: map[string]string{"Device-Memory": "0.5", "User-Agent": "Mozilla/5.0 (X11; Linux)"},
			max:     maxStationsDesktop,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			p := DetectDevice(h)
			if p.IsMobile != tc.mobile || p.IsLowEnd != tc.lowEnd || p.MaxStations != tc.max {
				t.Fatalf("got %+v", p)
			}
		})
	}
}
