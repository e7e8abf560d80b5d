package remotecache

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/openfuelmap/fuelgrid/internal/model"
)

// Key namespaces. The invalidation table purges by these prefixes, so
// they are the auditable dependency edges of the backing store.
const (
	rootPrefix = "fuel:"
	datasetKey = "fuel:dataset:v1"
	bboxPrefix = "fuel:bbox:"
)

// RootPrefix is the namespace holding every key this service owns.
func RootPrefix() string { return rootPrefix }

// DatasetKey is the fixed key for whole-dataset snapshots.
func DatasetKey() string { return datasetKey }

// BBoxPrefix returns the namespace shared by all bbox-scoped entries.
func BBoxPrefix() string { return bboxPrefix }

// BBoxKey derives a deterministic key for a bounding-box-scoped entry.
// Coordinates are rounded to 3 decimal places so near-identical
// viewports from panning collapse onto the same key. A non-empty extra
// segment (fuel filter, device tier) is sanitized and hashed so
// equivalent spellings collapse too.
func BBoxKey(b model.BBox, extra string) string {
	key := fmt.Sprintf("%s%.3f,%.3f,%.3f,%.3f", bboxPrefix, b.West, b.South, b.East, b.North)
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return key
	}
	const maxExtraLen = 64
	safe := sanitizeForKey(extra)
	if len(safe) > maxExtraLen {
		safe = safe[:maxExtraLen]
	}
	return fmt.Sprintf("%s:%s:f=%016x", key, safe, xxhash.Sum64String(extra))
}

func sanitizeForKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-' || r == '=':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
