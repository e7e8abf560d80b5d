package remotecache

import (
	"regexp"
	"strings"
	"testing"
	"unicode"

	"github.com/openfuelmap/fuelgrid/internal/model"
)

func TestBBoxKey_Deterministic(t *testing.T) {
	b := model.BBox{West: -0.51, South: 51.28, East: 0.33, North: 51.69}
	if BBoxKey(b, "") != BBoxKey(b, "") {
		t.Fatal("same bounds must derive the same key")
	}
}

func TestBBoxKey_NearIdenticalViewportsCollapse(t *testing.T) {
	a := model.BBox{West: -0.5101, South: 51.2802, East: 0.3299, North: 51.6901}
	b := model.BBox{West: -0.5102, South: 51.2799, East: 0.3301, North: 51.6899}
	if BBoxKey(a, "") != BBoxKey(b, "") {
		t.Fatalf("sub-millidegree panning must hit the same key:\n %s\n %s", BBoxKey(a, ""), BBoxKey(b, ""))
	}

	c := model.BBox{West: -0.52, South: 51.28, East: 0.33, North: 51.69}
	if BBoxKey(a, "") == BBoxKey(c, "") {
		t.Fatal("distinct viewports must derive distinct keys")
	}
}

func TestBBoxKey_ExtraSegmentHashed(t *testing.T) {
	b := model.BBox{West: -0.51, South: 51.28, East: 0.33, North: 51.69}

	k1 := BBoxKey(b, "fuel=diesel")
	k2 := BBoxKey(b, "fuel=unleaded")
	if k1 == k2 {
		t.Fatal("different extras must produce different keys")
	}
	if !regexp.MustCompile(`:f=[0-9a-f]{16}$`).MatchString(k1) {
		t.Fatalf("missing hash suffix: %s", k1)
	}
}

func TestBBoxKey_ASCIIOnly(t *testing.T) {
	b := model.BBox{West: -0.51, South: 51.28, East: 0.33, North: 51.69}
	k := BBoxKey(b, "brand='Gö teborg petrol' ")
	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
	if !strings.HasPrefix(k, BBoxPrefix()) {
		t.Fatalf("key outside bbox namespace: %s", k)
	}
}

func TestDatasetKey_Fixed(t *testing.T) {
	if DatasetKey() != "fuel:dataset:v1" {
		t.Fatalf("dataset key changed: %s", DatasetKey())
	}
}
