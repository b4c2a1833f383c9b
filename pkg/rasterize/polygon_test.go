package rasterize

import (
	"math"
	"testing"
)

// TestPolygonTriangleArea verifies a triangle covers about its geometric area
func TestPolygonTriangleArea(t *testing.T) {
	tri := []Point{{10, 10}, {50, 10}, {30, 40}}
	mask := Polygon(tri, 100, 100)

	geometric := 0.5 * 40 * 30
	area := float64(Area(mask))
	if math.Abs(area-geometric)/geometric > 0.15 {
		t.Errorf("Triangle area %v too far from geometric area %v", area, geometric)
	}

	// Centroid inside, far corner outside.
	if mask.GrayAt(30, 20).Y == 0 {
		t.Errorf("Expected centroid (30,20) to be filled")
	}
	if mask.GrayAt(90, 90).Y != 0 {
		t.Errorf("Expected (90,90) to be empty")
	}
	// X maps to columns: (45,12) is inside, its transpose (12,45) is not.
	if mask.GrayAt(45, 12).Y == 0 || mask.GrayAt(12, 45).Y != 0 {
		t.Errorf("Polygon x/y are not mapped to column/row")
	}
}

// TestPolygonRectangleExact verifies an axis-aligned rectangle is filled exactly
func TestPolygonRectangleExact(t *testing.T) {
	rect := []Point{{2, 3}, {6, 3}, {6, 8}, {2, 8}}
	mask := Polygon(rect, 10, 10)

	// Rows 3..7 (bottom edge is half-open), columns 2..6.
	if got, want := Area(mask), 5*5; got != want {
		t.Errorf("Expected area %d, got %d", want, got)
	}
	for row := 3; row <= 7; row++ {
		for col := 2; col <= 6; col++ {
			if mask.GrayAt(col, row).Y == 0 {
				t.Errorf("Expected (%d,%d) to be filled", col, row)
			}
		}
	}
}

// TestPolygonDegenerate verifies fewer than three points give an empty mask
func TestPolygonDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"empty", nil},
		{"single", []Point{{5, 5}}},
		{"segment", []Point{{1, 1}, {8, 8}}},
		{"collinear-horizontal", []Point{{1, 4}, {5, 4}, {9, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := Polygon(tt.points, 10, 10)
			if Area(mask) != 0 {
				t.Errorf("Expected empty mask, got area %d", Area(mask))
			}
		})
	}
}

// TestPolygonClipping verifies polygons extending past the mask are clipped
func TestPolygonClipping(t *testing.T) {
	big := []Point{{-20, -20}, {200, -20}, {200, 200}, {-20, 200}}
	mask := Polygon(big, 16, 12)
	if got, want := Area(mask), 16*12; got != want {
		t.Errorf("Expected fully covered mask of %d pixels, got %d", want, got)
	}

	huge := []Point{{-1e20, -1e20}, {1e20, -1e20}, {1e20, 1e20}, {-1e20, 1e20}}
	if got, want := Area(Polygon(huge, 10, 10)), 100; got != want {
		t.Errorf("Expected %d pixels for polygon far beyond bounds, got %d", want, got)
	}

	nan := []Point{{math.NaN(), 1}, {5, 1}, {5, 6}}
	if got := Area(Polygon(nan, 10, 10)); got > 100 {
		t.Errorf("Unexpected area %d for polygon with NaN vertex", got)
	}

	outside := []Point{{50, 50}, {60, 50}, {55, 60}}
	if got := Area(Polygon(outside, 16, 12)); got != 0 {
		t.Errorf("Expected empty mask for polygon outside bounds, got %d", got)
	}
}

// TestPolygonConcave verifies the even-odd fill leaves the notch of a concave shape empty
func TestPolygonConcave(t *testing.T) {
	// A "U" shape opening upwards.
	u := []Point{{0, 0}, {3, 0}, {3, 6}, {6, 6}, {6, 0}, {9, 0}, {9, 9}, {0, 9}}
	mask := Polygon(u, 10, 10)

	if mask.GrayAt(4, 2).Y != 0 {
		t.Errorf("Expected notch pixel (4,2) to be empty")
	}
	if mask.GrayAt(1, 2).Y == 0 || mask.GrayAt(8, 2).Y == 0 {
		t.Errorf("Expected both arms to be filled")
	}
	if mask.GrayAt(4, 8).Y == 0 {
		t.Errorf("Expected base pixel (4,8) to be filled")
	}
}
