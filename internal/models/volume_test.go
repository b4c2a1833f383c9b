package models

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// TestMergeSliceUnion verifies compositing is a union that never removes labels
func TestMergeSliceUnion(t *testing.T) {
	v := NewLabelVolume(3, 2, 2)

	// Native layout: 3 rows (x), 2 columns (y).
	a := image.NewGray(image.Rect(0, 0, 2, 3))
	a.SetGray(0, 0, color.Gray{Y: 255})
	b := image.NewGray(image.Rect(0, 0, 2, 3))
	b.SetGray(1, 2, color.Gray{Y: 255})

	for _, m := range []image.Image{a, b, image.NewGray(image.Rect(0, 0, 2, 3))} {
		if err := v.MergeSlice(1, m); err != nil {
			t.Fatalf("MergeSlice failed: %v", err)
		}
	}

	if v.At(0, 0, 1) != 1 {
		t.Errorf("Expected voxel (0,0,1) set")
	}
	if v.At(2, 1, 1) != 1 {
		t.Errorf("Expected voxel (2,1,1) set")
	}
	if got := v.SliceCount(1); got != 2 {
		t.Errorf("Expected 2 voxels in slice 1, got %d", got)
	}
	if got := v.SliceCount(0); got != 0 {
		t.Errorf("Expected empty slice 0, got %d", got)
	}
}

// TestMergeSliceGeometry verifies out-of-range slices and wrong mask sizes fail
func TestMergeSliceGeometry(t *testing.T) {
	v := NewLabelVolume(3, 2, 2)
	mask := image.NewGray(image.Rect(0, 0, 2, 3))

	for _, z := range []int{-1, 2} {
		if err := v.MergeSlice(z, mask); !errors.Is(err, ErrGeometryMismatch) {
			t.Errorf("Slice %d: expected ErrGeometryMismatch, got %v", z, err)
		}
	}
	wrong := image.NewGray(image.Rect(0, 0, 3, 2))
	if err := v.MergeSlice(0, wrong); !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("Expected ErrGeometryMismatch for transposed mask, got %v", err)
	}
}

// TestKindOf verifies wrapped errors are classified
func TestKindOf(t *testing.T) {
	v := NewLabelVolume(1, 1, 1)
	err := v.MergeSlice(5, image.NewGray(image.Rect(0, 0, 1, 1)))
	if KindOf(err) != KindGeometryMismatch {
		t.Errorf("Expected %v, got %v", KindGeometryMismatch, KindOf(err))
	}
	if KindOf(errors.New("other")) != KindUnknown {
		t.Errorf("Expected unknown kind")
	}
}

// TestSliceFilename verifies zero padding widens rather than truncates
func TestSliceFilename(t *testing.T) {
	tests := map[int]string{
		0:    "slice_000.jpg",
		7:    "slice_007.jpg",
		999:  "slice_999.jpg",
		1000: "slice_1000.jpg",
	}
	for i, want := range tests {
		if got := SliceFilename(i, "jpg"); got != want {
			t.Errorf("SliceFilename(%d) = %q, want %q", i, got, want)
		}
	}
}
