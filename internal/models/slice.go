package models

import (
	"fmt"
	"image"
)

// RasterSlice represents a single exported slice image with metadata
type RasterSlice struct {
	// Image is the rotated, 3-channel 8-bit slice image
	Image image.Image

	// Index is the position of this slice along the slicing axis
	Index int

	// Filename is the path the slice was written to
	Filename string

	// Degenerate is true when the slice had zero intensity range
	Degenerate bool
}

// SliceFilename returns the file name for the slice at index i.
// The index is zero-padded to at least three digits; larger indices widen the field.
func SliceFilename(i int, ext string) string {
	return fmt.Sprintf("slice_%03d.%s", i, ext)
}
