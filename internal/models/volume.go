package models

import (
	"fmt"
	"image"
)

// LabelVolume is a 3D uint8 label volume stored in NIfTI voxel order
// (x varies fastest, then y, then z).
type LabelVolume struct {
	// Data holds Width*Height*Depth labels
	Data []uint8

	// Width, Height, Depth are the extents of the first three scan axes
	Width, Height, Depth int
}

// NewLabelVolume allocates a zero-filled label volume.
func NewLabelVolume(width, height, depth int) *LabelVolume {
	return &LabelVolume{
		Data:   make([]uint8, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Shape returns the volume extents as a slice, matching the scan shape convention.
func (v *LabelVolume) Shape() []int {
	return []int{v.Width, v.Height, v.Depth}
}

func (v *LabelVolume) index(x, y, z int) int {
	return x + v.Width*(y+v.Height*z)
}

// At returns the label at voxel (x, y, z).
func (v *LabelVolume) At(x, y, z int) uint8 {
	return v.Data[v.index(x, y, z)]
}

// Set stores a label at voxel (x, y, z).
func (v *LabelVolume) Set(x, y, z int, label uint8) {
	v.Data[v.index(x, y, z)] = label
}

// MergeSlice composites a mask into slice z, keeping the maximum of the existing
// label and the mask label. The mask is in native layout, one row per x and one
// column per y, so pixel (col=y, row=x) maps to voxel (x, y, z). Any non-zero mask
// value marks the voxel with label 1; coverage is never reduced.
func (v *LabelVolume) MergeSlice(z int, mask image.Image) error {
	if z < 0 || z >= v.Depth {
		return fmt.Errorf("%w: slice %d outside [0, %d)", ErrGeometryMismatch, z, v.Depth)
	}
	b := mask.Bounds()
	if b.Dy() != v.Width || b.Dx() != v.Height {
		return fmt.Errorf("%w: mask has %d rows and %d columns, slice is %dx%d",
			ErrGeometryMismatch, b.Dy(), b.Dx(), v.Width, v.Height)
	}

	for x := 0; x < v.Width; x++ {
		for y := 0; y < v.Height; y++ {
			r, _, _, _ := mask.At(b.Min.X+y, b.Min.Y+x).RGBA()
			if r == 0 {
				continue
			}
			idx := v.index(x, y, z)
			if v.Data[idx] < 1 {
				v.Data[idx] = 1
			}
		}
	}
	return nil
}

// SliceCount returns the number of non-zero voxels in slice z.
func (v *LabelVolume) SliceCount(z int) int {
	n := 0
	plane := v.Width * v.Height
	for _, l := range v.Data[z*plane : (z+1)*plane] {
		if l != 0 {
			n++
		}
	}
	return n
}
