// Package export converts NIfTI volumes into numbered raster image sequences.
package export

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"niftibridge/internal/models"
	"niftibridge/pkg/config"
	"niftibridge/pkg/nifti"
)

// midGray is the output level for constant slices under the midgray policy.
const midGray = 128

// Params holds the export settings
type Params struct {
	// Quality is the JPEG encoding quality
	Quality int

	// Format is the raster file extension, "jpg" or "png"
	Format string

	// DegeneratePolicy selects the output for constant slices
	DegeneratePolicy string

	// Verbose enables progress logging
	Verbose bool
}

// ParamsFromConfig builds export parameters from the application config
func ParamsFromConfig(cfg *config.Config) *Params {
	return &Params{
		Quality:          cfg.Export.Quality,
		Format:           cfg.Export.Format,
		DegeneratePolicy: cfg.Export.DegeneratePolicy,
		Verbose:          cfg.Output.Verbose,
	}
}

// Result summarises a finished export
type Result struct {
	// OutputDir is the directory the slices were written to
	OutputDir string

	// SliceCount is the number of images written
	SliceCount int

	// Files lists the written image paths in slice order
	Files []string

	// Bytes is the total size of the written images
	Bytes int64

	// Degenerate lists the indices of constant slices
	Degenerate []int
}

// Exporter writes one raster image per slice of a volume
type Exporter struct {
	params *Params
	format imaging.Format
	ext    string
}

// NewExporter creates a new exporter. Zero-valued params fall back to JPEG at quality 95.
func NewExporter(params *Params) (*Exporter, error) {
	p := *params
	if p.Quality == 0 {
		p.Quality = 95
	}
	if p.Format == "" {
		p.Format = "jpg"
	}
	if p.DegeneratePolicy == "" {
		p.DegeneratePolicy = config.DegenerateZero
	}

	ext := strings.ToLower(strings.TrimPrefix(p.Format, "."))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("output format %q: %w", p.Format, err)
	}
	if format != imaging.JPEG && format != imaging.PNG {
		return nil, fmt.Errorf("output format %q is not jpg or png", p.Format)
	}

	return &Exporter{params: &p, format: format, ext: ext}, nil
}

// Export loads the scan at inputPath and writes its slices to outputDir.
func (e *Exporter) Export(inputPath, outputDir string) (*Result, error) {
	img, err := nifti.Load(inputPath)
	if err != nil {
		return nil, err
	}
	return e.ExportImage(img, outputDir)
}

// ExportImage writes the slices of an already loaded volume to outputDir.
// 3D volumes are sliced along the third axis; 4D volumes along the fourth, with
// each 3D step collapsed to 2D by averaging over its third axis.
func (e *Exporter) ExportImage(img *nifti.Image, outputDir string) (*Result, error) {
	extent, err := SliceCount(img)
	if err != nil {
		return nil, err
	}
	if e.params.Verbose {
		log.Printf("NIfTI data shape: %v", img.Shape)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &Result{OutputDir: outputDir}
	for i := 0; i < extent; i++ {
		gray, degenerate := e.ExtractSlice(img, i)
		rs := models.RasterSlice{
			Image:      RenderSlice(gray, img.Shape[0], img.Shape[1]),
			Index:      i,
			Filename:   filepath.Join(outputDir, models.SliceFilename(i, e.ext)),
			Degenerate: degenerate,
		}

		n, err := e.SaveSlice(rs.Image, rs.Filename)
		if err != nil {
			return result, fmt.Errorf("writing slice %d: %w", i, err)
		}

		result.SliceCount++
		result.Files = append(result.Files, rs.Filename)
		result.Bytes += n
		if rs.Degenerate {
			result.Degenerate = append(result.Degenerate, i)
			if e.params.Verbose {
				log.Printf("Slice %d has constant intensity, written as %s", i, e.params.DegeneratePolicy)
			}
		}
	}

	if e.params.Verbose {
		log.Printf("Conversion complete. %d images saved in %s", result.SliceCount, outputDir)
	}
	return result, nil
}

// SliceCount returns the number of slices a volume exports to.
func SliceCount(img *nifti.Image) (int, error) {
	switch img.Rank() {
	case 3:
		return img.Shape[2], nil
	case 4:
		return img.Shape[3], nil
	default:
		return 0, fmt.Errorf("%w: volume has %d dimensions, want 3 or 4", models.ErrUnsupportedRank, img.Rank())
	}
}

// ExtractSlice returns slice i as normalized 8-bit values in native order
// (x fastest, then y). The flag reports a constant slice.
func (e *Exporter) ExtractSlice(img *nifti.Image, i int) ([]uint8, bool) {
	w, h := img.Shape[0], img.Shape[1]
	plane := w * h

	if img.Rank() == 3 {
		return e.normalize(img.Data[i*plane : (i+1)*plane])
	}

	depth := img.Shape[2]
	vol := plane * depth
	norm, degenerate := e.normalize(img.Data[i*vol : (i+1)*vol])

	// Collapse the third axis by its mean.
	out := make([]uint8, plane)
	column := make([]float64, depth)
	for p := 0; p < plane; p++ {
		for z := 0; z < depth; z++ {
			column[z] = float64(norm[p+z*plane])
		}
		out[p] = uint8(stat.Mean(column, nil))
	}
	return out, degenerate
}

// normalize maps values onto 0-255 using their own min and max, truncating.
func (e *Exporter) normalize(values []float64) ([]uint8, bool) {
	out := make([]uint8, len(values))
	lo, hi := floats.Min(values), floats.Max(values)

	if hi == lo {
		if e.params.DegeneratePolicy == config.DegenerateMidGray {
			for i := range out {
				out[i] = midGray
			}
		}
		return out, true
	}

	span := hi - lo
	for i, v := range values {
		out[i] = uint8((v - lo) / span * 255)
	}
	return out, false
}

// RenderSlice turns a native-order gray plane of size width x height into a
// 3-channel image rotated 90 degrees counter-clockwise. In the result, pixel
// (col, row) holds voxel (col, height-1-row).
func RenderSlice(gray []uint8, width, height int) image.Image {
	// Native layout: one row per x, one column per y.
	native := image.NewNRGBA(image.Rect(0, 0, height, width))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			v := gray[x+width*y]
			native.SetNRGBA(y, x, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return imaging.Rotate90(native)
}

// SaveSlice encodes a slice image to filename and returns the bytes written.
func (e *Exporter) SaveSlice(img image.Image, filename string) (int64, error) {
	file, err := os.Create(filename)
	if err != nil {
		return 0, err
	}

	if err := imaging.Encode(file, img, e.format, imaging.JPEGQuality(e.params.Quality)); err != nil {
		file.Close()
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(filename)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
