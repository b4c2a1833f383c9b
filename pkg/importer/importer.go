// Package importer rebuilds a 3D label volume from per-slice polygon annotations.
package importer

import (
	"fmt"
	"image"
	"log"
	"path/filepath"

	"github.com/disintegration/imaging"

	"niftibridge/internal/models"
	"niftibridge/pkg/annotation"
	"niftibridge/pkg/config"
	"niftibridge/pkg/nifti"
	"niftibridge/pkg/rasterize"
)

// Params holds the import settings
type Params struct {
	// Extension selects annotation files by suffix
	Extension string

	// SkipInvalid records bad files as skipped instead of aborting
	SkipInvalid bool

	// Verbose enables progress logging
	Verbose bool
}

// ParamsFromConfig builds import parameters from the application config
func ParamsFromConfig(cfg *config.Config) *Params {
	return &Params{
		Extension:   cfg.Import.Extension,
		SkipInvalid: cfg.Import.SkipInvalid,
		Verbose:     cfg.Output.Verbose,
	}
}

// Importer composites annotation polygons into a label volume
type Importer struct {
	params *Params
}

// NewImporter creates a new importer
func NewImporter(params *Params) *Importer {
	p := *params
	if p.Extension == "" {
		p.Extension = ".json"
	}
	return &Importer{params: &p}
}

// Import reads the reference scan and the annotation files in annotationDir,
// builds the label volume and writes it to outputPath with the reference geometry.
func (im *Importer) Import(annotationDir, referencePath, outputPath string) (*Result, error) {
	ref, err := nifti.Load(referencePath)
	if err != nil {
		return nil, err
	}

	labels, result, err := im.Build(annotationDir, ref)
	if err != nil {
		return result, err
	}

	if err := nifti.Save(outputPath, nifti.NewLabelImage(ref, labels)); err != nil {
		return result, err
	}
	result.OutputPath = outputPath

	if im.params.Verbose {
		log.Printf("Wrote %v label volume with %d labeled voxels to %s",
			result.Shape, result.LabeledVoxels, outputPath)
	}
	return result, nil
}

// Build composites the annotations in annotationDir into a label volume shaped
// like the first three axes of ref. It does not write anything.
func (im *Importer) Build(annotationDir string, ref *nifti.Image) (*models.LabelVolume, *Result, error) {
	if ref.Rank() < 3 {
		return nil, nil, fmt.Errorf("%w: reference has %d dimensions, want at least 3",
			models.ErrUnsupportedRank, ref.Rank())
	}

	files, err := annotation.List(annotationDir, im.params.Extension)
	if err != nil {
		return nil, nil, err
	}

	labels := models.NewLabelVolume(ref.Shape[0], ref.Shape[1], ref.Shape[2])
	result := &Result{Shape: labels.Shape()}
	if im.params.Verbose {
		log.Printf("Found %d annotation files in %s", len(files), annotationDir)
	}

	seen := make(map[int]string)
	for _, f := range files {
		outcome := FileOutcome{Path: f.Path, Slice: f.Slice}
		if f.Err != nil {
			outcome.Slice = -1
		}

		n, err := im.processFile(f, labels)
		if err != nil {
			if !im.params.SkipInvalid {
				return nil, result, err
			}
			outcome.Status = Skipped
			outcome.Reason = err
			log.Printf("Warning: skipping %s: %v", filepath.Base(f.Path), err)
			result.Files = append(result.Files, outcome)
			continue
		}

		if prev, ok := seen[f.Slice]; ok && im.params.Verbose {
			log.Printf("Slice %d is annotated by both %s and %s; polygons are merged",
				f.Slice, filepath.Base(prev), filepath.Base(f.Path))
		}
		seen[f.Slice] = f.Path

		outcome.Status = Imported
		outcome.Polygons = n
		result.Files = append(result.Files, outcome)
	}

	for _, l := range labels.Data {
		if l != 0 {
			result.LabeledVoxels++
		}
	}
	return labels, result, nil
}

// processFile composites every polygon of one annotation file and returns the
// number of polygons drawn.
func (im *Importer) processFile(f annotation.File, labels *models.LabelVolume) (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if f.Slice >= labels.Depth {
		return 0, fmt.Errorf("%w: %s targets slice %d, reference has %d slices",
			models.ErrGeometryMismatch, filepath.Base(f.Path), f.Slice, labels.Depth)
	}

	rec, err := annotation.Load(f.Path)
	if err != nil {
		return 0, err
	}

	for _, obj := range rec.Objects {
		mask := RasterMask(obj.Points(), labels.Width, labels.Height)
		if err := labels.MergeSlice(f.Slice, NativeMask(mask)); err != nil {
			return 0, err
		}
	}
	return len(rec.Objects), nil
}

// RasterMask rasterizes a polygon drawn on an exported slice image. The image
// frame is width voxels wide and height voxels tall, so x is a column and y a row.
func RasterMask(points []rasterize.Point, width, height int) *image.Gray {
	return rasterize.Polygon(points, width, height)
}

// NativeMask rotates a raster-frame mask 90 degrees clockwise, undoing the
// export rotation. The result has one row per x and one column per y.
func NativeMask(mask image.Image) image.Image {
	return imaging.Rotate270(mask)
}
