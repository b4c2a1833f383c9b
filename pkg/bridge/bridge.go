// Package bridge is the caller-facing surface of niftibridge: it resolves default
// output locations, runs one conversion, and turns failures into messages an
// operator can act on.
package bridge

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"niftibridge/internal/models"
	"niftibridge/pkg/config"
	"niftibridge/pkg/export"
	"niftibridge/pkg/importer"
)

// ErrMissingSelection is returned when a required input has not been chosen.
var ErrMissingSelection = errors.New("missing input")

// ErrNotScan is returned when the selected scan is not a .nii or .nii.gz file.
var ErrNotScan = errors.New("invalid file")

// Selection holds the inputs an operator has picked. It is owned by the caller
// and passed to each conversion explicitly.
type Selection struct {
	// ScanPath is the NIfTI scan to export, and the reference for imports
	ScanPath string

	// AnnotationDir is the folder of per-slice annotation files
	AnnotationDir string
}

// Converter runs conversions with a fixed configuration.
type Converter struct {
	cfg *config.Config
}

// NewConverter creates a converter. A nil config uses the defaults.
func NewConverter(cfg *config.Config) (*Converter, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg}, nil
}

// IsScanPath reports whether path names a NIfTI file.
func IsScanPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".nii.gz") || strings.HasSuffix(lower, ".nii")
}

// scanStem strips the .nii or .nii.gz extension.
func scanStem(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".nii.gz"):
		return path[:len(path)-len(".nii.gz")]
	case strings.HasSuffix(lower, ".nii"):
		return path[:len(path)-len(".nii")]
	default:
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
}

// DefaultImageDir returns the folder slices of scanPath are exported to:
// the scan path without its extension, plus the configured suffix.
func (c *Converter) DefaultImageDir(scanPath string) string {
	return scanStem(scanPath) + c.cfg.Export.OutputSuffix
}

// DefaultSegmentationPath returns the label volume path for a reference scan:
// the configured output name in the scan's directory.
func (c *Converter) DefaultSegmentationPath(referencePath string) string {
	return filepath.Join(filepath.Dir(referencePath), c.cfg.Import.OutputName)
}

// ConvertVolumeToImages exports every slice of inputPath. An empty outputDir
// uses DefaultImageDir.
func (c *Converter) ConvertVolumeToImages(inputPath, outputDir string) (*export.Result, error) {
	if inputPath == "" {
		return nil, fmt.Errorf("%w: select a NIfTI file first", ErrMissingSelection)
	}
	if !IsScanPath(inputPath) {
		return nil, fmt.Errorf("%w: %q is not a .nii or .nii.gz file", ErrNotScan, inputPath)
	}
	if outputDir == "" {
		outputDir = c.DefaultImageDir(inputPath)
	}

	exporter, err := export.NewExporter(export.ParamsFromConfig(c.cfg))
	if err != nil {
		return nil, err
	}
	return exporter.Export(inputPath, outputDir)
}

// ConvertAnnotationsToVolume builds a label volume from annotationDir aligned to
// referencePath. An empty outputPath uses DefaultSegmentationPath.
func (c *Converter) ConvertAnnotationsToVolume(annotationDir, referencePath, outputPath string) (*importer.Result, error) {
	if referencePath == "" {
		return nil, fmt.Errorf("%w: select a NIfTI file first", ErrMissingSelection)
	}
	if annotationDir == "" {
		return nil, fmt.Errorf("%w: select a folder containing annotation files", ErrMissingSelection)
	}
	if outputPath == "" {
		outputPath = c.DefaultSegmentationPath(referencePath)
	}

	im := importer.NewImporter(importer.ParamsFromConfig(c.cfg))
	return im.Import(annotationDir, referencePath, outputPath)
}

// Export converts the selected scan to images in the default folder.
func (c *Converter) Export(sel Selection) (*export.Result, error) {
	return c.ConvertVolumeToImages(sel.ScanPath, "")
}

// Import converts the selected annotation folder to a label volume next to the
// selected scan.
func (c *Converter) Import(sel Selection) (*importer.Result, error) {
	return c.ConvertAnnotationsToVolume(sel.AnnotationDir, sel.ScanPath, "")
}

// Message turns a conversion error into a one-line explanation for the operator.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingSelection) {
		return "Missing input: " + detail(err, ErrMissingSelection)
	}
	if errors.Is(err, ErrNotScan) {
		return "Invalid file: " + detail(err, ErrNotScan)
	}

	switch models.KindOf(err) {
	case models.KindInputNotFound:
		return fmt.Sprintf("Input not found: %v", err)
	case models.KindUnsupportedRank:
		return fmt.Sprintf("Only 3D and 4D scans can be converted: %v", err)
	case models.KindMalformedScan:
		return fmt.Sprintf("The scan could not be read: %v", err)
	case models.KindMalformedAnnotation:
		return fmt.Sprintf("An annotation file is invalid: %v", err)
	case models.KindGeometryMismatch:
		return fmt.Sprintf("Annotations do not match the reference scan: %v", err)
	default:
		return fmt.Sprintf("An error occurred during conversion: %v", err)
	}
}

// detail strips the sentinel prefix added by fmt.Errorf("%w: ...").
func detail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
