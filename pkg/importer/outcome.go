package importer

import "fmt"

// Status is the per-file result of an import
type Status int

const (
	// Imported means every polygon of the file was composited
	Imported Status = iota

	// Skipped means the file was rejected and the import continued
	Skipped
)

func (s Status) String() string {
	switch s {
	case Imported:
		return "imported"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// FileOutcome records what happened to one annotation file
type FileOutcome struct {
	// Path is the annotation file
	Path string

	// Slice is the target slice index, -1 when the name could not be parsed
	Slice int

	// Status is Imported or Skipped
	Status Status

	// Polygons is the number of polygons composited
	Polygons int

	// Reason explains a skip
	Reason error
}

// Result summarises a finished import
type Result struct {
	// OutputPath is the written label volume
	OutputPath string

	// Shape is the label volume shape
	Shape []int

	// Files holds one outcome per annotation file, in processing order
	Files []FileOutcome

	// LabeledVoxels is the number of non-zero voxels written
	LabeledVoxels int
}

// Imported returns the number of files that were composited
func (r *Result) Imported() int {
	n := 0
	for _, f := range r.Files {
		if f.Status == Imported {
			n++
		}
	}
	return n
}

// Skipped returns the outcomes of rejected files
func (r *Result) Skipped() []FileOutcome {
	var out []FileOutcome
	for _, f := range r.Files {
		if f.Status == Skipped {
			out = append(out, f)
		}
	}
	return out
}
