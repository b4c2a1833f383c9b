package annotation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"niftibridge/internal/models"
)

// ErrBadFilename is returned for annotation files whose names carry no slice index.
var ErrBadFilename = fmt.Errorf("%w: filename has no slice index", models.ErrMalformedAnnotation)

// SliceIndex extracts the slice index from an annotation file name.
//
// The index is the text after the last underscore and before the first period
// that follows it, parsed as a non-negative decimal integer: "frame_007.json"
// names slice 7. Names without an underscore, or with a non-numeric token,
// are rejected.
func SliceIndex(filename string) (int, error) {
	base := filepath.Base(filename)
	us := strings.LastIndex(base, "_")
	if us < 0 {
		return 0, fmt.Errorf("%w: %q has no underscore", ErrBadFilename, base)
	}
	token := base[us+1:]
	if dot := strings.Index(token, "."); dot >= 0 {
		token = token[:dot]
	}
	if token == "" || strings.TrimLeft(token, "0123456789") != "" {
		return 0, fmt.Errorf("%w: %q has no numeric suffix", ErrBadFilename, base)
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadFilename, base, err)
	}
	return n, nil
}

// File is an annotation file found in a directory.
type File struct {
	// Path is the full path of the file
	Path string

	// Slice is the parsed slice index, valid only when Err is nil
	Slice int

	// Err is set when the file name does not follow the slice-index rule
	Err error
}

// List returns the regular files in dir whose names end in ext, ordered by
// slice index and then by name. Files with unparseable names are listed last
// with Err set; the caller decides whether they abort the import.
func List(dir, ext string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrInputNotFound, dir)
		}
		return nil, fmt.Errorf("reading annotation directory: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		idx, err := SliceIndex(e.Name())
		files = append(files, File{
			Path:  filepath.Join(dir, e.Name()),
			Slice: idx,
			Err:   err,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Slice != b.Slice {
			return a.Slice < b.Slice
		}
		return a.Path < b.Path
	})
	return files, nil
}
