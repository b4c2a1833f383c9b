package nifti

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/mat"

	"niftibridge/internal/models"
)

// Image is a loaded NIfTI volume.
type Image struct {
	// Header is the decoded header; it is copied into derived images
	Header Header

	// Extensions holds the raw bytes between the header and vox_offset
	Extensions []byte

	// Shape holds the extent of each dimension, e.g. (X, Y, Z) or (X, Y, Z, T)
	Shape []int

	// Data holds the scaled voxel values, first axis fastest
	Data []float64

	affine *mat.Dense
}

// Rank returns the number of dimensions.
func (img *Image) Rank() int {
	return len(img.Shape)
}

// Affine returns a copy of the voxel-to-world transform.
func (img *Image) Affine() *mat.Dense {
	return mat.DenseCopyOf(img.affine)
}

// Index returns the offset of a voxel in Data.
func (img *Image) Index(coords ...int) int {
	idx, stride := 0, 1
	for i, c := range coords {
		idx += c * stride
		stride *= img.Shape[i]
	}
	return idx
}

// At returns the voxel value at the given coordinates.
func (img *Image) At(coords ...int) float64 {
	return img.Data[img.Index(coords...)]
}

// compressed reports whether a path names a gzip-compressed volume.
func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// Load reads a .nii or .nii.gz file.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if compressed(path) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrMalformedScan, path, err)
		}
		defer zr.Close()
		r = zr
	}

	img, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrMalformedScan, path, err)
	}
	return img, nil
}

// Decode reads a single-file NIfTI-1 stream.
func Decode(r io.Reader) (*Image, error) {
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h, order, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}

	ext := make([]byte, int(h.VoxOffset)-HeaderSize)
	if _, err := io.ReadFull(r, ext); err != nil {
		return nil, fmt.Errorf("reading extensions: %w", err)
	}

	shape := h.Shape()
	dataSize, err := h.dataSize()
	if err != nil {
		return nil, err
	}

	voxels := make([]byte, dataSize)
	if _, err := io.ReadFull(r, voxels); err != nil {
		return nil, fmt.Errorf("reading %d voxel bytes: %w", dataSize, err)
	}
	data, err := decodeVoxels(voxels, h.Datatype, order)
	if err != nil {
		return nil, err
	}
	applyScaling(data, h.SclSlope, h.SclInter)

	return &Image{
		Header:     *h,
		Extensions: ext,
		Shape:      shape,
		Data:       data,
		affine:     headerAffine(h),
	}, nil
}

// New creates a float64 image with a fresh header. A nil affine means identity.
func New(shape []int, data []float64, affine *mat.Dense) *Image {
	if affine == nil {
		affine = mat.NewDense(4, 4, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		})
	}

	var h Header
	h.SizeofHdr = HeaderSize
	h.Magic = magicSingle
	h.Dim = [8]int16{int16(len(shape)), 1, 1, 1, 1, 1, 1, 1}
	h.Pixdim = [8]float32{1, 1, 1, 1, 1, 1, 1, 1}
	for i, n := range shape {
		h.Dim[i+1] = int16(n)
	}
	for i := 0; i < 3; i++ {
		col := mat.Col(nil, i, affine.Slice(0, 3, 0, 3))
		h.Pixdim[i+1] = float32(mat.Norm(mat.NewVecDense(3, col), 2))
	}
	h.Datatype = DTFloat64
	h.Bitpix = 64
	h.VoxOffset = HeaderSize + 4
	h.SclSlope = 1
	h.SformCode = 2
	setSform(&h, affine)

	return &Image{
		Header:     h,
		Extensions: make([]byte, 4),
		Shape:      append([]int(nil), shape...),
		Data:       data,
		affine:     mat.DenseCopyOf(affine),
	}
}

// NewLabelImage builds a uint8 image holding labels, with the header,
// extensions and affine of ref.
func NewLabelImage(ref *Image, labels *models.LabelVolume) *Image {
	h := ref.Header
	shape := labels.Shape()

	h.Dim = [8]int16{int16(len(shape)), 1, 1, 1, 1, 1, 1, 1}
	for i, n := range shape {
		h.Dim[i+1] = int16(n)
	}
	h.Datatype = DTUint8
	h.Bitpix = 8
	h.SclSlope = 1
	h.SclInter = 0
	h.CalMin = 0
	h.CalMax = 0
	h.Glmin = 0
	h.Glmax = 0

	affine := ref.Affine()
	setSform(&h, affine)
	if h.SformCode <= 0 {
		// Aligned to the reference's world space.
		h.SformCode = 2
	}

	data := make([]float64, len(labels.Data))
	for i, l := range labels.Data {
		data[i] = float64(l)
	}

	ext := make([]byte, len(ref.Extensions))
	copy(ext, ref.Extensions)

	return &Image{
		Header:     h,
		Extensions: ext,
		Shape:      shape,
		Data:       data,
		affine:     affine,
	}
}

// Encode writes img as a little-endian single-file NIfTI-1 stream. Only uint8
// images are produced by this module; other datatypes are written as float64.
func Encode(w io.Writer, img *Image) error {
	h := img.Header
	h.SizeofHdr = HeaderSize
	h.Magic = magicSingle

	ext := img.Extensions
	if len(ext) < 4 {
		// No extensions: the 4-byte extender flag of zeros.
		ext = make([]byte, 4)
	}
	h.VoxOffset = float32(HeaderSize + len(ext))

	var voxels []byte
	if h.Datatype == DTUint8 {
		voxels = make([]byte, len(img.Data))
		for i, v := range img.Data {
			voxels[i] = uint8(v)
		}
	} else {
		h.Datatype = DTFloat64
		h.Bitpix = 64
		h.SclSlope = 1
		h.SclInter = 0
		voxels = make([]byte, 8*len(img.Data))
		for i, v := range img.Data {
			putFloat64(voxels[i*8:], v)
		}
	}

	raw, err := h.encode()
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	for _, b := range [][]byte{raw, ext, voxels} {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// Save writes img to path, gzip-compressed when the name ends in .gz.
// Parent directories are created as needed.
func Save(path string, img *Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if compressed(path) {
		zw := gzip.NewWriter(bw)
		if err := Encode(zw, img); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing %s: %w", path, err)
		}
	} else if err := Encode(bw, img); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return bw.Flush()
}
