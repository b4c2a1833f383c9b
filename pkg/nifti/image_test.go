package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"

	"niftibridge/internal/models"
)

func testAffine() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		-0.9, 0, 0, 90,
		0, 0.9, 0, -126,
		0, 0, 3, -72,
		0, 0, 0, 1,
	})
}

// rampImage creates a 3D image whose voxel values equal their data offset
func rampImage(x, y, z int) *Image {
	data := make([]float64, x*y*z)
	for i := range data {
		data[i] = float64(i)
	}
	return New([]int{x, y, z}, data, testAffine())
}

// TestSaveLoadRoundTrip verifies shape, data and affine survive plain and gzip files
func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"scan.nii", "scan.nii.gz"} {
		t.Run(name, func(t *testing.T) {
			img := rampImage(4, 3, 2)
			copy(img.Header.Descrip[:], "ramp")
			path := filepath.Join(t.TempDir(), name)

			if err := Save(path, img); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if diff := cmp.Diff(img.Shape, got.Shape); diff != "" {
				t.Errorf("Shape mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(img.Data, got.Data); diff != "" {
				t.Errorf("Data mismatch (-want +got):\n%s", diff)
			}
			if !mat.EqualApprox(img.Affine(), got.Affine(), 1e-5) {
				t.Errorf("Affine mismatch:\nwant %v\ngot  %v", mat.Formatted(img.Affine()), mat.Formatted(got.Affine()))
			}
			if got.Header.Description() != "ramp" {
				t.Errorf("Expected description %q, got %q", "ramp", got.Header.Description())
			}
			if got.At(3, 2, 1) != float64(img.Index(3, 2, 1)) {
				t.Errorf("Voxel (3,2,1) = %v, want %d", got.At(3, 2, 1), img.Index(3, 2, 1))
			}
		})
	}
}

// TestNewLabelImage verifies label images keep the reference geometry and metadata
func TestNewLabelImage(t *testing.T) {
	ref := New([]int{4, 3, 2, 5}, make([]float64, 4*3*2*5), testAffine())
	copy(ref.Header.Descrip[:], "flair")
	ref.Header.Pixdim[4] = 2.5
	ref.Header.SclSlope = 3

	labels := models.NewLabelVolume(4, 3, 2)
	labels.Set(1, 2, 1, 1)

	out := NewLabelImage(ref, labels)
	path := filepath.Join(t.TempDir(), "segmentation.nii.gz")
	if err := Save(path, out); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if diff := cmp.Diff([]int{4, 3, 2}, got.Shape); diff != "" {
		t.Errorf("Shape mismatch (-want +got):\n%s", diff)
	}
	if got.Header.Datatype != DTUint8 || got.Header.Bitpix != 8 {
		t.Errorf("Expected uint8 datatype, got %d/%d", got.Header.Datatype, got.Header.Bitpix)
	}
	if got.At(1, 2, 1) != 1 {
		t.Errorf("Expected label at (1,2,1)")
	}
	if got.At(0, 0, 0) != 0 {
		t.Errorf("Expected background at (0,0,0)")
	}
	if !mat.EqualApprox(ref.Affine(), got.Affine(), 1e-5) {
		t.Errorf("Affine not preserved")
	}
	if got.Header.Description() != "flair" {
		t.Errorf("Header metadata not preserved, descrip = %q", got.Header.Description())
	}
	if got.Header.Pixdim[1] != ref.Header.Pixdim[1] {
		t.Errorf("Pixdim not preserved")
	}
}

// TestDecodeBigEndianScaled verifies byte order detection and slope/intercept scaling
func TestDecodeBigEndianScaled(t *testing.T) {
	var h Header
	h.SizeofHdr = HeaderSize
	h.Magic = magicSingle
	h.Dim = [8]int16{3, 2, 2, 1, 1, 1, 1, 1}
	h.Pixdim = [8]float32{1, 2, 2, 2, 1, 1, 1, 1}
	h.Datatype = DTInt16
	h.Bitpix = 16
	h.VoxOffset = 352
	h.SclSlope = 2
	h.SclInter = -1

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, &h); err != nil {
		t.Fatal(err)
	}
	buf.Write(make([]byte, 4))
	if err := binary.Write(&buf, binary.BigEndian, []int16{0, 1, -2, 300}); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff([]float64{-1, 1, -5, 599}, img.Data); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}

	// Neither sform nor qform: pixdim scaling.
	want := mat.NewDense(4, 4, []float64{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 1})
	if !mat.Equal(want, img.Affine()) {
		t.Errorf("Expected pixdim affine, got %v", mat.Formatted(img.Affine()))
	}
}

// TestQformAffine verifies the quaternion path for an identity rotation
func TestQformAffine(t *testing.T) {
	var h Header
	h.QformCode = 1
	h.Pixdim = [8]float32{-1, 2, 3, 4}
	h.QoffsetX, h.QoffsetY, h.QoffsetZ = 10, 20, 30

	want := mat.NewDense(4, 4, []float64{
		2, 0, 0, 10,
		0, 3, 0, 20,
		0, 0, -4, 30,
		0, 0, 0, 1,
	})
	if got := headerAffine(&h); !mat.EqualApprox(want, got, 1e-9) {
		t.Errorf("Expected %v, got %v", mat.Formatted(want), mat.Formatted(got))
	}
}

// TestLoadErrors verifies missing and malformed inputs map to the right kinds
func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "absent.nii.gz")); !errors.Is(err, models.ErrInputNotFound) {
		t.Errorf("Expected ErrInputNotFound, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.nii")
	if err := os.WriteFile(garbage, bytes.Repeat([]byte{7}, 400), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbage); !errors.Is(err, models.ErrMalformedScan) {
		t.Errorf("Expected ErrMalformedScan for garbage, got %v", err)
	}

	notGzip := filepath.Join(dir, "plain.nii.gz")
	if err := os.WriteFile(notGzip, []byte("not gzip data"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(notGzip); !errors.Is(err, models.ErrMalformedScan) {
		t.Errorf("Expected ErrMalformedScan for bad gzip, got %v", err)
	}

	// Headers whose offsets or extents cannot be allocated.
	corrupt := []struct {
		name   string
		mutate func(h *Header)
	}{
		{"nan-offset", func(h *Header) { h.VoxOffset = float32(math.NaN()) }},
		{"inf-offset", func(h *Header) { h.VoxOffset = float32(math.Inf(1)) }},
		{"huge-offset", func(h *Header) { h.VoxOffset = 1e12 }},
		{"overflowing-dims", func(h *Header) {
			h.Dim = [8]int16{7, 32767, 32767, 32767, 32767, 32767, 32767, 32767}
		}},
	}
	for _, c := range corrupt {
		t.Run(c.name, func(t *testing.T) {
			img := rampImage(2, 2, 2)
			c.mutate(&img.Header)
			raw, err := img.Header.encode()
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), c.name+".nii")
			if err := os.WriteFile(path, append(raw, make([]byte, 128)...), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, models.ErrMalformedScan) {
				t.Errorf("Expected ErrMalformedScan, got %v", err)
			}
		})
	}

	// Valid header with the voxel data cut short.
	truncated := filepath.Join(dir, "truncated.nii")
	var buf bytes.Buffer
	if err := Encode(&buf, rampImage(4, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(truncated, buf.Bytes()[:HeaderSize+20], 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(truncated); !errors.Is(err, models.ErrMalformedScan) {
		t.Errorf("Expected ErrMalformedScan for truncated data, got %v", err)
	}
}
