// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and .nii.gz).
//
// Voxel data is exposed as float64 in file order: the first axis varies fastest.
// The header and any extension bytes are carried through unchanged so that derived
// volumes keep the geometry and metadata of the scan they were built from.
package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the fixed size of a NIfTI-1 header in bytes.
const HeaderSize = 348

const (
	// maxVoxOffset bounds the extension area read before the voxel data.
	maxVoxOffset = 1 << 24

	// maxVoxelBytes bounds the voxel data of a single volume.
	maxVoxelBytes = 1 << 32
)

// Header mirrors the on-disk NIfTI-1 header layout field for field.
type Header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DbName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

var (
	magicSingle = [4]byte{'n', '+', '1', 0}
	magicPair   = [4]byte{'n', 'i', '1', 0}
)

// byteOrder detects the header endianness from the sizeof_hdr field.
func byteOrder(raw []byte) (binary.ByteOrder, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("header truncated")
	}
	switch {
	case binary.LittleEndian.Uint32(raw) == HeaderSize:
		return binary.LittleEndian, nil
	case binary.BigEndian.Uint32(raw) == HeaderSize:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("sizeof_hdr is not %d, not a NIfTI-1 file", HeaderSize)
	}
}

// decodeHeader parses the 348 header bytes and validates the fields needed to read voxels.
func decodeHeader(raw []byte) (*Header, binary.ByteOrder, error) {
	order, err := byteOrder(raw)
	if err != nil {
		return nil, nil, err
	}

	var h Header
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, nil, fmt.Errorf("decoding header: %w", err)
	}

	switch h.Magic {
	case magicSingle:
	case magicPair:
		return nil, nil, fmt.Errorf("two-file (.hdr/.img) NIfTI is not supported")
	default:
		return nil, nil, fmt.Errorf("bad magic %q", h.Magic[:3])
	}

	rank := int(h.Dim[0])
	if rank < 1 || rank > 7 {
		return nil, nil, fmt.Errorf("dim[0] = %d out of range", rank)
	}
	for i := 1; i <= rank; i++ {
		if h.Dim[i] < 1 {
			return nil, nil, fmt.Errorf("dim[%d] = %d must be positive", i, h.Dim[i])
		}
	}
	off := float64(h.VoxOffset)
	if math.IsNaN(off) || math.IsInf(off, 0) || off < HeaderSize || off > maxVoxOffset {
		return nil, nil, fmt.Errorf("vox_offset %v out of range", h.VoxOffset)
	}
	if _, err := h.dataSize(); err != nil {
		return nil, nil, err
	}
	return &h, order, nil
}

// dataSize returns the number of voxel data bytes, rejecting sizes that
// overflow or exceed maxVoxelBytes.
func (h *Header) dataSize() (int, error) {
	size, err := bytesPerVoxel(h.Datatype)
	if err != nil {
		return 0, err
	}
	total := int64(size)
	for _, n := range h.Shape() {
		if total > maxVoxelBytes/int64(n) {
			return 0, fmt.Errorf("volume %v is larger than %d bytes", h.Shape(), int64(maxVoxelBytes))
		}
		total *= int64(n)
	}
	return int(total), nil
}

// encode writes the header in little-endian order.
func (h *Header) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Shape returns the extents of the dimensions in use.
func (h *Header) Shape() []int {
	rank := int(h.Dim[0])
	shape := make([]int, rank)
	for i := range shape {
		shape[i] = int(h.Dim[i+1])
	}
	return shape
}

// Description returns the descrip field as a string.
func (h *Header) Description() string {
	return string(bytes.TrimRight(h.Descrip[:], "\x00"))
}
