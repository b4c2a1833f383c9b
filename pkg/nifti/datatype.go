package nifti

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NIfTI-1 datatype codes.
const (
	DTUint8   = 2
	DTInt16   = 4
	DTInt32   = 8
	DTFloat32 = 16
	DTFloat64 = 64
	DTInt8    = 256
	DTUint16  = 512
	DTUint32  = 768
	DTInt64   = 1024
	DTUint64  = 1280
)

// bytesPerVoxel returns the storage size of a datatype code.
func bytesPerVoxel(datatype int16) (int, error) {
	switch datatype {
	case DTUint8, DTInt8:
		return 1, nil
	case DTInt16, DTUint16:
		return 2, nil
	case DTInt32, DTUint32, DTFloat32:
		return 4, nil
	case DTInt64, DTUint64, DTFloat64:
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported datatype %d", datatype)
	}
}

// decodeVoxels converts raw voxel bytes to float64 values.
func decodeVoxels(raw []byte, datatype int16, order binary.ByteOrder) ([]float64, error) {
	size, err := bytesPerVoxel(datatype)
	if err != nil {
		return nil, err
	}
	n := len(raw) / size
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		b := raw[i*size : (i+1)*size]
		switch datatype {
		case DTUint8:
			out[i] = float64(b[0])
		case DTInt8:
			out[i] = float64(int8(b[0]))
		case DTInt16:
			out[i] = float64(int16(order.Uint16(b)))
		case DTUint16:
			out[i] = float64(order.Uint16(b))
		case DTInt32:
			out[i] = float64(int32(order.Uint32(b)))
		case DTUint32:
			out[i] = float64(order.Uint32(b))
		case DTFloat32:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case DTInt64:
			out[i] = float64(int64(order.Uint64(b)))
		case DTUint64:
			out[i] = float64(order.Uint64(b))
		case DTFloat64:
			out[i] = math.Float64frombits(order.Uint64(b))
		}
	}
	return out, nil
}

// applyScaling applies scl_slope/scl_inter the way nibabel's get_fdata does:
// a zero or non-finite slope, or the identity pair, leaves the data unscaled.
func applyScaling(data []float64, slope, inter float32) {
	s, b := float64(slope), float64(inter)
	if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return
	}
	if math.IsNaN(b) || math.IsInf(b, 0) {
		b = 0
	}
	if s == 1 && b == 0 {
		return
	}
	for i, v := range data {
		data[i] = v*s + b
	}
}

func putFloat64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
