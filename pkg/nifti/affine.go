package nifti

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// sformAffine builds the affine from the srow_* fields.
func sformAffine(h *Header) *mat.Dense {
	a := mat.NewDense(4, 4, nil)
	for j := 0; j < 4; j++ {
		a.Set(0, j, float64(h.SrowX[j]))
		a.Set(1, j, float64(h.SrowY[j]))
		a.Set(2, j, float64(h.SrowZ[j]))
	}
	a.Set(3, 3, 1)
	return a
}

// qformAffine builds the affine from the quaternion parameters, pixdim and qfac.
func qformAffine(h *Header) *mat.Dense {
	b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
	a := 1 - (b*b + c*c + d*d)
	if a < 1e-7 {
		// Quaternion is not normalised; treat as a 180 degree rotation.
		n := math.Sqrt(b*b + c*c + d*d)
		b, c, d = b/n, c/n, d/n
		a = 0
	} else {
		a = math.Sqrt(a)
	}

	qfac := float64(h.Pixdim[0])
	if qfac == 0 {
		qfac = 1
	}
	dx, dy, dz := float64(h.Pixdim[1]), float64(h.Pixdim[2]), float64(h.Pixdim[3])*qfac

	r := mat.NewDense(3, 3, []float64{
		a*a + b*b - c*c - d*d, 2*b*c - 2*a*d, 2*b*d + 2*a*c,
		2*b*c + 2*a*d, a*a + c*c - b*b - d*d, 2*c*d - 2*a*b,
		2*b*d - 2*a*c, 2*c*d + 2*a*b, a*a + d*d - c*c - b*b,
	})
	var scaled mat.Dense
	scaled.Mul(r, mat.NewDiagDense(3, []float64{dx, dy, dz}))

	out := mat.NewDense(4, 4, nil)
	out.Slice(0, 3, 0, 3).(*mat.Dense).Copy(&scaled)
	out.Set(0, 3, float64(h.QoffsetX))
	out.Set(1, 3, float64(h.QoffsetY))
	out.Set(2, 3, float64(h.QoffsetZ))
	out.Set(3, 3, 1)
	return out
}

// pixdimAffine is the fall-back affine when neither qform nor sform is set.
func pixdimAffine(h *Header) *mat.Dense {
	out := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		s := float64(h.Pixdim[i+1])
		if s == 0 {
			s = 1
		}
		out.Set(i, i, s)
	}
	out.Set(3, 3, 1)
	return out
}

// headerAffine chooses sform, then qform, then pixdim, matching nibabel.
func headerAffine(h *Header) *mat.Dense {
	switch {
	case h.SformCode > 0:
		return sformAffine(h)
	case h.QformCode > 0:
		return qformAffine(h)
	default:
		return pixdimAffine(h)
	}
}

// setSform writes an affine into the srow_* fields.
func setSform(h *Header, a mat.Matrix) {
	for j := 0; j < 4; j++ {
		h.SrowX[j] = float32(a.At(0, j))
		h.SrowY[j] = float32(a.At(1, j))
		h.SrowZ[j] = float32(a.At(2, j))
	}
}
