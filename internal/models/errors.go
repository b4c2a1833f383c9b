package models

import "errors"

// Kind classifies conversion failures so callers can react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindInputNotFound
	KindUnsupportedRank
	KindMalformedScan
	KindMalformedAnnotation
	KindGeometryMismatch
)

var (
	// ErrInputNotFound is returned when a scan or annotation directory does not exist.
	ErrInputNotFound = errors.New("input not found")

	// ErrUnsupportedRank is returned for scans that are neither 3D nor 4D.
	ErrUnsupportedRank = errors.New("unsupported rank")

	// ErrMalformedScan is returned when a volumetric file cannot be decoded.
	ErrMalformedScan = errors.New("malformed scan")

	// ErrMalformedAnnotation is returned for unreadable or invalid annotation records.
	ErrMalformedAnnotation = errors.New("malformed annotation")

	// ErrGeometryMismatch is returned when annotations do not fit the reference volume.
	ErrGeometryMismatch = errors.New("geometry mismatch")
)

func (k Kind) String() string {
	switch k {
	case KindInputNotFound:
		return "InputNotFound"
	case KindUnsupportedRank:
		return "UnsupportedRank"
	case KindMalformedScan:
		return "MalformedScan"
	case KindMalformedAnnotation:
		return "MalformedAnnotation"
	case KindGeometryMismatch:
		return "GeometryMismatch"
	default:
		return "Unknown"
	}
}

// KindOf reports which kind of failure err wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInputNotFound):
		return KindInputNotFound
	case errors.Is(err, ErrUnsupportedRank):
		return KindUnsupportedRank
	case errors.Is(err, ErrMalformedScan):
		return KindMalformedScan
	case errors.Is(err, ErrMalformedAnnotation):
		return KindMalformedAnnotation
	case errors.Is(err, ErrGeometryMismatch):
		return KindGeometryMismatch
	default:
		return KindUnknown
	}
}
