// Package rasterize fills polygon outlines into binary masks.
package rasterize

import (
	"image"
	"image/color"
	"math"
	"slices"
)

// Point is a vertex in image coordinates: X is the column, Y is the row.
type Point struct {
	X, Y float64
}

// On is the mask value for pixels inside a polygon.
var On = color.Gray{Y: 255}

// edge is a non-horizontal polygon side, stored with y0 < y1.
type edge struct {
	x0, y0 float64
	x1, y1 float64
}

// crossing returns the x where the edge meets the horizontal line at y.
func (e edge) crossing(y float64) float64 {
	return e.x0 + (y-e.y0)*(e.x1-e.x0)/(e.y1-e.y0)
}

// edges collects the polygon sides, closing the outline and dropping horizontals.
func edges(points []Point) []edge {
	out := make([]edge, 0, len(points))
	for i, p := range points {
		q := points[(i+1)%len(points)]
		if p.Y == q.Y {
			continue
		}
		if p.Y < q.Y {
			out = append(out, edge{p.X, p.Y, q.X, q.Y})
		} else {
			out = append(out, edge{q.X, q.Y, p.X, p.Y})
		}
	}
	return out
}

// Polygon rasterizes a closed polygon into a width x height mask using the
// even-odd rule. A pixel is set when its centre, taken at integer (col, row)
// coordinates, lies inside the outline. Each edge covers the half-open row range
// [y0, y1), so shared vertices are counted once. Parts outside the mask are
// clipped. Polygons with fewer than 3 points produce an empty mask.
func Polygon(points []Point, width, height int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	if len(points) < 3 || width <= 0 || height <= 0 {
		return mask
	}
	Fill(mask, points)
	return mask
}

// Fill sets the pixels of mask covered by the polygon, leaving the rest untouched.
func Fill(mask *image.Gray, points []Point) {
	if len(points) < 3 {
		return
	}
	es := edges(points)
	if len(es) == 0 {
		return
	}

	b := mask.Bounds()
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, e := range es {
		yMin = math.Min(yMin, e.y0)
		yMax = math.Max(yMax, e.y1)
	}
	rowStart, rowEnd := span(yMin, yMax, b.Min.Y, b.Max.Y)

	xs := make([]float64, 0, len(es))
	for row := rowStart; row <= rowEnd; row++ {
		y := float64(row)
		xs = xs[:0]
		for _, e := range es {
			if e.y0 <= y && y < e.y1 {
				xs = append(xs, e.crossing(y))
			}
		}
		slices.Sort(xs)

		for k := 0; k+1 < len(xs); k += 2 {
			colStart, colEnd := span(xs[k], xs[k+1], b.Min.X, b.Max.X)
			for col := colStart; col <= colEnd; col++ {
				mask.SetGray(col, row, On)
			}
		}
	}
}

// span returns the integer range [start, end] of pixel centres in [lo, hi],
// clipped to [minPix, maxPix). Clipping happens in float64 so coordinates
// beyond the int range convert safely. An empty range has start > end.
func span(lo, hi float64, minPix, maxPix int) (start, end int) {
	first := math.Max(math.Ceil(lo), float64(minPix))
	last := math.Min(math.Floor(hi), float64(maxPix-1))
	if math.IsNaN(first) || math.IsNaN(last) || first > last {
		return 1, 0
	}
	return int(first), int(last)
}

// Area returns the number of set pixels in a mask.
func Area(mask *image.Gray) int {
	n := 0
	for _, v := range mask.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}
