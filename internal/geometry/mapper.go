// Package geometry maps preview-space coordinates onto native PDF page space.
//
// Previews use a top-left origin measured in rendered pixels; PDF user space
// uses a bottom-left origin measured in points. The mapping is linear per axis.
package geometry

import "math"

// Point is a coordinate pair.
type Point struct {
	X, Y float64
}

// Size is a width/height pair.
type Size struct {
	W, H float64
}

// usable reports whether v can serve as a scale denominator.
func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Fallback records which preview axes were unusable and replaced by the source size.
type Fallback struct {
	Width, Height bool
}

// Any reports whether either axis fell back.
func (f Fallback) Any() bool { return f.Width || f.Height }

// Scale returns the per-axis factors from preview to source. Unusable preview
// dimensions give factor 1 on that axis.
func Scale(src, preview Size) (sx, sy float64, fb Fallback) {
	sx, sy = 1, 1
	if usable(preview.W) {
		sx = src.W / preview.W
	} else {
		fb.Width = true
	}
	if usable(preview.H) {
		sy = src.H / preview.H
	} else {
		fb.Height = true
	}
	return sx, sy, fb
}

// MapToSource converts a top-left preview point into the bottom-left PDF
// origin for text on a page of size src.
func MapToSource(pt Point, src, preview Size) (Point, Fallback) {
	sx, sy, fb := Scale(src, preview)
	return Point{X: pt.X * sx, Y: src.H - pt.Y*sy}, fb
}

// PageIndex converts a 1-based page number to a 0-based index, reporting
// false when the page does not exist in a document of pageCount pages.
func PageIndex(pageNumber, pageCount int) (int, bool) {
	if pageNumber < 1 || pageNumber > pageCount {
		return 0, false
	}
	return pageNumber - 1, true
}
