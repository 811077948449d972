// Package orientation turns EXIF orientation codes into affine transforms and
// applies them to decoded rasters.
package orientation

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Transform maps source pixel space onto an upright canvas of Width×Height.
type Transform struct {
	Code   int
	Matrix f64.Aff3
	Width  int
	Height int
}

// SwapsAxes reports whether the canvas is the source rotated by 90 degrees.
func (t Transform) SwapsAxes() bool {
	return t.Code >= 5
}

// Valid reports whether code is a defined EXIF orientation.
func Valid(code int) bool {
	return code >= 1 && code <= 8
}

// Normalize returns the transform for code on a w×h source. Codes outside
// [1,8] are treated as 1.
func Normalize(code, w, h int) Transform {
	if !Valid(code) {
		code = 1
	}
	W, H := float64(w), float64(h)

	t := Transform{Code: code, Width: w, Height: h}
	switch code {
	case 1:
		t.Matrix = f64.Aff3{1, 0, 0, 0, 1, 0}
	case 2: // mirror horizontal
		t.Matrix = f64.Aff3{-1, 0, W, 0, 1, 0}
	case 3: // rotate 180
		t.Matrix = f64.Aff3{-1, 0, W, 0, -1, H}
	case 4: // mirror vertical
		t.Matrix = f64.Aff3{1, 0, 0, 0, -1, H}
	case 5: // transpose
		t.Matrix = f64.Aff3{0, 1, 0, 1, 0, 0}
	case 6: // rotate 90 CW
		t.Matrix = f64.Aff3{0, -1, H, 1, 0, 0}
	case 7: // transverse
		t.Matrix = f64.Aff3{0, -1, H, -1, 0, W}
	case 8: // rotate 90 CCW
		t.Matrix = f64.Aff3{0, 1, 0, -1, 0, W}
	}
	if t.SwapsAxes() {
		t.Width, t.Height = h, w
	}
	return t
}

// Apply returns an upright RGBA copy of img. An *image.RGBA anchored at the
// origin is returned unchanged for code 1.
func Apply(img image.Image, code int) *image.RGBA {
	b := img.Bounds()
	t := Normalize(code, b.Dx(), b.Dy())

	if rgba, ok := img.(*image.RGBA); ok && t.Code == 1 && b.Min == (image.Point{}) {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	if t.Code == 1 {
		// A pure translation; Transform's copy path misplaces offset sources.
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	m := t.Matrix
	// Shift the source origin to (0,0).
	minX, minY := float64(b.Min.X), float64(b.Min.Y)
	m[2] -= m[0]*minX + m[1]*minY
	m[5] -= m[3]*minX + m[4]*minY

	draw.NearestNeighbor.Transform(dst, m, img, b, draw.Src, nil)
	return dst
}
