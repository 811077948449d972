package contracts

import "image"

// Metadata is the best-effort description of a source image. Orientation is
// an EXIF orientation code in [1,8].
type Metadata struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation int    `json:"orientation"`
	Estimated   bool   `json:"estimated,omitempty"`
	DateTaken   string `json:"dateTaken,omitempty"`
}

func DefaultMetadata() Metadata {
	return Metadata{Orientation: 1}
}

// PixelBuffer is a dense RGBA raster whose Width and Height already reflect
// the orientation correction applied during decode.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

func NewPixelBuffer(img *image.RGBA) PixelBuffer {
	b := img.Bounds()
	pix := img.Pix
	if b.Min != (image.Point{}) || img.Stride != 4*b.Dx() {
		dense := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			src := img.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dense.Pix[y*dense.Stride:(y+1)*dense.Stride], img.Pix[src:src+4*b.Dx()])
		}
		pix = dense.Pix
	}
	return PixelBuffer{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    pix,
	}
}

// RGBA exposes the buffer as an *image.RGBA without copying.
func (p PixelBuffer) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    p.Pix,
		Stride: 4 * p.Width,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}
