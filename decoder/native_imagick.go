//go:build imagick

package decoder

import (
	"fmt"
	"image"
	"sync"

	"gopkg.in/gographics/imagick.v2/imagick"
)

func init() {
	registerNative(&imagickCapability{})
}

type imagickCapability struct {
	once      sync.Once
	supported bool
}

func (c *imagickCapability) Name() string { return "imagemagick" }

func (c *imagickCapability) Available() bool {
	c.once.Do(func() {
		imagick.Initialize()
		c.supported = len(imagick.QueryFormats("HEIC")) > 0
	})
	return c.supported
}

func (c *imagickCapability) Decode(data []byte) (image.Image, error) {
	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	if err := mw.ReadImageBlob(data); err != nil {
		return nil, fmt.Errorf("imagick read: %w", err)
	}
	w, h := mw.GetImageWidth(), mw.GetImageHeight()
	raw, err := mw.ExportImagePixels(0, 0, w, h, "RGBA", imagick.PIXEL_CHAR)
	if err != nil {
		return nil, fmt.Errorf("imagick export: %w", err)
	}
	pix, ok := raw.([]byte)
	if !ok || len(pix) != int(w*h*4) {
		return nil, fmt.Errorf("imagick export: unexpected pixel buffer %T", raw)
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: 4 * int(w),
		Rect:   image.Rect(0, 0, int(w), int(h)),
	}, nil
}
