//go:build libheif

package decoder

import (
	"fmt"
	"image"

	"github.com/strukturag/libheif/go/heif"
)

func init() {
	registerNative(libheifCapability{})
}

type libheifCapability struct{}

func (libheifCapability) Name() string    { return "libheif" }
func (libheifCapability) Available() bool { return true }

func (libheifCapability) Decode(data []byte) (image.Image, error) {
	ctx, err := heif.NewContext()
	if err != nil {
		return nil, fmt.Errorf("can't create context: %w", err)
	}
	if err := ctx.ReadFromMemory(data); err != nil {
		return nil, fmt.Errorf("can't read from memory: %w", err)
	}
	handle, err := ctx.GetPrimaryImageHandle()
	if err != nil {
		return nil, fmt.Errorf("can't read primary image: %w", err)
	}
	heifImg, err := handle.DecodeImage(heif.ColorspaceUndefined, heif.ChromaUndefined, nil)
	if err != nil {
		return nil, fmt.Errorf("can't decode image: %w", err)
	}
	img, err := heifImg.GetImage()
	if err != nil {
		return nil, fmt.Errorf("can't convert image: %w", err)
	}
	return img, nil
}
