//go:build vips

package decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

func init() {
	registerNative(&vipsCapability{})
}

type vipsCapability struct {
	once      sync.Once
	supported bool
}

func (c *vipsCapability) Name() string { return "libvips" }

// Available starts libvips on first use and reports whether the linked
// build was compiled with HEIF support.
func (c *vipsCapability) Available() bool {
	c.once.Do(func() {
		vips.LoggingSettings(nil, vips.LogLevelError)
		vips.Startup(nil)
		c.supported = vips.IsTypeSupported(vips.ImageTypeHEIF)
	})
	return c.supported
}

func (c *vipsCapability) Decode(data []byte) (image.Image, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips load: %w", err)
	}
	defer ref.Close()

	buf, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export: %w", err)
	}
	return png.Decode(bytes.NewReader(buf))
}
