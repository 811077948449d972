package converter

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"photoconv/contracts"
	"photoconv/decoder"
	"photoconv/encoder"
	"photoconv/utils"
)

type pngPayload struct{}

func (pngPayload) Name() string    { return "payload" }
func (pngPayload) Available() bool { return true }
func (pngPayload) Decode(data []byte) (image.Image, error) {
	p, ok := utils.HEICPayload(data)
	if !ok {
		return nil, errors.New("no payload")
	}
	return png.Decode(bytes.NewReader(p))
}

func newConverter(caps ...decoder.DecodeCapability) *Converter {
	dec := decoder.New(decoder.Options{Native: caps})
	return New(dec, encoder.New(encoder.Options{}), nil)
}

func TestConvertResultShape(t *testing.T) {
	file := contracts.NewInputFile("IMG_0007.jpg", utils.JPEG(utils.Gradient(40, 30), 90), "image/jpeg")
	req := contracts.ConversionRequest{TargetFormat: contracts.FormatPNG, Quality: 0.9, MetadataPolicy: contracts.MetadataStrip}

	res, err := newConverter().Convert(file, contracts.Metadata{Width: 40, Height: 30, Orientation: 6}, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.FileID != file.ID || res.FileName != file.Name || res.Format != contracts.FormatPNG {
		t.Errorf("identity fields %+v", res)
	}
	if res.Width != 30 || res.Height != 40 {
		t.Errorf("result %dx%d, want 30x40", res.Width, res.Height)
	}
	if len(res.OutputBytes) == 0 || len(res.ThumbnailBytes) == 0 {
		t.Error("missing output or thumbnail")
	}
	if res.Fallback {
		t.Error("local conversion must not be flagged as fallback")
	}
}

func TestConvertHEICMatchesRaster(t *testing.T) {
	img := utils.Gradient(24, 16)
	req := contracts.ConversionRequest{TargetFormat: contracts.FormatPNG, Quality: 1}
	md := contracts.Metadata{Orientation: 3}

	c := newConverter(pngPayload{})
	heicRes, err := c.Convert(contracts.NewInputFile("a.heic", utils.FakeHEIC(nil, utils.PNG(img)), ""), md, req)
	if err != nil {
		t.Fatal(err)
	}
	pngRes, err := c.Convert(contracts.NewInputFile("a.png", utils.PNG(img), ""), md, req)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(heicRes.OutputBytes, pngRes.OutputBytes) {
		t.Error("HEIC and PNG sources of the same pixels produced different output")
	}
	if heicRes.Width != pngRes.Width || heicRes.Height != pngRes.Height {
		t.Errorf("dimensions differ: %dx%d vs %dx%d", heicRes.Width, heicRes.Height, pngRes.Width, pngRes.Height)
	}
}

func TestConvertErrors(t *testing.T) {
	c := newConverter()
	req := contracts.ConversionRequest{TargetFormat: contracts.FormatJPEG, Quality: 0.8}

	_, err := c.Convert(contracts.NewInputFile("bad.png", []byte("garbage"), ""), contracts.DefaultMetadata(), req)
	var de *contracts.DecodeError
	if !errors.As(err, &de) {
		t.Errorf("garbage: %v, want DecodeError", err)
	}

	req.TargetFormat = "bmp"
	_, err = c.Convert(contracts.NewInputFile("ok.png", utils.PNG(utils.Gradient(4, 4)), ""), contracts.DefaultMetadata(), req)
	var ee *contracts.EncodeError
	if !errors.As(err, &ee) {
		t.Errorf("bad format: %v, want EncodeError", err)
	}
}
