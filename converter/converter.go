// Package converter runs the decode and encode stages for a single file.
package converter

import (
	"photoconv/contracts"
	"photoconv/decoder"
	"photoconv/encoder"
	"photoconv/logging"
)

type Converter struct {
	dec *decoder.Decoder
	enc *encoder.Encoder
	log *logging.Logger
}

func New(dec *decoder.Decoder, enc *encoder.Encoder, log *logging.Logger) *Converter {
	return &Converter{dec: dec, enc: enc, log: log}
}

// Convert decodes file with the orientation from md and encodes it as req
// asks. Errors are *contracts.DecodeError or *contracts.EncodeError.
func (c *Converter) Convert(file contracts.InputFile, md contracts.Metadata, req contracts.ConversionRequest) (contracts.ConversionResult, error) {
	buf, err := c.dec.Decode(file, md)
	if err != nil {
		return contracts.ConversionResult{}, err
	}
	c.log.Debug("%s: decoded %dx%d (orientation %d)", file.Name, buf.Width, buf.Height, md.Orientation)

	out, err := c.enc.Encode(file.Name, buf, req)
	if err != nil {
		return contracts.ConversionResult{}, err
	}

	return contracts.ConversionResult{
		FileID:             file.ID,
		FileName:           file.Name,
		Format:             req.TargetFormat,
		OutputBytes:        out.Bytes,
		AchievedQuality:    out.AchievedQuality,
		AchievedSizeTarget: out.AchievedSizeTarget,
		ThumbnailBytes:     out.Thumbnail,
		Width:              buf.Width,
		Height:             buf.Height,
	}, nil
}

var _ contracts.Converter = (*Converter)(nil)
