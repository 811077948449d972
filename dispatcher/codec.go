package dispatcher

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// maxFrameSize bounds a single message; larger length prefixes are treated
// as a corrupt stream.
const maxFrameSize = 1 << 30

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	},
}

// WriteFrame writes v as JSON, zstd-compressed, behind a 4-byte
// little-endian length.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	enc := zstdEncPool.Get().(*zstd.Encoder)
	compressed := enc.EncodeAll(payload, nil)
	zstdEncPool.Put(enc)

	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(compressed)))
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame written by WriteFrame into v. A clean end of
// stream before the length prefix returns io.EOF.
func ReadFrame(r io.Reader, v any) error {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("read frame length: %w", err)
	}
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	if size > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", size)
	}

	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return fmt.Errorf("read frame: %w", err)
	}

	dec := zstdDecPool.Get().(*zstd.Decoder)
	payload, err := dec.DecodeAll(compressed, nil)
	zstdDecPool.Put(dec)
	if err != nil {
		return fmt.Errorf("decompress frame: %w", err)
	}

	if err := json.NewDecoder(bytes.NewReader(payload)).Decode(v); err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}
	return nil
}
