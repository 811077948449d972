package dispatcher

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"photoconv/contracts"
)

func TestFrameRoundTrip(t *testing.T) {
	q := 73
	in := []Response{
		{Type: TypeFileConverted, FileID: "1", FileName: "a.jpg", OutputBytes: bytes.Repeat([]byte{7}, 5000), AchievedQuality: &q, Width: 3, Height: 4},
		{Type: TypeError, FileName: "b.png", Error: "bad", ErrorKind: kindDecode},
		{Type: TypeHEICFallbackRequest, FileName: "c.heic", Metadata: &contracts.Metadata{Width: 1, Height: 2, Orientation: 6}},
	}

	var stream bytes.Buffer
	for _, r := range in {
		if err := WriteFrame(&stream, r); err != nil {
			t.Fatal(err)
		}
	}
	for i, want := range in {
		var got Response
		if err := ReadFrame(&stream, &got); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got.Type != want.Type || got.FileName != want.FileName || !bytes.Equal(got.OutputBytes, want.OutputBytes) {
			t.Errorf("frame %d = %+v", i, got)
		}
		if want.AchievedQuality != nil && (got.AchievedQuality == nil || *got.AchievedQuality != *want.AchievedQuality) {
			t.Errorf("frame %d: AchievedQuality = %v", i, got.AchievedQuality)
		}
		if want.Metadata != nil && (got.Metadata == nil || *got.Metadata != *want.Metadata) {
			t.Errorf("frame %d: Metadata = %v", i, got.Metadata)
		}
	}

	var r Response
	if err := ReadFrame(&stream, &r); !errors.Is(err, io.EOF) {
		t.Errorf("read past end = %v, want io.EOF", err)
	}
}

func TestFrameCompresses(t *testing.T) {
	var stream bytes.Buffer
	req := Request{Action: ActionConvertFile, FileBytes: make([]byte, 1<<16)}
	if err := WriteFrame(&stream, req); err != nil {
		t.Fatal(err)
	}
	if stream.Len() > 1<<14 {
		t.Errorf("frame of %d bytes for 64KiB of zeros", stream.Len())
	}
}

func TestReadFrameErrors(t *testing.T) {
	huge := make([]byte, 4)
	binary.LittleEndian.PutUint32(huge, maxFrameSize+1)

	short := make([]byte, 4)
	binary.LittleEndian.PutUint32(short, 100)
	short = append(short, 1, 2, 3)

	garbage := make([]byte, 4)
	binary.LittleEndian.PutUint32(garbage, 5)
	garbage = append(garbage, "hello"...)

	tests := map[string][]byte{
		"oversized":      huge,
		"truncated body": short,
		"not zstd":       garbage,
		"truncated size": {1, 2},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var r Response
			err := ReadFrame(bytes.NewReader(data), &r)
			if err == nil || errors.Is(err, io.EOF) {
				t.Errorf("ReadFrame = %v", err)
			}
		})
	}
}
