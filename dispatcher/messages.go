package dispatcher

import (
	"errors"

	"photoconv/contracts"
)

const ActionConvertFile = "convert_file"

const (
	TypeFileConverted       = "file_converted"
	TypeHEICFallbackRequest = "heic_fallback_request"
	TypeError               = "error"
)

// Error kinds carried by TypeError responses.
const (
	kindDecode = "decode"
	kindEncode = "encode"
)

// Request is the message sent to a worker.
type Request struct {
	Action            string                      `json:"action"`
	FileID            string                      `json:"fileId"`
	FileBytes         []byte                      `json:"fileBytes"`
	FileName          string                      `json:"fileName"`
	TypeHint          string                      `json:"typeHint,omitempty"`
	Metadata          contracts.Metadata          `json:"metadata"`
	ConversionRequest contracts.ConversionRequest `json:"conversionRequest"`
}

func NewRequest(file contracts.InputFile, md contracts.Metadata, req contracts.ConversionRequest) Request {
	return Request{
		Action:            ActionConvertFile,
		FileID:            file.ID,
		FileBytes:         file.Bytes,
		FileName:          file.Name,
		TypeHint:          file.TypeHint,
		Metadata:          md,
		ConversionRequest: req,
	}
}

func (r Request) InputFile() contracts.InputFile {
	return contracts.InputFile{
		ID:       r.FileID,
		Name:     r.FileName,
		Bytes:    r.FileBytes,
		TypeHint: r.TypeHint,
	}
}

// Response is a worker reply. Which fields are set depends on Type: a
// fallback request echoes the original request fields back.
type Response struct {
	Type     string `json:"type"`
	FileID   string `json:"fileId,omitempty"`
	FileName string `json:"fileName"`

	OutputBytes        []byte `json:"outputBytes,omitempty"`
	ThumbnailBytes     []byte `json:"thumbnailBytes,omitempty"`
	AchievedQuality    *int   `json:"achievedQuality,omitempty"`
	AchievedSizeTarget *int   `json:"achievedSizeTarget,omitempty"`
	Width              int    `json:"width,omitempty"`
	Height             int    `json:"height,omitempty"`

	FileBytes         []byte                       `json:"fileBytes,omitempty"`
	TypeHint          string                       `json:"typeHint,omitempty"`
	Metadata          *contracts.Metadata          `json:"metadata,omitempty"`
	ConversionRequest *contracts.ConversionRequest `json:"conversionRequest,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

func convertedResponse(res contracts.ConversionResult) Response {
	return Response{
		Type:               TypeFileConverted,
		FileID:             res.FileID,
		FileName:           res.FileName,
		OutputBytes:        res.OutputBytes,
		ThumbnailBytes:     res.ThumbnailBytes,
		AchievedQuality:    res.AchievedQuality,
		AchievedSizeTarget: res.AchievedSizeTarget,
		Width:              res.Width,
		Height:             res.Height,
	}
}

func fallbackResponse(req Request) Response {
	md, cr := req.Metadata, req.ConversionRequest
	return Response{
		Type:              TypeHEICFallbackRequest,
		FileID:            req.FileID,
		FileName:          req.FileName,
		FileBytes:         req.FileBytes,
		TypeHint:          req.TypeHint,
		Metadata:          &md,
		ConversionRequest: &cr,
	}
}

func errorResponse(req Request, err error) Response {
	resp := Response{
		Type:     TypeError,
		FileID:   req.FileID,
		FileName: req.FileName,
		Error:    err.Error(),
	}
	var (
		de *contracts.DecodeError
		ee *contracts.EncodeError
		xe *contracts.DispatchError
	)
	switch {
	case errors.As(err, &de):
		resp.ErrorKind, resp.Error = kindDecode, de.Cause.Error()
	case errors.As(err, &ee):
		resp.ErrorKind, resp.Error = kindEncode, ee.Cause.Error()
	case errors.As(err, &xe):
		resp.Error = xe.Cause.Error()
	}
	return resp
}

// Outcome is what a worker response means to the dispatcher: exactly one
// of Converted, FallbackRequested or Errored.
type Outcome interface {
	outcome()
}

type Converted struct {
	Result contracts.ConversionResult
}

// FallbackRequested carries the original request back to the calling
// context, which must redo the work itself.
type FallbackRequested struct {
	Request Request
}

type Errored struct {
	FileName string
	Err      error
}

func (Converted) outcome()         {}
func (FallbackRequested) outcome() {}
func (Errored) outcome()           {}

var errMalformedResponse = errors.New("malformed worker response")

// interpret maps a worker response for req to an Outcome.
func interpret(req Request, resp Response) Outcome {
	if resp.FileID != "" && resp.FileID != req.FileID {
		return Errored{FileName: req.FileName, Err: &contracts.DispatchError{FileName: req.FileName, Cause: errMalformedResponse}}
	}
	switch resp.Type {
	case TypeFileConverted:
		return Converted{Result: contracts.ConversionResult{
			FileID:             req.FileID,
			FileName:           req.FileName,
			Format:             req.ConversionRequest.TargetFormat,
			OutputBytes:        resp.OutputBytes,
			AchievedQuality:    resp.AchievedQuality,
			AchievedSizeTarget: resp.AchievedSizeTarget,
			ThumbnailBytes:     resp.ThumbnailBytes,
			Width:              resp.Width,
			Height:             resp.Height,
		}}

	case TypeHEICFallbackRequest:
		back := req
		if resp.FileBytes != nil {
			back.FileBytes = resp.FileBytes
		}
		if resp.Metadata != nil {
			back.Metadata = *resp.Metadata
		}
		if resp.ConversionRequest != nil {
			back.ConversionRequest = *resp.ConversionRequest
		}
		return FallbackRequested{Request: back}

	case TypeError:
		cause := errors.New(resp.Error)
		var err error
		switch resp.ErrorKind {
		case kindDecode:
			err = &contracts.DecodeError{FileName: req.FileName, Cause: cause}
		case kindEncode:
			err = &contracts.EncodeError{FileName: req.FileName, Format: req.ConversionRequest.TargetFormat, Cause: cause}
		default:
			err = &contracts.DispatchError{FileName: req.FileName, Cause: cause}
		}
		return Errored{FileName: req.FileName, Err: err}
	}
	return Errored{FileName: req.FileName, Err: &contracts.DispatchError{FileName: req.FileName, Cause: errMalformedResponse}}
}
