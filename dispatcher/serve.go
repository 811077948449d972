package dispatcher

import (
	"errors"
	"fmt"
	"io"

	goerrors "github.com/go-errors/errors"

	"photoconv/contracts"
	"photoconv/decoder"
	"photoconv/logging"
)

// Handler answers one worker request.
type Handler interface {
	Handle(req Request) Response
}

// ConvertHandler is the worker-side handler. Its converter should be built
// without the bundled HEIC decoder; HEIC files it cannot decode are handed
// back to the caller as fallback requests.
type ConvertHandler struct {
	conv contracts.Converter
	log  *logging.Logger
}

func NewConvertHandler(conv contracts.Converter, log *logging.Logger) *ConvertHandler {
	return &ConvertHandler{conv: conv, log: log}
}

func (h *ConvertHandler) Handle(req Request) Response {
	if req.Action != ActionConvertFile {
		return errorResponse(req, fmt.Errorf("unknown action %q", req.Action))
	}

	res, err := h.conv.Convert(req.InputFile(), req.Metadata, req.ConversionRequest)
	if err != nil {
		if errors.Is(err, decoder.ErrContainerUnsupported) {
			h.log.Debug("%s: no HEIC decoder in worker, requesting fallback", req.FileName)
			return fallbackResponse(req)
		}
		return errorResponse(req, err)
	}
	return convertedResponse(res)
}

// Serve reads requests from r and writes one response per request to w
// until r is exhausted. A panicking handler produces an error response
// and the loop carries on.
func Serve(r io.Reader, w io.Writer, h Handler, log *logging.Logger) error {
	for {
		var req Request
		if err := ReadFrame(r, &req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		resp := safeHandle(h, req, log)
		if err := WriteFrame(w, resp); err != nil {
			return err
		}
	}
}

func safeHandle(h Handler, req Request, log *logging.Logger) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			wrapped := goerrors.Wrap(r, 2)
			log.Error("worker panic on %s: %v\n%s", req.FileName, r, wrapped.ErrorStack())
			resp = errorResponse(req, &contracts.DispatchError{FileName: req.FileName, Cause: wrapped})
		}
	}()
	return h.Handle(req)
}
