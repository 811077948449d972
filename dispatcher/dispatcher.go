// Package dispatcher sends conversions to an isolated worker and redoes
// HEIC work in the calling context when the worker asks for it.
package dispatcher

import (
	"sync/atomic"

	"photoconv/contracts"
	"photoconv/logging"
	"photoconv/metadata"
)

// Dispatcher converts one file at a time. With a nil worker every file is
// converted on the calling goroutine.
type Dispatcher struct {
	worker    Worker
	local     contracts.Converter
	extractor *metadata.Extractor
	log       *logging.Logger

	fallbacks atomic.Int64
}

func New(worker Worker, local contracts.Converter, extractor *metadata.Extractor, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		worker:    worker,
		local:     local,
		extractor: extractor,
		log:       log,
	}
}

// Dispatch converts file and returns either Converted or Errored.
func (d *Dispatcher) Dispatch(file contracts.InputFile, req contracts.ConversionRequest) Outcome {
	md := d.extractor.Extract(file.Bytes, file.Name, file.TypeHint)
	d.log.Debug("%s: metadata %dx%d orientation %d estimated=%v", file.Name, md.Width, md.Height, md.Orientation, md.Estimated)

	if d.worker == nil {
		return d.convertLocal(file, md, req, false)
	}

	wreq := NewRequest(file, md, req)
	resp, err := d.worker.Do(wreq)
	if err != nil {
		return Errored{FileName: file.Name, Err: asDispatchError(file.Name, err)}
	}

	switch o := interpret(wreq, resp).(type) {
	case FallbackRequested:
		d.fallbacks.Add(1)
		d.log.Debug("%s: worker requested HEIC fallback", file.Name)
		back := o.Request
		return d.convertLocal(back.InputFile(), back.Metadata, back.ConversionRequest, true)
	default:
		return o
	}
}

// Fallbacks returns how many files were redone locally at the worker's
// request.
func (d *Dispatcher) Fallbacks() int64 {
	return d.fallbacks.Load()
}

func (d *Dispatcher) Close() error {
	if d.worker == nil {
		return nil
	}
	return d.worker.Close()
}

func (d *Dispatcher) convertLocal(file contracts.InputFile, md contracts.Metadata, req contracts.ConversionRequest, fallback bool) Outcome {
	res, err := d.local.Convert(file, md, req)
	if err != nil {
		return Errored{FileName: file.Name, Err: err}
	}
	res.Fallback = fallback
	return Converted{Result: res}
}

func asDispatchError(name string, err error) error {
	if de, ok := err.(*contracts.DispatchError); ok {
		return de
	}
	return &contracts.DispatchError{FileName: name, Cause: err}
}
