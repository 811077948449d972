package batch

import (
	"fmt"

	"photoconv/contracts"
	"photoconv/logging"
)

// Sink stores a converted file and returns where it went.
type Sink interface {
	Save(res contracts.ConversionResult) (string, error)
}

// LogReporter logs per-file progress as "[completed/total] name" and hands
// results to an optional sink.
type LogReporter struct {
	log    *logging.Logger
	sink   Sink
	prefix string
	saved  int

	bytesOut  int
	fallbacks int
}

func NewLogReporter(log *logging.Logger, sink Sink) *LogReporter {
	return &LogReporter{log: log, sink: sink}
}

func (r *LogReporter) Progress(completed, total int) {
	r.prefix = fmt.Sprintf("[%d/%d]", completed, total)
}

func (r *LogReporter) FileConverted(res contracts.ConversionResult) {
	r.bytesOut += len(res.OutputBytes)
	if res.Fallback {
		r.fallbacks++
	}

	note := ""
	if res.AchievedQuality != nil {
		note = fmt.Sprintf(", q=%d", *res.AchievedQuality)
	}
	if res.Fallback {
		note += ", local fallback"
	}

	if r.sink == nil {
		r.log.Success("%s %s: %dx%d %s, %s%s", r.prefix, res.FileName, res.Width, res.Height, res.Format, formatSize(len(res.OutputBytes)), note)
		return
	}
	path, err := r.sink.Save(res)
	if err != nil {
		r.log.Error("%s %s: save failed: %v", r.prefix, res.FileName, err)
		return
	}
	r.saved++
	r.log.Success("%s %s -> %s (%s%s)", r.prefix, res.FileName, path, formatSize(len(res.OutputBytes)), note)
}

func (r *LogReporter) FileFailed(file contracts.InputFile, err error) {
	r.log.Error("%s %s: %v", r.prefix, file.Name, err)
}

func (r *LogReporter) BatchComplete(converted, failed int) {
	summary := fmt.Sprintf("%d converted, %d failed, %d local fallbacks, %s written", converted, failed, r.fallbacks, formatSize(r.bytesOut))
	r.bytesOut, r.fallbacks = 0, 0
	if failed > 0 {
		r.log.Warn("Batch complete: %s", summary)
		return
	}
	r.log.Info("Batch complete: %s", summary)
}

// Saved returns how many results the sink accepted.
func (r *LogReporter) Saved() int {
	return r.saved
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
