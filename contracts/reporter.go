package contracts

// ProgressReporter is the presentation collaborator. Calls arrive from a
// single goroutine, one at a time.
type ProgressReporter interface {
	FileConverted(result ConversionResult)
	FileFailed(file InputFile, err error)
	Progress(completed, total int)
	BatchComplete(converted, failed int)
}

type NopReporter struct{}

func (NopReporter) FileConverted(ConversionResult) {}
func (NopReporter) FileFailed(InputFile, error)    {}
func (NopReporter) Progress(int, int)              {}
func (NopReporter) BatchComplete(int, int)         {}
