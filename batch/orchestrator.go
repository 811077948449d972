// Package batch runs a list of files through a dispatcher one at a time and
// aggregates the outcomes into a Job.
package batch

import (
	"fmt"

	goerrors "github.com/go-errors/errors"

	"photoconv/contracts"
	"photoconv/dispatcher"
	"photoconv/logging"
)

// Dispatcher converts a single file.
type Dispatcher interface {
	Dispatch(file contracts.InputFile, req contracts.ConversionRequest) dispatcher.Outcome
}

type Orchestrator struct {
	disp     Dispatcher
	reporter contracts.ProgressReporter
	log      *logging.Logger
}

// New returns an orchestrator. A nil reporter discards progress.
func New(disp Dispatcher, reporter contracts.ProgressReporter, log *logging.Logger) *Orchestrator {
	if reporter == nil {
		reporter = contracts.NopReporter{}
	}
	return &Orchestrator{disp: disp, reporter: reporter, log: log}
}

type completion struct {
	fileID  string
	outcome dispatcher.Outcome
}

// Run converts files and blocks until the batch is complete.
func (o *Orchestrator) Run(files []contracts.InputFile, req contracts.ConversionRequest) *Job {
	job := o.Start(files, req)
	job.Wait()
	return job
}

// Start begins converting files and returns immediately. Files are
// dispatched sequentially with at most one in flight.
func (o *Orchestrator) Start(files []contracts.InputFile, req contracts.ConversionRequest) *Job {
	job := newJob(files)
	events := make(chan completion)

	go o.aggregate(job, events)
	go o.submit(job, req, events)
	return job
}

func (o *Orchestrator) submit(job *Job, req contracts.ConversionRequest, events chan<- completion) {
	defer close(events)
	for _, f := range job.Items {
		events <- completion{fileID: f.ID, outcome: o.dispatch(f, req)}
	}
}

func (o *Orchestrator) dispatch(f contracts.InputFile, req contracts.ConversionRequest) (out dispatcher.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			wrapped := goerrors.Wrap(r, 2)
			o.log.Error("panic while converting %s: %v\n%s", f.Name, r, wrapped.ErrorStack())
			out = dispatcher.Errored{FileName: f.Name, Err: &contracts.DispatchError{FileName: f.Name, Cause: wrapped}}
		}
	}()
	return o.disp.Dispatch(f, req)
}

// aggregate is the only writer of job. Completions may arrive in any order;
// they are recorded in submission order.
func (o *Orchestrator) aggregate(job *Job, events <-chan completion) {
	if job.Total == 0 {
		o.reporter.BatchComplete(0, 0)
		close(job.done)
		for range events {
		}
		return
	}

	pending := make(map[int]dispatcher.Outcome)
	nextIndex := 0

	for ev := range events {
		idx, ok := job.index[ev.fileID]
		if !ok {
			o.log.Warn("completion for unknown file %s ignored", ev.fileID)
			continue
		}
		if _, dup := pending[idx]; dup || idx < nextIndex {
			o.log.Warn("duplicate completion for %s ignored", job.Items[idx].Name)
			continue
		}
		pending[idx] = ev.outcome
		job.Completed++
		o.reporter.Progress(job.Completed, job.Total)

		for {
			out, ok := pending[nextIndex]
			if !ok {
				break
			}
			o.record(job, job.Items[nextIndex], out)
			delete(pending, nextIndex)
			nextIndex++
		}

		if job.Completed == job.Total {
			o.reporter.BatchComplete(len(job.Results), len(job.Errors))
			close(job.done)
			for range events {
			}
			return
		}
	}

	// Submission ended without every file accounted for.
	o.log.Error("batch %s ended with %d of %d files completed", job.ID, job.Completed, job.Total)
	o.reporter.BatchComplete(len(job.Results), len(job.Errors))
	close(job.done)
}

func (o *Orchestrator) record(job *Job, file contracts.InputFile, out dispatcher.Outcome) {
	switch out := out.(type) {
	case dispatcher.Converted:
		job.Results = append(job.Results, out.Result)
		o.reporter.FileConverted(out.Result)
	case dispatcher.Errored:
		job.Errors = append(job.Errors, FileError{File: file, Err: out.Err})
		o.reporter.FileFailed(file, out.Err)
	default:
		err := &contracts.DispatchError{FileName: file.Name, Cause: fmt.Errorf("unexpected outcome %T", out)}
		job.Errors = append(job.Errors, FileError{File: file, Err: err})
		o.reporter.FileFailed(file, err)
	}
}
