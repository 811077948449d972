package batch

import (
	"github.com/google/uuid"

	"photoconv/contracts"
)

// FileError is a per-file failure recorded on the job.
type FileError struct {
	File contracts.InputFile
	Err  error
}

// Job is one batch. Its fields are written only by the batch's aggregator
// goroutine; read them after Done is closed.
type Job struct {
	ID        string
	Items     []contracts.InputFile
	Total     int
	Completed int
	Results   []contracts.ConversionResult // submission order
	Errors    []FileError                  // submission order

	index map[string]int
	done  chan struct{}
}

func newJob(files []contracts.InputFile) *Job {
	items := append([]contracts.InputFile(nil), files...)
	index := make(map[string]int, len(items))
	for i := range items {
		// Completions are keyed by ID, so every item needs its own.
		if _, taken := index[items[i].ID]; taken || items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		index[items[i].ID] = i
	}
	return &Job{
		ID:    uuid.New().String(),
		Items: items,
		Total: len(items),
		index: index,
		done:  make(chan struct{}),
	}
}

// Done is closed once every file has completed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Wait() {
	<-j.done
}

// Succeeded reports whether every file converted.
func (j *Job) Succeeded() bool {
	return len(j.Errors) == 0 && len(j.Results) == j.Total
}
