package batch

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"photoconv/contracts"
	"photoconv/converter"
	"photoconv/decoder"
	"photoconv/dispatcher"
	"photoconv/encoder"
	"photoconv/logging"
	"photoconv/metadata"
	"photoconv/utils"
)

type recordingReporter struct {
	mu        sync.Mutex
	converted []string
	failed    []string
	progress  [][2]int
	complete  [][2]int
}

func (r *recordingReporter) FileConverted(res contracts.ConversionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converted = append(r.converted, res.FileName)
}

func (r *recordingReporter) FileFailed(f contracts.InputFile, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, f.Name)
}

func (r *recordingReporter) Progress(completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [2]int{completed, total})
}

func (r *recordingReporter) BatchComplete(converted, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = append(r.complete, [2]int{converted, failed})
}

func newDispatcher(workerMode bool) *dispatcher.Dispatcher {
	dec := decoder.New(decoder.Options{Native: []decoder.DecodeCapability{}})
	conv := converter.New(dec, encoder.New(encoder.Options{}), nil)
	var w dispatcher.Worker
	if workerMode {
		w = dispatcher.NewInProcessWorker(dispatcher.NewConvertHandler(conv, nil), nil)
	}
	return dispatcher.New(w, conv, metadata.NewExtractor(dec, nil), nil)
}

func threeFiles() []contracts.InputFile {
	return []contracts.InputFile{
		contracts.NewInputFile("one.png", utils.PNG(utils.Gradient(16, 12)), "image/png"),
		contracts.NewInputFile("two.jpg", []byte("\xff\xd8 corrupted beyond repair"), "image/jpeg"),
		contracts.NewInputFile("three.jpg", utils.JPEG(utils.Gradient(20, 10), 85), "image/jpeg"),
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	for _, workerMode := range []bool{false, true} {
		name := "local"
		if workerMode {
			name = "worker"
		}
		t.Run(name, func(t *testing.T) {
			rep := &recordingReporter{}
			d := newDispatcher(workerMode)
			defer d.Close()

			job := New(d, rep, nil).Run(threeFiles(), contracts.ConversionRequest{TargetFormat: contracts.FormatJPEG, Quality: 0.8})

			if job.Total != 3 || job.Completed != 3 {
				t.Errorf("completed %d of %d, want 3 of 3", job.Completed, job.Total)
			}
			if len(job.Results) != 2 || len(job.Errors) != 1 {
				t.Fatalf("%d results and %d errors, want 2 and 1", len(job.Results), len(job.Errors))
			}
			if job.Results[0].FileName != "one.png" || job.Results[1].FileName != "three.jpg" {
				t.Errorf("results out of order: %s, %s", job.Results[0].FileName, job.Results[1].FileName)
			}
			var de *contracts.DecodeError
			if job.Errors[0].File.Name != "two.jpg" || !errors.As(job.Errors[0].Err, &de) {
				t.Errorf("error %+v, want DecodeError for two.jpg", job.Errors[0])
			}
			if job.Succeeded() {
				t.Error("Succeeded() with a failed file")
			}

			if len(rep.progress) != 3 || rep.progress[2] != [2]int{3, 3} {
				t.Errorf("progress calls %v", rep.progress)
			}
			if len(rep.complete) != 1 || rep.complete[0] != [2]int{2, 1} {
				t.Errorf("BatchComplete calls %v, want one (2,1)", rep.complete)
			}
		})
	}
}

func TestRunEmptyBatch(t *testing.T) {
	rep := &recordingReporter{}
	job := New(newDispatcher(false), rep, nil).Run(nil, contracts.ConversionRequest{TargetFormat: contracts.FormatPNG, Quality: 1})
	if job.Total != 0 || job.Completed != 0 || !job.Succeeded() {
		t.Errorf("job %+v", job)
	}
	if len(rep.complete) != 1 || rep.complete[0] != [2]int{0, 0} {
		t.Errorf("BatchComplete calls %v", rep.complete)
	}
}

func TestRunAllFailed(t *testing.T) {
	files := []contracts.InputFile{
		contracts.NewInputFile("a.png", []byte("x"), ""),
		contracts.NewInputFile("b.png", nil, ""),
	}
	job := New(newDispatcher(false), nil, nil).Run(files, contracts.ConversionRequest{TargetFormat: contracts.FormatPNG, Quality: 1})
	if job.Completed != 2 || len(job.Errors) != 2 || len(job.Results) != 0 {
		t.Errorf("job completed=%d errors=%d results=%d", job.Completed, len(job.Errors), len(job.Results))
	}
}

func TestRunIdempotent(t *testing.T) {
	req := contracts.ConversionRequest{TargetFormat: contracts.FormatPDF, Quality: 0.9}
	mk := func() []contracts.InputFile {
		return []contracts.InputFile{
			contracts.NewInputFile("p.png", utils.PNG(utils.Gradient(30, 40)), ""),
			contracts.NewInputFile("j.jpg", utils.JPEG(utils.Gradient(40, 30), 90), ""),
		}
	}
	a := New(newDispatcher(true), nil, nil).Run(mk(), req)
	b := New(newDispatcher(true), nil, nil).Run(mk(), req)
	if len(a.Results) != 2 || len(b.Results) != 2 {
		t.Fatalf("results %d and %d", len(a.Results), len(b.Results))
	}
	for i := range a.Results {
		if !bytes.Equal(a.Results[i].OutputBytes, b.Results[i].OutputBytes) {
			t.Errorf("%s: output differs between runs", a.Results[i].FileName)
		}
		if !bytes.Equal(a.Results[i].ThumbnailBytes, b.Results[i].ThumbnailBytes) {
			t.Errorf("%s: thumbnail differs between runs", a.Results[i].FileName)
		}
	}
}

// gateDispatcher blocks each dispatch until released.
type gateDispatcher struct {
	inFlight, maxInFlight int
	mu                    sync.Mutex
	release               chan struct{}
}

func (g *gateDispatcher) Dispatch(f contracts.InputFile, _ contracts.ConversionRequest) dispatcher.Outcome {
	g.mu.Lock()
	g.inFlight++
	g.maxInFlight = max(g.maxInFlight, g.inFlight)
	g.mu.Unlock()

	<-g.release

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	if strings.HasPrefix(f.Name, "panic") {
		panic("dispatcher exploded")
	}
	return dispatcher.Converted{Result: contracts.ConversionResult{FileID: f.ID, FileName: f.Name}}
}

func TestStartIsAsyncAndSequential(t *testing.T) {
	g := &gateDispatcher{release: make(chan struct{})}
	files := []contracts.InputFile{
		contracts.NewInputFile("a", nil, ""),
		contracts.NewInputFile("panic-b", nil, ""),
		contracts.NewInputFile("c", nil, ""),
	}

	job := New(g, nil, logging.NewWriterLogger(&bytes.Buffer{}, false)).Start(files, contracts.ConversionRequest{})
	select {
	case <-job.Done():
		t.Fatal("job finished before any file was released")
	case <-time.After(20 * time.Millisecond):
	}

	for range files {
		g.release <- struct{}{}
	}
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	if g.maxInFlight != 1 {
		t.Errorf("max in flight = %d, want 1", g.maxInFlight)
	}
	if len(job.Results) != 2 || len(job.Errors) != 1 {
		t.Fatalf("results %d errors %d", len(job.Results), len(job.Errors))
	}
	var xe *contracts.DispatchError
	if !errors.As(job.Errors[0].Err, &xe) {
		t.Errorf("panic surfaced as %v, want DispatchError", job.Errors[0].Err)
	}
}

func TestAggregateOutOfOrder(t *testing.T) {
	files := []contracts.InputFile{
		contracts.NewInputFile("first", nil, ""),
		contracts.NewInputFile("second", nil, ""),
		contracts.NewInputFile("third", nil, ""),
	}
	job := newJob(files)
	rep := &recordingReporter{}
	o := New(nil, rep, nil)

	events := make(chan completion, 5)
	ok := func(f contracts.InputFile) completion {
		return completion{fileID: f.ID, outcome: dispatcher.Converted{Result: contracts.ConversionResult{FileID: f.ID, FileName: f.Name}}}
	}
	events <- ok(files[2])
	events <- completion{fileID: "stranger", outcome: dispatcher.Converted{}}
	events <- ok(files[0])
	events <- ok(files[2])
	events <- completion{fileID: files[1].ID, outcome: dispatcher.Errored{FileName: "second", Err: errors.New("bad")}}
	close(events)

	o.aggregate(job, events)

	if job.Completed != 3 {
		t.Errorf("Completed = %d, want 3", job.Completed)
	}
	if len(job.Results) != 2 || job.Results[0].FileName != "first" || job.Results[1].FileName != "third" {
		t.Errorf("results %+v, want first, third", job.Results)
	}
	if len(job.Errors) != 1 || job.Errors[0].File.Name != "second" {
		t.Errorf("errors %+v", job.Errors)
	}
	if strings.Join(rep.converted, ",") != "first,third" || strings.Join(rep.failed, ",") != "second" {
		t.Errorf("reporter saw converted=%v failed=%v", rep.converted, rep.failed)
	}
	select {
	case <-job.Done():
	default:
		t.Error("Done not closed")
	}
}

func waitDone(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("batch never completed (completed %d of %d)", job.Completed, job.Total)
	}
}

func TestRunFilesWithoutDistinctIDs(t *testing.T) {
	png := utils.PNG(utils.Gradient(8, 6))
	req := contracts.ConversionRequest{TargetFormat: contracts.FormatPNG, Quality: 1}
	same := contracts.NewInputFile("same.png", png, "")

	tests := []struct {
		name  string
		files []contracts.InputFile
	}{
		{"no ids", []contracts.InputFile{{Name: "a.png", Bytes: png}, {Name: "b.png", Bytes: png}}},
		{"same file twice", []contracts.InputFile{same, same}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondID := tt.files[1].ID
			rep := &recordingReporter{}
			job := New(newDispatcher(true), rep, nil).Start(tt.files, req)
			waitDone(t, job)

			if job.Completed != 2 || len(job.Results) != 2 {
				t.Fatalf("completed=%d results=%d errors=%v", job.Completed, len(job.Results), job.Errors)
			}
			if job.Results[0].FileID == "" || job.Results[0].FileID == job.Results[1].FileID {
				t.Errorf("result ids %q and %q, want distinct", job.Results[0].FileID, job.Results[1].FileID)
			}
			if len(rep.complete) != 1 || rep.complete[0] != [2]int{2, 0} {
				t.Errorf("BatchComplete calls %v", rep.complete)
			}
			if tt.files[1].ID != secondID {
				t.Error("caller's slice was modified")
			}
		})
	}
}

func TestAggregateClosesOnShortSubmission(t *testing.T) {
	files := []contracts.InputFile{
		contracts.NewInputFile("first", nil, ""),
		contracts.NewInputFile("second", nil, ""),
	}
	job := newJob(files)
	rep := &recordingReporter{}

	events := make(chan completion, 1)
	events <- completion{fileID: files[0].ID, outcome: dispatcher.Converted{Result: contracts.ConversionResult{FileName: "first"}}}
	close(events)
	New(nil, rep, nil).aggregate(job, events)

	waitDone(t, job)
	if len(rep.complete) != 1 || rep.complete[0] != [2]int{1, 0} {
		t.Errorf("BatchComplete calls %v", rep.complete)
	}
}

type memSink struct{ saved []string }

func (m *memSink) Save(res contracts.ConversionResult) (string, error) {
	if res.FileName == "reject" {
		return "", errors.New("disk full")
	}
	m.saved = append(m.saved, res.FileName)
	return "/out/" + res.FileName, nil
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	sink := &memSink{}
	r := NewLogReporter(logging.NewWriterLogger(&buf, false), sink)

	q := 80
	r.Progress(1, 3)
	r.FileConverted(contracts.ConversionResult{FileName: "a.jpg", OutputBytes: make([]byte, 2048), AchievedQuality: &q})
	r.Progress(2, 3)
	r.FileFailed(contracts.InputFile{Name: "b.jpg"}, errors.New("broken"))
	r.Progress(3, 3)
	r.FileConverted(contracts.ConversionResult{FileName: "reject", OutputBytes: make([]byte, 1024), Fallback: true})
	r.BatchComplete(2, 1)

	out := buf.String()
	for _, want := range []string{
		"[1/3] a.jpg -> /out/a.jpg (2.0 KiB, q=80)",
		"[2/3] b.jpg: broken",
		"[3/3] reject: save failed: disk full",
		"2 converted, 1 failed, 1 local fallbacks, 3.0 KiB written",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if r.Saved() != 1 {
		t.Errorf("Saved() = %d, want 1", r.Saved())
	}
}
