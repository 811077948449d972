package dispatcher

import (
	"errors"
	"sync"

	goerrors "github.com/go-errors/errors"

	"photoconv/contracts"
	"photoconv/logging"
)

// ErrWorkerClosed is returned for requests sent after Close.
var ErrWorkerClosed = errors.New("worker closed")

// Worker is an isolated execution context. Do sends one request and waits
// for its response; an error means the request never got a usable answer.
type Worker interface {
	Do(req Request) (Response, error)
	Close() error
}

type job struct {
	req   Request
	reply chan jobReply
}

type jobReply struct {
	resp Response
	err  error
}

// InProcessWorker runs its handler on one dedicated goroutine.
type InProcessWorker struct {
	handler   Handler
	log       *logging.Logger
	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
}

func NewInProcessWorker(h Handler, log *logging.Logger) *InProcessWorker {
	w := &InProcessWorker{
		handler: h,
		log:     log,
		jobs:    make(chan job),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *InProcessWorker) loop() {
	for {
		select {
		case <-w.done:
			return
		case j := <-w.jobs:
			j.reply <- w.run(j.req)
		}
	}
}

func (w *InProcessWorker) run(req Request) (r jobReply) {
	defer func() {
		if rec := recover(); rec != nil {
			wrapped := goerrors.Wrap(rec, 2)
			w.log.Error("worker panic on %s: %v\n%s", req.FileName, rec, wrapped.ErrorStack())
			r = jobReply{err: &contracts.DispatchError{FileName: req.FileName, Cause: wrapped}}
		}
	}()
	return jobReply{resp: w.handler.Handle(req)}
}

func (w *InProcessWorker) Do(req Request) (Response, error) {
	j := job{req: req, reply: make(chan jobReply, 1)}
	select {
	case <-w.done:
		return Response{}, ErrWorkerClosed
	case w.jobs <- j:
	}
	r := <-j.reply
	return r.resp, r.err
}

func (w *InProcessWorker) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return nil
}
