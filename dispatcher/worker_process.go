package dispatcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"photoconv/logging"
)

// StreamWorker talks to a worker over a pair of byte streams using the
// frame protocol. Requests are serialized: one in flight at a time.
type StreamWorker struct {
	mu     sync.Mutex
	stdin  io.WriteCloser
	stdout io.Reader
	closed bool
}

func NewStreamWorker(stdin io.WriteCloser, stdout io.Reader) *StreamWorker {
	return &StreamWorker{stdin: stdin, stdout: stdout}
}

func (w *StreamWorker) Do(req Request) (Response, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return Response{}, ErrWorkerClosed
	}

	if err := WriteFrame(w.stdin, req); err != nil {
		return Response{}, fmt.Errorf("write to worker stdin: %w", err)
	}
	var resp Response
	if err := ReadFrame(w.stdout, &resp); err != nil {
		return Response{}, fmt.Errorf("read worker response: %w", err)
	}
	return resp, nil
}

func (w *StreamWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.stdin.Close()
}

// ProcessWorker is a child process running "-serve-worker".
type ProcessWorker struct {
	*StreamWorker
	cmd      *exec.Cmd
	waitOnce sync.Once
	waitErr  error
}

// StartProcessWorker launches bin (this executable when empty) in worker
// mode. The child's stderr is forwarded to ours.
func StartProcessWorker(bin string, args []string, log *logging.Logger) (*ProcessWorker, error) {
	if bin == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		bin = self
	}
	cmd := exec.Command(bin, append([]string{"-serve-worker"}, args...)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker start failed: %w", err)
	}
	log.Debug("worker started with PID %d", cmd.Process.Pid)
	return &ProcessWorker{
		StreamWorker: NewStreamWorker(stdin, stdout),
		cmd:          cmd,
	}, nil
}

// Close ends the worker's input and waits for it to exit.
func (p *ProcessWorker) Close() error {
	if err := p.StreamWorker.Close(); err != nil {
		return err
	}
	p.waitOnce.Do(func() { p.waitErr = p.cmd.Wait() })
	return p.waitErr
}
