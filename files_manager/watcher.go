package files_manager

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"photoconv/logging"
)

// Watcher reports images that appear in a directory once they have stopped
// changing for the settle delay.
type Watcher struct {
	fs     *fsnotify.Watcher
	settle time.Duration
	log    *logging.Logger
}

func NewWatcher(dir string, settle time.Duration, log *logging.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch folder %s: %w", dir, err)
	}
	return &Watcher{fs: fsWatcher, settle: settle, log: log}, nil
}

// Run calls handle for each settled image, one at a time, until ctx is
// done or the watcher fails.
func (w *Watcher) Run(ctx context.Context, handle func(path string)) error {
	defer w.fs.Close()

	type tick struct {
		name string
		gen  int
	}
	timers := make(map[string]*time.Timer)
	gens := make(map[string]int)
	seq := 0
	settled := make(chan tick)
	stopped := make(chan struct{})
	defer func() {
		close(stopped)
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsImagePath(event.Name) {
				continue
			}
			if t, exists := timers[event.Name]; exists {
				t.Stop()
			}
			// Generations are unique across names so a late tick never
			// matches a later entry for the same file.
			seq++
			gens[event.Name] = seq
			tk := tick{name: event.Name, gen: seq}
			timers[event.Name] = time.AfterFunc(w.settle, func() {
				select {
				case settled <- tk:
				case <-stopped:
				}
			})

		case tk := <-settled:
			// A timer stopped too late still delivers; only the newest counts.
			if gens[tk.name] != tk.gen {
				continue
			}
			delete(timers, tk.name)
			delete(gens, tk.name)
			w.log.Debug("new file: %s", tk.name)
			handle(tk.name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error: %v", err)
		}
	}
}
