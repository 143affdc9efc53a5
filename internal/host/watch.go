package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher applies a JSON parameter file to a sink whenever it changes.
// The parent directory is watched so that editors which replace the file
// are followed.
type Watcher struct {
	path string
	sink ParameterSink

	// OnApply is called after a document has been applied without error.
	// It runs on the Run goroutine.
	OnApply func(p Params)
	// OnError is called for read, parse, apply and watcher errors.
	OnError func(err error)
}

// NewWatcher returns a watcher for path.
func NewWatcher(path string, sink ParameterSink) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("empty parameter file path")
	}

	if sink == nil {
		return nil, errors.New("nil parameter sink")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve parameter file: %w", err)
	}

	return &Watcher{path: abs, sink: sink}, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string { return w.path }

// Load reads, parses and applies the file once.
func (w *Watcher) Load() error {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read parameter file: %w", err)
	}

	p, err := ParseParams(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", w.path, err)
	}

	err = ApplyParams(w.sink, p)
	if err != nil {
		return fmt.Errorf("%s: %w", w.path, err)
	}

	if w.OnApply != nil {
		w.OnApply(p)
	}

	return nil
}

// Run applies the file once if it exists, then on every write or create
// until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	err = fw.Add(filepath.Dir(w.path))
	if err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	if _, statErr := os.Stat(w.path); statErr == nil {
		w.report(w.Load())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != w.path {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.report(w.Load())
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.report(err)
		}
	}
}

func (w *Watcher) report(err error) {
	if err != nil && w.OnError != nil {
		w.OnError(err)
	}
}
