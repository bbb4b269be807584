package encode

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
)

var lastWorkerID atomic.Int64

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))

// Worker encodes an animation to a file on a background goroutine. The file
// appears at Path only once it is complete.
type Worker struct {
	// OnProgress is called with the fraction of frames written.
	OnProgress func(id int, fraction float64)
	// OnSaved is called once the file is in place.
	OnSaved func(id int, path string)

	id     int
	path   string
	frames []image.Image
	opts   Options
	log    *slog.Logger

	started atomic.Bool
	done    chan struct{}
	err     error
}

// NewWorker prepares a worker writing frames to path. The frames must not be
// modified until Wait returns.
func NewWorker(path string, frames []image.Image, opts *Options) *Worker {
	w := &Worker{
		id:     int(lastWorkerID.Add(1)),
		path:   path,
		frames: frames,
		log:    discardLogger,
		done:   make(chan struct{}),
	}
	if opts != nil {
		w.opts = *opts
	}
	if w.opts.Logger != nil {
		w.log = w.opts.Logger
	}
	return w
}

// ID returns the worker's process-unique id.
func (w *Worker) ID() int { return w.id }

// Path returns the destination file.
func (w *Worker) Path() string { return w.path }

// Start launches the encode. Calling Start more than once has no effect.
func (w *Worker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(w.done)
		w.err = w.run(ctx)
		if w.err != nil {
			w.log.Error("gif save failed", "worker", w.id, "path", w.path, "err", w.err)
			return
		}
		w.log.Info("gif saved", "worker", w.id, "path", w.path, "frames", len(w.frames))
		if w.OnSaved != nil {
			w.OnSaved(w.id, w.path)
		}
	}()
}

// Wait blocks until the worker finishes and returns its error. Wait on a
// worker that was never started returns immediately with an error.
func (w *Worker) Wait() error {
	if !w.started.Load() {
		return fmt.Errorf("encode: worker %d not started", w.id)
	}
	<-w.done
	return w.err
}

func (w *Worker) run(ctx context.Context) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	err = Encode(ctx, buf, w.frames, &w.opts, func(fraction float64) {
		w.log.Debug("gif save progress", "worker", w.id, "progress", fraction)
		if w.OnProgress != nil {
			w.OnProgress(w.id, fraction)
		}
	})
	if err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err = os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
