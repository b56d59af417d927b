package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/utils"
)

// DefaultDebounce is how long the watcher waits for a burst of file events to settle.
const DefaultDebounce = 250 * time.Millisecond

// A Watcher re-reads a config file whenever it changes and hands every valid result to a
// callback. Invalid configs are logged and skipped; the previous config stays in effect.
type Watcher struct {
	path     string
	logger   logging.Logger
	onChange func(context.Context, *Config)
	fsw      *fsnotify.Watcher
	workers  utils.StoppableWorkers
	debounce func(func())
}

// NewWatcher starts watching path. The containing directory is watched so that editors that
// replace the file on save are noticed.
func NewWatcher(
	path string,
	interval time.Duration,
	logger logging.Logger,
	onChange func(context.Context, *Config),
) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create config watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return nil, multiCloseErr(err, fsw)
	}
	if interval <= 0 {
		interval = DefaultDebounce
	}

	w := &Watcher{
		path:     abs,
		logger:   logger,
		onChange: onChange,
		fsw:      fsw,
		debounce: debounce.New(interval),
	}
	w.workers = utils.NewStoppableWorkers(w.watch)
	return w, nil
}

func multiCloseErr(err error, fsw *fsnotify.Watcher) error {
	if closeErr := fsw.Close(); closeErr != nil {
		return errors.Wrapf(err, "also failed to close watcher: %v", closeErr)
	}
	return err
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.debounce(func() { w.reload(ctx) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := Read(ctx, w.path, w.logger)
	if err != nil {
		w.logger.Warnw("ignoring invalid config change", "path", w.path, "error", err)
		return
	}
	w.logger.Infow("config changed", "path", w.path)
	w.onChange(ctx, cfg)
}

// Close stops watching. A reload already in progress may still finish.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.fsw.Close()
}
