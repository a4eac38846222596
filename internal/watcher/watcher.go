package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"rigdna/internal/archive"
	"rigdna/internal/config"
	"rigdna/internal/dna"
	"rigdna/internal/logging"
)

const componentName = "watcher"

// Result is the outcome of re-verifying one changed file.
type Result struct {
	Path string
	// Rig is the document name when the file parsed, empty otherwise.
	Rig string
	// Err is nil when the document loaded and validated clean.
	Err error
	// Entry is the archive record written for this change, nil unless
	// archive-on-change is enabled and verification passed.
	Entry *archive.Entry
}

// Watcher observes directories for rig file changes and re-verifies each
// settled file. One Watcher runs one loop; Run blocks until the context is
// cancelled.
type Watcher struct {
	cfg      *config.Config
	store    *archive.Store
	logger   *slog.Logger
	onResult func(Result)
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// New wires a watcher. The archive store may be nil; it is only consulted
// when watch.archive_on_change is set. onResult may be nil when the caller
// only wants the log stream.
func New(cfg *config.Config, store *archive.Store, logger *slog.Logger, onResult func(Result)) (*Watcher, error) {
	if cfg == nil {
		return nil, errors.New("watcher: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, componentName),
		onResult: onResult,
		debounce: cfg.WatchDebounce(),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run watches dirs until ctx is cancelled. Directories must exist when Run
// starts; files created later inside them are picked up, new subdirectories
// are not.
func (w *Watcher) Run(ctx context.Context, dirs []string) error {
	if len(dirs) == 0 {
		return errors.New("watcher: no directories to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return errors.New("watcher: " + dir + " is not a directory")
		}
		if err := fsw.Add(dir); err != nil {
			return err
		}
		w.logger.Info("watching directory", logging.String("dir", dir))
	}

	defer w.drainTimers()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if !isRigFile(event.Name) {
		return
	}

	path := event.Name
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.verify(ctx, path)
	})
}

// verify reloads the file through the document codec, which runs full
// validation, then optionally archives the verified revision.
func (w *Watcher) verify(ctx context.Context, path string) {
	res := Result{Path: path}

	doc, err := dna.Load(path)
	if err != nil {
		res.Err = err
		w.logger.Warn("document failed verification",
			logging.String("path", path),
			logging.Error(err),
		)
		w.report(res)
		return
	}

	res.Rig = doc.Meta().Name
	w.logger.Info("document verified",
		logging.String("path", path),
		logging.String("rig", res.Rig),
		logging.Int("joints", doc.JointCount()),
	)

	if w.cfg.Watch.ArchiveOnChange && w.cfg.Archive.Enabled && w.store != nil {
		entry, err := w.store.Add(ctx, res.Rig, path, archive.TriggerManual, len(doc.Meta().LowConfidence))
		if err != nil {
			w.logger.Warn("archive on change failed",
				logging.String("path", path),
				logging.Error(err),
			)
		} else {
			res.Entry = entry
		}
	}
	w.report(res)
}

func (w *Watcher) report(res Result) {
	if w.onResult != nil {
		w.onResult(res)
	}
}

// drainTimers stops pending debounce timers on shutdown. Timers that
// already fired settle through the WaitGroup in Run.
func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func isRigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dna", ".json":
		return true
	default:
		return false
	}
}
