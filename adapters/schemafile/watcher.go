package schemafile

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a schema file when it changes on disk and hands the parsed
// document to a callback. A file that fails to parse is logged and ignored,
// so the last good schema stays in effect.
type Watcher struct {
	path     string
	apply    func(*File) error
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for path. apply runs on every successful parse.
func NewWatcher(path string, apply func(*File) error, logger zerolog.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	return &Watcher{
		path:   absPath,
		apply:  apply,
		logger: logger.With().Str("component", "schemafile").Str("path", absPath).Logger(),
		stopCh: make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is watched rather than the file so
// editors that save by rename are still seen.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.watcher = watcher

	go w.loop()

	w.logger.Info().Msg("watching schema file for changes")
	return nil
}

// Stop ends the watch. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

// Reload parses the file and applies it.
func (w *Watcher) Reload() error {
	f, err := Load(w.path)
	if err != nil {
		return err
	}
	if err := w.apply(f); err != nil {
		return fmt.Errorf("apply schema file: %w", err)
	}
	w.logger.Info().
		Int("structures", len(f.Structures)).
		Int("rules", len(f.Rules)).
		Msg("schema file reloaded")
	return nil
}

func (w *Watcher) loop() {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug().Str("event", event.Op.String()).Msg("schema file changed")
			if err := w.Reload(); err != nil {
				w.logger.Error().Err(err).Msg("schema reload failed, keeping previous schema")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			return
		}
	}
}
