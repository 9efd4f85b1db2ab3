package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change describes a modification observed in the settings tree.
type Change struct {
	Path string
	At   time.Time
}

// SettingsWatcher watches the settings tree and notifies subscribers when a
// settings document changes. It never reloads anything itself: views are
// immutable for the lifetime of a cascade, so subscribers build a new one.
type SettingsWatcher struct {
	base        string
	logger      *slog.Logger
	watcher     *fsnotify.Watcher
	debounce    time.Duration
	mu          sync.Mutex
	subscribers []chan Change
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSettingsWatcher watches base and base/bots for changes to .json and
// .md files.
func NewSettingsWatcher(base string, logger *slog.Logger) (*SettingsWatcher, error) {
	if err := AssertValidDirectory(base); err != nil {
		return nil, err
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	dirs := []string{absBase}
	if bots := filepath.Join(absBase, "bots"); IsValidDirectory(bots) {
		dirs = append(dirs, bots)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &SettingsWatcher{
		base:     absBase,
		logger:   logger,
		watcher:  watcher,
		debounce: 100 * time.Millisecond,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go w.watchLoop(ctx)

	logger.Info("Settings watcher started", "base", absBase, "dirs", len(dirs))
	return w, nil
}

// Subscribe returns a channel that receives a Change after each debounced
// burst of edits. Slow consumers miss intermediate notifications but always
// see at least one after the last edit.
func (w *SettingsWatcher) Subscribe() <-chan Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan Change, 1)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Close stops the watcher and closes every subscriber channel.
func (w *SettingsWatcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subscribers {
		close(ch)
	}
	w.subscribers = nil
	return err
}

func (w *SettingsWatcher) watchLoop(ctx context.Context) {
	defer close(w.done)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isSettingsFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.logger.Debug("Settings file event detected", "event", event.Op.String(), "file", event.Name)

			name := filepath.Clean(event.Name)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.notify(Change{Path: name, At: time.Now()})
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Settings watcher error", "error", err)
		}
	}
}

func (w *SettingsWatcher) notify(change Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subscribers {
		select {
		case ch <- change:
		default:
			// A notification is already pending for this subscriber
		}
	}
}

func isSettingsFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".md"
}
