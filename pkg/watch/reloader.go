package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// DefaultDebounce coalesces the burst of events editors emit for one save
const DefaultDebounce = 200 * time.Millisecond

// Reloader owns the current documents store and swaps it when the documents file changes
type Reloader struct {
	path     string
	baseURL  string
	debounce time.Duration
	log      *logrus.Entry

	mu        sync.RWMutex
	store     *entity.Store
	callbacks []func(*entity.Store)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewReloader loads the documents file once. The initial load must succeed.
func NewReloader(path, baseURL string, debounce time.Duration, log *logrus.Entry) (*Reloader, error) {
	store, err := entity.Load(path, baseURL)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Reloader{
		path:     path,
		baseURL:  baseURL,
		debounce: debounce,
		log:      log.WithField("component", "watch"),
		store:    store,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Store returns the most recently loaded store
func (r *Reloader) Store() *entity.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store
}

// OnReload registers fn to run after every successful reload
func (r *Reloader) OnReload(fn func(*entity.Store)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Reload re-reads the documents file. A file that fails to load or validate
// leaves the current store in place.
func (r *Reloader) Reload() error {
	store, err := entity.Load(r.path, r.baseURL)
	if err != nil {
		r.log.Warnf("Reload failed [%s], keeping previous documents: %v", utils.CategorizeError(err), err)
		return err
	}

	r.mu.Lock()
	r.store = store
	callbacks := make([]func(*entity.Store), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	r.log.Infof("Reloaded %d entities from %s", len(store.Entities()), r.path)
	for _, fn := range callbacks {
		fn(store)
	}
	return nil
}

// Run watches the documents file and blocks until ctx is done or Stop is called.
// The parent directory is watched so atomic-rename saves are seen.
func (r *Reloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: create watcher: %w", utils.ErrFilesystem, err)
	}
	defer watcher.Close()

	target := filepath.Clean(r.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("%w: watch '%s': %w", utils.ErrFilesystem, filepath.Dir(target), err)
	}
	r.log.Infof("Watching %s for changes", target)

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			r.log.Debugf("Documents file event: %s", event.Op)
			timer.Reset(r.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warnf("Watcher error: %v", err)
		case <-timer.C:
			_ = r.Reload()
		}
	}
}

// Stop ends a running Run
func (r *Reloader) Stop() {
	r.log.Info("Stopping documents watcher...")
	r.cancel()
}
