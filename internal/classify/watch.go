package classify

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// OwnerRegistry holds the current owner directory and swaps it when the
// backing file changes. Runs read Current once at start, so a reload only
// affects runs that begin after it.
type OwnerRegistry struct {
	path    string
	current atomic.Pointer[OwnerDirectory]
}

// NewOwnerRegistry loads path (empty means the built-in table).
func NewOwnerRegistry(path string) (*OwnerRegistry, error) {
	d, err := LoadOwnerDirectory(path)
	if err != nil {
		return nil, err
	}
	r := &OwnerRegistry{path: path}
	r.current.Store(d)
	return r, nil
}

// Current returns the directory in effect now.
func (r *OwnerRegistry) Current() *OwnerDirectory {
	return r.current.Load()
}

// Reload re-reads the file. On error the previous directory stays in place.
func (r *OwnerRegistry) Reload() error {
	d, err := LoadOwnerDirectory(r.path)
	if err != nil {
		return err
	}
	r.current.Store(d)
	return nil
}

// Watch reloads the directory whenever the owners file is written or
// replaced, until ctx is done. The parent directory is watched because
// editors and config management usually replace the file by rename.
// Watching the built-in table is a no-op.
func (r *OwnerRegistry) Watch(ctx context.Context) error {
	if r.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "classify: create owners watcher")
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close() //nolint:errcheck
		return eris.Wrapf(err, "classify: watch %s", r.path)
	}

	target := filepath.Clean(r.path)
	go func() {
		defer watcher.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := r.Reload(); err != nil {
					zap.L().Warn("owners reload failed, keeping previous directory",
						zap.String("path", r.path), zap.Error(err))
					continue
				}
				zap.L().Info("owners directory reloaded",
					zap.String("path", r.path), zap.Int("owners", r.Current().Len()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("owners watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
