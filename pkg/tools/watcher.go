package tools

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

const (
	watchDebounce     = 500 * time.Millisecond
	skillDocumentName = "SKILL.md"
)

// Watcher reloads the catalog when skill documents or the tool-definition
// store change on disk. Used by serve mode so externally authored skills go
// live without a restart.
type Watcher struct {
	catalog *Catalog
	root    string
	fs      *fsnotify.Watcher
}

// NewWatcher watches the skills root directory
func NewWatcher(catalog *Catalog, root string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fs watcher")
	}
	if err := fs.Add(root); err != nil {
		fs.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", root)
	}
	return &Watcher{catalog: catalog, root: root, fs: fs}, nil
}

// Run processes events until the context is cancelled. Reloads are debounced
// so a burst of writes (a whole skill directory landing) triggers one rebuild.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logger.G(ctx).WithField("event", event.String()).Debug("skills tree changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			w.catalog.Reload(ctx)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Warn("fs watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if base == storeFileName || base == skillDocumentName {
		return true
	}
	// a new skill directory appearing under the root
	return event.Op&fsnotify.Create != 0 && !strings.Contains(base, ".")
}
