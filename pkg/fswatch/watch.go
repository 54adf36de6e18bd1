package fswatch

import (
	"os"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/pishow/pkg/errors"
)

var fs = afero.NewOsFs()

// Watcher notifies about changes to the files within a directory.
type Watcher struct {
	watcher *fsnotify.Watcher

	// Events receives a value whenever a file in the directory is created,
	// written, removed, or renamed. Bursts of changes are combined into a
	// single event.
	Events chan struct{}
}

// Watch starts watching `dir`. It isn't recursive, since a slideshow
// directory is flat.
func Watch(dir string) (*Watcher, error) {
	fi, err := fs.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: dir}
		}
		return nil, errors.WithContext(err, "stat")
	}
	if !fi.IsDir() {
		return nil, errors.New("%q is not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	if err := watcher.Add(dir); err != nil {
		// Close the watcher so that we release its file handle.
		if err := watcher.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file watcher")
		}
		return nil, errors.WithContext(err, "watch")
	}

	go func() {
		for err := range watcher.Errors {
			log.WithError(err).WithField("dir", dir).Warn("File watcher error")
		}
	}()

	return &Watcher{
		watcher: watcher,
		Events:  combineUpdates(watcher.Events),
	}, nil
}

// Close stops the watcher. Events is closed once pending events have been
// drained.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		defer close(combined)
		for update := range updates {
			// Permission changes don't affect what's shown.
			if update.Op == fsnotify.Chmod {
				continue
			}

			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}
