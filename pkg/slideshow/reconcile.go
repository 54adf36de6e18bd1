package slideshow

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/metrics"
	"github.com/sidkik/pishow/pkg/notify"
	"github.com/sidkik/pishow/pkg/remote"
)

// Variables mocked for unit testing.
var (
	fs         = afero.NewOsFs()
	removeFile = func(path string) error { return fs.Remove(path) }
)

// Reconciler mirrors the images in the remote directory into the local
// directory.
type Reconciler struct {
	client     remote.Client
	notifier   notify.Notifier
	localDir   string
	remoteDir  string
	configFile string

	// files is the set of images believed to be in the local directory.
	files FileSet
}

// NewReconciler creates a Reconciler. The initial FileSet is taken from the
// contents of `localDir`, which is created if it doesn't exist.
func NewReconciler(client remote.Client, notifier notify.Notifier,
	localDir, remoteDir, configFile string) (*Reconciler, error) {

	if err := fs.MkdirAll(localDir, 0755); err != nil {
		return nil, errors.WithContext(err, "create local dir")
	}

	infos, err := afero.ReadDir(fs, localDir)
	if err != nil {
		return nil, errors.WithContext(err, "read local dir")
	}

	var names []string
	for _, info := range infos {
		if info.Mode().IsRegular() {
			names = append(names, info.Name())
		}
	}

	r := &Reconciler{
		client:     client,
		notifier:   notifier,
		localDir:   localDir,
		remoteDir:  remoteDir,
		configFile: configFile,
	}
	r.files = r.slides(names)
	return r, nil
}

// Files returns the current FileSet.
func (r *Reconciler) Files() FileSet {
	return r.files
}

// Reconcile brings the local directory in line with the remote directory. It
// returns nil if nothing changed.
//
// Failures to fetch or remove individual files are logged and skipped. The
// FileSet and the notification still reflect the remote listing, so a failed
// fetch isn't retried until the file changes remotely.
func (r *Reconciler) Reconcile(ctx context.Context) (*ChangeEvent, error) {
	names, err := r.client.ListFiles(ctx, r.remoteDir)
	if err != nil {
		metrics.RecordReconcile(0, 0, err)
		return nil, errors.WithContext(err, "list remote files")
	}

	target := r.slides(names)
	added, removed := r.files.Diff(target)
	metrics.RecordReconcile(len(added), len(removed), nil)
	if len(added) == 0 && len(removed) == 0 {
		return nil, nil
	}
	r.files = target

	for _, name := range added {
		err := download(ctx, r.client, remote.Join(r.remoteDir, name),
			filepath.Join(r.localDir, name))
		if err != nil {
			log.WithError(err).WithField("file", name).Warn("Failed to fetch file. Skipping..")
		}
	}

	for _, name := range removed {
		// The file may have already been removed by hand.
		if err := removeFile(filepath.Join(r.localDir, name)); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("file", name).Warn("Failed to remove file. Skipping..")
		}
	}

	log.WithFields(log.Fields{
		"added":   truncateSlice(added, 5),
		"removed": truncateSlice(removed, 5),
	}).Info("Synced slides..")

	if err := r.notifier.Notify(added, removed); err != nil {
		log.WithError(err).Warn("Failed to send change notification")
	}
	return &ChangeEvent{Added: added, Removed: removed}, nil
}

// slides filters out the files that aren't shown. The slideshow config is
// tracked by the ConfigWatcher, and hidden files are left to whatever
// created them.
func (r *Reconciler) slides(names []string) FileSet {
	set := FileSet{}
	for _, name := range names {
		if name == r.configFile || strings.HasPrefix(name, ".") {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// download copies the remote file at `src` to `dst`. The contents are staged
// in a hidden file in the same directory, and then renamed into place so
// that the viewer never sees a partially written image.
func download(ctx context.Context, client remote.Client, src, dst string) error {
	r, err := client.GetFile(ctx, src)
	if err != nil {
		return errors.WithContext(err, "get")
	}
	defer r.Close()

	tmp, err := afero.TempFile(fs, filepath.Dir(dst), "."+filepath.Base(dst)+".")
	if err != nil {
		return errors.WithContext(err, "create temp file")
	}

	_, err = io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = fs.Rename(tmp.Name(), dst)
	}

	if err != nil {
		if err := fs.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("path", tmp.Name()).Debug("Failed to remove temp file")
		}
		return errors.WithContext(err, "write")
	}
	return nil
}
