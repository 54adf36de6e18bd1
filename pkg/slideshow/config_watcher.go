package slideshow

import (
	"context"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/metrics"
	"github.com/sidkik/pishow/pkg/remote"
)

// ConfigWatcher keeps a local copy of the slideshow config up to date with
// the remote copy.
type ConfigWatcher struct {
	client     remote.Client
	remotePath string
	localPath  string

	// modified is the remote modification time of the config that was last
	// downloaded. It's zero until the first download.
	modified time.Time
	config   config.Slideshow
}

// NewConfigWatcher creates a ConfigWatcher. If a config was downloaded by a
// previous run, it's used until the remote config is fetched.
func NewConfigWatcher(client remote.Client, localDir, remoteDir, configFile string) *ConfigWatcher {
	w := &ConfigWatcher{
		client:     client,
		remotePath: remote.Join(remoteDir, configFile),
		localPath:  filepath.Join(localDir, configFile),
		config:     config.Slideshow{Delay: config.DefaultDelay},
	}

	if cfg, err := w.parseLocal(); err == nil {
		w.config = cfg
	} else {
		log.WithError(err).Debug("Failed to load previous slideshow config. Using defaults.")
	}
	return w
}

// Config returns the current slideshow config.
func (w *ConfigWatcher) Config() config.Slideshow {
	return w.config
}

// Delay returns the current delay between slides.
func (w *ConfigWatcher) Delay() float64 {
	return w.config.Delay
}

// Check downloads the remote config if it was modified since the last check,
// and returns whether the config was reloaded.
//
// The slideshow can't run without a config, so a missing remote config or an
// invalid config is a fatal error. Failing to reach the config is not.
func (w *ConfigWatcher) Check(ctx context.Context) (bool, error) {
	md, err := w.client.GetMetadata(ctx, w.remotePath)
	if err != nil {
		err = errors.WithContext(err, "get config metadata")
		if errors.Is(err, errors.ErrNotFound) {
			return false, errors.Fatal(err)
		}
		return false, err
	}

	if md.Modified.Equal(w.modified) {
		return false, nil
	}

	if err := download(ctx, w.client, w.remotePath, w.localPath); err != nil {
		return false, errors.WithContext(err, "download config")
	}
	w.modified = md.Modified

	cfg, err := w.parseLocal()
	if err != nil {
		return false, errors.Fatal(errors.WithContext(err, "parse config"))
	}

	log.WithFields(log.Fields{
		"delay":    cfg.Delay,
		"modified": md.Modified,
	}).Info("Loaded slideshow config..")
	metrics.RecordConfigChange()

	w.config = cfg
	return true, nil
}

func (w *ConfigWatcher) parseLocal() (config.Slideshow, error) {
	configBytes, err := afero.ReadFile(fs, w.localPath)
	if err != nil {
		return config.Slideshow{}, errors.WithContext(err, "read")
	}
	return config.UnmarshalSlideshow(w.localPath, configBytes)
}
