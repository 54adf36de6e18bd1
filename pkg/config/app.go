package config

import (
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/pishow/pkg/errors"
)

const (
	// AppConfigPath is the default path to the pishow config.
	AppConfigPath = "~/.pishow.yaml"

	// InitialAppConfigVersion is the first version of the pishow config.
	// Config files that do not specify a version will default to this
	// version.
	InitialAppConfigVersion = "v1alpha1"

	// SupportedAppConfigVersion is the supported version of the pishow
	// config of the current pishow binary.
	SupportedAppConfigVersion = "v1alpha1"

	// DefaultConfigFile is the name of the slideshow config in the remote
	// directory.
	DefaultConfigFile = "config.txt"
)

// The remote storage backends that pishow can poll.
const (
	RemoteS3    = "s3"
	RemoteGCS   = "gcs"
	RemoteLocal = "local"
)

// DefaultViewerCommand runs feh fullscreen, without a pointer, sorted by
// filename. The {delay} and {dir} placeholders are filled in at launch.
var DefaultViewerCommand = []string{"feh", "-FY", "-Sfilename", "-D", "{delay}", "{dir}"}

// App contains the configuration for a pishow process. It's passed
// explicitly to the components that need it.
type App struct {
	Version string `json:"version,omitempty"`

	// LocalDir is the directory that mirrors the remote directory, and is
	// displayed by the viewer.
	LocalDir string `json:"localDir"`

	// RemoteDir is the remote directory that's watched for images.
	RemoteDir string `json:"remoteDir"`

	// ConfigFile is the name of the slideshow config within RemoteDir.
	ConfigFile string `json:"configFile,omitempty"`

	Remote Remote `json:"remote"`
	Viewer Viewer `json:"viewer,omitempty"`
	SMTP   SMTP   `json:"smtp,omitempty"`

	// MetricsAddress is the address to serve Prometheus metrics on. Metrics
	// aren't served if it's empty.
	MetricsAddress string `json:"metricsAddress,omitempty"`
}

// Remote configures the remote storage backend.
type Remote struct {
	// Type is one of RemoteS3, RemoteGCS, or RemoteLocal.
	Type string `json:"type"`

	// Used by the object store backends.
	Bucket          string `json:"bucket,omitempty"`
	Region          string `json:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKey       string `json:"accessKey,omitempty"`
	SecretKey       string `json:"secretKey,omitempty"`
	CredentialsFile string `json:"credentialsFile,omitempty"`

	// Root is the directory that contains the remote directory when using
	// the local backend.
	Root string `json:"root,omitempty"`

	// PollInterval is how often the object store backends list the remote
	// directory while waiting for a change.
	PollInterval Duration `json:"pollInterval,omitempty"`

	// PollTimeout bounds how long a single poll blocks.
	PollTimeout Duration `json:"pollTimeout,omitempty"`

	// Retries is the number of attempts made for a remote call that fails
	// because of a network error.
	Retries int `json:"retries,omitempty"`
}

// Viewer configures the slideshow process.
type Viewer struct {
	Command []string `json:"command,omitempty"`
}

// SMTP configures the email notifications. Notifications are only logged
// if there are no recipients.
type SMTP struct {
	Server     string   `json:"server,omitempty"`
	Port       int      `json:"port,omitempty"`
	User       string   `json:"user,omitempty"`
	Password   string   `json:"password,omitempty"`
	From       string   `json:"from,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

func (app App) getVersion() string {
	return app.Version
}

// DefaultApp returns the config that's used for any fields that aren't set.
func DefaultApp() App {
	return App{
		Version:    InitialAppConfigVersion,
		ConfigFile: DefaultConfigFile,
		Remote: Remote{
			Type:         RemoteLocal,
			PollInterval: Duration{30 * time.Second},
			PollTimeout:  Duration{5 * time.Minute},
			Retries:      5,
		},
		Viewer: Viewer{Command: append([]string(nil), DefaultViewerCommand...)},
		SMTP: SMTP{
			Port: 25,
			From: "pishow@localhost",
		},
	}
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseApp parses the config at `path`. If `path` is empty, the config at
// AppConfigPath is used if it exists, and the defaults are returned
// otherwise.
func ParseApp(path string) (App, error) {
	explicit := path != ""
	if !explicit {
		path = AppConfigPath
	}

	path, err := homedirExpand(path)
	if err != nil {
		return App{}, errors.WithContext(err, "expand config path")
	}

	config := DefaultApp()
	if err := parseConfig(path, &config, SupportedAppConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok && !explicit {
			return DefaultApp(), nil
		}
		if _, ok := err.(errors.FileNotFound); ok {
			return App{}, errors.NewFriendlyError(
				"The pishow config file doesn't exist at %q.", path)
		}
		return App{}, errors.WithContext(err, "parse")
	}

	// Evaluate relative paths relative to the config path.
	for _, p := range []*string{&config.LocalDir, &config.Remote.Root, &config.Remote.CredentialsFile} {
		if *p, err = expandPath(*p, filepath.Dir(path)); err != nil {
			return App{}, errors.WithContext(err, "expand path")
		}
	}
	return config, nil
}

func expandPath(path, relativeTo string) (string, error) {
	if path == "" {
		return "", nil
	}

	path, err := homedirExpand(path)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(relativeTo, path)
	}
	return path, nil
}

// NormalizeRemoteDir strips the trailing slash from the remote directory so
// that it can be joined with file names.
func NormalizeRemoteDir(dir string) string {
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return "/"
	}
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}
	return dir
}

// Validate checks that all required fields are set.
func (app App) Validate() error {
	if app.LocalDir == "" {
		return errors.MissingFieldError{Field: "localDir"}
	}
	if app.RemoteDir == "" {
		return errors.MissingFieldError{Field: "remoteDir"}
	}
	if app.ConfigFile == "" {
		return errors.MissingFieldError{Field: "configFile"}
	}
	if len(app.Viewer.Command) == 0 {
		return errors.MissingFieldError{Field: "viewer.command"}
	}

	switch app.Remote.Type {
	case RemoteS3, RemoteGCS:
		if app.Remote.Bucket == "" {
			return errors.MissingFieldError{Field: "remote.bucket"}
		}
	case RemoteLocal:
		if app.Remote.Root == "" {
			return errors.MissingFieldError{Field: "remote.root"}
		}
	default:
		return errors.NewFriendlyError("Unknown remote type %q. "+
			"Expected one of %q, %q, or %q.", app.Remote.Type,
			RemoteS3, RemoteGCS, RemoteLocal)
	}

	// A non-positive interval or timeout would turn the blocking poll into a
	// busy loop.
	if app.Remote.PollInterval.Duration <= 0 {
		return errors.NewFriendlyError(
			"The poll interval must be positive, but got %s.", app.Remote.PollInterval.Duration)
	}
	if app.Remote.PollTimeout.Duration <= 0 {
		return errors.NewFriendlyError(
			"The poll timeout must be positive, but got %s.", app.Remote.PollTimeout.Duration)
	}

	if len(app.SMTP.Recipients) > 0 && app.SMTP.Server == "" {
		return errors.MissingFieldError{Field: "smtp.server"}
	}
	return nil
}
