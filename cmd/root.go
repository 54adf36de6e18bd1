package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/sidkik/pishow/cmd/util"
	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/metrics"
	"github.com/sidkik/pishow/pkg/notify"
	"github.com/sidkik/pishow/pkg/remote"
	"github.com/sidkik/pishow/pkg/remote/gcs"
	"github.com/sidkik/pishow/pkg/remote/local"
	"github.com/sidkik/pishow/pkg/remote/s3"
	"github.com/sidkik/pishow/pkg/slideshow"
	"github.com/sidkik/pishow/pkg/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "PISHOW_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	if err := New().Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

// New creates the `pishow` command.
func New() *cobra.Command {
	var configPath string
	var flags flagOverrides

	cmd := &cobra.Command{
		Use:   "pishow [local dir] [remote dir]",
		Short: "Show a slideshow of the images in a cloud storage folder.",
		Long: "Mirror the images in a remote folder to a local directory, and show\n" +
			"them fullscreen. The slideshow is restarted whenever the images or the\n" +
			"config.txt in the remote folder change.",
		Args:    cobra.MaximumNArgs(2),
		Version: version.Version,

		SilenceUsage: true,

		// The call to cmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(configPath, flags, cmd, args)
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := run(cfg); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "",
		"The path to the pishow config. Defaults to "+config.AppConfigPath)
	flags.register(cmd)
	return cmd
}

// flagOverrides holds the flags that override fields in the config file.
type flagOverrides struct {
	configFile     string
	remoteType     string
	bucket         string
	region         string
	endpoint       string
	root           string
	pollInterval   time.Duration
	pollTimeout    time.Duration
	retries        int
	viewerCommand  []string
	metricsAddress string
	smtpServer     string
	smtpPort       int
	smtpUser       string
	smtpPassword   string
	smtpFrom       string
	notify         []string
}

func (f *flagOverrides) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configFile, "config-file", "",
		"The name of the slideshow config within the remote directory")
	flags.StringVar(&f.remoteType, "remote", "",
		"The remote storage backend (s3, gcs, or local)")
	flags.StringVar(&f.bucket, "bucket", "", "The bucket that contains the remote directory")
	flags.StringVar(&f.region, "region", "", "The S3 region")
	flags.StringVar(&f.endpoint, "endpoint", "", "A custom S3 or GCS endpoint")
	flags.StringVar(&f.root, "root", "",
		"The directory that contains the remote directory when using the local backend")
	flags.DurationVar(&f.pollInterval, "poll-interval", 0,
		"How often object stores are listed while waiting for a change")
	flags.DurationVar(&f.pollTimeout, "poll-timeout", 0,
		"The longest time to wait for a change before syncing anyway")
	flags.IntVar(&f.retries, "retries", 0,
		"The number of attempts for remote calls that fail because of network errors")
	flags.StringSliceVar(&f.viewerCommand, "viewer-command", nil,
		"The viewer command. {delay} and {dir} are replaced when it's started")
	flags.StringVar(&f.metricsAddress, "metrics-address", "",
		"The address to serve Prometheus metrics on")
	flags.StringVar(&f.smtpServer, "smtp-server", "", "The SMTP server for change notifications")
	flags.IntVar(&f.smtpPort, "smtp-port", 0, "The SMTP server port")
	flags.StringVar(&f.smtpUser, "smtp-user", "", "The SMTP username")
	flags.StringVar(&f.smtpPassword, "smtp-password", "", "The SMTP password")
	flags.StringVar(&f.smtpFrom, "smtp-from", "", "The sender of change notifications")
	flags.StringSliceVar(&f.notify, "notify", nil, "Email addresses to notify of changes")
}

// apply overrides the fields in `cfg` for the flags that were set.
func (f flagOverrides) apply(cmd *cobra.Command, cfg *config.App) {
	changed := cmd.Flags().Changed
	if changed("config-file") {
		cfg.ConfigFile = f.configFile
	}
	if changed("remote") {
		cfg.Remote.Type = f.remoteType
	}
	if changed("bucket") {
		cfg.Remote.Bucket = f.bucket
	}
	if changed("region") {
		cfg.Remote.Region = f.region
	}
	if changed("endpoint") {
		cfg.Remote.Endpoint = f.endpoint
	}
	if changed("root") {
		cfg.Remote.Root = f.root
	}
	if changed("poll-interval") {
		cfg.Remote.PollInterval = config.Duration{Duration: f.pollInterval}
	}
	if changed("poll-timeout") {
		cfg.Remote.PollTimeout = config.Duration{Duration: f.pollTimeout}
	}
	if changed("retries") {
		cfg.Remote.Retries = f.retries
	}
	if changed("viewer-command") {
		cfg.Viewer.Command = f.viewerCommand
	}
	if changed("metrics-address") {
		cfg.MetricsAddress = f.metricsAddress
	}
	if changed("smtp-server") {
		cfg.SMTP.Server = f.smtpServer
	}
	if changed("smtp-port") {
		cfg.SMTP.Port = f.smtpPort
	}
	if changed("smtp-user") {
		cfg.SMTP.User = f.smtpUser
	}
	if changed("smtp-password") {
		cfg.SMTP.Password = f.smtpPassword
	}
	if changed("smtp-from") {
		cfg.SMTP.From = f.smtpFrom
	}
	if changed("notify") {
		cfg.SMTP.Recipients = f.notify
	}
}

// loadConfig merges the config file, the flags, and the positional arguments,
// in increasing order of precedence.
func loadConfig(configPath string, flags flagOverrides, cmd *cobra.Command,
	args []string) (config.App, error) {

	cfg, err := config.ParseApp(configPath)
	if err != nil {
		return config.App{}, errors.WithContext(err, "parse config")
	}
	flags.apply(cmd, &cfg)

	if len(args) > 0 {
		if cfg.LocalDir, err = filepath.Abs(args[0]); err != nil {
			return config.App{}, errors.WithContext(err, "resolve local dir")
		}
	}
	if len(args) > 1 {
		cfg.RemoteDir = args[1]
	}

	if err := cfg.Validate(); err != nil {
		return config.App{}, errors.WithContext(err, "invalid config")
	}
	cfg.RemoteDir = config.NormalizeRemoteDir(cfg.RemoteDir)
	return cfg, nil
}

func run(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig).Info("Received signal..")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.MetricsAddress != "" {
		metrics.Serve(cfg.MetricsAddress)
	}

	client, err := newRemoteClient(ctx, cfg.Remote)
	if err != nil {
		return errors.WithContext(err, "create remote client")
	}
	if closer, ok := client.(io.Closer); ok {
		defer closer.Close()
	}

	show, err := slideshow.New(cfg, remote.WithRetries(client, retryBackoff(cfg.Remote.Retries)),
		notify.New(cfg.SMTP))
	if err != nil {
		return errors.WithContext(err, "create slideshow")
	}
	return show.Run(ctx)
}

// newRemoteClient creates the client for the configured backend.
func newRemoteClient(ctx context.Context, cfg config.Remote) (remote.Client, error) {
	switch cfg.Type {
	case config.RemoteS3:
		return s3.New(ctx, cfg)
	case config.RemoteGCS:
		return gcs.New(ctx, cfg)
	case config.RemoteLocal:
		return local.New(cfg.Root, clockwork.NewRealClock(), cfg.PollTimeout.Duration), nil
	default:
		return nil, errors.New("unknown remote type: %s", cfg.Type)
	}
}

func retryBackoff(retries int) wait.Backoff {
	backoff := remote.DefaultBackoff
	backoff.Steps = retries
	if backoff.Steps < 1 {
		backoff.Steps = 1
	}
	return backoff
}
