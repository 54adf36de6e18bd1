// Package slideshow keeps a local directory in sync with a remote directory of
// images, and keeps a viewer running that shows the local directory.
//
// A Show runs as a single loop. Each iteration waits for the remote
// directory to change, reconciles the local copy of the images, checks the
// remote slideshow config, and restarts the viewer if either changed.
package slideshow

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/metrics"
	"github.com/sidkik/pishow/pkg/notify"
	"github.com/sidkik/pishow/pkg/remote"
)

// Show runs the slideshow.
type Show struct {
	client    remote.Client
	remoteDir string

	reconciler    *Reconciler
	configWatcher *ConfigWatcher
	display       *DisplayController

	clock clockwork.Clock

	// pollErrorDelay is how long to wait after a failed poll, so that an
	// unreachable remote doesn't cause a busy loop.
	pollErrorDelay time.Duration
}

// New creates a Show from the app config.
func New(cfg config.App, client remote.Client, notifier notify.Notifier) (*Show, error) {
	remoteDir := config.NormalizeRemoteDir(cfg.RemoteDir)
	reconciler, err := NewReconciler(client, notifier, cfg.LocalDir, remoteDir, cfg.ConfigFile)
	if err != nil {
		return nil, errors.WithContext(err, "create reconciler")
	}

	return &Show{
		client:         client,
		remoteDir:      remoteDir,
		reconciler:     reconciler,
		configWatcher:  NewConfigWatcher(client, cfg.LocalDir, remoteDir, cfg.ConfigFile),
		display:        NewDisplayController(cfg.Viewer.Command, cfg.LocalDir),
		clock:          clockwork.NewRealClock(),
		pollErrorDelay: cfg.Remote.PollInterval.Duration,
	}, nil
}

// Run runs the slideshow until `ctx` is canceled or an unrecoverable error
// occurs. It returns nil if it was canceled. The viewer is killed before Run
// returns.
func (s *Show) Run(ctx context.Context) error {
	defer func() {
		if err := s.display.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop viewer")
		}
	}()

	log.WithField("remoteDir", s.remoteDir).Info("Starting slideshow..")
	err := s.run(ctx)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		log.Info("Shutting down..")
		return nil
	}
	return err
}

func (s *Show) run(ctx context.Context) error {
	if err := safely(func() error { return s.start(ctx) }); err != nil {
		return err
	}

	for {
		if err := safely(func() error { return s.runOnce(ctx) }); err != nil {
			return err
		}
	}
}

// start brings the local directory up to date and starts the viewer.
func (s *Show) start(ctx context.Context) error {
	_, err := s.reconciler.Reconcile(ctx)
	if err := handleError("reconcile", err); err != nil {
		return err
	}

	_, err = s.configWatcher.Check(ctx)
	if err := handleError("check config", err); err != nil {
		return err
	}

	// There's nothing to show if the viewer can't be started.
	err = s.display.EnsureRunning(s.configWatcher.Delay())
	return handleError("start viewer", errors.Fatal(err))
}

// runOnce waits for a change in the remote directory, and then syncs it.
func (s *Show) runOnce(ctx context.Context) error {
	if _, err := s.client.Poll(ctx, s.remoteDir); err != nil {
		if err := handleError("poll", err); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.pollErrorDelay):
		}
	}

	event, err := s.reconciler.Reconcile(ctx)
	if err := handleError("reconcile", err); err != nil {
		return err
	}

	configChanged, err := s.configWatcher.Check(ctx)
	if err := handleError("check config", err); err != nil {
		return err
	}

	delay := s.configWatcher.Delay()
	if event != nil || configChanged {
		log.WithField("delay", delay).Info("Restarting viewer due to change..")
		err = s.display.Restart(delay)
	} else {
		// Retry starting the viewer if it failed previously.
		err = s.display.EnsureRunning(delay)
	}
	return handleError("restart viewer", err)
}

// errorPolicy decides what the loop does with errors of a kind.
type errorPolicy struct {
	kind  string
	match func(error) bool
	exit  bool
	level log.Level
}

// errorPolicies is checked in order, and the first match is used.
var errorPolicies = []errorPolicy{
	{kind: "canceled", match: isCanceled, exit: true, level: log.DebugLevel},
	{kind: "fatal", match: errors.IsFatal, exit: true, level: log.ErrorLevel},
	{kind: "network", match: errors.IsNetwork, level: log.WarnLevel},
	{kind: "remote_api", match: errors.IsRemoteAPI, level: log.WarnLevel},
	{kind: "unexpected", match: func(error) bool { return true }, level: log.ErrorLevel},
}

// handleError logs `err` according to its policy, and returns it if the loop
// should exit.
func handleError(step string, err error) error {
	if err == nil {
		return nil
	}

	for _, policy := range errorPolicies {
		if !policy.match(err) {
			continue
		}

		if policy.kind != "canceled" {
			metrics.RecordLoopError(policy.kind)
		}

		entry := log.WithError(err).WithFields(log.Fields{
			"step": step,
			"kind": policy.kind,
		})
		if policy.exit {
			entry.Log(policy.level, "Stopping slideshow")
			return err
		}
		entry.Log(policy.level, "Slideshow step failed. Will retry on the next change..")
		return nil
	}
	return nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// safely runs `fn`, and handles any panic as an unexpected error so that a
// bug in one iteration doesn't take down the slideshow.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = handleError("iteration", errors.New("panic: %v", r))
		}
	}()
	return fn()
}
