package slideshow

import (
	"os"
	"os/exec"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/metrics"
)

// Variables mocked for unit testing.
var (
	startCommand = (*exec.Cmd).Start
	waitCommand  = (*exec.Cmd).Wait
	kill         = syscall.Kill
)

// DisplayController manages the viewer process. At most one viewer is
// running at a time.
type DisplayController struct {
	command []string
	dir     string

	runningCmd   *exec.Cmd
	runningDelay float64
}

// NewDisplayController creates a DisplayController that shows the images in
// `dir`. The {delay} and {dir} placeholders in `command` are filled in each
// time the viewer is started.
func NewDisplayController(command []string, dir string) *DisplayController {
	return &DisplayController{command: command, dir: dir}
}

// EnsureRunning starts the viewer if it isn't already running with the given
// delay.
func (d *DisplayController) EnsureRunning(delay float64) error {
	if d.runningCmd != nil && d.runningDelay == delay {
		return nil
	}
	return d.Restart(delay)
}

// Restart kills the current viewer, if any, and starts a new one.
func (d *DisplayController) Restart(delay float64) error {
	if len(d.command) == 0 {
		return errors.New("unspecified command")
	}

	if err := d.killOldChild(); err != nil {
		return errors.WithContext(err, "kill old viewer")
	}

	args := d.args(delay)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := startCommand(cmd); err != nil {
		return errors.WithContext(err, "start viewer")
	}
	d.runningCmd = cmd
	d.runningDelay = delay
	metrics.RecordViewerRestart()

	log.WithFields(log.Fields{
		"command": args,
		"pid":     cmd.Process.Pid,
	}).Info("Started viewer..")
	return nil
}

// Stop kills the viewer, if any.
func (d *DisplayController) Stop() error {
	return d.killOldChild()
}

func (d *DisplayController) args(delay float64) []string {
	replacer := strings.NewReplacer(
		"{delay}", config.Slideshow{Delay: delay}.DelayArg(),
		"{dir}", d.dir)

	var args []string
	for _, arg := range d.command {
		args = append(args, replacer.Replace(arg))
	}
	return args
}

// killOldChild kills the viewer's process group, so that any helpers it
// spawned are killed as well.
func (d *DisplayController) killOldChild() error {
	if d.runningCmd != nil {
		err := kill(-d.runningCmd.Process.Pid, syscall.SIGKILL)
		// Ignore the error if the viewer already crashed.
		if err != nil && err != syscall.ESRCH {
			return errors.WithContext(err, "kill")
		}

		// Block until the viewer exits.
		_ = waitCommand(d.runningCmd)
		d.runningCmd = nil
	}
	return nil
}
