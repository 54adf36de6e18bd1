package slideshow

import (
	"os"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
)

// processEvent records a call to one of the mocked process functions.
type processEvent struct {
	op   string
	pid  int
	args []string
}

// mockProcesses replaces the process control functions with fakes that record
// what they're called with. Each started process gets a new pid, starting at
// 100.
func mockProcesses() *[]processEvent {
	var events []processEvent
	nextPid := 100

	startCommand = func(cmd *exec.Cmd) error {
		cmd.Process = &os.Process{Pid: nextPid}
		events = append(events, processEvent{op: "start", pid: nextPid, args: cmd.Args})
		nextPid++
		return nil
	}
	kill = func(pid int, sig syscall.Signal) error {
		events = append(events, processEvent{op: "kill", pid: pid})
		if sig != syscall.SIGKILL {
			return errors.New("unexpected signal %s", sig)
		}
		return nil
	}
	waitCommand = func(cmd *exec.Cmd) error {
		events = append(events, processEvent{op: "wait", pid: cmd.Process.Pid})
		return nil
	}
	return &events
}

func feh(delay string) []string {
	return []string{"feh", "-FY", "-Sfilename", "-D", delay, localDir}
}

func TestRestart(t *testing.T) {
	events := mockProcesses()
	d := NewDisplayController(config.DefaultViewerCommand, localDir)

	require.NoError(t, d.Restart(10))
	require.NoError(t, d.Restart(2.5))

	// The old viewer's process group is killed and reaped before the new
	// viewer is started, so there's never more than one viewer.
	assert.Equal(t, []processEvent{
		{op: "start", pid: 100, args: feh("10")},
		{op: "kill", pid: -100},
		{op: "wait", pid: 100},
		{op: "start", pid: 101, args: feh("2.5")},
	}, *events)
}

func TestEnsureRunning(t *testing.T) {
	events := mockProcesses()
	d := NewDisplayController(config.DefaultViewerCommand, localDir)

	require.NoError(t, d.EnsureRunning(5))
	require.NoError(t, d.EnsureRunning(5))
	assert.Len(t, *events, 1, "the viewer shouldn't be restarted if the delay is the same")

	require.NoError(t, d.EnsureRunning(6))
	assert.Equal(t, []processEvent{
		{op: "start", pid: 100, args: feh("5")},
		{op: "kill", pid: -100},
		{op: "wait", pid: 100},
		{op: "start", pid: 101, args: feh("6")},
	}, *events)
}

func TestStop(t *testing.T) {
	events := mockProcesses()
	d := NewDisplayController([]string{"viewer"}, localDir)

	// Stopping without a viewer is a no-op.
	require.NoError(t, d.Stop())
	assert.Empty(t, *events)

	require.NoError(t, d.Restart(5))
	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
	assert.Equal(t, []processEvent{
		{op: "start", pid: 100, args: []string{"viewer"}},
		{op: "kill", pid: -100},
		{op: "wait", pid: 100},
	}, *events)
}

func TestRestartCrashedViewer(t *testing.T) {
	events := mockProcesses()
	d := NewDisplayController([]string{"viewer"}, localDir)
	require.NoError(t, d.Restart(5))

	kill = func(pid int, sig syscall.Signal) error {
		return syscall.ESRCH
	}
	require.NoError(t, d.Restart(5))
	assert.Len(t, *events, 3)

	kill = func(pid int, sig syscall.Signal) error {
		return syscall.EPERM
	}
	assert.Error(t, d.Restart(5))
}

func TestRestartErrors(t *testing.T) {
	mockProcesses()
	assert.Error(t, NewDisplayController(nil, localDir).Restart(5))

	startCommand = func(cmd *exec.Cmd) error {
		return errors.New("executable file not found in $PATH")
	}
	d := NewDisplayController([]string{"viewer"}, localDir)
	assert.EqualError(t, d.Restart(5), "start viewer: executable file not found in $PATH")
	assert.Nil(t, d.runningCmd)
}

func TestViewerArgs(t *testing.T) {
	d := NewDisplayController([]string{"viewer", "--delay={delay}", "{dir}/*.jpg"}, "/pi/slides")
	assert.Equal(t, []string{"viewer", "--delay=0.5", "/pi/slides/*.jpg"}, d.args(0.5))
}
