package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"hoist/internal/ipc"
)

const pollInterval = 200 * time.Millisecond

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StartState describes the outcome of EnsureStarted.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached hoist daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(pollInterval)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers on socketPath.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	state := StartStateAlreadyRunning
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		state = StartStateStarted
	}
	defer client.Close()

	result := StartResult{State: state}
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		result.PID = status.PID
	}
	return result, nil
}

// WaitForShutdown waits for daemon IPC to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
			time.Sleep(pollInterval)
			continue
		}
		_ = client.Close()
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	pid := 0
	if status != nil {
		pid = status.PID
	}
	return true, pid, nil
}

// Stop sends SIGTERM to the daemon and kills it if IPC is still reachable
// after gracePeriod. The PID comes from the daemon status, falling back to
// pidPath.
func Stop(socketPath, pidPath string, gracePeriod time.Duration) (StopResult, error) {
	alive, pid, err := ProcessInfo(socketPath)
	if err != nil && !alive {
		return StopResult{}, err
	}
	if !alive {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		pid, err = ReadPID(pidPath)
		if err != nil {
			return StopResult{}, err
		}
	}
	if err := signalProcess(pid, syscall.SIGTERM); err != nil {
		return StopResult{}, err
	}

	result := StopResult{PID: pid}
	if err := WaitForShutdown(socketPath, gracePeriod); err == nil {
		return result, nil
	}
	if err := signalProcess(pid, syscall.SIGKILL); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	return result, nil
}

// ReadPID parses the daemon PID file.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q is malformed", pidPath)
	}
	return pid, nil
}

func signalProcess(pid int, sig syscall.Signal) error {
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	return nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
