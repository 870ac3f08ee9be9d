package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/order-alert/internal/logger"
)

// errNoExecutable is returned when the audio surface binary cannot be found.
var errNoExecutable = errors.New("audio surface executable not found")

// Process manages instances of one executable.
type Process struct {
	// name is the executable name including the platform extension.
	name string
	// args are passed to started instances.
	args []string

	// processes lists running processes; replaced in tests.
	processes func() ([]ps.Process, error)
	// kill terminates a process by pid; replaced in tests.
	kill func(pid int) error
	// command builds the command that starts an instance; replaced in tests.
	command func(ctx context.Context, path string, args ...string) *exec.Cmd
	// lookup resolves the executable path; replaced in tests.
	lookup func(name string) (string, error)

	mu sync.Mutex
	// started is the instance this Process started, if any.
	started *exec.Cmd
}

// NewProcess creates a manager for executable, which may be a bare name or a path.
func NewProcess(executable string, args ...string) *Process {
	return &Process{
		name:      withExecutableExtension(filepath.Base(executable)),
		args:      args,
		processes: ps.Processes,
		kill:      killProcess,
		command:   exec.CommandContext,
		lookup:    resolveExecutable(executable),
	}
}

// Name returns the executable name matched against running processes.
func (p *Process) Name() string {
	return p.name
}

// Running returns the pids of other processes running the executable.
func (p *Process) Running() ([]int, error) {
	processList, err := p.processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID || process.Executable() != p.name {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// Terminate kills every running instance of the executable.
func (p *Process) Terminate(ctx context.Context) error {
	pids, err := p.Running()
	if err != nil {
		return err
	}

	for _, pid := range pids {
		logger.InfoKV(ctx, "Terminating audio surface process", "pid", pid, "executable", p.name)

		if err = p.kill(pid); err != nil {
			return fmt.Errorf("kill %d: %w", pid, err)
		}
	}

	return nil
}

// Start launches a new instance bound to ctx. It is reaped in the background.
func (p *Process) Start(ctx context.Context) error {
	path, err := p.lookup(p.name)
	if err != nil {
		return err
	}

	cmd := p.command(ctx, path, p.args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}

	logger.InfoKV(ctx, "Audio surface process started", "pid", cmd.Process.Pid, "path", path)

	p.mu.Lock()
	p.started = cmd
	p.mu.Unlock()

	go func() {
		waitErr := cmd.Wait()
		logger.InfoKV(ctx, "Audio surface process exited", "pid", cmd.Process.Pid, "result", fmt.Sprint(waitErr))

		p.mu.Lock()
		if p.started == cmd {
			p.started = nil
		}
		p.mu.Unlock()
	}()

	return nil
}

// Stop kills the instance started by this Process, if it is still running.
func (p *Process) Stop() error {
	p.mu.Lock()
	cmd := p.started
	p.started = nil
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill audio surface: %w", err)
	}

	return nil
}

// killProcess terminates pid.
func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return process.Kill()
}

// resolveExecutable returns a lookup that prefers an explicit path, then the
// directory of the running binary, then PATH.
func resolveExecutable(executable string) func(name string) (string, error) {
	return func(name string) (string, error) {
		if strings.ContainsRune(executable, filepath.Separator) {
			if _, err := os.Stat(executable); err != nil {
				return "", fmt.Errorf("%w: %w", errNoExecutable, err)
			}

			return executable, nil
		}

		if self, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(self), name)
			if _, err = os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		path, err := exec.LookPath(name)
		if err != nil {
			return "", fmt.Errorf("%w: %w", errNoExecutable, err)
		}

		return path, nil
	}
}

// withExecutableExtension appends ".exe" on Windows when missing.
func withExecutableExtension(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}

	return name
}
