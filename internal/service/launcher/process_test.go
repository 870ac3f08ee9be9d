package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

var errTestProcesses = errors.New("test process list error")

// fakeProcess is a ps.Process with fixed values.
type fakeProcess struct {
	pid        int
	executable string
}

// Pid returns the process id.
func (p fakeProcess) Pid() int { return p.pid }

// PPid returns zero.
func (p fakeProcess) PPid() int { return 0 }

// Executable returns the executable name.
func (p fakeProcess) Executable() string { return p.executable }

// newTestProcess creates a Process over a fixed process list.
func newTestProcess(list []ps.Process, killed *[]int) *Process {
	p := NewProcess("order-alert-audio")
	p.processes = func() ([]ps.Process, error) { return list, nil }
	p.kill = func(pid int) error {
		*killed = append(*killed, pid)
		return nil
	}

	return p
}

// TestProcess_Running matches by executable name and skips this process.
func TestProcess_Running(t *testing.T) {
	t.Parallel()

	name := NewProcess("/opt/order-alert/order-alert-audio").Name()

	var killed []int

	p := newTestProcess([]ps.Process{
		fakeProcess{pid: 10, executable: name},
		fakeProcess{pid: 11, executable: "order-alert-monitor"},
		fakeProcess{pid: os.Getpid(), executable: name},
		fakeProcess{pid: 12, executable: name},
	}, &killed)

	pids, err := p.Running()
	require.NoError(t, err)
	require.Equal(t, []int{10, 12}, pids)

	require.NoError(t, p.Terminate(context.Background()))
	require.Equal(t, []int{10, 12}, killed)

	p.processes = func() ([]ps.Process, error) { return nil, errTestProcesses }

	_, err = p.Running()
	require.ErrorIs(t, err, errTestProcesses)
	require.ErrorIs(t, p.Terminate(context.Background()), errTestProcesses)
}

// TestWithExecutableExtension appends .exe only on Windows.
func TestWithExecutableExtension(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		require.Equal(t, "a.exe", withExecutableExtension("a"))
		require.Equal(t, "a.EXE", withExecutableExtension("a.EXE"))

		return
	}

	require.Equal(t, "a", withExecutableExtension("a"))
}

// TestResolveExecutable checks explicit paths and missing binaries.
func TestResolveExecutable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "audio")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o600))

	resolved, err := resolveExecutable(path)("audio")
	require.NoError(t, err)
	require.Equal(t, path, resolved)

	_, err = resolveExecutable(filepath.Join(dir, "missing"))("missing")
	require.ErrorIs(t, err, errNoExecutable)

	_, err = resolveExecutable("order-alert-definitely-missing")("order-alert-definitely-missing")
	require.ErrorIs(t, err, errNoExecutable)
}

// TestProcess_StartStop starts a real short-lived process and stops it.
func TestProcess_StartStop(t *testing.T) {
	t.Parallel()

	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no true binary on this system")
	}

	p := NewProcess("true")
	p.lookup = func(string) (string, error) { return truePath, nil }

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	p.lookup = func(string) (string, error) { return "", errNoExecutable }
	require.ErrorIs(t, p.Start(context.Background()), errNoExecutable)
}
