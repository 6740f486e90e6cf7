package mpv

import (
	"io"
	"os/exec"
)

// processHandle wraps a started OS process with an awaitable exit
// status. Exactly one goroutine calls Wait, so exit information is
// published once through the done channel instead of racing timeouts
// against a raw handle.
type processHandle struct {
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int
}

// startProcess launches the binary and begins reaping it in the
// background. The caller observes exit via Done then ExitCode.
func startProcess(path string, args []string) (*processHandle, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	h := &processHandle{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go func() {
		_ = cmd.Wait()
		h.exitCode = cmd.ProcessState.ExitCode()
		close(h.done)
	}()

	return h, nil
}

// Done is closed once the process has exited.
func (h *processHandle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the process exit code. Only valid after Done is closed.
func (h *processHandle) ExitCode() int {
	return h.exitCode
}

// Kill force-terminates the process. Safe to call after exit.
func (h *processHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

// PID returns the OS process id, for logging.
func (h *processHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}
