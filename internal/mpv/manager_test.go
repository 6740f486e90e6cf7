package mpv

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testManager(t *testing.T, socketDir string) *Manager {
	t.Helper()
	return NewManager(Options{
		MPVPath:        "mpv",
		SocketDir:      socketDir,
		WarmupDelay:    10 * time.Millisecond,
		CommandTimeout: 250 * time.Millisecond,
		StaleAfter:     time.Minute,
		SweepInterval:  time.Hour,
	})
}

// registerInstance installs an instance record directly, bypassing
// process spawning, so commands can be exercised against a fake player.
func registerInstance(m *Manager, id, socketPath string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[id] = &instance{
		id:         id,
		socketPath: socketPath,
		status:     status,
		lastSeen:   time.Now(),
	}
}

func TestSendCommandNotFound(t *testing.T) {
	m := testManager(t, t.TempDir())

	_, err := m.SendCommand("nope", Command{Command: []string{"stop"}})
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("SendCommand() error = %v, want ErrInstanceNotFound", err)
	}
}

func TestSendCommandInvalidState(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)

	for _, status := range []Status{StatusStarting, StatusError, StatusStopped} {
		id := "inst-" + string(status)
		registerInstance(m, id, filepath.Join(dir, "unused.sock"), status)

		_, err := m.SendCommand(id, Command{Command: []string{"stop"}})
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("SendCommand on %s instance: error = %v, want ErrInvalidState", status, err)
		}
	}
}

func TestSendCommandAllowStarting(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "probe.sock")
	startFakePlayer(t, socketPath, echoResponder("mpv 0.38.0"))

	m := testManager(t, dir)
	registerInstance(m, "probe-me", socketPath, StatusStarting)

	if _, err := m.sendCommand("probe-me", Command{Command: []string{"get_property", "mpv-version"}}, true); err != nil {
		t.Fatalf("probe with allowStarting: %v", err)
	}
}

func TestSendCommandRoundTrip(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "play.sock")
	startFakePlayer(t, socketPath, echoResponder(nil))

	m := testManager(t, dir)
	registerInstance(m, "player", socketPath, StatusRunning)

	before := time.Now()
	resp, err := m.SendCommand("player", Command{Command: []string{"cycle", "pause"}})
	if err != nil {
		t.Fatalf("SendCommand() error: %v", err)
	}
	if resp.Error != "success" {
		t.Errorf("response error = %q, want success", resp.Error)
	}

	// A successful command refreshes lastSeen.
	view, err := m.GetInstance("player")
	if err != nil {
		t.Fatalf("GetInstance() error: %v", err)
	}
	if view.LastSeen.Before(before) {
		t.Error("lastSeen not refreshed after successful command")
	}
}

func TestRequestIDsAreMonotonic(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "mono.sock")

	seen := make(chan int, 4)
	startFakePlayer(t, socketPath, func(conn net.Conn, cmd Command) {
		seen <- cmd.RequestID
		echoResponder(nil)(conn, cmd)
	})

	m := testManager(t, dir)
	registerInstance(m, "player", socketPath, StatusRunning)

	for i := 0; i < 4; i++ {
		if _, err := m.SendCommand("player", Command{Command: []string{"stop"}}); err != nil {
			t.Fatalf("SendCommand() error: %v", err)
		}
	}

	prev := 0
	for i := 0; i < 4; i++ {
		id := <-seen
		if id <= prev {
			t.Errorf("request ids not increasing: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestCommandTimeoutLeavesInstanceUsable(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "mute.sock")
	startFakePlayer(t, socketPath, func(net.Conn, Command) {
		// Never answer: every command, including the later quit, times out.
	})

	m := testManager(t, dir)
	registerInstance(m, "deaf", socketPath, StatusRunning)

	_, err := m.SendCommand("deaf", Command{Command: []string{"get_property", "pause"}})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("SendCommand() error = %v, want ErrTimeout", err)
	}

	// The failed command must not have changed the recorded status.
	view, err := m.GetInstance("deaf")
	if err != nil {
		t.Fatalf("GetInstance() error: %v", err)
	}
	if view.Status != StatusRunning {
		t.Errorf("status after timeout = %s, want running", view.Status)
	}

	// StopInstance still succeeds: quit times out, the (absent) process
	// handle is skipped, and the instance is marked stopped.
	if err := m.StopInstance("deaf"); err != nil {
		t.Fatalf("StopInstance() error: %v", err)
	}
	view, err = m.GetInstance("deaf")
	if err != nil {
		t.Fatalf("GetInstance() error: %v", err)
	}
	if view.Status != StatusStopped {
		t.Errorf("status after stop = %s, want stopped", view.Status)
	}
}

// registerProcess spawns a real short-lived shell process and installs
// an instance record owning it, so exit-watching can be exercised.
func registerProcess(t *testing.T, m *Manager, id, script string, status Status) *processHandle {
	t.Helper()
	handle, err := startProcess("/bin/sh", []string{"-c", script})
	if err != nil {
		t.Fatalf("starting fake player: %v", err)
	}
	m.mu.Lock()
	m.instances[id] = &instance{
		id:       id,
		status:   status,
		lastSeen: time.Now(),
		process:  handle,
	}
	m.mu.Unlock()
	return handle
}

func instanceStatus(t *testing.T, m *Manager, id string) Status {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		t.Fatalf("instance %s not found", id)
	}
	return inst.status
}

func TestWatchExitStatusTransitions(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   Status
	}{
		{"clean exit is stopped", "exit 0", StatusStopped},
		{"crash is error", "exit 3", StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testManager(t, t.TempDir())
			handle := registerProcess(t, m, "player", tt.script, StatusRunning)

			// Synchronous call: returns once the exit has been applied.
			m.watchExit("player", handle)

			if got := instanceStatus(t, m, "player"); got != tt.want {
				t.Errorf("status after exit = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWatchExitKeepsTerminalStatus(t *testing.T) {
	// An explicit stop racing the exit wins: a record already marked
	// stopped must not flip to error on the non-zero exit code.
	m := testManager(t, t.TempDir())
	handle := registerProcess(t, m, "player", "exit 3", StatusStopped)

	m.watchExit("player", handle)

	if got := instanceStatus(t, m, "player"); got != StatusStopped {
		t.Errorf("status after exit = %s, want stopped preserved", got)
	}
}

func TestStopInstanceNotFound(t *testing.T) {
	m := testManager(t, t.TempDir())
	if err := m.StopInstance("ghost"); !errors.Is(err, ErrInstanceNotFound) {
		t.Fatalf("StopInstance() error = %v, want ErrInstanceNotFound", err)
	}
}

func TestExecuteRemoteCommandUnknownAction(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)
	registerInstance(m, "player", filepath.Join(dir, "unused.sock"), StatusRunning)

	_, err := m.ExecuteRemoteCommand("player", RemoteCommand{Action: "bogus"})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("ExecuteRemoteCommand() error = %v, want ErrUnknownAction", err)
	}
}

func TestGetInstanceEnrichesClientName(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "name.sock")
	startFakePlayer(t, socketPath, echoResponder("ipc-client-1"))

	m := testManager(t, dir)
	registerInstance(m, "named", socketPath, StatusRunning)

	view, err := m.GetInstance("named")
	if err != nil {
		t.Fatalf("GetInstance() error: %v", err)
	}
	if view.ClientName != "ipc-client-1" {
		t.Errorf("ClientName = %q, want %q", view.ClientName, "ipc-client-1")
	}
}

func TestGetInstanceDegradesWithoutClientName(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)
	registerInstance(m, "quiet", filepath.Join(dir, "gone.sock"), StatusRunning)

	view, err := m.GetInstance("quiet")
	if err != nil {
		t.Fatalf("GetInstance() error: %v", err)
	}
	if view.ClientName != "" {
		t.Errorf("ClientName = %q, want empty on enrichment failure", view.ClientName)
	}
}

func TestGetAllInstances(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)
	registerInstance(m, "a", filepath.Join(dir, "a.sock"), StatusRunning)
	registerInstance(m, "b", filepath.Join(dir, "b.sock"), StatusStopped)

	views := m.GetAllInstances()
	if len(views) != 2 {
		t.Fatalf("GetAllInstances() returned %d instances, want 2", len(views))
	}
}

func TestFindRunning(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)

	if id := m.FindRunning(); id != "" {
		t.Errorf("FindRunning() on empty manager = %q, want empty", id)
	}

	registerInstance(m, "stopped", filepath.Join(dir, "s.sock"), StatusStopped)
	registerInstance(m, "live", filepath.Join(dir, "l.sock"), StatusRunning)

	if id := m.FindRunning(); id != "live" {
		t.Errorf("FindRunning() = %q, want %q", id, "live")
	}
}

func TestSweepDeadInstances(t *testing.T) {
	dir := t.TempDir()
	m := testManager(t, dir)

	registerInstance(m, "errored", filepath.Join(dir, "e.sock"), StatusError)
	registerInstance(m, "fresh", filepath.Join(dir, "f.sock"), StatusRunning)
	registerInstance(m, "stale", filepath.Join(dir, "st.sock"), StatusRunning)

	m.mu.Lock()
	m.instances["stale"].lastSeen = time.Now().Add(-2 * time.Minute)
	m.mu.Unlock()

	m.sweepDeadInstances()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances["errored"]; ok {
		t.Error("errored instance not reclaimed")
	}
	if _, ok := m.instances["stale"]; ok {
		t.Error("stale instance not reclaimed")
	}
	if _, ok := m.instances["fresh"]; !ok {
		t.Error("fresh running instance was reclaimed")
	}
}

func TestCreateInstanceBinaryNotFound(t *testing.T) {
	m := NewManager(Options{
		MPVPath:     "/definitely/not/a/real/mpv",
		SocketDir:   t.TempDir(),
		WarmupDelay: time.Millisecond,
	})

	_, err := m.CreateInstance("")
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("CreateInstance() error = %v, want ErrBinaryNotFound", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.instances) != 0 {
		t.Errorf("failed spawn left %d instance records behind", len(m.instances))
	}
}

func TestCreateInstanceProbeFailure(t *testing.T) {
	dir := t.TempDir()

	// A fake mpv that starts but never opens an IPC socket: the probe
	// must fail and the record must end up in error status.
	script := filepath.Join(dir, "mpv")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 5\n"), 0o755); err != nil {
		t.Fatalf("writing fake mpv: %v", err)
	}

	m := NewManager(Options{
		MPVPath:        script,
		SocketDir:      dir,
		WarmupDelay:    10 * time.Millisecond,
		CommandTimeout: 100 * time.Millisecond,
	})

	_, err := m.CreateInstance("")
	if !errors.Is(err, ErrChannel) {
		t.Fatalf("CreateInstance() error = %v, want ErrChannel", err)
	}

	m.mu.Lock()
	if len(m.instances) != 1 {
		m.mu.Unlock()
		t.Fatalf("expected 1 instance record, got %d", len(m.instances))
	}
	var inst *instance
	for _, i := range m.instances {
		inst = i
	}
	status := inst.status
	handle := inst.process
	m.mu.Unlock()

	if status != StatusError {
		t.Errorf("instance status = %s, want error", status)
	}

	// The errored record is reclaimed by the sweep.
	m.sweepDeadInstances()
	m.mu.Lock()
	remaining := len(m.instances)
	m.mu.Unlock()
	if remaining != 0 {
		t.Errorf("sweep left %d instances, want 0", remaining)
	}

	if handle != nil {
		handle.Kill()
	}
}
