package mpv

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"mpv-remote/internal/logging"
	"mpv-remote/internal/metrics"

	"github.com/google/uuid"
)

const (
	defaultWarmupDelay    = 2 * time.Second
	defaultCommandTimeout = 5 * time.Second
	defaultStaleAfter     = 5 * time.Minute
	defaultSweepInterval  = 5 * time.Minute
)

// Options configures a Manager. Zero fields take defaults.
type Options struct {
	// MPVPath is the mpv binary name or path (default "mpv").
	MPVPath string
	// SocketDir is where per-instance IPC sockets are created.
	SocketDir string
	// WarmupDelay is how long to wait after spawning before probing.
	WarmupDelay time.Duration
	// CommandTimeout bounds each IPC round trip.
	CommandTimeout time.Duration
	// StaleAfter is the staleness window for the dead-instance sweep.
	StaleAfter time.Duration
	// SweepInterval is how often the sweep runs.
	SweepInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MPVPath == "" {
		o.MPVPath = "mpv"
	}
	if o.SocketDir == "" {
		o.SocketDir = "/tmp"
	}
	if o.WarmupDelay == 0 {
		o.WarmupDelay = defaultWarmupDelay
	}
	if o.CommandTimeout == 0 {
		o.CommandTimeout = defaultCommandTimeout
	}
	if o.StaleAfter == 0 {
		o.StaleAfter = defaultStaleAfter
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = defaultSweepInterval
	}
	return o
}

// Manager owns all mpv instance records. Every mutation of an instance
// goes through the Manager's mutex; callers only ever see copies.
type Manager struct {
	opts Options

	mu        sync.Mutex
	instances map[string]*instance

	requestID atomic.Int64
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewManager creates a Manager. Call Start to begin the periodic
// dead-instance sweep.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:      opts.withDefaults(),
		instances: make(map[string]*instance),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the periodic dead-instance sweep.
func (m *Manager) Start() {
	go func() {
		ticker := time.NewTicker(m.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweepDeadInstances()
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Shutdown stops the sweep loop. Running mpv processes are left alone:
// players deliberately outlive the server so playback is not interrupted
// by a backend restart.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// socketPathFor derives the IPC endpoint from an instance id. Pure
// function: no allocation step, no collision handling needed since ids
// are random UUIDs.
func (m *Manager) socketPathFor(id string) string {
	return filepath.Join(m.opts.SocketDir, "mpvsocket_"+id)
}

// CreateInstance spawns a new mpv process in idle mode bound to its own
// IPC socket, optionally pre-loading mediaFile, and probes the channel
// before reporting the instance as running.
func (m *Manager) CreateInstance(mediaFile string) (string, error) {
	id := uuid.NewString()
	socketPath := m.socketPathFor(id)

	logging.Info("Creating mpv instance %s (socket %s)", id, socketPath)
	if mediaFile != "" {
		logging.Info("Preloading media file: %s", mediaFile)
	}

	binary, err := exec.LookPath(m.opts.MPVPath)
	if err != nil {
		metrics.InstancesCreatedTotal.WithLabelValues("spawn_failed").Inc()
		return "", fmt.Errorf("%w: %q: %v", ErrBinaryNotFound, m.opts.MPVPath, err)
	}

	args := []string{
		"--player-operation-mode=pseudo-gui",
		"--idle=yes",
		"--force-window=yes",
		"--sub-auto=fuzzy",
		"--slang=en,eng",
		"--input-ipc-server=" + socketPath,
	}
	if mediaFile != "" {
		args = append(args, mediaFile)
	}

	handle, err := startProcess(binary, args)
	if err != nil {
		metrics.InstancesCreatedTotal.WithLabelValues("spawn_failed").Inc()
		return "", fmt.Errorf("%w: starting %s: %v", ErrBinaryNotFound, binary, err)
	}
	logging.Debug("mpv instance %s started with PID %d", id, handle.PID())

	inst := &instance{
		id:         id,
		socketPath: socketPath,
		status:     StatusStarting,
		lastSeen:   time.Now(),
		process:    handle,
	}

	m.mu.Lock()
	m.instances[id] = inst
	metrics.InstancesActive.Set(float64(len(m.instances)))
	m.mu.Unlock()

	go m.watchExit(id, handle)

	time.Sleep(m.opts.WarmupDelay)

	// Probe: any successful round trip proves the channel is live.
	if _, err := m.sendCommand(id, Command{Command: []string{"get_property", "mpv-version"}}, true); err != nil {
		m.mu.Lock()
		if cur, ok := m.instances[id]; ok && cur.status == StatusStarting {
			cur.status = StatusError
		}
		m.mu.Unlock()
		metrics.InstancesCreatedTotal.WithLabelValues("ipc_failed").Inc()
		logging.Error("IPC probe failed for instance %s: %v", id, err)
		return "", fmt.Errorf("mpv started but IPC channel unreachable: %w", err)
	}

	m.mu.Lock()
	if cur, ok := m.instances[id]; ok && cur.status == StatusStarting {
		cur.status = StatusRunning
	}
	m.mu.Unlock()

	metrics.InstancesCreatedTotal.WithLabelValues("running").Inc()
	logging.Info("mpv instance %s is now running", id)
	return id, nil
}

// watchExit completes the process's exit status asynchronously,
// independent of any explicit stop call. A clean exit is stopped, a
// non-zero exit is error; terminal states are never overwritten.
func (m *Manager) watchExit(id string, handle *processHandle) {
	<-handle.Done()
	code := handle.ExitCode()
	logging.Info("mpv process for instance %s exited with code %d", id, code)

	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return
	}
	if inst.status != StatusStarting && inst.status != StatusRunning {
		return
	}
	if code == 0 {
		inst.status = StatusStopped
	} else {
		inst.status = StatusError
	}
}

// SendCommand sends one raw IPC command to an instance. The instance
// must be running; allowStarting is used only by the startup probe.
// A failed command never changes the instance's recorded status.
func (m *Manager) SendCommand(id string, cmd Command) (*Response, error) {
	return m.sendCommand(id, cmd, false)
}

func (m *Manager) sendCommand(id string, cmd Command, allowStarting bool) (*Response, error) {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}

	valid := inst.status == StatusRunning || (allowStarting && inst.status == StatusStarting)
	if !valid {
		status := inst.status
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: instance %s is %s", ErrInvalidState, id, status)
	}
	socketPath := inst.socketPath
	m.mu.Unlock()

	requestID := int(m.requestID.Add(1))
	resp, err := roundTrip(socketPath, cmd.Command, requestID, m.opts.CommandTimeout)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if cur, ok := m.instances[id]; ok {
		cur.lastSeen = time.Now()
	}
	m.mu.Unlock()

	return resp, nil
}

// clientName fetches the instance's mpv client name over IPC.
func (m *Manager) clientName(id string) (string, error) {
	resp, err := m.sendCommand(id, Command{Command: []string{"client_name"}}, false)
	if err != nil {
		return "", err
	}
	name, _ := resp.Data.(string)
	return name, nil
}

// GetInstance returns a read-only view of one instance, enriched with
// the client name when the extra IPC round trip succeeds.
func (m *Manager) GetInstance(id string) (InstanceView, error) {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return InstanceView{}, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	view := inst.view()
	m.mu.Unlock()

	if name, err := m.clientName(id); err == nil {
		view.ClientName = name
		m.mu.Lock()
		if cur, ok := m.instances[id]; ok {
			cur.clientName = name
		}
		m.mu.Unlock()
	} else {
		logging.Warn("Failed to get client name for instance %s: %v", id, err)
	}

	return view, nil
}

// GetAllInstances returns read-only views of every instance, each
// enriched with the client name on a best-effort basis.
func (m *Manager) GetAllInstances() []InstanceView {
	m.mu.Lock()
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	views := make([]InstanceView, 0, len(ids))
	for _, id := range ids {
		view, err := m.GetInstance(id)
		if err != nil {
			// Swept concurrently; skip.
			continue
		}
		views = append(views, view)
	}
	return views
}

// StopInstance quits the player gracefully over IPC, force-killing the
// process when the channel is unreachable. The instance is always
// marked stopped afterward.
func (m *Manager) StopInstance(id string) error {
	logging.Info("Stopping instance %s", id)

	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	handle := inst.process
	m.mu.Unlock()

	if _, err := m.sendCommand(id, Command{Command: []string{"quit"}}, false); err != nil {
		logging.Warn("Failed to send quit to instance %s: %v", id, err)
		if handle != nil {
			if killErr := handle.Kill(); killErr != nil {
				logging.Warn("Failed to kill process for instance %s: %v", id, killErr)
			}
		}
	}

	m.mu.Lock()
	if cur, ok := m.instances[id]; ok {
		cur.status = StatusStopped
	}
	m.mu.Unlock()

	logging.Info("Instance %s stopped", id)
	return nil
}

// FindRunning returns the id of any instance currently in running
// status, or "" when none is. Used to reuse an existing player instead
// of spawning another.
func (m *Manager) FindRunning() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, inst := range m.instances {
		if inst.status == StatusRunning {
			return id
		}
	}
	return ""
}

// sweepDeadInstances removes records in error status or unseen past the
// staleness window.
func (m *Manager) sweepDeadInstances() {
	now := time.Now()

	m.mu.Lock()
	var dead []string
	for id, inst := range m.instances {
		if inst.status == StatusError || now.Sub(inst.lastSeen) > m.opts.StaleAfter {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		logging.Info("Reclaiming dead instance %s (status %s)", id, m.instances[id].status)
		delete(m.instances, id)
	}
	metrics.InstancesActive.Set(float64(len(m.instances)))
	m.mu.Unlock()

	if len(dead) > 0 {
		metrics.InstancesReclaimedTotal.Add(float64(len(dead)))
		logging.Info("Reclaimed %d dead instances", len(dead))
	}
}
