package mpv

import (
	"errors"
	"time"
)

// Status is the lifecycle state of an mpv instance.
type Status string

const (
	// StatusStarting means the process was spawned but the IPC probe has
	// not yet succeeded.
	StatusStarting Status = "starting"
	// StatusRunning means the IPC channel answered the startup probe.
	StatusRunning Status = "running"
	// StatusError means the instance failed (probe failure or non-zero exit).
	StatusError Status = "error"
	// StatusStopped means the process exited cleanly or was stopped.
	StatusStopped Status = "stopped"
)

// Sentinel errors returned by the Manager. Callers match them with
// errors.Is; the HTTP layer maps them to response codes.
var (
	ErrInstanceNotFound = errors.New("mpv instance not found")
	ErrInvalidState     = errors.New("mpv instance is not in a valid state")
	ErrTimeout          = errors.New("timeout waiting for response from mpv")
	ErrChannel          = errors.New("mpv IPC channel error")
	ErrBinaryNotFound   = errors.New("mpv binary not found")
	ErrUnknownAction    = errors.New("unknown action")
	ErrMissingParam     = errors.New("missing required parameter")
)

// Command is a raw mpv IPC command. The request_id is assigned by the
// Manager when the command is sent.
type Command struct {
	Command   []string `json:"command"`
	RequestID int      `json:"request_id,omitempty"`
}

// Response is a single mpv IPC response line. Responses are matched to
// requests solely by RequestID.
type Response struct {
	RequestID int         `json:"request_id"`
	Error     string      `json:"error"`
	Data      interface{} `json:"data,omitempty"`
}

// RemoteCommand is the public command vocabulary accepted from clients.
type RemoteCommand struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// InstanceView is the read-only representation of an instance returned
// to callers. The process handle stays private to the Manager.
type InstanceView struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	LastSeen   time.Time `json:"lastSeen"`
	ClientName string    `json:"clientName,omitempty"`
}

// instance is the Manager-owned record for one supervised mpv process.
type instance struct {
	id         string
	socketPath string
	status     Status
	lastSeen   time.Time
	clientName string
	process    *processHandle
}

func (i *instance) view() InstanceView {
	return InstanceView{
		ID:         i.id,
		Status:     i.status,
		LastSeen:   i.lastSeen,
		ClientName: i.clientName,
	}
}
