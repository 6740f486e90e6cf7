package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"mpv-remote/internal/logging"
	"mpv-remote/internal/metrics"
)

// maxResponseBytes caps a single response line read from the socket.
const maxResponseBytes = 4 * 1024 * 1024

// roundTrip performs one command exchange over a fresh connection to the
// instance's socket: connect, write the framed request, then read
// newline-delimited JSON lines until the response carrying requestID
// arrives. mpv interleaves event lines on the same connection; anything
// that is malformed or carries a different request_id is skipped.
func roundTrip(socketPath string, command []string, requestID int, timeout time.Duration) (*Response, error) {
	start := time.Now()

	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		metrics.IPCCommandsTotal.WithLabelValues("channel_error").Inc()
		return nil, fmt.Errorf("%w: connecting to %s: %v", ErrChannel, socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		metrics.IPCCommandsTotal.WithLabelValues("channel_error").Inc()
		return nil, fmt.Errorf("%w: setting deadline: %v", ErrChannel, err)
	}

	payload, err := json.Marshal(Command{Command: command, RequestID: requestID})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding command: %v", ErrChannel, err)
	}
	payload = append(payload, '\n')

	logging.Debug("IPC request %d -> %s: %s", requestID, socketPath, payload[:len(payload)-1])

	if _, err := conn.Write(payload); err != nil {
		metrics.IPCCommandsTotal.WithLabelValues("channel_error").Inc()
		return nil, fmt.Errorf("%w: writing command: %v", ErrChannel, err)
	}

	scanner := bufio.NewScanner(conn)
	// track-list responses on long files can far exceed the default
	// 64 KiB token limit.
	scanner.Buffer(make([]byte, 64*1024), maxResponseBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			logging.Debug("IPC: skipping malformed line: %s", line)
			continue
		}
		if resp.RequestID != requestID {
			continue
		}

		logging.Debug("IPC response %d <- %s: error=%q", requestID, socketPath, resp.Error)
		metrics.IPCCommandsTotal.WithLabelValues("ok").Inc()
		metrics.IPCCommandDuration.Observe(time.Since(start).Seconds())
		return &resp, nil
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			metrics.IPCCommandsTotal.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: no response for request %d within %v", ErrTimeout, requestID, timeout)
		}
		metrics.IPCCommandsTotal.WithLabelValues("channel_error").Inc()
		return nil, fmt.Errorf("%w: reading response: %v", ErrChannel, err)
	}

	// Connection closed before a matching response arrived.
	metrics.IPCCommandsTotal.WithLabelValues("timeout").Inc()
	return nil, fmt.Errorf("%w: connection closed with no matching response for request %d", ErrTimeout, requestID)
}
