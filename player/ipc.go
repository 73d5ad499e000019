package player

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command []any `json:"command"`
}

// ipcResponse is the JSON structure received from mpv's IPC socket.
type ipcResponse struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
	Event string `json:"event"`
}

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	readDeadline = 1 * time.Second
	readBufSize  = 64 * 1024
)

// sendCommand sends a JSON-IPC command to mpv, retrying transient connection errors.
func (m *MPV) sendCommand(command ...any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		result, err := doSendCommand(m.socketPath, command)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command %v failed after %d attempts: %w", command[0], maxRetries, lastErr)
}

// doSendCommand performs a single IPC command attempt on a fresh connection.
func doSendCommand(socketPath string, command []any) (any, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := writeCommand(conn, command); err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	dec := json.NewDecoder(conn)
	for {
		var resp ipcResponse
		if err := dec.Decode(&resp); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}

		// events broadcast to every client may precede the reply
		if resp.Event != "" {
			continue
		}

		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv error: %s", resp.Error)
		}
		return resp.Data, nil
	}
}

func writeCommand(conn net.Conn, command []any) error {
	payload, err := json.Marshal(ipcCommand{Command: command})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	// mpv requires newline-delimited JSON
	if _, err = conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
