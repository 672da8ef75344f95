// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection provides a common interface for reading/writing bytes from
// serial or WebSocket. Read returns (0, nil) once the read timeout elapses.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadTimeout(t time.Duration) error
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) SetReadTimeout(t time.Duration) error {
	return s.port.SetReadTimeout(t)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection wraps a WebSocket connection for byte-level reading.
// A background goroutine pulls binary messages so reads can time out like
// a serial port.
type WebSocketConnection struct {
	conn     *websocket.Conn
	messages chan []byte
	done     chan struct{}

	mu      sync.Mutex
	buf     []byte
	timeout time.Duration
	err     error

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	w := &WebSocketConnection{
		conn:     conn,
		messages: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	go w.readLoop()
	return w
}

func (w *WebSocketConnection) readLoop() {
	defer close(w.messages)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			return
		}

		// Only binary messages carry frames; skip the rest
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case w.messages <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocketConnection) SetReadTimeout(t time.Duration) error {
	w.mu.Lock()
	w.timeout = t
	w.mu.Unlock()
	return nil
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	w.mu.Lock()
	// If we have buffered data, return it first
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		w.mu.Unlock()
		return n, nil
	}
	timeout := w.timeout
	w.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case data, ok := <-w.messages:
		if !ok {
			// Reader goroutine exited: the connection is closed
			w.mu.Lock()
			err := w.err
			w.mu.Unlock()
			if err == nil {
				return 0, ErrConnectionClosed
			}
			return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		// Buffer the message and return what fits
		n := copy(p, data)
		if n < len(data) {
			w.mu.Lock()
			w.buf = append(w.buf, data[n:]...)
			w.mu.Unlock()
		}
		return n, nil
	case <-expired:
		// Timed out like a serial port: no data, no error
		return 0, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	// One frame per binary message; gorilla allows a single concurrent writer
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port connection
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Validate scheme
	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	// Create dialer with timeout
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	// Configure TLS for wss://
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	// Connect
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWebSocketConnection(conn), nil
}

var (
	passwordOnce sync.Once
	password     string
	passwordErr  error
)

// GetPassword retrieves password from environment or prompts user. The
// answer is remembered so reconnects do not prompt again.
func GetPassword() (string, error) {
	passwordOnce.Do(func() {
		password, passwordErr = readPassword()
	})
	return password, passwordErr
}

func readPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("HYDROSTAT_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		pw, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(pw), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection from the
// resolved configuration. WebSocket wins when a URL is set.
func OpenConnection() (Connection, string, error) {
	if cfg.WebSocket.URL != "" {
		// WebSocket mode
		pw := ""
		if cfg.WebSocket.Username != "" {
			var err error
			pw, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(cfg.WebSocket.URL, cfg.WebSocket.Username, pw, cfg.WebSocket.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", cfg.WebSocket.URL), nil
	}

	if cfg.Serial.Port != "" {
		// Serial mode
		conn, err := OpenSerialConnection(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", cfg.Serial.Port, cfg.Serial.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}
