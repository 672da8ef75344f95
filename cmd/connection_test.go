// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades requests carrying the expected Basic auth header and
// echoes every binary message back after a text message that must be skipped.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURLFor(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestOpenWebSocketConnection_BadScheme(t *testing.T) {
	_, err := OpenWebSocketConnection("http://localhost/ws", "", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestOpenWebSocketConnection_Unauthorized(t *testing.T) {
	srv := echoServer(t)

	_, err := OpenWebSocketConnection(wsURLFor(srv), "admin", "wrong", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestWebSocketConnection_ReadWrite(t *testing.T) {
	srv := echoServer(t)

	conn, err := OpenWebSocketConnection(wsURLFor(srv), "admin", "secret", false)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadTimeout(50*time.Millisecond))

	// Nothing sent yet: the read times out without an error
	buf := make([]byte, 4)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	frame := []byte{0x02, 0x2F, 0x05, 0x01, 0x00, 0x00}
	_, err = conn.Write(frame)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadTimeout(time.Second))

	// The echoed frame does not fit in one read; the rest is buffered
	var got []byte
	for len(got) < len(frame) {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		require.NotZero(t, n)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, frame, got)

	require.NoError(t, conn.Close())
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}
