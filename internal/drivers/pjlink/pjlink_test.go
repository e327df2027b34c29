package pjlink

import (
	"encoding/json"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFakeProjector runs a one-shot PJLink-ish TCP server: it sends
// the PJLink greeting line, then echoes back a canned OK response to
// whatever command it receives.
func startFakeProjector(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("PJLINK 0\r"))
		buf := make([]byte, 256)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		conn.Write([]byte("%1POWR=OK\r"))
	}()

	return ln.Addr().String()
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestPjlinkPowerOn(t *testing.T) {
	addr := startFakeProjector(t)
	host, port := splitHostPort(t, addr)

	d, err := New(1, mustMarshal(t, map[string]interface{}{"addr": host, "port": port}))
	require.NoError(t, err)

	raw, err := d.Execute("powerOn", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestPjlinkUnknownCommand(t *testing.T) {
	addr := startFakeProjector(t)
	host, port := splitHostPort(t, addr)

	d, err := New(1, mustMarshal(t, map[string]interface{}{"addr": host, "port": port}))
	require.NoError(t, err)

	_, err = d.Execute("doSomethingElse", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestPjlinkReadWriteUnsupported(t *testing.T) {
	d, err := New(1, mustMarshal(t, map[string]interface{}{"addr": "127.0.0.1", "port": 4352}))
	require.NoError(t, err)

	_, err = d.Read(1)
	assert.Error(t, err)
	assert.Error(t, d.Write(1, 1))
}

func TestPjlinkMissingAddr(t *testing.T) {
	_, err := New(1, json.RawMessage(`{"port":4352}`))
	assert.Error(t, err)
}
