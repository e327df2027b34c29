package computercontrol

import (
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, cfg map[string]interface{}) *Driver {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	d, err := New(1, raw)
	require.NoError(t, err)
	return d.(*Driver)
}

func TestNewRequiresMacAddress(t *testing.T) {
	_, err := New(1, json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestNewRejectsBadMAC(t *testing.T) {
	_, err := New(1, json.RawMessage(`{"mac_address":[{"id":1,"mac":"not-a-mac"}]}`))
	assert.Error(t, err)
}

func TestWriteUnknownValueIsRejected(t *testing.T) {
	d := newDriver(t, map[string]interface{}{
		"mac_address": []map[string]interface{}{{"id": 1, "mac": "00:11:22:33:44:55"}},
	})
	err := d.Write(1, 2)
	assert.Error(t, err)
}

func TestWriteUnknownIDReturnsNotFound(t *testing.T) {
	d := newDriver(t, map[string]interface{}{
		"mac_address": []map[string]interface{}{{"id": 1, "mac": "00:11:22:33:44:55"}},
	})
	err := d.Write(99, 1)
	assert.Error(t, err)
}

func TestWakeSendsMagicPacket(t *testing.T) {
	ln, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, portStr, err := net.SplitHostPort(ln.LocalAddr().String())
	require.NoError(t, err)

	d := newDriver(t, map[string]interface{}{
		"mac_address":    []map[string]interface{}{{"id": 1, "mac": "00:11:22:33:44:55"}},
		"broadcast_addr": "127.0.0.1",
		"wol_port":       mustPortInt(t, portStr),
	})

	require.NoError(t, d.Write(1, 1))

	buf := make([]byte, 256)
	ln.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := ln.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, 102, n, "magic packet must be 6 sync bytes + 16 MAC repeats")
	for i := 0; i < 6; i++ {
		assert.Equal(t, byte(0xFF), buf[i])
	}
}

func TestHeartbeatThenReadReportsOnline(t *testing.T) {
	d := newDriver(t, map[string]interface{}{
		"mac_address": []map[string]interface{}{{"id": 1, "mac": "00:11:22:33:44:55"}},
	})

	_, err := d.Execute("heartbeat", json.RawMessage(`{"mac":"00:11:22:33:44:55"}`))
	require.NoError(t, err)

	v, err := d.Read(1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
}

func TestReadWithoutHeartbeatOrPingIsOffline(t *testing.T) {
	d := newDriver(t, map[string]interface{}{
		"mac_address": []map[string]interface{}{{"id": 1, "mac": "00:11:22:33:44:55"}},
	})
	v, err := d.Read(1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)
}

func mustPortInt(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
