package novastar

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLoadSceneCommandChecksum(t *testing.T) {
	command, err := buildLoadSceneCommand(3)
	require.NoError(t, err)
	require.Len(t, command, 20)
	assert.Equal(t, byte(2), command[17], "scene id is 0-indexed")

	sumL, sumH := calculateChecksum(command[:18])
	assert.Equal(t, sumL, command[18])
	assert.Equal(t, sumH, command[19])
}

func TestBuildLoadSceneCommandRejectsOutOfRange(t *testing.T) {
	_, err := buildLoadSceneCommand(0)
	assert.Error(t, err)
	_, err = buildLoadSceneCommand(11)
	assert.Error(t, err)
}

func TestLoadSceneSuccessResponse(t *testing.T) {
	addr, stop := startFakeDevice(t, respLoadSceneSuccess)
	defer stop()

	host, port := splitHostPort(t, addr)
	d := &Driver{useTCP: true, addr: host, port: uint16(port)}

	ok, err := d.loadScene(1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadSceneValidButUnsuccessfulResponse(t *testing.T) {
	response := append([]byte{0xAA, 0x55}, make([]byte, 18)...)
	addr, stop := startFakeDevice(t, response)
	defer stop()

	host, port := splitHostPort(t, addr)
	d := &Driver{useTCP: true, addr: host, port: uint16(port)}

	ok, err := d.loadScene(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadSceneMalformedResponse(t *testing.T) {
	response := make([]byte, 20)
	addr, stop := startFakeDevice(t, response)
	defer stop()

	host, port := splitHostPort(t, addr)
	d := &Driver{useTCP: true, addr: host, port: uint16(port)}

	_, err := d.loadScene(1)
	assert.Error(t, err)
}

func TestReadModeIDValidatesHeader(t *testing.T) {
	response := append([]byte{0xAA, 0x55}, make([]byte, 18)...)
	addr, stop := startFakeDevice(t, response)
	defer stop()

	host, port := splitHostPort(t, addr)
	d := &Driver{useTCP: true, addr: host, port: uint16(port)}

	_, err := d.readModeID()
	assert.NoError(t, err)
}

func TestNewRequiresAddrInTCPMode(t *testing.T) {
	_, err := New(1, []byte(`{}`))
	assert.Error(t, err)
}

func TestNewRequiresPortNameInSerialMode(t *testing.T) {
	_, err := New(1, []byte(`{"use_tcp":false}`))
	assert.Error(t, err)
}

func TestNewDefaultsTCPPort(t *testing.T) {
	d, err := New(1, []byte(`{"addr":"10.0.0.1"}`))
	require.NoError(t, err)
	nd := d.(*Driver)
	assert.Equal(t, uint16(defaultTCPPort), nd.port)
}

// startFakeDevice accepts exactly one connection, reads the incoming
// command and replies with a fixed response.
func startFakeDevice(t *testing.T, response []byte) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 64)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		conn.Read(buf)
		conn.Write(response)
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}
