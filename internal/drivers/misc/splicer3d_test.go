// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSetPresetCommand(t *testing.T) {
	assert.Equal(t, "/SetPreset:d,3,1;", buildSetPresetCommand(3, 1))
}

func TestBuildSetWinSrcCommand(t *testing.T) {
	assert.Equal(t, "/setWinSrc:d,1,2,3,4,1;", buildSetWinSrcCommand(1, 2, 3, 4, 1))
}

func TestParseAckResponseEmptyIsSuccess(t *testing.T) {
	assert.True(t, parseAckResponse(""))
}

func TestParseAckResponseWithMarker(t *testing.T) {
	assert.True(t, parseAckResponse("/ack:d,1;"))
	assert.True(t, parseAckResponse("garbage /ack:d,1 trailer"))
}

func TestParseAckResponseFailure(t *testing.T) {
	assert.False(t, parseAckResponse("/ack:d,0;"))
}

func TestNewSplicer3DDefaultsToTCP(t *testing.T) {
	drv, err := NewSplicer3D(1, []byte(`{"addr":"192.168.1.50"}`))
	require.NoError(t, err)
	d := drv.(*Splicer3D)
	assert.Equal(t, "tcp", d.connType)
	assert.Equal(t, uint16(splicer3dDefaultTCPPort), d.port)
}

func TestNewSplicer3DUDPMode(t *testing.T) {
	drv, err := NewSplicer3D(1, []byte(`{"use_udp":true,"addr":"192.168.1.50","local_port":6000}`))
	require.NoError(t, err)
	d := drv.(*Splicer3D)
	assert.Equal(t, "udp", d.connType)
	assert.Equal(t, uint16(splicer3dDefaultUDPPort), d.port)
	assert.Equal(t, uint16(6000), d.localPort)
}

func TestNewSplicer3DSerialMode(t *testing.T) {
	drv, err := NewSplicer3D(1, []byte(`{"type":"serial","port_name":"/dev/ttyUSB0"}`))
	require.NoError(t, err)
	d := drv.(*Splicer3D)
	assert.Equal(t, "serial", d.connType)
	assert.Equal(t, splicer3dDefaultBaud, d.baudRate)
}

func TestNewSplicer3DRequiresAddr(t *testing.T) {
	_, err := NewSplicer3D(1, []byte(`{}`))
	assert.Error(t, err)
}

func TestSendCommandTCPTimeoutIsSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 256)
		conn.Read(buf)
		time.Sleep(splicer3dResponseTimeout + 500*time.Millisecond)
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	d := &Splicer3D{connType: "tcp", addr: host, port: uint16(port), group: 1}

	response, err := d.sendCommandTCP("/SetPreset:d,1,1;")
	require.NoError(t, err)
	assert.Equal(t, "", response)
}
