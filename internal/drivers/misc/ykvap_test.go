// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildYkVapFrameNoArgs(t *testing.T) {
	assert.Equal(t, "<CALL>\n", buildYkVapFrame("CALL", nil))
}

func TestBuildYkVapFrameWithArgs(t *testing.T) {
	assert.Equal(t, "<CALL,1,2>\n", buildYkVapFrame("CALL", []string{"1", "2"}))
}

func TestParseYkVapFrame(t *testing.T) {
	f, ok := parseYkVapFrame("<CALL,OK>")
	require.True(t, ok)
	assert.Equal(t, "CALL", f.cmd)
	assert.Equal(t, []string{"OK"}, f.args)
}

func TestParseYkVapFrameRejectsMalformed(t *testing.T) {
	_, ok := parseYkVapFrame("CALL,OK")
	assert.False(t, ok)
}

func TestIsOKFrame(t *testing.T) {
	assert.True(t, isOKFrame(ykVapFrame{cmd: "CALL", args: []string{"ok"}}))
	assert.False(t, isOKFrame(ykVapFrame{cmd: "CALL", args: []string{"1", "2"}}))
}

func TestNewYkVapRequiresAddrAndPort(t *testing.T) {
	_, err := NewYkVap(1, []byte(`{}`))
	assert.Error(t, err)
	_, err = NewYkVap(1, []byte(`{"addr":"192.168.1.1"}`))
	assert.Error(t, err)
}

func TestNewYkVapDefaultsToTCP(t *testing.T) {
	drv, err := NewYkVap(1, []byte(`{"addr":"192.168.1.1","port":5000}`))
	require.NoError(t, err)
	d := drv.(*YkVap)
	assert.Equal(t, "tcp", d.transport)
	assert.Equal(t, ykVapDefaultTimeout, d.timeout)
}

func TestNewYkVapRejectsBadTransport(t *testing.T) {
	_, err := NewYkVap(1, []byte(`{"addr":"192.168.1.1","port":5000,"type":"serial"}`))
	assert.Error(t, err)
}

func TestReadUnsupported(t *testing.T) {
	d := &YkVap{}
	_, err := d.Read(1)
	assert.Error(t, err)
}
