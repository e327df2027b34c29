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

func TestNewTprisPduDefaults(t *testing.T) {
	drv, err := NewTprisPdu(1, []byte(`{"addr":"192.168.1.20"}`))
	require.NoError(t, err)
	d := drv.(*TprisPdu)
	assert.Equal(t, uint16(502), d.port)
	assert.Equal(t, byte(2), d.slaveID)
}

func TestNewTprisPduRequiresAddr(t *testing.T) {
	_, err := NewTprisPdu(1, []byte(`{}`))
	assert.Error(t, err)
}

func TestWriteSwitchSingleValidatesRange(t *testing.T) {
	d := &TprisPdu{addr: "127.0.0.1", port: 502, slaveID: 2}
	assert.Error(t, d.writeSwitchSingle(addrSwitchSingle, 0, true))
	assert.Error(t, d.writeSwitchSingle(addrSwitchSingle, 9, true))
}

func TestWriteValidatesSwitchRange(t *testing.T) {
	d := &TprisPdu{addr: "127.0.0.1", port: 502, slaveID: 2}
	assert.Error(t, d.Write(0, 1))
	assert.Error(t, d.Write(9, 1))
}

func TestReadValidatesSwitchRange(t *testing.T) {
	d := &TprisPdu{addr: "127.0.0.1", port: 502, slaveID: 2}
	_, err := d.Read(0)
	assert.Error(t, err)
	_, err = d.Read(9)
	assert.Error(t, err)
}
