// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"os"
	"testing"

	"github.com/circutor/fieldctl/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewXFusionRequiresNodes(t *testing.T) {
	_, err := NewXFusion(1, []byte(`{}`))
	assert.Error(t, err)
}

func TestNewXFusionParsesNodes(t *testing.T) {
	drv, err := NewXFusion(1, []byte(`{
		"nodes": [
			{"id": 1, "mac": "aa:bb:cc:dd:ee:ff", "ip": "192.168.1.10", "port": 9000,
			 "ibmc_url": "https://192.168.1.11/", "ibmc_username": "admin", "ibmc_password": "pass"}
		]
	}`))
	require.NoError(t, err)
	d := drv.(*XFusion)
	require.Len(t, d.nodes, 1)
	assert.Equal(t, "https://192.168.1.11", d.nodes[0].ibmcURL)
	assert.Equal(t, xfusionDefaultSystemID, d.nodes[0].systemID)
}

func TestNewXFusionRejectsBadMAC(t *testing.T) {
	_, err := NewXFusion(1, []byte(`{"nodes":[{"id":1,"mac":"not-a-mac","ibmc_url":"https://x"}]}`))
	assert.Error(t, err)
}

func TestTokenCacheRoundTrip(t *testing.T) {
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(old)

	d := &XFusion{sessions: cache.Sessions(99)}
	_, ok := d.cachedToken(1)
	assert.False(t, ok)

	d.cacheToken(1, "tok-123")
	token, ok := d.cachedToken(1)
	require.True(t, ok)
	assert.Equal(t, "tok-123", token)

	d.invalidateToken(1)
	_, ok = d.cachedToken(1)
	assert.False(t, ok)
}

func TestIsSessionExpired(t *testing.T) {
	assert.True(t, isSessionExpired(`{"error":"NoValidSession"}`))
	assert.True(t, isSessionExpired("no valid session"))
	assert.False(t, isSessionExpired(`{"PowerState":"On"}`))
}

func TestUpdateHeartbeatUnknownMAC(t *testing.T) {
	d := &XFusion{nodes: []*xfusionNode{{id: 1, macText: "aa:bb:cc:dd:ee:ff"}}}
	assert.False(t, d.updateHeartbeat("11:22:33:44:55:66"))
	assert.True(t, d.updateHeartbeat("AA:BB:CC:DD:EE:FF"))
}

func TestWriteRequiresKnownNode(t *testing.T) {
	d := &XFusion{}
	assert.Error(t, d.Write(1, 1))
}

func TestWriteRejectsUnsupportedValue(t *testing.T) {
	d := &XFusion{nodes: []*xfusionNode{{id: 1}}}
	assert.Error(t, d.Write(1, 2))
}
