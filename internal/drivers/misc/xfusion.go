// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/circutor/fieldctl/internal/cache"
	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("xfusion", NewXFusion)
}

const (
	xfusionHeartbeatTimeout = 10 * time.Second
	xfusionHTTPTimeout      = 30 * time.Second
	xfusionUDPTimeout       = 500 * time.Millisecond
	xfusionDefaultSystemID  = "1"
)

type xfusionNode struct {
	id            uint32
	macText       string
	mac           net.HardwareAddr
	ip            string
	port          uint16
	lastHeartbeat time.Time

	ibmcURL      string
	ibmcUsername string
	ibmcPassword string
	systemID     string
}

type xfusionConfigItem struct {
	ID           uint32  `json:"id"`
	MAC          string  `json:"mac"`
	IP           *string `json:"ip"`
	Port         *uint16 `json:"port"`
	IbmcURL      string  `json:"ibmc_url"`
	IbmcUsername string  `json:"ibmc_username"`
	IbmcPassword string  `json:"ibmc_password"`
	SystemID     string  `json:"system_id"`
}

type xfusionDriverConfig struct {
	Nodes         []xfusionConfigItem `json:"nodes"`
	MacAddress    []xfusionConfigItem `json:"mac_address"`
	BroadcastAddr string              `json:"broadcast_addr"`
	Broadcast     string              `json:"broadcast"`
	WolPort       uint16              `json:"wol_port"`
	ShutdownPort  uint16              `json:"shutdown_port"`
}

// XFusion controls a fleet of xFusion rack servers through the iBMC
// Redfish API, falling back to a UDP ping/heartbeat exchange for
// liveness when the BMC itself cannot be reached.
type XFusion struct {
	channelID     uint32
	nodes         []*xfusionNode
	broadcastAddr string
	wolPort       uint16
	shutdownPort  uint16
	httpClient    *http.Client

	sessions *cache.SessionCache

	models.UnimplementedMethods
}

// NewXFusion constructs an XFusion driver from its nodes list, each
// carrying a MAC address (for heartbeat matching) and iBMC Redfish
// credentials.
func NewXFusion(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg xfusionDriverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("XFusion: invalid arguments: %v", err)
		}
	}

	items := cfg.Nodes
	if len(items) == 0 {
		items = cfg.MacAddress
	}
	if len(items) == 0 {
		return nil, common.NewConfigError("XFusion: missing nodes list")
	}

	nodes := make([]*xfusionNode, 0, len(items))
	for _, item := range items {
		mac, err := net.ParseMAC(item.MAC)
		if err != nil {
			return nil, common.NewConfigError("XFusion: invalid MAC address %q: %v", item.MAC, err)
		}
		if item.IbmcURL == "" {
			return nil, common.NewConfigError("XFusion: node %d missing ibmc_url", item.ID)
		}

		systemID := item.SystemID
		if systemID == "" {
			systemID = xfusionDefaultSystemID
		}

		node := &xfusionNode{
			id:           item.ID,
			macText:      item.MAC,
			mac:          mac,
			ibmcURL:      strings.TrimRight(item.IbmcURL, "/"),
			ibmcUsername: item.IbmcUsername,
			ibmcPassword: item.IbmcPassword,
			systemID:     systemID,
		}
		if item.IP != nil {
			node.ip = *item.IP
		}
		if item.Port != nil {
			node.port = *item.Port
		}
		nodes = append(nodes, node)
	}

	broadcastAddr := cfg.BroadcastAddr
	if broadcastAddr == "" {
		broadcastAddr = cfg.Broadcast
	}
	if broadcastAddr == "" {
		broadcastAddr = "255.255.255.255"
	}

	wolPort := cfg.WolPort
	if wolPort == 0 {
		wolPort = 9
	}
	shutdownPort := cfg.ShutdownPort
	if shutdownPort == 0 {
		shutdownPort = wolPort
	}

	return &XFusion{
		channelID:     channelID,
		nodes:         nodes,
		broadcastAddr: broadcastAddr,
		wolPort:       wolPort,
		shutdownPort:  shutdownPort,
		sessions:      cache.Sessions(channelID),
		httpClient: &http.Client{
			Timeout: xfusionHTTPTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}, nil
}

func (d *XFusion) Name() string { return "xfusion" }

func (d *XFusion) findByID(id uint32) *xfusionNode {
	for _, n := range d.nodes {
		if n.id == id {
			return n
		}
	}
	return nil
}

func (d *XFusion) findByMAC(mac string) *xfusionNode {
	for _, n := range d.nodes {
		if strings.EqualFold(n.macText, mac) {
			return n
		}
	}
	return nil
}

func (d *XFusion) cachedToken(nodeID uint32) (string, bool) {
	return d.sessions.Get(nodeID)
}

func (d *XFusion) cacheToken(nodeID uint32, token string) {
	d.sessions.Set(nodeID, token)
}

func (d *XFusion) invalidateToken(nodeID uint32) {
	d.sessions.Clear(nodeID)
}

// createSessionToken authenticates against the node's iBMC and caches
// the resulting X-Auth-Token.
func (d *XFusion) createSessionToken(node *xfusionNode) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"UserName": node.ibmcUsername,
		"Password": node.ibmcPassword,
	})

	req, err := http.NewRequest(http.MethodPost, node.ibmcURL+"/redfish/v1/SessionService/Sessions", bytes.NewReader(body))
	if err != nil {
		return "", common.NewProtocolError("XFusion: build session request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", common.NewConnectionError("XFusion: iBMC session request failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", common.NewProtocolError("XFusion: iBMC session request returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed struct {
		Oem struct {
			XFusion struct {
				XAuthToken string `json:"X-Auth-Token"`
			} `json:"xFusion"`
		} `json:"Oem"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", common.NewProtocolError("XFusion: parse session response: %v", err)
	}
	token := parsed.Oem.XFusion.XAuthToken
	if token == "" {
		return "", common.NewProtocolError("XFusion: session response missing X-Auth-Token")
	}

	d.cacheToken(node.id, token)
	return token, nil
}

func (d *XFusion) sessionToken(node *xfusionNode) (string, error) {
	if token, ok := d.cachedToken(node.id); ok {
		return token, nil
	}
	return d.createSessionToken(node)
}

func isSessionExpired(responseText string) bool {
	return strings.Contains(responseText, "NoValidSession") || strings.Contains(responseText, "no valid session")
}

// powerAction POSTs a Redfish ComputerSystem.Reset action, retrying
// once with a freshly created token if the cached one has expired.
func (d *XFusion) powerAction(node *xfusionNode, resetType string) error {
	resetURL := fmt.Sprintf("%s/redfish/v1/Systems/%s/Actions/ComputerSystem.Reset", node.ibmcURL, node.systemID)
	body, _ := json.Marshal(map[string]string{"ResetType": resetType})

	for attempt := 0; attempt < 2; attempt++ {
		var token string
		var err error
		if attempt == 0 {
			token, err = d.sessionToken(node)
		} else {
			d.invalidateToken(node.id)
			token, err = d.createSessionToken(node)
		}
		if err != nil {
			return err
		}

		req, err := http.NewRequest(http.MethodPost, resetURL, bytes.NewReader(body))
		if err != nil {
			return common.NewProtocolError("XFusion: build reset request: %v", err)
		}
		req.Header.Set("X-Auth-Token", token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return common.NewConnectionError("XFusion: iBMC power action request failed: %v", err)
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		text := string(data)

		if (resp.StatusCode == http.StatusUnauthorized || isSessionExpired(text)) && attempt == 0 {
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 || strings.Contains(text, "error") {
			return common.NewProtocolError("XFusion: iBMC power action returned %d: %s", resp.StatusCode, text)
		}
		return nil
	}

	return common.NewProtocolError("XFusion: power action retries exhausted")
}

func (d *XFusion) powerOn(node *xfusionNode) error { return d.powerAction(node, "On") }

func (d *XFusion) powerOff(node *xfusionNode) error { return d.powerAction(node, "GracefulShutdown") }

func (d *XFusion) forceOff(node *xfusionNode) error { return d.powerAction(node, "ForceOff") }

func (d *XFusion) forceRestart(node *xfusionNode) error { return d.powerAction(node, "ForceRestart") }

func (d *XFusion) forcePowerCycle(node *xfusionNode) error {
	return d.powerAction(node, "ForcePowerCycle")
}

// getPowerState queries the Redfish PowerState field, retrying once on
// an expired session.
func (d *XFusion) getPowerState(node *xfusionNode) (string, error) {
	systemURL := fmt.Sprintf("%s/redfish/v1/Systems/%s", node.ibmcURL, node.systemID)

	for attempt := 0; attempt < 2; attempt++ {
		var token string
		var err error
		if attempt == 0 {
			token, err = d.sessionToken(node)
		} else {
			d.invalidateToken(node.id)
			token, err = d.createSessionToken(node)
		}
		if err != nil {
			return "", err
		}

		req, err := http.NewRequest(http.MethodGet, systemURL, nil)
		if err != nil {
			return "", common.NewProtocolError("XFusion: build power state request: %v", err)
		}
		req.Header.Set("X-Auth-Token", token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return "", common.NewConnectionError("XFusion: iBMC power state request failed: %v", err)
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		text := string(data)

		if (resp.StatusCode == http.StatusUnauthorized || isSessionExpired(text)) && attempt == 0 {
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", common.NewProtocolError("XFusion: iBMC power state request returned %d: %s", resp.StatusCode, text)
		}

		var parsed struct {
			Error      json.RawMessage `json:"error"`
			PowerState string          `json:"PowerState"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return "", common.NewProtocolError("XFusion: parse power state response: %v", err)
		}
		if parsed.Error != nil && attempt == 0 {
			continue
		}
		if parsed.PowerState == "" {
			return "Unknown", nil
		}
		return parsed.PowerState, nil
	}

	return "", common.NewProtocolError("XFusion: power state retries exhausted")
}

func (d *XFusion) sendUDP(ip string, port uint16, command string, waitResponse bool) (string, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(ip, strconv.Itoa(int(port))))
	if err != nil {
		return "", common.NewConnectionError("XFusion: dial %s:%d: %v", ip, port, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		return "", common.NewConnectionError("XFusion: send command: %v", err)
	}
	if !waitResponse {
		return "", nil
	}

	conn.SetReadDeadline(time.Now().Add(xfusionUDPTimeout))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

func (d *XFusion) pingNode(node *xfusionNode) bool {
	if node.ip == "" || node.port == 0 {
		return false
	}
	resp, err := d.sendUDP(node.ip, node.port, "ping", true)
	if err != nil {
		return false
	}
	return strings.EqualFold(resp, "pong")
}

func (d *XFusion) updateHeartbeat(mac string) bool {
	for _, n := range d.nodes {
		if strings.EqualFold(n.macText, mac) {
			n.lastHeartbeat = time.Now()
			return true
		}
	}
	return false
}

// isPoweredOn prefers the iBMC API and falls back to a UDP ping when
// the BMC cannot be reached.
func (d *XFusion) isPoweredOn(node *xfusionNode) bool {
	state, err := d.getPowerState(node)
	if err == nil {
		return strings.EqualFold(state, "On")
	}
	return d.pingNode(node)
}

func (d *XFusion) isOnline(node *xfusionNode) bool {
	if d.isPoweredOn(node) {
		return true
	}
	if d.pingNode(node) {
		return true
	}
	if node.lastHeartbeat.IsZero() {
		return false
	}
	return time.Since(node.lastHeartbeat) < xfusionHeartbeatTimeout
}

// getAudioStatus asks an online node for its volume/mute state over
// the same UDP channel used for ping/heartbeat.
func (d *XFusion) getAudioStatus(node *xfusionNode) (volume *int, mute *bool) {
	if !d.isOnline(node) || node.ip == "" || node.port == 0 {
		return nil, nil
	}
	resp, err := d.sendUDP(node.ip, node.port, "get", true)
	if err != nil || resp == "" {
		return nil, nil
	}

	for _, part := range strings.Split(resp, ",") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])
		switch key {
		case "volume":
			if v, err := strconv.Atoi(value); err == nil {
				volume = &v
			}
		case "mute":
			if v, err := strconv.ParseBool(value); err == nil {
				mute = &v
			}
		}
	}
	return volume, mute
}

// Write controls the node addressed by id: 1 powers it on, 0 asks it
// to shut down gracefully.
func (d *XFusion) Write(id uint32, value int32) error {
	node := d.findByID(id)
	if node == nil {
		return common.NewDeviceNotFound("XFusion: no node with id %d", id)
	}

	switch value {
	case 1:
		return d.powerOn(node)
	case 0:
		return d.powerOff(node)
	default:
		return common.NewConfigError("XFusion: write only supports 0 (shutdown) or 1 (power on), got %d", value)
	}
}

// Read reports the power state of the node addressed by id: 1 on, 0
// off.
func (d *XFusion) Read(id uint32) (int32, error) {
	node := d.findByID(id)
	if node == nil {
		return 0, common.NewDeviceNotFound("XFusion: no node with id %d", id)
	}
	if d.isPoweredOn(node) {
		return 1, nil
	}
	return 0, nil
}
