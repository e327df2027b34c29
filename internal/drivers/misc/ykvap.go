// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("yk-vap", NewYkVap)
}

const ykVapDefaultTimeout = 3 * time.Second

// ykVapFrame is one parsed <CMD,arg,arg,...> line.
type ykVapFrame struct {
	cmd  string
	args []string
}

// YkVap drives a video-wall processor over a line-based text
// protocol framed as <CMD,arg,arg,...>, read either over TCP (which
// frames on '<'/'>' byte boundaries rather than newlines, since some
// devices omit them) or UDP (one datagram per line).
type YkVap struct {
	channelID uint32
	addr      string
	port      uint16
	timeout   time.Duration
	transport string // "tcp" or "udp"

	models.UnimplementedMethods
}

type ykVapConfig struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Addr      string `json:"addr"`
	Port      uint16 `json:"port"`
	TimeoutMs uint64 `json:"timeout"`
}

// NewYkVap constructs a yk-vap driver, defaulting to TCP transport.
func NewYkVap(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg ykVapConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("yk-vap: invalid arguments: %v", err)
		}
	}

	transport := strings.ToLower(cfg.Type)
	if transport == "" {
		transport = strings.ToLower(cfg.Transport)
	}
	switch transport {
	case "", "tcp":
		transport = "tcp"
	case "udp":
		transport = "udp"
	default:
		return nil, common.NewConfigError("yk-vap: type must be tcp or udp, got %q", transport)
	}

	if cfg.Addr == "" {
		return nil, common.NewConfigError("yk-vap: missing addr")
	}
	if cfg.Port == 0 {
		return nil, common.NewConfigError("yk-vap: missing port")
	}

	timeout := ykVapDefaultTimeout
	if cfg.TimeoutMs != 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	return &YkVap{
		channelID: channelID,
		addr:      cfg.Addr,
		port:      cfg.Port,
		timeout:   timeout,
		transport: transport,
	}, nil
}

func (d *YkVap) Name() string { return "yk-vap" }

func buildYkVapFrame(cmd string, args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("<%s>\n", cmd)
	}
	return fmt.Sprintf("<%s,%s>\n", cmd, strings.Join(args, ","))
}

func parseYkVapFrame(line string) (ykVapFrame, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "<") || !strings.HasSuffix(trimmed, ">") {
		return ykVapFrame{}, false
	}
	inner := trimmed[1 : len(trimmed)-1]
	parts := strings.Split(inner, ",")
	if len(parts) == 0 {
		return ykVapFrame{}, false
	}
	cmd := strings.TrimSpace(parts[0])
	args := make([]string, 0, len(parts)-1)
	for _, a := range parts[1:] {
		args = append(args, strings.TrimSpace(a))
	}
	return ykVapFrame{cmd: cmd, args: args}, true
}

func isOKFrame(f ykVapFrame) bool {
	return len(f.args) == 1 && strings.EqualFold(f.args[0], "OK")
}

func (d *YkVap) sendAndReadLines(frame, expectedCmd string) ([]ykVapFrame, error) {
	if d.transport == "udp" {
		return d.sendAndReadLinesUDP(frame, expectedCmd)
	}
	return d.sendAndReadLinesTCP(frame, expectedCmd)
}

// sendAndReadLinesTCP reads raw bytes and scans for '<'...'>' frame
// boundaries rather than relying on newlines, since the device may
// not send them.
func (d *YkVap) sendAndReadLinesTCP(frame, expectedCmd string) ([]ykVapFrame, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", d.addr, d.port), d.timeout)
	if err != nil {
		return nil, common.NewConnectionError("yk-vap: connect %s:%d: %v", d.addr, d.port, err)
	}
	defer conn.Close()
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	conn.SetWriteDeadline(time.Now().Add(d.timeout))
	if _, err := conn.Write([]byte(frame)); err != nil {
		return nil, common.NewConnectionError("yk-vap: send frame: %v", err)
	}

	var out []ykVapFrame
	var buffer []byte
	temp := make([]byte, 1024)

	for {
		conn.SetReadDeadline(time.Now().Add(d.timeout))
		n, err := conn.Read(temp)
		if err != nil {
			if isTimeoutErr(err) {
				if len(out) > 0 {
					return out, nil
				}
				return nil, common.NewTimeout("yk-vap: read timed out waiting for %s response", expectedCmd)
			}
			return nil, common.NewConnectionError("yk-vap: read: %v", err)
		}
		if n == 0 {
			break
		}
		buffer = append(buffer, temp[:n]...)

		for {
			start := indexByte(buffer, '<')
			if start < 0 {
				buffer = nil
				break
			}
			end := indexByte(buffer[start:], '>')
			if end < 0 {
				break
			}
			end += start

			frameStr := string(buffer[start : end+1])
			buffer = buffer[end+1:]

			parsed, ok := parseYkVapFrame(frameStr)
			if !ok {
				continue
			}
			if !strings.EqualFold(parsed.cmd, expectedCmd) {
				continue
			}
			out = append(out, parsed)
			if isOKFrame(parsed) {
				return out, nil
			}
		}
	}

	return out, nil
}

func (d *YkVap) sendAndReadLinesUDP(frame, expectedCmd string) ([]ykVapFrame, error) {
	conn, err := net.DialTimeout("udp", fmt.Sprintf("%s:%d", d.addr, d.port), d.timeout)
	if err != nil {
		return nil, common.NewConnectionError("yk-vap: dial udp %s:%d: %v", d.addr, d.port, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(d.timeout))
	if _, err := conn.Write([]byte(frame)); err != nil {
		return nil, common.NewConnectionError("yk-vap: send frame: %v", err)
	}

	var out []ykVapFrame
	buf := make([]byte, 4096)
	for {
		conn.SetReadDeadline(time.Now().Add(d.timeout))
		n, err := conn.Read(buf)
		if err != nil {
			if isTimeoutErr(err) {
				return nil, common.NewTimeout("yk-vap: read timed out waiting for %s response", expectedCmd)
			}
			return nil, common.NewConnectionError("yk-vap: read: %v", err)
		}
		if n == 0 {
			continue
		}

		for _, line := range strings.Split(string(buf[:n]), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			parsed, ok := parseYkVapFrame(line)
			if !ok {
				continue
			}
			if !strings.EqualFold(parsed.cmd, expectedCmd) {
				continue
			}
			out = append(out, parsed)
			if isOKFrame(parsed) {
				return out, nil
			}
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// callScene invokes <CALL,sceneID[,group]> and collects any window
// descriptors returned before the terminating <CALL,OK> frame.
func (d *YkVap) callScene(sceneID uint64, group *uint64) ([]map[string]interface{}, error) {
	args := []string{strconv.FormatUint(sceneID, 10)}
	if group != nil {
		args = append(args, strconv.FormatUint(*group, 10))
	}

	frames, err := d.sendAndReadLines(buildYkVapFrame("CALL", args), "CALL")
	if err != nil {
		return nil, err
	}

	var windows []map[string]interface{}
	ok := false
	for _, f := range frames {
		if isOKFrame(f) {
			ok = true
			continue
		}
		if len(f.args) == 7 {
			windows = append(windows, map[string]interface{}{
				"w_id":        atoiOrNil(f.args[0]),
				"channel":     atoiOrNil(f.args[1]),
				"x0":          atoiOrNil(f.args[2]),
				"y0":          atoiOrNil(f.args[3]),
				"x1":          atoiOrNil(f.args[4]),
				"y1":          atoiOrNil(f.args[5]),
				"sub_channel": atoiOrNil(f.args[6]),
				"raw":         f.args,
			})
		} else {
			windows = append(windows, map[string]interface{}{"raw": f.args})
		}
	}

	if !ok {
		return nil, common.NewProtocolError("yk-vap: did not receive <CALL,OK> terminator")
	}
	return windows, nil
}

func atoiOrNil(s string) interface{} {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return nil
}

// readScene invokes <RSCS,wallIndex[,group]> and returns the reported
// scene index.
func (d *YkVap) readScene(wallIndex uint64, group *uint64) (*uint64, error) {
	args := []string{strconv.FormatUint(wallIndex, 10)}
	if group != nil {
		args = append(args, strconv.FormatUint(*group, 10))
	}

	frames, err := d.sendAndReadLines(buildYkVapFrame("RSCS", args), "RSCS")
	if err != nil {
		return nil, err
	}

	var index *uint64
	ok := false
	for _, f := range frames {
		if isOKFrame(f) {
			ok = true
			continue
		}
		if len(f.args) == 1 {
			if v, err := strconv.ParseUint(f.args[0], 10, 64); err == nil {
				index = &v
			}
		}
	}

	if !ok {
		return nil, common.NewProtocolError("yk-vap: did not receive <RSCS,OK> terminator")
	}
	return index, nil
}

// Write calls the scene numbered value; YK-VAP exposes no other
// addressable point through the simplified write interface.
func (d *YkVap) Write(_ uint32, value int32) error {
	_, err := d.callScene(uint64(value), nil)
	return err
}

// Read is unsupported: use the call_scene/read_scene named commands
// instead.
func (d *YkVap) Read(uint32) (int32, error) {
	return 0, common.NewProtocolError("yk-vap: simplified read is not supported, use execute(read_scene)")
}
