// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"
	"fmt"

	"github.com/circutor/fieldctl/internal/common"
)

var tprisPduMethods = []string{"read_switch_status", "write_switch_all", "write_switch_single"}

func (d *TprisPdu) GetMethods() []string { return tprisPduMethods }

func (d *TprisPdu) CallMethod(method string, params json.RawMessage) (json.RawMessage, error) {
	return d.Execute(method, params)
}

type tprisReadSwitchParams struct {
	Addr uint16 `json:"addr"`
}

type tprisWriteAllParams struct {
	Addr     uint16          `json:"addr"`
	Value    *uint16         `json:"value"`
	Switches map[string]bool `json:"switches"`
}

type tprisWriteSingleParams struct {
	Addr     uint16 `json:"addr"`
	SwitchID byte   `json:"switch_id"`
	Action   string `json:"action"`
	On       *bool  `json:"on"`
}

func (d *TprisPdu) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "read_switch_status":
		var p tprisReadSwitchParams
		json.Unmarshal(params, &p)
		addr := p.Addr
		if addr == 0 {
			addr = addrSwitchStatus
		}
		raw, err := d.readSwitchStatus(addr)
		if err != nil {
			return nil, err
		}
		switches := make(map[string]bool, 8)
		for i := byte(0); i < 8; i++ {
			switches[fmt.Sprintf("%d", i+1)] = (raw>>i)&1 == 1
		}
		return json.Marshal(map[string]interface{}{
			"status":    "success",
			"raw_value": raw,
			"switches":  switches,
		})

	case "write_switch_all":
		var p tprisWriteAllParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("tpris-pdu: invalid write_switch_all params: %v", err)
		}
		addr := p.Addr
		if addr == 0 {
			addr = addrSwitchStatus
		}

		var value uint16
		switch {
		case p.Value != nil:
			value = *p.Value
		case p.Switches != nil:
			for i := byte(1); i <= 8; i++ {
				if p.Switches[fmt.Sprintf("%d", i)] {
					value |= 1 << (i - 1)
				}
			}
		default:
			return nil, common.NewConfigError("tpris-pdu: write_switch_all requires value or switches")
		}

		if err := d.writeSwitchAll(addr, value); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"status": "success", "value": value})

	case "write_switch_single":
		var p tprisWriteSingleParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("tpris-pdu: invalid write_switch_single params: %v", err)
		}
		if p.SwitchID == 0 {
			return nil, common.NewConfigError("tpris-pdu: missing switch_id")
		}
		addr := p.Addr
		if addr == 0 {
			addr = addrSwitchSingle
		}

		var on bool
		switch {
		case p.Action != "":
			switch p.Action {
			case "on", "open", "1":
				on = true
			case "off", "close", "0":
				on = false
			default:
				return nil, common.NewConfigError("tpris-pdu: invalid action %q, must be on/off", p.Action)
			}
		case p.On != nil:
			on = *p.On
		default:
			return nil, common.NewConfigError("tpris-pdu: write_switch_single requires action or on")
		}

		if err := d.writeSwitchSingle(addr, p.SwitchID, on); err != nil {
			return nil, err
		}
		action := "off"
		if on {
			action = "on"
		}
		return json.Marshal(map[string]interface{}{"status": "success", "switch_id": p.SwitchID, "action": action})

	default:
		return nil, common.NewProtocolError("tpris-pdu: unknown command %q", command)
	}
}

// GetStatus attempts a live connection to report connectivity.
func (d *TprisPdu) GetStatus() (json.RawMessage, error) {
	_, handler, err := d.connect()
	if err != nil {
		return json.Marshal(map[string]interface{}{
			"protocol":  "tpris-pdu",
			"connected": false,
			"addr":      d.addr,
			"port":      d.port,
			"slave_id":  d.slaveID,
			"error":     err.Error(),
		})
	}
	handler.Close()
	return json.Marshal(map[string]interface{}{
		"protocol":  "tpris-pdu",
		"connected": true,
		"addr":      d.addr,
		"port":      d.port,
		"slave_id":  d.slaveID,
	})
}
