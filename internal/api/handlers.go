// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/circutor/fieldctl/internal/common"
)

// Handler wires Facade to the endpoint table in spec.md section 6.
type Handler struct {
	ctrl Facade
}

// NewRouter builds the mux.Router serving every endpoint under
// common.APIPrefix.
func NewRouter(ctrl Facade) *mux.Router {
	h := &Handler{ctrl: ctrl}
	r := mux.NewRouter()
	sub := r.PathPrefix(common.APIPrefix).Subrouter()

	sub.HandleFunc("/write", h.write).Methods(http.MethodPost)
	sub.HandleFunc("/writeMany", h.writeMany).Methods(http.MethodPost)
	sub.HandleFunc("/read", h.read).Methods(http.MethodPost)
	sub.HandleFunc("/readMany", h.readMany).Methods(http.MethodPost)
	sub.HandleFunc("/scene", h.scene).Methods(http.MethodPost)
	sub.HandleFunc("/sceneStatus", h.sceneStatus).Methods(http.MethodGet)
	sub.HandleFunc("/executeCommand", h.executeCommand).Methods(http.MethodPost)
	sub.HandleFunc("/callMethod", h.callMethod).Methods(http.MethodPost)
	sub.HandleFunc("/getMethods", h.getMethods).Methods(http.MethodPost)
	sub.HandleFunc("/getAllStatus", h.getAllStatus).Methods(http.MethodPost)
	sub.HandleFunc("/getAllNodeStates", h.getAllNodeStates).Methods(http.MethodPost)
	sub.HandleFunc("/getNodeState", h.getNodeState).Methods(http.MethodPost)

	return r
}

type writeRequest struct {
	GlobalID uint32 `json:"global_id"`
	Value    int32  `json:"value"`
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := h.ctrl.WriteNode(req.GlobalID, req.Value); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

type writeManyRequest struct {
	Items []writeRequest `json:"items"`
}

type writeManyResult struct {
	GlobalID uint32 `json:"global_id"`
	State    int    `json:"state"`
	Message  string `json:"message,omitempty"`
}

func (h *Handler) writeMany(w http.ResponseWriter, r *http.Request) {
	var req writeManyRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	results := make([]writeManyResult, 0, len(req.Items))
	for _, item := range req.Items {
		res := writeManyResult{GlobalID: item.GlobalID}
		if err := h.ctrl.WriteNode(item.GlobalID, item.Value); err != nil {
			res.State = common.EnvelopeCode(err)
			res.Message = err.Error()
		}
		results = append(results, res)
	}
	writeOK(w, results)
}

type readRequest struct {
	GlobalID uint32 `json:"global_id"`
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) {
	var req readRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	value, err := h.ctrl.ReadNode(req.GlobalID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, value)
}

type readManyRequest struct {
	IDs []uint32 `json:"ids"`
}

type readManyResult struct {
	GlobalID uint32  `json:"global_id"`
	Value    float64 `json:"value,omitempty"`
	State    int     `json:"state"`
	Message  string  `json:"message,omitempty"`
}

func (h *Handler) readMany(w http.ResponseWriter, r *http.Request) {
	var req readManyRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	results := make([]readManyResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		res := readManyResult{GlobalID: id}
		value, err := h.ctrl.ReadNode(id)
		if err != nil {
			res.State = common.EnvelopeCode(err)
			res.Message = err.Error()
		} else {
			res.Value = value
		}
		results = append(results, res)
	}
	writeOK(w, results)
}

type sceneRequest struct {
	Name string `json:"name"`
}

func (h *Handler) scene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := h.ctrl.ExecuteScene(req.Name); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, nil)
}

func (h *Handler) sceneStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.ctrl.GetSceneExecutionStatus())
}

type executeCommandRequest struct {
	ChannelID uint32          `json:"channel_id"`
	Command   string          `json:"command"`
	Params    json.RawMessage `json:"params"`
}

func (h *Handler) executeCommand(w http.ResponseWriter, r *http.Request) {
	var req executeCommandRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	data, err := h.ctrl.ExecuteChannelCommand(req.ChannelID, req.Command, req.Params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, json.RawMessage(data))
}

type callMethodRequest struct {
	ChannelID  uint32          `json:"channel_id"`
	MethodName string          `json:"method_name"`
	Arguments  json.RawMessage `json:"arguments"`
}

func (h *Handler) callMethod(w http.ResponseWriter, r *http.Request) {
	var req callMethodRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	data, err := h.ctrl.CallChannelMethod(req.ChannelID, req.MethodName, req.Arguments)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, json.RawMessage(data))
}

type channelIDRequest struct {
	ChannelID uint32 `json:"channel_id"`
}

func (h *Handler) getMethods(w http.ResponseWriter, r *http.Request) {
	var req channelIDRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	methods, err := h.ctrl.GetChannelMethods(req.ChannelID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, methods)
}

func (h *Handler) getAllStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.ctrl.GetAllChannelStatus())
}

func (h *Handler) getAllNodeStates(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.ctrl.GetAllNodeStates())
}

type nodeIDRequest struct {
	GlobalID uint32 `json:"global_id"`
}

func (h *Handler) getNodeState(w http.ResponseWriter, r *http.Request) {
	var req nodeIDRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	state, err := h.ctrl.GetNodeState(req.GlobalID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, state)
}
