// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package api is the thin HTTP adapter over controller.Controller: a
// gorilla/mux route table for the endpoints spec.md section 6 names,
// a single {state, message, data} envelope, and the error-kind-to-code
// mapping from section 7. Everything else the HTTP layer might offer
// (Swagger, file manager, Material/Screen CRUD) stays out of scope.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/circutor/fieldctl/internal/common"
)

// envelope is the response shape every endpoint in spec.md section 6
// writes: state=0 on success, data carries the payload, message is
// only populated on failure.
type envelope struct {
	State   int         `json:"state"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{State: common.CodeSuccess, Data: data})
}

// writeErr maps err's Kind to its envelope state code (spec section 7)
// and writes the error's display text as message. The HTTP status is
// always 200: the envelope's state field is the API's real result
// code, following the teacher's convention of never using the
// transport status line to carry domain errors.
func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, envelope{State: common.EnvelopeCode(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		common.LoggingClient.Error("api: failed to encode response: " + err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.NewSerializationError(err)
	}
	return nil
}
