// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/node"
	"github.com/circutor/fieldctl/internal/scene"
)

type stubFacade struct {
	writeErr    error
	readValue   float64
	readErr     error
	sceneErr    error
	sceneStatus scene.Status
	nodeState   node.State
	nodeErr     error
}

func (s *stubFacade) WriteNode(globalID uint32, value int32) error { return s.writeErr }
func (s *stubFacade) ReadNode(globalID uint32) (float64, error)    { return s.readValue, s.readErr }
func (s *stubFacade) GetNodeState(globalID uint32) (node.State, error) {
	return s.nodeState, s.nodeErr
}
func (s *stubFacade) GetAllNodeStates() []node.State         { return []node.State{s.nodeState} }
func (s *stubFacade) ExecuteScene(sceneName string) error    { return s.sceneErr }
func (s *stubFacade) GetSceneExecutionStatus() scene.Status  { return s.sceneStatus }
func (s *stubFacade) ExecuteChannelCommand(channelID uint32, command string, params json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"success"}`), nil
}
func (s *stubFacade) CallChannelMethod(channelID uint32, name string, args json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
func (s *stubFacade) GetChannelMethods(channelID uint32) ([]string, error) {
	return []string{"ping"}, nil
}
func (s *stubFacade) GetAllChannelStatus() []channel.ChannelStatus { return nil }

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteSuccess(t *testing.T) {
	r := NewRouter(&stubFacade{})
	rec := doJSON(t, r, http.MethodPost, common.APIPrefix+"/write", writeRequest{GlobalID: 5, Value: 42})

	env := decodeEnvelope(t, rec)
	assert.Equal(t, common.CodeSuccess, env.State)
}

func TestWriteDeviceNotFound(t *testing.T) {
	r := NewRouter(&stubFacade{writeErr: common.NewDeviceNotFound("node %d not found", 99)})
	rec := doJSON(t, r, http.MethodPost, common.APIPrefix+"/write", writeRequest{GlobalID: 99, Value: 1})

	env := decodeEnvelope(t, rec)
	assert.Equal(t, common.CodeDeviceNotFound, env.State)
	assert.NotEmpty(t, env.Message)
}

func TestWriteManyAggregatesPerItemErrors(t *testing.T) {
	r := NewRouter(&stubFacade{writeErr: common.NewChannelNotFound(3)})
	rec := doJSON(t, r, http.MethodPost, common.APIPrefix+"/writeMany", writeManyRequest{
		Items: []writeRequest{{GlobalID: 1, Value: 1}, {GlobalID: 2, Value: 2}},
	})

	env := decodeEnvelope(t, rec)
	require.Equal(t, common.CodeSuccess, env.State)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var results []writeManyResult
	require.NoError(t, json.Unmarshal(raw, &results))
	require.Len(t, results, 2)
	assert.Equal(t, common.CodeChannelNotFound, results[0].State)
}

func TestReadReturnsScaledValue(t *testing.T) {
	r := NewRouter(&stubFacade{readValue: 12.5})
	rec := doJSON(t, r, http.MethodPost, common.APIPrefix+"/read", readRequest{GlobalID: 5})

	env := decodeEnvelope(t, rec)
	assert.Equal(t, common.CodeSuccess, env.State)
	assert.InDelta(t, 12.5, env.Data, 0.0001)
}

func TestSceneBusyMapsToGeneralCode(t *testing.T) {
	r := NewRouter(&stubFacade{sceneErr: common.NewOther("scene 'A' is executing, cannot start another")})
	rec := doJSON(t, r, http.MethodPost, common.APIPrefix+"/scene", sceneRequest{Name: "A"})

	env := decodeEnvelope(t, rec)
	assert.Equal(t, common.CodeGeneral, env.State)
	assert.Contains(t, env.Message, "executing")
}

func TestSceneStatus(t *testing.T) {
	r := NewRouter(&stubFacade{sceneStatus: scene.Status{IsExecuting: true, CurrentScene: "A"}})
	req := httptest.NewRequest(http.MethodGet, common.APIPrefix+"/sceneStatus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, common.CodeSuccess, env.State)
}
