// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/circutor/fieldctl/internal/common"
)

var (
	sessionsMu sync.Mutex
	sessions   = make(map[uint32]*SessionCache)
)

// SessionCache is the two-tier node_id -> token cache (spec section 3):
// an in-memory map for the fast path, write-through persisted to the
// owning channel's entry under data/protocol_storage/channel_{id}.json
// (spec section 6) so drivers that authenticate (e.g. BMC-style
// protocols) can reuse a session across restarts without
// re-authenticating on every call.
type SessionCache struct {
	mu       sync.RWMutex
	tokens   map[uint32]string
	filePath string
}

func tokenKey(nodeID uint32) string {
	return fmt.Sprintf("token_%d", nodeID)
}

// Sessions returns the process-wide session cache for channelID,
// constructing and loading it from disk on first use.
func Sessions(channelID uint32) *SessionCache {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()

	s, ok := sessions[channelID]
	if !ok {
		s = newSessionCache(protocolStoragePath(channelID))
		sessions[channelID] = s
	}
	return s
}

func protocolStoragePath(channelID uint32) string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return filepath.Join(wd, common.ProtocolStorageDir, fmt.Sprintf("channel_%d.json", channelID))
}

type sessionEntry struct {
	Key   string `json:"key"`
	Token string `json:"token"`
}

type sessionFile struct {
	Entries []sessionEntry `json:"entries"`
}

func newSessionCache(filePath string) *SessionCache {
	tokens := make(map[uint32]string)

	contents, err := ioutil.ReadFile(filePath)
	if err == nil {
		var sf sessionFile
		if err := json.Unmarshal(contents, &sf); err == nil {
			for _, e := range sf.Entries {
				var nodeID uint32
				if _, scanErr := fmt.Sscanf(e.Key, "token_%d", &nodeID); scanErr == nil {
					tokens[nodeID] = e.Token
				}
			}
		}
	}

	return &SessionCache{tokens: tokens, filePath: filePath}
}

// Get returns the cached token for nodeID, if any.
func (s *SessionCache) Get(nodeID uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[nodeID]
	return t, ok
}

// Set stores token for nodeID in memory and persists the full table.
func (s *SessionCache) Set(nodeID uint32, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[nodeID] = token
	s.saveToDiskLocked()
}

// Clear removes nodeID's cached token, if any.
func (s *SessionCache) Clear(nodeID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[nodeID]; !ok {
		return
	}
	delete(s.tokens, nodeID)
	s.saveToDiskLocked()
}

func (s *SessionCache) saveToDiskLocked() {
	sf := sessionFile{Entries: make([]sessionEntry, 0, len(s.tokens))}
	for nodeID, token := range s.tokens {
		sf.Entries = append(sf.Entries, sessionEntry{Key: tokenKey(nodeID), Token: token})
	}

	out, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("failed to serialize session cache: %v", err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("failed to create session cache dir: %v", err))
		return
	}
	if err := ioutil.WriteFile(s.filePath, out, 0o644); err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("failed to write session cache to disk: %v", err))
	}
}
