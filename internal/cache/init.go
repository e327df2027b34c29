// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the process-wide persistent (channel_id,
// key) -> int32 cache used by protocol drivers and the node manager to
// survive a restart. The per-channel session token cache in session.go
// persists to its own file and does not use this store.
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
	initOnce sync.Once
	instance *PersistentCache
)

type cacheKey struct {
	ChannelID uint32
	Key       uint32
}

// cacheEntry is the on-disk representation of one cache slot.
type cacheEntry struct {
	ChannelID uint32 `json:"channel_id"`
	Key       uint32 `json:"key"`
	Value     int32  `json:"value"`
}

type cacheFile struct {
	Entries []cacheEntry `json:"entries"`
}

// PersistentCache is a (channel_id, key) -> int32 store that
// write-through persists its entire contents to a single JSON file on
// every mutation. It is deliberately simple: the control plane expects
// at most a few thousand entries, so a full rewrite on each Set is
// cheap and avoids a more fragile incremental log format.
type PersistentCache struct {
	mu       sync.Mutex
	data     map[cacheKey]int32
	filePath string
}

// InitCache initializes the process-wide cache singleton. Safe to call
// more than once; only the first call has any effect.
func InitCache() {
	initOnce.Do(func() {
		instance = newPersistentCache(defaultCachePath())
	})
}

// Default returns the process-wide cache singleton, initializing it on
// first use if InitCache was never called explicitly.
func Default() *PersistentCache {
	InitCache()
	return instance
}

func defaultCachePath() string {
	dir := "."
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}
	return filepath.Join(dir, common.DeviceCacheFileName)
}

func newPersistentCache(filePath string) *PersistentCache {
	data := loadFromDisk(filePath)
	common.LoggingClient.Info(fmt.Sprintf("persistent cache initialized with %d entries from %s", len(data), filePath))
	return &PersistentCache{data: data, filePath: filePath}
}

func loadFromDisk(filePath string) map[cacheKey]int32 {
	data := make(map[cacheKey]int32)

	contents, err := ioutil.ReadFile(filePath)
	if err != nil {
		common.LoggingClient.Debug(fmt.Sprintf("cache file absent, starting empty: %s", filePath))
		return data
	}

	var cf cacheFile
	if err := json.Unmarshal(contents, &cf); err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("failed to parse cache file %s, starting empty: %v", filePath, err))
		return data
	}

	for _, e := range cf.Entries {
		data[cacheKey{ChannelID: e.ChannelID, Key: e.Key}] = e.Value
	}
	return data
}

func (c *PersistentCache) saveToDiskLocked() {
	cf := cacheFile{Entries: make([]cacheEntry, 0, len(c.data))}
	for k, v := range c.data {
		cf.Entries = append(cf.Entries, cacheEntry{ChannelID: k.ChannelID, Key: k.Key, Value: v})
	}

	out, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("failed to serialize cache: %v", err))
		return
	}
	if err := ioutil.WriteFile(c.filePath, out, 0o644); err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("failed to write cache to disk: %v", err))
	}
}

// Get returns the cached value for (channelID, key), if present.
func (c *PersistentCache) Get(channelID, key uint32) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[cacheKey{ChannelID: channelID, Key: key}]
	return v, ok
}

// GetOr returns the cached value for (channelID, key), or def if absent.
func (c *PersistentCache) GetOr(channelID, key uint32, def int32) int32 {
	if v, ok := c.Get(channelID, key); ok {
		return v
	}
	return def
}

// Set stores value for (channelID, key) and persists the whole cache
// to disk before returning.
func (c *PersistentCache) Set(channelID, key uint32, value int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[cacheKey{ChannelID: channelID, Key: key}] = value
	c.saveToDiskLocked()
}

// Delete removes (channelID, key) from the cache, persisting the
// result. A no-op if the key was never set.
func (c *PersistentCache) Delete(channelID, key uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[cacheKey{ChannelID: channelID, Key: key}]; !ok {
		return
	}
	delete(c.data, cacheKey{ChannelID: channelID, Key: key})
	c.saveToDiskLocked()
}
