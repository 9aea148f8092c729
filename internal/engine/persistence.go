// Package engine implements the record storage engines: an in-memory store
// with optional JSON snapshots and a SQL store for PostgreSQL and SQLite.
package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Snapshot is the on-disk form of one collection.
type Snapshot struct {
	NextID  int64 `json:"next_id"`
	Version int64 `json:"version"`
	Rows    []Row `json:"rows"`
}

// Row is one stored record inside a Snapshot.
type Row struct {
	ID     int64          `json:"id"`
	Values map[string]any `json:"values"`
}

// Persistence handles the disk I/O for the MemStore
type Persistence struct {
	DataDir string
	logger  *zap.Logger
	mu      sync.Mutex // Protects concurrent writes to the filesystem
	saved   map[string]int64
}

// NewPersistence initializes a persistence handler.
func NewPersistence(dir string, logger *zap.Logger) (*Persistence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Ensure the data directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir, logger: logger, saved: make(map[string]int64)}, nil
}

// SaveCollection writes a single collection to a JSON file atomically.
// Snapshots older than the last one written are skipped, so background
// writers finishing out of order never roll a collection back.
func (p *Persistence) SaveCollection(table string, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Version != 0 && snap.Version <= p.saved[table] {
		return nil
	}

	filePath := filepath.Join(p.DataDir, fmt.Sprintf("%s.json", table))
	tempPath := filePath + ".tmp"

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temporary file first, then swap it in with a rename.
	// On power loss there is either the old file or the new one, never a torn one.
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		return err
	}
	p.saved[table] = snap.Version
	return nil
}

// LoadAll returns every collection snapshot found in the data directory.
// Unreadable files are logged and skipped.
func (p *Persistence) LoadAll() (map[string]Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := make(map[string]Snapshot)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		table := strings.TrimSuffix(file.Name(), ".json")

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			p.logger.Warn("Could not read collection file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}

		var snap Snapshot
		dec := json.NewDecoder(bytes.NewReader(content))
		dec.UseNumber()
		if err := dec.Decode(&snap); err != nil {
			p.logger.Warn("Could not decode collection file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		all[table] = snap
		p.saved[table] = snap.Version
	}
	return all, nil
}
