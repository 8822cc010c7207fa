package db

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/creamline/milkrun/address"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Snapshot persists the subscription store as a JSON array of addresses:
// dates as YYYY-MM-DD strings, money as integers. There is no database;
// this is the whole persisted form
type Snapshot struct {
	path   string
	logger *zap.Logger
}

// NewSnapshot returns a Snapshot writing to the given path
func NewSnapshot(logger *zap.Logger, path string) (*Snapshot, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path is invalid")
	}
	return &Snapshot{
		path:   path,
		logger: logger,
	}, nil
}

// Load reads the snapshot from disk. A missing file is not an error;
// it just means a fresh store
func (s *Snapshot) Load() ([]address.Address, error) {
	jsonBytes, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open snapshot file")
	}
	addrs := make([]address.Address, 0, 1)
	if err := json.Unmarshal(jsonBytes, &addrs); err != nil {
		return nil, extErrors.Wrap(err, "Invalid snapshot file")
	}
	return addrs, nil
}

// Save writes the snapshot to disk. The write goes through a temp file
// and a rename so a crash mid-write never corrupts the last good snapshot
func (s *Snapshot) Save(addrs []address.Address) error {
	jsonBytes, err := json.MarshalIndent(addrs, "", "  ")
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode snapshot")
	}
	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp")
	if err := ioutil.WriteFile(tmp, jsonBytes, 0644); err != nil {
		return extErrors.Wrap(err, "Cannot write snapshot file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return extErrors.Wrap(err, "Cannot replace snapshot file")
	}
	s.logger.Info("Subscription store snapshot saved",
		zap.String("Path", s.path),
		zap.Int("Addresses", len(addrs)),
	)
	return nil
}
