package db

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/creamline/milkrun/address"
	"github.com/creamline/milkrun/geo"
	"github.com/creamline/milkrun/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "snapshot")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "store.json")
	snapshot, err := NewSnapshot(zaptest.NewLogger(t), path)
	require.NoError(t, err)

	// No file yet means a fresh store, not an error
	loaded, err := snapshot.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	addrs := []address.Address{
		{
			ID:          "addr-1",
			Nickname:    "Home",
			HouseNumber: "42",
			Location: geo.Location{
				City:    "Bengaluru",
				Pincode: "560001",
			},
			TierID:       "home",
			Status:       address.StatusActive,
			PlanActive:   true,
			PlanDaysLeft: 12,
			VacationFrom: spec.Date{Year: 2026, Month: 9, Day: 10},
			VacationTo:   spec.Date{Year: 2026, Month: 9, Day: 14},
			Products: []address.Product{
				{
					ID:        "prod-1",
					Name:      "Toned Milk",
					UnitPrice: 26,
					Quantity:  2,
					Frequency: spec.FrequencyDaily,
				},
			},
			Version: 7,
		},
	}
	require.NoError(t, snapshot.Save(addrs))

	loaded, err = snapshot.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, addrs[0], loaded[0])

	// Dates persist as plain strings, money as integers
	raw, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"2026-09-10"`)
	assert.Contains(t, string(raw), `"unitPrice": 26`)
}

func TestSnapshotRejectsCorruptFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "snapshot")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "store.json")
	require.NoError(t, ioutil.WriteFile(path, []byte("{not json"), 0644))

	snapshot, err := NewSnapshot(zaptest.NewLogger(t), path)
	require.NoError(t, err)
	_, err = snapshot.Load()
	assert.Error(t, err)
}

func TestNewSnapshotValidation(t *testing.T) {
	_, err := NewSnapshot(nil, "store.json")
	assert.Error(t, err)
	_, err = NewSnapshot(zaptest.NewLogger(t), "")
	assert.Error(t, err)
}
