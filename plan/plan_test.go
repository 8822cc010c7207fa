package plan

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTiers() []Tier {
	return []Tier{
		{ID: "home", Name: "Home Plan", Fee: 99, PerDeliveryRate: 3},
		{ID: "business", Name: "Business Plan", Fee: 399, PerDeliveryRate: 3},
		{ID: "legacy", Name: "Legacy Plan", Fee: 49, PerDeliveryRate: 3, Retired: true},
	}
}

func TestNewTableFromTiers(t *testing.T) {
	table, err := NewTableFromTiers(testTiers())
	require.NoError(t, err)

	listed := table.ListDefinedTiers()
	require.Len(t, listed, 3)
	assert.Equal(t, "home", listed[0].ID)

	home, ok := table.GetDefinedTierByID("home")
	require.True(t, ok)
	assert.Equal(t, int64(99), home.Fee)
	assert.Equal(t, int64(3), home.PerDeliveryRate)

	// Retired tiers stay resolvable for existing addresses
	legacy, ok := table.GetDefinedTierByID("legacy")
	require.True(t, ok)
	assert.True(t, legacy.Retired)

	_, ok = table.GetDefinedTierByID("platinum")
	assert.False(t, ok)
}

func TestNewTableFromTiersRejectsInvalid(t *testing.T) {
	_, err := NewTableFromTiers(nil)
	assert.Error(t, err)

	_, err = NewTableFromTiers([]Tier{
		{ID: "", Name: "Nameless"},
	})
	assert.Error(t, err)

	_, err = NewTableFromTiers([]Tier{
		{ID: "home", Name: "Home"},
		{ID: "home", Name: "Home Again"},
	})
	assert.Error(t, err)

	// The default tier must exist
	_, err = NewTableFromTiers([]Tier{
		{ID: "business", Name: "Business"},
	})
	assert.Error(t, err)
}

func TestNewTableFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "tiers")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "tiers.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(`[
		{"id": "home", "name": "Home Plan", "fee": 99, "perDeliveryRate": 3}
	]`), 0644))

	table, err := NewTable(path)
	require.NoError(t, err)
	home, ok := table.GetDefinedTierByID(DefaultTierID)
	require.True(t, ok)
	assert.Equal(t, int64(99), home.Fee)

	_, err = NewTable(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = NewTable("")
	assert.Error(t, err)
}
