package plan

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	extErrors "github.com/pkg/errors"
)

// CycleDays is how many plan days one activation grants
const CycleDays = 30

// DefaultTierID is the tier assigned when an address does not pick one
const DefaultTierID = "home"

// Tier describes one purchasable plan tier. All amounts are in the smallest
// currency unit
type Tier struct {
	ID              string `json:"id"`              // Stable identifier (e.g. "home", "business")
	Name            string `json:"name"`            // Shown to the customer
	Description     string `json:"description"`     // Shown to the customer
	Fee             int64  `json:"fee"`             // Fixed recurring fee per month
	PerDeliveryRate int64  `json:"perDeliveryRate"` // Rate used to convert unused plan days into wallet credit
	Retired         bool   `json:"retired"`         // Flag if the Tier can no longer be selected by new addresses
}

// loadTiersFromFile will read from the tier JSON file to define what plan tiers are available.
// Retired tiers stay in the table so existing addresses keep billing correctly,
// but they are rejected for new addresses
func loadTiersFromFile(filename string) ([]Tier, error) {
	jsonBytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open tiers JSON file")
	}
	tiers := make([]Tier, 0, 2)
	if err := json.Unmarshal(jsonBytes, &tiers); err != nil {
		return nil, extErrors.Wrap(err, "Invalid tiers JSON file")
	}
	return tiers, nil
}

// Table is the immutable tier lookup loaded once at process start
type Table struct {
	tierArray      []Tier
	tierIDIndexMap map[string]int
}

// NewTable loads the tier definitions from a JSON file
func NewTable(pathToTierJSON string) (*Table, error) {
	if len(pathToTierJSON) == 0 {
		return nil, fmt.Errorf("empty PathToTierJSON is invalid")
	}
	tiers, err := loadTiersFromFile(pathToTierJSON)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot populate defined Tiers")
	}
	return NewTableFromTiers(tiers)
}

// NewTableFromTiers builds a Table from an already decoded tier list
func NewTableFromTiers(tiers []Tier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("empty tier list is invalid")
	}
	tierMap := make(map[string]int)
	for index, t := range tiers {
		if len(t.ID) == 0 {
			return nil, fmt.Errorf("Tier with empty ID is invalid")
		}
		if _, ok := tierMap[t.ID]; ok {
			return nil, fmt.Errorf("Duplicate Tier ID %s is invalid", t.ID)
		}
		tierMap[t.ID] = index + 1
	}
	if _, ok := tierMap[DefaultTierID]; !ok {
		return nil, fmt.Errorf("Tier table must define the %s tier", DefaultTierID)
	}
	return &Table{
		tierArray:      tiers,
		tierIDIndexMap: tierMap,
	}, nil
}

// ListDefinedTiers returns all known tiers in definition order
func (t *Table) ListDefinedTiers() []Tier {
	return t.tierArray
}

// GetDefinedTierByID returns the tier with the given ID, if defined
func (t *Table) GetDefinedTierByID(tierID string) (Tier, bool) {
	index := t.tierIDIndexMap[tierID]
	if index == 0 {
		return Tier{}, false
	}
	return t.tierArray[index-1], true
}
