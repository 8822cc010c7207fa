package basket

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	extErrors "github.com/pkg/errors"
)

// Suggestion is one complementary product the app proposes after a
// product of some category lands in the basket. UnitPrice is in the
// smallest currency unit
type Suggestion struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Variant   string `json:"variant"`
	UnitPrice int64  `json:"unitPrice"`
}

// categoryEntry is the JSON file shape: one category with its static
// suggestion list
type categoryEntry struct {
	CategoryID  string       `json:"categoryId"`
	Suggestions []Suggestion `json:"suggestions"`
}

// loadSuggestionsFromFile will read from the basket JSON file to define the
// complementary-product table. The table is static reference data, not
// learned
func loadSuggestionsFromFile(filename string) ([]categoryEntry, error) {
	jsonBytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open basket JSON file")
	}
	entries := make([]categoryEntry, 0, 4)
	if err := json.Unmarshal(jsonBytes, &entries); err != nil {
		return nil, extErrors.Wrap(err, "Invalid basket JSON file")
	}
	return entries, nil
}

// Recommender is the immutable suggestion lookup loaded once at process start
type Recommender struct {
	byCategory map[string][]Suggestion
}

// NewRecommender loads the suggestion table from a JSON file
func NewRecommender(pathToBasketJSON string) (*Recommender, error) {
	if len(pathToBasketJSON) == 0 {
		return nil, fmt.Errorf("empty PathToBasketJSON is invalid")
	}
	entries, err := loadSuggestionsFromFile(pathToBasketJSON)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot populate defined suggestions")
	}
	return NewRecommenderFromEntries(entriesToMap(entries))
}

// NewRecommenderFromEntries builds a Recommender from an already decoded table
func NewRecommenderFromEntries(byCategory map[string][]Suggestion) (*Recommender, error) {
	if byCategory == nil {
		byCategory = make(map[string][]Suggestion)
	}
	return &Recommender{
		byCategory: byCategory,
	}, nil
}

func entriesToMap(entries []categoryEntry) map[string][]Suggestion {
	byCategory := make(map[string][]Suggestion, len(entries))
	for _, e := range entries {
		byCategory[e.CategoryID] = e.Suggestions
	}
	return byCategory
}

// SuggestionsFor returns the suggestions for a category, in table order,
// excluding products the customer already subscribed. Unknown categories
// yield an empty list
func (rec *Recommender) SuggestionsFor(categoryID string, alreadyAdded []string) []Suggestion {
	table := rec.byCategory[categoryID]
	excluded := make(map[string]bool, len(alreadyAdded))
	for _, id := range alreadyAdded {
		excluded[id] = true
	}
	results := make([]Suggestion, 0, len(table))
	for _, s := range table {
		if excluded[s.ProductID] {
			continue
		}
		results = append(results, s)
	}
	return results
}
