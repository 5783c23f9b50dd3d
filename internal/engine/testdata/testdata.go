package testdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/hejijunhao/tagcheck/internal/model"
)

//go:embed pages.json
var pagesJSON []byte

// Fixture is a page with the verdicts its parameters are expected to get,
// keyed "event:parameter".
type Fixture struct {
	Description string                   `json:"description"`
	Page        model.PageInput          `json:"page"`
	Expected    map[string]model.Verdict `json:"expected"`
}

// LoadPages parses the embedded pages.json and returns all fixtures.
// Numbers are kept as json.Number, matching the file source.
func LoadPages() ([]Fixture, error) {
	var fixtures []Fixture
	dec := json.NewDecoder(bytes.NewReader(pagesJSON))
	dec.UseNumber()
	if err := dec.Decode(&fixtures); err != nil {
		return nil, fmt.Errorf("parse pages.json: %w", err)
	}
	return fixtures, nil
}
