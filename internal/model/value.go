package model

import "encoding/json"

// ParameterValue is a single observed or predicted datum.
// Raw is nil, a string, a Go number, a json.Number or a bool.
type ParameterValue struct {
	Name string `json:"name" yaml:"name"`
	Raw  any    `json:"value" yaml:"value"`
}

// Normalized is the canonical form of a ParameterValue. Valid=false is null.
type Normalized struct {
	Value string
	Valid bool
}

// Null is the null Normalized value.
var Null = Normalized{}

// Some wraps s as a non-null Normalized value.
func Some(s string) Normalized {
	return Normalized{Value: s, Valid: true}
}

// String returns the value, or "null" when not valid.
func (n Normalized) String() string {
	if !n.Valid {
		return "null"
	}
	return n.Value
}

// MarshalJSON encodes null as JSON null.
func (n Normalized) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts a JSON string or null.
func (n *Normalized) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Null
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*n = Some(s)
	return nil
}
