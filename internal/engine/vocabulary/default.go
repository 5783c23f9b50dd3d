package vocabulary

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var loadDefault = sync.OnceValues(func() (*Vocabulary, error) {
	f, err := DefaultFile()
	if err != nil {
		return nil, err
	}
	return New(f)
})

// DefaultFile returns the built-in vocabulary definition.
func DefaultFile() (File, error) {
	return Parse(defaultYAML)
}

// Default returns the built-in vocabulary. It panics if the embedded file is
// invalid, which is a build defect.
func Default() *Vocabulary {
	v, err := loadDefault()
	if err != nil {
		panic(err)
	}
	return v
}

// Parse decodes a YAML vocabulary file.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse vocabulary: %w", err)
	}
	return f, nil
}
