package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hejijunhao/tagcheck/internal/engine/vocabulary"
)

// LoadVocabulary reads a vocabulary file and overlays it on the built-in
// one. The format follows the extension: .yaml/.yml, .toml or .json. An
// empty path returns the built-in vocabulary.
func LoadVocabulary(path string) (*vocabulary.Vocabulary, error) {
	if path == "" {
		return vocabulary.Default(), nil
	}
	f, err := LoadVocabularyFile(path)
	if err != nil {
		return nil, err
	}
	v, err := vocabulary.New(f)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// LoadVocabularyFile returns the built-in vocabulary file with the overlay
// at path merged in, without compiling it.
func LoadVocabularyFile(path string) (vocabulary.File, error) {
	base, err := vocabulary.DefaultFile()
	if err != nil {
		return vocabulary.File{}, err
	}
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return vocabulary.File{}, fmt.Errorf("read vocabulary: %w", err)
	}

	var overlay vocabulary.File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		overlay, err = vocabulary.Parse(data)
	case ".toml":
		_, err = toml.Decode(string(data), &overlay)
	case ".json":
		err = json.Unmarshal(data, &overlay)
	default:
		return vocabulary.File{}, fmt.Errorf("vocabulary %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return vocabulary.File{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return vocabulary.Merge(base, overlay), nil
}
