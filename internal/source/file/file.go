// Package file loads page fixtures from JSON or YAML files. A file holds one
// page or a list of pages; a directory is read recursively in lexical order.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hejijunhao/tagcheck/internal/model"
	"github.com/hejijunhao/tagcheck/internal/source"
)

func init() {
	source.Register("file", func() source.Source {
		return &Source{}
	})
}

// Source implements source.Source over the local filesystem.
type Source struct{}

// Pages reads cfg.Path.
func (s *Source) Pages(ctx context.Context, cfg source.Config) ([]model.PageInput, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file source: missing path")
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	if !info.IsDir() {
		return ReadFile(cfg.Path)
	}

	var pages []model.PageInput
	err = filepath.WalkDir(cfg.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		got, err := ReadFile(path)
		if err != nil {
			return err
		}
		pages = append(pages, got...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	return pages, nil
}

// Supported reports whether path has a fixture extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// ReadFile decodes one fixture file.
func ReadFile(path string) ([]model.PageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pages []model.PageInput
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		pages, err = decodeJSON(data)
	} else {
		pages, err = decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pages, nil
}

// decodeJSON keeps numbers as json.Number so large integer ids survive.
func decodeJSON(data []byte) ([]model.PageInput, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pages []model.PageInput
		if err := unmarshalNumbers(trimmed, &pages); err != nil {
			return nil, err
		}
		return pages, nil
	}
	var page model.PageInput
	if err := unmarshalNumbers(trimmed, &page); err != nil {
		return nil, err
	}
	return []model.PageInput{page}, nil
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

func decodeYAML(data []byte) ([]model.PageInput, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var pages []model.PageInput
		if err := node.Decode(&pages); err != nil {
			return nil, err
		}
		return pages, nil
	}
	var page model.PageInput
	if err := node.Decode(&page); err != nil {
		return nil, err
	}
	return []model.PageInput{page}, nil
}
