// Package datasource loads the data rendered by the livebind CLI: JSON or YAML files, or the
// rows of a SQLite query.
package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a data file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Source produces render data
type Source interface {
	Load(ctx context.Context) (any, error)
}

// FormatOf picks the format from a file extension. Unknown extensions are read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode decodes a JSON or YAML document into maps, slices and scalars
func Decode(data []byte, format Format) (any, error) {
	var value any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("failed to parse YAML data: %w", err)
		}
		return normalize(value), nil
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to parse JSON data: %w", err)
		}
		return value, nil
	}
	return nil, fmt.Errorf("unknown data format %q", format)
}

// normalize converts the map[any]any values yaml produces for non-string keys so that
// field selectors can read them
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	}
	return v
}

// File reads data from a JSON or YAML file
type File struct {
	Path   string
	Format Format // empty picks the format from the extension
}

// Load reads and decodes the file
func (f File) Load(_ context.Context) (any, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	format := f.Format
	if format == "" {
		format = FormatOf(f.Path)
	}
	return Decode(data, format)
}

// Value is a Source answering a fixed value
type Value struct {
	Data any
}

// Load answers the value
func (v Value) Load(context.Context) (any, error) {
	return v.Data, nil
}
