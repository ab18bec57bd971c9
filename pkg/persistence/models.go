package persistence

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a report encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatDummy Format = "dummy"
)

// ParseFormat accepts a format name; an empty name is inferred from the
// extension of path and defaults to JSON.
func ParseFormat(name, path string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return FormatYAML, nil
		default:
			return FormatJSON, nil
		}
	}
	switch Format(name) {
	case FormatJSON, FormatYAML, FormatDummy:
		return Format(name), nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q", name)
	}
}
