// Package format renders command output as JSON or YAML.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	JSON = "json"
	YAML = "yaml"
)

func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case YAML, "yml":
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// WriteYAML goes through JSON first so struct json tags decide the keys.
func WriteYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
