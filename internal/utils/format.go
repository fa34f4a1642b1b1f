package utils

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how command results are emitted.
type Format int

const (
	// FormatText prints the human report.
	FormatText Format = iota
	// FormatJSON returns the full structured result as JSON.
	FormatJSON
	// FormatYAML returns the full structured result as YAML.
	FormatYAML
)

// ParseFormat accepts text|md|markdown, json and yaml|yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "md", "markdown":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatText, fmt.Errorf("unsupported --format: %s (use text|json|yaml)", s)
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "text"
	}
}

// Render writes text for FormatText and the encoded value otherwise.
func Render(w io.Writer, f Format, text string, v any) error {
	var b []byte
	switch f {
	case FormatJSON:
		out, err := PrettyJSON(v)
		if err != nil {
			return err
		}
		b = append(out, '\n')
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		b = buf.Bytes()
	default:
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		b = []byte(text)
	}
	_, err := w.Write(b)
	return err
}
