package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatHTML = "html"
)

// Write encodes v to w in format. html renders the HTML view; when it is
// nil the html format is rejected.
func Write(w io.Writer, format string, v any, html func() string) error {
	var data []byte
	var err error
	switch strings.ToLower(format) {
	case "", FormatJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(v)
	case FormatHTML:
		if html == nil {
			return fmt.Errorf("html output is not supported for this command")
		}
		data = []byte(html() + "\n")
	default:
		return fmt.Errorf("unknown format %q (want json, yaml or html)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = w.Write(data)
	return err
}
