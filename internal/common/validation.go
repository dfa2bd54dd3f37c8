package common

import (
	"fmt"
	"slices"
)

// ResolveFormat applies the configured default to an empty format and
// checks the result against the supported list. An empty list allows any
// format.
func ResolveFormat(requested, defaultFormat string, supported []string) (string, error) {
	format := requested
	if format == "" {
		format = defaultFormat
	}
	if len(supported) == 0 || slices.Contains(supported, format) {
		return format, nil
	}
	return "", fmt.Errorf("unsupported output format '%s'. Supported formats: %v", format, supported)
}
