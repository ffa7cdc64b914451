package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers classify failures from the transform and publish stages.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// kinds is ordered: a timeout that also wraps a tool failure reports as a
// timeout.
var kinds = []struct {
	marker error
	label  string
}{
	{ErrTimeout, "timeout"},
	{ErrExternalTool, "external_tool"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrNotFound, "not_found"},
}

// Wrap tags err with marker and prefixes it with "stage: operation: message",
// skipping empty parts. A nil marker is treated as ErrTransient and a nil err
// yields an error carrying only the marker and detail.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonEmpty(stage, operation, message)
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// Kind returns a short classification label for err, suitable for the
// error_kind log field. Unmarked errors are "transient".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.label
		}
	}
	return "transient"
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ": ")
}
