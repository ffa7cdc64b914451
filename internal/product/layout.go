package product

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"
)

// Layout selects how an artifact set's remote directory is derived.
// Implementations: Flat, TimePartitioned.
type Layout interface {
	layoutKind() string
}

// Flat products publish under a directory rendered from Template. The
// template sees UnitInfo fields; an empty template publishes at the prefix root.
type Flat struct {
	Template string
}

// TimePartitioned products publish under x_<x>/y_<y>/<yyyy>/<mm>/<dd> derived
// from unit names shaped like PREFIX_<x>_<y>_<20-digit timestamp>[_suffix].
type TimePartitioned struct{}

func (Flat) layoutKind() string            { return "flat" }
func (TimePartitioned) layoutKind() string { return "time_partitioned" }

// LayoutName returns the configuration name of a layout.
func LayoutName(l Layout) string {
	if l == nil {
		return ""
	}
	return l.layoutKind()
}

// UnitInfo is the data available to Flat templates.
type UnitInfo struct {
	Name  string
	X     string
	Y     string
	Year  string
	Month string
	Day   string
}

const unitStampLen = 20

// ParseUnit splits a unit name into its tile indices and timestamp fields.
// The timestamp is the last 20-digit token; the two tokens before it are the
// x and y tile indices. Trailing tokens such as a version suffix are ignored.
func ParseUnit(name string) (UnitInfo, error) {
	parts := strings.Split(name, "_")
	for i := len(parts) - 1; i >= 2; i-- {
		stamp := parts[i]
		if len(stamp) != unitStampLen || !allDigits(stamp) {
			continue
		}
		return UnitInfo{
			Name:  name,
			X:     parts[i-2],
			Y:     parts[i-1],
			Year:  stamp[0:4],
			Month: stamp[4:6],
			Day:   stamp[6:8],
		}, nil
	}
	return UnitInfo{}, fmt.Errorf("unit %q does not have an acceptable timestamp", name)
}

// RemoteDir returns the slash-separated directory, relative to the product
// prefix, that unit should be published under.
func RemoteDir(l Layout, unit string) (string, error) {
	switch layout := l.(type) {
	case TimePartitioned:
		info, err := ParseUnit(unit)
		if err != nil {
			return "", err
		}
		return path.Join("x_"+info.X, "y_"+info.Y, info.Year, info.Month, info.Day), nil
	case Flat:
		if strings.TrimSpace(layout.Template) == "" {
			return "", nil
		}
		info, err := ParseUnit(unit)
		if err != nil {
			info = UnitInfo{Name: unit}
		}
		tmpl, err := template.New("remote").Option("missingkey=error").Parse(layout.Template)
		if err != nil {
			return "", fmt.Errorf("parse flat template: %w", err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, info); err != nil {
			return "", fmt.Errorf("render flat template for %q: %w", unit, err)
		}
		dir := strings.Trim(buf.String(), "/")
		if dir == "" {
			return "", nil
		}
		return path.Clean(dir), nil
	case nil:
		return "", fmt.Errorf("unit %q: product has no layout", unit)
	default:
		return "", fmt.Errorf("unit %q: unsupported layout %T", unit, l)
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
