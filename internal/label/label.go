// Package label converts between the flat label stored on a remote entry and
// the Label/Environment/Application grouping of a local item.
//
// Structured labels are "/"-separated segments. A segment starting with
// "Environment:" or "Application:" sets that dimension; any other segment is
// a bare label. Labels without any structured segment are kept verbatim.
package label

import (
	"strings"

	"github.com/systmms/appcfg/internal/item"
)

const (
	environmentPrefix = "Environment:"
	applicationPrefix = "Application:"
	separator         = "/"
)

// Parts is the decoded form of a remote label.
type Parts struct {
	Label       string
	Environment string
	Application string
}

// Encode returns the wire label for an item. Structured grouping wins over a
// free-form label.
func Encode(c item.ConfigItem) string {
	switch {
	case c.Environment != "" && c.Application != "":
		return environmentPrefix + c.Environment + separator + applicationPrefix + c.Application
	case c.Environment != "":
		return environmentPrefix + c.Environment
	case c.Application != "":
		return applicationPrefix + c.Application
	default:
		return c.Label
	}
}

// Decode splits a raw remote label. Later segments of the same kind overwrite
// earlier ones.
func Decode(raw string) Parts {
	var p Parts
	if raw == "" {
		return p
	}
	if !isStructured(raw) {
		p.Label = raw
		return p
	}

	for _, segment := range strings.Split(raw, separator) {
		switch {
		case segment == "":
			continue
		case strings.HasPrefix(segment, environmentPrefix):
			p.Environment = strings.TrimPrefix(segment, environmentPrefix)
		case strings.HasPrefix(segment, applicationPrefix):
			p.Application = strings.TrimPrefix(segment, applicationPrefix)
		default:
			p.Label = segment
		}
	}
	return p
}

// Apply decodes raw onto c, leaving fields untouched when raw is empty.
func Apply(c item.ConfigItem, raw string) item.ConfigItem {
	if raw == "" {
		return c
	}
	p := Decode(raw)
	c.Label = p.Label
	c.Environment = p.Environment
	c.Application = p.Application
	return c
}

func isStructured(raw string) bool {
	for _, segment := range strings.Split(raw, separator) {
		if strings.HasPrefix(segment, environmentPrefix) || strings.HasPrefix(segment, applicationPrefix) {
			return true
		}
	}
	return false
}
