package ast

import "strings"

// ID is a possibly-qualified identifier ("HTTP::Request::uri"). The separator
// is "::"; an empty ID is the zero value.
type ID string

// NewID joins path components into a qualified ID, skipping empty parts.
func NewID(parts ...string) ID {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return ID(strings.Join(nonEmpty, "::"))
}

// Local returns the last path component.
func (id ID) Local() ID {
	if i := strings.LastIndex(string(id), "::"); i >= 0 {
		return id[i+2:]
	}
	return id
}

// Namespace returns everything up to the last path component, or "".
func (id ID) Namespace() ID {
	if i := strings.LastIndex(string(id), "::"); i >= 0 {
		return id[:i]
	}
	return ""
}

// IsQualified reports whether the ID has more than one component.
func (id ID) IsQualified() bool {
	return strings.Contains(string(id), "::")
}

func (id ID) String() string { return string(id) }
