package library

import (
	"fmt"
	"strings"
)

// Reference names one library a project depends on. Built-in references are
// resolved from the definitions compiled into the binary; the others from a
// TOML definition at Path.
type Reference struct {
	Name     string `toml:"name" json:"name"`
	Path     string `toml:"path,omitempty" json:"path,omitempty"`
	Priority int    `toml:"priority,omitempty" json:"priority,omitempty"`
	BuiltIn  bool   `toml:"builtin" json:"builtin,omitempty"`
}

func (r Reference) String() string {
	if r.BuiltIn || r.Path == "" {
		return r.Name
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.Path)
}

// Key identifies a reference in a cache.
func (r Reference) Key() string {
	if r.BuiltIn {
		return "builtin:" + strings.ToLower(r.Name)
	}
	return "file:" + r.Path
}

// DefaultReferences is what a project gets when its manifest lists none.
func DefaultReferences() []Reference {
	return []Reference{
		{Name: "VBA", BuiltIn: true},
		{Name: "stdole", BuiltIn: true},
	}
}
