package library

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"vbscope/internal/symbols"
)

// definition is the on-disk shape of a library.
type definition struct {
	Name    string      `toml:"name"`
	Modules []container `toml:"module"`
	Classes []container `toml:"class"`
	Enums   []enum      `toml:"enum"`
}

type container struct {
	Name    string   `toml:"name"`
	Members []member `toml:"members"`
}

type member struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`
	Type string `toml:"type"`
}

type enum struct {
	Name    string   `toml:"name"`
	Members []string `toml:"members"`
}

var memberKinds = map[string]symbols.DeclKind{
	"sub":          symbols.KindProcedure,
	"procedure":    symbols.KindProcedure,
	"function":     symbols.KindFunction,
	"property":     symbols.KindPropertyGet,
	"property-get": symbols.KindPropertyGet,
	"property-let": symbols.KindPropertyLet,
	"property-set": symbols.KindPropertySet,
	"const":        symbols.KindConstant,
	"variable":     symbols.KindVariable,
	"event":        symbols.KindEvent,
}

func memberKind(s string) (symbols.DeclKind, error) {
	if s == "" {
		return symbols.KindFunction, nil
	}
	if k, ok := memberKinds[strings.ToLower(s)]; ok {
		return k, nil
	}
	return symbols.KindInvalid, fmt.Errorf("unknown member kind %q", s)
}

// decode parses a TOML library definition. fallback names the library when
// the definition does not.
func decode(data []byte, fallback string) (*definition, error) {
	var def definition
	md, err := toml.Decode(string(data), &def)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if def.Name == "" {
		def.Name = fallback
	}
	if def.Name == "" {
		return nil, fmt.Errorf("library has no name")
	}
	return &def, nil
}

// build materializes the declarations. Modules come before classes so an
// unqualified global accessor outranks a class of the same name.
func (def *definition) build() (*symbols.LibraryDecls, error) {
	l := symbols.NewLibraryDecls(def.Name)
	add := func(c container, kind symbols.DeclKind) error {
		parent := l.Add(nil, c.Name, kind, "")
		for _, m := range c.Members {
			k, err := memberKind(m.Kind)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", c.Name, m.Name, err)
			}
			l.Add(parent, m.Name, k, m.Type)
		}
		return nil
	}
	for _, c := range def.Modules {
		if err := add(c, symbols.KindLibraryModule); err != nil {
			return nil, err
		}
	}
	for _, c := range def.Classes {
		if err := add(c, symbols.KindLibraryClass); err != nil {
			return nil, err
		}
	}
	for _, e := range def.Enums {
		parent := l.Add(nil, e.Name, symbols.KindEnumeration, "")
		for _, name := range e.Members {
			l.Add(parent, name, symbols.KindEnumerationMember, e.Name)
		}
	}
	return l, nil
}
