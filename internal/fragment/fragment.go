// SPDX-License-Identifier: MIT

// Package fragment turns configuration fragments on disk into port declarations.
//
// A fragment is one YAML (or JSON) file owned by one service:
//
//	service: grafana
//	ports:
//	  - 3000
//
// Every list entry becomes one ports.Declaration whose source is the fragment path.
package fragment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/ports"
)

// ErrMalformedFragment is returned when a fragment is not valid YAML or has unknown keys.
var ErrMalformedFragment = errors.New("malformed fragment")

type fragmentFile struct {
	Service string      `yaml:"service"`
	Ports   []yaml.Node `yaml:"ports"`
}

type declarationEntry struct {
	Source *string   `yaml:"source"`
	Port   yaml.Node `yaml:"port"`
}

// ParseFragment decodes a single fragment. Every declared port is returned in file order,
// duplicates included.
func ParseFragment(source string, data []byte) ([]ports.Declaration, error) {
	var f fragmentFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFragment, source, err)
	}

	decls := make([]ports.Declaration, 0, len(f.Ports))
	for i := range f.Ports {
		port, err := portFromNode(&f.Ports[i])
		d := ports.Declaration{Source: source, Port: port}
		if err != nil {
			return nil, &ports.InvalidDeclarationError{Index: i, Declaration: d, Err: err}
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// ParseDeclarations decodes an already resolved declaration list:
//
//	- source: a.nix
//	  port: 8080
func ParseDeclarations(data []byte) ([]ports.Declaration, error) {
	var entries []declarationEntry
	if err := decodeStrict(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: declaration list: %v", ErrMalformedFragment, err)
	}

	decls := make([]ports.Declaration, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		var d ports.Declaration
		if e.Source == nil {
			return nil, &ports.InvalidDeclarationError{Index: i, Declaration: d, Err: errors.New("source is missing")}
		}
		d.Source = *e.Source
		if e.Port.Kind == 0 {
			return nil, &ports.InvalidDeclarationError{Index: i, Declaration: d, Err: errors.New("port is missing")}
		}
		port, err := portFromNode(&e.Port)
		if err != nil {
			return nil, &ports.InvalidDeclarationError{Index: i, Declaration: d, Err: err}
		}
		d.Port = port
		decls = append(decls, d)
	}
	return decls, nil
}

// portFromNode accepts integer scalars only. Null, strings, floats and collections are
// rejected instead of coerced.
func portFromNode(n *yaml.Node) (int, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: port must be an integer", n.Line)
	}
	switch n.ShortTag() {
	case "!!int":
	case "!!null":
		return 0, fmt.Errorf("line %d: port is missing", n.Line)
	default:
		return 0, fmt.Errorf("line %d: port %q is not an integer", n.Line, n.Value)
	}
	var port int
	if err := n.Decode(&port); err != nil {
		return 0, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return port, nil
}

func decodeStrict(data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("multiple documents or trailing content")
	}
	return nil
}

// hasExtension reports whether name ends with one of exts (case-insensitive).
func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
