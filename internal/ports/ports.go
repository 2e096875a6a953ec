// SPDX-License-Identifier: MIT

// Package ports detects port numbers declared by more than one configuration fragment.
//
// The package is pure: it performs no I/O and holds no state between calls. Callers collect
// declarations from wherever fragments live (see internal/fragment) and pass the full set in.
package ports

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/validate"
)

// ErrInvalidDeclaration classifies malformed declarations.
// Use errors.Is(err, ErrInvalidDeclaration) instead of string matching.
var ErrInvalidDeclaration = errors.New("invalid port declaration")

// Declaration is a single port claimed by a fragment.
type Declaration struct {
	Source string `json:"source" yaml:"source"` // opaque fragment identifier, usually a file path
	Port   int    `json:"port" yaml:"port"`
}

// ConflictGroup lists every declaration of a port that is declared more than once.
// Declarations keep their relative input order.
type ConflictGroup struct {
	Port         int           `json:"port"`
	Declarations []Declaration `json:"declarations"`
}

// Sources returns the source of every member declaration, in order.
func (g ConflictGroup) Sources() []string {
	out := make([]string, len(g.Declarations))
	for i, d := range g.Declarations {
		out[i] = d.Source
	}
	return out
}

// InvalidDeclarationError identifies the offending entry of a declaration set.
type InvalidDeclarationError struct {
	Index       int
	Declaration Declaration
	Err         error
}

func (e *InvalidDeclarationError) Error() string {
	src := e.Declaration.Source
	if strings.TrimSpace(src) == "" {
		src = "<missing source>"
	}
	return fmt.Sprintf("%s: entry %d (%s): %v", ErrInvalidDeclaration, e.Index, src, e.Err)
}

func (e *InvalidDeclarationError) Unwrap() []error {
	return []error{ErrInvalidDeclaration, e.Err}
}

// Validate checks a single declaration. A zero port is treated as missing.
func (d Declaration) Validate() error {
	v := validate.New()
	v.NotEmpty("source", d.Source)
	if d.Port == 0 {
		v.AddError("port", "port is missing", d.Port)
	} else {
		v.Port("port", d.Port)
	}
	return v.Err()
}

// FindConflicts groups declarations by port and returns the groups with more than one member.
// Groups are ordered by the first appearance of their port in decls.
func FindConflicts(decls []Declaration) ([]ConflictGroup, error) {
	for i, d := range decls {
		if err := d.Validate(); err != nil {
			return nil, &InvalidDeclarationError{Index: i, Declaration: d, Err: err}
		}
	}

	order := make([]int, 0, len(decls))
	byPort := make(map[int][]Declaration, len(decls))
	for _, d := range decls {
		if _, seen := byPort[d.Port]; !seen {
			order = append(order, d.Port)
		}
		byPort[d.Port] = append(byPort[d.Port], d)
	}

	var groups []ConflictGroup
	for _, port := range order {
		members := byPort[port]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, ConflictGroup{Port: port, Declarations: members})
	}
	return groups, nil
}

// FormatReport renders groups as the operator-facing diagnostic.
// It returns the empty string when there is nothing to report.
func FormatReport(groups []ConflictGroup) string {
	var b strings.Builder
	for _, g := range groups {
		b.WriteString("Duplicate port ")
		b.WriteString(strconv.Itoa(g.Port))
		b.WriteString(" found in:\n")
		for _, d := range g.Declarations {
			b.WriteString("  - ")
			b.WriteString(d.Source)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Check runs FindConflicts and formats the result.
func Check(decls []Declaration) (string, error) {
	groups, err := FindConflicts(decls)
	if err != nil {
		return "", err
	}
	return FormatReport(groups), nil
}
