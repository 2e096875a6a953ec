// SPDX-License-Identifier: MIT

// Package report renders conflict groups and writes them to their destination.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/renameio/v2"

	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/ports"
)

// Supported formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned by Render for formats other than text and json.
var ErrUnknownFormat = errors.New("unknown report format")

// Document is the JSON shape of a report.
type Document struct {
	Conflicts    []Conflict `json:"conflicts"`
	Declarations int        `json:"declarations"`
}

// Conflict is one duplicated port and every source declaring it.
type Conflict struct {
	Port    int      `json:"port"`
	Sources []string `json:"sources"`
}

// NewDocument converts conflict groups into the JSON document shape.
func NewDocument(groups []ports.ConflictGroup, declarations int) Document {
	doc := Document{Conflicts: make([]Conflict, 0, len(groups)), Declarations: declarations}
	for _, g := range groups {
		doc.Conflicts = append(doc.Conflicts, Conflict{Port: g.Port, Sources: g.Sources()})
	}
	return doc
}

// Render produces the report bytes. The text format is exactly ports.FormatReport, so a clean
// run renders to zero bytes.
func Render(format string, groups []ports.ConflictGroup, declarations int) ([]byte, error) {
	switch format {
	case FormatText, "":
		return []byte(ports.FormatReport(groups)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(NewDocument(groups, declarations), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Write copies data to w.
func Write(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteFile replaces path atomically: readers see either the previous report or the new one.
func WriteFile(ctx context.Context, path string, data []byte) error {
	logger := xglog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending report file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}
	return nil
}
