// SPDX-License-Identifier: MIT

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/ports"
)

var sampleGroups = []ports.ConflictGroup{{
	Port: 8080,
	Declarations: []ports.Declaration{
		{Source: "a.nix", Port: 8080},
		{Source: "c.nix", Port: 8080},
	},
}}

func TestRender_Text(t *testing.T) {
	got, err := Render(FormatText, sampleGroups, 3)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	want := "Duplicate port 8080 found in:\n  - a.nix\n  - c.nix\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("text report mismatch (-want +got):\n%s", diff)
	}

	clean, err := Render(FormatText, nil, 3)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if len(clean) != 0 {
		t.Errorf("clean text report = %q, want empty", clean)
	}
}

func TestRender_JSON(t *testing.T) {
	got, err := Render(FormatJSON, sampleGroups, 3)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(got, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Document{
		Conflicts:    []Conflict{{Port: 8080, Sources: []string{"a.nix", "c.nix"}}},
		Declarations: 3,
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("json report mismatch (-want +got):\n%s", diff)
	}

	clean, err := Render(FormatJSON, nil, 1)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !bytes.Contains(clean, []byte(`"conflicts": []`)) {
		t.Errorf("clean json report must carry an empty conflicts array: %s", clean)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render("xml", sampleGroups, 1)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write(nil) error: %v", err)
	}
	if err := Write(&buf, []byte("x\n")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if buf.String() != "x\n" {
		t.Errorf("buffer = %q", buf.String())
	}
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")

	if err := WriteFile(context.Background(), path, []byte("first\n")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := WriteFile(context.Background(), path, []byte("second\n")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "second\n" {
		t.Errorf("content = %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the report file, found %d entries", len(entries))
	}
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.txt")
	if err := WriteFile(context.Background(), path, []byte("x")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
