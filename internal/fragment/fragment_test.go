// SPDX-License-Identifier: MIT

package fragment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/ports"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []ports.Declaration
	}{
		{
			name: "yaml list",
			body: "service: grafana\nports:\n  - 3000\n  - 3001\n",
			want: []ports.Declaration{{Source: "g.yaml", Port: 3000}, {Source: "g.yaml", Port: 3001}},
		},
		{
			name: "json fragment",
			body: `{"service": "grafana", "ports": [3000]}`,
			want: []ports.Declaration{{Source: "g.yaml", Port: 3000}},
		},
		{
			name: "duplicate within file kept",
			body: "ports: [9090, 9090]\n",
			want: []ports.Declaration{{Source: "g.yaml", Port: 9090}, {Source: "g.yaml", Port: 9090}},
		},
		{
			name: "empty file",
			body: "",
			want: []ports.Declaration{},
		},
		{
			name: "no ports key",
			body: "service: idle\n",
			want: []ports.Declaration{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFragment("g.yaml", []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFragment_InvalidPorts(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantIndex int
		wantMsg   string
	}{
		{"null entry", "ports:\n  - 80\n  - ~\n", 1, "port is missing"},
		{"string entry", "ports:\n  - http\n", 0, "is not an integer"},
		{"quoted number", "ports:\n  - \"8080\"\n", 0, "is not an integer"},
		{"float entry", "ports: [80.5]\n", 0, "is not an integer"},
		{"nested list", "ports:\n  - [80]\n", 0, "must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFragment("svc.yaml", []byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrInvalidDeclaration)

			var invalid *ports.InvalidDeclarationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.wantIndex, invalid.Index)
			assert.Equal(t, "svc.yaml", invalid.Declaration.Source)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseFragment_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"unknown key":   "service: x\nport: 80\n",
		"not a list":    "ports: 80\n",
		"two documents": "ports: [1]\n---\nports: [2]\n",
		"broken yaml":   "ports: [1, 2\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFragment("bad.yaml", []byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedFragment)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestParseDeclarations(t *testing.T) {
	body := `
- source: a.nix
  port: 8080
- source: b.nix
  port: 8080
`
	got, err := ParseDeclarations([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, []ports.Declaration{{Source: "a.nix", Port: 8080}, {Source: "b.nix", Port: 8080}}, got)

	report, err := ports.Check(got)
	require.NoError(t, err)
	assert.Equal(t, "Duplicate port 8080 found in:\n  - a.nix\n  - b.nix\n", report)
}

func TestParseDeclarations_FlowStyle(t *testing.T) {
	got, err := ParseDeclarations([]byte("[{source: a.nix, port: 22}, {source: b.nix, port: 65535}]"))
	require.NoError(t, err)
	assert.Equal(t, []ports.Declaration{{Source: "a.nix", Port: 22}, {Source: "b.nix", Port: 65535}}, got)
}

func TestParseDeclarations_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantIndex int
		wantMsg   string
	}{
		{"missing port", "- source: a.nix\n", 0, "port is missing"},
		{"null port", "- source: a.nix\n  port: 1\n- source: b.nix\n  port: ~\n", 1, "port is missing"},
		{"missing source", "- port: 80\n", 0, "source is missing"},
		{"string port", "- source: a.nix\n  port: eighty\n", 0, "is not an integer"},
		{"float port", "- {source: a.nix, port: 80}\n- {source: b.nix, port: 80.5}\n", 1, "is not an integer"},
		{"list port", "- source: a.nix\n  port: [80]\n", 0, "must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeclarations([]byte(tt.body))
			require.Error(t, err)

			var invalid *ports.InvalidDeclarationError
			require.ErrorAs(t, err, &invalid)
			assert.True(t, errors.Is(err, ports.ErrInvalidDeclaration))
			assert.NotErrorIs(t, err, ErrMalformedFragment)
			assert.Equal(t, tt.wantIndex, invalid.Index)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err := ParseDeclarations([]byte("- source: a\n  port: 1\n  host: x\n"))
	assert.ErrorIs(t, err, ErrMalformedFragment)
}

func TestCollector_Collect(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.yaml", "ports: [8080]\n")
	b := writeFile(t, root, "nested/b.yml", "ports: [8081]\n")
	c := writeFile(t, root, "nested/c.json", `{"ports": [8080]}`)
	writeFile(t, root, "README.md", "ports: [1]\n")
	writeFile(t, root, ".git/config.yaml", "ports: [8080]\n")

	other := t.TempDir()
	d := writeFile(t, other, "d.yaml", "ports: [9000]\n")

	col := NewCollector([]string{root, other}, []string{".yaml", ".yml", ".json"})

	files, err := col.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, c, d}, files)

	decls, err := col.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ports.Declaration{
		{Source: a, Port: 8080},
		{Source: b, Port: 8081},
		{Source: c, Port: 8080},
		{Source: d, Port: 9000},
	}, decls)

	report, err := ports.Check(decls)
	require.NoError(t, err)
	assert.Equal(t, "Duplicate port 8080 found in:\n  - "+a+"\n  - "+c+"\n", report)
}

func TestCollector_Errors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		col := NewCollector([]string{filepath.Join(t.TempDir(), "nope")}, []string{".yaml"})
		_, err := col.Collect(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid fragment aborts", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.yaml", "ports: [80]\n")
		writeFile(t, root, "b.yaml", "ports: [~]\n")
		_, err := NewCollector([]string{root}, []string{".yaml"}).Collect(context.Background())
		assert.ErrorIs(t, err, ports.ErrInvalidDeclaration)
	})

	t.Run("cancelled context", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "a.yaml", "ports: [80]\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewCollector([]string{root}, []string{".yaml"}).Collect(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCollector_FollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	store := t.TempDir()
	a := writeFile(t, root, "a.yaml", "ports: [8080]\n")
	target := writeFile(t, store, "grafana.yaml", "ports: [8080]\n")
	b := filepath.Join(root, "b.yaml")
	require.NoError(t, os.Symlink(target, b))

	writeFile(t, store, "shared/c.yaml", "ports: [9000]\n")
	require.NoError(t, os.Symlink(filepath.Join(store, "shared"), filepath.Join(root, "shared")))
	c := filepath.Join(root, "shared", "c.yaml")

	// A link back to the root must not loop.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "z-loop")))

	col := NewCollector([]string{root}, []string{".yaml"})
	files, err := col.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, c}, files)

	decls, err := col.Collect(context.Background())
	require.NoError(t, err)
	report, err := ports.Check(decls)
	require.NoError(t, err)
	assert.Equal(t, "Duplicate port 8080 found in:\n  - "+a+"\n  - "+b+"\n", report)
}

func TestCollector_BrokenSymlink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.yaml", "ports: [80]\n")
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.yaml"), filepath.Join(root, "b.yaml")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.txt"), filepath.Join(root, "notes.txt")))

	_, err := NewCollector([]string{root}, []string{".yaml"}).Files(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "b.yaml")
}

func TestCollector_SkipsHiddenFiles(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "a.yaml", "ports: [80]\n")
	writeFile(t, root, ".draft.yaml", "ports: [80]\n")
	// Editor lock files are dangling symlinks.
	require.NoError(t, os.Symlink("user@host.1234", filepath.Join(root, ".#a.yaml")))

	files, err := NewCollector([]string{root}, []string{".yaml"}).Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden(".git"))
	assert.True(t, IsHidden(".svc.yaml"))
	assert.False(t, IsHidden("svc.yaml"))
}
