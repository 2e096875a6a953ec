// SPDX-License-Identifier: MIT

package fragment

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/ports"
)

// Collector walks fragment roots and gathers every declaration they contain.
type Collector struct {
	Roots      []string
	Extensions []string
}

// NewCollector returns a collector for roots that reads files ending in one of exts.
func NewCollector(roots, exts []string) *Collector {
	return &Collector{
		Roots:      append([]string(nil), roots...),
		Extensions: append([]string(nil), exts...),
	}
}

// Files lists the fragment files under every root in deterministic order: roots in
// configured order, files in lexical walk order. Hidden files and directories are skipped.
// Symlinks are followed; each directory is walked once, so symlink cycles terminate. A
// symlinked fragment whose target cannot be read is an error, not a skip.
func (c *Collector) Files(ctx context.Context) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, root := range c.Roots {
		if err := c.walk(ctx, root, root, seen, &files); err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return files, nil
}

// walk visits the tree at dir after resolving symlinks and reports paths below display,
// so fragments keep the name they have inside the configured root.
func (c *Collector) walk(ctx context.Context, dir, display string, seen map[string]bool, files *[]string) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if resolved, err = filepath.Abs(resolved); err != nil {
		return err
	}

	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}
		shown := filepath.Join(display, rel)

		if path != resolved && IsHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if seen[path] {
				return filepath.SkipDir
			}
			seen[path] = true
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				if !hasExtension(d.Name(), c.Extensions) {
					return nil
				}
				return fmt.Errorf("fragment %s: %w", shown, err)
			}
			if info.IsDir() {
				return c.walk(ctx, path, shown, seen, files)
			}
			if info.Mode().IsRegular() && hasExtension(d.Name(), c.Extensions) {
				*files = append(*files, shown)
			}
			return nil
		}

		if d.Type().IsRegular() && hasExtension(d.Name(), c.Extensions) {
			*files = append(*files, shown)
		}
		return nil
	})
}

// IsHidden reports whether a file or directory name is hidden (dot-prefixed). Hidden
// entries are neither collected nor watched.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Collect reads and parses every fragment file. The first malformed fragment aborts the
// collection; nothing is silently skipped.
func (c *Collector) Collect(ctx context.Context) ([]ports.Declaration, error) {
	logger := xglog.WithComponentFromContext(ctx, "fragment")

	files, err := c.Files(ctx)
	if err != nil {
		return nil, err
	}

	var decls []ports.Declaration
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// #nosec G304 -- fragment roots are provided by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}
		fileDecls, err := ParseFragment(path, data)
		if err != nil {
			return nil, err
		}
		logger.Debug().
			Str(xglog.FieldEvent, "fragment.parsed").
			Str(xglog.FieldPath, path).
			Int(xglog.FieldDeclarations, len(fileDecls)).
			Msg("parsed fragment")
		decls = append(decls, fileDecls...)
	}

	logger.Debug().
		Str(xglog.FieldEvent, "fragment.collected").
		Int("files", len(files)).
		Int(xglog.FieldDeclarations, len(decls)).
		Msg("collected declarations")
	return decls, nil
}
