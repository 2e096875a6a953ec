// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/check"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/config"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/fragment"
	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/ports"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/report"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/version"
)

// loadConfig applies ENV > File > Defaults, then command-line roots, then validates.
func loadConfig(configPath string, roots []string, logOut io.Writer) (config.AppConfig, error) {
	loader := config.NewLoader(strings.TrimSpace(configPath), version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, err
	}
	if len(roots) > 0 {
		cfg.Roots = roots
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: logOut, Version: version.Version})
	logger := xglog.WithComponent("config")
	logger.Debug().
		Strs("consumed_env", slices.Sorted(maps.Keys(loader.ConsumedEnvKeys))).
		Msg("configuration loaded")
	return cfg, nil
}

func runCheck(ctx context.Context, args []string, std streams) int {
	fs := flag.NewFlagSet("portcheck check", flag.ContinueOnError)
	fs.SetOutput(std.stderr)

	var configPath, declPath, format, out string
	fs.StringVar(&configPath, "config", "", "path to YAML configuration file")
	fs.StringVar(&configPath, "c", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&declPath, "declarations", "", "read a declaration list from file (- for stdin) instead of fragment directories")
	fs.StringVar(&format, "format", "", "report format: text or json")
	fs.StringVar(&out, "out", "", "write the report to this path atomically instead of stdout")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if declPath != "" && fs.NArg() > 0 {
		fmt.Fprintln(std.stderr, "Error: -declarations cannot be combined with fragment directories")
		return exitUsage
	}

	cfg, err := loadConfig(configPath, fs.Args(), std.stderr)
	if err != nil {
		fmt.Fprintf(std.stderr, "Configuration error:\n  %v\n", err)
		return exitUsage
	}
	if format != "" {
		if format != report.FormatText && format != report.FormatJSON {
			fmt.Fprintf(std.stderr, "Error: unknown -format %q (want text or json)\n", format)
			return exitUsage
		}
		cfg.ReportFormat = format
	}
	if out != "" {
		cfg.ReportOut = out
	}

	var source check.Source
	if declPath != "" {
		decls, err := readDeclarations(declPath, std.stdin)
		if err != nil {
			fmt.Fprintf(std.stderr, "Error: %v\n", err)
			return exitFail
		}
		source = check.SourceFunc(func(context.Context) ([]ports.Declaration, error) { return decls, nil })
	} else {
		if len(cfg.Roots) == 0 {
			fmt.Fprintln(std.stderr, "Error: no fragment directories given (pass dirs, set fragments.roots or PORTCHECK_ROOTS)")
			return exitUsage
		}
		source = fragment.NewCollector(cfg.Roots, cfg.Extensions)
	}

	stopTracing, err := startTracing(ctx, cfg)
	if err != nil {
		fmt.Fprintf(std.stderr, "Error: %v\n", err)
		return exitFail
	}
	defer stopTracing()

	res := check.NewRunner(source).Run(ctx)
	switch res.Status() {
	case check.StatusInvalid, check.StatusError:
		fmt.Fprintf(std.stderr, "Error: %v\n", res.Err)
		return exitFail
	}

	if err := emitReport(ctx, cfg, res, std.stdout); err != nil {
		fmt.Fprintf(std.stderr, "Error: %v\n", err)
		return exitFail
	}
	if !res.OK() {
		return exitFail
	}
	return exitOK
}

func readDeclarations(path string, stdin io.Reader) ([]ports.Declaration, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read declarations: %w", err)
	}
	decls, err := fragment.ParseDeclarations(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decls, nil
}

// emitReport renders res in the configured format to ReportOut, or to stdout when unset.
func emitReport(ctx context.Context, cfg config.AppConfig, res check.Result, stdout io.Writer) error {
	data, err := report.Render(cfg.ReportFormat, res.Groups, res.Declarations)
	if err != nil {
		return err
	}
	if cfg.ReportOut != "" {
		return report.WriteFile(ctx, cfg.ReportOut, data)
	}
	return report.Write(stdout, data)
}
