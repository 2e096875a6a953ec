// SPDX-License-Identifier: MIT

// portcheck detects host ports declared by more than one homelab config fragment.
//
// Usage:
//
//	portcheck check [-config portcheck.yaml] [-declarations list.yaml] [-format text|json] [-out path] [dirs...]
//	portcheck serve [-config portcheck.yaml] [-listen :9273] [dirs...]
//	portcheck version
//
// Exit codes:
//   - 0: no duplicate ports
//   - 1: duplicate ports, invalid declarations or a runtime error
//   - 2: usage error
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/version"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

// streams carries the process I/O so commands can be driven from tests.
type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], streams{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, std streams) int {
	// Safe defaults until the configuration is loaded.
	xglog.Configure(xglog.Config{Level: "info", Output: std.stderr, Version: version.Version})

	if len(args) == 0 {
		printUsage(std.stderr)
		return exitUsage
	}

	switch args[0] {
	case "check":
		return runCheck(ctx, args[1:], std)
	case "serve":
		return runServe(ctx, args[1:], std)
	case "version", "-version", "--version":
		fmt.Fprintln(std.stdout, version.String())
		return exitOK
	case "help", "-h", "--help":
		printUsage(std.stdout)
		return exitOK
	default:
		fmt.Fprintf(std.stderr, "Unknown command: %s\n\n", args[0])
		printUsage(std.stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  portcheck check [-config file] [-declarations file|-] [-format text|json] [-out path] [dirs...]")
	fmt.Fprintln(w, "  portcheck serve [-config file] [-listen addr] [dirs...]")
	fmt.Fprintln(w, "  portcheck version")
}
