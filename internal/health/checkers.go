// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/check"
)

// RootsChecker verifies that every fragment root is still a readable directory.
type RootsChecker struct {
	roots []string
}

// NewRootsChecker creates a checker for the fragment roots.
func NewRootsChecker(roots []string) *RootsChecker {
	return &RootsChecker{roots: append([]string(nil), roots...)}
}

func (c *RootsChecker) Name() string {
	return "fragment_roots"
}

func (c *RootsChecker) Check(_ context.Context) CheckResult {
	for _, root := range c.roots {
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: root}
			}
			return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: root}
		}
		if !info.IsDir() {
			return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: root}
		}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d roots readable", len(c.roots))}
}

// LastRunChecker maps the most recent check result onto a component status: conflicts and
// invalid declarations degrade, collection errors are unhealthy.
type LastRunChecker struct {
	last func() (check.Result, bool)
}

// NewLastRunChecker creates a checker reading the latest result from last.
func NewLastRunChecker(last func() (check.Result, bool)) *LastRunChecker {
	return &LastRunChecker{last: last}
}

func (c *LastRunChecker) Name() string {
	return "last_check"
}

func (c *LastRunChecker) Check(_ context.Context) CheckResult {
	res, ok := c.last()
	if !ok {
		return CheckResult{Status: StatusDegraded, Message: "no check has completed yet"}
	}

	switch status := res.Status(); status {
	case check.StatusClean:
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d declarations, no duplicates", res.Declarations)}
	case check.StatusConflict:
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("%d duplicate ports", len(res.Groups))}
	case check.StatusInvalid:
		return CheckResult{Status: StatusDegraded, Message: "invalid declarations", Error: res.Err.Error()}
	default:
		return CheckResult{Status: StatusUnhealthy, Message: "check failed", Error: res.Err.Error()}
	}
}

// PingChecker reports a dependency unhealthy when its ping fails.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker named name around ping.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
