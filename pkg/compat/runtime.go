package compat

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DetectNodeVersion asks the node binary on PATH for its version, e.g.
// "v20.11.1". The caller decides what an unavailable runtime means.
func DetectNodeVersion(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "node", "--version").Output()
	if err != nil {
		return "", fmt.Errorf("detect node version: %w", err)
	}
	v := strings.TrimSpace(string(out))
	if _, err := ParseVersion(v); err != nil {
		return "", fmt.Errorf("detect node version: %w", err)
	}
	return v, nil
}
