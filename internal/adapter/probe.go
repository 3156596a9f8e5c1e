package adapter

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Probe describes a usable gmsh installation
type Probe struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// ProbeGmsh locates gmsh and confirms it runs by asking for its version
func ProbeGmsh(ctx context.Context, explicit string) (*Probe, error) {
	path, err := FindGmsh(explicit)
	if err != nil {
		return nil, err
	}

	version, err := gmshVersion(ctx, path)
	if err != nil {
		return &Probe{Path: path}, fmt.Errorf("gmsh exists but --version failed: %w", err)
	}
	return &Probe{Path: path, Version: version}, nil
}

// gmshVersion returns the first line gmsh prints for --version
func gmshVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(strings.Split(strings.TrimSpace(string(output)), "\n")[0])
	if version == "" {
		return "", fmt.Errorf("empty version output")
	}
	return version, nil
}
