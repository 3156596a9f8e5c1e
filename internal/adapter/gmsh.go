package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"feaprep/internal/domain"
	"feaprep/internal/geometry"
	"feaprep/internal/log"
	"feaprep/internal/msh"
)

const gmshTool = "gmsh"

// maxToolOutput caps how much gmsh output is kept in an error
const maxToolOutput = 4096

// GmshAdapter generates meshes by running the gmsh binary
type GmshAdapter struct {
	binary    string
	timeout   time.Duration
	workDir   string
	keepFiles bool
}

// NewGmshAdapter creates a new gmsh-backed generator
func NewGmshAdapter(opts ...GmshOption) *GmshAdapter {
	g := &GmshAdapter{
		timeout: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Name returns the generator identifier
func (g *GmshAdapter) Name() string {
	return gmshTool
}

// FindGmsh locates the gmsh executable. An explicit path wins; otherwise a
// gmsh binary in the working directory is preferred over one on PATH.
func FindGmsh(explicit string) (string, error) {
	if explicit != "" {
		path, err := exec.LookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("gmsh binary %s: %w", explicit, err)
		}
		return path, nil
	}
	if info, err := os.Stat("gmsh"); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
		return filepath.Abs("gmsh")
	}
	path, err := exec.LookPath(gmshTool)
	if err != nil {
		return "", fmt.Errorf("gmsh not found in working directory or PATH: %w", err)
	}
	return path, nil
}

// Generate writes the script to a scratch directory, runs gmsh on it and
// parses the resulting MSH file
func (g *GmshAdapter) Generate(ctx context.Context, script *geometry.Script) (*Output, error) {
	binary, err := FindGmsh(g.binary)
	if err != nil {
		return nil, &domain.ExternalToolError{Tool: gmshTool, Err: err}
	}

	dir, err := os.MkdirTemp(g.workDir, "feaprep-gmsh-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if g.keepFiles {
		log.Infof("gmsh scratch directory kept at %s", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	geoPath := filepath.Join(dir, "model.geo")
	mshPath := filepath.Join(dir, "model.msh")
	if err := os.WriteFile(geoPath, []byte(script.Render()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write geometry script: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	log.Debugf("running %s %s -2 -o %s", binary, geoPath, mshPath)
	start := time.Now()
	output, err := run(ctx, binary, dir, geoPath, "-2", "-o", mshPath)
	if err != nil {
		return nil, err
	}
	log.Debugf("gmsh finished in %s", time.Since(start).Round(time.Millisecond))

	raw, err := os.ReadFile(mshPath)
	if err != nil {
		return nil, &domain.ExternalToolError{
			Tool:   gmshTool,
			Output: output,
			Err:    fmt.Errorf("no mesh produced: %w", err),
		}
	}

	mesh, err := msh.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, &domain.ExternalToolError{Tool: gmshTool, Output: output, Err: err}
	}

	tool := gmshTool
	if version, err := gmshVersion(ctx, binary); err == nil {
		tool += " " + version
	}
	return &Output{Mesh: mesh, MSH: raw, Tool: tool}, nil
}

// run executes a tool in its own process group and kills the whole group
// when ctx ends
func run(ctx context.Context, binary, dir string, args ...string) (string, error) {
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	setProcessGroup(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return "", &domain.ExternalToolError{Tool: gmshTool, Err: fmt.Errorf("failed to start: %w", err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	cancelled, err := waitTool(ctx, done, func() { killProcessGroup(cmd) })
	switch {
	case cancelled:
		return "", &domain.ExternalToolError{
			Tool:   gmshTool,
			Output: tail(out.String()),
			Err:    fmt.Errorf("cancelled: %w", ctx.Err()),
		}
	case err == nil:
		return tail(out.String()), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &domain.ExternalToolError{
			Tool:     gmshTool,
			ExitCode: exitErr.ExitCode(),
			Output:   tail(out.String()),
		}
	}
	return "", &domain.ExternalToolError{Tool: gmshTool, Output: tail(out.String()), Err: err}
}

// waitTool waits for the exit status on done. An exit already reported wins
// over a cancellation arriving at the same moment, and a tool that still
// exits cleanly after kill counts as finished.
func waitTool(ctx context.Context, done <-chan error, kill func()) (bool, error) {
	select {
	case err := <-done:
		return false, err
	default:
	}

	select {
	case err := <-done:
		return false, err
	case <-ctx.Done():
		kill()
		if err := <-done; err != nil {
			return true, err
		}
		return false, nil
	}
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxToolOutput {
		return s
	}
	return "..." + s[len(s)-maxToolOutput:]
}
