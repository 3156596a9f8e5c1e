// Package output publishes the artifacts of one conversion as a unit. Files
// are written into a staging directory next to the target and the directory
// is renamed into place only when every file is on disk, so a failed run
// never leaves a partial or mixed set of tables behind.
package output

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"golang.org/x/crypto/blake2b"

	"feaprep/internal/log"
)

// ManifestFile is written into every published directory. Its presence marks
// a directory as owned by feaprep and safe to replace.
const ManifestFile = "manifest.json"

// Artifact is one file to publish
type Artifact struct {
	Name string
	Data []byte
}

// FileDigest records one published file
type FileDigest struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Digest string `json:"blake2b"`
}

// Manifest describes a published directory
type Manifest struct {
	Model       string       `json:"model"`
	RunID       string       `json:"run_id"`
	Fingerprint string       `json:"fingerprint"`
	Tool        string       `json:"tool"`
	Published   time.Time    `json:"published"`
	Files       []FileDigest `json:"files"`
}

// Digest returns the hex blake2b-256 digest of data
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint digests several named parts in name order, so the result does
// not depend on the order they are supplied in
func Fingerprint(parts map[string][]byte) string {
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)

	h, _ := blake2b.New256(nil)
	for _, name := range names {
		fmt.Fprintf(h, "%s %d\n", name, len(parts[name]))
		h.Write(parts[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Basename derives a file-system friendly artifact name from a model name
func Basename(model string) string {
	var b strings.Builder
	for _, r := range strcase.ToSnake(model) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		}
	}
	if b.Len() == 0 {
		return "model"
	}
	return b.String()
}

// Publisher writes artifact sets into target directories
type Publisher struct {
	now func() time.Time
}

// NewPublisher creates a new publisher
func NewPublisher() *Publisher {
	return &Publisher{now: time.Now}
}

// Publish writes the artifacts and a manifest to dir. An existing dir is
// replaced only if it is empty or was itself published by feaprep.
func (p *Publisher) Publish(dir string, manifest Manifest, artifacts []Artifact) (*Manifest, error) {
	if err := checkTarget(dir); err != nil {
		return nil, err
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output parent: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	manifest.Published = p.now().UTC()
	manifest.Files = make([]FileDigest, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Name == ManifestFile || a.Name != filepath.Base(a.Name) {
			return nil, fmt.Errorf("invalid artifact name %q", a.Name)
		}
		if err := writeFile(filepath.Join(staging, a.Name), a.Data); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", a.Name, err)
		}
		manifest.Files = append(manifest.Files, FileDigest{Name: a.Name, Size: len(a.Data), Digest: Digest(a.Data)})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeFile(filepath.Join(staging, ManifestFile), append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to stage manifest: %w", err)
	}

	if err := swap(staging, dir); err != nil {
		return nil, err
	}
	log.Debugf("published %d artifacts to %s", len(artifacts), dir)
	return &manifest, nil
}

// ReadManifest loads the manifest of a published directory
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest in %s: %w", dir, err)
	}
	return &m, nil
}

func checkTarget(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s exists and is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
		return fmt.Errorf("output directory %s is not empty and was not created by feaprep", dir)
	}
	return nil
}

// swap moves staging to dir, keeping the previous contents until the new set
// is in place
func swap(staging, dir string) error {
	var backup string
	if _, err := os.Stat(dir); err == nil {
		backup = staging + ".previous"
		if err := os.Rename(dir, backup); err != nil {
			return fmt.Errorf("failed to move previous output aside: %w", err)
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		if backup != "" {
			if restoreErr := os.Rename(backup, dir); restoreErr != nil {
				log.Errorf("failed to restore previous output %s: %v", dir, restoreErr)
			}
		}
		return fmt.Errorf("failed to publish output: %w", err)
	}
	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			log.Warningf("failed to remove previous output %s: %v", backup, err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	_ = f.Sync()
	return f.Close()
}
