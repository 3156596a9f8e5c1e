// Package codec reads and writes model documents. YAML is the primary
// authoring format; JSON and HCL are accepted for generated and
// hand-written configurations respectively.
package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"feaprep/internal/schema"
)

// Importer parses a model document from a stream
type Importer interface {
	Parse(r io.Reader) (*schema.Document, error)
	Format() string
}

// Exporter writes a model document to a stream
type Exporter interface {
	Export(doc *schema.Document, w io.Writer) error
	Format() string
}

// ForPath selects an importer from a file extension
func ForPath(path string) (Importer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLCodec(), nil
	case ".json":
		return NewJSONCodec(), nil
	case ".hcl":
		return NewHCLCodec(filepath.Base(path)), nil
	}
	return nil, fmt.Errorf("unsupported document format %q (want .yaml, .yml, .json or .hcl)", filepath.Ext(path))
}

// LoadFile reads and parses the model document at path
func LoadFile(path string) (*schema.Document, error) {
	importer, err := ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	doc, err := importer.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// SaveFile writes doc as YAML to path
func SaveFile(path string, doc *schema.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	if err := NewYAMLCodec().Export(doc, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
