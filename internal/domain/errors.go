package domain

import (
	"fmt"
	"strings"
)

// FieldViolation is one failed rule on one document field
type FieldViolation struct {
	Field   string
	Rule    string
	Message string
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError aggregates every violated field of a model document
type ValidationError struct {
	Violations []FieldViolation
}

// Add records a violation
func (e *ValidationError) Add(field, rule, format string, args ...interface{}) {
	e.Violations = append(e.Violations, FieldViolation{
		Field:   field,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	})
}

// Has reports whether a violation was recorded for field
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil when nothing was recorded
func (e *ValidationError) Err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, "  - "+v.String())
	}
	return fmt.Sprintf("validation failed with %d violation(s):\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

// GenerationError reports a geometry constraint that cannot be satisfied
type GenerationError struct {
	Location   Location
	PhysicalID int
	Reason     string
}

func (e *GenerationError) Error() string {
	switch {
	case e.PhysicalID != 0 && e.Location != "":
		return fmt.Sprintf("geometry generation: group %d at %q: %s", e.PhysicalID, e.Location, e.Reason)
	case e.PhysicalID != 0:
		return fmt.Sprintf("geometry generation: group %d: %s", e.PhysicalID, e.Reason)
	}
	return "geometry generation: " + e.Reason
}

// ExternalToolError reports a failed invocation of the mesh generator. Failures
// are deterministic for a given input and are never retried.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// ConversionIssue is one inconsistency between the raw mesh and the group table
type ConversionIssue struct {
	GroupID    int
	ElementTag int
	NodeTag    int
	Reason     string
}

func (i ConversionIssue) String() string {
	var ref []string
	if i.GroupID != 0 {
		ref = append(ref, fmt.Sprintf("group %d", i.GroupID))
	}
	if i.ElementTag != 0 {
		ref = append(ref, fmt.Sprintf("element %d", i.ElementTag))
	}
	if i.NodeTag != 0 {
		ref = append(ref, fmt.Sprintf("node %d", i.NodeTag))
	}
	if len(ref) == 0 {
		return i.Reason
	}
	return strings.Join(ref, ", ") + ": " + i.Reason
}

// ConversionError reports raw mesh output inconsistent with the geometry script
type ConversionError struct {
	Issues []ConversionIssue
}

func (e *ConversionError) Error() string {
	lines := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		lines = append(lines, "  - "+i.String())
	}
	return fmt.Sprintf("mesh conversion failed with %d issue(s):\n%s", len(e.Issues), strings.Join(lines, "\n"))
}
