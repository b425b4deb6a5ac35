// Package schema defines the structured records the annotation agent
// produces: per-region annotations anchored to semantic units, and
// cross-cutting concerns spanning files.
package schema

import (
	"fmt"
	"strings"
)

// Anchor ties an annotation to a named semantic unit in a file.
type Anchor struct {
	UnitType  string `json:"unit_type"`
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
}

// LineRange is an inclusive 1-based line span.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RegionAnnotation captures intent for one region of one file.
type RegionAnnotation struct {
	File         string    `json:"file"`
	Anchor       Anchor    `json:"anchor"`
	Lines        LineRange `json:"lines"`
	Intent       string    `json:"intent"`
	Reasoning    string    `json:"reasoning,omitempty"`
	Constraints  []string  `json:"constraints,omitempty"`
	Dependencies []string  `json:"dependencies,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	RiskNotes    string    `json:"risk_notes,omitempty"`
}

// Validate checks the required fields of a region annotation.
func (a *RegionAnnotation) Validate() error {
	var missing []string
	if a.File == "" {
		missing = append(missing, "file")
	}
	if a.Anchor.UnitType == "" {
		missing = append(missing, "anchor.unit_type")
	}
	if a.Anchor.Name == "" {
		missing = append(missing, "anchor.name")
	}
	if a.Intent == "" {
		missing = append(missing, "intent")
	}
	if len(missing) > 0 {
		return fmt.Errorf("annotation missing required fields: %s", strings.Join(missing, ", "))
	}
	if a.Lines.Start <= 0 || a.Lines.End < a.Lines.Start {
		return fmt.Errorf("annotation has invalid line range %d-%d", a.Lines.Start, a.Lines.End)
	}
	return nil
}

// CrossCuttingConcern captures a theme that spans multiple regions or files
// and has no single anchor.
type CrossCuttingConcern struct {
	Theme     string   `json:"theme"`
	Intent    string   `json:"intent"`
	Files     []string `json:"files,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	RiskNotes string   `json:"risk_notes,omitempty"`
}

// Validate checks the required fields of a cross-cutting concern.
func (c *CrossCuttingConcern) Validate() error {
	var missing []string
	if c.Theme == "" {
		missing = append(missing, "theme")
	}
	if c.Intent == "" {
		missing = append(missing, "intent")
	}
	if len(missing) > 0 {
		return fmt.Errorf("cross-cutting concern missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
