// Package scan defines the record emitted for every decoded symbol and the JSON
// schema downstream consumers validate it against.
package scan

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/proscan/pkg/dedup"
	"github.com/Sumatoshi-tech/proscan/pkg/frame"
	"github.com/Sumatoshi-tech/proscan/pkg/grading"
	"github.com/Sumatoshi-tech/proscan/pkg/quality"
	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

// Diagnostic flags a detection that could not be analyzed normally.
type Diagnostic string

// Diagnostic flags.
const (
	DiagInvalidRegion Diagnostic = "invalid_region"
	DiagInvalidMetric Diagnostic = "invalid_metric"
)

// Record is the engine's output for one detection. Records are emitted for
// suppressed duplicates too, tagged with Admitted=false.
type Record struct {
	ID           uuid.UUID            `json:"id"`
	Frame        uint64               `json:"frame"`
	Index        int                  `json:"index"`
	Timestamp    time.Time            `json:"timestamp"`
	Symbology    symbology.Symbology  `json:"symbology"`
	Payload      string               `json:"payload"`
	Raw          []byte               `json:"raw,omitempty"`
	Grade        grading.Grade        `json:"grade"`
	Composite    float64              `json:"composite"`
	Score        float64              `json:"score"`
	Metrics      quality.Metrics      `json:"metrics"`
	Measurements quality.Measurements `json:"measurements"`
	Defect       quality.Defect       `json:"defect"`
	Admitted     bool                 `json:"admitted"`
	Diagnostics  []Diagnostic         `json:"diagnostics,omitempty"`
	Bounds       frame.Rect           `json:"bounds"`
}

// Outcome returns the deduplication outcome carried by the record.
func (r Record) Outcome() dedup.Outcome {
	if r.Admitted {
		return dedup.Admitted
	}

	return dedup.Suppressed
}

// Identity returns the deduplication key of the record.
func (r Record) Identity() symbology.Identity {
	return symbology.NewIdentity(r.Symbology, r.Raw)
}

// Result returns the grading result carried by the record.
func (r Record) Result() grading.Result {
	return grading.Result{Grade: r.Grade, Composite: r.Composite, Score: r.Score}
}

// Has reports whether the record carries diagnostic d.
func (r Record) Has(d Diagnostic) bool {
	return slices.Contains(r.Diagnostics, d)
}

// Passed reports whether the record is admitted with a grade at or above threshold.
func (r Record) Passed(threshold grading.Grade) bool {
	return r.Admitted && r.Grade.Passes(threshold)
}
