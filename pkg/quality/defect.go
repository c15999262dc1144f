package quality

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThresholds is returned when a defect threshold lies outside [0, 1].
var ErrInvalidThresholds = errors.New("invalid defect thresholds")

// Defect is the dominant problem found on a symbol.
type Defect uint8

// Defect classes, checked in this order.
const (
	DefectNone Defect = iota
	DefectBlur
	DefectLowContrast
	DefectBroken
	DefectInvalid
)

var defectNames = [...]string{
	DefectNone:        "OK",
	DefectBlur:        "BLUR",
	DefectLowContrast: "LOW_CONTRAST",
	DefectBroken:      "BROKEN",
	DefectInvalid:     "INVALID",
}

func (d Defect) String() string {
	if int(d) < len(defectNames) {
		return defectNames[d]
	}

	return fmt.Sprintf("Defect(%d)", uint8(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Defect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Defect) UnmarshalText(text []byte) error {
	for i, name := range defectNames {
		if name == string(text) {
			*d = Defect(i) //nolint:gosec // index bounded by defectNames.

			return nil
		}
	}

	return fmt.Errorf("unknown defect %q", text)
}

// Thresholds are the minimum acceptable metric values before a defect is reported.
type Thresholds struct {
	Blur          float64 `mapstructure:"blur_threshold"`
	Contrast      float64 `mapstructure:"contrast_threshold"`
	EdgeIntegrity float64 `mapstructure:"edge_threshold"`
}

// Default defect thresholds.
const (
	DefaultBlurThreshold     = 0.35
	DefaultContrastThreshold = 0.25
	DefaultEdgeThreshold     = 0.5
)

// DefaultThresholds returns the stock defect thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Blur:          DefaultBlurThreshold,
		Contrast:      DefaultContrastThreshold,
		EdgeIntegrity: DefaultEdgeThreshold,
	}
}

// Validate checks that every threshold lies in [0, 1].
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"blur":           t.Blur,
		"contrast":       t.Contrast,
		"edge_integrity": t.EdgeIntegrity,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidThresholds, name, v)
		}
	}

	return nil
}

// Classify returns the first defect whose metric falls below its threshold.
func Classify(m Metrics, t Thresholds) Defect {
	switch {
	case !m.Valid():
		return DefectInvalid
	case m.Blur < t.Blur:
		return DefectBlur
	case m.Contrast < t.Contrast:
		return DefectLowContrast
	case m.EdgeIntegrity < t.EdgeIntegrity:
		return DefectBroken
	default:
		return DefectNone
	}
}
