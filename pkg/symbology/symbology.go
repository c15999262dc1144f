// Package symbology enumerates the barcode encodings the engine understands
// and derives the scan identity used for duplicate suppression.
package symbology

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSymbology is returned when parsing an unrecognized symbology name.
var ErrUnknownSymbology = errors.New("unknown symbology")

// Symbology is a barcode encoding standard.
type Symbology uint8

// Supported symbologies.
const (
	Unknown Symbology = iota
	EAN8
	EAN13
	UPCA
	UPCE
	Code39
	Code93
	Code128
	ITF
	Codabar
	QR
	DataMatrix
	// PDF417 is recognized by name but has no decoding backend; All omits it.
	PDF417
	Aztec
)

var names = [...]string{
	Unknown:    "UNKNOWN",
	EAN8:       "EAN-8",
	EAN13:      "EAN-13",
	UPCA:       "UPC-A",
	UPCE:       "UPC-E",
	Code39:     "CODE-39",
	Code93:     "CODE-93",
	Code128:    "CODE-128",
	ITF:        "ITF",
	Codabar:    "CODABAR",
	QR:         "QR",
	DataMatrix: "DATA-MATRIX",
	PDF417:     "PDF417",
	Aztec:      "AZTEC",
}

// All returns every decodable symbology, linear formats first.
func All() []Symbology {
	return []Symbology{EAN8, EAN13, UPCA, UPCE, Code39, Code93, Code128, ITF, Codabar, QR, DataMatrix, Aztec}
}

// String returns the canonical upper-case name.
func (s Symbology) String() string {
	if int(s) < len(names) {
		return names[s]
	}

	return fmt.Sprintf("Symbology(%d)", uint8(s))
}

// Linear reports whether the symbology is a 1D (row-scanned) code.
func (s Symbology) Linear() bool {
	return s >= EAN8 && s <= Codabar
}

// Parse converts a name such as "code128", "CODE-128" or "qr" into a Symbology.
func Parse(name string) (Symbology, error) {
	norm := normalize(name)

	for i, n := range names {
		if i == int(Unknown) {
			continue
		}

		if normalize(n) == norm {
			return Symbology(i), nil //nolint:gosec // index bounded by names.
		}
	}

	return Unknown, fmt.Errorf("%w: %q", ErrUnknownSymbology, name)
}

func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)

	if s == "QRCODE" {
		return "QR"
	}

	return s
}

// MarshalText implements encoding.TextMarshaler.
func (s Symbology) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Symbology) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Identity is the deduplication key of a scan: the symbology plus the exact
// payload bytes. It is comparable and intended as a map key only.
type Identity struct {
	payload   string
	symbology Symbology
}

// NewIdentity derives the identity of a decoded symbol.
func NewIdentity(sym Symbology, payload []byte) Identity {
	return Identity{symbology: sym, payload: string(payload)}
}

// Symbology returns the identity's symbology.
func (id Identity) Symbology() Symbology { return id.symbology }

func (id Identity) String() string {
	return id.symbology.String() + ":" + id.payload
}
