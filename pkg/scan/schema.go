package scan

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidRecord is returned when a document does not match the record schema.
var ErrInvalidRecord = errors.New("invalid scan record")

// Schema is the JSON Schema (draft-07) of a serialized Record.
//
//go:embed schema.json
var Schema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(Schema))
})

// FieldError is one schema violation.
type FieldError struct {
	Field       string
	Description string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Description
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}

	return fmt.Sprintf("%s: %s", ErrInvalidRecord, strings.Join(parts, "; "))
}

// Unwrap makes errors.Is(err, ErrInvalidRecord) hold.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRecord
}

// ValidateJSON checks a serialized record against Schema.
// Violations are reported as a *ValidationError.
func ValidateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile record schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, re := range result.Errors() {
		verr.Fields = append(verr.Fields, FieldError{Field: re.Field(), Description: re.Description()})
	}

	return verr
}

// Validate serializes r and checks it against Schema.
func Validate(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return ValidateJSON(data)
}
