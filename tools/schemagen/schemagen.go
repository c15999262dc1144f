// Package main generates JSON schemas for proscan's JSON outputs and checks
// the hand-maintained scan record schema against the Record struct.
package main

import (
	"encoding"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/proscan/pkg/scan"
	"github.com/Sumatoshi-tech/proscan/pkg/scanstats"
)

// errSchemaDrift is returned by -check when Record and the embedded schema disagree.
var errSchemaDrift = errors.New("record schema out of date")

// Schema represents a JSON Schema.
type Schema struct {
	Schema               string             `json:"$schema,omitempty"`
	Title                string             `json:"title,omitempty"`
	Description          string             `json:"description,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Definitions          map[string]*Schema `json:"definitions,omitempty"`
}

var (
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	timeType          = reflect.TypeFor[time.Time]()
	durationType      = reflect.TypeFor[time.Duration]()
)

func main() {
	outputDir := flag.String("o", "docs/schemas", "output directory for schemas")
	check := flag.Bool("check", false, "only verify the embedded record schema against the Record struct")
	flag.Parse()

	if *check {
		if err := checkRecordSchema(scan.Schema); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Record schema is up to date")

		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	outputs := map[string]any{
		"stats": scanstats.View{},
	}

	for name, v := range outputs {
		if err := writeSchema(*outputDir, name, generateSchema(name, v)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing schema for %s: %v\n", name, err)
			os.Exit(1)
		}

		fmt.Printf("Generated schema for %s\n", name)
	}

	if err := os.WriteFile(filepath.Join(*outputDir, "record.json"), scan.Schema, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error copying record schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("All schemas generated successfully")
}

func generateSchema(name string, v any) *Schema {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	defs := make(map[string]*Schema)
	props, required := structToProperties(t, defs)

	schema := &Schema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		Title:       "proscan " + name,
		Description: fmt.Sprintf("JSON schema for the proscan %s output", name),
		Type:        "object",
		Properties:  props,
		Required:    required,
	}

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

func structToProperties(t reflect.Type, defs map[string]*Schema) (map[string]*Schema, []string) {
	props := make(map[string]*Schema)

	var required []string

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonName, omitempty, ok := jsonField(field)
		if !ok {
			continue
		}

		props[jsonName] = typeToSchema(field.Type, defs)

		if !omitempty {
			required = append(required, jsonName)
		}
	}

	slices.Sort(required)

	return props, required
}

// jsonField returns the JSON name of field the way encoding/json names it.
func jsonField(field reflect.StructField) (name string, omitempty, ok bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}

	parts := strings.Split(tag, ",")

	name = parts[0]
	if name == "" {
		name = field.Name
	}

	return name, slices.Contains(parts[1:], "omitempty"), true
}

func typeToSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	switch {
	case t == timeType:
		return &Schema{Type: "string", Format: "date-time"}
	case t == durationType:
		return &Schema{Type: "integer", Description: "Duration in nanoseconds"}
	case t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType):
		return &Schema{Type: "string"}
	}

	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Description: "base64"}
		}

		return &Schema{Type: "array", Items: typeToSchema(t.Elem(), defs)}

	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: typeToSchema(t.Elem(), defs)}

	case reflect.Struct:
		defName := t.Name()
		if defName == "" {
			props, required := structToProperties(t, defs)

			return &Schema{Type: "object", Properties: props, Required: required}
		}

		if _, exists := defs[defName]; !exists {
			defs[defName] = &Schema{}

			props, required := structToProperties(t, defs)
			defs[defName] = &Schema{Type: "object", Properties: props, Required: required}
		}

		return &Schema{Ref: "#/definitions/" + defName}

	case reflect.Pointer:
		return typeToSchema(t.Elem(), defs)

	default:
		return &Schema{Type: "object"}
	}
}

// checkRecordSchema reports every Record field missing from the embedded schema,
// every schema property with no Record field, and required lists that differ.
func checkRecordSchema(embedded []byte) error {
	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}

	if err := json.Unmarshal(embedded, &doc); err != nil {
		return fmt.Errorf("parse record schema: %w", err)
	}

	want := generateSchema("record", scan.Record{})

	var problems []string

	for name := range want.Properties {
		if _, ok := doc.Properties[name]; !ok {
			problems = append(problems, "missing property "+name)
		}
	}

	for name := range doc.Properties {
		if _, ok := want.Properties[name]; !ok {
			problems = append(problems, "unknown property "+name)
		}
	}

	for _, name := range want.Required {
		if !slices.Contains(doc.Required, name) {
			problems = append(problems, "property "+name+" not required")
		}
	}

	if len(problems) == 0 {
		return nil
	}

	slices.Sort(problems)

	return fmt.Errorf("%w: %s", errSchemaDrift, strings.Join(problems, ", "))
}

func writeSchema(dir, name string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644)
}
