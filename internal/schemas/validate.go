// Package schemas provides JSON Schema validation for the structured
// artifacts the pipeline produces: content records and generated questions.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed content_record.schema.json
var contentRecordSchema string

//go:embed mcq.schema.json
var mcqSchema string

//go:embed frq.schema.json
var frqSchema string

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func compiledSchemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		sources := map[string]string{
			"content_record": contentRecordSchema,
			"mcq":            mcqSchema,
			"frq":            frqSchema,
		}
		compiled = make(map[string]*gojsonschema.Schema, len(sources))
		for name, src := range sources {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
			if err != nil {
				compileErr = &SchemaLoadError{
					Name:    name,
					Message: "schema failed to compile",
					Cause:   err,
				}
				return
			}
			compiled[name] = schema
		}
	})
	return compiled, compileErr
}

func validateAgainst(name, jsonContent string) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}

	result, err := schemas[name].Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return &SchemaLoadError{
			Name:    name,
			Message: "document failed to load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}

// ValidateContentRecord validates a content record document against the
// content record schema.
func ValidateContentRecord(jsonContent string) error {
	return validateAgainst("content_record", jsonContent)
}

// ValidateMCQ validates a multiple-choice question document.
func ValidateMCQ(jsonContent string) error {
	return validateAgainst("mcq", jsonContent)
}

// ValidateFRQ validates a free-response question document.
func ValidateFRQ(jsonContent string) error {
	return validateAgainst("frq", jsonContent)
}
