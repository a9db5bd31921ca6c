// Package manifest reads and validates the optional book.json manifest that
// pins the book title and the chapter reading order.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Filename is the manifest's conventional name at the book root.
const Filename = "book.json"

// SchemaURL is the resource name the embedded schema compiles under.
const SchemaURL = "https://dartbook.dev/schema/book.json"

// Manifest is the decoded book.json.
type Manifest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Cover       string    `json:"cover,omitempty"`
	Language    string    `json:"language,omitempty"`
	Chapters    []Chapter `json:"chapters"`
}

// Chapter is one manifest entry in reading order.
type Chapter struct {
	Number int    `json:"number"`
	Path   string `json:"path"`
	Title  string `json:"title"`
}

// ValidationError is a single schema violation.
type ValidationError struct {
	Path    string `json:"path"` // JSON path into the manifest document
	Message string `json:"message"`
}

// Result is the outcome of validating a manifest document.
type Result struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Manifest *Manifest         `json:"manifest,omitempty"` // set when valid
}

// Parse decodes manifest JSON without schema validation.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// Validate checks manifest JSON against the book schema and decodes it when
// it passes. schemaData is the raw JSON Schema document.
func Validate(data, schemaData []byte) (*Result, error) {
	result := &Result{}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "$",
			Message: fmt.Sprintf("manifest is not valid JSON: %v", err),
		})
		return result, nil
	}

	schema, err := compileSchema(schemaData)
	if err != nil {
		return nil, err
	}

	if err := schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			result.Errors = collectValidationErrors(validationErr)
		} else {
			result.Errors = append(result.Errors, ValidationError{Path: "$", Message: err.Error()})
		}
		return result, nil
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	result.Valid = true
	result.Manifest = &m
	return result, nil
}

func compileSchema(schemaData []byte) (*jsonschema.Schema, error) {
	var schemaDoc interface{}
	if err := json.Unmarshal(schemaData, &schemaDoc); err != nil {
		return nil, fmt.Errorf("book schema is invalid JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(SchemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to add book schema resource: %w", err)
	}
	schema, err := compiler.Compile(SchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile book schema: %w", err)
	}
	return schema, nil
}

// collectValidationErrors flattens the jsonschema error tree into our format.
func collectValidationErrors(validationErr *jsonschema.ValidationError) []ValidationError {
	var errors []ValidationError

	path := "$"
	if len(validationErr.InstanceLocation) > 0 {
		path = "$." + strings.Join(validationErr.InstanceLocation, ".")
	}
	if msg := validationErr.Error(); msg != "" {
		errors = append(errors, ValidationError{Path: path, Message: msg})
	}
	for _, cause := range validationErr.Causes {
		errors = append(errors, collectValidationErrors(cause)...)
	}
	return errors
}
