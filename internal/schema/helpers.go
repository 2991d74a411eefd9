// file: internal/schema/helpers.go
package schema

import (
	gschema "github.com/google/jsonschema-go/jsonschema"
)

// Object declares an object schema. Undeclared properties stay allowed.
func Object(props map[string]*gschema.Schema, required ...string) *gschema.Schema {
	return &gschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// Number declares a JSON number.
func Number(description string) *gschema.Schema {
	return &gschema.Schema{Type: "number", Description: description}
}

// String declares a JSON string.
func String(description string) *gschema.Schema {
	return &gschema.Schema{Type: "string", Description: description}
}

// NonEmptyArray declares an array with at least one element of items.
func NonEmptyArray(items *gschema.Schema) *gschema.Schema {
	one := 1
	return &gschema.Schema{Type: "array", Items: items, MinItems: &one}
}
