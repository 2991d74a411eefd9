// Package schema compiles JSON schemas and validates decoded JSON values
// against them.
// file: internal/schema/validator.go
//
// Schemas are declared with github.com/google/jsonschema-go (the type the MCP
// SDK advertises to clients) and compiled with santhosh-tekuri/jsonschema for
// validation, so the schema a client sees is exactly the one enforced.
//
// Validation is structural: presence, type and nested shape of declared
// properties are checked. Properties a schema does not declare are ignored
// unless the schema itself forbids them.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	gschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/marekdano/weather-mcp-server/internal/mcperror"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator compiles named schemas. It is safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	compiler *jsonschema.Compiler
	compiled map[string]*Schema
	logger   logging.Logger
}

// Schema is a compiled schema ready for validation.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// NewValidator creates a Validator using draft 2020-12 semantics.
func NewValidator(logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	return &Validator{
		compiler: compiler,
		compiled: make(map[string]*Schema),
		logger:   logger.WithField("component", "schema_validator"),
	}
}

// Compile compiles def under a unique name. Compiling the same name twice is
// an error.
func (v *Validator) Compile(name string, def *gschema.Schema) (*Schema, error) {
	if def == nil {
		return nil, errors.Newf("schema %q: definition is nil", name)
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, errors.Wrapf(err, "schema %q: marshal definition", name)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.compiled[name]; exists {
		return nil, errors.Newf("schema %q already compiled", name)
	}

	resourceURL := "mem://schemas/" + url.PathEscape(name) + ".json"
	if err := v.compiler.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrapf(err, "schema %q: add resource", name)
	}
	compiled, err := v.compiler.Compile(resourceURL)
	if err != nil {
		v.logger.Error("Schema compilation failed.", "schema", name, "error", err)
		return nil, errors.Wrapf(err, "schema %q: compile", name)
	}

	s := &Schema{name: name, compiled: compiled}
	v.compiled[name] = s
	v.logger.Debug("Schema compiled.", "schema", name, "sizeBytes", len(raw))
	return s, nil
}

// ValidateJSON decodes data and validates it. subject names the validated
// thing in error messages. Undecodable data yields a ValidationError too.
func (s *Schema) ValidateJSON(subject string, data []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, mcperror.NewValidationError(subject, []Violation{{
			Path:    "",
			Message: fmt.Sprintf("malformed JSON: %v", err),
		}}, err)
	}
	if err := s.Validate(subject, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks a value produced by encoding/json decoding (maps, slices,
// float64, string, bool, nil). Every violation is reported.
func (s *Schema) Validate(subject string, doc any) error {
	err := s.compiled.Validate(doc)
	if err == nil {
		return nil
	}
	var valErr *jsonschema.ValidationError
	if !errors.As(err, &valErr) {
		return errors.Wrapf(err, "schema %q: validate", s.name)
	}
	return mcperror.NewValidationError(subject, collectViolations(valErr), valErr)
}

// Violation aliases the taxonomy type so callers need only this package.
type Violation = mcperror.Violation

// collectViolations flattens the cause tree into its leaves, which carry the
// specific messages; inner nodes only say "doesn't validate with ...".
func collectViolations(root *jsonschema.ValidationError) []Violation {
	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Violation{Path: e.InstanceLocation, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(root)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
