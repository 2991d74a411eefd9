// Package mcperror defines the error taxonomy shared by the registry, the
// weather client and the HTTP layer.
// file: internal/mcperror/types.go
package mcperror

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Category groups errors by how they are reported to MCP clients.
type Category string

// Error categories.
const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	CategoryUpstream   Category = "upstream"
	CategoryHandler    Category = "handler"
	CategoryRegistry   Category = "registry"
	CategoryNotFound   Category = "not_found"
)

// JSON-RPC error codes used when an error is reported as a protocol error.
const (
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeResourceNotFound = -32002
)

// Categorized is implemented by every error type in this package.
type Categorized interface {
	error
	Category() Category
}

// ConfigError reports missing or invalid configuration. It is fatal to the
// operation that needs the setting, not to the process.
type ConfigError struct {
	Setting string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Setting != "" {
		msg = fmt.Sprintf("%s (setting: %s)", msg, e.Setting)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Cause }

// Category implements Categorized.
func (e *ConfigError) Category() Category { return CategoryConfig }

// Violation is a single schema violation.
type Violation struct {
	// Path is a JSON pointer into the validated instance ("" for the root).
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}
	return path + ": " + v.Message
}

// ValidationError reports input or upstream data that does not match its schema.
type ValidationError struct {
	Subject    string
	Violations []Violation
	Cause      error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	msg := fmt.Sprintf("invalid %s", e.Subject)
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	} else if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Cause }

// Category implements Categorized.
func (e *ValidationError) Category() Category { return CategoryValidation }

// UpstreamError reports a non-success HTTP status from an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	StatusText string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Service, e.StatusCode, e.StatusText)
}

// Category implements Categorized.
func (e *UpstreamError) Category() Category { return CategoryUpstream }

// HandlerError wraps any other failure raised by a tool or resource handler.
type HandlerError struct {
	Name  string
	Cause error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %q failed: %v", e.Name, e.Cause)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error { return e.Cause }

// Category implements Categorized.
func (e *HandlerError) Category() Category { return CategoryHandler }

// DuplicateNameError reports a second registration under an existing name.
type DuplicateNameError struct {
	Kind string // "tool" or "resource"
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %q already registered", e.Kind, e.Name)
}

// Category implements Categorized.
func (e *DuplicateNameError) Category() Category { return CategoryRegistry }

// UnknownToolError reports a dispatch to a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Category implements Categorized.
func (e *UnknownToolError) Category() Category { return CategoryNotFound }

// UnknownResourceError reports a read of a URI no resource template matches.
type UnknownResourceError struct {
	URI string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("no resource matches %q", e.URI)
}

// Category implements Categorized.
func (e *UnknownResourceError) Category() Category { return CategoryNotFound }

// NewConfigError creates a ConfigError with a stack trace attached.
func NewConfigError(setting, message string) error {
	return errors.WithStack(&ConfigError{Setting: setting, Message: message})
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(subject string, violations []Violation, cause error) error {
	return errors.WithStack(&ValidationError{Subject: subject, Violations: violations, Cause: cause})
}

// NewUpstreamError creates an UpstreamError with a stack trace attached.
func NewUpstreamError(service string, statusCode int, statusText string) error {
	return errors.WithStack(&UpstreamError{Service: service, StatusCode: statusCode, StatusText: statusText})
}

// NewHandlerError wraps cause as a HandlerError.
func NewHandlerError(name string, cause error) error {
	return errors.WithStack(&HandlerError{Name: name, Cause: cause})
}

// NewDuplicateNameError creates a DuplicateNameError.
func NewDuplicateNameError(kind, name string) error {
	return errors.WithStack(&DuplicateNameError{Kind: kind, Name: name})
}

// NewUnknownToolError creates an UnknownToolError.
func NewUnknownToolError(name string) error {
	return errors.WithStack(&UnknownToolError{Name: name})
}

// NewUnknownResourceError creates an UnknownResourceError.
func NewUnknownResourceError(uri string) error {
	return errors.WithStack(&UnknownResourceError{URI: uri})
}
