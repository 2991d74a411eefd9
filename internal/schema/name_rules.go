// file: internal/schema/name_rules.go
package schema

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// EntityType represents a kind of MCP entity whose name is validated.
type EntityType string

const (
	// EntityTypeTool represents a tool.
	EntityTypeTool EntityType = "tool"
	// EntityTypeResource represents a resource template.
	EntityTypeResource EntityType = "resource"
)

// NameRule defines validation rules for an entity name.
type NameRule struct {
	Pattern     *regexp.Regexp
	Description string
	MaxLength   int
}

// camelCase is accepted by every MCP client observed so far.
var camelCase = NameRule{
	Pattern:     regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`),
	Description: "must start with a lowercase letter, followed by alphanumeric characters only",
	MaxLength:   64,
}

var nameRules = map[EntityType]NameRule{
	EntityTypeTool:     camelCase,
	EntityTypeResource: camelCase,
}

// GetNameRule returns the validation rule for an entity type.
func GetNameRule(entityType EntityType) (NameRule, bool) {
	rule, ok := nameRules[entityType]
	return rule, ok
}

// ValidateName checks name against the rule for entityType.
func ValidateName(entityType EntityType, name string) error {
	rule, ok := nameRules[entityType]
	if !ok {
		return errors.Newf("unknown entity type: %s", entityType)
	}
	if name == "" {
		return errors.Newf("empty %s name is not allowed", entityType)
	}
	if len(name) > rule.MaxLength {
		return errors.Newf("%s name exceeds maximum length of %d characters", entityType, rule.MaxLength)
	}
	if !rule.Pattern.MatchString(name) {
		return errors.Newf("invalid %s name '%s': %s", entityType, name, rule.Description)
	}
	return nil
}
