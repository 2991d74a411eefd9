package schema

// file: internal/schema/name_rules_test.go

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name          string
		entityType    EntityType
		inputName     string
		errorContains string
	}{
		{name: "[Tool] valid camelCase", entityType: EntityTypeTool, inputName: "getWeather"},
		{name: "[Tool] valid single word", entityType: EntityTypeTool, inputName: "add"},
		{name: "[Tool] valid exact max length", entityType: EntityTypeTool, inputName: "a" + strings.Repeat("B", 63)},
		{name: "[Tool] too long", entityType: EntityTypeTool, inputName: "a" + strings.Repeat("B", 64), errorContains: "maximum length"},
		{name: "[Tool] uppercase start", entityType: EntityTypeTool, inputName: "GetWeather", errorContains: "lowercase letter"},
		{name: "[Tool] hyphen", entityType: EntityTypeTool, inputName: "get-weather", errorContains: "alphanumeric"},
		{name: "[Tool] empty", entityType: EntityTypeTool, inputName: "", errorContains: "empty tool name"},
		{name: "[Resource] valid", entityType: EntityTypeResource, inputName: "greeting"},
		{name: "[Resource] underscore", entityType: EntityTypeResource, inputName: "greeting_v2", errorContains: "invalid resource name"},
		{name: "[Unknown] entity type", entityType: EntityType("prompt"), inputName: "hello", errorContains: "unknown entity type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateName(tc.entityType, tc.inputName)
			if tc.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.errorContains)
			}
		})
	}
}

func TestGetNameRule_KnownTypes(t *testing.T) {
	rule, ok := GetNameRule(EntityTypeTool)
	assert.True(t, ok)
	assert.Equal(t, 64, rule.MaxLength)

	_, ok = GetNameRule(EntityType("prompt"))
	assert.False(t, ok)
}
