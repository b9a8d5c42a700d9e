package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateJSONWithSchema_Valid(t *testing.T) {
	schema := `{
		"type": "object",
		"properties": { "name": {"type": "string"}, "age": {"type": "integer"} },
		"required": ["name"]
	}`
	validData := `{"name": "John Doe", "age": 30}`
	assert.NoError(t, ValidateJSONWithSchema(schema, validData))
	validDataOnlyName := `{"name": "Jane Doe"}`
	assert.NoError(t, ValidateJSONWithSchema(schema, validDataOnlyName))
}

func TestValidateJSONWithSchema_Invalid(t *testing.T) {
	schema := `{
		"type": "object",
		"properties": { "name": {"type": "string"}, "age": {"type": "integer", "minimum": 0} },
		"required": ["name", "age"]
	}`
	missingRequiredField := `{"name": "Test"}`
	err := ValidateJSONWithSchema(schema, missingRequiredField)
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), "missing properties: 'age'")
	}

	wrongType := `{"name": "Test", "age": "thirty"}`
	err = ValidateJSONWithSchema(schema, wrongType)
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), "expected integer, but got string")
	}
}

func TestValidateJSONWithSchema_EmptySchema(t *testing.T) {
	assert.NoError(t, ValidateJSONWithSchema("", `{"name": "Test"}`))
}

func TestValidateJSONWithSchema_InvalidSchema(t *testing.T) {
	err := ValidateJSONWithSchema(`{"type": "object", "properties": {"name": {"type": "str"}}}`, `{"name": "Test"}`)
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), "failed to compile JSON schema")
	}
}

func TestValidateAttachments_Valid(t *testing.T) {
	assert.NoError(t, ValidateAttachments(""))
	assert.NoError(t, ValidateAttachments("null"))
	assert.NoError(t, ValidateAttachments(`[]`))
	assert.NoError(t, ValidateAttachments(`[{"name": "manual.pdf", "url": "https://files.example/manual.pdf"}]`))
	assert.NoError(t, ValidateAttachments(`[{"name": "photo.jpg", "url": "https://files.example/p.jpg", "size": 2048, "content_type": "image/jpeg"}]`))
}

func TestValidateAttachments_Invalid(t *testing.T) {
	// Not a list.
	assert.Error(t, ValidateAttachments(`{"name": "manual.pdf", "url": "x"}`))

	// Missing required url.
	assert.Error(t, ValidateAttachments(`[{"name": "manual.pdf"}]`))

	// Empty name.
	assert.Error(t, ValidateAttachments(`[{"name": "", "url": "https://files.example/x"}]`))

	// Negative size.
	assert.Error(t, ValidateAttachments(`[{"name": "a", "url": "b", "size": -1}]`))

	// Unknown keys are rejected so typos do not silently drop data.
	assert.Error(t, ValidateAttachments(`[{"name": "a", "url": "b", "mime": "image/png"}]`))
}
