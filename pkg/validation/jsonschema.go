package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	_ "github.com/santhosh-tekuri/jsonschema/v5/httploader"
)

// AttachmentListSchema constrains the attachment list clients may put on a
// recurring task template. Attachments are copied by value into every task the
// template generates, so bad entries would fan out; they are rejected here.
const AttachmentListSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "url"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"url": {"type": "string", "minLength": 1},
			"size": {"type": "integer", "minimum": 0},
			"content_type": {"type": "string"}
		},
		"additionalProperties": false
	}
}`

// ValidateJSONWithSchema validates a JSON data string against a JSON schema string.
func ValidateJSONWithSchema(schemaJSON string, dataJSON string) error {
	if schemaJSON == "" {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile JSON schema: %w. Schema: %s", err, schemaJSON)
	}

	var data interface{}
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON data: %w. Data: %s", err, dataJSON)
	}

	if err := sch.Validate(data); err != nil {
		validationErr, ok := err.(*jsonschema.ValidationError)
		if ok {
			return fmt.Errorf("JSON data failed validation against schema: %v", validationErr)
		}
		return fmt.Errorf("JSON data failed validation (unexpected error type): %w", err)
	}
	return nil
}

// ValidateAttachments checks a raw attachment list payload against
// AttachmentListSchema. An empty payload is fine.
func ValidateAttachments(attachmentsJSON string) error {
	if attachmentsJSON == "" || attachmentsJSON == "null" {
		return nil
	}
	return ValidateJSONWithSchema(AttachmentListSchema, attachmentsJSON)
}
