package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// submitSchema validates the submission payload before it reaches the
// gate. report_id and user_id are accepted as integer or string; both
// are compared as strings downstream.
var submitSchema = mustCompile(map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"report_id": idProp(),
		"user_id":   idProp(),
		"s3_url":    map[string]any{"type": "string", "minLength": 1},
		"environment": map[string]any{
			"type": "string",
			"enum": []any{"staging", "production"},
		},
	},
	"required": []any{"report_id", "user_id", "s3_url"},
})

func idProp() map[string]any {
	return map[string]any{
		"type": []any{"integer", "string"},
	}
}

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// validateSubmit checks raw JSON against submitSchema.
func validateSubmit(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := submitSchema.Validate(v); err != nil {
		return err
	}
	return nil
}
