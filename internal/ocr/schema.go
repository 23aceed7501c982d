package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/mocr/internal/common"
)

// BuildResponseJSONSchema returns the shape we accept from the OCR process
// endpoint. Unknown fields are allowed; the service adds them over time.
func BuildResponseJSONSchema() map[string]any {
	coord := map[string]any{"type": []any{"integer", "null"}}
	image := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":             map[string]any{"type": "string", "minLength": 1},
			"top_left_x":     coord,
			"top_left_y":     coord,
			"bottom_right_x": coord,
			"bottom_right_y": coord,
			"image_base64":   map[string]any{"type": []any{"string", "null"}},
			"data":           map[string]any{"type": []any{"string", "null"}},
		},
		"required": []string{"id"},
	}
	page := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"index":    map[string]any{"type": "integer", "minimum": 0},
			"markdown": map[string]any{"type": "string"},
			"images":   map[string]any{"type": []any{"array", "null"}, "items": image},
		},
		"required": []string{"markdown"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{"type": "string"},
			"pages": map[string]any{"type": "array", "items": page},
		},
		"required": []string{"pages"},
	}
}

var (
	responseSchemaOnce sync.Once
	responseSchema     *jsonschema.Schema
	responseSchemaErr  error
)

// ValidateResponse validates a raw process response body.
func ValidateResponse(data []byte) error {
	responseSchemaOnce.Do(func() {
		responseSchema, responseSchemaErr = compileSchema(BuildResponseJSONSchema())
	})
	if responseSchemaErr != nil {
		return responseSchemaErr
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := responseSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: json does not match schema: %w", common.ErrValidation, err)
	}
	return nil
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ocr-response.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("ocr-response.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
