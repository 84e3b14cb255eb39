package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildBillJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is embedded in the prompt as the output constraint and used locally as a
// structural pre-pass before the tolerant Decode.
func BuildBillJSONSchema() map[string]any {
	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1},
			"qty":         map[string]any{"type": "number", "exclusiveMinimum": 0.0},
			"unit_price":  decimalProp(),
			"total_price": decimalProp(),
		},
		"required": []string{"name", "qty", "unit_price", "total_price"},
	}

	props := map[string]any{
		"merchant":   nullable(map[string]any{"type": "string", "minLength": 1}),
		"date":       nullable(map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}),
		"total":      nullable(decimalProp()),
		"currency":   nullable(map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`}),
		"tax":        nullable(decimalProp()),
		"line_items": map[string]any{"type": "array", "items": lineItem},
		"summary":    map[string]any{"type": "string", "minLength": 1},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"summary"},
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d+(\.\d{1,2})?$`,
	}
}

func nullable(prop map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{prop, map[string]any{"type": "null"}}}
}

// ValidateAgainstSchema validates "data" against "schemaMap".
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
