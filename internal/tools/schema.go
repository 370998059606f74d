package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a parameter struct into a JSON Schema object. Field
// documentation comes from `jsonschema` struct tags.
func SchemaFor[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshaling schema for %T: %v", v, err))
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("decoding schema for %T: %v", v, err))
	}
	// Providers and the validator only want the bare object schema.
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// Helpers for hand-written schemas.

func Prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func Enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func Object(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func ObjectRequired(properties map[string]any, required ...string) map[string]any {
	s := Object(properties)
	s["required"] = required
	return s
}
