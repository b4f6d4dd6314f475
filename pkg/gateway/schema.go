package gateway

import "slices"

// Schema constrains the shape of a structured response. Backends translate
// it into their own format; the constraint is advisory and replies are
// parsed defensively regardless.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
}

// JSON schema type names.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// ObjectSchema builds an object schema where every property is required.
func ObjectSchema(props map[string]*Schema) *Schema {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	slices.Sort(required)
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// ListSchema builds {"<key>": [item...]}.
func ListSchema(key string, item *Schema) *Schema {
	return ObjectSchema(map[string]*Schema{
		key: {Type: TypeArray, Items: item},
	})
}

func String() *Schema { return &Schema{Type: TypeString} }
func Number() *Schema { return &Schema{Type: TypeNumber} }
func Integer() *Schema { return &Schema{Type: TypeInteger} }

// CorrectionsSchema describes proofreader corrections.
func CorrectionsSchema() *Schema {
	return ListSchema("corrections", ObjectSchema(map[string]*Schema{
		"offset":      Integer(),
		"length":      Integer(),
		"correction":  String(),
		"explanation": String(),
	}))
}
