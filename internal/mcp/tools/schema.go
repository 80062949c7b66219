package tools

import (
	"encoding/json"

	"github.com/aussiebroadwan/gatehouse/internal/mcp/protocol"
	"github.com/invopop/jsonschema"
)

// NoArgs is the argument type of tools that take no input.
type NoArgs struct{}

// reflectInputSchema reflects A into the flat object schema MCP advertises.
// Non-object types fall back to an empty object.
func reflectInputSchema[A any]() protocol.InputSchema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(A))

	out := protocol.InputSchema{Type: "object", Properties: map[string]json.RawMessage{}}
	if s == nil || s.Type != "object" {
		return out
	}
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			raw, err := json.Marshal(el.Value)
			if err != nil {
				continue
			}
			out.Properties[el.Key] = raw
		}
	}
	if len(s.Required) > 0 {
		out.Required = append(out.Required, s.Required...)
	}
	return out
}
