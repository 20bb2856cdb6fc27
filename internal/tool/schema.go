package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects a tool's argument struct into the JSON-Schema
// parameter map advertised through Info.Parameters. Field names come from
// the json tags; required/description/enum constraints come from the
// jsonschema tags.
func generateSchema(args any) map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	raw, err := json.Marshal(reflector.Reflect(args))
	if err != nil {
		// Argument structs are package-level literals, so a schema that
		// fails to serialize is a programming error caught the first time
		// the tool is constructed, not a runtime state.
		panic(fmt.Sprintf("tool: reflecting parameter schema: %v", err))
	}
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		panic(fmt.Sprintf("tool: decoding parameter schema: %v", err))
	}

	// Advertise only the object keywords the chat-completions tools field
	// understands; the reflector's own metadata ($schema, $id, version) is
	// dropped rather than forwarded to the model.
	params := map[string]any{
		"type":       "object",
		"properties": full["properties"],
	}
	for _, key := range []string{"required", "additionalProperties"} {
		if v, ok := full[key]; ok {
			params[key] = v
		}
	}
	return params
}
