package curriculum

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

// compileSchema compiles the embedded plan schema. The schema ships with the
// binary, so a compile failure is a programming error surfaced at
// construction time rather than per request.
func compileSchema() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal plan schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("curriculum.json", doc); err != nil {
		return nil, fmt.Errorf("add plan schema resource: %w", err)
	}
	schema, err := c.Compile("curriculum.json")
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	return schema, nil
}
