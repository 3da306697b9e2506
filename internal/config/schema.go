package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Schema describes the settings file as JSON Schema, keyed by the YAML
// field names, for editor completion and validation.
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		FieldNameTag:              "yaml",
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&Settings{})
	schema.Title = "frozenlake settings"
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode settings schema")
	}
	return data, nil
}
