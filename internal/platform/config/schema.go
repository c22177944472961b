package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the YAML configuration file, keyed by
// the yaml field names.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag:   "yaml",
		DoNotReference: true,
	}
	s := r.Reflect(&Config{})
	s.Title = "roleplay configuration"
	return json.MarshalIndent(s, "", "  ")
}
