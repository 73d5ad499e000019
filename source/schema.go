package source

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the episode sources input.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(&EpisodeSources{})
	schema.Title = "Episode sources"
	schema.Description = "Playable sources of one episode"

	return json.MarshalIndent(schema, "", "  ")
}
