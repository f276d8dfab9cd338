package channels

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed channels.schema.json
var channelsSchemaJSON string

var channelsSchema = jsonschema.MustCompileString("channels.schema.json", channelsSchemaJSON)

// validateSchema checks the raw channels file against the embedded JSON schema.
// YAML input is round-tripped through JSON so both formats validate the same way.
func validateSchema(raw []byte, ext string) error {
	decoded, err := decodeChannelsFile(raw, ext, func() any {
		var v any
		return &v
	})
	if err != nil {
		return err
	}

	doc, err := json.Marshal(*decoded.(*any))
	if err != nil {
		return fmt.Errorf("channels file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("channels file: %w", err)
	}

	if err := channelsSchema.Validate(instance); err != nil {
		return fmt.Errorf("channels file failed schema validation: %w", err)
	}
	return nil
}
