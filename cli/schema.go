package cli

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v2"

	"github.com/aidas-vision/aidas/config"
)

// SchemaAction prints the config file schema and the attribute schema of every backend.
func SchemaAction(c *cli.Context) error {
	out, err := json.MarshalIndent(struct {
		Config   *jsonschema.Schema            `json:"config"`
		Backends map[string]*jsonschema.Schema `json:"backends"`
	}{config.Schema(), config.BackendSchemas()}, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}
