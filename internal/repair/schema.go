package repair

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var fragmentSchemaJSON []byte

const fragmentSchemaURL = "https://schemas.profile-backend.dev/profile-fragment.json"

var fragmentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(fragmentSchemaURL, bytes.NewReader(fragmentSchemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(fragmentSchemaURL)
})
