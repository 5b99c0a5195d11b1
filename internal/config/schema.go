package config

import (
	_ "embed"
	"fmt"
	"sync"

	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed trialkit_session_v1.0.0.json
var schemaV1Bytes []byte

var (
	schemaV1   *gojsonschema.Schema
	schemaOnce sync.Once
	schemaErr  error
)

// loadSchema compiles the embedded schema once.
func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		if len(schemaV1Bytes) == 0 {
			schemaErr = gxoerrors.NewConfigError("embedded schema 'trialkit_session_v1.0.0.json' is empty", nil)
			return
		}
		schemaV1, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaV1Bytes))
		if schemaErr != nil {
			schemaErr = gxoerrors.NewConfigError("failed to compile embedded schema 'trialkit_session_v1.0.0.json'", schemaErr)
		}
	})
	return schemaV1, schemaErr
}

// ValidateWithSchema validates a YAML session document against the embedded
// v1.0.0 schema.
func ValidateWithSchema(documentYAML []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	// Not strict: only the shape matters here, unknown fields are caught by
	// the schema and again by the strict struct decode.
	var doc interface{}
	if err := yaml.Unmarshal(documentYAML, &doc); err != nil {
		return gxoerrors.NewConfigError("failed to parse session YAML for schema validation", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return gxoerrors.NewConfigError("schema validation process failed", err)
	}
	if !result.Valid() {
		errMsg := "Session failed JSON schema validation:"
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "(root)" || field == "" {
				field = desc.Context().String()
			}
			errMsg += fmt.Sprintf("\n  - Field '%s': %s", field, desc.Description())
		}
		return gxoerrors.NewValidationError(errMsg, nil)
	}
	return nil
}

// SchemaV1 returns a copy of the embedded session schema.
func SchemaV1() []byte {
	out := make([]byte, len(schemaV1Bytes))
	copy(out, schemaV1Bytes)
	return out
}
