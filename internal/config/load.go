package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint is the schemaVersion major this engine reads.
const SupportedSchemaVersionConstraint = "v1"

// LoadSession parses and validates a session document: embedded JSON schema
// first, then a strict decode, the schemaVersion major, and finally the
// structural rules. registry may be nil to skip the plugin type check.
func LoadSession(sessionYAML []byte, filePathHint string, registry plugin.Registry) (*Session, error) {
	if len(bytes.TrimSpace(sessionYAML)) == 0 {
		return nil, gxoerrors.NewConfigError("session content cannot be empty", nil)
	}

	if err := ValidateWithSchema(sessionYAML); err != nil {
		return nil, gxoerrors.NewConfigError(fmt.Sprintf("session '%s' failed schema validation", filePathHint), err)
	}

	var session Session
	if err := yamlUnmarshalStrict(sessionYAML, &session); err != nil {
		return nil, gxoerrors.NewConfigError(fmt.Sprintf("failed to parse session YAML '%s'", filePathHint), err)
	}
	session.FilePath = filePathHint

	if err := checkSchemaVersion(session.SchemaVersion, filePathHint); err != nil {
		return nil, err
	}

	if errs := ValidateSessionStructure(&session, registry); len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, vErr := range errs {
			messages = append(messages, vErr.Error())
		}
		combined := fmt.Sprintf("session '%s' has %d validation error(s):\n- %s",
			filePathHint, len(messages), strings.Join(messages, "\n- "))
		return nil, gxoerrors.NewValidationError(combined, errs[0])
	}
	return &session, nil
}

// LoadSessionFromFile reads a session from disk.
func LoadSessionFromFile(filePath string, registry plugin.Registry) (*Session, []byte, error) {
	if filePath == "" {
		return nil, nil, gxoerrors.NewConfigError("session file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, nil, gxoerrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, nil, gxoerrors.NewConfigError(fmt.Sprintf("failed to read session file '%s'", absPath), err)
	}
	session, err := LoadSession(raw, absPath, registry)
	if err != nil {
		return nil, nil, err
	}
	return session, raw, nil
}

func checkSchemaVersion(version, filePathHint string) error {
	if version == "" {
		return gxoerrors.NewValidationError(fmt.Sprintf("session '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return gxoerrors.NewValidationError(fmt.Sprintf("session '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, version), nil)
	}
	if semver.Major(v) != SupportedSchemaVersionConstraint {
		return gxoerrors.NewValidationError(
			fmt.Sprintf("session '%s' schemaVersion '%s' is not compatible with engine requirement '%s'",
				filePathHint, version, SupportedSchemaVersionConstraint),
			nil,
		)
	}
	return nil
}

// yamlUnmarshalStrict rejects fields the target struct does not declare.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}
