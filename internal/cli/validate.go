package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gxo-labs/trialkit/internal/config"
	"github.com/gxo-labs/trialkit/internal/logger"
	"github.com/gxo-labs/trialkit/internal/module"
	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
)

type validateOptions struct {
	sessionPath string
	logLevel    string
}

func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a session file",
		Long: `Validate a session file without running it.

This command checks:
  - YAML syntax and the embedded JSON schema
  - schemaVersion compatibility
  - Trial types against the registered tasks
  - Trial names and scripted input entries

Examples:
  trialkit validate -s session.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateSession(opts)
		},
	}
	cmd.Flags().StringVarP(&opts.sessionPath, "session", "s", "", "Path to the session YAML file (required)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func (a *App) validateSession(opts *validateOptions) error {
	log := logger.NewLogger(opts.logLevel, "text", a.stderr)
	log.Infof("Validating session: %s", opts.sessionPath)

	session, _, err := config.LoadSessionFromFile(opts.sessionPath, module.DefaultStaticRegistryGetter)
	if err != nil {
		var validationErr *gxoerrors.ValidationError
		var configErr *gxoerrors.ConfigError
		switch {
		case errors.As(err, &validationErr):
			log.Errorf("Session validation failed:\n%s", validationErr.Error())
		case errors.As(err, &configErr):
			log.Errorf("Session configuration error:\n%s", configErr.Error())
		default:
			log.Errorf("Failed to load or validate session: %v", err)
		}
		return &ExitError{Code: ExitFailure, Err: err}
	}

	fmt.Fprintf(a.stdout, "Session '%s' is valid: %d trial(s)", session.Name, len(session.Trials))
	if session.HasScripts() {
		fmt.Fprint(a.stdout, ", scripted")
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func (a *App) newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the session file JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.stdout.Write(config.SchemaV1())
			return err
		},
	}
}
