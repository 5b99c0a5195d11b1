package config

import (
	"fmt"
	"regexp"

	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
)

var trialNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionStructure checks the rules the JSON schema cannot express.
// It returns every problem found, not just the first.
func ValidateSessionStructure(s *Session, registry plugin.Registry) []error {
	var errs []error

	if len(s.Trials) == 0 {
		errs = append(errs, gxoerrors.NewValidationError("session must contain at least one trial in 'trials' list", nil))
	}
	if s.Pacing != nil && s.Pacing.InterTrialIntervalMs != nil && *s.Pacing.InterTrialIntervalMs < 0 {
		errs = append(errs, gxoerrors.NewValidationError("pacing inter_trial_interval_ms cannot be negative", nil))
	}

	names := make(map[string]bool)
	for i := range s.Trials {
		t := &s.Trials[i]
		display := fmt.Sprintf("trial %d", i)
		if t.Name != "" {
			display = fmt.Sprintf("trial %d ('%s')", i, t.Name)
			if !trialNameRegex.MatchString(t.Name) {
				errs = append(errs, gxoerrors.NewValidationError(fmt.Sprintf("%s: name contains invalid characters (allowed: alphanumeric, underscore, hyphen)", display), nil))
			}
			if names[t.Name] {
				errs = append(errs, gxoerrors.NewValidationError(fmt.Sprintf("%s: duplicate trial name found", display), nil))
			}
			names[t.Name] = true
		}

		if t.Type == "" {
			errs = append(errs, gxoerrors.NewValidationError(fmt.Sprintf("%s: 'type' is required", display), nil))
		} else if registry != nil {
			if _, err := registry.Get(t.Type); err != nil {
				errs = append(errs, gxoerrors.NewValidationError(fmt.Sprintf("%s: unknown trial type '%s'", display, t.Type), err))
			}
		}

		for j, in := range t.Script {
			where := fmt.Sprintf("%s script entry %d", display, j)
			if in.AtMs < 0 {
				errs = append(errs, gxoerrors.NewValidationError(fmt.Sprintf("%s: at_ms cannot be negative", where), nil))
			}
			if (in.Key == "") == (in.Click == "") {
				errs = append(errs, gxoerrors.NewValidationError(fmt.Sprintf("%s: exactly one of 'key' or 'click' is required", where), nil))
			}
		}
	}
	return errs
}
