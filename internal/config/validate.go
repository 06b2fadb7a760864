package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/adamancini/hotswap/internal/launch"
)

// ValidationError represents a config file validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config file for invalid values. All problems are
// reported together.
func Validate(f *File) error {
	var result *multierror.Error

	if _, err := f.Mode(); err != nil {
		result = multierror.Append(result, ValidationError{Field: "update_mode", Message: err.Error()})
	}

	if d, err := f.Timeout(); err != nil {
		result = multierror.Append(result, ValidationError{
			Field:   "termination_timeout",
			Message: fmt.Sprintf("invalid duration %q", f.TerminationTimeout),
		})
	} else if d < 0 {
		result = multierror.Append(result, ValidationError{
			Field:   "termination_timeout",
			Message: "must not be negative",
		})
	}

	if f.SelfPattern != "" {
		if _, err := regexp.Compile(f.SelfPattern); err != nil {
			result = multierror.Append(result, ValidationError{Field: "self_pattern", Message: err.Error()})
		}
	}

	for _, a := range []struct{ field, args string }{
		{"launch_args", f.LaunchArgs},
		{"no_args_launch_args", f.NoArgsLaunchArgs},
	} {
		if _, err := launch.SplitArgs(a.args); err != nil {
			result = multierror.Append(result, ValidationError{Field: a.field, Message: err.Error()})
		}
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = formatErrors
	return result.ErrorOrNil()
}

func formatErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return "validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}
