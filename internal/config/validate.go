package config

import (
	"fmt"
	"strings"
)

// Severity grades a validation Issue.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Issue is one validation finding. Path names the offending option using
// its config file attribute name.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// ValidationError carries the error-severity issues of a rejected
// configuration.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, iss := range e.Issues {
		parts = append(parts, iss.Path+": "+iss.Message)
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Check returns a *ValidationError holding the error-severity issues, or nil
// when there are none.
func Check(issues []Issue) error {
	var errs []Issue
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Issues: errs}
}

// Warnings returns the warn-severity issues.
func Warnings(issues []Issue) []Issue {
	var out []Issue
	for _, iss := range issues {
		if iss.Severity == SeverityWarn {
			out = append(out, iss)
		}
	}
	return out
}
