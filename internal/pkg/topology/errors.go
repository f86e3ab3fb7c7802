package topology

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a malformed or inconsistent topology description.
// It is fatal to the run.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Component, e.Reason)
}

func configErr(component string, format string, a ...interface{}) error {
	return &ConfigurationError{Component: component, Reason: fmt.Sprintf(format, a...)}
}

// GraphCycleError reports a cycle along the power-flow edges. Remaining holds
// the components that could not be ordered, in declaration order.
type GraphCycleError struct {
	Remaining []string
}

func (e *GraphCycleError) Error() string {
	return fmt.Sprintf("power-flow graph contains a cycle through: %s", strings.Join(e.Remaining, ", "))
}
