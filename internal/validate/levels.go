// SPDX-License-Identifier: MIT
package validate

import (
	"slices"
	"strings"
)

// LogLevels lists the level names accepted by the logger.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ParseLogLevel normalises s and returns it when the logger knows the level.
func ParseLogLevel(s string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(s))
	if slices.Contains(LogLevels, level) {
		return level, nil
	}
	return "", Error{
		Field:   "logLevel",
		Value:   s,
		Message: "must be one of " + strings.Join(LogLevels, ", "),
	}
}

// LogLevel records an error when value is not a known log level.
func (v *Validator) LogLevel(field, value string) {
	if _, err := ParseLogLevel(value); err != nil {
		v.AddError(field, "must be one of "+strings.Join(LogLevels, ", "), value)
	}
}
