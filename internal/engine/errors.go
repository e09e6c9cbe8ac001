package engine

import (
	"fmt"
	"regexp"
	"strconv"
)

var numericID = regexp.MustCompile(`^[0-9]+$`)

// ValidationError reports operator input rejected before any request is made.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("invalid %s %q: must be a positive integer", e.Field, e.Value)
}

// ParseID validates a numeric workflow or run id.
func ParseID(field, value string) (int64, error) {
	if !numericID.MatchString(value) {
		return 0, &ValidationError{Field: field, Value: value}
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Value: value}
	}
	return id, nil
}
