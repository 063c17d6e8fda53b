// internal/extract/errors.go
package extract

import (
	"fmt"
)

// ElementNotFoundError reports that a container or item selector matched
// nothing. It is page-level: the caller may retry or count the page as
// failed, but field-level misses never produce it.
type ElementNotFoundError struct {
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element matches selector %q", e.Selector)
}

// ValidationError reports a record missing one or more required fields.
// The record is dropped and counted; the run continues.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record missing required fields %v", e.Missing)
}
