package models

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationErrors collects save-time field errors, keyed by field name.
type ValidationErrors map[string][]string

// Add appends a message for a field.
func (e ValidationErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Delete removes all errors for a field and reports whether any were present.
func (e ValidationErrors) Delete(field string) bool {
	if _, ok := e[field]; !ok {
		return false
	}
	delete(e, field)
	return true
}

// Any reports whether at least one error remains.
func (e ValidationErrors) Any() bool {
	return len(e) > 0
}

// Messages renders "field message" strings in stable order.
func (e ValidationErrors) Messages() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []string
	for _, field := range fields {
		for _, msg := range e[field] {
			out = append(out, fmt.Sprintf("%s %s", field, msg))
		}
	}
	return out
}

func (e ValidationErrors) Error() string {
	return strings.Join(e.Messages(), "; ")
}
