// Package errchain chains a sequence of named, fallible steps: the
// first step to fail short-circuits the rest and is reported by name.
package errchain

import (
	"fmt"
	"strings"
)

type IfThen struct {
	failedAt ErrArray
}

type ErrArray []error

func (e ErrArray) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	errs := make([]string, len(e))
	for i, err := range e {
		errs[i] = err.Error()
	}
	return "multiple errors: " + strings.Join(errs, ", ")
}

func New() *IfThen {
	return new(IfThen)
}

// Thenf runs f unless a previous step has already failed. On failure,
// the error is wrapped with the step name.
func (it *IfThen) Thenf(name string, f func() error) *IfThen {
	if len(it.failedAt) > 0 {
		return it
	}
	if err := f(); err != nil {
		it.failedAt = append(it.failedAt, fmt.Errorf("%s: %w", name, err))
	}
	return it
}

func (it *IfThen) Then(name string, errs ...error) *IfThen {
	if len(it.failedAt) > 0 {
		return it
	}
	for _, err := range errs {
		if err != nil {
			it.failedAt = append(it.failedAt, fmt.Errorf("%s: %w", name, err))
		}
	}
	return it
}

func (it *IfThen) Err() error {
	if len(it.failedAt) == 0 {
		return nil
	}
	return it.failedAt
}
