package types

import (
	"errors"
	"fmt"
)

// Error classes shared by every package. Match them with errors.Is.
var (
	// ErrConfiguration is fatal: the default font is missing, so no text can
	// ever be rendered.
	ErrConfiguration = errors.New("configuration error")

	// ErrInput marks malformed image bytes, non-positive dimensions or an
	// annotation with no drawable area.
	ErrInput = errors.New("input error")

	// ErrRender marks an unexpected failure while drawing a box. It aborts
	// the whole render call.
	ErrRender = errors.New("render failure")
)

// InputError rejects a single annotation. Index is -1 when the error is not
// tied to an annotation.
type InputError struct {
	Index  int
	Reason string
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("input error: %s", e.Reason)
	}
	return fmt.Sprintf("input error: annotation %d: %s", e.Index, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInput }
