package viewer

import (
	"errors"
	"fmt"
)

// ErrNoDocument is returned by operations that need a loaded document.
var ErrNoDocument = errors.New("no document loaded")

// ErrNoResults is returned by result navigation before a successful search.
var ErrNoResults = errors.New("no search results to navigate")

// InputError reports invalid caller input: a bad file, a malformed color,
// or an empty search term. The controller state is unchanged.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid input: %s", e.Msg)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NoMatchError reports a search that completed with zero matches. Result
// navigation is disabled rather than left pointing at a prior search.
type NoMatchError struct {
	Term string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no matches found for %q", e.Term)
}
