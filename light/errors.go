package light

import "errors"

// Runtime errors never leave the translator; they are logged and the update is dropped.
var (
	// ErrConfig is returned when a light config can't be turned into a translator.
	ErrConfig = errors.New("light: invalid config")
	// ErrParse marks a malformed numeric or sequence payload.
	ErrParse = errors.New("light: malformed payload")
	// ErrTemplate marks a failed value template evaluation.
	ErrTemplate = errors.New("light: template evaluation failed")
	// ErrValidation marks a well-formed payload with a value that is not allowed.
	ErrValidation = errors.New("light: invalid value")
)
