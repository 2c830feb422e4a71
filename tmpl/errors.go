package tmpl

import "errors"

var (
	// ErrSyntax is returned by Parse for templates that can't be compiled.
	ErrSyntax = errors.New("template syntax error")
	// ErrEval is returned when rendering a compiled template fails.
	ErrEval = errors.New("template evaluation error")
)
