package template

import "errors"

var (
	// ErrTemplateNotFound indicates the template doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateInactive indicates the template has been retired.
	ErrTemplateInactive = errors.New("template is inactive")
	// ErrInvalidInput indicates invalid template input.
	ErrInvalidInput = errors.New("invalid template input")
)
