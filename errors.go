package main

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies fatal errors
type ErrorKind int

const (
	// UnknownError is any error not built by newError
	UnknownError ErrorKind = iota
	// ConfigurationError is an invalid combination of options
	ConfigurationError
	// ParseError is a malformed record in an input
	ParseError
	// ShapeMismatchError is raised when paired inputs differ in record count
	ShapeMismatchError
	// IOError covers unreadable input, unwritable output and decompression failures
	IOError
	// PatternCompileError is an invalid regular expression
	PatternCompileError
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration error"
	case ParseError:
		return "parse error"
	case ShapeMismatchError:
		return "shape mismatch"
	case IOError:
		return "io error"
	case PatternCompileError:
		return "pattern compile error"
	}
	return "error"
}

// Error carries the kind of a fatal error
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

// Cause lets errors.Cause reach the wrapped error
func (e *Error) Cause() error {
	return e.Err
}

// Unwrap as name says
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func newErrorf(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in the cause chain
func KindOf(err error) ErrorKind {
	type causer interface {
		Cause() error
	}

	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return UnknownError
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case ConfigurationError, PatternCompileError:
		return 2
	}
	return 1
}
