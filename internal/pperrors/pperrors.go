// Package pperrors has errors that carry a message meant for the person
// running a pastprint command alongside the usual technical one.
package pperrors

import (
	"errors"
	"fmt"
)

// userError is an error whose cause can be explained to the user in plain
// terms, such as a file that does not parse or a setting that is not valid.
//
// userError includes a human-readable message to show to an operator as well
// as a typical more technical "error message" style message.
type userError struct {
	msg   string
	human string
	wrap  error
}

func (e *userError) Error() string {
	return e.msg
}

// UserMessage shows the message that should be displayed to the user to
// describe the error.
func (e *userError) UserMessage() string {
	return e.human
}

// Unwrap gives the error that the userError wraps, if it wraps one.
func (e *userError) Unwrap() error {
	return e.wrap
}

// User returns a new error that has both the message to show the user and the
// technical description of the error.
func User(human, technical string) error {
	if technical == "" {
		technical = fmt.Sprintf("got UserError(%q)", human)
	}
	return &userError{
		msg:   technical,
		human: human,
	}
}

// Userf returns a new error that has a message to show to the user and an
// automatically generated Error() description. The arguments given are the
// format string and the arguments to the format string.
func Userf(humanFormat string, a ...interface{}) error {
	return User(fmt.Sprintf(humanFormat, a...), "")
}

// WrapUser returns a new error that has both the message to show the user and
// the technical description of the error, and that wraps the given error. If
// technical is empty, the wrapped error's message is used.
func WrapUser(e error, human, technical string) error {
	if technical == "" {
		if e != nil {
			technical = e.Error()
		} else {
			technical = fmt.Sprintf("got UserError(%q)", human)
		}
	}
	return &userError{
		msg:   technical,
		human: human,
		wrap:  e,
	}
}

// WrapUserf returns a new error that has both the message to show the user
// and the technical description of the wrapped error, and that wraps the
// given error. The arguments given are the error to wrap, then the format
// followed by its arguments.
func WrapUserf(e error, humanFormat string, a ...interface{}) error {
	return WrapUser(e, fmt.Sprintf(humanFormat, a...), "")
}

// UserMessage gets the message to display to the console for the given error.
// If it or any error it wraps is one of the types defined in pperrors, the
// special user message is returned. Otherwise, err.Error() is returned.
func UserMessage(err error) string {
	var uErr *userError
	if errors.As(err, &uErr) {
		return uErr.UserMessage()
	}
	return err.Error()
}
