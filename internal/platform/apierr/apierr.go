// Package apierr carries the HTTP status and stable machine-readable code an
// error should surface as, while wrapping the underlying cause for logs.
package apierr

import "fmt"

// Error pairs a response status and code with the wrapped cause. Handlers
// pull it out of an error chain with errors.As to build the response
// envelope; the cause itself never reaches the client.
type Error struct {
	Status int
	Code   string
	Err    error
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	case e.Status != 0:
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

// Unwrap exposes the cause to errors.Is and errors.As chains.
func (e *Error) Unwrap() error { return e.Err }
