// Package errors carries an HTTP status and field details alongside an error
// so handlers can return it and have it rendered as JSON.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jdholdren/matsubo/internal/matsubo"
)

// Error is what the operator API renders for a failed request.
type Error struct {
	Status  int
	Err     error // The error this wraps
	Details []Detail
}

type Detail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Err)
	}
	return fmt.Sprintf("%d: %s, details: %v", e.Status, e.Err, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type transport struct {
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
	Status  int      `json:"status"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	msg := http.StatusText(e.Status)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(transport{
		Message: msg,
		Details: e.Details,
		Status:  e.Status,
	})
}

func (e *Error) UnmarshalJSON(byts []byte) error {
	t := transport{}
	if err := json.Unmarshal(byts, &t); err != nil {
		return err
	}

	e.Err = errors.New(t.Message)
	e.Details = t.Details
	e.Status = t.Status
	return nil
}

// E builds an Error from its arguments: a string or error becomes the wrapped
// error, an int the status, and details are appended. Status defaults to 500.
func E(args ...any) *Error {
	ret := &Error{
		Status: http.StatusInternalServerError,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		case Detail:
			ret.Details = append(ret.Details, arg)
		case []Detail:
			ret.Details = append(ret.Details, arg...)
		}
	}

	return ret
}

// From coerces err into an Error. Errors that already are one pass through,
// a missing record is a 404 and everything else is an opaque 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr
	}
	if errors.Is(err, matsubo.ErrNotFound) {
		return E(http.StatusNotFound, "not found")
	}

	return E(http.StatusInternalServerError, "internal server error")
}
