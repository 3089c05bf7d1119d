package extract

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDate        = errors.New("malformed date")
	ErrMalformedReadingTime = errors.New("malformed reading time")
)

// FieldError reports a page that could not be extracted because one field
// failed to parse.
type FieldError struct {
	URL   string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %s: %v", e.URL, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
