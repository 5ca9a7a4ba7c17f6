package resource

import "fmt"

// MalformedFieldError reports a field that is missing, not hex, or of the wrong width.
// Got is -1 when the input could not be decoded at all.
type MalformedFieldError struct {
	Field string
	Want  int
	Got   int
	Err   error
}

func (e *MalformedFieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed field %s: want %d bytes, got %d", e.Field, e.Want, e.Got)
}

func (e *MalformedFieldError) Unwrap() error { return e.Err }
