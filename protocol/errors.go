package protocol

import "fmt"

// ResponseError reports a response buffer of the wrong size.
type ResponseError struct {
	// Operation is the command whose response was decoded
	Operation string

	// Got is the number of bytes received
	Got int

	// Want is the number of bytes the command returns
	Want int
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: invalid response length: got %d bytes, expected %d", e.Operation, e.Got, e.Want)
}

// IsResponseError returns true if the error is a ResponseError.
func IsResponseError(err error) bool {
	_, ok := err.(*ResponseError)
	return ok
}
