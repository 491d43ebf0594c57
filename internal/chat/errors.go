package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrCreateFailed is returned by CreateSession when any step of session creation fails.
	ErrCreateFailed = errors.New("failed to create session")

	// ErrSendFailed is returned by Session.Send when a message could not be written.
	ErrSendFailed = errors.New("failed to send message")

	// ErrStreamClosed is returned once the live update stream has ended.
	// It is the session loop's termination signal.
	ErrStreamClosed = errors.New("update stream closed")

	// ErrLineTooLong is presented when a line of local input exceeds MaxLineBytes.
	// The line is dropped and the session continues.
	ErrLineTooLong = fmt.Errorf("input line longer than %d bytes", MaxLineBytes)
)

// DecodeError reports bytes that are not a valid message encoding.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode message: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode message: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
