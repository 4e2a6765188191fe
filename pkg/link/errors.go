package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredit indicates the peer has no room for the payload.
	// Run a handshake cycle to refresh the estimate before retrying.
	ErrNoCredit = errors.New("insufficient credit")
	// ErrNoResponse indicates the peer did not stage a response in time.
	ErrNoResponse = errors.New("no response")
)

// SizeError indicates a payload exceeding the transfer limit.
type SizeError struct {
	Size int
}

// Error implements error.
func (e *SizeError) Error() string {
	return fmt.Sprintf("payload %d bytes exceeds %d", e.Size, MaxPayload)
}
