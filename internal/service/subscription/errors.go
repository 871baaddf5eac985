package subscription

import "errors"

// Sentinel errors for the subscription service layer.
var (
	ErrInvalidWorkspace = errors.New("workspace id must be positive")
	ErrEmailRequired    = errors.New("email is required")
	ErrHashRequired     = errors.New("hash is required")
)
