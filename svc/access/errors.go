package access

import "errors"

var (
	// ErrDenied is returned by Invoke when the decision did not allow the call.
	ErrDenied = errors.New("access.denied")

	ErrMissingToken = errors.New("access.missing_token")
	ErrUnknownToken = errors.New("access.unknown_token")
	ErrInvalidToken = errors.New("access.invalid_token_entry")
)
