package gateway

import "errors"

var (
	// ErrInternal is returned when a request could not be built or sent.
	ErrInternal = errors.New("gateway: internal error")

	// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
	ErrInvalidResponse = errors.New("gateway: invalid response")

	// ErrUnexpectedStatus is returned for any non-2xx status.
	ErrUnexpectedStatus = errors.New("gateway: unexpected status")

	// ErrRejected is returned when a service answers 2xx with an error body.
	ErrRejected = errors.New("gateway: request rejected")

	// ErrNotConfigured is returned when the endpoint URL is empty.
	ErrNotConfigured = errors.New("gateway: endpoint not configured")
)
