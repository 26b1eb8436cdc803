package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoFileProvided            = errors.New("no file provided")
	ErrPayloadTooLarge           = errors.New("payload too large")
	ErrMissingParameter          = errors.New("missing parameter")
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrUpstreamUnavailable       = errors.New("upstream unavailable")
	ErrUpstreamRejected          = errors.New("upstream rejected request")
	ErrUnrecognizedResponseShape = errors.New("unrecognized response shape")
	ErrUnparseableResponse       = errors.New("unparseable response")
	ErrNotFound                  = errors.New("not found")
	ErrTemporary                 = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsCallerError reports whether err was caused by the request rather than by
// the gateway or the analysis service.
func IsCallerError(err error) bool {
	return IsKind(err, ErrNoFileProvided) ||
		IsKind(err, ErrPayloadTooLarge) ||
		IsKind(err, ErrMissingParameter) ||
		IsKind(err, ErrInvalidParameter)
}
