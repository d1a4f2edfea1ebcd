package auth

import "errors"

var (
	errMissingToken      = errors.New("missing authorization header")
	errMalformedHeader   = errors.New("malformed authorization header")
	errInvalidToken      = errors.New("invalid or expired token")
	errUnexpectedSigning = errors.New("unexpected signing method")
)
