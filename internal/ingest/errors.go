package ingest

import "errors"

var (
	ErrUnsupportedPlatform     = errors.New("invalid url")
	ErrURLAlreadyRegistered    = errors.New("URL already registered.")
	ErrUnknownValidatorRole    = errors.New("unknown validator role")
	ErrInvalidTransition       = errors.New("feed status does not allow this action")
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")
	ErrForbidden               = errors.New("not allowed to access this feed")
)
