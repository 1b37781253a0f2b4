package constants

import "errors"

// Terminal sync errors surfaced to the API layer. Everything else is
// absorbed inside a run and reported through counts on the sync log.
var (
	ErrCredentialUnavailable = errors.New("credential unavailable: connection missing, inactive, or refresh failed")
	ErrSyncInProgress        = errors.New("sync already in progress for this user and entity type")
	ErrConnectionNotFound    = errors.New("no upstream connection for user")
)

// Provider error codes
const (
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamRejected    = "UPSTREAM_REJECTED"
	ErrCodeInvalidDataFormat   = "INVALID_DATA_FORMAT"
	ErrCodeTokenEndpoint       = "TOKEN_ENDPOINT_ERROR"
)
