/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in responses from the operator API.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Node Registry Business Errors
const (
	// ErrFingerprintInvalid indicates that a relay fingerprint failed syntax validation.
	ErrFingerprintInvalid = 2101

	// ErrNodeAlreadyWatched indicates that the fingerprint is already in the user's watch set.
	ErrNodeAlreadyWatched = 2102

	// ErrNodeNotWatched indicates that the fingerprint is not in the user's watch set.
	ErrNodeNotWatched = 2103

	// ErrUserNotFound indicates an operation on a user ID that was never registered.
	ErrUserNotFound = 2104
)

// 3xxx: Operator Authentication Errors
const (
	// ErrUnauthorized indicates a missing or invalid operator token.
	ErrUnauthorized = 3001

	// ErrInvalidOperatorSecret indicates that the presented operator secret was rejected.
	ErrInvalidOperatorSecret = 3002
)

// 4xxx: Directory Service Errors
const (
	// ErrRelayNotFound indicates the directory has no record for a syntactically valid fingerprint.
	ErrRelayNotFound = 4001

	// ErrDirectoryUnavailable indicates a transport, HTTP, or parse failure talking to the directory.
	ErrDirectoryUnavailable = 4002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates a persistence failure in the node registry.
	ErrStorageFailed = 5001
)
