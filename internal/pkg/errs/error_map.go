/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize operator API responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError corresponding to every application error code.
// A zero Status defaults to HTTP 200 with a non-zero business code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Node Registry Business Errors
	ErrFingerprintInvalid: {Code: ErrFingerprintInvalid, Message: "The fingerprint format is not recognized."},
	ErrNodeAlreadyWatched: {Code: ErrNodeAlreadyWatched, Message: "This node is already in the watch list."},
	ErrNodeNotWatched:     {Code: ErrNodeNotWatched, Message: "This node is not in the watch list."},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "User not registered.", Status: http.StatusNotFound},

	// 3xxx: Operator Authentication Errors
	ErrUnauthorized:          {Code: ErrUnauthorized, Message: "Operator authentication required.", Status: http.StatusUnauthorized},
	ErrInvalidOperatorSecret: {Code: ErrInvalidOperatorSecret, Message: "Operator secret rejected.", Status: http.StatusUnauthorized},

	// 4xxx: Directory Service Errors
	ErrRelayNotFound:        {Code: ErrRelayNotFound, Message: "No relay found for fingerprint %s."},
	ErrDirectoryUnavailable: {Code: ErrDirectoryUnavailable, Message: "Directory service unavailable.", Status: http.StatusBadGateway},

	// 5xxx: Internal System Errors
	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageFailed: {Code: ErrStorageFailed, Message: "Storage error. Please try again.", Status: http.StatusInternalServerError},
}
