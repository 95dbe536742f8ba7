/*
Package errs defines the application error codes and the CustomError type that
carries them to REST clients.
*/
package errs

// 1xxx: request handling
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON request body.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON body.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates a multipart body that could not be read.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates a body above the endpoint's size cap.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the caller exceeded its request budget.
	ErrRateLimitExceeded = 1007
)

// 2xxx: chat
const (
	// ErrHistoryUnavailable indicates the message history could not be read.
	ErrHistoryUnavailable = 2101

	// ErrMessageContentTooLong indicates a message body above the size limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageTypeInvalid indicates a messageType outside text, voice and file.
	ErrMessageTypeInvalid = 2202

	// ErrFileSizeTooLarge indicates an upload above the attachment size limit.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates an upload whose MIME type is not accepted.
	ErrFileTypeInvalid = 2302

	// ErrFileStorageDisabled indicates object storage is not configured.
	ErrFileStorageDisabled = 2303

	// ErrFileNotFound indicates a download key with no stored object.
	ErrFileNotFound = 2304
)

// 3xxx: identity
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3001

	// ErrUserNotFound indicates the token subject has no user row.
	ErrUserNotFound = 3002
)

// 5xxx: internal
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the object storage call failed.
	ErrFileStorageFailed = 5001
)
