package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidPassword     = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidRegistration = fmt.Errorf("invalid registration request")
	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
	ErrUnauthenticated     = fmt.Errorf("authentication required")

	ErrEmptyContent       = fmt.Errorf("message content is empty")
	ErrContentTooLong     = fmt.Errorf("message content is too long")
	ErrInvalidMessageType = fmt.Errorf("invalid message type")
	ErrInvalidImageURL    = fmt.Errorf("image content must be an absolute URL")
	ErrUnknownReceiver    = fmt.Errorf("receiver does not exist")
	ErrSelfConversation   = fmt.Errorf("sender and receiver must differ")

	ErrInvalidChannel     = fmt.Errorf("invalid channel name")
	ErrForbiddenChannel   = fmt.Errorf("channel does not include the current user")
	ErrSubscriptionClosed = fmt.Errorf("subscription is closed")

	ErrNotAnImage     = fmt.Errorf("uploaded file is not an image")
	ErrUploadTooLarge = fmt.Errorf("uploaded file is too large")
	ErrUploadDisabled = fmt.Errorf("hosted upload signing is not configured")
	ErrInvalidPayload = fmt.Errorf("invalid payload")
)

// HTTPStatus maps a domain error to the status code returned by the API.
// Unknown errors are internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case is(err, ErrInvalidCredentials, ErrUnauthenticated):
		return http.StatusUnauthorized
	case is(err, ErrForbiddenChannel):
		return http.StatusForbidden
	case is(err, ErrUserNotFound, ErrUnknownReceiver):
		return http.StatusNotFound
	case is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case is(err, ErrNotAnImage):
		return http.StatusUnsupportedMediaType
	case is(err, ErrUploadDisabled):
		return http.StatusServiceUnavailable
	case is(err,
		ErrInvalidPassword, ErrInvalidRegistration, ErrEmptyContent, ErrContentTooLong,
		ErrInvalidMessageType, ErrInvalidImageURL, ErrSelfConversation,
		ErrInvalidChannel, ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType is the snake_case error kind written in API responses.
func ErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized_error"
	case http.StatusForbidden:
		return "forbidden_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusConflict:
		return "conflict_error"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large_error"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_error"
	case http.StatusServiceUnavailable:
		return "unavailable_error"
	default:
		return "internal_error"
	}
}

func is(err error, targets ...error) bool {
	for _, target := range targets {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}
