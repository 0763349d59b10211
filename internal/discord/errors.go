package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// ErrorKind categorizes REST failures so callers can decide whether to retry.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized" // 401, bad bot token
	KindForbidden    ErrorKind = "forbidden"    // 403, missing permission
	KindNotFound     ErrorKind = "not_found"    // 404, unknown message/channel/webhook
	KindRateLimit    ErrorKind = "rate_limit"   // 429
	KindServer       ErrorKind = "server"       // 5xx
	KindValidation   ErrorKind = "validation"   // 400, rejected payload
	KindTimeout      ErrorKind = "timeout"
	KindUnknown      ErrorKind = "unknown"
)

// JSON error codes worth naming.
const (
	CodeUnknownMessage      = 10008
	CodeUnknownInteraction  = 10062
	CodeAlreadyAcknowledged = 40060
	CodeInvalidWebhookToken = 50027
	CodeInvalidFormBody     = 50035
)

// APIError is a classified REST failure.
type APIError struct {
	Kind      ErrorKind
	Status    int
	Code      int
	Message   string
	Retryable bool
	Err       error
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("discord %s (status %d, code %d): %s", e.Kind, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("discord %s (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// ClassifyError turns a discordgo error into an *APIError. Errors that are
// already classified are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &APIError{Kind: KindTimeout, Message: err.Error(), Retryable: true, Err: err}
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{Kind: KindRateLimit, Status: http.StatusTooManyRequests, Message: err.Error(), Retryable: true, Err: err}
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return &APIError{Kind: KindUnknown, Message: err.Error(), Err: err}
	}

	e := &APIError{Status: restErr.Response.StatusCode, Message: string(restErr.ResponseBody), Err: err}
	if restErr.Message != nil {
		e.Code = restErr.Message.Code
		e.Message = restErr.Message.Message
	}
	switch s := e.Status; {
	case s == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case s == http.StatusForbidden:
		e.Kind = KindForbidden
	case s == http.StatusNotFound:
		e.Kind = KindNotFound
	case s == http.StatusTooManyRequests:
		e.Kind, e.Retryable = KindRateLimit, true
	case s >= 500:
		e.Kind, e.Retryable = KindServer, true
	case s == http.StatusBadRequest:
		e.Kind = KindValidation
	default:
		e.Kind = KindUnknown
	}
	return e
}

// IsKind reports whether err is an *APIError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var e *APIError
	return errors.As(err, &e) && e.Kind == k
}

// IsCode reports whether err carries the Discord JSON error code.
func IsCode(err error, code int) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == code
}

// IsRetryable reports whether the failed call may succeed when repeated.
func IsRetryable(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Retryable
}
