package common

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

//
// Base Types
//

type BaseError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"cause,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *BaseError) Unwrap() error {
	return e.Cause
}

func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BaseError) CodeChain() string {
	if e.Cause != nil {
		var be interface{ CodeChain() string }
		if errors.As(e.Cause, &be) {
			return fmt.Sprintf("%s <- %s", e.Code, be.CodeChain())
		}
	}

	return e.Code
}

type ErrorWithStatusCode interface {
	ErrorStatusCode() int
}

type ErrorWithBody interface {
	ErrorResponseBody() interface{}
}

func HasErrorCode(err error, code string) bool {
	for err != nil {
		if ce, ok := err.(interface{ ErrorCode() string }); ok && ce.ErrorCode() == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

func (e *BaseError) ErrorCode() string { return e.Code }

//
// Request Errors
//

const (
	ErrCodeBodyTooLarge = "ErrBodyTooLarge"
	ErrCodeBodyRead     = "ErrBodyRead"
	ErrCodeJsonParse    = "ErrJsonParse"
	ErrCodeJwtDecode    = "ErrJwtDecode"
)

type ErrBodyTooLarge struct{ BaseError }

var NewErrBodyTooLarge = func(maxSize int64) error {
	return &ErrBodyTooLarge{
		BaseError{
			Code: ErrCodeBodyTooLarge,
			Message: fmt.Sprintf(
				"request body exceeds maximum size of %d bytes (%s)",
				maxSize,
				humanize.IBytes(uint64(maxSize)),
			),
			Details: map[string]interface{}{
				"maxSize": maxSize,
			},
		},
	}
}

func (e *ErrBodyTooLarge) ErrorStatusCode() int { return 413 }

func (e *ErrBodyTooLarge) ErrorResponseBody() interface{} {
	return map[string]string{"error": e.Message}
}

func (e *ErrBodyTooLarge) MaxSize() int64 {
	if v, ok := e.Details["maxSize"].(int64); ok {
		return v
	}
	return 0
}

type ErrBodyRead struct{ BaseError }

var NewErrBodyRead = func(cause error) error {
	return &ErrBodyRead{
		BaseError{
			Code:    ErrCodeBodyRead,
			Message: "failed to read request body",
			Cause:   cause,
		},
	}
}

func (e *ErrBodyRead) ErrorStatusCode() int { return 400 }

func (e *ErrBodyRead) ErrorResponseBody() interface{} {
	return map[string]string{"error": e.Error()}
}

type ErrJsonParse struct{ BaseError }

var NewErrJsonParse = func(cause error) error {
	return &ErrJsonParse{
		BaseError{
			Code:    ErrCodeJsonParse,
			Message: "request body declared as json but could not be parsed",
			Cause:   cause,
		},
	}
}

type ErrJwtDecode struct{ BaseError }

var NewErrJwtDecode = func(header string, cause error) error {
	return &ErrJwtDecode{
		BaseError{
			Code:    ErrCodeJwtDecode,
			Message: "could not decode jwt token",
			Cause:   cause,
			Details: map[string]interface{}{
				"header": header,
			},
		},
	}
}

//
// Startup Errors
//

type ErrInvalidConfig struct{ BaseError }

var NewErrInvalidConfig = func(message string) error {
	return &ErrInvalidConfig{
		BaseError{
			Code:    "ErrInvalidConfig",
			Message: message,
		},
	}
}

type ErrListenerFailed struct{ BaseError }

var NewErrListenerFailed = func(scheme string, addr string, cause error) error {
	return &ErrListenerFailed{
		BaseError{
			Code:    "ErrListenerFailed",
			Message: fmt.Sprintf("failed to start %s listener on %s", scheme, addr),
			Cause:   cause,
			Details: map[string]interface{}{
				"scheme": scheme,
				"addr":   addr,
			},
		},
	}
}
