package latitude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// Error codes carried by *Error. Server-side codes are passed through as
// received; the client-side ones are listed here too.
const (
	CodeAIRunError          = "ai_run_error"
	CodeBadRequest          = "bad_request_error"
	CodeUnauthorized        = "unauthorized_error"
	CodeForbidden           = "forbidden_error"
	CodeNotFound            = "not_found_error"
	CodeConflict            = "conflict_error"
	CodeUnprocessableEntity = "unprocessable_entity_error"
	CodeRateLimit           = "rate_limit_error"
	CodeNotImplemented      = "not_implemented_error"
	CodeInternalServerError = "internal_server_error"

	CodeToolNotFound = "tool_not_found"
	CodeCanceled     = "canceled"
	CodeTimeout      = "timeout"
	CodeNetwork      = "network_error"
)

// Error is returned (or handed to an OnError callback) for every failed call,
// whether the failure happened on the initial request or mid-stream.
type Error struct {
	Status  int
	Code    string
	Name    string
	Message string
	Details map[string]any

	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Message != "":
		return "latitude: " + e.Code + ": " + e.Message
	case e.Message != "":
		return "latitude: " + e.Message
	case e.Code != "":
		return "latitude: " + e.Code
	}
	return "latitude: error"
}

func (e *Error) Unwrap() error { return e.Cause }

func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == http.StatusTooManyRequests || e.Code == CodeRateLimit)
}

func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden ||
		e.Code == CodeUnauthorized || e.Code == CodeForbidden)
}

// IsAIRunError reports whether the chain itself failed on the platform.
func IsAIRunError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeAIRunError
}

func IsInternal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeInternalServerError
}

func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func IsCanceled(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeCanceled {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// asError converts any failure into an *Error so both delivery modes see the
// same shape.
func asError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	// Keep the submission failure reachable through errors.As while
	// surfacing the status the platform answered with.
	var tre *ToolResultError
	if errors.As(err, &tre) {
		out := &Error{Status: http.StatusInternalServerError, Code: CodeInternalServerError, Message: tre.Error(), Cause: err}
		var inner *Error
		if errors.As(tre.Cause, &inner) {
			if inner.Status != 0 {
				out.Status = inner.Status
			}
			if inner.Code != "" {
				out.Code = inner.Code
			}
			out.Retryable = inner.Retryable
		}
		return out
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var nst *NoSuchToolError
	if errors.As(err, &nst) {
		return &Error{Status: http.StatusBadRequest, Code: CodeToolNotFound, Message: nst.Error(), Cause: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code, retryable := classifyNetworkErr(err)
		return &Error{Code: code, Message: err.Error(), Retryable: retryable, Cause: err}
	}
	return internalError(err.Error(), err)
}

func internalError(msg string, cause error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalServerError,
		Message: msg,
		Cause:   cause,
	}
}

func aiRunError(ce *ChainError) *Error {
	e := &Error{
		Status:  http.StatusPaymentRequired,
		Code:    CodeAIRunError,
		Message: "chain failed",
	}
	if ce != nil {
		e.Name = ce.Name
		e.Details = ce.Details
		if ce.Message != "" {
			e.Message = ce.Message
		}
	}
	return e
}

type errorResponse struct {
	Name      string         `json:"name"`
	ErrorCode string         `json:"errorCode"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

// decodeErrorResponse reads a non-2xx response into an *Error. The body is
// not closed.
func decodeErrorResponse(resp *http.Response) *Error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	e := &Error{
		Status:    resp.StatusCode,
		Code:      codeForStatus(resp.StatusCode),
		Retryable: resp.StatusCode >= 500,
	}

	var er errorResponse
	if json.Unmarshal(b, &er) == nil && (er.Message != "" || er.ErrorCode != "") {
		if er.ErrorCode != "" {
			e.Code = er.ErrorCode
		}
		e.Name = er.Name
		e.Message = er.Message
		e.Details = er.Details
		return e
	}

	e.Message = strings.TrimSpace(string(b))
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusUnprocessableEntity:
		return CodeUnprocessableEntity
	case http.StatusTooManyRequests:
		return CodeRateLimit
	case http.StatusNotImplemented:
		return CodeNotImplemented
	}
	return CodeInternalServerError
}

func classifyNetworkErr(err error) (code string, retryable bool) {
	if err == nil {
		return CodeNetwork, false
	}
	if errors.Is(err, context.Canceled) {
		return CodeCanceled, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout, true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CodeTimeout, true
	}
	return CodeNetwork, true
}

func networkError(err error) *Error {
	code, retryable := classifyNetworkErr(err)
	return &Error{Code: code, Message: err.Error(), Retryable: retryable, Cause: err}
}

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}
