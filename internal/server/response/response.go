// Package response writes the JSON envelope of the development stream
// server. Every JSON endpoint answers {"data": ..., "error": null} on
// success and {"data": null, "error": {...}} on failure.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Response is the envelope written by every JSON endpoint.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// codes maps HTTP status to the envelope error code.
var codes = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusUnauthorized:        "UNAUTHORIZED",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusMethodNotAllowed:    "METHOD_NOT_ALLOWED",
	http.StatusTooManyRequests:     "RATE_LIMITED",
	http.StatusInternalServerError: "INTERNAL_ERROR",
	http.StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
}

// Code returns the envelope error code for status.
func Code(status int) string {
	if c, ok := codes[status]; ok {
		return c
	}
	return "ERROR"
}

// Success wraps data in a success envelope.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail builds an error envelope.
func Fail(code, message, details string) Response {
	return Response{Error: &Error{Code: code, Message: message, Details: details}}
}

// JSON writes resp with status.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are out; an encoding failure cannot be reported
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Accepted writes data with 202. Emit answers with it since delivery to
// the streams happens after the response.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, Success(data))
}

// Fault writes an error envelope whose code is derived from status.
func Fault(w http.ResponseWriter, status int, message, details string) {
	JSON(w, status, Fail(Code(status), message, details))
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, message, details string) {
	Fault(w, http.StatusBadRequest, message, details)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, message, details string) {
	Fault(w, http.StatusUnauthorized, message, details)
}

// MethodNotAllowed writes a 405 naming the rejected method.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	Fault(w, http.StatusMethodNotAllowed, "Method not allowed",
		"Method "+method+" is not supported for this endpoint")
}

// RateLimited writes a 429 asking the client to wait a minute.
func RateLimited(w http.ResponseWriter, message string) {
	w.Header().Set("Retry-After", "60")
	Fault(w, http.StatusTooManyRequests, "Rate limit exceeded", message)
}

// InternalError writes a 500. The cause is never sent to the client.
func InternalError(w http.ResponseWriter, _ error) {
	Fault(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
}

// ServiceUnavailable writes a 503.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Fault(w, http.StatusServiceUnavailable, "Service unavailable", message)
}

// StatusFor picks the HTTP status for a typed error.
func StatusFor(err error) int {
	var resource *errors.ResourceError
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.IsValidationError(err):
		return http.StatusBadRequest
	case errors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errors.As(err, &resource):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFromType writes the response StatusFor picks for err.
func ErrorFromType(w http.ResponseWriter, err error) {
	switch status := StatusFor(err); status {
	case http.StatusInternalServerError:
		InternalError(w, err)
	case http.StatusUnauthorized:
		Unauthorized(w, "Unauthorized", err.Error())
	case http.StatusServiceUnavailable:
		ServiceUnavailable(w, err.Error())
	default:
		Fault(w, status, err.Error(), "")
	}
}
