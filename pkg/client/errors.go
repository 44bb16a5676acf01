package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrServerFault           = errors.New("server fault")
	ErrAllEndpointsExhausted = errors.New("all endpoints failed")
	ErrNoContent             = errors.New("no content")
)

// Attempt records one failed POST in the fallback chain. Status is nil when
// no response came back at all.
type Attempt struct {
	URL     string `json:"url"`
	Status  *int   `json:"status"`
	Body    string `json:"body,omitempty"`
	Message string `json:"message"`
}

func (a Attempt) String() string {
	status := "no-response"
	if a.Status != nil {
		status = strconv.Itoa(*a.Status)
	}
	detail := a.Message
	if a.Body != "" {
		detail = a.Body
	}
	return fmt.Sprintf("%s => %s : %s", a.URL, status, detail)
}

func formatAttempts(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, "; ")
}

// ServerError is a 5xx from one endpoint. It stops the fallback chain.
type ServerError struct {
	URL      string
	Status   int
	Body     string
	Attempts []Attempt
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error at %s: %d: %s", e.URL, e.Status, formatAttempts(e.Attempts))
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServerFault
}

// AllEndpointsFailedError lists every non-fatal failure, in the order tried.
type AllEndpointsFailedError struct {
	Attempts []Attempt
}

func (e *AllEndpointsFailedError) Error() string {
	return fmt.Sprintf("all endpoints failed: %s", formatAttempts(e.Attempts))
}

func (e *AllEndpointsFailedError) Is(target error) bool {
	return target == ErrAllEndpointsExhausted
}

// APIError is a failed call to one of the read endpoints. The backend
// sometimes answers 200 with {"error": "..."}; that lands here too.
type APIError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Status, e.Message)
}
