package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoToken is returned by authenticated calls made without a bearer token.
// Nothing is sent over the network in that case.
var ErrNoToken = errors.New("not authenticated")

// Error is a non-2xx response from the API.
type Error struct {
	// Status is the HTTP status code.
	Status int
	// Message is the human readable reason extracted from the body, if any.
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: status %d", e.Status)
	}
	return fmt.Sprintf("server error: status %d: %s", e.Status, e.Message)
}

// MessageOf returns the server supplied message carried by err, or fallback
// when err is not an API error or the server said nothing useful.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// errorMessage extracts a message from an error body. JSON bodies are
// searched for "message" then "error"; anything else is used as text.
func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}
	return text
}
