package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// FormErrorKey holds the overall message in SubmissionError.Errors.
const FormErrorKey = "_error"

var (
	// ErrSessionExpired is returned when the access token could not be
	// refreshed and the request was rejected without credentials too.
	ErrSessionExpired = errors.New("session expired")
	ErrMissingToken   = errors.New("missing token")
	ErrNotSignedIn    = errors.New("not signed in")
)

// SubmissionError is a rejected request with field level violations. Errors
// maps property paths to messages; FormErrorKey holds the overall message.
type SubmissionError struct {
	Status int
	Errors map[string]string
}

func (e *SubmissionError) Error() string {
	return e.Errors[FormErrorKey]
}

// Field returns the message for a property path.
func (e *SubmissionError) Field(path string) (string, bool) {
	msg, ok := e.Errors[path]
	return msg, ok
}

// APIError is a rejected request without field level violations.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// NetworkError is a transport failure; no response was received.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type errorBody struct {
	Description string `json:"hydra:description"`
	Violations  []struct {
		PropertyPath string `json:"propertyPath"`
		Message      string `json:"message"`
	} `json:"violations"`
}

// decodeError turns a rejected response into *SubmissionError or *APIError
// and closes its body.
func decodeError(resp *http.Response) error {
	defer resp.Body.Close()

	statusText := http.StatusText(resp.StatusCode)
	if statusText == "" {
		statusText = resp.Status
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{Status: resp.StatusCode, Message: statusText}
	}

	var body errorBody
	if err := json.Unmarshal(b, &body); err != nil {
		return &APIError{Status: resp.StatusCode, Message: statusText}
	}

	msg := body.Description
	if msg == "" {
		msg = statusText
	}

	if body.Violations == nil {
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	errs := make(map[string]string, len(body.Violations)+1)
	errs[FormErrorKey] = msg
	for _, v := range body.Violations {
		errs[v.PropertyPath] = v.Message
	}

	return &SubmissionError{Status: resp.StatusCode, Errors: errs}
}
