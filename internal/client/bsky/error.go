package bsky

import (
	"fmt"
	"io"
	"net/http"

	go_json "github.com/goccy/go-json"
)

// APIError is a non-2xx XRPC response. Code is the XRPC error name
// (e.g. "ExpiredToken") when the server sent one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("bsky api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("bsky api: %d %s", e.StatusCode, e.Message)
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	if err := go_json.Unmarshal(body, &errResp); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	msg := errResp.Message
	if msg == "" {
		msg = resp.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       errResp.Error,
		Message:    msg,
	}
}
