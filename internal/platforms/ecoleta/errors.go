package ecoleta

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

var ErrPointNotFound = errors.New("ecoleta: point not found")

// ValidationError is returned when the backend rejects a request body,
// Keys holds the names of the rejected fields when the backend reports them.
type ValidationError struct {
	Status  int
	Message string
	Keys    []string
}

func (e *ValidationError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("ecoleta: rejected (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf(
		"ecoleta: rejected (%d): %s [%s]",
		e.Status, e.Message, strings.Join(e.Keys, ", "),
	)
}

// ServerError is returned for any other non-2xx response.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ecoleta: server error (%d)", e.Status)
	}
	return fmt.Sprintf("ecoleta: server error (%d): %s", e.Status, e.Body)
}

// the shape of celebrate/joi validation failures
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Validation map[string]struct {
		Keys    []string `json:"keys"`
		Message string   `json:"message"`
	} `json:"validation"`
}

const maxErrorBodyLength = 512

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func responseError(res *resty.Response) error {
	status := res.StatusCode()
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity {
		return &ServerError{Status: status, Body: truncate(res.String(), maxErrorBodyLength)}
	}

	verr := &ValidationError{Status: status, Message: http.StatusText(status)}

	var parsed errorBody
	if json.Unmarshal(res.Body(), &parsed) != nil {
		if text := strings.TrimSpace(res.String()); text != "" {
			verr.Message = text
		}
		return verr
	}
	if parsed.Message != "" {
		verr.Message = parsed.Message
	}

	segments := make([]string, 0, len(parsed.Validation))
	for segment := range parsed.Validation {
		segments = append(segments, segment)
	}
	sort.Strings(segments)
	for _, segment := range segments {
		detail := parsed.Validation[segment]
		verr.Keys = append(verr.Keys, detail.Keys...)
		if detail.Message != "" {
			verr.Message = detail.Message
		}
	}
	return verr
}
