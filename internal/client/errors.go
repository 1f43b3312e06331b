package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindTransport means no response was received (network failure, timeout, cancellation).
	KindTransport Kind = iota + 1
	// KindUnauthorized means the server rejected the credential.
	KindUnauthorized
	// KindRejected means the server refused the request as invalid or conflicting,
	// for example a duplicate vote.
	KindRejected
	// KindUnexpected covers every other failure, including undecodable responses.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindRejected:
		return "rejected"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Error is returned by every Client operation that fails.
type Error struct {
	Op     string // operation, e.g. "cast vote"
	Kind   Kind
	Status int    // HTTP status, 0 for transport failures
	Detail string // server-provided explanation, if any
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch {
	case e.Status != 0:
		fmt.Fprintf(&b, "%s (%d %s)", e.Kind, e.Status, http.StatusText(e.Status))
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// Message converts err into a short message suitable for showing to a user.
func Message(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Kind {
	case KindTransport:
		return "could not reach the voting service; check the API URL and your connection"
	case KindUnauthorized:
		if apiErr.Detail != "" {
			return "not authorized: " + apiErr.Detail
		}
		return "not authorized; run `peervote login` first"
	case KindRejected:
		if apiErr.Detail != "" {
			return "request rejected: " + apiErr.Detail
		}
		return "request rejected by the server"
	default:
		return "something went wrong: " + apiErr.Error()
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindRejected
	default:
		return KindUnexpected
	}
}

const maxDetailLen = 200

// parseDetail extracts a human-readable explanation from an error body.
// It understands {"detail": "..."}, {"error": {"message": "..."}} and
// field-error maps such as {"email": ["This field is required."]}.
func parseDetail(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return truncate(strings.TrimSpace(string(body)))
	}

	if raw, ok := obj["detail"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return truncate(s)
		}
	}
	if raw, ok := obj["error"]; ok {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Message != "" {
			return truncate(e.Message)
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		var msgs []string
		if json.Unmarshal(obj[k], &msgs) != nil {
			continue
		}
		if k == "non_field_errors" {
			parts = append(parts, strings.Join(msgs, " "))
		} else {
			parts = append(parts, k+": "+strings.Join(msgs, " "))
		}
	}
	return truncate(strings.Join(parts, "; "))
}

func truncate(s string) string {
	if len(s) > maxDetailLen {
		n := maxDetailLen
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		return s[:n] + "..."
	}
	return s
}
