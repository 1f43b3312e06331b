package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"Already voted"}`, "Already voted"},
		{`{"error":{"code":"UNAUTHORIZED","message":"invalid or expired token"}}`, "invalid or expired token"},
		{`{"password":["This field may not be blank."],"email":["Enter a valid email address."]}`,
			"email: Enter a valid email address.; password: This field may not be blank."},
		{`{"non_field_errors":["Unable to log in."]}`, "Unable to log in."},
		{`plain text`, "plain text"},
		{``, ""},
	}

	for _, tt := range tests {
		if got := parseDetail([]byte(tt.body)); got != tt.want {
			t.Errorf("parseDetail(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestParseDetail_Truncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := parseDetail([]byte(long))
	if len(got) != maxDetailLen+3 {
		t.Errorf("len = %d, want %d", len(got), maxDetailLen+3)
	}
}

func TestParseDetail_TruncatesOnRuneBoundary(t *testing.T) {
	long := "x" + strings.Repeat("é", 300)
	got := parseDetail([]byte(long))
	if !utf8.ValidString(got) {
		t.Errorf("truncated detail is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") || len(got) > maxDetailLen+3 {
		t.Errorf("len = %d, want at most %d with ellipsis", len(got), maxDetailLen+3)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	base := &Error{Op: "cast vote", Kind: KindRejected, Status: 400}
	wrapped := fmt.Errorf("vote on 1: %w", base)

	if KindOf(wrapped) != KindRejected {
		t.Errorf("KindOf = %v, want rejected", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain) != 0")
	}
}

func TestError_String(t *testing.T) {
	err := &Error{Op: "cast vote", Kind: KindRejected, Status: 400, Detail: "Already voted"}
	want := "cast vote: rejected (400 Bad Request): Already voted"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cause := errors.New("connection refused")
	err = &Error{Op: "login", Kind: KindTransport, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&Error{Kind: KindTransport}, "could not reach"},
		{&Error{Kind: KindUnauthorized}, "peervote login"},
		{&Error{Kind: KindUnauthorized, Detail: "expired"}, "not authorized: expired"},
		{&Error{Kind: KindRejected, Detail: "Already voted"}, "request rejected: Already voted"},
		{&Error{Op: "x", Kind: KindUnexpected, Status: 500}, "something went wrong"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := Message(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("Message(%v) = %q, want containing %q", tt.err, got, tt.want)
		}
	}
}
