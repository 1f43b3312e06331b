package client

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/peervote/internal/session"
)

// authTransport attaches the session credential to every outgoing request for
// the API origin. Requests pass through without it when the session holds no
// token or the request goes to another host; the server decides whether the
// call needs one.
type authTransport struct {
	base      http.RoundTripper
	session   session.Session
	scheme    string
	origin    *url.URL
	userAgent string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A RoundTripper must not modify the caller's request.
	req = req.Clone(req.Context())

	if token, ok := t.session.Get(); ok && (t.origin == nil || sameHost(req.URL, t.origin)) {
		req.Header.Set("Authorization", t.scheme+" "+token)
	}
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	return t.base.RoundTrip(req)
}
