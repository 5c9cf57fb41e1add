package web

import "net/http"

// headerTransport sets a fixed set of headers on every outgoing request.
type headerTransport struct {
	Headers map[string]string
	Base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.Headers) > 0 {
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		for k, v := range t.Headers {
			req.Header.Set(k, v)
		}
	}
	return t.Base.RoundTrip(req)
}
