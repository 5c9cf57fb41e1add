package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Hello | Site</title></head><body><h1 class="title">Hello</h1></body></html>`))
	})
	mux.HandleFunc("/echo-agent", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent") + "|" + r.Header.Get("Referer")))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetText(t *testing.T) {
	assert := assert_.New(t)
	srv := newTestServer(t)
	c := New(WithUserAgent("test-agent"), WithHeaders(map[string]string{"Referer": "https://example.com/"}))

	text, err := c.GetText(context.Background(), srv.URL+"/echo-agent")
	assert.NoError(err)
	assert.Equal("test-agent|https://example.com/", text)
}

func TestClient_StatusError(t *testing.T) {
	assert := assert_.New(t)
	srv := newTestServer(t)
	c := New()

	_, err := c.GetText(context.Background(), srv.URL+"/missing")
	var statusErr *StatusError
	if assert.True(errors.As(err, &statusErr)) {
		assert.Equal(http.StatusNotFound, statusErr.StatusCode)
		assert.Equal(srv.URL+"/missing", statusErr.URL)
	}

	var buf bytes.Buffer
	n, err := c.Fetch(context.Background(), srv.URL+"/missing", &buf)
	assert.Error(err)
	assert.Zero(n)
	assert.Zero(buf.Len())
}

func TestClient_Timeout(t *testing.T) {
	c := New(WithTimeout(50 * time.Millisecond))
	srv := newTestServer(t)

	_, err := c.GetText(context.Background(), srv.URL+"/slow")
	assert_.Error(t, err)
}

func TestClient_GetDocument(t *testing.T) {
	require := require_.New(t)
	srv := newTestServer(t)
	c := New()

	doc, err := c.GetDocument(context.Background(), srv.URL+"/page.html")
	require.NoError(err)
	require.Equal("Hello", doc.Find("h1.title").Text())
	require.Equal("Hello | Site", doc.Find("title").Text())
}

// recordingTransport sees each request after the client's headers are applied.
type recordingTransport struct {
	requests []*http.Request
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, req)
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_WithTransport(t *testing.T) {
	assert := assert_.New(t)
	srv := newTestServer(t)
	rt := &recordingTransport{}
	c := New(WithTransport(rt), WithUserAgent("test-agent"))

	text, err := c.GetText(context.Background(), srv.URL+"/echo-agent")
	require_.NoError(t, err)
	assert.Equal("test-agent|", text)
	if assert.Len(rt.requests, 1) {
		assert.Equal(http.MethodGet, rt.requests[0].Method)
		assert.Equal("test-agent", rt.requests[0].Header.Get("User-Agent"))
	}
}
