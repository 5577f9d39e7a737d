package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, BrowserUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Never Let Me Go"}`))
	}))
	defer srv.Close()

	var out struct {
		Title string `json:"title"`
	}
	err := GetJSON(context.Background(), NewClient(), Request{
		URL:     srv.URL,
		Timeout: time.Second,
		Headers: map[string]string{"User-Agent": BrowserUserAgent},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Never Let Me Go", out.Title)
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), NewClient(), Request{URL: srv.URL})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Status)
}

func TestGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := Get(context.Background(), NewClient(), Request{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Essay</h1><p>Body text</p></body></html>`))
	}))
	defer srv.Close()

	doc, err := GetHTML(context.Background(), nil, Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "Essay", doc.Find("h1").First().Text())
}

func TestGetJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), nil, Request{URL: srv.URL}, &out)
	assert.Error(t, err)
}
