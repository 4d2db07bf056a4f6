package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestGetJSONDecodesBody verifies the happy path and the Accept header.
func TestGetJSONDecodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{"value":42}`)
	}))
	defer server.Close()

	var out struct {
		Value int `json:"value"`
	}
	c := NewHTTPClient()
	require.NoError(t, c.GetJSON(context.Background(), server.URL, &out))
	require.Equal(t, 42, out.Value)
}

// TestGetJSONNon2xxIsError verifies non-2xx statuses surface as soft errors.
func TestGetJSONNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var out map[string]interface{}
	c := NewHTTPClient()
	require.Error(t, c.GetJSON(context.Background(), server.URL, &out))
}

// TestGetJSONTimeout verifies the hard per-request timeout cancels a slow
// response.
func TestGetJSONTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewHTTPClientWithTimeout(50 * time.Millisecond)

	start := time.Now()
	var out map[string]interface{}
	err := c.GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

// TestGetJSONMalformedBody verifies undecodable bodies surface as errors.
func TestGetJSONMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	}))
	defer server.Close()

	var out map[string]interface{}
	c := NewHTTPClient()
	require.Error(t, c.GetJSON(context.Background(), server.URL, &out))
}
