package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTP_Status(t *testing.T) {
	tests := []struct {
		code    int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusNoContent, false},
		{http.StatusFound, false},
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			srv := statusServer(t, tt.code)
			h := NewHTTP(HTTPConfig{
				Client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
					return http.ErrUseLastResponse
				}},
			})
			defer h.Cleanup(context.Background())

			res, err := h.Check(context.Background(), srv.URL)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrStatus)
				require.Nil(t, res)
				return
			}
			require.NoError(t, err)
			require.Equal(t, HTTPResult{StatusCode: tt.code}, res)
		})
	}
}

func TestHTTP_Unreachable(t *testing.T) {
	srv := statusServer(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	h := NewHTTP(HTTPConfig{})
	_, err := h.Check(context.Background(), url)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStatus)
}

func TestHTTP_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h := NewHTTP(HTTPConfig{Timeout: 20 * time.Millisecond})
	start := time.Now()
	_, err := h.Check(context.Background(), srv.URL)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestHTTP_Header(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Probe")
	}))
	defer srv.Close()

	h := NewHTTP(HTTPConfig{Header: map[string]string{"X-Probe": "copacetic"}})
	_, err := h.Check(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "copacetic", <-got)
}

func TestHTTP_BadURL(t *testing.T) {
	h := NewHTTP(HTTPConfig{})
	_, err := h.Check(context.Background(), "://nope")
	require.Error(t, err)
}

func TestHTTP_CleanupTwice(t *testing.T) {
	h := NewHTTP(HTTPConfig{})
	require.NoError(t, h.Cleanup(context.Background()))
	require.NoError(t, h.Cleanup(context.Background()))
}

func TestHTTP_ErrorsMaskPassword(t *testing.T) {
	failing := statusServer(t, http.StatusInternalServerError)
	closed := statusServer(t, http.StatusOK)
	closed.Close()

	for name, base := range map[string]string{"status": failing.URL, "unreachable": closed.URL} {
		t.Run(name, func(t *testing.T) {
			target := strings.Replace(base, "http://", "http://user:hunter2@", 1)
			h := NewHTTP(HTTPConfig{})
			defer h.Cleanup(context.Background())

			_, err := h.Check(context.Background(), target)
			require.Error(t, err)
			require.NotContains(t, err.Error(), "hunter2")
		})
	}
}
