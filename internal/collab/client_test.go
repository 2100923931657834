package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumio/pkg/errors"
)

func TestClientClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusInternalServerError, errors.CollaboratorTransient},
		{http.StatusBadGateway, errors.CollaboratorTransient},
		{http.StatusTooManyRequests, errors.CollaboratorTransient},
		{http.StatusBadRequest, errors.CollaboratorFatal},
		{http.StatusNotFound, errors.CollaboratorFatal},
	}

	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		c := newHTTPClient(ts.URL, "", time.Second)
		_, err := c.getJSON(context.Background(), "/", nil)
		assert.Equal(t, tc.want, err, "status %d", tc.status)
		ts.Close()
	}
}

func TestClientDecodesJSONAndSendsAuth(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"lumio"}`))
	}))
	defer ts.Close()

	c := newHTTPClient(ts.URL, "secret", time.Second)

	var out struct {
		Name string `json:"name"`
	}
	_, err := c.getJSON(context.Background(), "/", &out)
	require.NoError(t, err)
	assert.Equal(t, "lumio", out.Name)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestClientUnavailableWithoutBaseURL(t *testing.T) {
	c := newHTTPClient("", "", time.Second)
	_, err := c.getJSON(context.Background(), "/", nil)
	assert.Equal(t, errors.CollaboratorUnavailable, err)
}

func TestClientNetworkErrorIsTransient(t *testing.T) {
	// 已关闭的端口，连接必然失败
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := newHTTPClient(url, "", 200*time.Millisecond)
	_, err := c.getJSON(context.Background(), "/", nil)
	assert.Equal(t, errors.CollaboratorTransient, err)
}
