package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestEndpointsFollowReadiness(t *testing.T) {
	s := New(0)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// Not ready until someone says otherwise.
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/healthz"))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/readyz"))

	s.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz"))
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/readyz"))

	// The turn loop flips the flag back off when the microphone fails.
	s.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/readyz"))
}
