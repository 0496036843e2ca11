package casda_test

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casdaget/internal/casda"
	"casdaget/internal/casda/casdatest"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestClient(t *testing.T, srv *casdatest.Server) *casda.Client {
	t.Helper()
	return casda.NewClient(srv.Environment(), "astro", "secret", testLogger())
}

func newAnonymousClient(t *testing.T, srv *casdatest.Server) *casda.Client {
	t.Helper()
	return casda.NewClient(srv.Environment(), "", "", testLogger())
}

func TestEnvironmentByName(t *testing.T) {
	tests := []struct {
		name      string
		queryBase string
		sodaBase  string
	}{
		{"prod", "https://data.csiro.au/casda_vo_proxy/vo/", "https://casda.csiro.au/casda_data_access/"},
		{"at", "https://daplt.csiro.au/casda_vo_proxy/vo/", "https://casda-at-app.csiro.au/casda_data_access/"},
		{"test", "https://daptst.csiro.au/casda_vo_proxy/vo/", "https://casda-tst-app.csiro.au/casda_data_access/"},
		{"dev", "https://dapdev.csiro.au/casda_vo_proxy/vo/", "https://casda-dev-app.csiro.au/casda_data_access/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := casda.EnvironmentByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, env.Name)
			assert.Equal(t, tt.queryBase, env.QueryBase)
			assert.Equal(t, tt.sodaBase, env.SodaBase)
		})
	}

	t.Run("empty name selects production", func(t *testing.T) {
		env, err := casda.EnvironmentByName("")
		require.NoError(t, err)
		assert.Equal(t, "prod", env.Name)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := casda.EnvironmentByName("staging")
		assert.ErrorContains(t, err, "unknown environment")
	})
}

func TestClientAuthenticated(t *testing.T) {
	srv := casdatest.NewServer(t)
	assert.True(t, newTestClient(t, srv).Authenticated())
	assert.False(t, newAnonymousClient(t, srv).Authenticated())
}

func TestErrorAuthFailure(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusBadRequest, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		err := &casda.Error{Op: "tap query", StatusCode: tt.status}
		assert.Equal(t, tt.want, err.AuthFailure(), "status %d", tt.status)
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := assert.AnError
	err := &casda.Error{Op: "datalink", URL: "http://example.org/links", Message: "request failed", Cause: cause}
	assert.ErrorContains(t, err, "datalink error for http://example.org/links")
	assert.ErrorIs(t, err, cause)

	bare := &casda.Error{Op: "tap query", URL: "http://example.org/tap", Message: "query rejected"}
	assert.Equal(t, "tap query error for http://example.org/tap: query rejected", bare.Error())
}
