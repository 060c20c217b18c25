package swiftclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusNoContent, nil},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthenticated},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusConflict, ErrConflict},
		{http.StatusMovedPermanently, ErrRedirect},
		{http.StatusInternalServerError, ErrRequest},
	}

	for _, tc := range cases {
		got := classifyStatus(tc.code)
		if tc.want == nil {
			assert.NoError(t, got)
			continue
		}

		assert.ErrorIs(t, got, tc.want)
	}
}

func TestIsAuthExpired(t *testing.T) {
	assert.True(t, isAuthExpired(http.StatusUnauthorized))
	assert.True(t, isAuthExpired(http.StatusForbidden))
	assert.False(t, isAuthExpired(http.StatusNotFound))
}

func TestIsRetryableTransient(t *testing.T) {
	assert.True(t, isRetryableTransient(http.StatusServiceUnavailable))
	assert.True(t, isRetryableTransient(http.StatusTooManyRequests))
	assert.False(t, isRetryableTransient(http.StatusNotFound))
	assert.False(t, isRetryableTransient(http.StatusConflict))
}
