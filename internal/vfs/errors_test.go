package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swftpgo/swftpgo/internal/swiftclient"
)

func TestClassifyBackendErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{swiftclient.ErrNotFound, KindNotFound},
		{swiftclient.ErrConflict, KindConflict},
		{swiftclient.ErrUnauthenticated, KindUnAuthenticated},
		{swiftclient.ErrUnauthorized, KindUnAuthorized},
	}

	for _, c := range cases {
		verr := classifyBackendError("/x", c.err)
		assert.Equal(t, c.kind, verr.Kind)
	}
}

func TestIsNotFoundAndIsConflictHelpers(t *testing.T) {
	nf := classifyBackendError("/x", swiftclient.ErrNotFound)
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsConflict(nf))

	cf := classifyBackendError("/x", swiftclient.ErrConflict)
	assert.True(t, IsConflict(cf))
	assert.False(t, IsNotFound(cf))
}
