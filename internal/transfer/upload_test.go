package transfer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadDeliversWritesInOrder(t *testing.T) {
	var received []byte
	done := make(chan struct{})

	u := NewUpload(func(r io.Reader) error {
		defer close(done)
		b, err := io.ReadAll(r)
		received = b
		return err
	}, UploadConfig{})

	ctx := context.Background()
	require.NoError(t, u.Write(ctx, []byte("hello ")))
	require.NoError(t, u.Write(ctx, []byte("world")))
	require.NoError(t, u.Close())

	<-done
	assert.Equal(t, "hello world", string(received))
}

func TestUploadCloseReturnsDestinationError(t *testing.T) {
	wantErr := errors.New("backend rejected upload")

	u := NewUpload(func(r io.Reader) error {
		io.Copy(io.Discard, r)
		return wantErr
	}, UploadConfig{})

	require.NoError(t, u.Write(context.Background(), []byte("x")))
	err := u.Close()
	assert.ErrorIs(t, err, wantErr)
}

func TestUploadBackpressurePausesAtThreshold(t *testing.T) {
	release := make(chan struct{})

	u := NewUpload(func(r io.Reader) error {
		<-release
		_, err := io.Copy(io.Discard, r)
		return err
	}, UploadConfig{MaxBufferWrites: 4, ResumeBufferWrites: 1})

	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, u.Write(ctx, []byte("a")))
	}

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- u.Write(ctx, []byte("b"))
	}()

	select {
	case <-writeDone:
		t.Fatal("write should block once the queue reaches MaxBufferWrites")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-writeDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write never resumed after backend started draining")
	}

	require.NoError(t, u.Close())
}

func TestUploadStopFailsPendingAndFutureWrites(t *testing.T) {
	block := make(chan struct{})

	u := NewUpload(func(r io.Reader) error {
		<-block
		return nil
	}, UploadConfig{})

	require.NoError(t, u.Write(context.Background(), []byte("a")))
	u.Stop()
	close(block)

	err := u.Write(context.Background(), []byte("b"))
	assert.ErrorIs(t, err, errUploadStopped)
}

func TestUploadCloseIsIdempotent(t *testing.T) {
	u := NewUpload(func(r io.Reader) error {
		io.Copy(io.Discard, r)
		return nil
	}, UploadConfig{})

	require.NoError(t, u.Close())
	require.NoError(t, u.Close())
}
