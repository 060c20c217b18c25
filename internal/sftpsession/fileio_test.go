package sftpsession

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swftpgo/swftpgo/internal/pathmodel"
	"github.com/swftpgo/swftpgo/internal/swiftclient"
	"github.com/swftpgo/swftpgo/internal/transfer"
	"github.com/swftpgo/swftpgo/internal/vfs"
)

// fakeObjectStore is a minimal one-container in-memory Swift v1 backend,
// just enough to drive readerAt/writerAt end to end without a live
// backend.
type fakeObjectStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{data: make(map[string][]byte)}
}

func (f *fakeObjectStore) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1.0" {
			w.Header().Set("X-Storage-Url", "http://"+r.Host+"/v1/AUTH_test")
			w.Header().Set("X-Auth-Token", "tok")
			w.WriteHeader(http.StatusOK)

			return
		}

		const prefix = "/v1/AUTH_test/bucket/"

		if r.URL.Path == "/v1/AUTH_test/bucket" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		key := r.URL.Path[len(prefix):]

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.data[key] = body
			w.WriteHeader(http.StatusCreated)

		case http.MethodHead:
			body, ok := f.data[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			body, ok := f.data[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)

		default:
			_ = json.NewEncoder(w).Encode(struct{}{})
		}
	}
}

func newTestFilesystem(t *testing.T) *vfs.Filesystem {
	t.Helper()

	store := newFakeObjectStore()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	conn := swiftclient.NewConnection(srv.URL+"/auth/v1.0", "tester", "key", nil, "swftpgo-test/1.0", nil, srv.Client(), nil, nil)
	require.NoError(t, conn.Authenticate(context.Background()))

	return vfs.NewFilesystem(conn, nil, transfer.DownloadConfig{}, transfer.UploadConfig{})
}

func TestWriterAtThenReaderAtRoundTrips(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()
	p := pathmodel.Split("bucket/obj.txt")

	up, err := fs.OpenForWriting(ctx, p)
	require.NoError(t, err)

	w := newWriterAt(ctx, up)

	n, err := w.WriteAt([]byte("hello "), 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = w.WriteAt([]byte("world"), 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, w.Close())

	r := newReaderAt(ctx, fs, p, nil)
	defer r.Close()

	buf := make([]byte, 11)
	n, err = r.ReadAt(buf, 0)
	require.True(t, err == nil || err == io.EOF)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", string(buf))
}

func TestWriterAtRejectsOutOfOrderWrite(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()
	p := pathmodel.Split("bucket/skip.txt")

	up, err := fs.OpenForWriting(ctx, p)
	require.NoError(t, err)

	w := newWriterAt(ctx, up)

	_, err = w.WriteAt([]byte("x"), 5)
	assert.Error(t, err)

	up.Stop()
}

func TestReaderAtReopensOnSeekBack(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()
	p := pathmodel.Split("bucket/seek.txt")

	up, err := fs.OpenForWriting(ctx, p)
	require.NoError(t, err)

	w := newWriterAt(ctx, up)
	_, err = w.WriteAt([]byte("0123456789"), 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := newReaderAt(ctx, fs, p, nil)
	defer r.Close()

	buf := make([]byte, 4)
	n, err := r.ReadAt(buf, 6)
	require.True(t, err == nil || err == io.EOF)
	assert.Equal(t, 4, n)
	assert.Equal(t, "6789", string(buf))

	buf2 := make([]byte, 4)
	n, err = r.ReadAt(buf2, 0)
	require.True(t, err == nil || err == io.EOF)
	assert.Equal(t, 4, n)
	assert.Equal(t, "0123", string(buf2))
}

// fakeDownstreamBuffer lets a test drive the downstream half of the dual
// backpressure check without a real SSH channel.
type fakeDownstreamBuffer struct {
	queued int64
}

func (f *fakeDownstreamBuffer) Queued() int64 { return f.queued }

func TestReaderAtAppliesDownstreamPressure(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()
	p := pathmodel.Split("bucket/pressure.txt")

	up, err := fs.OpenForWriting(ctx, p)
	require.NoError(t, err)

	w := newWriterAt(ctx, up)
	_, err = w.WriteAt([]byte("0123456789"), 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	wb := &fakeDownstreamBuffer{queued: sessionWriteBufferLimit + 1}
	r := newReaderAt(ctx, fs, p, wb)
	defer r.Close()

	buf := make([]byte, 4)
	_, err = r.ReadAt(buf, 0)
	require.True(t, err == nil || err == io.EOF)

	r.mu.Lock()
	dl := r.dl
	r.mu.Unlock()
	require.NotNil(t, dl)

	assert.True(t, dl.Paused(), "backend fetch should pause once the session write buffer exceeds its limit")

	wb.queued = 0

	_, err = r.ReadAt(buf, 4)
	require.True(t, err == nil || err == io.EOF)

	assert.False(t, dl.Paused(), "backend fetch should resume once the session write buffer drains")
}
