package sftpsession

import (
	"io"
	"sync"

	"golang.org/x/crypto/ssh"
)

// sessionWriteBufferLimit is the SFTP variant's downstream half of the
// dual-backpressure check (spec.md §4.F's upload_buffer_limit): once more
// than this many bytes are queued for delivery to the client, the backend
// read pauses until the queue drains.
const sessionWriteBufferLimit = 1 << 20

// bufferedWriteChannel wraps an ssh.Channel so outbound SFTP response
// packets are queued into a bounded in-memory buffer and drained to the
// real channel by a background goroutine, instead of blocking the
// pkg/sftp worker synchronously inside Channel.Write. That queue depth is
// exactly the "session write buffer" spec.md §4.F asks the download
// receiver to cross-check: without it, a slow SSH client's flow-control
// window would simply block pkg/sftp's request goroutine with nothing for
// readerAt to observe or react to.
type bufferedWriteChannel struct {
	ssh.Channel

	mu     sync.Mutex
	queue  [][]byte
	queued int64
	closed bool
	err    error
	notify chan struct{}
}

func newBufferedWriteChannel(ch ssh.Channel) *bufferedWriteChannel {
	b := &bufferedWriteChannel{Channel: ch, notify: make(chan struct{}, 1)}
	go b.drain()

	return b
}

// Write queues p for asynchronous delivery; it never blocks on the
// underlying channel.
func (b *bufferedWriteChannel) Write(p []byte) (int, error) {
	b.mu.Lock()

	if b.closed {
		err := b.err
		b.mu.Unlock()

		if err == nil {
			err = io.ErrClosedPipe
		}

		return 0, err
	}

	cp := append([]byte(nil), p...)
	b.queue = append(b.queue, cp)
	b.queued += int64(len(cp))
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}

	return len(p), nil
}

// Queued reports the number of bytes currently buffered awaiting delivery
// to the underlying SSH channel.
func (b *bufferedWriteChannel) Queued() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.queued
}

func (b *bufferedWriteChannel) drain() {
	for {
		b.mu.Lock()

		if len(b.queue) == 0 {
			if b.closed {
				b.mu.Unlock()
				return
			}

			b.mu.Unlock()
			<-b.notify

			continue
		}

		chunk := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		_, err := b.Channel.Write(chunk)

		b.mu.Lock()
		b.queued -= int64(len(chunk))
		if err != nil && b.err == nil {
			b.err = err
			b.closed = true
		}
		b.mu.Unlock()

		if err != nil {
			return
		}
	}
}

// Close stops accepting new writes and closes the underlying channel.
// Already-queued bytes that haven't reached the channel yet are dropped,
// matching the "connection lost" semantics a half-written response would
// get anyway once the channel itself is gone.
func (b *bufferedWriteChannel) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}

	return b.Channel.Close()
}
