package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/posebridge/internal/link"
)

// memNet connects in-process transports by identity.
type memNet struct {
	mu    sync.Mutex
	peers map[string]*memTransport
}

func newMemNet() *memNet {
	return &memNet{peers: map[string]*memTransport{}}
}

func (n *memNet) transport(id string) *memTransport {
	t := &memTransport{net: n, id: id, sinks: map[string]link.Sink{}}
	n.mu.Lock()
	n.peers[id] = t
	n.mu.Unlock()
	return t
}

type memTransport struct {
	net    *memNet
	id     string
	accept link.AcceptFunc

	mu    sync.Mutex
	sinks map[string]link.Sink
}

func (t *memTransport) Listen(accept link.AcceptFunc) {
	t.accept = accept
}

func (t *memTransport) Dial(_ context.Context, target string, sink link.Sink) (link.Conn, error) {
	t.net.mu.Lock()
	remote, ok := t.net.peers[target]
	t.net.mu.Unlock()
	if !ok {
		return nil, link.NewConnectError(target, link.ReasonUnreachable, nil)
	}

	local := &memConn{}
	far := &memConn{}
	remoteSink := remote.accept(t.id, far)
	local.peer, far.peer = remoteSink, sink

	t.remember(target, sink)
	remote.remember(t.id, remoteSink)

	sink.Opened()
	remoteSink.Opened()
	return local, nil
}

func (t *memTransport) remember(remote string, s link.Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks[remote] = s
}

func (t *memTransport) sink(remote string) link.Sink {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sinks[remote]
}

// memConn delivers sends to the far side's sink.
type memConn struct {
	peer   link.Sink
	closed bool
}

func (c *memConn) Send(data []byte) error {
	c.peer.Message(append([]byte(nil), data...), false)
	return nil
}

func (c *memConn) Close() error {
	if !c.closed {
		c.closed = true
		c.peer.Closed()
	}
	return nil
}

// queue stands in for Loop: events are handled when the test drains them.
type queue struct {
	ch chan any
}

func newQueue() *queue {
	return &queue{ch: make(chan any, 1024)}
}

func (q *queue) post(ev any) bool {
	q.ch <- ev
	return true
}

// drain handles everything queued so far.
func (q *queue) drain(h Handler) {
	for {
		select {
		case ev := <-q.ch:
			h.Handle(ev)
		default:
			return
		}
	}
}

// await handles events until one of type T arrives, which is handled too.
func await[T any](t *testing.T, q *queue, h Handler) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-q.ch:
			h.Handle(ev)
			if got, ok := ev.(T); ok {
				return got
			}
		case <-deadline:
			var zero T
			require.FailNowf(t, "timed out", "waiting for %T", zero)
			return zero
		}
	}
}
