package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/posebridge/internal/timeutil"
)

type fakeConn struct {
	sent   [][]byte
	closed int
}

func (c *fakeConn) Send(data []byte) error {
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

type fakeTransport struct {
	accept  AcceptFunc
	sinks   map[string]Sink
	conns   map[string]*fakeConn
	dialErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sinks: map[string]Sink{}, conns: map[string]*fakeConn{}}
}

func (t *fakeTransport) Dial(_ context.Context, target string, sink Sink) (Conn, error) {
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	c := &fakeConn{}
	t.sinks[target] = sink
	t.conns[target] = c
	return c, nil
}

func (t *fakeTransport) Listen(accept AcceptFunc) {
	t.accept = accept
}

// harness queues posted events and lets the test drain them, like the loop.
type harness struct {
	tr      *fakeTransport
	clock   *timeutil.MockClock
	m       *Manager
	queue   []Event
	changes []StateChange
	msgs    []Message
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		tr:    newFakeTransport(),
		clock: timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	h.m = NewManager(h.tr, func(ev Event) { h.queue = append(h.queue, ev) }, Options{
		ConnectTimeout: timeout,
		Clock:          h.clock,
	})
	h.m.OnState(func(c StateChange) { h.changes = append(h.changes, c) })
	h.m.OnMessage(func(m Message) { h.msgs = append(h.msgs, m) })
	return h
}

func (h *harness) drain() {
	for len(h.queue) > 0 {
		ev := h.queue[0]
		h.queue = h.queue[1:]
		h.m.Dispatch(ev)
	}
}

type transition struct {
	ConnID uint64
	From   State
	To     State
}

func (h *harness) transitions() []transition {
	out := make([]transition, 0, len(h.changes))
	for _, c := range h.changes {
		out = append(out, transition{c.ConnID, c.From, c.To})
	}
	return out
}

func TestManager_ConnectOpenClose(t *testing.T) {
	h := newHarness(t, 0)

	c, err := h.m.Connect(context.Background(), "  room-tracker ")
	require.NoError(t, err)
	assert.Equal(t, "room-tracker", c.Remote)
	assert.Equal(t, Connecting, h.m.State())

	require.ErrorIs(t, h.m.Send([]byte("x")), ErrNotOpen)

	h.tr.sinks["room-tracker"].Opened()
	h.drain()
	assert.Equal(t, Open, h.m.State())

	require.NoError(t, h.m.Send([]byte("pose")))
	assert.Equal(t, [][]byte{[]byte("pose")}, h.tr.conns["room-tracker"].sent)

	h.tr.sinks["room-tracker"].Message([]byte("hello"), true)
	h.drain()
	require.Len(t, h.msgs, 1)
	assert.True(t, h.msgs[0].IsString)

	h.tr.sinks["room-tracker"].Closed()
	h.drain()

	want := []transition{
		{1, Idle, Connecting},
		{1, Connecting, Open},
		{1, Open, Closed},
	}
	if diff := cmp.Diff(want, h.transitions()); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, h.m.Current())
	assert.Equal(t, 1, h.tr.conns["room-tracker"].closed)
}

func TestManager_EmptyTarget(t *testing.T) {
	h := newHarness(t, 0)
	_, err := h.m.Connect(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyTarget)
	assert.Empty(t, h.changes)
}

func TestManager_DialFailure(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		h := newHarness(t, 0)
		h.tr.dialErr = ErrNoBroker

		_, err := h.m.Connect(context.Background(), "x")
		require.Error(t, err)
		reason, ok := ReasonOf(err)
		require.True(t, ok)
		assert.Equal(t, ReasonBrokerError, reason)
		assert.ErrorIs(t, err, ErrNoBroker)
		assert.Equal(t, Errored, h.m.State())
	})

	t.Run("unreachable passes through", func(t *testing.T) {
		h := newHarness(t, 0)
		h.tr.dialErr = NewConnectError("x", ReasonUnreachable, nil)

		_, err := h.m.Connect(context.Background(), "x")
		reason, _ := ReasonOf(err)
		assert.Equal(t, ReasonUnreachable, reason)
	})

	t.Run("deadline", func(t *testing.T) {
		h := newHarness(t, 0)
		h.tr.dialErr = context.DeadlineExceeded

		_, err := h.m.Connect(context.Background(), "x")
		reason, _ := ReasonOf(err)
		assert.Equal(t, ReasonTimeout, reason)
	})
}

func TestManager_ReplaceEmitsOldTerminalFirst(t *testing.T) {
	h := newHarness(t, 0)

	_, err := h.m.Connect(context.Background(), "a")
	require.NoError(t, err)
	h.tr.sinks["a"].Opened()
	h.drain()

	_, err = h.m.Connect(context.Background(), "b")
	require.NoError(t, err)

	// late events from the replaced connection must be ignored
	h.tr.sinks["a"].Message([]byte("late"), false)
	h.tr.sinks["a"].Failed(errors.New("boom"))
	h.tr.sinks["b"].Opened()
	h.drain()

	want := []transition{
		{1, Idle, Connecting},
		{1, Connecting, Open},
		{1, Open, Closed},
		{2, Idle, Connecting},
		{2, Connecting, Open},
	}
	if diff := cmp.Diff(want, h.transitions()); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, h.msgs)
	assert.Equal(t, 1, h.tr.conns["a"].closed)
	assert.Equal(t, "b", h.m.Current().Remote)
}

func TestManager_ExactlyOneTerminal(t *testing.T) {
	h := newHarness(t, 0)

	_, err := h.m.Connect(context.Background(), "a")
	require.NoError(t, err)
	sink := h.tr.sinks["a"]
	sink.Opened()
	sink.Failed(errors.New("ice failed"))
	sink.Closed()
	sink.Opened()
	h.drain()
	h.m.Close()

	terminal := 0
	for _, c := range h.changes {
		if c.To.Terminal() {
			terminal++
			assert.Equal(t, Errored, c.To)
			assert.EqualError(t, c.Err, "ice failed")
		}
	}
	assert.Equal(t, 1, terminal)
	assert.Equal(t, Errored, h.m.State())
}

func TestManager_ConnectTimeout(t *testing.T) {
	h := newHarness(t, 5*time.Second)

	_, err := h.m.Connect(context.Background(), "a")
	require.NoError(t, err)

	h.clock.Advance(5 * time.Second)
	h.m.Tick(h.clock.Now())
	assert.Equal(t, Connecting, h.m.State())

	h.clock.Advance(time.Millisecond)
	h.m.Tick(h.clock.Now())
	assert.Equal(t, Errored, h.m.State())

	last := h.changes[len(h.changes)-1]
	reason, ok := ReasonOf(last.Err)
	require.True(t, ok)
	assert.Equal(t, ReasonTimeout, reason)

	// an open after the timeout belongs to a dead connection
	h.tr.sinks["a"].Opened()
	h.drain()
	assert.Equal(t, Errored, h.m.State())
}

func TestManager_TimeoutIgnoresOpen(t *testing.T) {
	h := newHarness(t, time.Second)

	_, err := h.m.Connect(context.Background(), "a")
	require.NoError(t, err)
	h.tr.sinks["a"].Opened()
	h.drain()

	h.clock.Advance(time.Minute)
	h.m.Tick(h.clock.Now())
	assert.Equal(t, Open, h.m.State())
}

func TestManager_Inbound(t *testing.T) {
	h := newHarness(t, 0)
	var inbound []*Connection
	h.m.OnInbound(func(c *Connection) { inbound = append(inbound, c) })

	first := &fakeConn{}
	sink1 := h.tr.accept("viewer-1", first)
	sink1.Opened()
	h.drain()

	require.Len(t, inbound, 1)
	assert.Equal(t, "viewer-1", inbound[0].Remote)
	assert.True(t, inbound[0].Inbound)
	assert.Equal(t, Open, h.m.State())

	second := &fakeConn{}
	sink2 := h.tr.accept("viewer-2", second)
	sink2.Opened()
	sink1.Message([]byte("stale"), false)
	h.drain()

	require.Len(t, inbound, 2)
	assert.Equal(t, 1, first.closed)
	assert.Equal(t, "viewer-2", h.m.Current().Remote)
	assert.Empty(t, h.msgs)

	want := []transition{
		{1, Idle, Connecting},
		{1, Connecting, Open},
		{1, Open, Closed},
		{2, Idle, Connecting},
		{2, Connecting, Open},
	}
	if diff := cmp.Diff(want, h.transitions()); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_MessagesOnlyWhenOpen(t *testing.T) {
	h := newHarness(t, 0)

	_, err := h.m.Connect(context.Background(), "a")
	require.NoError(t, err)
	h.tr.sinks["a"].Message([]byte("early"), false)
	h.drain()
	assert.Empty(t, h.msgs)
}

func TestTrackerIdentity(t *testing.T) {
	id, err := TrackerIdentity("  kitchen ")
	require.NoError(t, err)
	assert.Equal(t, "kitchen-tracker", id)

	_, err = TrackerIdentity(" ")
	assert.ErrorIs(t, err, ErrEmptyRoom)
}
