package webrtc

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/posebridge/internal/broker"
	"github.com/BioHazard786/posebridge/internal/config"
	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/signaling"
)

type recordingSink struct {
	mu     sync.Mutex
	opened chan struct{}
	msgs   chan []byte
	failed chan error
	once   sync.Once
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		opened: make(chan struct{}),
		msgs:   make(chan []byte, 8),
		failed: make(chan error, 1),
	}
}

func (s *recordingSink) Opened()                  { s.once.Do(func() { close(s.opened) }) }
func (s *recordingSink) Message(d []byte, _ bool) { s.msgs <- d }
func (s *recordingSink) Closed()                  {}
func (s *recordingSink) Failed(err error)         { s.failed <- err }

func awaitOpen(t *testing.T, ctx context.Context, sinks ...*recordingSink) {
	t.Helper()
	for _, s := range sinks {
		select {
		case <-s.opened:
		case <-ctx.Done():
			t.Fatal("data channel never opened")
		}
	}
}

func startBroker(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := broker.NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(broker.NewRouter(hub, "test"))
	t.Cleanup(srv.Close)

	return &config.Config{BrokerURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

func TestTransport_PoseRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("negotiates a real peer connection")
	}
	cfg := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	tracker, err := Open(ctx, cfg, "den-tracker")
	require.NoError(t, err)
	defer tracker.Close()
	assert.Equal(t, "den-tracker", tracker.LocalID())

	trackerSink := newRecordingSink()
	accepted := make(chan link.Conn, 1)
	tracker.Listen(func(remote string, conn link.Conn) link.Sink {
		accepted <- conn
		return trackerSink
	})

	viewer, err := Open(ctx, cfg, "")
	require.NoError(t, err)
	defer viewer.Close()
	assert.NotEmpty(t, viewer.LocalID())

	viewerSink := newRecordingSink()
	conn, err := viewer.Dial(ctx, "den-tracker", viewerSink)
	require.NoError(t, err)

	var trackerConn link.Conn
	select {
	case trackerConn = <-accepted:
	case <-ctx.Done():
		t.Fatal("tracker never saw the viewer")
	}

	for _, ch := range []chan struct{}{viewerSink.opened, trackerSink.opened} {
		select {
		case <-ch:
		case <-ctx.Done():
			t.Fatal("data channel never opened")
		}
	}

	require.NoError(t, trackerConn.Send([]byte("pose")))
	select {
	case got := <-viewerSink.msgs:
		assert.Equal(t, []byte("pose"), got)
	case <-ctx.Done():
		t.Fatal("no message")
	}

	assert.NoError(t, conn.Close())
}

func TestTransport_UnknownTarget(t *testing.T) {
	cfg := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	viewer, err := Open(ctx, cfg, "")
	require.NoError(t, err)
	defer viewer.Close()

	sink := newRecordingSink()
	_, err = viewer.Dial(ctx, "nobody-tracker", sink)
	require.NoError(t, err)

	select {
	case err := <-sink.failed:
		reason, ok := link.ReasonOf(err)
		require.True(t, ok)
		assert.Equal(t, link.ReasonUnreachable, reason)
	case <-ctx.Done():
		t.Fatal("expected unreachable failure")
	}
}

func TestOpen_DuplicateIdentity(t *testing.T) {
	cfg := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := Open(ctx, cfg, "den-tracker")
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(ctx, cfg, "den-tracker")
	reason, ok := link.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, link.ReasonBrokerError, reason)
}

func TestDial_AfterClose(t *testing.T) {
	cfg := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := Open(ctx, cfg, "")
	require.NoError(t, err)
	tr.Close()

	_, err = tr.Dial(ctx, "x", newRecordingSink())
	assert.ErrorIs(t, err, link.ErrNoBroker)
}

func TestRoute_OfferQueuedBehindIncoming(t *testing.T) {
	cfg := &config.Config{}

	remote, err := NewPeerConnection(cfg)
	require.NoError(t, err)
	defer remote.Close()
	_, err = remote.CreateDataChannel(ChannelLabel, nil)
	require.NoError(t, err)
	offer, err := remote.CreateOffer(nil)
	require.NoError(t, err)
	require.NoError(t, remote.SetLocalDescription(offer))

	sig, err := signaling.NewSignal("", &signaling.SignalPayload{Type: "offer", SDP: offer.SDP})
	require.NoError(t, err)
	sig.From = "den-viewer"

	// Both messages are already queued when routing starts.
	msgs := make(chan *signaling.Message, 2)
	msgs <- &signaling.Message{Type: signaling.MessageTypeIncoming, From: "den-viewer"}
	msgs <- sig
	close(msgs)
	handler := signaling.NewHandler(msgs)
	handler.Start()

	// Never connected: sends queue up and are discarded on Close.
	client := signaling.NewClient("ws://127.0.0.1:0/ws", nil)
	tr := &Transport{
		cfg:     cfg,
		client:  client,
		handler: handler,
		localID: "den-tracker",
		newPC:   NewPeerConnection,
		peers:   make(map[string]*peer),
	}
	sink := newRecordingSink()
	tr.Listen(func(remote string, conn link.Conn) link.Sink { return sink })

	tr.route()

	p := tr.lookup("den-viewer")
	require.NotNil(t, p, "incoming peer was not created")
	assert.NotNil(t, p.pc.RemoteDescription(), "offer was not applied")
	assert.NotNil(t, p.pc.LocalDescription(), "no answer was created")
	select {
	case err := <-sink.failed:
		t.Fatalf("unexpected failure: %v", err)
	default:
	}

	client.Close()
	tr.Close()
}

func TestTransport_ReconnectSameViewer(t *testing.T) {
	if testing.Short() {
		t.Skip("negotiates real peer connections")
	}
	cfg := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracker, err := Open(ctx, cfg, "den-tracker")
	require.NoError(t, err)
	defer tracker.Close()

	trackerSinks := make(chan *recordingSink, 2)
	tracker.Listen(func(remote string, conn link.Conn) link.Sink {
		s := newRecordingSink()
		trackerSinks <- s
		return s
	})

	viewer, err := Open(ctx, cfg, "den-viewer")
	require.NoError(t, err)
	defer viewer.Close()

	nextTrackerSink := func() *recordingSink {
		select {
		case s := <-trackerSinks:
			return s
		case <-ctx.Done():
			t.Fatal("tracker never saw the viewer")
			return nil
		}
	}

	first := newRecordingSink()
	conn, err := viewer.Dial(ctx, "den-tracker", first)
	require.NoError(t, err)
	awaitOpen(t, ctx, first, nextTrackerSink())

	// The link manager closes the old link before dialling again.
	require.NoError(t, conn.Close())

	second := newRecordingSink()
	_, err = viewer.Dial(ctx, "den-tracker", second)
	require.NoError(t, err)
	trackerSecond := nextTrackerSink()
	awaitOpen(t, ctx, second, trackerSecond)

	trackerConn := tracker.lookup("den-viewer")
	require.NotNil(t, trackerConn)
	require.NoError(t, trackerConn.Send([]byte("pose")))
	select {
	case got := <-second.msgs:
		assert.Equal(t, []byte("pose"), got)
	case err := <-second.failed:
		t.Fatalf("second link failed: %v", err)
	case <-ctx.Done():
		t.Fatal("no message on the second link")
	}
}
