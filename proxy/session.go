package proxy

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dialer opens a new connection to the proxy process. Run calls it once
// per connection attempt, including reconnects.
type Dialer func(ctx context.Context) (net.Conn, error)

// ReceiveBroadcastsDelay is how long SetReceiveBroadcasts is held before
// being forwarded to the proxy, so a just-joined player finishes their
// chunk burst before joining broadcast distribution.
const ReceiveBroadcastsDelay = time.Second

// DefaultBackoff is the fixed reconnect delay after a dropped connection.
const DefaultBackoff = 100 * time.Millisecond

// Session owns the long-lived duplex connection to the proxy process,
// reconnecting on drop with a fixed back-off. Run blocks until ctx is
// canceled; Send and Events are safe to use across reconnects (the
// channels survive the underlying net.Conn being replaced).
type Session struct {
	dial    Dialer
	backoff time.Duration
	log     zerolog.Logger

	events chan ProxyToServer
	sendCh chan ServerToProxy

	genMu      sync.RWMutex
	generation uuid.UUID // current connection epoch, minted fresh on every (re)connect
}

// NewSession returns a Session that dials via dial and logs through log.
func NewSession(dial Dialer, log zerolog.Logger) *Session {
	return &Session{
		dial:    dial,
		backoff: DefaultBackoff,
		log:     log,
		events:  make(chan ProxyToServer, 4096),
		sendCh:  make(chan ServerToProxy, 4096),
	}
}

// Events returns the channel of messages received from the proxy.
func (s *Session) Events() <-chan ProxyToServer { return s.events }

// Generation returns the identifier of the current connection epoch.
// Every successful (re)connect mints a new one via Run; a caller
// tracking per-stream state (e.g. tick.Loop's connections) compares the
// Generation() it read when draining an event against the last one it
// saw to garbage-collect
// players created under a previous, now-dead proxy connection instead of
// waiting on an explicit disconnect event for each of them.
func (s *Session) Generation() uuid.UUID {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.generation
}

// Send enqueues msg for the next connected writer loop to frame and send.
// It blocks only if the send buffer is full; callers on the tick's egress
// phase should size the buffer generously rather than block here.
func (s *Session) Send(ctx context.Context, msg ServerToProxy) error {
	select {
	case s.sendCh <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the connect/reconnect loop until ctx is canceled. Every
// disconnect (including the first connect's failure) is followed by
// DefaultBackoff before retrying; every players-from-the-prior-session
// teardown is the caller's responsibility on reading Events() dry up to a
// disconnect edge — Session itself only manages the transport.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("proxy: dial failed, backing off")
			if !sleepOrDone(ctx, s.backoff) {
				return ctx.Err()
			}
			continue
		}

		gen := uuid.New()
		s.genMu.Lock()
		s.generation = gen
		s.genMu.Unlock()
		s.log.Info().Str("generation", gen.String()).Msg("proxy: connected")

		err = s.runConnection(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Msg("proxy: connection lost, reconnecting")
		if !sleepOrDone(ctx, s.backoff) {
			return ctx.Err()
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// runConnection owns one physical connection: a reader goroutine pushing
// decoded ProxyToServer messages into s.events, and a writer loop draining
// s.sendCh and framing ServerToProxy messages out. It returns once either
// side errors or ctx is canceled.
func (s *Session) runConnection(ctx context.Context, conn net.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readLoop(connCtx, conn)
	}()

	go func() {
		<-connCtx.Done()
		_ = conn.Close() // unblocks the reader's blocking Read
	}()

	for {
		select {
		case msg := <-s.sendCh:
			var body bytes.Buffer
			if err := EncodeServerToProxy(&body, msg); err != nil {
				s.log.Error().Err(err).Stringer("kind", msg.Kind).Msg("proxy: encode outbound message")
				continue
			}
			if err := WriteFrame(conn, body.Bytes()); err != nil {
				return err
			}

		case err := <-readErr:
			return err

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) readLoop(ctx context.Context, conn net.Conn) error {
	for {
		body, err := ReadFrame(conn)
		if err != nil {
			if err == io.EOF {
				return io.ErrClosedPipe
			}
			return err
		}
		msg, err := DecodeProxyToServer(body)
		if err != nil {
			s.log.Debug().Err(err).Msg("proxy: dropping malformed frame")
			continue
		}
		if msg.Kind == EventPlayerConnect {
			s.scheduleReceiveBroadcasts(ctx, msg.Stream)
		}
		s.events <- msg
	}
}

// scheduleReceiveBroadcasts enables broadcast delivery for stream after
// ReceiveBroadcastsDelay, giving a just-joined player time to finish
// their initial chunk burst before joining broadcast distribution. The
// timer is bound to the owning connection's context, so a disconnect or
// reconnect before the delay elapses cancels it instead of sending
// SetReceiveBroadcasts for a stream the proxy has already dropped.
func (s *Session) scheduleReceiveBroadcasts(ctx context.Context, stream StreamID) {
	go func() {
		t := time.NewTimer(ReceiveBroadcastsDelay)
		defer t.Stop()
		select {
		case <-t.C:
			_ = s.Send(ctx, SetReceiveBroadcasts(stream))
		case <-ctx.Done():
		}
	}()
}
