package proxy

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialOnce returns a Dialer that hands out conn (a net.Pipe half) exactly
// once, simulating the proxy accepting one connection.
func dialOnce(conn net.Conn) Dialer {
	used := false
	return func(ctx context.Context) (net.Conn, error) {
		if used {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		used = true
		return conn, nil
	}
}

func TestSessionSendFramesOverTheWire(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	sess := NewSession(dialOnce(clientSide), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = sess.Run(ctx) }()

	require.NoError(t, sess.Send(ctx, Unicast(42, []byte("hi"))))

	body, err := ReadFrame(serverSide)
	require.NoError(t, err)
	assert.Equal(t, uint8(KindUnicast), body[0])
}

func TestSessionDeliversProxyEvents(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	sess := NewSession(dialOnce(clientSide), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = sess.Run(ctx) }()

	var buf bytes.Buffer
	buf.WriteByte(byte(EventPlayerConnect))
	var idBuf [8]byte
	idBuf[7] = 42
	buf.Write(idBuf[:])
	require.NoError(t, WriteFrame(serverSide, buf.Bytes()))

	select {
	case evt := <-sess.Events():
		assert.Equal(t, EventPlayerConnect, evt.Kind)
		assert.Equal(t, StreamID(42), evt.Stream)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for proxy event")
	}
}

func TestSessionRunStopsOnContextCancel(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()

	sess := NewSession(dialOnce(clientSide), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
