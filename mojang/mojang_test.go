package mojang

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Profile{ID: "abc", Name: "Steve"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProfileByUUIDFetchesFromSessionServer(t *testing.T) {
	srv := testServer(t)
	c := NewClient(10, time.Hour, WithBaseURL(srv.URL))
	defer c.Close()

	p, err := c.ProfileByUUID(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Steve", p.Name)
}

func TestRateLimitBlocksBeyondBurstUntilRefill(t *testing.T) {
	srv := testServer(t)
	c := NewClient(1, 30*time.Millisecond, WithBaseURL(srv.URL))
	defer c.Close()

	ctx := context.Background()
	_, err := c.ProfileByUUID(ctx, "a")
	require.NoError(t, err)

	// Second call must block until the next refill tick.
	start := time.Now()
	_, err = c.ProfileByUUID(ctx, "b")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestProfileByUUIDRespectsContextCancellation(t *testing.T) {
	srv := testServer(t)
	c := NewClient(1, time.Hour, WithBaseURL(srv.URL))
	defer c.Close()

	ctx := context.Background()
	_, err := c.ProfileByUUID(ctx, "a") // consume the only permit
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.ProfileByUUID(cctx, "b")
	assert.Error(t, err)
}
