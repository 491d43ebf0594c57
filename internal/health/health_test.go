package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/murmur/internal/metrics"
	"github.com/dyluth/murmur/pkg/docsync"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	t.Run("healthy relay", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := docsync.NewClient(&redis.Options{Addr: mr.Addr()}, "node-a")
		require.NoError(t, err)
		defer client.Close()

		s := NewServer("127.0.0.1:0", client, metrics.NewRegistry(), nil)

		rec := httptest.NewRecorder()
		s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Empty(t, resp.Error)
	})

	t.Run("unreachable relay", func(t *testing.T) {
		s := NewServer("127.0.0.1:0", pingFunc(func(context.Context) error {
			return errors.New("connection refused")
		}), metrics.NewRegistry(), nil)

		rec := httptest.NewRecorder()
		s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "connection refused", resp.Error)
	})
}

func TestServerLifecycle(t *testing.T) {
	reg := metrics.NewRegistry()
	chat := metrics.NewChat(reg)
	chat.MessagesSent.Add(3)

	s := NewServer("127.0.0.1:0", pingFunc(func(context.Context) error { return nil }), reg, nil)
	require.NoError(t, s.Start())

	base := "http://" + s.Addr()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "murmur_messages_sent_total 3")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = http.Get(base + "/healthz")
	assert.Error(t, err)
}

func TestStartFailsOnBusyPort(t *testing.T) {
	first := NewServer("127.0.0.1:0", pingFunc(func(context.Context) error { return nil }), metrics.NewRegistry(), nil)
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background())

	second := NewServer(first.Addr(), pingFunc(func(context.Context) error { return nil }), metrics.NewRegistry(), nil)
	assert.Error(t, second.Start())
}
