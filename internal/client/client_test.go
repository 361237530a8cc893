package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travio/travio-client/internal/auth"
	"github.com/travio/travio-client/pkg/travio"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(nil, nil, nil, nil)
		require.ErrorIs(t, err, travio.ErrConfigRequired)
	})

	t.Run("requires endpoint", func(t *testing.T) {
		t.Parallel()

		_, err := New(&travio.Config{APIEndpoint: "  "}, nil, nil, nil)
		require.ErrorIs(t, err, travio.ErrAPIEndpointRequired)
	})

	t.Run("normalizes endpoint", func(t *testing.T) {
		t.Parallel()

		client, err := New(&travio.Config{APIEndpoint: "api.travio.example/"}, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.travio.example", client.BaseURL())
		assert.NotNil(t, client.Auth())
		assert.NotNil(t, client.Organizations())
		assert.NotNil(t, client.Stations())
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "http://localhost:8080/", want: "http://localhost:8080"},
		{in: "https://api.travio.example", want: "https://api.travio.example"},
		{in: "gateway.local", want: "https://gateway.local"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEndpoint(tt.in), tt.in)
	}
}

func TestClient_Headers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "web", r.Header.Get("X-Client"))
		assert.NotEmpty(t, r.Header.Get(travio.RequestIDHeader))
		assert.Equal(t, "travio-cli/test", r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, travio.Identity{UserID: "user-1"})
	}))
	defer server.Close()

	client, err := New(&travio.Config{
		APIEndpoint: server.URL,
		UserAgent:   "travio-cli/test",
		Headers:     map[string]string{"X-Client": "web"},
	}, &testTokenManager{token: "t"}, nil, nil)
	require.NoError(t, err)

	_, err = client.Auth().Me(context.Background())
	require.NoError(t, err)
}

//nolint:funlen
func TestClient_SessionRecovery(t *testing.T) {
	t.Parallel()

	t.Run("refreshes through the gateway and replays", func(t *testing.T) {
		t.Parallel()

		var stationHits, refreshHits atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/auth/refresh":
				refreshHits.Add(1)
				writeJSON(w, http.StatusOK, travio.TokenPair{AccessToken: "fresh", RefreshToken: "refresh-2"})
			case "/v1/stations/st-1":
				stationHits.Add(1)

				if r.Header.Get("Authorization") != "Bearer fresh" {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})

					return
				}

				writeJSON(w, http.StatusOK, travio.Station{ID: "st-1"})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		storage := travio.NewMemoryCache(10)
		tokens := auth.NewSessionTokenManager(storage, nil, nil)
		require.NoError(t, tokens.SetTokens(context.Background(), &travio.TokenPair{AccessToken: "stale", RefreshToken: "refresh-1"}))

		signals := travio.NewSignals(nil)

		var refreshed atomic.Int32

		signals.Subscribe(func(travio.SignalKind) { refreshed.Add(1) }, travio.SignalSessionRefreshed)

		client, err := New(&travio.Config{APIEndpoint: server.URL}, tokens, signals, nil)
		require.NoError(t, err)

		tokens.SetRefresher(client.Auth())

		station, err := client.Stations().Get(context.Background(), "st-1")
		require.NoError(t, err)
		assert.Equal(t, "st-1", station.ID)
		assert.Equal(t, int32(2), stationHits.Load())
		assert.Equal(t, int32(1), refreshHits.Load())
		assert.Equal(t, int32(1), refreshed.Load())

		access, refresh := tokens.Tokens()
		assert.Equal(t, "fresh", access)
		assert.Equal(t, "refresh-2", refresh)
	})

	t.Run("failed refresh returns the original 401", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		}))
		defer server.Close()

		tokens := &testTokenManager{token: "stale"}

		signals := travio.NewSignals(nil)

		var cleared atomic.Int32

		signals.Subscribe(func(travio.SignalKind) { cleared.Add(1) }, travio.SignalAuthCleared)

		client, err := New(&travio.Config{APIEndpoint: server.URL}, tokens, signals, nil)
		require.NoError(t, err)

		_, err = client.Organizations().Me(context.Background())
		require.Error(t, err)
		assert.True(t, travio.IsUnauthorized(err))
		assert.Contains(t, err.Error(), "token expired")
		assert.Equal(t, 1, tokens.Refreshes())
		assert.Equal(t, int32(1), cleared.Load())
	})
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/stations/missing" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "station not found"})

			return
		}

		writeJSON(w, http.StatusOK, travio.Station{ID: "st-1"})
	}))
	defer server.Close()

	metrics := travio.NewMetrics(prometheus.NewRegistry())

	client, err := New(&travio.Config{APIEndpoint: server.URL}, &testTokenManager{token: "t"}, nil, metrics)
	require.NoError(t, err)

	_, err = client.Stations().Get(context.Background(), "st-1")
	require.NoError(t, err)

	_, err = client.Stations().Get(context.Background(), "missing")
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "404")), 0)
}
