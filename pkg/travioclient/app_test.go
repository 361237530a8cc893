package travioclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travio/travio-client/pkg/catalog"
	"github.com/travio/travio-client/pkg/travio"
	"github.com/travio/travio-client/pkg/travioclient"
)

type gateway struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	access    string
	refreshOK bool
	hits      map[string]int
}

func newGateway(t *testing.T) *gateway {
	t.Helper()

	g := &gateway{t: t, hits: make(map[string]int)}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.server.Close)

	return g
}

func (g *gateway) Hits(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.hits[path]
}

// expire invalidates the current access token on the server side.
func (g *gateway) expire(refreshOK bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.access = "revoked"
	g.refreshOK = refreshOK
}

func (g *gateway) issue() string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  "user-1",
		"oid":  "org-1",
		"role": "agent",
		"exp":  time.Now().Add(time.Hour).Unix(),
		"jti":  time.Now().Format(time.RFC3339Nano),
	}).SignedString([]byte("test-key"))
	require.NoError(g.t, err)

	g.access = token

	return token
}

func (g *gateway) serve(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hits[r.URL.Path]++

	switch r.URL.Path {
	case "/v1/auth/login":
		reply(w, http.StatusOK, travio.TokenPair{AccessToken: g.issue(), RefreshToken: "refresh-1"})

		return
	case "/v1/auth/refresh":
		if !g.refreshOK {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "refresh token revoked"})

			return
		}

		reply(w, http.StatusOK, travio.TokenPair{AccessToken: g.issue(), RefreshToken: "refresh-2"})

		return
	case "/v1/auth/logout":
		w.WriteHeader(http.StatusNoContent)

		return
	}

	if r.Header.Get("Authorization") != "Bearer "+g.access {
		reply(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})

		return
	}

	switch r.URL.Path {
	case "/v1/auth/me":
		reply(w, http.StatusOK, travio.Identity{UserID: "user-1", OrganizationID: "org-1", Role: "agent"})
	case "/v1/stations":
		if r.URL.Query().Get("page_token") == "p2" {
			reply(w, http.StatusOK, travio.StationList{Items: []travio.Station{{ID: "vlc"}}, Total: 3})

			return
		}

		reply(w, http.StatusOK, travio.StationList{
			Items:         []travio.Station{{ID: "bcn"}, {ID: "mad"}},
			Total:         3,
			NextPageToken: "p2",
		})
	case "/v1/stations/sev":
		reply(w, http.StatusOK, travio.Station{ID: "sev", Name: "Sevilla Santa Justa"})
	default:
		reply(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func reply(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newApp(t *testing.T, config *travio.Config) *travioclient.App {
	t.Helper()

	app, err := travioclient.New(context.Background(), config)
	require.NoError(t, err)

	return app
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := travioclient.New(context.Background(), nil)
	require.ErrorIs(t, err, travio.ErrConfigRequired)

	_, err = travioclient.New(context.Background(), &travio.Config{})
	require.ErrorIs(t, err, travio.ErrAPIEndpointRequired)

	_, err = travioclient.New(context.Background(), &travio.Config{
		APIEndpoint: "https://gateway.example",
		Cache:       &travio.CacheConfig{Type: travio.CacheTypeSQLite},
	})
	require.Error(t, err)
}

func TestApp_LoginAndBrowse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newGateway(t)
	registry := prometheus.NewRegistry()

	app := newApp(t, &travio.Config{APIEndpoint: g.server.URL + "/", MetricsRegisterer: registry})
	defer func() { require.NoError(t, app.Close()) }()

	assert.Equal(t, g.server.URL, app.BaseURL())
	assert.False(t, app.Session.IsAuthenticated())
	assert.True(t, app.TokenExpiresWithin(time.Minute))
	assert.True(t, app.TokenExpiry().IsZero())

	require.True(t, app.Session.Login(ctx, "ana@example.com", "secret"))

	// expiry comes from the exp claim of the issued token
	assert.WithinDuration(t, time.Now().Add(time.Hour), app.TokenExpiry(), time.Minute)
	assert.False(t, app.TokenExpiresWithin(time.Minute))

	items, err := app.Stations.Load(ctx, false)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, app.Stations.HasMore())

	added, err := app.Stations.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "vlc", added[0].ID)
	assert.False(t, app.Stations.HasMore())

	station := app.Stations.GetByID(ctx, "sev")
	require.NotNil(t, station)
	assert.Equal(t, "Sevilla Santa Justa", station.Name)

	assert.InDelta(t, 1, testutil.ToFloat64(app.Metrics.CacheLookups.WithLabelValues("stations", "network")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(app.Metrics.Requests.WithLabelValues("GET", "200")), 0)
	assert.Equal(t, int64(1), app.CacheStats().Sets)
}

func TestApp_RefreshRecovery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newGateway(t)

	app := newApp(t, &travio.Config{APIEndpoint: g.server.URL})
	defer func() { require.NoError(t, app.Close()) }()

	require.True(t, app.Session.Login(ctx, "ana@example.com", "secret"))

	g.expire(true)

	_, err := app.Stations.Load(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Hits("/v1/auth/refresh"))
	assert.True(t, app.Session.IsAuthenticated())

	_, refresh := app.Credentials().Tokens()
	assert.Equal(t, "refresh-2", refresh)
}

func TestApp_FailedRefreshClearsEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newGateway(t)
	registry := prometheus.NewRegistry()

	app := newApp(t, &travio.Config{APIEndpoint: g.server.URL, MetricsRegisterer: registry})
	defer func() { require.NoError(t, app.Close()) }()

	require.True(t, app.Session.Login(ctx, "ana@example.com", "secret"))

	_, err := app.Stations.Load(ctx, false)
	require.NoError(t, err)
	require.Len(t, app.Stations.Items(), 2)

	g.expire(false)

	_, err = app.Stations.Load(ctx, true)
	require.Error(t, err)
	assert.True(t, travio.IsUnauthorized(err), "caller sees the original 401, got %v", err)
	assert.NotErrorIs(t, err, catalog.ErrSuperseded)

	assert.False(t, app.Session.IsAuthenticated())
	assert.Empty(t, app.Stations.Items())
	assert.Empty(t, app.Stations.Visible())

	access, refresh := app.Credentials().Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.Equal(t, 0, g.Hits("/v1/auth/logout"))

	assert.InDelta(t, 1, testutil.ToFloat64(app.Metrics.Signals.WithLabelValues("auth_cleared")), 0)
}

func TestApp_SQLiteStorageSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := newGateway(t)

	config := &travio.Config{
		APIEndpoint: g.server.URL,
		Cache: &travio.CacheConfig{
			Type:   travio.CacheTypeSQLite,
			SQLite: &travio.SQLiteCacheConfig{Path: filepath.Join(t.TempDir(), "travio.db")},
		},
	}

	first := newApp(t, config)
	require.True(t, first.Session.Login(ctx, "ana@example.com", "secret"))
	require.NotNil(t, first.Stations.GetByID(ctx, "sev"))
	require.NoError(t, first.Close())

	second := newApp(t, config)
	defer func() { require.NoError(t, second.Close()) }()

	identity := second.Session.Session()
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, 0, g.Hits("/v1/auth/me"))

	station := second.Stations.GetByID(ctx, "sev")
	require.NotNil(t, station)
	assert.Equal(t, 1, g.Hits("/v1/stations/sev"))

	second.Session.Logout(ctx)
	assert.Equal(t, 1, g.Hits("/v1/auth/logout"))

	access, _ := second.Credentials().Tokens()
	assert.Empty(t, access)
}

func TestApp_SeededCredentials(t *testing.T) {
	t.Parallel()

	g := newGateway(t)

	g.mu.Lock()
	token := g.issue()
	g.mu.Unlock()

	app := newApp(t, &travio.Config{APIEndpoint: g.server.URL, AccessToken: token, RefreshToken: "refresh-0"})
	defer func() { require.NoError(t, app.Close()) }()

	require.True(t, app.Session.IsAuthenticated())
	assert.Equal(t, 1, g.Hits("/v1/auth/me"))
}
