package commands_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travio/travio-client/cmd/travio/commands"
	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/travio"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

type gateway struct {
	server *httptest.Server

	mu     sync.Mutex
	access string
	hits   map[string]int
}

func newGateway(t *testing.T) *gateway {
	t.Helper()

	g := &gateway{hits: make(map[string]int)}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.server.Close)

	return g
}

func (g *gateway) Hits(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.hits[path]
}

var stationPages = map[string]travio.StationList{
	"": {
		Items:         []travio.Station{{ID: "bcn", Code: "BCN", Name: "Barcelona Sants"}, {ID: "mad", Code: "MAD", Name: "Madrid Atocha"}},
		NextPageToken: "p2",
	},
	"p2": {Items: []travio.Station{{ID: "vlc", Code: "VLC", Name: "Valencia Nord"}}},
}

func (g *gateway) serve(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hits[r.URL.Path]++

	switch r.URL.Path {
	case "/v1/auth/login":
		var body travio.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body.Email != "ana@example.com" || body.Password != "secret" {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})

			return
		}

		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"uid":  "user-1",
			"oid":  "org-1",
			"role": "agent",
			"exp":  time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("test-key"))
		g.access = token

		reply(w, http.StatusOK, travio.TokenPair{AccessToken: token, RefreshToken: "refresh-1"})

		return
	case "/v1/auth/logout":
		w.WriteHeader(http.StatusNoContent)

		return
	case "/v1/auth/register":
		reply(w, http.StatusCreated, travio.RegisterResponse{UserID: "user-9"})

		return
	case "/v1/orgs":
		reply(w, http.StatusCreated, travio.OrganizationCreateResponse{OrganizationID: "org-9", Status: "active"})

		return
	}

	if g.access == "" || r.Header.Get("Authorization") != "Bearer "+g.access {
		reply(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})

		return
	}

	switch {
	case r.URL.Path == "/v1/auth/sessions":
		reply(w, http.StatusOK, []travio.ActiveSession{{ID: "s-1", DeviceInfo: "travio-cli"}})
	case r.URL.Path == "/v1/orgs/me":
		reply(w, http.StatusOK, travio.Organization{ID: "org-1", Name: "Iberia Tours", Status: "active"})
	case r.URL.Path == "/v1/stations":
		if query := r.URL.Query().Get("search_query"); query != "" {
			reply(w, http.StatusOK, travio.StationList{Items: []travio.Station{{ID: "mad", Name: "Madrid Atocha"}}})

			return
		}

		reply(w, http.StatusOK, stationPages[r.URL.Query().Get("page_token")])
	case strings.HasPrefix(r.URL.Path, "/v1/stations/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/stations/")
		if id == "nowhere" {
			reply(w, http.StatusNotFound, map[string]string{"message": "station not found"})

			return
		}

		reply(w, http.StatusOK, travio.Station{ID: id, Name: strings.ToUpper(id), Amenities: []string{"wifi"}})
	default:
		reply(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func reply(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// workspace writes a config file pointing at the gateway. The session
// database lives next to it.
func workspace(t *testing.T, g *gateway) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte("api: "+g.server.URL+"\n"), 0o600))

	return file
}

func run(t *testing.T, configFile, stdin string, args ...string) (string, error) {
	t.Helper()

	root := commands.NewRootCommand("1.2.3", "abc123", "2026-01-01")

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--config", configFile))

	err := root.Execute()

	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand("dev", "none", "unknown")
	assert.Equal(t, "travio", root.Use)

	for _, name := range []string{"login", "logout", "whoami", "sessions", "register", "org", "stations", "config", "version"} {
		assert.NotNil(t, findSubcommand(root, name), name)
	}

	stations := findSubcommand(root, "stations")
	require.NotNil(t, stations)
	assert.Equal(t, []string{"station", "st"}, stations.Aliases)
	assert.Len(t, stations.Commands(), 3)
}

//nolint:funlen
func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	g := newGateway(t)
	file := workspace(t, g)

	_, err := run(t, file, "", "whoami")
	require.ErrorIs(t, err, constants.ErrNotLoggedIn)

	_, err = run(t, file, "", "login", "--email", "ana@example.com", "--password", "wrong")
	require.ErrorIs(t, err, constants.ErrLoginFailed)
	assert.Contains(t, err.Error(), "invalid credentials")

	out, err := run(t, file, "ana@example.com\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in to "+g.server.URL+" as user-1")

	out, err = run(t, file, "", "whoami", "-o", "json")
	require.NoError(t, err)

	var identity travio.Identity
	require.NoError(t, json.Unmarshal([]byte(out), &identity))
	assert.Equal(t, travio.Identity{UserID: "user-1", OrganizationID: "org-1", Role: "agent"}, identity)
	assert.Equal(t, 0, g.Hits("/v1/auth/me"))

	out, err = run(t, file, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Token expires")
	assert.NotContains(t, out, "N/A")

	out, err = run(t, file, "", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "travio-cli")

	out, err = run(t, file, "", "org", "show", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Iberia Tours")

	out, err = run(t, file, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, 1, g.Hits("/v1/auth/logout"))

	out, err = run(t, file, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	_, err = run(t, file, "", "sessions")
	require.ErrorIs(t, err, constants.ErrNotLoggedIn)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	g := newGateway(t)
	file := workspace(t, g)

	out, err := run(t, file, "secret\n", "register", "--email", "new@example.com", "--name", "New User", "--org-name", "New Tours")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered new@example.com")
	assert.Equal(t, 1, g.Hits("/v1/orgs"))
	assert.Equal(t, 1, g.Hits("/v1/auth/register"))

	_, err = run(t, file, "", "register", "--email", "new@example.com", "--password", "x")
	require.ErrorIs(t, err, constants.ErrRegisterFailed)
}

func TestStations(t *testing.T) {
	t.Parallel()

	g := newGateway(t)
	file := workspace(t, g)

	_, err := run(t, file, "", "login", "-e", "ana@example.com", "-p", "secret")
	require.NoError(t, err)

	t.Run("first page", func(t *testing.T) {
		out, err := run(t, file, "", "stations", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "Barcelona Sants")
		assert.NotContains(t, out, "Valencia Nord")
		assert.Contains(t, out, "Use --pages or --all")
	})

	t.Run("more pages", func(t *testing.T) {
		out, err := run(t, file, "", "stations", "list", "--pages", "3", "-o", "json")
		require.NoError(t, err)

		var stations []travio.Station
		require.NoError(t, json.Unmarshal([]byte(out), &stations))
		assert.Len(t, stations, 3)
	})

	t.Run("all", func(t *testing.T) {
		out, err := run(t, file, "", "stations", "list", "--all", "-o", "json")
		require.NoError(t, err)

		var stations []travio.Station
		require.NoError(t, json.Unmarshal([]byte(out), &stations))
		require.Len(t, stations, 3)
		assert.Equal(t, "vlc", stations[2].ID)
	})

	t.Run("search", func(t *testing.T) {
		out, err := run(t, file, "", "stations", "search", "madrid")
		require.NoError(t, err)
		assert.Contains(t, out, "Madrid Atocha")
		assert.NotContains(t, out, "Barcelona")
	})

	t.Run("get", func(t *testing.T) {
		out, err := run(t, file, "", "stations", "get", "sev")
		require.NoError(t, err)
		assert.Contains(t, out, "SEV")
		assert.Contains(t, out, "wifi")

		_, err = run(t, file, "", "stations", "get", "nowhere")
		require.ErrorIs(t, err, constants.ErrStationNotFound)
	})

	t.Run("get several", func(t *testing.T) {
		out, err := run(t, file, "", "stations", "get", "zgz", "nowhere", "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, out, "Station nowhere not found")
		assert.Contains(t, out, `"id": "zgz"`)
	})
}

func TestStations_CachedLookups(t *testing.T) {
	t.Parallel()

	g := newGateway(t)
	file := workspace(t, g)

	_, err := run(t, file, "", "login", "-e", "ana@example.com", "-p", "secret")
	require.NoError(t, err)

	for range 3 {
		_, err = run(t, file, "", "stations", "get", "gro")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, g.Hits("/v1/stations/gro"))
}

func TestConfig(t *testing.T) {
	t.Parallel()

	g := newGateway(t)
	file := workspace(t, g)

	out, err := run(t, file, "", "config", "set", "page_size", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "Set page_size to 20")

	out, err = run(t, file, "", "config", "set", "cache.type", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Set cache.type to memory")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "api: "+g.server.URL)
	assert.Contains(t, string(data), "page_size: \"20\"")
	assert.Contains(t, string(data), "type: memory")

	out, err = run(t, file, "", "config", "show", "-o", "json")
	require.NoError(t, err)

	var settings map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.InDelta(t, 20, settings["page_size"], 0)

	_, err = run(t, file, "", "config", "set", "token", "abc")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)

	_, err = run(t, file, "", "config", "set", "output", "xml")
	require.ErrorIs(t, err, constants.ErrInvalidOutput)

	_, err = run(t, file, "", "config", "unset", "cache.type")
	require.NoError(t, err)

	data, err = os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cache")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	g := newGateway(t)

	out, err := run(t, workspace(t, g), "", "version", "-o", "json")
	require.NoError(t, err)

	var info commands.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.NotEmpty(t, info.Go)
}
