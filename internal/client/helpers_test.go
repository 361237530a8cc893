package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travio/travio-client/pkg/travio"
)

var ErrTestRefreshRejected = errors.New("refresh rejected")

// testTokenManager is a TokenManager whose refresh swaps in a fixed token.
type testTokenManager struct {
	mu        sync.Mutex
	token     string
	next      string
	refreshes int
}

func (m *testTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.token, nil
}

func (m *testTokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshes++
	if m.next == "" {
		return ErrTestRefreshRejected
	}

	m.token = m.next

	return nil
}

func (m *testTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
}

func (m *testTokenManager) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshes
}

// NewTestClient creates a client for server with a static bearer token.
func NewTestClient(t *testing.T, server *httptest.Server, tokens *testTokenManager) *Client {
	t.Helper()

	if tokens == nil {
		tokens = &testTokenManager{token: "test-token"}
	}

	client, err := New(&travio.Config{APIEndpoint: server.URL}, tokens, travio.NewSignals(nil), nil)
	require.NoError(t, err)

	return client
}

// writeJSON encodes body with the given status.
func writeJSON(writer http.ResponseWriter, status int, body interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	if body != nil {
		_ = json.NewEncoder(writer).Encode(body)
	}
}

// TestGetOperation is one case for a lookup-by-id endpoint.
type TestGetOperation[TResponse any] struct {
	Name         string
	ID           string
	ExpectedPath string
	StatusCode   int
	Response     interface{}
	WantErr      bool
	ErrMessage   string
}

// RunGetTests serves each case from httptest and checks the path, decoded body and error.
func RunGetTests[TResponse any](
	t *testing.T,
	tests []TestGetOperation[TResponse],
	getFunc func(*Client) func(context.Context, string) (*TResponse, error),
) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.ExpectedPath, request.URL.EscapedPath())
				assert.Equal(t, http.MethodGet, request.Method)
				writeJSON(writer, testCase.StatusCode, testCase.Response)
			}))
			defer server.Close()

			client := NewTestClient(t, server, nil)

			result, err := getFunc(client)(context.Background(), testCase.ID)

			if testCase.WantErr {
				require.Error(t, err)

				if testCase.ErrMessage != "" {
					assert.Contains(t, err.Error(), testCase.ErrMessage)
				}

				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
			}
		})
	}
}
