package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/travio"
)

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*travio.TokenPair, error)
}

// SessionTokenManager keeps the bearer credentials in memory and mirrors them
// to durable storage under the accessToken/refreshToken keys.
type SessionTokenManager struct {
	store     *TokenStore
	storage   travio.Cache
	refresher Refresher
	logger    travio.Logger
	mutex     sync.Mutex
}

// NewSessionTokenManager creates a manager. storage may be nil for a
// process-local session; refresher may be nil when refresh is unsupported.
func NewSessionTokenManager(storage travio.Cache, refresher Refresher, logger travio.Logger) *SessionTokenManager {
	if storage == nil {
		storage = travio.NewNoOpCache()
	}

	return &SessionTokenManager{
		store:     NewTokenStore(),
		storage:   storage,
		refresher: refresher,
		logger:    travio.LoggerOrNop(logger),
	}
}

// SetRefresher installs the refresher after construction.
func (m *SessionTokenManager) SetRefresher(refresher Refresher) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.refresher = refresher
}

// Load rehydrates credentials from durable storage. Missing keys are not an
// error; it reports whether an access token was found.
func (m *SessionTokenManager) Load(ctx context.Context) bool {
	access := m.readKey(ctx, constants.StorageKeyAccessToken)
	refresh := m.readKey(ctx, constants.StorageKeyRefreshToken)

	if access == "" && refresh == "" {
		return false
	}

	token := &Token{AccessToken: access, RefreshToken: refresh}

	if claims, err := ParseAccessToken(access); err == nil {
		token.ExpiresAt = claims.Expiry()
	}

	m.store.Set(token)

	return access != ""
}

// GetToken returns the current access token, or "" when there is none.
func (m *SessionTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token == nil {
		return "", nil
	}

	return token.AccessToken, nil
}

// RefreshToken exchanges the stored refresh token for a new pair. Without a
// refresh token it fails immediately with travio.ErrNoRefreshToken.
func (m *SessionTokenManager) RefreshToken(ctx context.Context) error {
	m.mutex.Lock()
	refresher := m.refresher
	m.mutex.Unlock()

	_, refreshToken := m.Tokens()
	if refreshToken == "" || refresher == nil {
		return travio.ErrNoRefreshToken
	}

	pair, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	return m.SetTokens(ctx, pair)
}

// SetToken manually sets the access token, keeping any refresh token.
func (m *SessionTokenManager) SetToken(token string, expiresAt time.Time) {
	current := m.store.Get()
	if current == nil {
		current = &Token{}
	}

	current.AccessToken = token
	current.ExpiresAt = expiresAt
	m.store.Set(current)
}

// SetTokens stores pair in memory and persists it. Persistence failures are
// logged; the in-memory session stays usable.
func (m *SessionTokenManager) SetTokens(ctx context.Context, pair *travio.TokenPair) error {
	if pair == nil || pair.AccessToken == "" {
		return travio.ErrInvalidToken
	}

	token := &Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    pair.ExpiresIn,
	}

	if pair.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	} else if claims, err := ParseAccessToken(pair.AccessToken); err == nil {
		token.ExpiresAt = claims.Expiry()
	}

	m.store.Set(token)

	m.writeKey(ctx, constants.StorageKeyAccessToken, token.AccessToken)

	if token.RefreshToken != "" {
		m.writeKey(ctx, constants.StorageKeyRefreshToken, token.RefreshToken)
	}

	return nil
}

// Tokens returns the current access and refresh tokens.
func (m *SessionTokenManager) Tokens() (string, string) {
	token := m.store.Get()
	if token == nil {
		return "", ""
	}

	return token.AccessToken, token.RefreshToken
}

// ClearTokens forgets the credentials in memory and in durable storage.
func (m *SessionTokenManager) ClearTokens(ctx context.Context) error {
	m.store.Clear()

	var errs []error

	for _, key := range []string{constants.StorageKeyAccessToken, constants.StorageKeyRefreshToken} {
		if err := m.storage.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// IsTokenExpiringSoon returns true if the token expires within the given duration.
func (m *SessionTokenManager) IsTokenExpiringSoon(within time.Duration) bool {
	token := m.store.Get()
	if token == nil {
		return true
	}

	if token.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(within).After(token.ExpiresAt)
}

// GetTokenExpiry returns the current token's expiration time.
func (m *SessionTokenManager) GetTokenExpiry() time.Time {
	token := m.store.Get()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

func (m *SessionTokenManager) readKey(ctx context.Context, key string) string {
	entry, err := m.storage.Get(ctx, key)
	if err != nil {
		return ""
	}

	return string(entry.Data)
}

func (m *SessionTokenManager) writeKey(ctx context.Context, key, value string) {
	err := m.storage.Set(ctx, key, &travio.CacheEntry{Data: []byte(value)})
	if err != nil {
		m.logger.Warn("failed to persist credential", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
