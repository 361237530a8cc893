package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/travio/travio-client/internal/auth"
	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/travio"
)

// Config wires a Store to its collaborators.
type Config struct {
	Auth          travio.AuthClient
	Organizations travio.OrganizationsClient
	// Credentials holds the bearer pair used by the transport.
	Credentials travio.CredentialStore
	// Storage keeps the identity under the "user" key. Nil keeps it in memory only.
	Storage travio.Cache
	// Signals, when set, is observed for refresh and auth-cleared events.
	Signals *travio.Signals
	Logger  travio.Logger
}

// RegisterInput describes a new user and, optionally, the organization to
// create for them.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	// OrganizationID joins an existing organization.
	OrganizationID string
	// OrganizationName creates a new organization first when non-empty.
	OrganizationName    string
	OrganizationDetails travio.OrgDetails
	// PlanID of the new organization. Empty selects the free plan.
	PlanID string
}

// Store is the single source of truth for the current user.
//
// Operations that talk to the gateway never return errors; they record them
// and report success as a bool. IsAuthenticated is derived from Session.
type Store struct {
	auth          travio.AuthClient
	organizations travio.OrganizationsClient
	credentials   travio.CredentialStore
	storage       travio.Cache
	signals       *travio.Signals
	logger        travio.Logger
	subscriptions []*travio.Subscription

	mu      sync.RWMutex
	session *travio.Identity
	loading bool
	message string
	lastErr error
}

// New creates a store and subscribes it to config.Signals. Call Close to
// unsubscribe.
func New(config Config) *Store {
	storage := config.Storage
	if storage == nil {
		storage = travio.NewMemoryCache(constants.DefaultCacheSize)
	}

	s := &Store{
		auth:          config.Auth,
		organizations: config.Organizations,
		credentials:   config.Credentials,
		storage:       storage,
		signals:       config.Signals,
		logger:        travio.LoggerOrNop(config.Logger),
	}

	if s.signals != nil {
		s.subscriptions = append(s.subscriptions,
			s.signals.Subscribe(s.onAuthCleared, travio.SignalAuthCleared),
			s.signals.Subscribe(s.onSessionRefreshed, travio.SignalSessionRefreshed),
		)
	}

	return s
}

// Close removes the store's signal subscriptions.
func (s *Store) Close() {
	if s.signals == nil {
		return
	}

	for _, sub := range s.subscriptions {
		s.signals.Unsubscribe(sub)
	}

	s.subscriptions = nil
}

// Initialize restores the session from durable storage. Without a stored
// identity but with a credential it probes GET /v1/auth/me; a failed probe
// leaves the store unauthenticated and records nothing.
func (s *Store) Initialize(ctx context.Context) bool {
	access, _ := s.credentials.Tokens()
	if access == "" {
		s.forgetUser(ctx)

		return false
	}

	if identity := s.readUser(ctx); identity != nil {
		s.setSession(identity)

		return true
	}

	if access, _ = s.credentials.Tokens(); access == "" {
		return false
	}

	identity, err := s.auth.Me(ctx)
	if err != nil {
		s.logger.Debug("identity probe failed", map[string]interface{}{"error": err.Error()})

		return false
	}

	s.setSession(identity)
	s.writeUser(ctx, identity)

	return true
}

// Login authenticates and establishes the session. On failure the session,
// the stored identity and the stored credentials are all cleared and the
// error recorded, so a restart does not bring back the previous user.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	s.begin()
	defer s.finish()

	email = strings.TrimSpace(email)

	switch {
	case email == "":
		return s.failLogin(ctx, constants.ErrEmailRequired)
	case password == "":
		return s.failLogin(ctx, constants.ErrPasswordRequired)
	}

	pair, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return s.failLogin(ctx, err)
	}

	err = s.credentials.SetTokens(ctx, pair)
	if err != nil {
		return s.failLogin(ctx, err)
	}

	identity, err := auth.IdentityFromToken(pair.AccessToken)
	if err != nil {
		identity, err = s.auth.Me(ctx)
		if err != nil {
			return s.failLogin(ctx, err)
		}
	}

	s.setSession(identity)
	s.writeUser(ctx, identity)

	return true
}

// Register creates the organization when a name is given and then the user.
// It does not log the user in.
func (s *Store) Register(ctx context.Context, input RegisterInput) bool {
	s.begin()
	defer s.finish()

	switch {
	case strings.TrimSpace(input.Email) == "":
		return s.fail(constants.ErrEmailRequired, false)
	case input.Password == "":
		return s.fail(constants.ErrPasswordRequired, false)
	case strings.TrimSpace(input.Name) == "":
		return s.fail(constants.ErrNameRequired, false)
	}

	organizationID := input.OrganizationID

	if input.OrganizationName != "" {
		created, err := s.organizations.Create(ctx, &travio.OrganizationCreateRequest{
			OrgDetails: input.OrganizationDetails,
			Name:       input.OrganizationName,
			PlanID:     input.PlanID,
		})
		if err != nil {
			return s.fail(err, false)
		}

		organizationID = created.OrganizationID
	}

	result, err := s.auth.Register(ctx, &travio.RegisterRequest{
		Email:          strings.TrimSpace(input.Email),
		Password:       input.Password,
		Name:           strings.TrimSpace(input.Name),
		OrganizationID: organizationID,
	})
	if err != nil {
		return s.fail(err, false)
	}

	s.logger.Info("user registered", map[string]interface{}{
		"user_id":         result.UserID,
		"organization_id": organizationID,
	})

	return true
}

// FetchUser refreshes the session from GET /v1/auth/me. A 401 that survives
// the refresh attempt clears the session; other failures keep it.
func (s *Store) FetchUser(ctx context.Context) bool {
	s.begin()
	defer s.finish()

	identity, err := s.auth.Me(ctx)
	if err != nil {
		return s.fail(err, travio.IsUnauthorized(err))
	}

	s.setSession(identity)
	s.writeUser(ctx, identity)

	return true
}

// Logout invalidates the refresh token on the server when possible and then
// always clears the local session.
func (s *Store) Logout(ctx context.Context) {
	_, refresh := s.credentials.Tokens()

	if refresh != "" {
		callCtx, cancel := context.WithTimeout(ctx, constants.ShortHTTPTimeout)
		err := s.auth.Logout(callCtx, refresh)

		cancel()

		if err != nil {
			s.logger.Warn("server logout failed", map[string]interface{}{"error": err.Error()})
		}
	}

	s.clearLocal(ctx)
}

// LogoutAll revokes every session of the user. The local session is cleared
// even when the server call fails; that failure is returned.
func (s *Store) LogoutAll(ctx context.Context) error {
	err := s.auth.LogoutAll(ctx)

	s.clearLocal(ctx)

	if err != nil {
		return fmt.Errorf("revoking all sessions: %w", err)
	}

	return nil
}

// Sessions lists the user's active sessions.
func (s *Store) Sessions(ctx context.Context) ([]travio.ActiveSession, error) {
	if !s.IsAuthenticated() {
		return nil, travio.ErrNotAuthenticated
	}

	sessions, err := s.auth.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	return sessions, nil
}

// Session returns a copy of the current identity, or nil.
func (s *Store) Session() *travio.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil
	}

	identity := *s.session

	return &identity
}

// IsAuthenticated reports whether a session is established.
func (s *Store) IsAuthenticated() bool {
	return s.Session() != nil
}

// IsLoading reports whether Login, Register or FetchUser is running.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

// Error returns the message of the last failure, or "".
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.message
}

// LastError returns the last failure, or nil.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastErr
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = true
	s.message = ""
	s.lastErr = nil
}

func (s *Store) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
}

// fail records err and reports false. clearSession drops the in-memory
// identity.
func (s *Store) fail(err error, clearSession bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	s.message = errorMessage(err)

	if clearSession {
		s.session = nil
	}

	return false
}

func (s *Store) failLogin(ctx context.Context, err error) bool {
	s.clearLocal(ctx)

	return s.fail(err, true)
}

func (s *Store) setSession(identity *travio.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = identity
}

func (s *Store) clearLocal(ctx context.Context) {
	s.setSession(nil)

	err := s.credentials.ClearTokens(ctx)
	if err != nil {
		s.logger.Warn("failed to clear stored credentials", map[string]interface{}{"error": err.Error()})
	}

	s.forgetUser(ctx)
}

func (s *Store) onAuthCleared(travio.SignalKind) {
	s.logger.Info("session cleared after failed refresh", nil)
	s.clearLocal(context.Background())
}

func (s *Store) onSessionRefreshed(travio.SignalKind) {
	access, _ := s.credentials.Tokens()

	identity, err := auth.IdentityFromToken(access)
	if err != nil {
		return
	}

	s.setSession(identity)
	s.writeUser(context.Background(), identity)
}

// readUser returns the stored identity. An undecodable entry is removed
// together with the credentials it belonged to.
func (s *Store) readUser(ctx context.Context) *travio.Identity {
	entry, err := s.storage.Get(ctx, constants.StorageKeyUser)
	if err != nil {
		return nil
	}

	var identity travio.Identity

	err = json.Unmarshal(entry.Data, &identity)
	if err != nil || identity.UserID == "" {
		s.logger.Warn("discarding corrupt stored user", nil)
		s.forgetUser(ctx)
		_ = s.credentials.ClearTokens(ctx)

		return nil
	}

	return &identity
}

func (s *Store) writeUser(ctx context.Context, identity *travio.Identity) {
	data, err := json.Marshal(identity)
	if err == nil {
		err = s.storage.Set(ctx, constants.StorageKeyUser, &travio.CacheEntry{Data: data})
	}

	if err != nil {
		s.logger.Warn("failed to persist user", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Store) forgetUser(ctx context.Context) {
	err := s.storage.Delete(ctx, constants.StorageKeyUser)
	if err != nil && !errors.Is(err, travio.ErrCacheMiss) {
		s.logger.Debug("failed to delete stored user", map[string]interface{}{"error": err.Error()})
	}
}

func errorMessage(err error) string {
	var apiErr *travio.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return err.Error()
}
