package client

import (
	"context"
	"fmt"

	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/internal/http"
	"github.com/travio/travio-client/pkg/travio"
)

// AuthClient implements travio.AuthClient.
//
// Credential-issuing endpoints (login, refresh, register) go through the
// public transport so a 401 there is reported as-is instead of triggering a
// refresh. Everything else uses the session transport.
type AuthClient struct {
	public  http.Requester
	session http.Requester
}

// NewAuthClient creates a new auth client.
func NewAuthClient(public, session http.Requester) *AuthClient {
	return &AuthClient{
		public:  public,
		session: session,
	}
}

// Login implements travio.AuthClient.Login.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*travio.TokenPair, error) {
	resp, err := c.public.Post(ctx, constants.PathLogin, travio.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	var pair travio.TokenPair

	err = resp.Decode(&pair)
	if err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}

	if pair.AccessToken == "" {
		return nil, fmt.Errorf("parsing login response: %w", travio.ErrInvalidToken)
	}

	return &pair, nil
}

// Refresh implements travio.AuthClient.Refresh.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*travio.TokenPair, error) {
	resp, err := c.public.Post(ctx, constants.PathRefresh, travio.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	var pair travio.TokenPair

	err = resp.Decode(&pair)
	if err != nil {
		return nil, fmt.Errorf("parsing refresh response: %w", err)
	}

	if pair.AccessToken == "" {
		return nil, fmt.Errorf("parsing refresh response: %w", travio.ErrInvalidToken)
	}

	return &pair, nil
}

// Logout implements travio.AuthClient.Logout.
func (c *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.session.Post(ctx, constants.PathLogout, travio.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	return nil
}

// LogoutAll implements travio.AuthClient.LogoutAll.
func (c *AuthClient) LogoutAll(ctx context.Context) error {
	_, err := c.session.Post(ctx, constants.PathLogoutAll, struct{}{})
	if err != nil {
		return fmt.Errorf("logging out all sessions: %w", err)
	}

	return nil
}

// Register implements travio.AuthClient.Register.
func (c *AuthClient) Register(ctx context.Context, request *travio.RegisterRequest) (*travio.RegisterResponse, error) {
	resp, err := c.public.Post(ctx, constants.PathRegister, request)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	var result travio.RegisterResponse

	err = resp.Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("parsing register response: %w", err)
	}

	return &result, nil
}

// Me implements travio.AuthClient.Me.
func (c *AuthClient) Me(ctx context.Context) (*travio.Identity, error) {
	resp, err := c.session.Get(ctx, constants.PathMe, nil)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	var identity travio.Identity

	err = resp.Decode(&identity)
	if err != nil {
		return nil, fmt.Errorf("parsing current user: %w", err)
	}

	return &identity, nil
}

// Sessions implements travio.AuthClient.Sessions.
func (c *AuthClient) Sessions(ctx context.Context) ([]travio.ActiveSession, error) {
	resp, err := c.session.Get(ctx, constants.PathSessions, nil)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var sessions []travio.ActiveSession

	err = resp.Decode(&sessions)
	if err != nil {
		return nil, fmt.Errorf("parsing sessions list: %w", err)
	}

	return sessions, nil
}
