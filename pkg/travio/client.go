package travio

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthClient covers the identity endpoints of the gateway.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context) error
	Register(ctx context.Context, request *RegisterRequest) (*RegisterResponse, error)
	Me(ctx context.Context) (*Identity, error)
	Sessions(ctx context.Context) ([]ActiveSession, error)
}

// OrganizationsClient covers organization onboarding and profile endpoints.
type OrganizationsClient interface {
	Create(ctx context.Context, request *OrganizationCreateRequest) (*OrganizationCreateResponse, error)
	Me(ctx context.Context) (*Organization, error)
	UpdateMe(ctx context.Context, request *OrganizationUpdateRequest) (*Organization, error)
}

// StationsClient covers the stations catalog.
type StationsClient interface {
	List(ctx context.Context, params *QueryParams) (*ListResponse[Station], error)
	Get(ctx context.Context, id string) (*Station, error)
}

// Client provides access to all resource clients.
type Client interface {
	Auth() AuthClient
	Organizations() OrganizationsClient
	Stations() StationsClient
}

// CredentialStore holds the bearer credentials attached to outgoing requests.
type CredentialStore interface {
	// SetTokens stores a freshly issued pair and persists it durably.
	SetTokens(ctx context.Context, pair *TokenPair) error
	// Tokens returns the current credentials; empty strings when absent.
	Tokens() (accessToken, refreshToken string)
	// ClearTokens forgets the credentials locally and durably.
	ClearTokens(ctx context.Context) error
}

// PaginationMode selects how a catalog store interprets page tokens.
type PaginationMode string

const (
	// PaginationCursor treats next_page_token as authoritative.
	PaginationCursor PaginationMode = "cursor"
	// PaginationOffset sends the running item count as page_token and infers
	// more pages from full pages.
	PaginationOffset PaginationMode = "offset"
)

// Config represents client configuration for building a travioclient.App.
//
// # Authentication
//
// Credentials are bearer tokens kept in a durable Cache under the keys
// "accessToken", "refreshToken" and "user". AccessToken/RefreshToken seed
// that store at start-up; otherwise whatever a previous Login persisted is
// rehydrated. A 401 on any authenticated call triggers exactly one refresh
// through POST /v1/auth/refresh followed by one replay of the request.
//
// # Timeouts and retries
//
// Per-request timeouts should be controlled via the context passed to client
// methods. By default every call is exactly one HTTP exchange; set RetryMax to
// opt into transient-failure retries (5xx, 429 and connection errors).
type Config struct {
	// APIEndpoint: base URL of the gateway (e.g., "https://api.travio.example").
	// A trailing slash is trimmed and "https://" is added if no scheme is present.
	APIEndpoint string

	// AccessToken: optional bearer token to start with.
	AccessToken string
	// RefreshToken: optional refresh token to start with.
	RefreshToken string

	// HTTPTimeout: transport-level timeout for a single exchange.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of transient-failure retries. Zero disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by every component.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// Headers: extra headers sent on every request.
	Headers map[string]string

	// Cache: durable storage for credentials and point lookups. Nil uses an
	// in-memory cache, which does not survive the process.
	Cache *CacheConfig

	// PageSize: catalog page length. Zero uses the default of 50.
	PageSize int
	// PaginationMode: cursor (default) or offset.
	PaginationMode PaginationMode
	// PointLookupTTL: lifetime of durable point-lookup entries. Zero never expires.
	PointLookupTTL time.Duration

	// MetricsRegisterer: when set, request and signal metrics are registered on it.
	MetricsRegisterer prometheus.Registerer
}
