package constants

import "time"

// Modes for ~/.travio and the files written under it.
const (
	ConfigDirPerm  = 0750
	ConfigFilePerm = 0600
)

// Gateway timeouts.
const (
	// DefaultHTTPTimeout applies to a whole exchange, retries included.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout bounds best-effort calls such as logout.
	ShortHTTPTimeout = 10 * time.Second
)

// Backoff bounds for retried exchanges.
const (
	DefaultRetryWaitMin = 1 * time.Second

	// ExtendedRetryWaitMax caps the backoff after repeated 429s or 5xxs.
	ExtendedRetryWaitMax = 30 * time.Second

	// DefaultConcurrencyLimit limits concurrent point lookups while warming.
	DefaultConcurrencyLimit = 3
)

// Paging.
const (
	// StandardPageSize is the catalog page length.
	StandardPageSize = 50

	// MaxPageSize is the largest page the gateway accepts.
	MaxPageSize = 200
)

// Caching.
const (
	// DefaultCacheSize bounds the in-memory cache.
	DefaultCacheSize = 1000

	// TokenExpirationBuffer is subtracted from a token's expiry before it is
	// considered stale.
	TokenExpirationBuffer = 30 * time.Second
)

// Durable storage keys for the session.
const (
	// StorageKeyAccessToken holds the bearer credential.
	StorageKeyAccessToken = "accessToken"

	// StorageKeyRefreshToken holds the refresh credential.
	StorageKeyRefreshToken = "refreshToken"

	// StorageKeyUser holds the serialized identity.
	StorageKeyUser = "user"
)

// Gateway paths.
const (
	PathLogin          = "/v1/auth/login"
	PathRefresh        = "/v1/auth/refresh"
	PathLogout         = "/v1/auth/logout"
	PathLogoutAll      = "/v1/auth/logout-all"
	PathRegister       = "/v1/auth/register"
	PathMe             = "/v1/auth/me"
	PathSessions       = "/v1/auth/sessions"
	PathOrganizations  = "/v1/orgs"
	PathOrganizationMe = "/v1/orgs/me"
	PathStations       = "/v1/stations"
)

// DefaultPlanID is the plan assigned to self-service organizations.
const DefaultPlanID = "free"

// Format constants.
const (
	// FormatJSON is the JSON output format.
	FormatJSON = "json"

	// FormatYAML is the YAML output format.
	FormatYAML = "yaml"

	// FormatTable is the table output format.
	FormatTable = "table"
)

// UI and display constants.
const (
	// NotAvailable is shown for empty values.
	NotAvailable = "N/A"
)
