package client

import (
	"strings"

	"github.com/travio/travio-client/internal/auth"
	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/internal/http"
	"github.com/travio/travio-client/pkg/travio"
)

// Client implements the travio.Client interface.
//
// It owns two transports over the same base URL: the public transport sends
// whatever bearer token is current and reports every failure as-is, and the
// session transport wraps it with the refresh-and-replay policy.
type Client struct {
	public  *http.Client
	session http.Requester
	baseURL string
	logger  travio.Logger

	// Resource clients
	auth          *AuthClient
	organizations *OrganizationsClient
	stations      *StationsClient
}

// NormalizeEndpoint trims a trailing slash and defaults the scheme to https.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return strings.TrimRight(endpoint, "/")
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *travio.Config, metrics *travio.Metrics) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	chain := travio.NewInterceptorChain()
	chain.AddRequestInterceptor(travio.RequestIDInterceptor())

	if len(config.Headers) > 0 {
		chain.AddRequestInterceptor(travio.HeaderInterceptor(config.Headers))
	}

	if metrics != nil {
		metrics.Instrument(chain)
	}

	httpOpts = append(httpOpts, http.WithInterceptors(chain))

	return httpOpts
}

// New creates a gateway client. tokenManager supplies the bearer credential
// and performs refreshes; signals receives the outcome of each refresh.
// metrics may be nil.
func New(config *travio.Config, tokenManager auth.TokenManager, signals *travio.Signals, metrics *travio.Metrics) (*Client, error) {
	if config == nil {
		return nil, travio.ErrConfigRequired
	}

	baseURL := NormalizeEndpoint(config.APIEndpoint)
	if baseURL == "" {
		return nil, travio.ErrAPIEndpointRequired
	}

	httpClient := http.NewClient(baseURL, tokenManager, createHTTPClientOptions(config, metrics)...)

	var session http.Requester = httpClient
	if tokenManager != nil {
		session = auth.NewRefreshingClient(httpClient, tokenManager, signals, config.Logger)
	}

	client := &Client{
		public:  httpClient,
		session: session,
		baseURL: baseURL,
		logger:  travio.LoggerOrNop(config.Logger),
	}

	// Initialize resource clients
	client.initializeResourceClients()

	client.logger.Debug("gateway client ready", map[string]interface{}{
		"endpoint": baseURL,
		"retries":  config.RetryMax,
	})

	return client, nil
}

func (c *Client) initializeResourceClients() {
	c.auth = NewAuthClient(c.public, c.session)
	c.organizations = NewOrganizationsClient(c.public, c.session)
	c.stations = NewStationsClient(c.session)
}

// BaseURL returns the normalized gateway URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Auth implements travio.Client.Auth.
func (c *Client) Auth() travio.AuthClient {
	return c.auth
}

// Organizations implements travio.Client.Organizations.
func (c *Client) Organizations() travio.OrganizationsClient {
	return c.organizations
}

// Stations implements travio.Client.Stations.
func (c *Client) Stations() travio.StationsClient {
	return c.stations
}
