// Package travioclient assembles the gateway transport, the session store and
// the stations catalog into one application root.
package travioclient

import (
	"context"
	"fmt"
	"time"

	"github.com/travio/travio-client/internal/auth"
	"github.com/travio/travio-client/internal/client"
	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/catalog"
	"github.com/travio/travio-client/pkg/session"
	"github.com/travio/travio-client/pkg/travio"
)

// App owns every stateful component for one user of the gateway.
type App struct {
	Session  *session.Store
	Stations *catalog.Stations
	Signals  *travio.Signals
	// Metrics is nil unless Config.MetricsRegisterer was set.
	Metrics *travio.Metrics

	client        *client.Client
	tokens        *auth.SessionTokenManager
	storage       travio.Cache
	durable       *travio.CacheManager
	logger        travio.Logger
	subscriptions []*travio.Subscription
}

// New builds an App from config and restores any stored session.
func New(ctx context.Context, config *travio.Config) (*App, error) {
	if config == nil {
		return nil, travio.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, travio.ErrAPIEndpointRequired
	}

	logger := travio.LoggerOrNop(config.Logger)

	storage, err := newStorage(ctx, config.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening session storage: %w", err)
	}

	tokens := auth.NewSessionTokenManager(storage, nil, logger)
	tokens.Load(ctx)

	if config.AccessToken != "" {
		err = tokens.SetTokens(ctx, &travio.TokenPair{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
		})
		if err != nil {
			_ = travio.CloseCache(storage)

			return nil, fmt.Errorf("seeding credentials: %w", err)
		}
	}

	app := &App{
		Signals: travio.NewSignals(logger),
		tokens:  tokens,
		storage: storage,
		logger:  logger,
	}

	if config.MetricsRegisterer != nil {
		app.Metrics = travio.NewMetrics(config.MetricsRegisterer)
		app.subscriptions = append(app.subscriptions, app.Metrics.WatchSignals(app.Signals))
	}

	app.client, err = client.New(config, tokens, app.Signals, app.Metrics)
	if err != nil {
		_ = travio.CloseCache(storage)

		return nil, err
	}

	tokens.SetRefresher(app.client.Auth())

	var cacheOptions *travio.CacheOptions
	if config.Cache != nil {
		cacheOptions = config.Cache.Options
	}

	app.durable = travio.NewCacheManager(storage, cacheOptions)

	app.Session = session.New(session.Config{
		Auth:          app.client.Auth(),
		Organizations: app.client.Organizations(),
		Credentials:   tokens,
		Storage:       storage,
		Signals:       app.Signals,
		Logger:        logger,
	})

	app.Stations = catalog.NewStations(app.client.Stations(), catalog.Options[travio.Station]{
		PageSize:    config.PageSize,
		Mode:        config.PaginationMode,
		Durable:     app.durable,
		TTL:         config.PointLookupTTL,
		Concurrency: constants.DefaultConcurrencyLimit,
		Logger:      logger,
		Metrics:     app.Metrics,
	})

	// Catalog pages were fetched under the tenant's credentials.
	app.subscriptions = append(app.subscriptions, app.Signals.Subscribe(func(travio.SignalKind) {
		app.Stations.Clear()
	}, travio.SignalAuthCleared))

	app.Session.Initialize(ctx)

	return app, nil
}

// newStorage opens the durable backend. Persistent backends are fronted by
// an in-memory tier.
func newStorage(ctx context.Context, config *travio.CacheConfig) (travio.Cache, error) {
	if config == nil {
		return travio.NewMemoryCache(constants.DefaultCacheSize), nil
	}

	backend, err := travio.NewCacheFromConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if sqlite, ok := backend.(*travio.SQLiteCache); ok {
		_, err = sqlite.Purge(ctx)
		if err != nil {
			_ = sqlite.Close()

			return nil, err
		}
	}

	switch config.Type {
	case travio.CacheTypeSQLite, travio.CacheTypeNATS:
		return travio.NewCacheChain(travio.NewMemoryCacheFromConfig(ctx, config.Memory), backend), nil
	default:
		return backend, nil
	}
}

// Client returns the gateway resource clients.
func (a *App) Client() travio.Client {
	return a.client
}

// BaseURL returns the normalized gateway URL.
func (a *App) BaseURL() string {
	return a.client.BaseURL()
}

// Credentials exposes the bearer credential store.
func (a *App) Credentials() travio.CredentialStore {
	return a.tokens
}

// TokenExpiry returns when the current access token expires. It is zero when
// there is no token or the token carries no expiry.
func (a *App) TokenExpiry() time.Time {
	return a.tokens.GetTokenExpiry()
}

// TokenExpiresWithin reports whether the access token is missing or expires
// within d.
func (a *App) TokenExpiresWithin(d time.Duration) bool {
	return a.tokens.IsTokenExpiringSoon(d)
}

// CacheStats reports point-lookup cache activity.
func (a *App) CacheStats() *travio.CacheStats {
	return a.durable.GetStats()
}

// Close detaches the stores from the signal bus and releases the storage.
func (a *App) Close() error {
	a.Session.Close()

	for _, sub := range a.subscriptions {
		a.Signals.Unsubscribe(sub)
	}

	a.subscriptions = nil

	err := travio.CloseCache(a.storage)
	if err != nil {
		return fmt.Errorf("closing storage: %w", err)
	}

	return nil
}
