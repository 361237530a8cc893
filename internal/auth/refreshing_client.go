package auth

import (
	"context"

	internalhttp "github.com/travio/travio-client/internal/http"
	"github.com/travio/travio-client/pkg/travio"
)

// RefreshingClient recovers from an expired session: a 401 on a first attempt
// triggers one credential refresh followed by one replay of the request.
//
// Concurrent 401s each run their own refresh; nothing de-duplicates them.
type RefreshingClient struct {
	internalhttp.Methods

	next    internalhttp.Doer
	tokens  TokenManager
	signals *travio.Signals
	logger  travio.Logger
}

// NewRefreshingClient wraps next. signals receives SignalSessionRefreshed and
// SignalAuthCleared.
func NewRefreshingClient(next internalhttp.Doer, tokens TokenManager, signals *travio.Signals, logger travio.Logger) *RefreshingClient {
	c := &RefreshingClient{
		next:    next,
		tokens:  tokens,
		signals: signals,
		logger:  travio.LoggerOrNop(logger),
	}

	c.Methods = internalhttp.Methods{Doer: c}

	return c
}

// Do sends req and applies the refresh-and-replay policy to its outcome.
func (c *RefreshingClient) Do(ctx context.Context, req *internalhttp.Request) (*internalhttp.Response, error) {
	resp, err := c.next.Do(ctx, req)
	if err == nil || req.Retry || !travio.IsUnauthorized(err) {
		return resp, err
	}

	c.logger.Debug("session expired, refreshing", map[string]interface{}{
		"method": req.Method,
		"path":   req.Path,
	})

	refreshErr := c.tokens.RefreshToken(ctx)
	if refreshErr != nil {
		c.logger.Info("session refresh failed", map[string]interface{}{
			"path":  req.Path,
			"error": refreshErr.Error(),
		})

		c.publish(travio.SignalAuthCleared)

		return resp, err
	}

	c.publish(travio.SignalSessionRefreshed)

	replay := req.Clone()
	replay.Retry = true

	return c.next.Do(ctx, replay)
}

func (c *RefreshingClient) publish(kind travio.SignalKind) {
	if c.signals != nil {
		c.signals.Publish(kind)
	}
}
