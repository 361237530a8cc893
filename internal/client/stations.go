package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/internal/http"
	"github.com/travio/travio-client/pkg/travio"
)

// StationsClient implements travio.StationsClient.
type StationsClient struct {
	httpClient http.Requester
}

// NewStationsClient creates a new stations client.
func NewStationsClient(httpClient http.Requester) *StationsClient {
	return &StationsClient{
		httpClient: httpClient,
	}
}

// Get implements travio.StationsClient.Get.
func (c *StationsClient) Get(ctx context.Context, id string) (*travio.Station, error) {
	path := constants.PathStations + "/" + url.PathEscape(id)

	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting station: %w", err)
	}

	var station travio.Station

	err = resp.Decode(&station)
	if err != nil {
		return nil, fmt.Errorf("parsing station: %w", err)
	}

	return &station, nil
}

// List implements travio.StationsClient.List.
func (c *StationsClient) List(ctx context.Context, params *travio.QueryParams) (*travio.ListResponse[travio.Station], error) {
	resp, err := c.httpClient.Get(ctx, constants.PathStations, params.ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing stations: %w", err)
	}

	var list travio.ListResponse[travio.Station]

	err = resp.Decode(&list)
	if err != nil {
		return nil, fmt.Errorf("parsing stations list: %w", err)
	}

	return &list, nil
}
