package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travio/travio-client/pkg/travio"
)

func TestStationsClient_Get(t *testing.T) {
	t.Parallel()

	tests := []TestGetOperation[travio.Station]{
		{
			Name:         "found",
			ID:           "st-1",
			ExpectedPath: "/v1/stations/st-1",
			StatusCode:   http.StatusOK,
			Response:     travio.Station{ID: "st-1", Code: "BCN", Name: "Barcelona Sants"},
		},
		{
			Name:         "id is escaped",
			ID:           "a/b",
			ExpectedPath: "/v1/stations/a%2Fb",
			StatusCode:   http.StatusOK,
			Response:     travio.Station{ID: "a/b"},
		},
		{
			Name:         "not found",
			ID:           "missing",
			ExpectedPath: "/v1/stations/missing",
			StatusCode:   http.StatusNotFound,
			Response:     map[string]string{"message": "station not found"},
			WantErr:      true,
			ErrMessage:   "station not found",
		},
	}

	RunGetTests(t, tests, func(c *Client) func(context.Context, string) (*travio.Station, error) {
		return c.Stations().Get
	})
}

func TestStationsClient_List(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stations", r.URL.Path)
		assert.Equal(t, "madrid", r.URL.Query().Get("search_query"))
		assert.Equal(t, "50", r.URL.Query().Get("page_size"))
		assert.Equal(t, "tok", r.URL.Query().Get("page_token"))

		writeJSON(w, http.StatusOK, travio.ListResponse[travio.Station]{
			Items:         []travio.Station{{ID: "st-1"}, {ID: "st-2"}},
			Total:         120,
			NextPageToken: "next",
		})
	}))
	defer server.Close()

	client := NewTestClient(t, server, nil)

	params := travio.NewQueryParams().WithSearch("  madrid ").WithPageSize(50).WithPageToken("tok")

	page, err := client.Stations().List(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 120, page.Total)
	assert.Equal(t, "next", page.NextPageToken)
}

func TestStationsClient_ListAllPages(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		token := r.URL.Query().Get("page_token")

		var page travio.ListResponse[travio.Station]

		switch token {
		case "":
			page = travio.ListResponse[travio.Station]{Items: makeStations(0, 2), NextPageToken: "2"}
		case "2":
			page = travio.ListResponse[travio.Station]{Items: makeStations(2, 2), NextPageToken: "4"}
		default:
			page = travio.ListResponse[travio.Station]{Items: makeStations(4, 1)}
		}

		writeJSON(w, http.StatusOK, page)
	}))
	defer server.Close()

	client := NewTestClient(t, server, nil)

	stations, err := travio.FetchAllPages(context.Background(), client.Stations().List, travio.NewQueryParams(), &travio.PaginationOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, stations, 5)
	assert.Equal(t, "st-4", stations[4].ID)
	assert.Equal(t, int32(3), calls.Load())
}

func makeStations(from, count int) []travio.Station {
	stations := make([]travio.Station, 0, count)
	for i := from; i < from+count; i++ {
		stations = append(stations, travio.Station{ID: fmt.Sprintf("st-%d", i), Name: fmt.Sprintf("Station %d", i)})
	}

	return stations
}
