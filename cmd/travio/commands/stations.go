package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/travio/travio-client/internal/config"
	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/catalog"
	"github.com/travio/travio-client/pkg/travio"
	"github.com/travio/travio-client/pkg/travioclient"
)

// NewStationsCommand creates the stations command group.
func NewStationsCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stations",
		Aliases: []string{"station", "st"},
		Short:   "Browse the stations catalog",
		Long:    "List, search and look up boardable stations",
	}

	cmd.AddCommand(newStationsListCommand(rt))
	cmd.AddCommand(newStationsSearchCommand(rt))
	cmd.AddCommand(newStationsGetCommand(rt))

	return cmd
}

func newStationsListCommand(rt *Runtime) *cobra.Command {
	var (
		all   bool
		pages int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				if all {
					stations, err := rt.fetchAllStations(ctx, app)
					if err != nil {
						return err
					}

					return rt.renderStations(cmd, stations, false)
				}

				_, err := app.Stations.Load(ctx, true)
				if err != nil {
					return fmt.Errorf("failed to list stations: %w", err)
				}

				err = loadMorePages(ctx, app.Stations, pages)
				if err != nil {
					return err
				}

				return rt.renderStations(cmd, app.Stations.Visible(), app.Stations.HasMore())
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")

	return cmd
}

// fetchAllStations walks the whole catalog. Cursor mode follows
// next_page_token; offset mode keeps loading until a short page.
func (rt *Runtime) fetchAllStations(ctx context.Context, app *travioclient.App) ([]travio.Station, error) {
	mode := travio.PaginationMode(rt.Viper.GetString(config.KeyPagination))
	if mode == travio.PaginationOffset {
		_, err := app.Stations.Load(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("failed to list stations: %w", err)
		}

		err = loadMorePages(ctx, app.Stations, 0)
		if err != nil {
			return nil, err
		}

		return app.Stations.Visible(), nil
	}

	params := travio.NewQueryParams().WithPageSize(rt.Viper.GetInt(config.KeyPageSize))

	stations, err := travio.FetchAllPages(ctx, app.Client().Stations().List, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	return stations, nil
}

// loadMorePages appends pages until the total reaches pages. Zero loads
// until the collection is exhausted.
func loadMorePages(ctx context.Context, stations *catalog.Stations, pages int) error {
	for page := 1; pages <= 0 || page < pages; page++ {
		if !stations.HasMore() {
			return nil
		}

		_, err := stations.LoadMore(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch page %d: %w", page+1, err)
		}
	}

	return nil
}

func newStationsSearchCommand(rt *Runtime) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search stations by name, code or city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				_, err := app.Stations.Search(ctx, query)
				if err != nil {
					return fmt.Errorf("failed to search stations: %w", err)
				}

				err = loadMorePages(ctx, app.Stations, pages)
				if err != nil {
					return err
				}

				return rt.renderStations(cmd, app.Stations.Visible(), app.Stations.HasMore())
			})
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")

	return cmd
}

func newStationsGetCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get STATION_ID...",
		Short: "Show stations by id",
		Long:  "Look up stations by id. Lookups are served from the local cache when possible.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *travioclient.App) error {
				if len(args) == 1 {
					station := app.Stations.GetByID(ctx, args[0])
					if station == nil {
						return fmt.Errorf("%w: %s", constants.ErrStationNotFound, args[0])
					}

					return rt.render(cmd, station, func(w io.Writer) error {
						return renderStationDetails(w, station)
					})
				}

				app.Stations.Warm(ctx, args)

				stations := make([]travio.Station, 0, len(args))

				for _, id := range args {
					station := app.Stations.GetByID(ctx, id)
					if station == nil {
						notice(cmd, "Station %s not found", id)

						continue
					}

					stations = append(stations, *station)
				}

				return rt.renderStations(cmd, stations, false)
			})
		},
	}
}

func (rt *Runtime) renderStations(cmd *cobra.Command, stations []travio.Station, hasMore bool) error {
	return rt.render(cmd, stations, func(w io.Writer) error {
		if len(stations) == 0 {
			_, _ = io.WriteString(w, "No stations found\n")

			return nil
		}

		table := tablewriter.NewWriter(w)
		table.Header("ID", "Code", "Name", "City", "Country", "Timezone")

		for _, s := range stations {
			_ = table.Append(s.ID, s.Code, s.Name, s.City, s.Country, s.Timezone)
		}

		err := table.Render()
		if err != nil {
			return err
		}

		if hasMore {
			_, _ = fmt.Fprintf(w, "\nShowing %d stations. Use --pages or --all to fetch more.\n", len(stations))
		}

		return nil
	})
}

func renderStationDetails(w io.Writer, station *travio.Station) error {
	return propertyTable(w, [][2]string{
		{"ID", station.ID},
		{"Code", station.Code},
		{"Name", station.Name},
		{"City", station.City},
		{"State", station.State},
		{"Country", station.Country},
		{"Latitude", strconv.FormatFloat(station.Latitude, 'f', 6, 64)},
		{"Longitude", strconv.FormatFloat(station.Longitude, 'f', 6, 64)},
		{"Timezone", station.Timezone},
		{"Amenities", strings.Join(station.Amenities, ", ")},
	})
}
