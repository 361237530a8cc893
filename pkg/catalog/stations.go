package catalog

import (
	"github.com/travio/travio-client/pkg/travio"
)

// StationsName is the resource name of the stations catalog.
const StationsName = "stations"

// Stations is the catalog of boardable stations.
type Stations = Store[travio.Station]

// NewStations creates the stations catalog. Name and ID are fixed; every
// other option is taken from options.
func NewStations(source travio.StationsClient, options Options[travio.Station]) *Stations {
	options.Name = StationsName
	options.ID = stationID

	return New[travio.Station](source, options)
}

func stationID(station travio.Station) string {
	return station.ID
}
