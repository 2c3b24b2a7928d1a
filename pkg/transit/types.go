// Package transit defines the domain types exchanged with the transit.land
// Datastore API and the normalized results produced by the pipeline.
package transit

// Operator is a transit agency as returned by the operators resource.
// Identified by its Onestop ID, which is globally unique and stable
// across pages.
type Operator struct {
	OnestopID string `json:"onestop_id"`
	ShortName string `json:"short_name"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
}

// Stop is a physical station or platform served by exactly one operator.
type Stop struct {
	OnestopID         string `json:"onestop_id"`
	Name              string `json:"name"`
	Timezone          string `json:"timezone"`
	OperatorOnestopID string `json:"operator_onestop_id"`
}

// ScheduleStopPair is one scheduled event record as returned by the
// schedule_stop_pairs resource: an origin-side or destination-side half of a
// trip leg. Times are feed-notation strings ("HH:MM:SS") and may exceed
// 24:00 for post-midnight continuations of the service day.
type ScheduleStopPair struct {
	Trip                   string `json:"trip"`
	OriginOnestopID        string `json:"origin_onestop_id"`
	DestinationOnestopID   string `json:"destination_onestop_id"`
	OriginDepartureTime    string `json:"origin_departure_time"`
	DestinationArrivalTime string `json:"destination_arrival_time"`
	TripHeadsign           string `json:"trip_headsign"`
}

// StopPair is a resolved origin/destination stop pairing for one operator.
type StopPair struct {
	Timezone             string `json:"timezone"`
	OperatorOnestopID    string `json:"onestop_id"`
	OriginOnestopID      string `json:"origin_onestop_id"`
	DestinationOnestopID string `json:"destination_onestop_id"`
}

// TripLeg is the paired, normalized origin+destination result the pipeline
// produces. Times are wall-clock ("00:00" through "23:59" notation).
type TripLeg struct {
	TripHeadsign           string `json:"trip_headsign"`
	OriginDepartureTime    string `json:"origin_departure_time"`
	DestinationArrivalTime string `json:"destination_arrival_time"`
}
