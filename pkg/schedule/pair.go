package schedule

import (
	"iter"
	"strings"

	"github.com/amsross/transitlambda/pkg/transit"
)

// NormalizeServiceDayTime converts service-day notation to wall-clock by
// rewriting a literal "24:" hour prefix to "00:". The upstream feed only
// ever crosses the boundary at hour 24, so no other hours are rewritten.
func NormalizeServiceDayTime(t string) string {
	if strings.HasPrefix(t, "24:") {
		return "00:" + t[len("24:"):]
	}
	return t
}

// PairLeg finds the destination-side record for origin's trip in the given
// sequence and combines the two halves into a normalized trip leg. The first
// record naming the same trip wins. A pair missing either time is discarded:
// (nil, nil), never a partial leg.
func PairLeg(origin transit.ScheduleStopPair, destinations iter.Seq2[transit.ScheduleStopPair, error]) (*transit.TripLeg, error) {
	for dest, err := range destinations {
		if err != nil {
			return nil, err
		}
		if dest.Trip != origin.Trip {
			continue
		}

		if origin.OriginDepartureTime == "" || dest.DestinationArrivalTime == "" {
			return nil, nil
		}

		headsign := origin.TripHeadsign
		if headsign == "" {
			headsign = dest.TripHeadsign
		}

		return &transit.TripLeg{
			TripHeadsign:           headsign,
			OriginDepartureTime:    NormalizeServiceDayTime(origin.OriginDepartureTime),
			DestinationArrivalTime: NormalizeServiceDayTime(dest.DestinationArrivalTime),
		}, nil
	}

	return nil, nil
}
