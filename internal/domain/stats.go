package domain

// Statistics summarizes a filtered event set. Values are derived on demand
// and never stored apart from the events that produced them.
type Statistics struct {
	Count             int          `json:"count"`
	MagnitudeCount    int          `json:"magnitude_count"`
	MeanMagnitude     Optional     `json:"mean_magnitude"`
	MaxMagnitude      Optional     `json:"max_magnitude"`
	MaxDepth          Optional     `json:"max_depth_km"`
	MaxMagnitudeEvent *EventRecord `json:"max_magnitude_event"`
	MaxDepthEvent     *EventRecord `json:"max_depth_event"`
}

// Summarize computes Statistics over events. Unknown magnitudes and depths are
// excluded from the aggregates; with no known values the corresponding fields
// stay unknown/nil. Ties for a maximum go to the earliest event, then the
// smallest id.
func Summarize(events []EventRecord) Statistics {
	s := Statistics{Count: len(events)}

	var sum float64
	var bestMag, bestDepth *EventRecord
	for i := range events {
		e := &events[i]
		if mag, ok := e.Magnitude.Get(); ok {
			sum += mag
			s.MagnitudeCount++
			if bestMag == nil || beats(mag, e, bestMag.Magnitude.Or(0), bestMag) {
				bestMag = e
			}
		}
		if depth, ok := e.Depth.Get(); ok {
			if bestDepth == nil || beats(depth, e, bestDepth.Depth.Or(0), bestDepth) {
				bestDepth = e
			}
		}
	}

	if s.MagnitudeCount > 0 {
		s.MeanMagnitude = Known(sum / float64(s.MagnitudeCount))
	}
	if bestMag != nil {
		rec := *bestMag
		s.MaxMagnitudeEvent = &rec
		s.MaxMagnitude = rec.Magnitude
	}
	if bestDepth != nil {
		rec := *bestDepth
		s.MaxDepthEvent = &rec
		s.MaxDepth = rec.Depth
	}
	return s
}

// beats reports whether candidate value v on e should replace the current best.
func beats(v float64, e *EventRecord, best float64, cur *EventRecord) bool {
	if v != best {
		return v > best
	}
	if !e.Time.Equal(cur.Time) {
		return e.Time.Before(cur.Time)
	}
	return e.ID < cur.ID
}
