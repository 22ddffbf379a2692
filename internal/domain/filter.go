package domain

// Filter returns the events satisfying c, in input order. The input slice is
// not modified. Invalid criteria yield a *ValidationError and no events.
//
// An event is kept when its time lies in [Start, End], its magnitude lies in
// [MinMagnitude, MaxMagnitude] (see Criteria for the unknown-magnitude
// policy), and its location matches c.Regions.
func Filter(events []EventRecord, c Criteria) ([]EventRecord, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	matcher := NewMatcher(c.Regions)
	magOpen := c.MagnitudeUnrestricted()

	out := make([]EventRecord, 0, len(events))
	for _, e := range events {
		if !withinTime(e, c) || !withinMagnitude(e, c, magOpen) || !matcher.Matches(e.Location) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func withinTime(e EventRecord, c Criteria) bool {
	if !c.Start.IsZero() && e.Time.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && e.Time.After(c.End) {
		return false
	}
	return true
}

func withinMagnitude(e EventRecord, c Criteria, unrestricted bool) bool {
	mag, ok := e.Magnitude.Get()
	if !ok {
		return unrestricted
	}
	if lo, ok := c.MinMagnitude.Get(); ok && mag < lo {
		return false
	}
	if hi, ok := c.MaxMagnitude.Get(); ok && mag > hi {
		return false
	}
	return true
}
