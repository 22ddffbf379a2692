package domain

import (
	"context"
	"time"
)

// Query is a request to the remote event service.
type Query struct {
	Start        time.Time
	End          time.Time
	MinMagnitude Optional
	MaxMagnitude Optional
	OrderBy      string
	AlertLevel   string
	Limit        int
	Bounds       *BoundingBox
}

// EventFetcher retrieves candidate events from the remote service.
type EventFetcher interface {
	// FetchEvents returns the raw features matching q. An empty slice with a
	// nil error means the query matched nothing.
	FetchEvents(ctx context.Context, q Query) ([]RawFeature, error)
}
