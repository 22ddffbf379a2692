package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil)

	assert.Equal(t, 0, stats.Count)
	assert.Equal(t, 0, stats.MagnitudeCount)
	assert.False(t, stats.MeanMagnitude.IsKnown())
	assert.False(t, stats.MaxDepth.IsKnown())
	assert.Nil(t, stats.MaxMagnitudeEvent)
	assert.Nil(t, stats.MaxDepthEvent)
}

func TestSummarize_UnknownMagnitudeDoesNotShiftMean(t *testing.T) {
	events := turkeyEvents()
	before := Summarize(events)

	events = append(events, EventRecord{ID: "nomag", Time: date(2023, 2, 11), Depth: Known(700)})
	after := Summarize(events)

	assert.Equal(t, 3, after.Count)
	assert.Equal(t, 2, after.MagnitudeCount)
	assert.Equal(t, before.MeanMagnitude, after.MeanMagnitude)
	require.NotNil(t, after.MaxDepthEvent)
	assert.Equal(t, "nomag", after.MaxDepthEvent.ID, "unknown magnitude still counts for depth")
}

func TestSummarize_NoKnownMagnitudes(t *testing.T) {
	events := []EventRecord{
		{ID: "a", Time: date(2023, 1, 1)},
		{ID: "b", Time: date(2023, 1, 2)},
	}
	stats := Summarize(events)

	assert.Equal(t, 2, stats.Count)
	assert.False(t, stats.MeanMagnitude.IsKnown())
	assert.Nil(t, stats.MaxMagnitudeEvent)
	assert.Nil(t, stats.MaxDepthEvent)
}

func TestSummarize_MaxDepthAndNegativeDepth(t *testing.T) {
	events := []EventRecord{
		testEvent("shallow", 2, -1.5, date(2023, 1, 1), 0, 0),
		testEvent("deep", 2, 600, date(2023, 1, 2), 0, 0),
	}
	stats := Summarize(events)

	require.NotNil(t, stats.MaxDepthEvent)
	assert.Equal(t, "deep", stats.MaxDepthEvent.ID)
	assert.Equal(t, Known(600), stats.MaxDepth)
}

func TestSummarize_TieBreaks(t *testing.T) {
	t0 := date(2023, 2, 6)

	t.Run("earliest time wins", func(t *testing.T) {
		events := []EventRecord{
			testEvent("later", 7.8, 10, t0.Add(time.Hour), 0, 0),
			testEvent("earlier", 7.8, 10, t0, 0, 0),
		}
		stats := Summarize(events)
		assert.Equal(t, "earlier", stats.MaxMagnitudeEvent.ID)
		assert.Equal(t, "earlier", stats.MaxDepthEvent.ID)
	})

	t.Run("then smallest id", func(t *testing.T) {
		events := []EventRecord{
			testEvent("us2", 7.8, 10, t0, 0, 0),
			testEvent("us1", 7.8, 10, t0, 0, 0),
		}
		stats := Summarize(events)
		assert.Equal(t, "us1", stats.MaxMagnitudeEvent.ID)
		assert.Equal(t, "us1", stats.MaxDepthEvent.ID)
	})
}

func TestSummarize_ReturnsCopies(t *testing.T) {
	events := turkeyEvents()
	stats := Summarize(events)
	stats.MaxMagnitudeEvent.Place = "changed"
	assert.Empty(t, events[1].Place)
}
