package indexing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTrackerReportsAtIntervals(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 5)
	tracker.Start()

	tracker.Update(3)
	assert.Empty(t, buf.String(), "below the interval, nothing is reported")

	tracker.Update(5)
	assert.Contains(t, buf.String(), "5/10")

	tracker.Finish()
	assert.Contains(t, buf.String(), "10/10")
	assert.Contains(t, buf.String(), "100.0%")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressTrackerIgnoresUpdatesBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Update(5)
	tracker.Finish()
	assert.Empty(t, buf.String())
}

func TestProgressTrackerCapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 1)
	tracker.Start()

	tracker.Update(100)
	assert.Contains(t, buf.String(), "4/4")
}

func TestProgressTrackerElapsed(t *testing.T) {
	tracker := NewProgressTracker(&bytes.Buffer{}, 1, 1)
	assert.Zero(t, tracker.Elapsed())

	tracker.Start()
	require.GreaterOrEqual(t, tracker.Elapsed().Nanoseconds(), int64(0))
}

