package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestLaneTransitionsAreMonotonic(t *testing.T) {
	tr := NewTracking("t-1", "tenant-1", base.Add(time.Hour), base.Add(4*time.Hour))

	assert.True(t, tr.MarkWarned(LaneResponse))
	assert.False(t, tr.MarkWarned(LaneResponse), "repeat warning must be a no-op")
	assert.Equal(t, LaneWarned, tr.ResponseState)

	assert.True(t, tr.MarkBreached(LaneResponse))
	assert.False(t, tr.MarkBreached(LaneResponse), "repeat breach must be a no-op")
	assert.Equal(t, LaneBreached, tr.ResponseState)

	// warning after breach never fires
	assert.False(t, tr.MarkWarned(LaneResponse))
	assert.True(t, tr.WarningResponseSent)

	// the other lane is untouched
	assert.Equal(t, LaneActive, tr.ResolutionState)
}

func TestBreachWithoutPriorWarning(t *testing.T) {
	tr := NewTracking("t-1", "tenant-1", base.Add(time.Hour), base.Add(4*time.Hour))

	assert.True(t, tr.MarkBreached(LaneResolution))
	assert.False(t, tr.WarningResolutionSent)
	assert.Equal(t, LaneBreached, tr.ResolutionState)
}

func TestResumeCreditsWholeMinutes(t *testing.T) {
	tr := NewTracking("t-1", "tenant-1", base.Add(time.Hour), base.Add(4*time.Hour))

	assert.True(t, tr.Pause(base.Add(10*time.Minute)))
	assert.False(t, tr.Pause(base.Add(20*time.Minute)), "pause while paused is a no-op")

	// 90s pause credits 1 whole minute
	added := tr.Resume(base.Add(10*time.Minute + 90*time.Second))
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, tr.PausedMinutes)
	assert.Equal(t, base.Add(61*time.Minute), tr.ResponseDeadline)
	assert.Equal(t, base.Add(241*time.Minute), tr.ResolutionDeadline)

	assert.Equal(t, 0, tr.Resume(base.Add(2*time.Hour)), "resume while running is a no-op")
}

func TestResumeClampsClockSkew(t *testing.T) {
	tr := NewTracking("t-1", "tenant-1", base.Add(time.Hour), base.Add(4*time.Hour))

	tr.Pause(base.Add(10 * time.Minute))
	added := tr.Resume(base.Add(5 * time.Minute))
	assert.Equal(t, 0, added)
	assert.Equal(t, base.Add(time.Hour), tr.ResponseDeadline, "deadlines never move backward")
}

func TestSettled(t *testing.T) {
	tr := NewTracking("t-1", "tenant-1", base.Add(time.Hour), base.Add(4*time.Hour))
	assert.False(t, tr.Settled())

	tr.MarkWarned(LaneResponse)
	tr.MarkWarned(LaneResolution)
	tr.MarkBreached(LaneResponse)
	assert.False(t, tr.Settled())

	tr.MarkBreached(LaneResolution)
	assert.True(t, tr.Settled())
}
