package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptWindowNext(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	first := AttemptWindow{SubjectKey: "login:abc"}.Next(now, window)
	assert.Equal(t, 1, first.Count)
	assert.True(t, first.WindowEndsAt.Equal(now.Add(window)), "fresh window ends at %s", first.WindowEndsAt)

	second := first.Next(now.Add(time.Minute), window)
	assert.Equal(t, 2, second.Count)
	assert.True(t, second.WindowEndsAt.Equal(first.WindowEndsAt), "window end moved to %s", second.WindowEndsAt)

	// A window ending exactly at now has lapsed.
	reset := second.Next(second.WindowEndsAt, window)
	assert.Equal(t, 1, reset.Count)
	assert.True(t, reset.WindowEndsAt.Equal(second.WindowEndsAt.Add(window)), "reset window ends at %s", reset.WindowEndsAt)
}
