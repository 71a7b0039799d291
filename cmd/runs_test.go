//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/semitone-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Source:      "sqlite:semitone.db",
			Status:      model.RunStatusSucceeded,
			Rooms:       120,
			Flats:       40,
			MarkedFlats: 18,
			StartedAt:   now,
			FinishedAt:  now.Add(1500 * time.Millisecond),
		},
		{
			ID:         "def12345-6789-0000-0000-000000000000",
			Source:     "postgres:postgres://user@db.internal:5432/building_model",
			Status:     model.RunStatusFailed,
			Error:      "mark: flat: set semitone on flat 12 [L1 B1 2K]: room is locked",
			StartedAt:  now.Add(-time.Hour),
			FinishedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "succeeded")
	assert.Contains(t, output, "18/40")
	assert.Contains(t, output, "1.5s")
	assert.Contains(t, output, "2026-06-15 10:30")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "building_model")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, "room is locked")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
