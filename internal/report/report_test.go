package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/semitone-cli/internal/flat"
)

func testResult() *flat.Result {
	return &flat.Result{
		Rooms: 9, Flats: 6, Buckets: 2, MarkedFlats: 3, MarkedRooms: 4,
		Marked: []flat.Marked{
			{Key: "L2 B1 2K", Number: 5, Rooms: 1, SubZoneID: "Z5.Полутон"},
			{Key: "L1 B1 2K", Number: 12, Rooms: 1, SubZoneID: "Z12.Полутон"},
			{Key: "L1 B1 2K", Number: 10, Rooms: 2, SubZoneID: "Z10.Полутон"},
		},
	}
}

func TestNew_GroupsAndSorts(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := New("run-1", "rooms.db", testResult(), now)

	assert.Equal(t, 3, r.MarkedFlats)
	require.Len(t, r.Buckets, 2)
	assert.Equal(t, "L1 B1 2K", r.Buckets[0].Key)
	require.Len(t, r.Buckets[0].Flats, 2)
	assert.Equal(t, 10, r.Buckets[0].Flats[0].Number)
	assert.Equal(t, 12, r.Buckets[0].Flats[1].Number)
	assert.Equal(t, "L2 B1 2K", r.Buckets[1].Key)
}

func TestEncode_YAML(t *testing.T) {
	r := New("run-1", "rooms.db", testResult(), time.Now())
	data, err := r.Encode("yaml")
	require.NoError(t, err)

	var back Report
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "run-1", back.RunID)
	assert.Equal(t, "Z10.Полутон", back.Buckets[0].Flats[0].SubZoneID)
}

func TestEncode_JSON(t *testing.T) {
	r := New("run-1", "rooms.db", testResult(), time.Now())
	data, err := r.Encode("JSON")
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, float64(4), back["marked_rooms"])
}

func TestEncode_Unsupported(t *testing.T) {
	r := New("run-1", "rooms.db", &flat.Result{}, time.Now())
	_, err := r.Encode("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestWriteFile(t *testing.T) {
	r := New("run-1", "rooms.db", testResult(), time.Now())
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "marked_flats: 3")
}
