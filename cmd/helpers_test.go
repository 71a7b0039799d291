//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/semitone-cli/internal/config"
	"github.com/sells-group/semitone-cli/internal/flat"
	"github.com/sells-group/semitone-cli/internal/model"
	"github.com/sells-group/semitone-cli/internal/resilience"
)

// setTestConfig installs a default configuration for the command globals.
func setTestConfig(t *testing.T) {
	t.Helper()
	schema := flat.DefaultSchema()
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver: "memory",
			Retry:  resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
		},
		Log:    config.LogConfig{Level: "info", Format: "json"},
		Schema: schema,
		Filter: model.RoomFilter{Category: model.CategoryRooms, Param: schema.FlatParam, Marker: "Квартира"},
		Import: config.ImportConfig{MaxConcurrentFiles: 2},
	}
	t.Cleanup(func() { cfg = prev })
}

// apartmentRoom builds a room of flat n on level L1, section B1, type 2K.
func apartmentRoom(id string, n string) *model.Room {
	return model.NewRoom(id, map[string]string{
		"Уровень":                  "L1",
		"BS_Блок":                  "B1",
		"ROM_Подзона":              "2K",
		"ROM_Зона":                 "Квартира " + n,
		"ROM_Расчетная_подзона_ID": "Z" + n,
		"ROM_Подзона_Index":        "",
	})
}

func subZone(r *model.Room) string {
	v, _ := r.Param("ROM_Подзона_Index")
	return v
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const scheduleHeader = "id,Уровень,BS_Блок,ROM_Подзона,ROM_Зона,ROM_Расчетная_подзона_ID,ROM_Подзона_Index\n"
