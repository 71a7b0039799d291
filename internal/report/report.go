// Package report renders the outcome of a marking run for review.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/semitone-cli/internal/flat"
)

// Report lists the marked flats of one run grouped by building bucket.
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Source      string    `json:"source" yaml:"source"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	DryRun      bool      `json:"dry_run" yaml:"dry_run"`
	Rooms       int       `json:"rooms" yaml:"rooms"`
	Flats       int       `json:"flats" yaml:"flats"`
	MarkedFlats int       `json:"marked_flats" yaml:"marked_flats"`
	MarkedRooms int       `json:"marked_rooms" yaml:"marked_rooms"`
	Buckets     []Bucket  `json:"buckets" yaml:"buckets"`
}

// Bucket is one (level, section, flat type) group with marked flats.
type Bucket struct {
	Key   string       `json:"key" yaml:"key"`
	Flats []MarkedFlat `json:"flats" yaml:"flats"`
}

// MarkedFlat is a flat that received the semitone identifier.
type MarkedFlat struct {
	Number    int    `json:"number" yaml:"number"`
	Rooms     int    `json:"rooms" yaml:"rooms"`
	SubZoneID string `json:"sub_zone_id" yaml:"sub_zone_id"`
}

// New builds a report from a processing result.
func New(runID, source string, res *flat.Result, now time.Time) *Report {
	r := &Report{
		RunID:       runID,
		Source:      source,
		GeneratedAt: now.UTC(),
		Rooms:       res.Rooms,
		Flats:       res.Flats,
		MarkedFlats: res.MarkedFlats,
		MarkedRooms: res.MarkedRooms,
	}

	byKey := make(map[string]*Bucket)
	var keys []string
	for _, m := range res.Marked {
		b, ok := byKey[m.Key]
		if !ok {
			b = &Bucket{Key: m.Key}
			byKey[m.Key] = b
			keys = append(keys, m.Key)
		}
		b.Flats = append(b.Flats, MarkedFlat{Number: m.Number, Rooms: m.Rooms, SubZoneID: m.SubZoneID})
	}
	sort.Strings(keys)
	for _, k := range keys {
		b := byKey[k]
		sort.Slice(b.Flats, func(i, j int) bool { return b.Flats[i].Number < b.Flats[j].Number })
		r.Buckets = append(r.Buckets, *b)
	}
	return r
}

// Encode renders the report as YAML or JSON.
func (r *Report) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		return data, eris.Wrap(err, "report: marshal json")
	case "yaml", "yml", "":
		data, err := yaml.Marshal(r)
		return data, eris.Wrap(err, "report: marshal yaml")
	default:
		return nil, eris.Errorf("report: unsupported format %q", format)
	}
}

// WriteFile writes the report, picking the format from the file extension.
func (r *Report) WriteFile(path string) error {
	data, err := r.Encode(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "report: write %s", path)
}
