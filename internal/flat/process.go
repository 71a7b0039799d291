package flat

import (
	"go.uber.org/zap"

	"github.com/sells-group/semitone-cli/internal/model"
)

// Marked describes one flat that carries the semitone identifier. Rooms
// counts the rooms actually written.
type Marked struct {
	Key       string `json:"key" yaml:"key"`
	Number    int    `json:"number" yaml:"number"`
	Rooms     int    `json:"rooms" yaml:"rooms"`
	SubZoneID string `json:"sub_zone_id" yaml:"sub_zone_id"`
}

// Result summarizes a Process call.
type Result struct {
	Rooms       int      `json:"rooms" yaml:"rooms"`
	Flats       int      `json:"flats" yaml:"flats"`
	Buckets     int      `json:"buckets" yaml:"buckets"`
	MarkedFlats int      `json:"marked_flats" yaml:"marked_flats"`
	MarkedRooms int      `json:"marked_rooms" yaml:"marked_rooms"`
	Marked      []Marked `json:"marked" yaml:"marked"`
}

// Process groups rooms into flats and marks adjacent flats in place. It must
// run inside the host's write transaction: on error some rooms may already
// hold the new sub-zone value and the transaction has to be rolled back.
func Process(schema Schema, rooms []model.Record) (*Result, error) {
	buckets := Build(schema, rooms)
	flats := buckets.Flats()

	res := &Result{
		Rooms:   len(rooms),
		Flats:   len(flats),
		Buckets: len(buckets),
	}

	marked, err := Scan(buckets)
	if err != nil {
		zap.L().Error("flat: scan failed",
			zap.Int("marked_before_error", marked),
			zap.Error(err),
		)
		return nil, err
	}

	for _, f := range flats {
		if !f.IsSemitone() {
			continue
		}
		res.MarkedRooms += f.Written()
		res.Marked = append(res.Marked, Marked{
			Key:       f.Key,
			Number:    f.Number,
			Rooms:     f.Written(),
			SubZoneID: f.SubZoneID(),
		})
	}
	res.MarkedFlats = marked

	zap.L().Info("flat: processed rooms",
		zap.Int("rooms", res.Rooms),
		zap.Int("flats", res.Flats),
		zap.Int("buckets", res.Buckets),
		zap.Int("marked_flats", res.MarkedFlats),
		zap.Int("marked_rooms", res.MarkedRooms),
	)
	return res, nil
}
