package flat

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/semitone-cli/internal/model"
)

// Flat is the set of rooms sharing a group key and flat number.
type Flat struct {
	Key    string
	Number int
	Rooms  []model.Record

	schema   Schema
	semitone bool
	subZone  string
	written  int
}

// New returns an unmarked flat.
func New(schema Schema, key string, number int, rooms []model.Record) *Flat {
	return &Flat{Key: key, Number: number, Rooms: rooms, schema: schema}
}

// IsSemitone reports whether the flat has been marked.
func (f *Flat) IsSemitone() bool {
	return f.semitone
}

// SubZoneID returns the identifier written by SetSemitone, or "" if unmarked.
func (f *Flat) SubZoneID() string {
	return f.subZone
}

// Written returns how many rooms received the identifier in the last
// successful SetSemitone.
func (f *Flat) Written() int {
	return f.written
}

// SubZoneIDFor computes the semitone identifier from the first room's zone ID.
func (f *Flat) SubZoneIDFor() string {
	var zoneID string
	if len(f.Rooms) > 0 {
		zoneID, _ = f.Rooms[0].Param(f.schema.ZoneIDParam)
	}
	return zoneID + f.schema.SemitoneSuffix
}

// SetSemitone writes the semitone identifier to every room of the flat and
// returns the number of rooms written. Rooms without the sub-zone parameter
// are skipped. Any other write error is returned and leaves the flat
// unmarked; the caller's transaction is expected to discard the rooms
// already written.
func (f *Flat) SetSemitone() (int, error) {
	id := f.SubZoneIDFor()
	written := 0
	for _, r := range f.Rooms {
		err := r.SetParam(f.schema.SubZoneIDParam, id)
		if errors.Is(err, model.ErrParamNotFound) {
			continue
		}
		if err != nil {
			return written, eris.Wrapf(err, "flat: set semitone on flat %d [%s]", f.Number, f.Key)
		}
		written++
	}
	f.semitone = true
	f.subZone = id
	f.written = written
	return written, nil
}
