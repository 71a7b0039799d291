package flat

import (
	"sort"

	"github.com/sells-group/semitone-cli/internal/model"
)

// Buckets maps a group key to the flats sharing it, in order of first appearance.
type Buckets map[string][]*Flat

// Keys returns the group keys in sorted order.
func (b Buckets) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flats returns all flats, bucket by bucket in key order.
func (b Buckets) Flats() []*Flat {
	var out []*Flat
	for _, k := range b.Keys() {
		out = append(out, b[k]...)
	}
	return out
}

// Build partitions rooms by group key and then by flat number, producing
// one Flat per (key, number). Rooms keep their relative input order.
func Build(schema Schema, rooms []model.Record) Buckets {
	type slot struct {
		key    string
		number int
	}
	buckets := make(Buckets)
	index := make(map[slot]*Flat)

	for _, r := range rooms {
		s := slot{key: schema.GroupKey(r), number: schema.FlatNumber(r)}
		f, ok := index[s]
		if !ok {
			f = New(schema, s.key, s.number, nil)
			index[s] = f
			buckets[s.key] = append(buckets[s.key], f)
		}
		f.Rooms = append(f.Rooms, r)
	}
	return buckets
}

// Records adapts loaded rooms to the record view used by Build.
func Records(rooms []*model.Room) []model.Record {
	out := make([]model.Record, len(rooms))
	for i, r := range rooms {
		out[i] = r
	}
	return out
}
