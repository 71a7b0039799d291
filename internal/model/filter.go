package model

import "strings"

// RoomFilter selects apartment rooms: elements of Category whose Param
// contains Marker, compared case-insensitively. Empty fields match anything.
type RoomFilter struct {
	Category string `yaml:"category" mapstructure:"category"`
	Param    string `yaml:"param" mapstructure:"param"`
	Marker   string `yaml:"marker" mapstructure:"marker"`
}

// Match reports whether the room passes the filter.
func (f RoomFilter) Match(r *Room) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Param == "" || f.Marker == "" {
		return true
	}
	v, ok := r.Param(f.Param)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(v), strings.ToLower(f.Marker))
}

// Apply returns the rooms that pass the filter, in input order.
func (f RoomFilter) Apply(rooms []*Room) []*Room {
	out := make([]*Room, 0, len(rooms))
	for _, r := range rooms {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
