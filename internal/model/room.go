package model

import (
	"errors"
	"slices"
	"sort"
)

// CategoryRooms is the host category assigned to room elements.
const CategoryRooms = "OST_Rooms"

var (
	// ErrParamNotFound is returned when a room has no parameter with the given name.
	ErrParamNotFound = errors.New("parameter not found")
	// ErrRoomLocked is returned when the host refuses edits to a room.
	ErrRoomLocked = errors.New("room is locked")
)

// Record is the view of a room the marking core reads and writes.
type Record interface {
	Param(name string) (string, bool)
	SetParam(name, value string) error
}

// Room is a room element exported from the building model. Parameters may
// carry several values (a room can report more than one level); single-value
// reads take the last one.
type Room struct {
	ID       string              `json:"id" yaml:"id"`
	Category string              `json:"category" yaml:"category"`
	Locked   bool                `json:"locked,omitempty" yaml:"locked,omitempty"`
	Params   map[string][]string `json:"params" yaml:"params"`

	changed map[string]bool
}

// NewRoom returns a room in the rooms category with the given single-valued parameters.
func NewRoom(id string, params map[string]string) *Room {
	r := &Room{ID: id, Category: CategoryRooms, Params: make(map[string][]string, len(params))}
	for k, v := range params {
		r.Params[k] = []string{v}
	}
	return r
}

// Param returns the last value of the named parameter.
func (r *Room) Param(name string) (string, bool) {
	vals, ok := r.Params[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[len(vals)-1], true
}

// Values returns every value of the named parameter.
func (r *Room) Values(name string) []string {
	return r.Params[name]
}

// AddParam appends a value to the named parameter. Used by loaders.
func (r *Room) AddParam(name, value string) {
	if r.Params == nil {
		r.Params = make(map[string][]string)
	}
	r.Params[name] = append(r.Params[name], value)
}

// SetParam replaces all values of an existing parameter with value.
func (r *Room) SetParam(name, value string) error {
	if _, ok := r.Params[name]; !ok {
		return ErrParamNotFound
	}
	if r.Locked {
		return ErrRoomLocked
	}
	r.Params[name] = []string{value}
	if r.changed == nil {
		r.changed = make(map[string]bool)
	}
	r.changed[name] = true
	return nil
}

// Changed returns the sorted names of parameters written since load.
func (r *Room) Changed() []string {
	names := make([]string, 0, len(r.changed))
	for name := range r.changed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetChanged forgets pending writes, e.g. after they are persisted.
func (r *Room) ResetChanged() {
	r.changed = nil
}

// Clone deep-copies the room, pending writes included.
func (r *Room) Clone() *Room {
	c := &Room{
		ID:       r.ID,
		Category: r.Category,
		Locked:   r.Locked,
		Params:   make(map[string][]string, len(r.Params)),
	}
	for k, v := range r.Params {
		c.Params[k] = slices.Clone(v)
	}
	if len(r.changed) > 0 {
		c.changed = make(map[string]bool, len(r.changed))
		for k := range r.changed {
			c.changed[k] = true
		}
	}
	return c
}

// ParamNames returns the room's parameter names in sorted order.
func (r *Room) ParamNames() []string {
	names := make([]string, 0, len(r.Params))
	for name := range r.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
