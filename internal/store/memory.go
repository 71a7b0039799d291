package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/semitone-cli/internal/model"
)

// MemoryStore implements Host over rooms held in memory, typically loaded
// from a room schedule file.
type MemoryStore struct {
	mu    sync.Mutex
	rooms []*model.Room
	runs  []model.Run

	// CommitFault, when set, is called for every changed room during Commit.
	// A non-nil return aborts the commit and leaves the store untouched.
	CommitFault func(room *model.Room) error
}

// NewMemory returns a store holding rooms. The store owns the slice.
func NewMemory(rooms []*model.Room) *MemoryStore {
	return &MemoryStore{rooms: rooms}
}

// All returns the committed rooms in load order.
func (s *MemoryStore) All() []*model.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Room, len(s.rooms))
	copy(out, s.rooms)
	return out
}

func (s *MemoryStore) Begin(_ context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make([]*model.Room, len(s.rooms))
	for i, r := range s.rooms {
		staged[i] = r.Clone()
	}
	return &memoryTx{store: s, staged: staged}, nil
}

func (s *MemoryStore) ImportRooms(_ context.Context, rooms []*model.Room) (int, error) {
	if err := checkUniqueIDs(rooms); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]int, len(s.rooms))
	for i, r := range s.rooms {
		byID[r.ID] = i
	}
	for _, r := range rooms {
		if i, ok := byID[r.ID]; ok {
			s.rooms[i] = r.Clone()
			continue
		}
		byID[r.ID] = len(s.rooms)
		s.rooms = append(s.rooms, r.Clone())
	}
	return len(rooms), nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]model.Run, len(s.runs))
	copy(runs, s.runs)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

type memoryTx struct {
	store  *MemoryStore
	staged []*model.Room
	done   bool
}

func (t *memoryTx) Rooms(_ context.Context, filter model.RoomFilter) ([]*model.Room, error) {
	if t.done {
		return nil, eris.New("memory: session closed")
	}
	return filter.Apply(t.staged), nil
}

func (t *memoryTx) Commit(_ context.Context) error {
	if t.done {
		return eris.New("memory: session closed")
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(t.staged) != len(s.rooms) {
		return eris.New("memory: rooms changed during session")
	}
	if s.CommitFault != nil {
		for _, r := range t.staged {
			if len(r.Changed()) == 0 {
				continue
			}
			if err := s.CommitFault(r); err != nil {
				return eris.Wrapf(err, "memory: commit room %s", r.ID)
			}
		}
	}
	for i, r := range t.staged {
		r.ResetChanged()
		s.rooms[i] = r
	}
	t.done = true
	return nil
}

func (t *memoryTx) Rollback(context.Context) error {
	t.done = true
	t.staged = nil
	return nil
}
