package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/semitone-cli/internal/model"
)

// ErrDuplicateRoomID is returned by ImportRooms when one batch names the
// same room twice.
var ErrDuplicateRoomID = errors.New("duplicate room id in import")

// Host is a building model database holding room elements.
type Host interface {
	// Begin opens a write session. Rooms loaded through the session are
	// edited in memory and persisted only by Commit.
	Begin(ctx context.Context) (Tx, error)

	// Rooms. ImportRooms rejects a batch with repeated IDs before writing.
	ImportRooms(ctx context.Context, rooms []*model.Room) (int, error)

	// Runs
	SaveRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Tx is a write session opened by Host.Begin.
type Tx interface {
	Rooms(ctx context.Context, filter model.RoomFilter) ([]*model.Room, error)
	Commit(ctx context.Context) error
	// Rollback discards the session. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// RunInTx opens a session, runs fn and commits. If fn fails or panics the
// session is rolled back, so either every write made by fn persists or none.
func RunInTx(ctx context.Context, host Host, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := host.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "store: begin")
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			rollback(ctx, tx)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "store: commit")
	}
	return nil
}

func rollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil {
		zap.L().Warn("store: rollback failed", zap.Error(err))
	}
}

// checkUniqueIDs fails on the first room ID repeated within rooms.
func checkUniqueIDs(rooms []*model.Room) error {
	seen := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		if _, ok := seen[r.ID]; ok {
			return eris.Wrapf(ErrDuplicateRoomID, "store: room %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
