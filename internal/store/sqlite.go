package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/semitone-cli/internal/model"
)

// SQLiteStore implements Host using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rooms (
	id       TEXT PRIMARY KEY,
	seq      INTEGER NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	locked   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS room_params (
	room_id  TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	position INTEGER NOT NULL,
	value    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (room_id, name, position)
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	rooms        INTEGER NOT NULL DEFAULT 0,
	flats        INTEGER NOT NULL DEFAULT 0,
	marked_flats INTEGER NOT NULL DEFAULT 0,
	marked_rooms INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rooms_category ON rooms(category);
CREATE INDEX IF NOT EXISTS idx_rooms_seq ON rooms(seq);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLiteStore) ImportRooms(ctx context.Context, rooms []*model.Room) (int, error) {
	if err := checkUniqueIDs(rooms); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var base int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM rooms`).Scan(&base); err != nil {
		return 0, eris.Wrap(err, "sqlite: import max seq")
	}

	for i, r := range rooms {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (id, seq, category, locked) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET category = excluded.category, locked = excluded.locked`,
			r.ID, base+int64(i)+1, r.Category, r.Locked,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import room %s", r.ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_params WHERE room_id = ?`, r.ID); err != nil {
			return 0, eris.Wrapf(err, "sqlite: clear params %s", r.ID)
		}
		for _, name := range r.ParamNames() {
			if err := insertSQLiteParam(ctx, tx, r.ID, name, r.Values(name)); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import commit")
	}
	return len(rooms), nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, rooms, flats, marked_flats, marked_rooms, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, string(run.Status), run.Rooms, run.Flats, run.MarkedFlats, run.MarkedRooms,
		run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save run %s", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, rooms, flats, marked_flats, marked_rooms, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &r.Rooms, &r.Flats, &r.MarkedFlats,
			&r.MarkedRooms, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type sqliteTx struct {
	tx     *sql.Tx
	loaded []*model.Room
	done   bool
}

func (t *sqliteTx) Rooms(ctx context.Context, filter model.RoomFilter) ([]*model.Room, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT r.id, r.category, r.locked, p.name, p.value
		 FROM rooms r LEFT JOIN room_params p ON p.room_id = r.id
		 WHERE (? = '' OR r.category = ?)
		 ORDER BY r.seq, p.name, p.position`,
		filter.Category, filter.Category,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query rooms")
	}
	defer rows.Close()

	rooms, err := scanRooms(rows)
	if err != nil {
		return nil, err
	}
	rooms = filter.Apply(rooms)
	t.loaded = append(t.loaded, rooms...)
	return rooms, nil
}

func (t *sqliteTx) Commit(ctx context.Context) error {
	for _, r := range t.loaded {
		for _, name := range r.Changed() {
			if _, err := t.tx.ExecContext(ctx,
				`DELETE FROM room_params WHERE room_id = ? AND name = ?`, r.ID, name,
			); err != nil {
				return eris.Wrapf(err, "sqlite: clear param %s on room %s", name, r.ID)
			}
			if err := insertSQLiteParam(ctx, t.tx, r.ID, name, r.Values(name)); err != nil {
				return err
			}
		}
	}
	if err := t.tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	t.done = true
	for _, r := range t.loaded {
		r.ResetChanged()
	}
	return nil
}

func (t *sqliteTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return eris.Wrap(t.tx.Rollback(), "sqlite: rollback")
}

func insertSQLiteParam(ctx context.Context, tx *sql.Tx, roomID, name string, values []string) error {
	for pos, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_params (room_id, name, position, value) VALUES (?, ?, ?, ?)`,
			roomID, name, pos, v,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert param %s on room %s", name, roomID)
		}
	}
	return nil
}

// helpers

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanRooms folds (room, param) join rows, ordered by room, into rooms.
func scanRooms(rows rowScanner) ([]*model.Room, error) {
	var rooms []*model.Room
	var cur *model.Room
	for rows.Next() {
		var (
			id, category string
			locked       bool
			name, value  sql.NullString
		)
		if err := rows.Scan(&id, &category, &locked, &name, &value); err != nil {
			return nil, eris.Wrap(err, "scan room")
		}
		if cur == nil || cur.ID != id {
			cur = &model.Room{ID: id, Category: category, Locked: locked, Params: map[string][]string{}}
			rooms = append(rooms, cur)
		}
		if name.Valid {
			cur.AddParam(name.String, value.String)
		}
	}
	return rooms, eris.Wrap(rows.Err(), "scan rooms iterate")
}

var _ Host = (*SQLiteStore)(nil)
