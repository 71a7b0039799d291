package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/semitone-cli/internal/db"
	"github.com/sells-group/semitone-cli/internal/model"
)

// PostgresStore implements Host using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rooms (
	id       TEXT PRIMARY KEY,
	seq      BIGINT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	locked   BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS room_params (
	room_id  TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	position INTEGER NOT NULL,
	value    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (room_id, name, position)
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	rooms        INTEGER NOT NULL DEFAULT 0,
	flats        INTEGER NOT NULL DEFAULT 0,
	marked_flats INTEGER NOT NULL DEFAULT 0,
	marked_rooms INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rooms_category ON rooms(category);
CREATE INDEX IF NOT EXISTS idx_rooms_seq ON rooms(seq);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	return &postgresTx{tx: tx}, nil
}

// ImportRooms upserts rooms and replaces their parameters in one transaction.
func (s *PostgresStore) ImportRooms(ctx context.Context, rooms []*model.Room) (int, error) {
	if len(rooms) == 0 {
		return 0, nil
	}
	if err := checkUniqueIDs(rooms); err != nil {
		return 0, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var base int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM rooms`).Scan(&base); err != nil {
		return 0, eris.Wrap(err, "postgres: import max seq")
	}

	roomRows := make([][]any, len(rooms))
	ids := make([]string, len(rooms))
	var paramRows [][]any
	for i, r := range rooms {
		roomRows[i] = []any{r.ID, base + int64(i) + 1, r.Category, r.Locked}
		ids[i] = r.ID
		paramRows = append(paramRows, paramRowsFor(r, r.ParamNames())...)
	}

	if _, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "rooms",
		Columns:      []string{"id", "seq", "category", "locked"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"category", "locked"},
	}, roomRows); err != nil {
		return 0, eris.Wrap(err, "postgres: import rooms")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM room_params WHERE room_id = ANY($1)`, ids); err != nil {
		return 0, eris.Wrap(err, "postgres: clear params")
	}
	if _, err := db.CopyFrom(ctx, tx, "room_params", paramColumns, paramRows); err != nil {
		return 0, eris.Wrap(err, "postgres: import params")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: import commit")
	}
	return len(rooms), nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, status, rooms, flats, marked_flats, marked_rooms, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Source, string(run.Status), run.Rooms, run.Flats, run.MarkedFlats, run.MarkedRooms,
		run.Error, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: save run %s", run.ID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, rooms, flats, marked_flats, marked_rooms, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		if err := rows.Scan(&r.ID, &r.Source, &status, &r.Rooms, &r.Flats, &r.MarkedFlats,
			&r.MarkedRooms, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

var paramColumns = []string{"room_id", "name", "position", "value"}

func paramRowsFor(r *model.Room, names []string) [][]any {
	var rows [][]any
	for _, name := range names {
		for pos, v := range r.Values(name) {
			rows = append(rows, []any{r.ID, name, pos, v})
		}
	}
	return rows
}

type postgresTx struct {
	tx     pgx.Tx
	loaded []*model.Room
	done   bool
}

func (t *postgresTx) Rooms(ctx context.Context, filter model.RoomFilter) ([]*model.Room, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT r.id, r.category, r.locked, p.name, p.value
		 FROM rooms r LEFT JOIN room_params p ON p.room_id = r.id
		 WHERE ($1::text = '' OR r.category = $1::text)
		 ORDER BY r.seq, p.name, p.position`,
		filter.Category,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query rooms")
	}
	defer rows.Close()

	rooms, err := scanRooms(rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load rooms")
	}
	rooms = filter.Apply(rooms)
	t.loaded = append(t.loaded, rooms...)
	return rooms, nil
}

// Commit rewrites the changed parameters of loaded rooms and commits.
func (t *postgresTx) Commit(ctx context.Context) error {
	var rows [][]any
	for _, r := range t.loaded {
		changed := r.Changed()
		for _, name := range changed {
			if _, err := t.tx.Exec(ctx,
				`DELETE FROM room_params WHERE room_id = $1 AND name = $2`, r.ID, name,
			); err != nil {
				return eris.Wrapf(err, "postgres: clear param %s on room %s", name, r.ID)
			}
		}
		rows = append(rows, paramRowsFor(r, changed)...)
	}
	if _, err := db.CopyFrom(ctx, t.tx, "room_params", paramColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: write params")
	}
	if err := t.tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	t.done = true
	for _, r := range t.loaded {
		r.ResetChanged()
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return eris.Wrap(err, "postgres: rollback")
}

var _ Host = (*PostgresStore)(nil)
