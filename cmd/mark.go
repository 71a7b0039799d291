package main

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/semitone-cli/internal/flat"
	"github.com/sells-group/semitone-cli/internal/model"
	"github.com/sells-group/semitone-cli/internal/report"
	"github.com/sells-group/semitone-cli/internal/resilience"
	"github.com/sells-group/semitone-cli/internal/store"
)

var (
	markDryRun bool
	markReport string
)

// errDryRun aborts the session after processing so nothing is written.
var errDryRun = errors.New("dry run")

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Mark semitone flats in the configured room store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		source := cfg.Store.Driver + ":" + cfg.Store.DatabaseURL
		run, res, err := markStore(ctx, st, source, markDryRun)
		if err != nil {
			return err
		}

		if markReport != "" {
			if err := report.New(run.ID, source, res, run.FinishedAt).WriteFile(markReport); err != nil {
				return err
			}
		}
		return nil
	},
}

// markRooms loads the apartment rooms in one session and marks semitone
// flats. Any failure rolls the whole session back. With dryRun the session
// is rolled back after a successful pass.
func markRooms(ctx context.Context, host store.Host, schema flat.Schema, filter model.RoomFilter, dryRun bool) (*flat.Result, error) {
	var res *flat.Result
	err := store.RunInTx(ctx, host, func(ctx context.Context, tx store.Tx) error {
		rooms, err := tx.Rooms(ctx, filter)
		if err != nil {
			return err
		}
		res, err = flat.Process(schema, flat.Records(rooms))
		if err != nil {
			return err
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if dryRun && errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// markStore runs markRooms and records the outcome as a Run. A session that
// failed for a transient reason was rolled back in full and is re-run.
func markStore(ctx context.Context, host store.Host, source string, dryRun bool) (*model.Run, *flat.Result, error) {
	run := &model.Run{Source: source, Status: model.RunStatusRunning, StartedAt: time.Now().UTC()}

	retry := cfg.Store.Retry
	retry.OnRetry = resilience.RetryLogger("mark")
	var res *flat.Result
	markErr := resilience.Do(ctx, retry, func(ctx context.Context) error {
		var err error
		res, err = markRooms(ctx, host, cfg.Schema, cfg.Filter, dryRun)
		return err
	})
	run.FinishedAt = time.Now().UTC()
	switch {
	case markErr != nil:
		run.Status = model.RunStatusFailed
		run.Error = markErr.Error()
	case dryRun:
		run.Status = model.RunStatusDryRun
	default:
		run.Status = model.RunStatusSucceeded
	}
	if res != nil {
		run.Rooms = res.Rooms
		run.Flats = res.Flats
		run.MarkedFlats = res.MarkedFlats
		run.MarkedRooms = res.MarkedRooms
	}

	if err := host.SaveRun(ctx, run); err != nil {
		zap.L().Warn("mark: save run failed", zap.String("source", source), zap.Error(err))
	}

	if markErr != nil {
		zap.L().Error("mark: rolled back",
			zap.String("run_id", run.ID),
			zap.String("source", source),
			zap.Error(markErr),
		)
		return run, nil, eris.Wrap(markErr, "mark")
	}

	zap.L().Info("mark: view refreshed",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("marked_flats", res.MarkedFlats),
		zap.Int("marked_rooms", res.MarkedRooms),
		zap.Duration("duration", run.Duration()),
	)
	return run, res, nil
}

func init() {
	markCmd.Flags().BoolVar(&markDryRun, "dry-run", false, "compute marks without writing them")
	markCmd.Flags().StringVar(&markReport, "report", "", "write a YAML or JSON report of marked flats")
	rootCmd.AddCommand(markCmd)
}
