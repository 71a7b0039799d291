package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/semitone-cli/internal/model"
	"github.com/sells-group/semitone-cli/internal/schedule"
	"github.com/sells-group/semitone-cli/internal/store"
)

var importFiles []string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import room schedules into the configured store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := importSchedules(ctx, st, importFiles, cfg.Schedule, cfg.Import.MaxConcurrentFiles)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int("rooms", n),
			zap.Strings("files", importFiles),
		)
		return nil
	},
}

// importSchedules parses files concurrently and imports all their rooms in
// one call, so a parse failure in any file imports nothing.
func importSchedules(ctx context.Context, host store.Host, files []string, opts schedule.Options, limit int) (int, error) {
	if limit < 1 {
		limit = 1
	}
	parsed := make([][]*model.Room, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range files {
		g.Go(func() error {
			s, err := schedule.Read(gCtx, path, opts)
			if err != nil {
				return err
			}
			parsed[i] = s.Rooms
			zap.L().Debug("import: parsed schedule",
				zap.String("file", path),
				zap.Int("rooms", len(s.Rooms)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, eris.Wrap(err, "import")
	}

	var rooms []*model.Room
	for _, rs := range parsed {
		rooms = append(rooms, rs...)
	}
	n, err := host.ImportRooms(ctx, rooms)
	if err != nil {
		return 0, eris.Wrap(err, "import")
	}
	return n, nil
}

func init() {
	importCmd.Flags().StringArrayVar(&importFiles, "file", nil, "room schedule to import, repeatable (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
