package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/semitone-cli/internal/report"
	"github.com/sells-group/semitone-cli/internal/schedule"
	"github.com/sells-group/semitone-cli/internal/store"
)

var (
	markFileIn     string
	markFileOut    string
	markFileReport string
)

var markFileCmd = &cobra.Command{
	Use:   "mark-file",
	Short: "Mark semitone flats in a room schedule file",
	Long:  "Reads a CSV, TSV or XLSX room schedule, marks semitone flats and writes the updated schedule.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := schedule.Read(ctx, markFileIn, cfg.Schedule)
		if err != nil {
			return err
		}

		mem := store.NewMemory(s.Rooms)
		res, err := markRooms(ctx, mem, cfg.Schema, cfg.Filter, false)
		if err != nil {
			return eris.Wrap(err, "mark-file")
		}
		s.Rooms = mem.All()

		if err := schedule.Write(markFileOut, s, cfg.Schedule); err != nil {
			return err
		}

		zap.L().Info("mark-file: schedule written",
			zap.String("in", markFileIn),
			zap.String("out", markFileOut),
			zap.Int("rooms", len(s.Rooms)),
			zap.Int("marked_flats", res.MarkedFlats),
			zap.Int("marked_rooms", res.MarkedRooms),
		)

		if markFileReport != "" {
			return report.New("", markFileIn, res, time.Now()).WriteFile(markFileReport)
		}
		return nil
	},
}

func init() {
	markFileCmd.Flags().StringVar(&markFileIn, "in", "", "input room schedule (required)")
	markFileCmd.Flags().StringVar(&markFileOut, "out", "", "output room schedule (required)")
	markFileCmd.Flags().StringVar(&markFileReport, "report", "", "write a YAML or JSON report of marked flats")
	_ = markFileCmd.MarkFlagRequired("in")
	_ = markFileCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(markFileCmd)
}
