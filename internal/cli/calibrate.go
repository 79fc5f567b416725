package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/calibration"
	"github.com/banshee-data/dance.report/internal/db"
	"github.com/banshee-data/dance.report/internal/level"
)

func newCalibrateCommand(a *app) *cobra.Command {
	var (
		events []float64
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "calibrate RESULT",
		Short: "Estimate the output delay from a scored result's samples",
		Long: "Estimate the output delay from the score samples of a result written\n" +
			"with score --out. Each event is a video time at which the dancer should\n" +
			"reach a clear pose; the delay is how long the score took to cross the\n" +
			"success threshold after it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := readResult(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("events") {
				events = a.cfg.GetEvents()
			}
			d := res.Calibrate(events, a.cfg.DelayConfig())
			writeDelay(cmd.OutOrStdout(), d)
			a.log.Info("estimated delay",
				zap.Float64("median_ms", d.MedianMs),
				zap.Float64("mad_ms", d.MADMs),
				zap.Int("used", d.Used),
				zap.Int("total", d.Total))

			if !save {
				return nil
			}
			if d.Used == 0 {
				return errors.New("no event produced a delay; nothing to save")
			}
			return a.saveCalibration(cmd, db.FromDelay(d))
		},
	}
	cmd.Flags().Float64SliceVar(&events, "events", nil, "Event times in ms (default from config)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the estimate in the results database")
	return cmd
}

func newOffsetCommand(a *app) *cobra.Command {
	var (
		levelPath   string
		toleranceMs float64
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "offset RESULT",
		Short: "Estimate the timing offset between a result's live and reference timestamps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := readResult(args[0])
			if err != nil {
				return err
			}
			lvl, err := level.Load(levelPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tolerance") {
				toleranceMs = a.cfg.MatchToleranceMs()
			}
			m := res.BestMatch(lvl, toleranceMs)
			fmt.Fprintf(cmd.OutOrStdout(), "Offset: %.0f ms (%d of %d reference frames matched)\n", m.OffsetMs, m.Matched, m.Total)

			if !save {
				return nil
			}
			if m.Matched == 0 {
				return errors.New("no reference frame matched; nothing to save")
			}
			return a.saveCalibration(cmd, db.FromBestMatch(m))
		},
	}
	cmd.Flags().StringVar(&levelPath, "level", "", "Level the result was scored against")
	cmd.Flags().Float64Var(&toleranceMs, "tolerance", 0, "Largest |live - reference| in ms counted as a match (default from config)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the estimate in the results database")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func (a *app) saveCalibration(cmd *cobra.Command, c *db.Calibration) error {
	database, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.InsertCalibration(cmd.Context(), c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved calibration %s\n", c.ID)
	return nil
}

func writeDelay(w io.Writer, d calibration.DelayResult) {
	if d.Used == 0 {
		fmt.Fprintf(w, "Delay: no crossings found for %d events\n", d.Total)
		return
	}
	fmt.Fprintf(w, "Delay: median %.0f ms, MAD %.0f ms, offset %d ms (%d of %d events)\n",
		d.MedianMs, d.MADMs, d.OffsetMs, d.Used, d.Total)
}
