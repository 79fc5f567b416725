package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/db"
	"github.com/banshee-data/dance.report/internal/diagnostics"
	"github.com/banshee-data/dance.report/internal/fsutil"
	"github.com/banshee-data/dance.report/internal/level"
	"github.com/banshee-data/dance.report/internal/replay"
	"github.com/banshee-data/dance.report/internal/report"
	"github.com/banshee-data/dance.report/internal/source"
)

const worstAngles = 3

// scoreFlags are shared by score and watch.
type scoreFlags struct {
	levelPath string
	outPath   string
	plotPath  string
	htmlPath  string
	offsetMs  float64
	save      bool
	calibrate bool
	quiet     bool
}

func (f *scoreFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.levelPath, "level", "", "Level file (.json, .json.gz or .json.zst)")
	fl.StringVar(&f.outPath, "out", "", "Write the full result as JSON (compressed by extension)")
	fl.StringVar(&f.plotPath, "plot", "", "Write a timeline PNG")
	fl.StringVar(&f.htmlPath, "html", "", "Write an interactive timeline HTML page")
	fl.Float64Var(&f.offsetMs, "offset", 0, "Calibration offset in ms (default from config)")
	fl.BoolVar(&f.save, "save", false, "Store the session in the results database")
	fl.BoolVar(&f.calibrate, "calibrate", false, "Estimate the output delay from the configured events")
	fl.BoolVar(&f.quiet, "quiet", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("level")
}

func newScoreCommand(a *app) *cobra.Command {
	var f scoreFlags
	var livePath string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a recorded live pose stream against a level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.OpenJSONL(livePath)
			if err != nil {
				return err
			}
			defer src.Close()
			return a.runScore(cmd, &f, src)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&livePath, "live", "", "Live pose stream (JSON lines, optionally compressed)")
	_ = cmd.MarkFlagRequired("live")
	return cmd
}

func newWatchCommand(a *app) *cobra.Command {
	var f scoreFlags
	var dir string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Score pose files as they appear in a directory",
		Long: "Score pose files as they appear in a directory. Scoring stops when a file\n" +
			"named \"" + source.DoneFile + "\" is created or on interrupt.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.WatchDir(dir, a.log.Named("watch"))
			if err != nil {
				return err
			}
			defer src.Close()
			return a.runScore(cmd, &f, src)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&dir, "dir", "", "Directory receiving pose files")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func (a *app) runScore(cmd *cobra.Command, f *scoreFlags, src source.PoseSource) error {
	lvl, err := level.Load(f.levelPath)
	if err != nil {
		return err
	}
	cmp, err := a.cfg.Comparator()
	if err != nil {
		return err
	}
	offset := a.cfg.GetCalibrationOffsetMs()
	if cmd.Flags().Changed("offset") {
		offset = f.offsetMs
	}

	opts := replay.Options{
		Comparator:          cmp,
		CalibrationOffsetMs: offset,
	}
	if !f.quiet {
		opts.Progress = cmd.ErrOrStderr()
	}

	res, err := replay.Run(cmd.Context(), lvl, src, opts)
	if err != nil {
		// An interrupted watch still reports what it scored.
		if !errors.Is(err, context.Canceled) {
			return err
		}
		a.log.Warn("scoring interrupted", zap.Int("frames", res.Frames))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d live frames, %d reference frames scored\n\n", lvl.Title, res.Frames, len(res.History))
	if err := report.WriteIntervals(out, res.Intervals); err != nil {
		return err
	}
	fmt.Fprintln(out)
	weak := diagnostics.WeakJoints(cmp.Catalog(), res.Final, a.cfg.GetWeakJointThreshold())
	if err := report.WriteSummary(out, res.Summary, weak, worstAngles); err != nil {
		return err
	}

	if f.outPath != "" {
		if err := writeJSON(f.outPath, res); err != nil {
			return err
		}
	}
	if f.plotPath != "" {
		if err := report.WriteTimelinePNG(f.plotPath, lvl.Title, res.History, res.Intervals); err != nil {
			return err
		}
	}
	if f.htmlPath != "" {
		if err := writeHTML(f.htmlPath, res); err != nil {
			return err
		}
	}

	var delay *db.Calibration
	if f.calibrate {
		d := res.Calibrate(a.cfg.GetEvents(), a.cfg.DelayConfig())
		writeDelay(out, d)
		delay = db.FromDelay(d)
	}

	if !f.save {
		return nil
	}
	database, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	s := &db.Session{
		Title:               lvl.Title,
		LevelPath:           f.levelPath,
		Variant:             string(cmp.Config().Variant),
		CalibrationOffsetMs: offset,
		Frames:              res.Frames,
		MeanTotal:           res.Summary.Total.Mean,
		Grade:               string(res.Summary.Grade),
	}
	if err := database.InsertSession(cmd.Context(), s, res.History, res.Intervals); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved session %s\n", s.ID)
	if delay != nil && delay.Used > 0 {
		delay.SessionID = s.ID
		if err := database.InsertCalibration(cmd.Context(), delay); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v interface{}) (err error) {
	w, err := fsutil.CreateWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readResult(path string) (*replay.Result, error) {
	r, err := fsutil.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var res replay.Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &res, nil
}

func writeHTML(path string, res *replay.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.RenderTimelineHTML(f, res.Title, res.History, res.Intervals)
}
