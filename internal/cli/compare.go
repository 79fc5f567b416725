package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/diagnostics"
	"github.com/banshee-data/dance.report/internal/fsutil"
	"github.com/banshee-data/dance.report/internal/level"
	"github.com/banshee-data/dance.report/internal/pose"
	"github.com/banshee-data/dance.report/internal/report"
)

func newCompareCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare REFERENCE LIVE",
		Short: "Score one pose against another",
		Long: "Score one pose against another. Each file holds a single timestamped\n" +
			"pose set in the level format; the first pose of each is compared.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := readPose(args[0])
			if err != nil {
				return err
			}
			live, err := readPose(args[1])
			if err != nil {
				return err
			}
			cmp, err := a.cfg.Comparator()
			if err != nil {
				return err
			}

			score := cmp.CompareByAngles(ref, live)
			weak := diagnostics.WeakJoints(cmp.Catalog(), score, a.cfg.GetWeakJointThreshold())
			out := cmd.OutOrStdout()
			if err := report.WriteScore(out, score, weak); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Limb RMSD: %.3f\n", compare.NormalizedRMSD(ref, live, compare.LimbJoints))
			return err
		},
	}
}

func readPose(path string) (pose.Pose, error) {
	r, err := fsutil.OpenReader(path)
	if err != nil {
		return pose.Pose{}, err
	}
	defer r.Close()
	var set pose.TimestampedPoseSet
	if err := json.NewDecoder(r).Decode(&set); err != nil {
		return pose.Pose{}, fmt.Errorf("%s: %w", path, err)
	}
	p, ok := set.Primary()
	if !ok {
		return pose.Pose{}, fmt.Errorf("%s: no pose detected", path)
	}
	return p, nil
}

func newPoseCommand(a *app) *cobra.Command {
	var (
		levelPath string
		atMs      float64
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "pose",
		Short: "Extract the reference pose shown at a playback time",
		Long: "Extract the reference pose of the frame nearest to a playback time as a\n" +
			"timestamped pose set, ready to pass to compare.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := level.Load(levelPath)
			if err != nil {
				return err
			}
			p, ts, ok := lvl.PoseAt(atMs)
			if !ok {
				return fmt.Errorf("%s: no reference pose near %.0fms", levelPath, atMs)
			}
			set := pose.TimestampedPoseSet{Timestamp: ts, Poses: []pose.Pose{p}}
			a.log.Debug("reference pose", zap.Float64("requested_ms", atMs), zap.Float64("frame_ms", ts))
			if outPath != "" {
				return writeJSON(outPath, set)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		},
	}
	cmd.Flags().StringVar(&levelPath, "level", "", "Level file")
	cmd.Flags().Float64Var(&atMs, "at", 0, "Playback time in ms")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the pose set to a file instead of stdout")
	_ = cmd.MarkFlagRequired("level")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
