package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vibetunes/vibetunes-backend/mood"
	"gopkg.in/yaml.v3"
)

type resolveReport struct {
	Mood      mood.Category       `yaml:"mood"`
	Result    mood.Result         `yaml:"result"`
	Tally     mood.Tally          `yaml:"tally"`
	Threshold int                 `yaml:"consensus_threshold"`
	Means     *mood.EnsembleMeans `yaml:"ensemble_means,omitempty"`
}

func newResolveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <results.yaml>",
		Short: "Run the consensus engine over saved model results",
		Long: `Reads a YAML or JSON list of model results (model, emotion, confidence,
allEmotions) and prints the consensus decision. The first entry is treated as
the best result, as the detection pipeline does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var results []mood.ModelResult
			if err := yaml.Unmarshal(b, &results); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if len(results) == 0 {
				return fmt.Errorf("%s: no model results", args[0])
			}

			res := engine.Resolve(results[0], results)
			report := resolveReport{
				Mood:      engine.Map(res.Emotion),
				Result:    res,
				Tally:     engine.Voter().Tally(results),
				Threshold: engine.Voter().Threshold(len(results)),
			}
			if len(results) > 1 {
				m := engine.BiasCorrector().Means(results)
				report.Means = &m
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(report)
		},
	}
}
