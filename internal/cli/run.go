package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"hypewatch/internal/model"
	"hypewatch/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [kind]",
	Short: "Fetch sources once (all kinds, or one of: timeline, graph, feed, transcript, academic)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		var summary *pipeline.FetchSummary
		if len(args) == 1 {
			kind := model.SourceKind(args[0])
			if !kind.Valid() {
				return fmt.Errorf("unknown source kind %q", args[0])
			}
			summary, err = app.pipe.FetchKind(cmd.Context(), kind)
		} else {
			summary, err = app.pipe.FetchAll(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Printf("Fetched %d items from %d sources in %s\n",
			summary.Items, summary.Sources, summary.Duration.Round(time.Millisecond))
		for _, failure := range summary.Failures {
			fmt.Printf("  failed %s %s: %s\n", failure.Kind, failure.Identifier, failure.Error)
		}
		return nil
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the analysis stages over unprocessed content",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(true)
		if err != nil {
			return err
		}
		defer app.close()

		summary, err := app.pipe.Process(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d items: %d relevant, %d claims, %d predictions, %d embedded (%s)\n",
			summary.Scanned, summary.Relevant, summary.Claims,
			summary.Predictions, summary.Embedded, summary.Duration.Round(time.Millisecond))
		return nil
	},
}

var (
	synthesizeDays   int
	synthesizeDigest bool
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Aggregate recent claims into topic syntheses and a hype assessment",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(true)
		if err != nil {
			return err
		}
		defer app.close()

		run, err := app.pipe.Synthesize(cmd.Context(), synthesizeDays, synthesizeDigest)
		if err != nil {
			return err
		}

		fmt.Printf("Run %s: %d claims over %d days\n\n", run.RunID, run.ClaimCount, run.PeriodDays)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Topic", "Claims", "Lab", "Critic", "Delta", "Evidence"})
		for _, topic := range run.Topics {
			delta := fmt.Sprintf("%+.2f", topic.HypeDelta)
			if !topic.DeltaConfident {
				delta += "?"
			}
			t.AppendRow(table.Row{
				topic.Topic, topic.ClaimCount,
				fmt.Sprintf("%.2f", topic.LabSentiment),
				fmt.Sprintf("%.2f", topic.CriticSentiment),
				delta,
				fmt.Sprintf("%.2f", topic.EvidenceQualityAvg),
			})
		}
		t.Render()

		printVerdicts("Overhyped", run.Assessment.Overhyped)
		printVerdicts("Underhyped", run.Assessment.Underhyped)
		fmt.Printf("\nField sentiment: %.2f\n", run.Assessment.FieldSentiment)

		if run.Digest != "" {
			fmt.Printf("\n%s\n", run.Digest)
		}
		return nil
	},
}

func printVerdicts(label string, verdicts []model.TopicVerdict) {
	if len(verdicts) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", label)
	for _, v := range verdicts {
		fmt.Printf("  %s (%.2f)", v.Topic, v.Score)
		if v.Rationale != "" {
			fmt.Printf(" - %s", v.Rationale)
		}
		fmt.Println()
	}
}

func init() {
	synthesizeCmd.Flags().IntVar(&synthesizeDays, "days", 7, "lookback period in days")
	synthesizeCmd.Flags().BoolVar(&synthesizeDigest, "digest", false, "also generate the markdown digest")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(synthesizeCmd)
}
