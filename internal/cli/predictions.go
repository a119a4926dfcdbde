package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"hypewatch/internal/model"
)

var predictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "Inspect and verify tracked predictions",
}

var (
	predictionsAuthor string
	predictionsLimit  int
)

var predictionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked predictions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		predictions, err := app.store.ListPredictions(cmd.Context(), predictionsAuthor, predictionsLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Made", "Author", "Status", "Timeframe", "Text"})
		for _, p := range predictions {
			text := p.Text
			if len(text) > 80 {
				text = text[:77] + "..."
			}
			t.AppendRow(table.Row{
				p.ID, p.MadeAt.Format("2006-01-02"), p.Author, p.Status, p.Timeframe, text,
			})
		}
		t.Render()
		return nil
	},
}

var predictionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show prediction accuracy statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		stats, err := app.store.PredictionAccuracyStats(cmd.Context(), predictionsAuthor)
		if err != nil {
			return err
		}

		if stats.Author != "" {
			fmt.Printf("Author: %s\n", stats.Author)
		}
		fmt.Printf("Total predictions: %d\n", stats.Total)
		for status, count := range stats.ByStatus {
			fmt.Printf("  %-20s %d\n", status, count)
		}
		if stats.Scored > 0 {
			fmt.Printf("Average accuracy: %.2f over %d scored\n", stats.AverageAccuracy, stats.Scored)
		} else {
			fmt.Println("Average accuracy: no scored predictions yet")
		}
		return nil
	},
}

var (
	verifyStatus   string
	verifyScore    float64
	verifyEvidence string
	verifyForce    bool
)

var predictionsVerifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Record a verification outcome for a prediction",
	Long: `Move a prediction to a verification status with supporting evidence.

Valid statuses: too-early, verified, falsified, partially-verified,
unfalsifiable, ambiguous. A prediction already verified or falsified is
locked; pass --force to overwrite a terminal outcome.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid prediction id %q", args[0])
		}

		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		var score *float64
		if cmd.Flags().Changed("score") {
			score = &verifyScore
		}

		status := model.PredictionStatus(verifyStatus)
		if err := app.store.UpdatePredictionStatus(cmd.Context(), id, status, score, verifyEvidence, verifyForce); err != nil {
			return err
		}

		fmt.Printf("Prediction %d marked %s\n", id, status)
		return nil
	},
}

func init() {
	predictionsCmd.PersistentFlags().StringVar(&predictionsAuthor, "author", "", "filter by author")
	predictionsListCmd.Flags().IntVar(&predictionsLimit, "limit", 50, "maximum rows")

	predictionsVerifyCmd.Flags().StringVar(&verifyStatus, "status", "", "new status (required)")
	predictionsVerifyCmd.Flags().Float64Var(&verifyScore, "score", 0, "accuracy score, 0 to 1")
	predictionsVerifyCmd.Flags().StringVar(&verifyEvidence, "evidence", "", "supporting evidence note")
	predictionsVerifyCmd.Flags().BoolVar(&verifyForce, "force", false, "overwrite a terminal status")
	_ = predictionsVerifyCmd.MarkFlagRequired("status")

	predictionsCmd.AddCommand(predictionsListCmd)
	predictionsCmd.AddCommand(predictionsStatsCmd)
	predictionsCmd.AddCommand(predictionsVerifyCmd)
	rootCmd.AddCommand(predictionsCmd)
}
