package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hypewatch/internal/model"
	"hypewatch/internal/sources"
)

var (
	monitorWindow int
	monitorPoll   int
	monitorKind   string
)

// monitorCmd watches sources live for a bounded window, printing new items
// as a quick way to eyeball what a source produces before committing it to
// the regular cadence.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch sources live for a bounded window, persisting new items",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		var srcs []model.Source
		if monitorKind != "" {
			kind := model.SourceKind(monitorKind)
			if !kind.Valid() {
				return fmt.Errorf("unknown source kind %q", monitorKind)
			}
			srcs, err = app.store.SourcesByKind(cmd.Context(), kind)
		} else {
			srcs, err = app.store.ListSources(cmd.Context(), true)
		}
		if err != nil {
			return err
		}

		window := time.Duration(monitorWindow) * time.Minute
		poll := time.Duration(monitorPoll) * time.Second

		fmt.Printf("Monitoring %d sources for %s (poll every %s)\n", len(srcs), window, poll)

		monitor := sources.NewMonitor(app.registry, window, app.logger)
		items, err := monitor.Run(cmd.Context(), srcs, window, poll, app.store)
		if err != nil {
			return err
		}

		for _, item := range items {
			fmt.Printf("  [%s] %s: %s\n",
				item.PublishedAt.Format("15:04:05"), item.Author, firstLine(item.Body, 100))
		}
		fmt.Printf("Captured %d new items\n", len(items))
		return nil
	},
}

func firstLine(text string, maxRunes int) string {
	for i, r := range text {
		if r == '\n' {
			text = text[:i]
			break
		}
	}
	runes := []rune(text)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes]) + "…"
	}
	return text
}

func init() {
	monitorCmd.Flags().IntVar(&monitorWindow, "window", 30, "monitoring window in minutes")
	monitorCmd.Flags().IntVar(&monitorPoll, "poll", 60, "poll interval in seconds")
	monitorCmd.Flags().StringVar(&monitorKind, "kind", "", "restrict to one source kind")

	rootCmd.AddCommand(monitorCmd)
}
