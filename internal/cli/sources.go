package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hypewatch/internal/model"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage tracked sources",
}

var sourcesListAll bool

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		srcs, err := app.store.ListSources(cmd.Context(), !sourcesListAll)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Kind", "Identifier", "Name", "Category", "Active", "Last Fetched"})
		for _, src := range srcs {
			lastFetched := "never"
			if src.LastFetch != nil {
				lastFetched = src.LastFetch.Format("2006-01-02 15:04")
			}
			t.AppendRow(table.Row{
				src.ID, src.Kind, src.Identifier, src.Name, src.Category, src.Active, lastFetched,
			})
		}
		t.Render()
		return nil
	},
}

var sourcesSeedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Seed sources from a YAML file",
	Long: `Upsert sources from a YAML seed file. Existing sources keep their
activity flag and fetch history; names, categories, tags, and cadences are
refreshed from the file.

Seed file format:

  sources:
    - kind: timeline
      identifier: labhead
      name: Lab Head
      category: lab
      tags: [frontier-lab]
      cadence_hours: 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		srcs, err := readSeedFile(args[0])
		if err != nil {
			return err
		}
		if err := app.store.SeedSources(cmd.Context(), srcs); err != nil {
			return err
		}

		fmt.Printf("Seeded %d sources from %s\n", len(srcs), args[0])
		return nil
	},
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Activate a source",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return toggleSource(cmd, args[0], true) },
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Deactivate a source without deleting its history",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return toggleSource(cmd, args[0], false) },
}

func toggleSource(cmd *cobra.Command, rawID string, active bool) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid source id %q", rawID)
	}

	app, err := newApp(false)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.store.SetSourceActive(cmd.Context(), id, active); err != nil {
		return err
	}

	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Printf("Source %d %s\n", id, state)
	return nil
}

type seedEntry struct {
	Kind         string   `yaml:"kind"`
	Identifier   string   `yaml:"identifier"`
	Name         string   `yaml:"name"`
	Category     string   `yaml:"category"`
	Tags         []string `yaml:"tags"`
	CadenceHours int      `yaml:"cadence_hours"`
}

type seedDocument struct {
	Sources []seedEntry `yaml:"sources"`
}

// readSeedFile parses a YAML seed file into sources.
func readSeedFile(path string) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(doc.Sources) == 0 {
		return nil, fmt.Errorf("seed file lists no sources")
	}

	srcs := make([]model.Source, 0, len(doc.Sources))
	for _, entry := range doc.Sources {
		if strings.TrimSpace(entry.Identifier) == "" {
			return nil, fmt.Errorf("seed entry with empty identifier")
		}
		srcs = append(srcs, model.Source{
			Kind:       model.SourceKind(entry.Kind),
			Identifier: entry.Identifier,
			Name:       entry.Name,
			Category:   entry.Category,
			Tags:       entry.Tags,
			CadenceHrs: entry.CadenceHours,
		})
	}
	return srcs, nil
}

func init() {
	sourcesListCmd.Flags().BoolVar(&sourcesListAll, "all", false, "include disabled sources")

	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesSeedCmd)
	sourcesCmd.AddCommand(sourcesEnableCmd)
	sourcesCmd.AddCommand(sourcesDisableCmd)
	rootCmd.AddCommand(sourcesCmd)
}
