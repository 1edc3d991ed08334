package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pondelion/mplm/internal/artifact"
	"github.com/pondelion/mplm/internal/config"
	"github.com/pondelion/mplm/internal/dataset"
	"github.com/pondelion/mplm/internal/storage"
	"github.com/pondelion/mplm/internal/tui"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "mplm",
		Short: "LLM-driven classifier builder",
		Long: "mplm asks a language model to summarize a tabular dataset, write classifier\n" +
			"training code, and repair that code until it runs, within a bounded retry budget.",
		SilenceUsage: true,
		RunE:         runTUI,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newSummaryCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newSettingsCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

func openStore() (*storage.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	app := tui.NewApp(store)
	p := tea.NewProgram(app, tea.WithAltScreen())

	_, err = p.Run()
	return err
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved run records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListRunRecords(limit)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No records found.")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("#%d %-20s val=%.3f test=%.3f [%s] %s\n",
					rec.ID, truncate(rec.ModelName, 20), rec.AccuracyVal, rec.AccuracyTest,
					rec.LLMName, storage.FormatTimeAgo(rec.CreatedAt))
			}

			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of records (0 for all)")
	return cmd
}

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show a run record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record ID: %w", err)
			}
			withCode, _ := cmd.Flags().GetBool("code")
			withModel, _ := cmd.Flags().GetBool("model")

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.GetRunRecord(id)
			if err != nil {
				return err
			}

			fmt.Printf("Record #%d: %s\n", rec.ID, rec.ModelName)
			fmt.Printf("LLM: %s\n", rec.LLMName)
			fmt.Printf("Created: %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Accuracy: val=%.4f test=%.4f\n", rec.AccuracyVal, rec.AccuracyTest)
			if rec.ModelPath != "" {
				fmt.Printf("Model file: %s\n", rec.ModelPath)
			}
			fmt.Printf("\nDataset summary:\n%s\n", rec.DatasetSummary)

			if len(rec.Attempts) > 0 {
				fmt.Println("\nAttempts:")
				for _, a := range rec.Attempts {
					fmt.Printf("  %d. %s [%s] retry=%d -> %s\n", a.SequenceNum, a.Stage, a.Status, a.RetryCount, a.NextState)
					if a.Error != "" {
						fmt.Printf("     %s\n", truncate(a.Error, 100))
					}
				}
			}

			if withCode {
				if rec.DatasetSummaryCode != nil {
					fmt.Printf("\nSummary code:\n%s\n", *rec.DatasetSummaryCode)
				}
				fmt.Printf("\nTraining code:\n%s\n", rec.TrainCode)
			}
			if withModel {
				if rec.ModelPath == "" {
					fmt.Println("\nNo model file was saved for this record.")
					return nil
				}
				fmt.Println()
				return printModel(os.Stdout, rec.ModelPath)
			}
			return nil
		},
	}

	cmd.Flags().Bool("code", false, "Also print the generated code")
	cmd.Flags().Bool("model", false, "Also print the saved model file")
	return cmd
}

func printModel(w io.Writer, path string) error {
	m, err := artifact.Load(path)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(m.Model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format model: %w", err)
	}
	fmt.Fprintf(w, "Model %s (run %s, saved %s):\n%s\n",
		m.Name, m.RunID, m.SavedAt.Local().Format("2006-01-02 15:04:05"), body)
	return nil
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <csv-path>",
		Short: "Export all run records to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ExportCSVFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to export records: %w", err)
			}

			fmt.Printf("Exported %d records to %s\n", n, args[0])
			return nil
		},
	}
}

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <csv-path>",
		Short: "Print the deterministic summary of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.LoadCSV(args[0])
			if err != nil {
				return err
			}
			fmt.Println(dataset.FixedSummary(ds))
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a run record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record ID: %w", err)
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteRunRecord(id); err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}

			fmt.Printf("Deleted record #%d\n", id)
			return nil
		},
	}
}

func newSettingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Print(os.Stdout)
			return nil
		},
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
