package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pondelion/mplm/internal/artifact"
	"github.com/pondelion/mplm/internal/dataset"
	"github.com/pondelion/mplm/internal/events"
	"github.com/pondelion/mplm/internal/llm"
	"github.com/pondelion/mplm/internal/logging"
	"github.com/pondelion/mplm/internal/models"
	"github.com/pondelion/mplm/internal/orchestrator"
	"github.com/pondelion/mplm/internal/sandbox"
	"github.com/pondelion/mplm/internal/stages"
	"github.com/pondelion/mplm/internal/storage"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <csv-path>",
		Short: "Build a classifier for a CSV dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")
			fixedSummary, _ := cmd.Flags().GetBool("fixed-summary")
			noModel, _ := cmd.Flags().GetBool("no-model")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.RandomSeed, _ = cmd.Flags().GetInt64("seed")
			}
			if cmd.Flags().Changed("max-retry") {
				cfg.MaxRetry, _ = cmd.Flags().GetInt("max-retry")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			ds, err := dataset.LoadCSV(args[0])
			if err != nil {
				return err
			}

			provider, err := llm.NewProvider(cfg.LLMSettings())
			if err != nil {
				return err
			}
			artifacts := artifact.NewStore(cfg.ModelSaveDir)
			deps := stages.Deps{
				LLM:     llm.NewGateway(provider, log),
				Sandbox: sandbox.New(sandbox.WithTimeout(cfg.ExecTimeout), sandbox.WithLogger(log)),
				Models:  artifacts,
				Log:     log,
			}

			opts := []orchestrator.Option{orchestrator.WithLogger(log)}
			if cfg.NATSURL != "" {
				bus, err := events.NewNATSBus(events.NATSConfig{URL: cfg.NATSURL, Subject: cfg.NATSSubject})
				if err != nil {
					return err
				}
				defer bus.Close()
				opts = append(opts, orchestrator.WithObserver(events.NewNotifier(bus, log)))
			}

			orch, err := orchestrator.New(map[orchestrator.State]orchestrator.Stage{
				orchestrator.StateSummary:  stages.NewSummary(deps),
				orchestrator.StateTraining: stages.NewTraining(deps),
				orchestrator.StateRepair:   stages.NewRepair(deps),
			}, cfg.MaxRetry, opts...)
			if err != nil {
				return err
			}

			rc := models.NewRunContext(ds, target)
			rc.Seed = cfg.RandomSeed
			rc.UseFixedSummary = fixedSummary
			if !noModel {
				rc.ModelOutputPath = artifacts.PathFor(rc.RunID)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			out, err := orch.Run(ctx, rc)
			if err != nil {
				return fmt.Errorf("run %s aborted: %w", rc.RunID, err)
			}
			printState(os.Stdout, rc, out)

			if !out.Succeeded() {
				return fmt.Errorf("run %s failed after %d attempts", rc.RunID, len(out.Attempts))
			}

			store, err := storage.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			rec, err := orchestrator.Save(store, rc, out)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"run_id":    rc.RunID,
				"record_id": rec.ID,
			}).Info("run record saved")
			fmt.Printf("Saved record #%d\n", rec.ID)
			return nil
		},
	}

	cmd.Flags().StringP("target", "t", "survived", "Target column to classify")
	cmd.Flags().Int64("seed", 0, "Split seed (default from config)")
	cmd.Flags().Int("max-retry", 0, "Retry budget (default from config)")
	cmd.Flags().Bool("fixed-summary", false, "Use the deterministic dataset summary instead of generated code")
	cmd.Flags().Bool("no-model", false, "Do not write the trained model to disk")
	return cmd
}

// printState writes the final run state, leaving out the dataset and code
// bodies.
func printState(w io.Writer, rc *models.RunContext, out orchestrator.Outcome) {
	fmt.Fprintf(w, "Run %s finished: %s (status %s)\n", rc.RunID, out.State, rc.Status)
	fmt.Fprintf(w, "Retry count: %d\n", rc.RetryCount)
	fmt.Fprintf(w, "Summary errors: %d\n", len(rc.SummaryErrors))
	fmt.Fprintf(w, "Training errors: %d\n", len(rc.TrainingErrors))
	for i, e := range rc.TrainingErrors {
		fmt.Fprintf(w, "  %d. %s\n", i+1, truncate(e, 120))
	}
	if tr := rc.TrainingResult; tr != nil {
		fmt.Fprintf(w, "Model: %s (llm %s)\n", tr.ModelName, tr.LLMName)
		fmt.Fprintf(w, "Accuracy: val=%.4f test=%.4f\n", tr.AccuracyVal, tr.AccuracyTest)
		if tr.ModelPath != "" {
			fmt.Fprintf(w, "Model file: %s\n", tr.ModelPath)
		}
	}
	if rc.FixedCode != nil {
		fmt.Fprintln(w, "Training code was repaired.")
	}
}
