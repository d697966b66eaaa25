package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/resumematch/crew"
	"github.com/vinayprograms/resumematch/pipeline"
	"github.com/vinayprograms/resumematch/shutdown"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline (default)",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	coord := shutdown.New(a.logger, shutdownTimeout)
	ctx, stop := coord.WatchSignals(context.Background())
	defer stop()
	defer coord.Shutdown(context.Background())

	a.startTelemetry(ctx, coord)

	defs, err := crew.LoadDefinitions(orDefault(flagAgents, a.cfg.Paths.Agents), orDefault(flagTasks, a.cfg.Paths.Tasks))
	if err != nil {
		return err
	}
	build := pipeline.Lazy(func() (pipeline.Kicker, error) {
		c, err := a.newCrew(defs, coord)
		if err != nil {
			return nil, err
		}
		return c, nil
	})

	renderCfg := a.cfg.RenderConfig()
	runner := pipeline.NewRunner(pipeline.Config{
		ResumePath: a.cfg.Paths.Resume,
		JDPath:     a.cfg.Paths.JobDescription,
		OutputDir:  a.cfg.Paths.OutputDir,
		PDFPath:    renderCfg.OutputPath,
		Reports:    defs.ReportFiles(),
		KeepOutput: flagKeepOutput,
	}, build, a.logger, cmd.OutOrStdout())

	_, err = runner.Run(ctx, a.runID)
	return err
}
