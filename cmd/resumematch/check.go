package main

import (
	"github.com/spf13/cobra"

	"github.com/vinayprograms/resumematch/crew"
	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the output directory for the reports and the PDF",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defs, err := crew.LoadDefinitions(a.cfg.Paths.Agents, a.cfg.Paths.Tasks)
		if err != nil {
			return err
		}

		runner := pipeline.NewRunner(pipeline.Config{
			OutputDir: a.cfg.Paths.OutputDir,
			PDFPath:   a.cfg.RenderConfig().OutputPath,
			Reports:   defs.ReportFiles(),
		}, nil, a.logger, cmd.OutOrStdout())
		if !runner.Check().PDFCreated {
			return errors.New(errors.ErrCodeRenderFailed, "PDF not created")
		}
		return nil
	},
}
