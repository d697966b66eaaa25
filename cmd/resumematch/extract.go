package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/resumematch/resume"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf]",
	Short: "Print the text extracted from a résumé PDF",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		path := a.cfg.Paths.Resume
		if len(args) == 1 {
			path = args[0]
		}

		doc, err := resume.Extract(context.Background(), path, a.logger)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), doc.Text)
		return nil
	},
}
