package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/resumematch/errors"
)

var renderCmd = &cobra.Command{
	Use:   "render <markdown-file>",
	Short: "Render a markdown résumé to the configured PDF path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrCodeNotFound, "cannot read "+args[0])
		}

		renderer, err := a.newRenderer()
		if err != nil {
			return err
		}
		result, err := renderer.Render(context.Background(), string(data))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PDF saved to %s (%d bytes, %s attempt)\n", result.Path, result.Size, result.Attempt)
		return nil
	},
}
