// Command resumematch rewrites a résumé PDF to target a job description.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/resumematch/config"
)

var version = "dev"

var (
	flagConfig     string
	flagResume     string
	flagJD         string
	flagOutputDir  string
	flagAgents     string
	flagTasks      string
	flagLogLevel   string
	flagKeepOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "resumematch",
	Short: "Match a résumé to a job description and rewrite it as a PDF",
	Long: `resumematch runs four agents in sequence: a résumé analyst, a job
matchmaker, a web researcher and a résumé writer. The writer saves the
rewritten résumé as a styled PDF; every agent leaves a markdown report.

Without a subcommand the full pipeline runs:
  resumematch --resume input/cv.pdf --jd input/jd.txt`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runPipeline,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", config.DefaultFile, "Config file")
	pf.StringVar(&flagResume, "resume", "", "Résumé PDF (default from config: input/cv.pdf)")
	pf.StringVar(&flagJD, "jd", "", "Job description text file (default from config: input/jd.txt)")
	pf.StringVar(&flagOutputDir, "output-dir", "", "Output directory (default from config: output)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	addRunFlags(rootCmd)
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd, extractCmd, renderCmd, checkCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagAgents, "agents", "", "Agents YAML overriding the built-in agents")
	cmd.Flags().StringVar(&flagTasks, "tasks", "", "Tasks YAML replacing the built-in tasks")
	cmd.Flags().BoolVar(&flagKeepOutput, "keep-output", false, "Keep files already in the output directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
