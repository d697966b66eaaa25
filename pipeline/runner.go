// Package pipeline runs one résumé/job match: it prepares directories,
// verifies the inputs, kicks off the crew and checks what it produced.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vinayprograms/resumematch/crew"
	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/logging"
)

// Kicker runs the crew.
type Kicker interface {
	Kickoff(ctx context.Context, inputs map[string]string) (*crew.Output, error)
}

// Lazy builds its Kicker on the first Kickoff, so construction errors such as
// a missing API key surface only after the inputs were verified.
type Lazy func() (Kicker, error)

// Kickoff builds the Kicker and runs it.
func (l Lazy) Kickoff(ctx context.Context, inputs map[string]string) (*crew.Output, error) {
	k, err := l()
	if err != nil {
		return nil, err
	}
	return k.Kickoff(ctx, inputs)
}

// Config locates the run's inputs and outputs.
type Config struct {
	ResumePath string
	JDPath     string
	OutputDir  string
	PDFPath    string
	// Reports are the report file names expected under OutputDir.
	Reports []string
	// KeepOutput skips cleaning OutputDir before the run.
	KeepOutput bool
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Inputs   *InputReport
	Crew     *crew.Output
	Outputs  *OutputReport
	Duration time.Duration
}

// Runner executes runs, printing progress to a console writer.
type Runner struct {
	cfg    Config
	crew   Kicker
	logger *logging.Logger
	out    io.Writer
}

// NewRunner creates a Runner. A nil out discards console output.
func NewRunner(cfg Config, kicker Kicker, logger *logging.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = logging.New()
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{cfg: cfg, crew: kicker, logger: logger.WithComponent("pipeline"), out: out}
}

func (r *Runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Run performs one full run. The returned error is nil only when the PDF was
// created.
func (r *Runner) Run(ctx context.Context, runID string) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: runID}
	inputs := map[string]string{"resume": r.cfg.ResumePath, "jd": r.cfg.JDPath}

	r.printf("starting résumé job match (run %s)", runID)
	r.logger.RunStart(runID, inputs)

	err := r.run(ctx, inputs, result)
	result.Duration = time.Since(start)

	status := "success"
	switch {
	case err == nil:
		r.printf("\nmission accomplished")
	case ctx.Err() != nil:
		status = "cancelled"
		r.printf("\noperation cancelled by user")
	default:
		status = "failed"
		r.printf("\nmission failed: check the log above for details")
		r.printf("\ntroubleshooting tips:")
		for i, tip := range Tips() {
			r.printf("%d. %s", i+1, tip)
		}
	}
	r.logger.RunComplete(result.Duration, status)
	return result, err
}

func (r *Runner) run(ctx context.Context, inputs map[string]string, result *Result) error {
	if !r.cfg.KeepOutput {
		if err := CheckOutputDir(r.cfg.OutputDir, r.cfg.ResumePath, r.cfg.JDPath); err != nil {
			r.printf("%v", err)
			return err
		}
	}

	created, err := SetupDirs(filepath.Dir(r.cfg.ResumePath), r.cfg.OutputDir)
	for _, dir := range created {
		r.printf("created directory: %s", dir)
	}
	if err != nil {
		return err
	}

	if !r.cfg.KeepOutput {
		for _, name := range CleanOutput(r.cfg.OutputDir, r.logger) {
			r.printf("deleted: %s", name)
		}
	}

	r.printf("verifying input files...")
	report, err := VerifyInputs(r.cfg.ResumePath, r.cfg.JDPath)
	result.Inputs = report
	for _, line := range report.Lines() {
		r.printf("  %s", line)
	}
	if err != nil {
		r.printf("input file issues found:")
		for _, issue := range report.Issues {
			r.printf("  - %s", issue)
		}
		r.printf("\nplease ensure you have:")
		r.printf("  1. a PDF résumé file at: %s", r.cfg.ResumePath)
		r.printf("  2. a job description text file at: %s", r.cfg.JDPath)
		return err
	}

	r.printf("\nrunning crew...")
	r.printf("inputs: resume=%s jd=%s", inputs["resume"], inputs["jd"])
	out, err := r.crew.Kickoff(ctx, inputs)
	result.Crew = out
	if err != nil {
		r.printf("crew execution failed: %v", err)
		r.debugInfo()
		return err
	}
	r.printf("crew execution completed")
	r.printf("result: %s", out.Raw())

	check := r.Check()
	result.Outputs = check
	if !check.PDFCreated {
		return errors.New(errors.ErrCodeRenderFailed, "PDF not created: "+check.PDFPath)
	}
	return nil
}

// Check runs the output check and prints its report.
func (r *Runner) Check() *OutputReport {
	r.printf("\nchecking outputs:")
	check := CheckOutputs(r.cfg.OutputDir, r.cfg.Reports, r.cfg.PDFPath)
	for _, f := range check.Files {
		r.printf("  %s", f)
		if f.State != FileOK {
			r.logger.Warn("output check", map[string]interface{}{"file": f.Name, "state": string(f.State)})
		}
	}
	r.printf("\n%s", check.Summary())
	if check.PDFCreated {
		r.printf("PDF successfully created: %s", check.PDFPath)
	} else {
		r.printf("PDF not created: %s", check.PDFPath)
	}
	return check
}

func (r *Runner) debugInfo() {
	cwd, _ := os.Getwd()
	r.printf("\ndebugging info:")
	r.printf("  - working directory: %s", cwd)
	r.printf("  - output directory exists: %t", dirExists(r.cfg.OutputDir))
	r.printf("  - input directory exists: %t", dirExists(filepath.Dir(r.cfg.ResumePath)))
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
