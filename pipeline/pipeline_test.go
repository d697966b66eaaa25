package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vinayprograms/resumematch/crew"
	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/internal/pdftest"
	"github.com/vinayprograms/resumematch/logging"
)

func quietLogger() *logging.Logger {
	l := logging.New()
	l.SetOutput(&bytes.Buffer{})
	return l
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestByteSize(t *testing.T) {
	if got := byteSize(1234567); got != "1,234,567 bytes" {
		t.Errorf("byteSize = %q", got)
	}
}

func TestSetupDirs(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "input")
	os.Mkdir(existing, 0755)

	created, err := SetupDirs(existing, filepath.Join(root, "output"), "")
	if err != nil {
		t.Fatalf("SetupDirs: %v", err)
	}
	if len(created) != 1 || created[0] != filepath.Join(root, "output") {
		t.Errorf("created = %v", created)
	}
}

func TestCleanOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "old.md"), "x")
	writeFile(t, filepath.Join(dir, "nested", "old.pdf"), "x")

	deleted := CleanOutput(dir, quietLogger())
	if len(deleted) != 2 {
		t.Errorf("deleted = %v", deleted)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d entries left", len(entries))
	}
	if CleanOutput(filepath.Join(dir, "missing"), quietLogger()) != nil {
		t.Error("missing directory should delete nothing")
	}
}

func TestVerifyInputs(t *testing.T) {
	dir := t.TempDir()
	pdf := pdftest.Write(t, dir, "cv.pdf", "Jane Doe, Go developer")
	jd := filepath.Join(dir, "jd.txt")
	writeFile(t, jd, "We are hiring a Go developer.")
	fakePDF := filepath.Join(dir, "fake.pdf")
	writeFile(t, fakePDF, "just text pretending to be a pdf")
	docx := filepath.Join(dir, "cv.docx")
	writeFile(t, docx, "word")

	tests := []struct {
		name       string
		resume, jd string
		issues     []string
	}{
		{"valid", pdf, jd, nil},
		{"both missing", filepath.Join(dir, "no.pdf"), filepath.Join(dir, "no.txt"), []string{"résumé file not found", "job description file not found"}},
		{"wrong extension", docx, jd, []string{"résumé file is not a PDF"}},
		{"wrong content", fakePDF, jd, []string{"résumé file is not a PDF: " + fakePDF + " (detected text/plain"}},
		{"jd is a directory", pdf, dir, []string{"job description path is not a file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := VerifyInputs(tt.resume, tt.jd)
			if len(tt.issues) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !report.ResumeFound || report.ResumeSize == 0 || report.JDSize == 0 {
					t.Errorf("report = %+v", report)
				}
				if len(report.Lines()) != 2 {
					t.Errorf("lines = %v", report.Lines())
				}
				return
			}
			if !errors.Is(err, errors.ErrCodeInputMissing) {
				t.Fatalf("expected INPUT_MISSING, got %v", err)
			}
			if len(report.Issues) != len(tt.issues) {
				t.Fatalf("issues = %v", report.Issues)
			}
			for i, want := range tt.issues {
				if !strings.HasPrefix(report.Issues[i], want) {
					t.Errorf("issue %d = %q, want prefix %q", i, report.Issues[i], want)
				}
			}
		})
	}
}

func TestCheckOutputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "analyst_report.md"), strings.Repeat("Strong Go background. ", 10))
	writeFile(t, filepath.Join(dir, "job_matching_report.md"), "Action: extract_job_description\nAction Input: {}")
	writeFile(t, filepath.Join(dir, "resume_advising_report.md"), "# Changes\nTightened summary.")
	pdfPath := filepath.Join(dir, "enhanced_resume.pdf")
	writeFile(t, pdfPath, "%PDF-1.4 test")

	reports := []string{"analyst_report.md", "job_matching_report.md", "web_research_summary.md", "resume_advising_report.md"}
	check := CheckOutputs(dir, reports, pdfPath)

	if check.Found != 4 || check.Missing != 1 {
		t.Errorf("found %d missing %d", check.Found, check.Missing)
	}
	if !check.PDFCreated {
		t.Error("PDF should be detected")
	}

	want := map[string]FileState{
		"analyst_report.md":         FileOK,
		"job_matching_report.md":    FileActionsOnly,
		"web_research_summary.md":   FileMissing,
		"resume_advising_report.md": FileOK,
		"enhanced_resume.pdf":       FileOK,
	}
	for _, f := range check.Files {
		if f.State != want[f.Name] {
			t.Errorf("%s state = %s, want %s", f.Name, f.State, want[f.Name])
		}
	}
	if len(check.Warnings()) != 2 {
		t.Errorf("warnings = %v", check.Warnings())
	}
	if check.Summary() != "summary: 4 found, 1 missing" {
		t.Errorf("Summary = %q", check.Summary())
	}
}

func TestCheckOutputsEmptyPDF(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "enhanced_resume.pdf")
	writeFile(t, pdfPath, "")
	if CheckOutputs(dir, nil, pdfPath).PDFCreated {
		t.Error("an empty file is not a created PDF")
	}
}

func TestFileStatusString(t *testing.T) {
	tests := []struct {
		status FileStatus
		want   string
	}{
		{FileStatus{Name: "a.md", State: FileMissing}, "a.md: not found"},
		{FileStatus{Name: "a.md", State: FileActionsOnly}, "a.md: appears to contain only action calls"},
		{FileStatus{Name: "a.md", Size: 20, State: FileOK}, "a.md: contains proper content"},
		{FileStatus{Name: "r.pdf", Size: 2048, State: FileOK}, "r.pdf: found with 2,048 bytes"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

type fakeCrew struct {
	calls  int
	inputs map[string]string
	run    func(ctx context.Context) error
}

func (f *fakeCrew) Kickoff(ctx context.Context, inputs map[string]string) (*crew.Output, error) {
	f.calls++
	f.inputs = inputs
	if f.run != nil {
		if err := f.run(ctx); err != nil {
			return &crew.Output{}, err
		}
	}
	return &crew.Output{Tasks: []crew.TaskOutput{{Name: "resume_writer_task", Raw: "PDF saved"}}}, nil
}

func newRunFixture(t *testing.T) Config {
	root := t.TempDir()
	inputDir := filepath.Join(root, "input")
	os.MkdirAll(inputDir, 0755)
	pdftest.Write(t, inputDir, "cv.pdf", "Jane Doe", "Experience: ten years of Go")
	writeFile(t, filepath.Join(inputDir, "jd.txt"), "Senior Go engineer wanted.")

	outDir := filepath.Join(root, "output")
	writeFile(t, filepath.Join(outDir, "stale.md"), "from a previous run")
	return Config{
		ResumePath: filepath.Join(inputDir, "cv.pdf"),
		JDPath:     filepath.Join(inputDir, "jd.txt"),
		OutputDir:  outDir,
		PDFPath:    filepath.Join(outDir, "enhanced_resume.pdf"),
		Reports:    []string{"analyst_report.md"},
	}
}

func TestRunnerSuccess(t *testing.T) {
	cfg := newRunFixture(t)
	kicker := &fakeCrew{run: func(ctx context.Context) error {
		writeFile(t, cfg.PDFPath, "%PDF-1.4 rendered")
		writeFile(t, filepath.Join(cfg.OutputDir, "analyst_report.md"), strings.Repeat("analysis ", 20))
		return nil
	}}
	var console bytes.Buffer

	result, err := NewRunner(cfg, kicker, quietLogger(), &console).Run(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if kicker.inputs["resume"] != cfg.ResumePath || kicker.inputs["jd"] != cfg.JDPath {
		t.Errorf("inputs = %v", kicker.inputs)
	}
	if !result.Outputs.PDFCreated {
		t.Error("PDF should be reported as created")
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "stale.md")); !os.IsNotExist(err) {
		t.Error("stale output should be cleaned")
	}
	for _, want := range []string{"deleted: stale.md", "résumé file found", "PDF successfully created", "mission accomplished"} {
		if !strings.Contains(console.String(), want) {
			t.Errorf("console missing %q:\n%s", want, console.String())
		}
	}
}

func TestRunnerKeepOutput(t *testing.T) {
	cfg := newRunFixture(t)
	cfg.KeepOutput = true
	kicker := &fakeCrew{}

	NewRunner(cfg, kicker, quietLogger(), nil).Run(context.Background(), "run-keep")
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "stale.md")); err != nil {
		t.Error("KeepOutput should leave existing files")
	}
}

func TestRunnerMissingPDF(t *testing.T) {
	cfg := newRunFixture(t)
	var console bytes.Buffer

	result, err := NewRunner(cfg, &fakeCrew{}, quietLogger(), &console).Run(context.Background(), "run-2")
	if !errors.Is(err, errors.ErrCodeRenderFailed) {
		t.Fatalf("expected RENDER_FAILED, got %v", err)
	}
	if result.Outputs == nil || result.Outputs.PDFCreated {
		t.Error("output check should report the missing PDF")
	}
	for _, want := range []string{"PDF not created", "mission failed", "troubleshooting tips:", "5. "} {
		if !strings.Contains(console.String(), want) {
			t.Errorf("console missing %q", want)
		}
	}
}

func TestRunnerInputMissing(t *testing.T) {
	cfg := newRunFixture(t)
	os.Remove(cfg.JDPath)
	kicker := &fakeCrew{}
	var console bytes.Buffer

	_, err := NewRunner(cfg, kicker, quietLogger(), &console).Run(context.Background(), "run-3")
	if !errors.Is(err, errors.ErrCodeInputMissing) {
		t.Fatalf("expected INPUT_MISSING, got %v", err)
	}
	if kicker.calls != 0 {
		t.Error("crew must not run when inputs are missing")
	}
	if !strings.Contains(console.String(), "a job description text file at: "+cfg.JDPath) {
		t.Errorf("console should carry the input hint:\n%s", console.String())
	}
}

func TestRunnerCrewFailure(t *testing.T) {
	cfg := newRunFixture(t)
	kicker := &fakeCrew{run: func(ctx context.Context) error {
		return errors.TaskFailed("job_matching_task", "gave up after 3 attempts")
	}}
	var console bytes.Buffer

	_, err := NewRunner(cfg, kicker, quietLogger(), &console).Run(context.Background(), "run-4")
	if !errors.Is(err, errors.ErrCodeTaskFailed) {
		t.Fatalf("expected TASK_FAILED, got %v", err)
	}
	if !strings.Contains(console.String(), "debugging info:") {
		t.Error("crew failure should print debugging info")
	}
}

func TestRunnerCancelled(t *testing.T) {
	cfg := newRunFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	kicker := &fakeCrew{run: func(ctx context.Context) error {
		cancel()
		return errors.Wrap(ctx.Err(), "crew run interrupted")
	}}
	var console bytes.Buffer

	_, err := NewRunner(cfg, kicker, quietLogger(), &console).Run(ctx, "run-5")
	if !errors.Is(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if !strings.Contains(console.String(), "operation cancelled by user") {
		t.Errorf("console:\n%s", console.String())
	}
	if strings.Contains(console.String(), "troubleshooting tips") {
		t.Error("cancellation should not print tips")
	}
}

func TestCheckOutputDir(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "input")
	resume := filepath.Join(inputDir, "cv.pdf")
	jd := filepath.Join(root, "jd", "jd.txt")
	writeFile(t, resume, "%PDF-1.4")
	writeFile(t, jd, "job")
	cwd, _ := os.Getwd()

	tests := []struct {
		name   string
		dir    string
		reject bool
	}{
		{"separate directory", filepath.Join(root, "output"), false},
		{"missing directory", filepath.Join(root, "new", "out"), false},
		{"sibling with shared prefix", filepath.Join(root, "input-out"), false},
		{"input directory", inputDir, true},
		{"input directory with trailing dot", filepath.Join(inputDir, "."), true},
		{"parent of inputs", root, true},
		{"job description directory", filepath.Dir(jd), true},
		{"working directory", ".", true},
		{"parent of working directory", filepath.Dir(cwd), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOutputDir(tt.dir, resume, jd)
			if tt.reject && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
			if !tt.reject && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunnerRefusesToCleanInputDirectory(t *testing.T) {
	cfg := newRunFixture(t)
	cfg.OutputDir = filepath.Dir(cfg.ResumePath)
	kicker := &fakeCrew{}
	var console bytes.Buffer

	_, err := NewRunner(cfg, kicker, quietLogger(), &console).Run(context.Background(), "run-6")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	for _, path := range []string{cfg.ResumePath, cfg.JDPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("input %s should survive: %v", path, err)
		}
	}
	if kicker.calls != 0 {
		t.Error("crew must not run")
	}
	if !strings.Contains(console.String(), "refusing to clean") {
		t.Errorf("console:\n%s", console.String())
	}
}

func TestRunnerKeepOutputAllowsInputDirectory(t *testing.T) {
	cfg := newRunFixture(t)
	cfg.OutputDir = filepath.Dir(cfg.ResumePath)
	cfg.PDFPath = filepath.Join(cfg.OutputDir, "enhanced_resume.pdf")
	cfg.KeepOutput = true
	kicker := &fakeCrew{run: func(ctx context.Context) error {
		writeFile(t, cfg.PDFPath, "%PDF-1.4 rendered")
		return nil
	}}

	if _, err := NewRunner(cfg, kicker, quietLogger(), nil).Run(context.Background(), "run-7"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(cfg.ResumePath); err != nil {
		t.Error("résumé should be untouched")
	}
}

func TestLazyKickerBuildsAfterVerification(t *testing.T) {
	cfg := newRunFixture(t)
	os.Remove(cfg.ResumePath)
	built := 0
	lazy := Lazy(func() (Kicker, error) {
		built++
		return nil, errors.InvalidInput("no API key for anthropic")
	})

	_, err := NewRunner(cfg, lazy, quietLogger(), nil).Run(context.Background(), "run-8")
	if !errors.Is(err, errors.ErrCodeInputMissing) || built != 0 {
		t.Fatalf("input problems must come first: err=%v built=%d", err, built)
	}

	cfg = newRunFixture(t)
	_, err = NewRunner(cfg, lazy, quietLogger(), nil).Run(context.Background(), "run-9")
	if !errors.Is(err, errors.ErrCodeInvalidInput) || built != 1 {
		t.Errorf("build error should surface from kickoff: err=%v built=%d", err, built)
	}
}
