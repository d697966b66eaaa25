package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/logging"
)

var printer = message.NewPrinter(language.English)

// byteSize formats n as "1,234 bytes".
func byteSize(n int64) string {
	return printer.Sprintf("%d bytes", n)
}

// SetupDirs creates any missing directories and returns the ones it created.
func SetupDirs(dirs ...string) ([]string, error) {
	var created []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return created, errors.Wrap(err, "failed to create directory "+dir)
		}
		created = append(created, dir)
	}
	return created, nil
}

// CheckOutputDir rejects an output directory that cleaning would make
// destructive: one that is, or contains, the working directory or the
// directory of any input file.
func CheckOutputDir(outputDir string, inputs ...string) error {
	out := resolvePath(outputDir)
	if cwd, err := os.Getwd(); err == nil && within(resolvePath(cwd), out) {
		return errors.InvalidInput(fmt.Sprintf("output directory %s contains the working directory; refusing to clean it", outputDir),
			errors.WithMetadata("output_dir", outputDir))
	}
	for _, input := range inputs {
		if input == "" {
			continue
		}
		if within(resolvePath(filepath.Dir(input)), out) {
			return errors.InvalidInput(fmt.Sprintf("output directory %s contains input %s; refusing to clean it", outputDir, input),
				errors.WithMetadata("output_dir", outputDir))
		}
	}
	return nil
}

// resolvePath returns the absolute, symlink-free form of path when it exists
// and the absolute form otherwise.
func resolvePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// CleanOutput removes every entry of dir and returns the names it deleted.
// Failures are logged and skipped. A missing dir is not an error.
func CleanOutput(dir string, logger *logging.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot list output directory", map[string]interface{}{"dir": dir, "error": err.Error()})
		}
		return nil
	}
	var deleted []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to delete", map[string]interface{}{"path": path, "error": err.Error()})
			continue
		}
		deleted = append(deleted, e.Name())
	}
	return deleted
}

// InputReport describes the verified inputs.
type InputReport struct {
	ResumePath  string
	ResumeFound bool
	ResumeSize  int64
	JDPath      string
	JDFound     bool
	JDSize      int64
	Issues      []string
}

// Lines returns the console lines for found files.
func (r *InputReport) Lines() []string {
	var lines []string
	if r.ResumeFound {
		lines = append(lines, fmt.Sprintf("résumé file found: %s (%s)", r.ResumePath, byteSize(r.ResumeSize)))
	}
	if r.JDFound {
		lines = append(lines, fmt.Sprintf("job description file found: %s (%s)", r.JDPath, byteSize(r.JDSize)))
	}
	return lines
}

// VerifyInputs checks that the résumé is a PDF file and the job description
// is a file. Every problem found is listed; any problem yields an
// INPUT_MISSING error alongside the report.
func VerifyInputs(resumePath, jdPath string) (*InputReport, error) {
	report := &InputReport{ResumePath: resumePath, JDPath: jdPath}

	if size, issue := checkFile("résumé", resumePath); issue != "" {
		report.Issues = append(report.Issues, issue)
	} else if !strings.EqualFold(filepath.Ext(resumePath), ".pdf") {
		report.Issues = append(report.Issues, "résumé file is not a PDF: "+resumePath)
	} else if mt, err := mimetype.DetectFile(resumePath); err != nil {
		report.Issues = append(report.Issues, fmt.Sprintf("résumé file is not readable: %s (%v)", resumePath, err))
	} else if !mt.Is("application/pdf") {
		report.Issues = append(report.Issues, fmt.Sprintf("résumé file is not a PDF: %s (detected %s)", resumePath, mt.String()))
	} else {
		report.ResumeFound, report.ResumeSize = true, size
	}

	if size, issue := checkFile("job description", jdPath); issue != "" {
		report.Issues = append(report.Issues, issue)
	} else {
		report.JDFound, report.JDSize = true, size
	}

	if len(report.Issues) > 0 {
		return report, errors.InputMissing("input file issues found:\n  - " + strings.Join(report.Issues, "\n  - "))
	}
	return report, nil
}

func checkFile(label, path string) (int64, string) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return 0, fmt.Sprintf("%s file not found: %s", label, path)
	case err != nil:
		return 0, fmt.Sprintf("%s file is not accessible: %s (%v)", label, path, err)
	case !info.Mode().IsRegular():
		return 0, fmt.Sprintf("%s path is not a file: %s", label, path)
	}
	return info.Size(), ""
}
