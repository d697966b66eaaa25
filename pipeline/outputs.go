package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileState classifies an expected output file.
type FileState string

const (
	FileOK          FileState = "ok"
	FileActionsOnly FileState = "actions_only"
	FileUnreadable  FileState = "unreadable"
	FileMissing     FileState = "missing"
)

// Short markdown files with "Action:" and few lines are tool calls the model
// wrote out instead of making.
const (
	actionOnlyMaxBytes = 100
	actionOnlyMaxLines = 5
)

// FileStatus is the check result for one expected file.
type FileStatus struct {
	Name   string
	Path   string
	Size   int64
	State  FileState
	Detail string
}

// String returns the console line for the file.
func (f FileStatus) String() string {
	switch f.State {
	case FileMissing:
		return f.Name + ": not found"
	case FileActionsOnly:
		return f.Name + ": appears to contain only action calls"
	case FileUnreadable:
		return fmt.Sprintf("%s: could not read content (%s)", f.Name, f.Detail)
	}
	if strings.HasSuffix(f.Name, ".md") && f.Size < actionOnlyMaxBytes {
		return f.Name + ": contains proper content"
	}
	return fmt.Sprintf("%s: found with %s", f.Name, byteSize(f.Size))
}

// OutputReport is the result of CheckOutputs.
type OutputReport struct {
	Files      []FileStatus
	Found      int
	Missing    int
	PDFPath    string
	PDFCreated bool
}

// Summary returns the one-line found/missing count.
func (r *OutputReport) Summary() string {
	return fmt.Sprintf("summary: %d found, %d missing", r.Found, r.Missing)
}

// Warnings returns the statuses that need attention.
func (r *OutputReport) Warnings() []FileStatus {
	var out []FileStatus
	for _, f := range r.Files {
		if f.State != FileOK {
			out = append(out, f)
		}
	}
	return out
}

// CheckOutputs inspects the expected report files under outputDir and the
// PDF at pdfPath. Success is decided by the PDF alone.
func CheckOutputs(outputDir string, reports []string, pdfPath string) *OutputReport {
	report := &OutputReport{PDFPath: pdfPath}

	paths := make([]string, 0, len(reports)+1)
	for _, name := range reports {
		paths = append(paths, filepath.Join(outputDir, name))
	}
	paths = append(paths, pdfPath)

	for _, path := range paths {
		status := checkOutput(path)
		if status.State == FileMissing {
			report.Missing++
		} else {
			report.Found++
		}
		report.Files = append(report.Files, status)
	}

	if info, err := os.Stat(pdfPath); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		report.PDFCreated = true
	}
	return report
}

func checkOutput(path string) FileStatus {
	status := FileStatus{Name: filepath.Base(path), Path: path, State: FileOK}

	info, err := os.Stat(path)
	if err != nil {
		status.State = FileMissing
		return status
	}
	status.Size = info.Size()

	if !strings.HasSuffix(status.Name, ".md") || status.Size >= actionOnlyMaxBytes {
		return status
	}
	data, err := os.ReadFile(path)
	if err != nil {
		status.State = FileUnreadable
		status.Detail = err.Error()
		return status
	}
	if looksLikeActionsOnly(string(data)) {
		status.State = FileActionsOnly
	}
	return status
}

func looksLikeActionsOnly(content string) bool {
	return strings.Contains(content, "Action:") && len(strings.Split(content, "\n")) < actionOnlyMaxLines
}

// Tips returns troubleshooting hints printed after a failed run.
func Tips() []string {
	return []string{
		"Ensure Google Chrome or Chromium is installed, or set render.binary (CHROME_PATH)",
		"Check that input files exist and are readable",
		"Verify the LLM provider and API key (credentials file or environment)",
		"Try rendering a markdown file directly with `resumematch render`",
		"Try extracting the résumé directly with `resumematch extract`",
	}
}
