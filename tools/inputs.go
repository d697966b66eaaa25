package tools

import (
	"context"

	"github.com/vinayprograms/resumematch/logging"
	"github.com/vinayprograms/resumematch/resume"
)

// extractResumeTool implements extract_resume.
type extractResumeTool struct {
	defaultPath string
	logger      *logging.Logger
}

// NewExtractResumeTool returns the extract_resume tool. defaultPath is used
// when the model does not name a file.
func NewExtractResumeTool(defaultPath string, logger *logging.Logger) Tool {
	return &extractResumeTool{defaultPath: defaultPath, logger: logger}
}

func (t *extractResumeTool) Name() string { return "extract_resume" }

func (t *extractResumeTool) Description() string {
	return "Extract the plain text of the candidate's résumé PDF, page by page. Fails if the PDF has no machine-readable text."
}

func (t *extractResumeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"resume": map[string]interface{}{
				"type":        "string",
				"description": "Path to the résumé PDF (defaults to " + t.defaultPath + ")",
			},
		},
	}
}

func (t *extractResumeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path := Args(args).StringOr("resume", t.defaultPath)
	doc, err := resume.Extract(ctx, path, t.logger)
	if err != nil {
		return nil, err
	}
	return doc.Text, nil
}

// jobDescriptionTool implements extract_job_description.
type jobDescriptionTool struct {
	defaultPath string
}

// NewJobDescriptionTool returns the extract_job_description tool.
func NewJobDescriptionTool(defaultPath string) Tool {
	return &jobDescriptionTool{defaultPath: defaultPath}
}

func (t *jobDescriptionTool) Name() string { return "extract_job_description" }

func (t *jobDescriptionTool) Description() string {
	return "Read the job description text the candidate is applying for."
}

func (t *jobDescriptionTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the job description file (defaults to " + t.defaultPath + ")",
			},
		},
	}
}

func (t *jobDescriptionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resume.ReadJobDescription(Args(args).StringOr("path", t.defaultPath))
}
