package tools

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/vinayprograms/resumematch/errors"
	"github.com/vinayprograms/resumematch/render"
)

// PDFRenderer renders markdown to the configured PDF path.
type PDFRenderer interface {
	Render(ctx context.Context, markdown string) (*render.Result, error)
}

// savePDFTool implements save_resume_as_pdf. Rendering problems come back as
// text so the model can react to them; only cancellation is returned as an
// error.
type savePDFTool struct {
	renderer PDFRenderer
}

// NewSavePDFTool returns the save_resume_as_pdf tool.
func NewSavePDFTool(renderer PDFRenderer) Tool {
	return &savePDFTool{renderer: renderer}
}

func (t *savePDFTool) Name() string { return "save_resume_as_pdf" }

func (t *savePDFTool) Description() string {
	return "Render the complete rewritten résumé, given as markdown, to a styled PDF. Pass the full markdown text, not a summary."
}

func (t *savePDFTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"markdown_content": map[string]interface{}{
				"type":        []interface{}{"string", "object"},
				"description": fmt.Sprintf("The full résumé in markdown (at least %d characters)", render.MinLength),
			},
		},
		"required": []string{"markdown_content"},
	}
}

func (t *savePDFTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	markdown, err := render.Resolve(render.ContentFrom(args["markdown_content"]))
	if err != nil {
		return "Error: " + err.Error(), nil
	}

	res, err := t.renderer.Render(ctx, markdown)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		var renderErr *render.RenderError
		if stderrors.As(err, &renderErr) {
			return renderErr.Error(), nil
		}
		if errors.Is(err, errors.ErrCodeInvalidInput) {
			return "Error: " + err.Error(), nil
		}
		return "PDF generation failed: " + err.Error(), nil
	}
	return fmt.Sprintf("PDF saved to %s (%d bytes)", res.Path, res.Size), nil
}
