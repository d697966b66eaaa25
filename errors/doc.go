// Package errors provides the structured error taxonomy used across
// resumematch.
//
// Every error carries a code, a category that drives retry decisions, an
// optional cause and free-form metadata. The pipeline distinguishes four
// domain failures on top of the generic codes:
//
//   - INPUT_MISSING: résumé or job description absent or of the wrong type
//   - EXTRACTION_FAILED: the PDF yielded no machine-readable text
//   - RENDER_FAILED: every HTML to PDF attempt failed
//   - MALFORMED_INPUT: a tool received a payload it could not interpret
//
// # Usage
//
//	err := errors.New(errors.ErrCodeExtraction, "no extractable text found")
//	wrapped := errors.Wrap(err, "analysing résumé")
//	if errors.Is(wrapped, errors.ErrCodeExtraction) {
//	    // ask for an OCR'd copy
//	}
package errors
