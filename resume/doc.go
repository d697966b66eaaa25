// Package resume reads the two pipeline inputs: the candidate's résumé PDF and
// the job description text.
//
// Extract pulls plain text out of every page of a PDF. Pages without
// machine-readable text (scanned images, empty pages) are logged and skipped;
// a document where no page yields text is an extraction failure rather than an
// empty result.
package resume
