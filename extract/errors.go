package extract

import "fmt"

// ExtractionError reports a malformed document or an unreadable page. It is
// fatal for the document and aborts a comparison.
type ExtractionError struct {
	// Page is the 0-based page index, or -1 for document-level failures.
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction failed on page %d: %v", e.Page+1, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func documentError(err error) error {
	return &ExtractionError{Page: -1, Err: err}
}

func pageError(page int, err error) error {
	return &ExtractionError{Page: page, Err: err}
}
