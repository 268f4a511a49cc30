package extractor

import (
	"fmt"

	"github.com/jonathan/exam-compiler/internal/types"
)

// ExtractionFailedError indicates a section still had problems after the
// retry bound was exhausted.
type ExtractionFailedError struct {
	Section  types.SectionKey
	Attempts int
	Problems []string
	Cause    error
}

func (e *ExtractionFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction of %s failed after %d attempts: %v", e.Section, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("extraction of %s failed after %d attempts: %d unresolved problems", e.Section, e.Attempts, len(e.Problems))
}

func (e *ExtractionFailedError) Unwrap() error {
	return e.Cause
}
