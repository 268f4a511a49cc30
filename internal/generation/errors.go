package generation

import "fmt"

// DuplicateError marks a candidate whose stem is too similar to an
// already-accepted question.
type DuplicateError struct {
	Stem string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate question suppressed: %.60s", e.Stem)
}
