package validation

import (
	"fmt"
	"strings"
)

// RecordError reports every rule a content record violated.
type RecordError struct {
	Problems []string
}

func (e *RecordError) Error() string {
	var sb strings.Builder
	sb.WriteString("content record invalid:\n")
	for i, p := range e.Problems {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, p))
	}
	return sb.String()
}

// QuestionError reports every rule a generated question violated.
type QuestionError struct {
	Reasons []string
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("question rejected: %s", strings.Join(e.Reasons, "; "))
}
