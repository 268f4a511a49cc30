package llm

import "fmt"

// ServiceError represents a transient inference-service failure. Callers
// retry it under the same bound as validation failures; it is never treated
// specially.
type ServiceError struct {
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("inference service error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("inference service error: %s", e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}
